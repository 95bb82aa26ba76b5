package litellm_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Strob0t/Boardroom/internal/adapter/litellm"
	"github.com/Strob0t/Boardroom/internal/domain/agent"
	"github.com/Strob0t/Boardroom/internal/domain/execution"
	"github.com/Strob0t/Boardroom/internal/port/agentcap"
)

var cfo = agent.Profile{ID: "skeptical_cfo", Name: "Skeptical CFO", Model: "openai/gpt-4o-mini", Persona: "Questions cost."}

func subject() agentcap.Subject {
	return agentcap.Subject{
		Kind:           "pitch",
		Title:          "Night Run",
		Body:           "City lights, one pair of shoes.",
		Archetype:      "storytelling",
		PersonaContext: map[string]string{"market": "EU"},
		Brand:          agentcap.BrandContext{Name: "Acme Outdoors", Voice: "Confident"},
	}
}

func TestAgent_Evaluate(t *testing.T) {
	srv := chatServer(t, "```json\n{\"direction\": -1}\n```", func(req litellm.ChatRequest) {
		if req.Model != cfo.Model {
			t.Errorf("model = %q, want %q", req.Model, cfo.Model)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Errorf("response_format = %+v", req.ResponseFormat)
		}
		if !strings.Contains(req.Messages[0].Content, "Skeptical CFO") {
			t.Errorf("system prompt lacks persona: %q", req.Messages[0].Content)
		}
		if !strings.Contains(req.Messages[1].Content, "market: EU") {
			t.Errorf("user prompt lacks persona context: %q", req.Messages[1].Content)
		}
	})
	defer srv.Close()

	a := litellm.NewAgent(litellm.NewClient(srv.URL, ""), litellm.AgentOptions{})
	v, err := a.Evaluate(context.Background(), cfo, subject())
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if v.Direction != -1 {
		t.Fatalf("direction = %d", v.Direction)
	}
}

func TestAgent_ParseFailure(t *testing.T) {
	srv := chatServer(t, "I like it!", nil)
	defer srv.Close()

	a := litellm.NewAgent(litellm.NewClient(srv.URL, ""), litellm.AgentOptions{})
	_, err := a.Evaluate(context.Background(), cfo, subject())
	if !agent.IsParseError(err) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestAgent_CallFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := litellm.NewAgent(litellm.NewClient(srv.URL, ""), litellm.AgentOptions{})
	_, err := a.Critique(context.Background(), cfo, subject())
	if !agent.IsCallError(err) {
		t.Fatalf("expected CallError, got %v", err)
	}
	if !strings.Contains(err.Error(), "skeptical_cfo") {
		t.Fatalf("error lacks agent id: %v", err)
	}
}

func TestAgent_ReviseBodyCarriesCritiquesAndDenyList(t *testing.T) {
	srv := chatServer(t, `{"title": "Dawn Run", "body": "Sunrise, one pair of shoes."}`, func(req litellm.ChatRequest) {
		user := req.Messages[1].Content
		for _, want := range []string{"Too dark.", "Too long.", "Summer Splash"} {
			if !strings.Contains(user, want) {
				t.Errorf("revision prompt missing %q", want)
			}
		}
	})
	defer srv.Close()

	a := litellm.NewAgent(litellm.NewClient(srv.URL, ""), litellm.AgentOptions{})
	d, err := a.ReviseBody(context.Background(), cfo, agentcap.RevisionRequest{
		Title:      "Night Run",
		FailedBody: "City lights.",
		Critiques:  []string{"Too dark.", "Too long."},
		DenyTitles: []string{"Summer Splash"},
	})
	if err != nil {
		t.Fatalf("ReviseBody: %v", err)
	}
	if d.Title != "Dawn Run" || d.Body == "" {
		t.Fatalf("unexpected draft %+v", d)
	}
}

func TestAgent_BriefUsesBriefModel(t *testing.T) {
	srv := chatServer(t, `{"prompts": {"tiktok": "15s"}, "copy": {"tiktok": "Own it."}, "notes": "n", "image_prompt": "runner at night"}`,
		func(req litellm.ChatRequest) {
			if req.Model != "openai/gpt-4o" {
				t.Errorf("model = %q", req.Model)
			}
		})
	defer srv.Close()

	a := litellm.NewAgent(litellm.NewClient(srv.URL, ""), litellm.AgentOptions{BriefModel: "openai/gpt-4o"})
	b, err := a.Brief(context.Background(), agentcap.BriefRequest{Title: "Night Run", Body: "b"})
	if err != nil {
		t.Fatalf("Brief: %v", err)
	}
	if b.ImagePrompt != "runner at night" || b.Copy["tiktok"] != "Own it." {
		t.Fatalf("unexpected brief %+v", b)
	}
}

func TestAgent_PostMortem(t *testing.T) {
	srv := chatServer(t, `{"insights": [{"type": "success", "tag": "night", "content": "Night imagery lifts ROAS.", "confidence": 0.9}]}`,
		func(req litellm.ChatRequest) {
			if !strings.Contains(req.Messages[1].Content, "roas: 3.2") {
				t.Errorf("metrics missing from prompt: %q", req.Messages[1].Content)
			}
		})
	defer srv.Close()

	a := litellm.NewAgent(litellm.NewClient(srv.URL, ""), litellm.AgentOptions{BriefModel: "m"})
	got, err := a.PostMortem(context.Background(), agentcap.PostMortemRequest{
		Title:   "Night Run",
		Metrics: execution.Metrics{"roas": 3.2},
	})
	if err != nil {
		t.Fatalf("PostMortem: %v", err)
	}
	if len(got) != 1 || got[0].Type != "success" {
		t.Fatalf("unexpected insights %+v", got)
	}
}

func TestImageGenerator(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/images/generations" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]string{{"b64_json": base64.StdEncoding.EncodeToString(png)}},
		})
	}))
	defer srv.Close()

	g := litellm.NewImageGenerator(litellm.NewClient(srv.URL, ""), "openai/dall-e-3")
	got, err := g.GenerateImage(context.Background(), "runner at night")
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if string(got) != string(png) {
		t.Fatalf("got %v", got)
	}
}

func TestImageGeneratorDisabled(t *testing.T) {
	g := litellm.NewImageGenerator(litellm.NewClient("http://127.0.0.1:0", ""), "")
	got, err := g.GenerateImage(context.Background(), "anything")
	if err != nil || got != nil {
		t.Fatalf("disabled generator = %v, %v", got, err)
	}
}
