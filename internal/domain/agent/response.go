package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Strob0t/Boardroom/internal/domain/execution"
)

// Verdict is one agent's up or down vote.
type Verdict struct {
	Direction int `json:"direction"`
}

// Critique is the pro/con pair an agent writes about a pitch. Either side may be empty.
type Critique struct {
	Pro string `json:"pro"`
	Con string `json:"con"`
}

// Empty reports whether the agent contributed nothing.
func (c Critique) Empty() bool {
	return c.Pro == "" && c.Con == ""
}

// Draft is a generated or revised pitch.
type Draft struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Archetype string `json:"archetype,omitempty"`
}

// Brief is the creative brief produced for an accepted pitch.
type Brief = execution.Brief

// Insight is one lesson proposed by a post-mortem.
type Insight struct {
	Type       string  `json:"type"`
	Tag        string  `json:"tag"`
	Content    string  `json:"content"`
	Confidence float64 `json:"confidence"`
}

// ParseVerdict decodes {"direction": 1|-1}.
func ParseVerdict(raw string) (Verdict, error) {
	var v Verdict
	if err := decode(raw, &v); err != nil {
		return Verdict{}, &ParseError{Op: "evaluate", Raw: raw, Err: err}
	}
	if v.Direction != 1 && v.Direction != -1 {
		return Verdict{}, &ParseError{Op: "evaluate", Raw: raw, Err: fmt.Errorf("direction %d not in {-1, 1}", v.Direction)}
	}
	return v, nil
}

// ParseCritique decodes {"pro": "...", "con": "..."} and trims both sides.
func ParseCritique(raw string) (Critique, error) {
	var c Critique
	if err := decode(raw, &c); err != nil {
		return Critique{}, &ParseError{Op: "critique", Raw: raw, Err: err}
	}
	c.Pro = strings.TrimSpace(c.Pro)
	c.Con = strings.TrimSpace(c.Con)
	return c, nil
}

// ParseDraft decodes {"title": "...", "body": "..."}. A missing body is an error.
func ParseDraft(raw string) (Draft, error) {
	var d Draft
	if err := decode(raw, &d); err != nil {
		return Draft{}, &ParseError{Op: "pitch", Raw: raw, Err: err}
	}
	d.Title = strings.TrimSpace(d.Title)
	d.Body = strings.TrimSpace(d.Body)
	if d.Body == "" {
		return Draft{}, &ParseError{Op: "pitch", Raw: raw, Err: errors.New("body is empty")}
	}
	return d, nil
}

// ParseBrief decodes a creative brief. At least one channel prompt or copy is required.
func ParseBrief(raw string) (Brief, error) {
	var b Brief
	if err := decode(raw, &b); err != nil {
		return Brief{}, &ParseError{Op: "brief", Raw: raw, Err: err}
	}
	if len(b.Prompts) == 0 && len(b.Copy) == 0 {
		return Brief{}, &ParseError{Op: "brief", Raw: raw, Err: errors.New("brief has no channels")}
	}
	b.ImagePrompt = strings.TrimSpace(b.ImagePrompt)
	return b, nil
}

// ParseInsights decodes a JSON list of insights. An object wrapping the list
// under "insights" is accepted too. Anything else is a parse error.
func ParseInsights(raw string) ([]Insight, error) {
	body := extractJSON(raw)
	var list []Insight
	if err := json.Unmarshal([]byte(body), &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Insights *[]Insight `json:"insights"`
	}
	if err := json.Unmarshal([]byte(body), &wrapped); err != nil || wrapped.Insights == nil {
		return nil, &ParseError{Op: "postmortem", Raw: raw, Err: errors.New("response is not a list of insights")}
	}
	return *wrapped.Insights, nil
}

func decode(raw string, v any) error {
	body := extractJSON(raw)
	if body == "" {
		return errors.New("empty response")
	}
	return json.Unmarshal([]byte(body), v)
}

// extractJSON strips markdown fences and surrounding prose from an LLM reply.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)

	for _, fence := range []string{"```json", "```"} {
		if strings.HasPrefix(s, fence) {
			s = strings.TrimPrefix(s, fence)
			if idx := strings.LastIndex(s, "```"); idx >= 0 {
				s = s[:idx]
			}
			return strings.TrimSpace(s)
		}
	}

	// Whichever of an object or a list opens first wins.
	objStart, listStart := strings.Index(s, "{"), strings.Index(s, "[")
	if listStart >= 0 && (objStart < 0 || listStart < objStart) {
		if end := strings.LastIndex(s, "]"); end > listStart {
			return s[listStart : end+1]
		}
	}
	if objStart >= 0 {
		if end := strings.LastIndex(s, "}"); end > objStart {
			return s[objStart : end+1]
		}
	}
	return s
}
