package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Strob0t/Boardroom/internal/domain"
	"github.com/Strob0t/Boardroom/internal/domain/agent"
	"github.com/Strob0t/Boardroom/internal/domain/content"
	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
	"github.com/Strob0t/Boardroom/internal/domain/pattern"
	"github.com/Strob0t/Boardroom/internal/port/broadcast"
)

func newPitch(f *fixture) *PitchService {
	return NewPitchService(f.store, f.agents, f.tr, NewMemoryService(f.store, nil, f.cfg), f.hub, f.cfg)
}

func TestCreate_SubmitsAndSchedulesCommentary(t *testing.T) {
	f := newFixture()
	rec, err := newPitch(f).Create(context.Background(), &content.CreateRequest{
		Title: "Run the city",
		Body:  "A night-run series.",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.AuthorAgentID != "author" {
		t.Fatalf("author = %q, want configured default", rec.AuthorAgentID)
	}
	if rec.RevisionNumber != 1 || rec.ParentID != "" {
		t.Fatalf("not a root: %+v", rec)
	}
	if got := f.store.status(rec.ID); got != content.StatusPublished {
		t.Fatalf("status = %s, want published", got)
	}
	if got := f.sched.stages(); len(got) != 1 || got[0] != deliberation.StageComment {
		t.Fatalf("scheduled %v, want [comment]", got)
	}
	if !f.hub.has(broadcast.EventPitchCreated) || !f.hub.has(broadcast.EventPitchTransition) {
		t.Fatal("expected created and transition broadcasts")
	}
}

func TestCreate_FailedScheduleIsResumed(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.sched.err = errors.New("nats: no responders")
	if _, err := newPitch(f).Create(ctx, &content.CreateRequest{Title: "Run the city", Body: "A night-run series."}); err == nil {
		t.Fatal("expected schedule failure")
	}
	if len(f.store.posts) != 1 {
		t.Fatalf("posts = %d, want 1", len(f.store.posts))
	}
	var id string
	for k := range f.store.posts {
		id = k
	}
	if got := f.store.status(id); got != content.StatusPublished {
		t.Fatalf("status = %s, want published", got)
	}

	f.sched.err = nil
	n, err := f.tr.ResumeStalled(ctx, 10)
	if err != nil {
		t.Fatalf("ResumeStalled: %v", err)
	}
	if n != 1 || len(f.sched.jobs) != 1 || f.sched.jobs[0] != (scheduled{deliberation.StageComment, id}) {
		t.Fatalf("resumed %d, scheduled %+v; want commentary for %s", n, f.sched.jobs, id)
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture()
	_, err := newPitch(f).Create(context.Background(), &content.CreateRequest{Title: "no body"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(f.store.posts) != 0 {
		t.Fatal("invalid pitch stored")
	}
}

func TestGenerate_InjectsMemory(t *testing.T) {
	f := newFixture()
	f.store.patterns = []pattern.LearnedPattern{{
		ID: "l1", PatternType: pattern.TypeFailure, ContextTag: "copy",
		Content: "Long captions lose viewers.", Confidence: 0.92, CreatedAt: testTime,
	}}
	f.agents.pitch = agent.Draft{Title: "Streetlight Sprint", Body: "Short, loud, neon.", Archetype: "challenge"}

	rec, err := newPitch(f).Generate(context.Background(), GenerateRequest{
		Goal:           "grow reach",
		PersonaContext: map[string]string{"platform": "tiktok"},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(f.agents.lastPitch.Memory, "Long captions lose viewers.") {
		t.Fatalf("memory not injected: %q", f.agents.lastPitch.Memory)
	}
	if f.agents.lastPitch.Goal != "grow reach" {
		t.Fatalf("goal = %q", f.agents.lastPitch.Goal)
	}
	if rec.Title != "Streetlight Sprint" || rec.ContentArchetype != "challenge" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if rec.PersonaContext["platform"] != "tiktok" {
		t.Fatalf("persona context lost: %v", rec.PersonaContext)
	}
}

func TestGenerate_UntitledFallback(t *testing.T) {
	f := newFixture()
	f.agents.pitch = agent.Draft{Body: "Body only."}

	rec, err := newPitch(f).Generate(context.Background(), GenerateRequest{Archetype: "tutorial"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if rec.Title != "Untitled pitch" || rec.ContentArchetype != "tutorial" {
		t.Fatalf("unexpected record %+v", rec)
	}
	if f.agents.lastPitch.Memory != "" {
		t.Fatalf("expected empty memory, got %q", f.agents.lastPitch.Memory)
	}
}

func TestTree_FromAnyNode(t *testing.T) {
	f := newFixture()
	leaf := f.seedPost("p1", 2, content.StatusPublished)
	svc := newPitch(f)

	tree, err := svc.Tree(context.Background(), leaf.ID)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if len(tree) != 3 {
		t.Fatalf("tree size = %d, want 3", len(tree))
	}
	for i, rec := range tree {
		if rec.RevisionNumber != i+1 {
			t.Fatalf("tree[%d].RevisionNumber = %d", i, rec.RevisionNumber)
		}
	}
	if _, err := svc.Tree(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Comments(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for comments, got %v", err)
	}
}
