package litellm

import (
	"context"

	"github.com/Strob0t/Boardroom/internal/domain/agent"
	"github.com/Strob0t/Boardroom/internal/port/agentcap"
)

// AgentOptions tunes the completions issued by Agent.
type AgentOptions struct {
	BriefModel  string // model for brief and post-mortem requests
	MaxTokens   int
	Temperature float64
}

// Agent implements agentcap.Capability on top of the chat completion
// endpoint. Every panel member is the same client with a different model and
// system prompt.
type Agent struct {
	client *Client
	opts   AgentOptions
}

var _ agentcap.Capability = (*Agent)(nil)

// NewAgent wraps client.
func NewAgent(client *Client, opts AgentOptions) *Agent {
	return &Agent{client: client, opts: opts}
}

func (a *Agent) Pitch(ctx context.Context, author agent.Profile, req agentcap.PitchRequest) (agent.Draft, error) {
	raw, err := a.complete(ctx, "pitch", author.ID, author.Model, personaSystem(author), pitchPrompt(req))
	if err != nil {
		return agent.Draft{}, err
	}
	return agent.ParseDraft(raw)
}

func (a *Agent) Evaluate(ctx context.Context, voter agent.Profile, subject agentcap.Subject) (agent.Verdict, error) {
	raw, err := a.complete(ctx, "evaluate", voter.ID, voter.Model, personaSystem(voter), evaluatePrompt(subject))
	if err != nil {
		return agent.Verdict{}, err
	}
	return agent.ParseVerdict(raw)
}

func (a *Agent) Critique(ctx context.Context, critic agent.Profile, subject agentcap.Subject) (agent.Critique, error) {
	raw, err := a.complete(ctx, "critique", critic.ID, critic.Model, personaSystem(critic), critiquePrompt(subject))
	if err != nil {
		return agent.Critique{}, err
	}
	return agent.ParseCritique(raw)
}

func (a *Agent) ReviseBody(ctx context.Context, author agent.Profile, req agentcap.RevisionRequest) (agent.Draft, error) {
	raw, err := a.complete(ctx, "revise", author.ID, author.Model, personaSystem(author), revisionPrompt(req))
	if err != nil {
		return agent.Draft{}, err
	}
	return agent.ParseDraft(raw)
}

func (a *Agent) Brief(ctx context.Context, req agentcap.BriefRequest) (agent.Brief, error) {
	raw, err := a.complete(ctx, "brief", "", a.opts.BriefModel, strategistSystem, briefPrompt(req))
	if err != nil {
		return agent.Brief{}, err
	}
	return agent.ParseBrief(raw)
}

func (a *Agent) PostMortem(ctx context.Context, req agentcap.PostMortemRequest) ([]agent.Insight, error) {
	raw, err := a.complete(ctx, "postmortem", "", a.opts.BriefModel, strategistSystem, postMortemPrompt(req))
	if err != nil {
		return nil, err
	}
	return agent.ParseInsights(raw)
}

func (a *Agent) complete(ctx context.Context, op, agentID, model, system, user string) (string, error) {
	raw, err := a.client.ChatCompletion(ctx, ChatRequest{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:      a.opts.MaxTokens,
		Temperature:    a.opts.Temperature,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", &agent.CallError{Op: op, AgentID: agentID, Err: err}
	}
	return raw, nil
}
