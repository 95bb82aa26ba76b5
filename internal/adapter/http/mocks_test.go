package http_test

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Strob0t/Boardroom/internal/domain"
	"github.com/Strob0t/Boardroom/internal/domain/agent"
	"github.com/Strob0t/Boardroom/internal/domain/comment"
	"github.com/Strob0t/Boardroom/internal/domain/content"
	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
	"github.com/Strob0t/Boardroom/internal/domain/execution"
	"github.com/Strob0t/Boardroom/internal/domain/pattern"
	"github.com/Strob0t/Boardroom/internal/domain/vote"
	"github.com/Strob0t/Boardroom/internal/port/agentcap"
)

func missing(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
}

// memStore implements database.Store in memory.
type memStore struct {
	mu         sync.Mutex
	posts      map[string]*content.ContentRecord
	comments   []comment.Comment
	votes      []vote.Vote
	executions map[string]*execution.Execution
	patterns   []pattern.LearnedPattern
}

func newMemStore() *memStore {
	return &memStore{
		posts:      make(map[string]*content.ContentRecord),
		executions: make(map[string]*execution.Execution),
	}
}

func (m *memStore) CreateContent(_ context.Context, c *content.ContentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.posts[c.ID] = &cp
	return nil
}

func (m *memStore) CreateRevision(ctx context.Context, child *content.ContentRecord) error {
	return m.CreateContent(ctx, child)
}

func (m *memStore) GetContent(_ context.Context, id string) (*content.ContentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, missing("post", id)
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) GetChild(_ context.Context, parentID string) (*content.ContentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.ParentID == parentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, missing("child of", parentID)
}

func (m *memStore) ListTree(_ context.Context, rootID string) ([]content.ContentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []content.ContentRecord
	for _, p := range m.posts {
		if p.RootID() == rootID {
			out = append(out, *p)
		}
	}
	if len(out) == 0 {
		return nil, missing("tree", rootID)
	}
	slices.SortFunc(out, func(a, b content.ContentRecord) int { return cmp.Compare(a.RevisionNumber, b.RevisionNumber) })
	return out, nil
}

func (m *memStore) CompareAndSetStatus(_ context.Context, id string, expected, next content.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return missing("post", id)
	}
	if p.Status != expected {
		return fmt.Errorf("post %s is %s: %w", id, p.Status, domain.ErrConflict)
	}
	p.Status = next
	return nil
}

func (m *memStore) UpdateContentScore(_ context.Context, id string, netScore int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.posts[id]; ok {
		p.NetScore = netScore
	}
	return nil
}

func (m *memStore) RecentAcceptedTitles(context.Context, int) ([]string, error) { return nil, nil }

func (m *memStore) ListContentByStatus(context.Context, []content.Status, int) ([]content.ContentRecord, error) {
	return nil, nil
}

func (m *memStore) CreateComment(_ context.Context, c *comment.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.comments = append(m.comments, *c)
	return nil
}

func (m *memStore) GetComment(_ context.Context, id string) (*comment.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.comments {
		if m.comments[i].ID == id {
			c := m.comments[i]
			return &c, nil
		}
	}
	return nil, missing("comment", id)
}

func (m *memStore) ListComments(_ context.Context, postID string) ([]comment.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []comment.Comment
	for _, c := range m.comments {
		if c.PostID == postID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) ListCritiques(context.Context, []string) ([]comment.Comment, error) {
	return nil, nil
}

func (m *memStore) UpdateCommentScore(context.Context, string, int) error { return nil }

func (m *memStore) CreateVote(_ context.Context, v *vote.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.votes {
		if x.VotableType == v.VotableType && x.VotableID == v.VotableID && x.VoterID == v.VoterID {
			return fmt.Errorf("%w: duplicate vote by %s", domain.ErrConstraintViolation, v.VoterID)
		}
	}
	m.votes = append(m.votes, *v)
	return nil
}

func (m *memStore) ListVotes(_ context.Context, t vote.VotableType, id string) ([]vote.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []vote.Vote
	for _, v := range m.votes {
		if v.VotableType == t && v.VotableID == id {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memStore) CreateExecution(_ context.Context, e *execution.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.executions[e.ID] = &cp
	return nil
}

func (m *memStore) GetExecution(_ context.Context, id string) (*execution.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.executions[id]
	if !ok {
		return nil, missing("execution", id)
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) GetExecutionByPost(_ context.Context, postID string) (*execution.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.executions {
		if e.PostID == postID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, missing("execution for", postID)
}

func (m *memStore) UpdateExecutionAsset(_ context.Context, id, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.executions[id]; ok {
		e.AssetKey = key
	}
	return nil
}

func (m *memStore) UpdateExecutionMetrics(_ context.Context, id string, metrics execution.Metrics, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.executions[id]
	if !ok {
		return missing("execution", id)
	}
	e.Metrics = metrics
	e.MetricsAt = &at
	return nil
}

func (m *memStore) CreatePatterns(_ context.Context, _ string, ps []pattern.LearnedPattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patterns = append(m.patterns, ps...)
	return nil
}

func (m *memStore) CountPatternsForExecution(context.Context, string) (int, error) { return 0, nil }

func (m *memStore) ListPatterns(_ context.Context, minConfidence float64, limit int) ([]pattern.LearnedPattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []pattern.LearnedPattern
	for _, p := range m.patterns {
		if p.Confidence >= minConfidence {
			out = append(out, p)
		}
	}
	pattern.Rank(out)
	return out[:min(limit, len(out))], nil
}

// stubAgent answers pitch generation only.
type stubAgent struct {
	draft agent.Draft
	err   error
}

func (s *stubAgent) Pitch(context.Context, agent.Profile, agentcap.PitchRequest) (agent.Draft, error) {
	return s.draft, s.err
}

func (s *stubAgent) Evaluate(context.Context, agent.Profile, agentcap.Subject) (agent.Verdict, error) {
	return agent.Verdict{}, s.err
}

func (s *stubAgent) Critique(context.Context, agent.Profile, agentcap.Subject) (agent.Critique, error) {
	return agent.Critique{}, s.err
}

func (s *stubAgent) ReviseBody(context.Context, agent.Profile, agentcap.RevisionRequest) (agent.Draft, error) {
	return agent.Draft{}, s.err
}

func (s *stubAgent) Brief(context.Context, agentcap.BriefRequest) (agent.Brief, error) {
	return agent.Brief{}, s.err
}

func (s *stubAgent) PostMortem(context.Context, agentcap.PostMortemRequest) ([]agent.Insight, error) {
	return nil, s.err
}

// recordingScheduler stores scheduled stages.
type recordingScheduler struct {
	mu     sync.Mutex
	stages []deliberation.Stage
}

func (s *recordingScheduler) Enqueue(_ context.Context, stage deliberation.Stage, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages = append(s.stages, stage)
	return nil
}

type nopHub struct{}

func (nopHub) BroadcastEvent(context.Context, string, any) {}

type memAssets struct {
	objects map[string][]byte
}

func (m *memAssets) PutAsset(_ context.Context, key string, data []byte, _ string) error {
	m.objects[key] = data
	return nil
}

func (m *memAssets) GetAsset(_ context.Context, key string) ([]byte, error) {
	d, ok := m.objects[key]
	if !ok {
		return nil, missing("asset", key)
	}
	return d, nil
}
