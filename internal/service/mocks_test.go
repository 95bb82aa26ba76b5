package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Strob0t/Boardroom/internal/config"
	"github.com/Strob0t/Boardroom/internal/domain"
	"github.com/Strob0t/Boardroom/internal/domain/agent"
	"github.com/Strob0t/Boardroom/internal/domain/comment"
	"github.com/Strob0t/Boardroom/internal/domain/content"
	"github.com/Strob0t/Boardroom/internal/domain/deliberation"
	"github.com/Strob0t/Boardroom/internal/domain/execution"
	"github.com/Strob0t/Boardroom/internal/domain/pattern"
	"github.com/Strob0t/Boardroom/internal/domain/vote"
	"github.com/Strob0t/Boardroom/internal/port/agentcap"
	"github.com/Strob0t/Boardroom/internal/port/broadcast"
	"github.com/Strob0t/Boardroom/internal/port/cache"
	"github.com/Strob0t/Boardroom/internal/port/database"
	"github.com/Strob0t/Boardroom/internal/port/messagequeue"
	"github.com/Strob0t/Boardroom/internal/port/notifier"
)

// Ensure mock types implement their interfaces at compile time.
var (
	_ database.Store          = (*mockStore)(nil)
	_ agentcap.Capability     = (*mockAgent)(nil)
	_ agentcap.AssetGenerator = (*mockImages)(nil)
	_ agentcap.AssetStore     = (*mockAssets)(nil)
	_ broadcast.Broadcaster   = (*mockBroadcaster)(nil)
	_ notifier.Notifier       = (*mockNotifier)(nil)
	_ messagequeue.Queue      = (*mockQueue)(nil)
	_ cache.Cache             = (*mockCache)(nil)
	_ Enqueuer                = (*mockScheduler)(nil)
)

// --- Config ---

// testHolder returns a config with an author plus five reviewers.
func testHolder() *config.Holder {
	cfg := config.Defaults()
	cfg.Panel.Roster = agent.Roster{
		{ID: "author", Name: "Author", Model: "m", Persona: "writes pitches"},
		{ID: "a1", Name: "A1", Model: "m"},
		{ID: "a2", Name: "A2", Model: "m"},
		{ID: "a3", Name: "A3", Model: "m"},
		{ID: "a4", Name: "A4", Model: "m"},
		{ID: "a5", Name: "A5", Model: "m"},
	}
	cfg.Panel.DefaultAuthor = "author"
	cfg.Panel.MaxParallel = 2
	cfg.Agent.Timeout = time.Second
	cfg.Revision.Retries = 2
	cfg.Revision.RetryDelay = time.Millisecond
	return config.NewHolder(&cfg, "")
}

// --- Store ---

type mockStore struct {
	mu             sync.Mutex
	posts          map[string]*content.ContentRecord
	comments       []comment.Comment
	votes          []vote.Vote
	executions     map[string]*execution.Execution
	patterns       []pattern.LearnedPattern
	acceptedTitles []string

	// Error hooks
	createVoteErr    error
	createPatternErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		posts:      make(map[string]*content.ContentRecord),
		executions: make(map[string]*execution.Execution),
	}
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
}

func (m *mockStore) put(rec *content.ContentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *rec
	m.posts[rec.ID] = &c
}

func (m *mockStore) status(id string) content.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.posts[id].Status
}

func (m *mockStore) CreateContent(_ context.Context, c *content.ContentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[c.ID]; ok {
		return domain.ErrConstraintViolation
	}
	cp := *c
	m.posts[c.ID] = &cp
	return nil
}

func (m *mockStore) CreateRevision(_ context.Context, child *content.ContentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	parent, ok := m.posts[child.ParentID]
	if !ok {
		return notFound("post", child.ParentID)
	}
	if parent.Status != content.StatusNeedsRevision {
		return domain.ErrConflict
	}
	for _, p := range m.posts {
		if p.ParentID == child.ParentID {
			return domain.ErrConstraintViolation
		}
	}
	cp := *child
	m.posts[child.ID] = &cp
	return nil
}

func (m *mockStore) GetContent(_ context.Context, id string) (*content.ContentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, notFound("post", id)
	}
	cp := *p
	return &cp, nil
}

func (m *mockStore) GetChild(_ context.Context, parentID string) (*content.ContentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.ParentID == parentID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, notFound("child of", parentID)
}

func (m *mockStore) ListTree(_ context.Context, rootID string) ([]content.ContentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []content.ContentRecord
	for _, p := range m.posts {
		if p.ID == rootID || (len(p.Ancestry) > 0 && p.Ancestry[0] == rootID) {
			out = append(out, *p)
		}
	}
	if len(out) == 0 {
		return nil, notFound("tree", rootID)
	}
	slices.SortFunc(out, func(a, b content.ContentRecord) int {
		return cmp.Compare(a.RevisionNumber, b.RevisionNumber)
	})
	return out, nil
}

func (m *mockStore) CompareAndSetStatus(_ context.Context, id string, expected, next content.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return notFound("post", id)
	}
	if p.Status != expected {
		return domain.ErrConflict
	}
	p.Status = next
	return nil
}

func (m *mockStore) UpdateContentScore(_ context.Context, id string, netScore int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return notFound("post", id)
	}
	p.NetScore = netScore
	return nil
}

func (m *mockStore) RecentAcceptedTitles(_ context.Context, limit int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.acceptedTitles) > limit {
		return m.acceptedTitles[:limit], nil
	}
	return m.acceptedTitles, nil
}

func (m *mockStore) ListContentByStatus(_ context.Context, statuses []content.Status, limit int) ([]content.ContentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []content.ContentRecord
	for _, p := range m.posts {
		if slices.Contains(statuses, p.Status) {
			out = append(out, *p)
		}
	}
	slices.SortFunc(out, func(a, b content.ContentRecord) int { return cmp.Compare(a.ID, b.ID) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockStore) CreateComment(_ context.Context, c *comment.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.comments {
		e := &m.comments[i]
		if e.PostID == c.PostID && e.AuthorAgentID == c.AuthorAgentID && e.Type == c.Type {
			return domain.ErrConstraintViolation
		}
	}
	m.comments = append(m.comments, *c)
	return nil
}

func (m *mockStore) GetComment(_ context.Context, id string) (*comment.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.comments {
		if m.comments[i].ID == id {
			c := m.comments[i]
			return &c, nil
		}
	}
	return nil, notFound("comment", id)
}

func (m *mockStore) ListComments(_ context.Context, postID string) ([]comment.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []comment.Comment
	for i := range m.comments {
		if m.comments[i].PostID == postID {
			out = append(out, m.comments[i])
		}
	}
	return out, nil
}

func (m *mockStore) ListCritiques(_ context.Context, postIDs []string) ([]comment.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []comment.Comment{}
	for i := range m.comments {
		if m.comments[i].Type == comment.TypeCritique && slices.Contains(postIDs, m.comments[i].PostID) {
			out = append(out, m.comments[i])
		}
	}
	return out, nil
}

func (m *mockStore) UpdateCommentScore(_ context.Context, id string, netScore int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.comments {
		if m.comments[i].ID == id {
			m.comments[i].NetScore = netScore
			return nil
		}
	}
	return notFound("comment", id)
}

func (m *mockStore) CreateVote(_ context.Context, v *vote.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createVoteErr != nil {
		return m.createVoteErr
	}
	for i := range m.votes {
		e := &m.votes[i]
		if e.VotableType == v.VotableType && e.VotableID == v.VotableID && e.VoterID == v.VoterID {
			return domain.ErrConstraintViolation
		}
	}
	m.votes = append(m.votes, *v)
	return nil
}

func (m *mockStore) ListVotes(_ context.Context, votableType vote.VotableType, votableID string) ([]vote.Vote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []vote.Vote
	for i := range m.votes {
		if m.votes[i].VotableType == votableType && m.votes[i].VotableID == votableID {
			out = append(out, m.votes[i])
		}
	}
	return out, nil
}

func (m *mockStore) CreateExecution(_ context.Context, e *execution.Execution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.executions {
		if x.PostID == e.PostID {
			return domain.ErrConstraintViolation
		}
	}
	cp := *e
	m.executions[e.ID] = &cp
	return nil
}

func (m *mockStore) GetExecution(_ context.Context, id string) (*execution.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.executions[id]
	if !ok {
		return nil, notFound("execution", id)
	}
	cp := *e
	return &cp, nil
}

func (m *mockStore) GetExecutionByPost(_ context.Context, postID string) (*execution.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.executions {
		if e.PostID == postID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, notFound("execution for post", postID)
}

func (m *mockStore) UpdateExecutionAsset(_ context.Context, id, assetKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.executions[id]
	if !ok {
		return notFound("execution", id)
	}
	e.AssetKey = assetKey
	return nil
}

func (m *mockStore) UpdateExecutionMetrics(_ context.Context, id string, metrics execution.Metrics, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.executions[id]
	if !ok {
		return notFound("execution", id)
	}
	e.Metrics = metrics
	e.MetricsAt = &at
	return nil
}

func (m *mockStore) CreatePatterns(_ context.Context, executionID string, ps []pattern.LearnedPattern) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createPatternErr != nil {
		return m.createPatternErr
	}
	if _, ok := m.executions[executionID]; !ok {
		return notFound("execution", executionID)
	}
	for i := range m.patterns {
		if m.patterns[i].SourceExecutionID == executionID {
			return fmt.Errorf("execution %s: %w", executionID, domain.ErrConstraintViolation)
		}
	}
	m.patterns = append(m.patterns, ps...)
	return nil
}

func (m *mockStore) CountPatternsForExecution(_ context.Context, executionID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for i := range m.patterns {
		if m.patterns[i].SourceExecutionID == executionID {
			n++
		}
	}
	return n, nil
}

func (m *mockStore) ListPatterns(_ context.Context, minConfidence float64, limit int) ([]pattern.LearnedPattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []pattern.LearnedPattern
	for i := range m.patterns {
		if m.patterns[i].Confidence >= minConfidence {
			out = append(out, m.patterns[i])
		}
	}
	pattern.Rank(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Agent ---

type mockAgent struct {
	mu sync.Mutex

	verdicts  map[string]int // agent id -> direction; missing agents fail
	evaluated []string

	critiques map[string]agent.Critique // missing agents fail

	revise       func(call int) (agent.Draft, error)
	reviseCalls  int
	lastRevision agentcap.RevisionRequest

	pitch     agent.Draft
	lastPitch agentcap.PitchRequest

	brief    agent.Brief
	briefErr error

	insights   []agent.Insight
	insightErr error
}

func callErr(op, id string) error {
	return &agent.CallError{Op: op, AgentID: id, Err: errors.New("upstream timeout")}
}

func (m *mockAgent) Pitch(_ context.Context, _ agent.Profile, req agentcap.PitchRequest) (agent.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastPitch = req
	return m.pitch, nil
}

func (m *mockAgent) Evaluate(_ context.Context, voter agent.Profile, _ agentcap.Subject) (agent.Verdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evaluated = append(m.evaluated, voter.ID)
	d, ok := m.verdicts[voter.ID]
	if !ok {
		return agent.Verdict{}, callErr("evaluate", voter.ID)
	}
	if d == 0 {
		return agent.Verdict{}, &agent.ParseError{Op: "evaluate", Raw: "maybe", Err: errors.New("not json")}
	}
	return agent.Verdict{Direction: d}, nil
}

func (m *mockAgent) Critique(_ context.Context, critic agent.Profile, _ agentcap.Subject) (agent.Critique, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.critiques[critic.ID]
	if !ok {
		return agent.Critique{}, callErr("critique", critic.ID)
	}
	return c, nil
}

func (m *mockAgent) ReviseBody(_ context.Context, _ agent.Profile, req agentcap.RevisionRequest) (agent.Draft, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviseCalls++
	m.lastRevision = req
	if m.revise == nil {
		return agent.Draft{Title: "Revised", Body: "revised body"}, nil
	}
	return m.revise(m.reviseCalls)
}

func (m *mockAgent) Brief(_ context.Context, _ agentcap.BriefRequest) (agent.Brief, error) {
	return m.brief, m.briefErr
}

func (m *mockAgent) PostMortem(_ context.Context, _ agentcap.PostMortemRequest) ([]agent.Insight, error) {
	return m.insights, m.insightErr
}

type mockImages struct {
	data []byte
	err  error
}

func (m *mockImages) GenerateImage(_ context.Context, _ string) ([]byte, error) {
	return m.data, m.err
}

type mockAssets struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newMockAssets() *mockAssets {
	return &mockAssets{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *mockAssets) PutAsset(_ context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *mockAssets) GetAsset(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.objects[key]
	if !ok {
		return nil, notFound("asset", key)
	}
	return d, nil
}

// --- Scheduling and events ---

type scheduled struct {
	stage    deliberation.Stage
	targetID string
}

type mockScheduler struct {
	mu   sync.Mutex
	jobs []scheduled
	err  error
}

func (m *mockScheduler) Enqueue(_ context.Context, stage deliberation.Stage, targetID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, scheduled{stage, targetID})
	return nil
}

func (m *mockScheduler) stages() []deliberation.Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]deliberation.Stage, len(m.jobs))
	for i := range m.jobs {
		out[i] = m.jobs[i].stage
	}
	return out
}

func (m *mockScheduler) count(stage deliberation.Stage) int {
	n := 0
	for _, s := range m.stages() {
		if s == stage {
			n++
		}
	}
	return n
}

func (m *mockScheduler) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = nil
}

type mockBroadcaster struct {
	mu     sync.Mutex
	events []struct {
		eventType string
		payload   any
	}
}

func (m *mockBroadcaster) BroadcastEvent(_ context.Context, eventType string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, struct {
		eventType string
		payload   any
	}{eventType, payload})
}

func (m *mockBroadcaster) has(eventType string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.eventType == eventType {
			return true
		}
	}
	return false
}

type mockNotifier struct {
	mu      sync.Mutex
	name    string
	sent    []notifier.Notification
	sendErr error
}

func (m *mockNotifier) Name() string { return m.name }
func (m *mockNotifier) Send(_ context.Context, n notifier.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, n)
	return nil
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type mockQueue struct {
	mu        sync.Mutex
	published []struct {
		subject string
		data    []byte
	}
	handlers   map[string]messagequeue.Handler
	publishErr error
}

func (q *mockQueue) Publish(_ context.Context, subject string, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.publishErr != nil {
		return q.publishErr
	}
	q.published = append(q.published, struct {
		subject string
		data    []byte
	}{subject, data})
	return nil
}

func (q *mockQueue) Subscribe(_ context.Context, subject string, h messagequeue.Handler) (func(), error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.handlers == nil {
		q.handlers = make(map[string]messagequeue.Handler)
	}
	q.handlers[subject] = h
	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.handlers, subject)
	}, nil
}

func (q *mockQueue) Drain() error      { return nil }
func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return true }

type mockCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	gets    int
	deletes int
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	delete(m.data, key)
	return nil
}

// --- Fixtures ---

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store  *mockStore
	agents *mockAgent
	sched  *mockScheduler
	hub    *mockBroadcaster
	cfg    *config.Holder
	tr     *Transitioner
}

func newFixture() *fixture {
	f := &fixture{
		store:  newMockStore(),
		agents: &mockAgent{},
		sched:  &mockScheduler{},
		hub:    &mockBroadcaster{},
		cfg:    testHolder(),
	}
	f.tr = NewTransitioner(f.store, f.sched, f.hub, nil)
	return f
}

// tune replaces the fixture config. Build services after calling it.
func (f *fixture) tune(fn func(cfg *config.Config)) {
	cfg := f.cfg.Get()
	fn(&cfg)
	f.cfg = config.NewHolder(&cfg, "")
}

// seedPost stores a record at the given depth with a chain of ancestors.
// Ancestors are in needs_revision; the record itself gets status.
func (f *fixture) seedPost(id string, depth int, status content.Status) *content.ContentRecord {
	now := time.Now().UTC()
	root, _ := content.NewRoot(id+"-r0", &content.CreateRequest{
		AuthorAgentID:    "author",
		Title:            "Run the city",
		Body:             "A night-run series.",
		PersonaContext:   map[string]string{"platform": "tiktok"},
		ContentArchetype: "challenge",
	}, now)
	if depth == 0 {
		root.ID = id
	}
	cur := root
	for i := 1; i <= depth; i++ {
		cur.Status = content.StatusNeedsRevision
		f.store.put(cur)
		childID := fmt.Sprintf("%s-r%d", id, i)
		if i == depth {
			childID = id
		}
		child, _ := cur.NewRevision(childID, cur.Title, fmt.Sprintf("body v%d", i+1), now.Add(time.Duration(i)*time.Second))
		cur = child
	}
	cur.Status = status
	f.store.put(cur)
	return cur
}
