package broadcast

// Scoped is implemented by payloads that belong to one revision tree.
// Subscribers filtering on a root id only receive matching events.
type Scoped interface {
	Root() string
}

// PitchEvent accompanies pitch.created and pitch.revised.
type PitchEvent struct {
	PostID         string `json:"post_id"`
	RootID         string `json:"root_id"`
	ParentID       string `json:"parent_id,omitempty"`
	Title          string `json:"title"`
	Status         string `json:"status"`
	RevisionNumber int    `json:"revision_number"`
}

func (e PitchEvent) Root() string { return e.RootID }

// TransitionEvent accompanies pitch.transition.
type TransitionEvent struct {
	PostID string `json:"post_id"`
	RootID string `json:"root_id"`
	From   string `json:"from"`
	To     string `json:"to"`
	Event  string `json:"event"`
}

func (e TransitionEvent) Root() string { return e.RootID }

// TallyEvent accompanies votes.tallied.
type TallyEvent struct {
	VotableType string `json:"votable_type"`
	VotableID   string `json:"votable_id"`
	RootID      string `json:"root_id,omitempty"`
	Votes       int    `json:"votes"`
	NetScore    int    `json:"net_score"`
}

func (e TallyEvent) Root() string { return e.RootID }

// CommentsEvent accompanies comments.added.
type CommentsEvent struct {
	PostID    string `json:"post_id"`
	RootID    string `json:"root_id"`
	Strategy  int    `json:"strategy"`
	Critiques int    `json:"critiques"`
}

func (e CommentsEvent) Root() string { return e.RootID }

// ExecutionEvent accompanies execution.created and execution.asset_stored.
type ExecutionEvent struct {
	ExecutionID string `json:"execution_id"`
	PostID      string `json:"post_id"`
	RootID      string `json:"root_id,omitempty"`
	AssetKey    string `json:"asset_key,omitempty"`
}

func (e ExecutionEvent) Root() string { return e.RootID }

// PatternsEvent accompanies patterns.learned. It is global.
type PatternsEvent struct {
	ExecutionID string `json:"execution_id"`
	Count       int    `json:"count"`
}
