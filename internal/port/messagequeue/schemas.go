package messagequeue

// StagePayload is the schema for every pipeline.* message.
// TargetID is a content record id, except for vote_comment (comment id)
// and asset/postmortem (execution id).
type StagePayload struct {
	Stage     string `json:"stage"`
	TargetID  string `json:"target_id"`
	RequestID string `json:"request_id,omitempty"`
}
