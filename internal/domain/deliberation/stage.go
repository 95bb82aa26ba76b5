package deliberation

// Stage names one asynchronous unit of pipeline work.
type Stage string

const (
	StageComment     Stage = "comment"
	StageVote        Stage = "vote"
	StageVoteComment Stage = "vote_comment"
	StageDeliberate  Stage = "deliberate"
	StageRevise      Stage = "revise"
	StageExecute     Stage = "execute"
	StageAsset       Stage = "asset"
	StagePostMortem  Stage = "postmortem"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{
	StageComment,
	StageVote,
	StageVoteComment,
	StageDeliberate,
	StageRevise,
	StageExecute,
	StageAsset,
	StagePostMortem,
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	for _, st := range Stages {
		if st == s {
			return true
		}
	}
	return false
}

// Fixed hand-offs between stages. Everything else is decided by the
// transition table's effect.
var chain = map[Stage]Stage{
	StageComment: StageVote,
	StageVote:    StageDeliberate,
}

// NextStage returns the stage that always follows s, if any.
func NextStage(s Stage) (Stage, bool) {
	n, ok := chain[s]
	return n, ok
}

// EffectStage returns the stage scheduled by an effect. EffectNotifyHuman and
// EffectNone schedule nothing.
func EffectStage(e Effect) (Stage, bool) {
	switch e {
	case EffectScheduleComment:
		return StageComment, true
	case EffectScheduleExecution:
		return StageExecute, true
	case EffectScheduleRevision:
		return StageRevise, true
	default:
		return "", false
	}
}
