package domain

// Decision is the activity gate's verdict for one inbound message
type Decision int

const (
	// DecisionIgnore drops the message without reply or state change
	DecisionIgnore Decision = iota
	// DecisionSleep moved the chat to the asleep state; nothing is sent
	DecisionSleep
	// DecisionSilent drops the message because the chat is asleep
	DecisionSilent
	// DecisionWake moved the chat to the awake state; send the acknowledgment only
	DecisionWake
	// DecisionRespond forwards the message to the rate limiter and the model
	DecisionRespond
)

func (d Decision) String() string {
	switch d {
	case DecisionSleep:
		return "sleep"
	case DecisionSilent:
		return "silent"
	case DecisionWake:
		return "wake"
	case DecisionRespond:
		return "respond"
	default:
		return "ignore"
	}
}

// GateInput carries everything the activity gate looks at
type GateInput struct {
	Text         string
	ChatType     ChatType
	ReplyToSelf  bool
	MentionsSelf bool
}
