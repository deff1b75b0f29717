package sequencing

// ErrorKind names a navigation failure. Failures never mutate the session;
// the engine validates before it applies a transition.
type ErrorKind string

const (
	ErrInvalidRequest        ErrorKind = "InvalidRequest"
	ErrNoCurrentActivity     ErrorKind = "NoCurrentActivity"
	ErrNoDeliverableActivity ErrorKind = "NoDeliverableActivity"
	ErrNoPreviousActivity    ErrorKind = "NoPreviousActivity"
	ErrChoiceNotAllowed      ErrorKind = "ChoiceNotAllowed"
	ErrActivityNotFound      ErrorKind = "ActivityNotFound"
	ErrSessionEnded          ErrorKind = "SessionEnded"
)

// InstructionType says whether the host should deliver content or tear the
// session down.
type InstructionType string

const (
	InstructionDelivery    InstructionType = "delivery"
	InstructionTermination InstructionType = "termination"
)

// Instruction tells the host what to do after a successful transition.
type Instruction struct {
	Type InstructionType `json:"type"`

	// Delivery fields.
	ActivityID string `json:"activityId,omitempty"`
	Href       string `json:"href,omitempty"`
	// Mode is the request kind that produced the delivery (start, resume,
	// continue, previous, choice).
	Mode string `json:"mode,omitempty"`

	// Termination reason (exit, exitAll, abandon, abandonAll, suspendAll,
	// or "no more activities" when forward flow is exhausted).
	Reason string `json:"reason,omitempty"`
}

// AvailableNavigation reports which navigation requests would currently
// succeed, derived by actually evaluating the sequencing rules rather than
// by presence checks.
type AvailableNavigation struct {
	Continue bool     `json:"continue"`
	Previous bool     `json:"previous"`
	Choice   []string `json:"choice"`
	Resume   bool     `json:"resume"`
	Exit     bool     `json:"exit"`
}

// Response is the uniform result of every navigation call.
type Response struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`

	CurrentActivity  string `json:"currentActivity,omitempty"`
	NextActivity     string `json:"nextActivity,omitempty"`
	PreviousActivity string `json:"previousActivity,omitempty"`

	Instruction *Instruction        `json:"instruction,omitempty"`
	Available   AvailableNavigation `json:"availableNavigation"`

	ErrorKind ErrorKind `json:"errorKind,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func failure(sessionID string, kind ErrorKind, msg string) Response {
	return Response{
		SessionID: sessionID,
		ErrorKind: kind,
		Error:     msg,
	}
}
