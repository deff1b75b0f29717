package sequencing

// RequestType is the kind of navigation request a learner (or the host)
// issues. These are the states of the navigation state machine.
type RequestType string

const (
	RequestStart      RequestType = "start"
	RequestResume     RequestType = "resume"
	RequestContinue   RequestType = "continue"
	RequestPrevious   RequestType = "previous"
	RequestChoice     RequestType = "choice"
	RequestExit       RequestType = "exit"
	RequestExitAll    RequestType = "exitAll"
	RequestAbandon    RequestType = "abandon"
	RequestAbandonAll RequestType = "abandonAll"
	RequestSuspendAll RequestType = "suspendAll"
)

// Request is one navigation request against a session.
type Request struct {
	Type RequestType `json:"type"`

	// TargetActivityID is required for choice requests and ignored otherwise.
	TargetActivityID string `json:"targetActivityId,omitempty"`
}

// Valid reports whether the request type is one the engine knows.
func (r Request) Valid() bool {
	switch r.Type {
	case RequestStart, RequestResume, RequestContinue, RequestPrevious,
		RequestChoice, RequestExit, RequestExitAll, RequestAbandon,
		RequestAbandonAll, RequestSuspendAll:
		return true
	}
	return false
}
