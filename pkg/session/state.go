package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/scormlab/sequencer/pkg/activity"
)

// ActivityState is the per-learner mutable mirror of one activity node.
// The state tree always has exactly the same shape as the activity tree.
type ActivityState struct {
	ActivityID string `json:"activityId"`

	Active    bool `json:"active"`
	Suspended bool `json:"suspended"`

	Completed                   bool `json:"completed"`
	ProgressDetermined          bool `json:"progressDetermined"`
	ObjectiveProgressDetermined bool `json:"objectiveProgressDetermined"`
	ObjectiveSatisfied          bool `json:"objectiveSatisfied"`

	ObjectiveMeasureKnown bool    `json:"objectiveMeasureKnown"`
	ObjectiveMeasure      float64 `json:"objectiveMeasure"`

	AttemptCount            int           `json:"attemptCount"`
	AttemptElapsedDuration  time.Duration `json:"attemptElapsedDuration"`
	ActivityElapsedDuration time.Duration `json:"activityElapsedDuration"`

	SuspendData string `json:"suspendData,omitempty"`

	Children []*ActivityState `json:"children,omitempty"`
}

// Reset returns every mutable field to its initial value, attempt count
// included. Used by abandonAll.
func (s *ActivityState) Reset() {
	s.Active = false
	s.Suspended = false
	s.Completed = false
	s.ProgressDetermined = false
	s.ObjectiveProgressDetermined = false
	s.ObjectiveSatisfied = false
	s.ObjectiveMeasureKnown = false
	s.ObjectiveMeasure = 0
	s.AttemptCount = 0
	s.AttemptElapsedDuration = 0
	s.ActivityElapsedDuration = 0
	s.SuspendData = ""
}

// DiscardAttempt drops the in-progress flags of the current attempt without
// touching the attempt count, so an abandoned attempt earns no rollup credit.
func (s *ActivityState) DiscardAttempt() {
	s.Active = false
	s.Suspended = false
	s.Completed = false
	s.ProgressDetermined = false
	s.ObjectiveProgressDetermined = false
	s.ObjectiveSatisfied = false
	s.ObjectiveMeasureKnown = false
	s.ObjectiveMeasure = 0
}

// FlowDirection is the direction of the current flow subprocess.
type FlowDirection string

const (
	FlowForward  FlowDirection = "forward"
	FlowBackward FlowDirection = "backward"
)

// ControlFlow mirrors the sequencing control state the engine threads
// through a navigation call.
type ControlFlow struct {
	FlowDirection    FlowDirection `json:"flowDirection"`
	FlowSubProcess   string        `json:"flowSubProcess"`
	ConsiderChildren bool          `json:"considerChildren"`
	ConsiderChoice   bool          `json:"considerChoice"`
	ChoiceExit       bool          `json:"choiceExit"`
	EndSession       bool          `json:"endSession"`
}

// GlobalState carries session-wide information that is not tied to a single
// activity.
type GlobalState struct {
	LearnerPreferences map[string]string   `json:"learnerPreferences,omitempty"`
	AvailableChildren  map[string][]string `json:"availableChildren,omitempty"`
}

// Session is the per-learner sequencing state for one course attempt. It is
// created at launch, mutated exclusively by the navigation engine, and
// persisted by the session store. The activity tree itself is not part of
// the serialized state; hosts re-attach it after loading.
type Session struct {
	ID        string `json:"id"`
	LearnerID string `json:"learnerId"`
	CourseID  string `json:"courseId"`

	CurrentActivity   string `json:"currentActivity,omitempty"`
	SuspendedActivity string `json:"suspendedActivity,omitempty"`

	Root        *ActivityState `json:"activityState"`
	Global      GlobalState    `json:"globalState"`
	ControlFlow ControlFlow    `json:"controlFlow"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	tree  *activity.Tree
	index map[string]*ActivityState
}

// New creates a session for one learner course-attempt, deep-mirroring the
// activity tree into a zero-valued state tree.
func New(learnerID, courseID string, tree *activity.Tree) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:        uuid.NewString(),
		LearnerID: learnerID,
		CourseID:  courseID,
		Root:      mirror(tree.Root),
		Global: GlobalState{
			LearnerPreferences: make(map[string]string),
			AvailableChildren:  make(map[string][]string),
		},
		ControlFlow: ControlFlow{
			FlowDirection:    FlowForward,
			FlowSubProcess:   "start",
			ConsiderChildren: true,
		},
		CreatedAt: now,
		UpdatedAt: now,
		tree:      tree,
	}
	return s
}

// mirror builds the state tree for one activity subtree. Recursion depth is
// bounded by the manifest nesting the parser accepted.
func mirror(node *activity.Node) *ActivityState {
	st := &ActivityState{ActivityID: node.ID}
	for _, child := range node.Children {
		st.Children = append(st.Children, mirror(child))
	}
	return st
}

// AttachTree re-links the immutable activity tree after a session is loaded
// from a store. Navigation calls fail without it.
func (s *Session) AttachTree(tree *activity.Tree) {
	s.tree = tree
}

// Tree returns the attached activity tree, or nil.
func (s *Session) Tree() *activity.Tree {
	return s.tree
}

// State resolves the activity state for an id anywhere in the state tree.
// The index is rebuilt lazily so sessions survive JSON round-trips.
func (s *Session) State(id string) *ActivityState {
	if s.index == nil {
		s.buildIndex()
	}
	return s.index[id]
}

// ForEachState visits every state node, parents before children.
func (s *Session) ForEachState(fn func(*ActivityState)) {
	if s.Root == nil {
		return
	}
	stack := []*ActivityState{s.Root}
	for len(stack) > 0 {
		st := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(st)
		for i := len(st.Children) - 1; i >= 0; i-- {
			stack = append(stack, st.Children[i])
		}
	}
}

// Touch bumps the modification timestamp.
func (s *Session) Touch() {
	s.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy of the serializable session state. The copy
// shares the immutable activity tree with the original. Used to hand a
// stable snapshot to asynchronous persistence.
func (s *Session) Clone() *Session {
	out := &Session{
		ID:                s.ID,
		LearnerID:         s.LearnerID,
		CourseID:          s.CourseID,
		CurrentActivity:   s.CurrentActivity,
		SuspendedActivity: s.SuspendedActivity,
		Root:              cloneState(s.Root),
		ControlFlow:       s.ControlFlow,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
		tree:              s.tree,
	}
	out.Global = GlobalState{
		LearnerPreferences: make(map[string]string, len(s.Global.LearnerPreferences)),
		AvailableChildren:  make(map[string][]string, len(s.Global.AvailableChildren)),
	}
	for k, v := range s.Global.LearnerPreferences {
		out.Global.LearnerPreferences[k] = v
	}
	for k, v := range s.Global.AvailableChildren {
		out.Global.AvailableChildren[k] = append([]string(nil), v...)
	}
	return out
}

func cloneState(st *ActivityState) *ActivityState {
	if st == nil {
		return nil
	}
	copied := *st
	copied.Children = nil
	for _, child := range st.Children {
		copied.Children = append(copied.Children, cloneState(child))
	}
	return &copied
}

func (s *Session) buildIndex() {
	s.index = make(map[string]*ActivityState)
	s.ForEachState(func(st *ActivityState) {
		s.index[st.ActivityID] = st
	})
}
