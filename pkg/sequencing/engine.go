package sequencing

import (
	"fmt"
	"log/slog"

	"github.com/scormlab/sequencer/internal/logging"
	"github.com/scormlab/sequencer/pkg/activity"
	"github.com/scormlab/sequencer/pkg/session"
)

// Engine is the SCORM 2004 navigation state machine. Each Process call is a
// function of (session, tree, request): it validates first, mutates the
// session only on success, and reports the outcome in a uniform Response.
// It never panics across its boundary and performs no I/O.
//
// The engine assumes exclusive access to the session for the duration of a
// call; serializing concurrent calls per session id is the caller's job
// (see session.Manager). Different sessions are fully independent.
type Engine struct {
	logger *slog.Logger
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger attaches a logger for transition-level debug events.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates a navigation engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process applies one navigation request to the session.
func (e *Engine) Process(sess *session.Session, req Request) Response {
	tree := sess.Tree()
	if tree == nil {
		return failure(sess.ID, ErrInvalidRequest, session.ErrNoTree.Error())
	}
	if !req.Valid() {
		return failure(sess.ID, ErrInvalidRequest, fmt.Sprintf("unknown navigation request type %q", req.Type))
	}

	e.logger.Debug("navigation request",
		"session_id", sess.ID,
		"type", req.Type,
		"target", req.TargetActivityID,
		"current", sess.CurrentActivity,
	)

	var resp Response
	switch req.Type {
	case RequestStart:
		resp = e.start(sess, tree)
	case RequestResume:
		resp = e.resume(sess, tree)
	case RequestContinue:
		resp = e.flowContinue(sess, tree)
	case RequestPrevious:
		resp = e.flowPrevious(sess, tree)
	case RequestChoice:
		resp = e.choice(sess, tree, req.TargetActivityID)
	case RequestExit:
		resp = e.exit(sess, tree)
	case RequestExitAll:
		resp = e.exitAll(sess, tree)
	case RequestAbandon:
		resp = e.abandon(sess, tree)
	case RequestAbandonAll:
		resp = e.abandonAll(sess)
	case RequestSuspendAll:
		resp = e.suspendAll(sess, tree)
	}

	if resp.Success {
		sess.Touch()
	} else {
		e.logger.Debug("navigation rejected",
			"session_id", sess.ID,
			"type", req.Type,
			"error_kind", resp.ErrorKind,
		)
	}
	if resp.Success && resp.Instruction != nil && resp.Instruction.Type == InstructionDelivery {
		// Look one step ahead so hosts can preload what continue would give.
		if cur := tree.FindByID(resp.CurrentActivity); cur != nil {
			if next, stopped := flowForward(sess, tree, cur); next != nil && !stopped {
				resp.NextActivity = next.ID
			}
		}
	}
	resp.Available = e.Availability(sess)
	return resp
}

// Availability derives which navigation requests would currently succeed by
// evaluating the sequencing rules, not by presence checks.
func (e *Engine) Availability(sess *session.Session) AvailableNavigation {
	tree := sess.Tree()
	if tree == nil {
		return AvailableNavigation{}
	}
	av := AvailableNavigation{
		Resume: sess.SuspendedActivity != "",
	}
	if sess.ControlFlow.EndSession {
		return av
	}
	av.Choice = choosableActivities(sess, tree)
	if sess.CurrentActivity == "" {
		return av
	}
	av.Exit = true
	current := tree.FindByID(sess.CurrentActivity)
	if current == nil {
		return av
	}
	if next, stopped := flowForward(sess, tree, current); next != nil && !stopped {
		av.Continue = true
	}
	if !forwardOnlyBlocked(tree, current) && flowBackward(sess, tree, current) != nil {
		av.Previous = true
	}
	return av
}

// --- Transitions ---

func (e *Engine) start(sess *session.Session, tree *activity.Tree) Response {
	target := firstDeliverable(sess, tree)
	if target == nil {
		return failure(sess.ID, ErrNoDeliverableActivity, "No deliverable activity found in course")
	}
	prev := sess.CurrentActivity
	if prev != "" {
		e.finalizeAttempt(sess, tree, tree.FindByID(prev))
	}
	e.deliver(sess, target)
	return Response{
		Success:          true,
		SessionID:        sess.ID,
		CurrentActivity:  target.ID,
		PreviousActivity: prev,
		Instruction:      deliveryInstruction(target, "start"),
	}
}

func (e *Engine) resume(sess *session.Session, tree *activity.Tree) Response {
	if sess.SuspendedActivity == "" {
		return e.start(sess, tree)
	}
	target := tree.FindByID(sess.SuspendedActivity)
	if target == nil {
		return failure(sess.ID, ErrActivityNotFound,
			fmt.Sprintf("Suspended activity %q not found in course", sess.SuspendedActivity))
	}
	state := sess.State(target.ID)
	state.Suspended = false
	state.Active = true
	sess.CurrentActivity = target.ID
	sess.SuspendedActivity = ""
	sess.ControlFlow.EndSession = false
	return Response{
		Success:         true,
		SessionID:       sess.ID,
		CurrentActivity: target.ID,
		Instruction:     deliveryInstruction(target, "resume"),
	}
}

func (e *Engine) flowContinue(sess *session.Session, tree *activity.Tree) Response {
	if sess.ControlFlow.EndSession {
		return failure(sess.ID, ErrSessionEnded, "Session has ended")
	}
	if sess.CurrentActivity == "" {
		return failure(sess.ID, ErrNoCurrentActivity, "No current activity to continue from")
	}
	current := tree.FindByID(sess.CurrentActivity)
	if current == nil {
		return failure(sess.ID, ErrActivityNotFound,
			fmt.Sprintf("Current activity %q not found in course", sess.CurrentActivity))
	}

	next, stopped := flowForward(sess, tree, current)
	if stopped {
		return failure(sess.ID, ErrNoDeliverableActivity, "Forward traversal stopped by sequencing rule")
	}

	closed := e.finalizeAttempt(sess, tree, current)
	if sess.ControlFlow.EndSession {
		// An exitAll exit rule fired on termination.
		sess.CurrentActivity = ""
		return Response{
			Success:          true,
			SessionID:        sess.ID,
			PreviousActivity: current.ID,
			Instruction:      terminationInstruction("exitAll"),
		}
	}
	next = flowPastClosedScopes(sess, tree, next, closed)
	if next == nil {
		// Flow exhausted: a terminal outcome, not an error.
		sess.CurrentActivity = ""
		sess.ControlFlow.EndSession = true
		return Response{
			Success:          true,
			SessionID:        sess.ID,
			PreviousActivity: current.ID,
			Instruction:      terminationInstruction("no more activities"),
		}
	}

	e.deliver(sess, next)
	return Response{
		Success:          true,
		SessionID:        sess.ID,
		CurrentActivity:  next.ID,
		PreviousActivity: current.ID,
		Instruction:      deliveryInstruction(next, "continue"),
	}
}

func (e *Engine) flowPrevious(sess *session.Session, tree *activity.Tree) Response {
	if sess.ControlFlow.EndSession {
		return failure(sess.ID, ErrSessionEnded, "Session has ended")
	}
	if sess.CurrentActivity == "" {
		return failure(sess.ID, ErrNoCurrentActivity, "No current activity to move back from")
	}
	current := tree.FindByID(sess.CurrentActivity)
	if current == nil {
		return failure(sess.ID, ErrActivityNotFound,
			fmt.Sprintf("Current activity %q not found in course", sess.CurrentActivity))
	}
	if forwardOnlyBlocked(tree, current) {
		return failure(sess.ID, ErrNoPreviousActivity, "Backward navigation not allowed in a forward-only cluster")
	}
	prev := flowBackward(sess, tree, current)
	if prev == nil {
		return failure(sess.ID, ErrNoPreviousActivity, "No previous activity available")
	}

	e.finalizeAttempt(sess, tree, current)
	if sess.ControlFlow.EndSession {
		sess.CurrentActivity = ""
		return Response{
			Success:          true,
			SessionID:        sess.ID,
			PreviousActivity: current.ID,
			Instruction:      terminationInstruction("exitAll"),
		}
	}
	e.deliver(sess, prev)
	return Response{
		Success:          true,
		SessionID:        sess.ID,
		CurrentActivity:  prev.ID,
		PreviousActivity: current.ID,
		Instruction:      deliveryInstruction(prev, "previous"),
	}
}

func (e *Engine) choice(sess *session.Session, tree *activity.Tree, targetID string) Response {
	if sess.ControlFlow.EndSession {
		return failure(sess.ID, ErrSessionEnded, "Session has ended")
	}
	if targetID == "" {
		return failure(sess.ID, ErrInvalidRequest, "Choice navigation requires a target activity id")
	}
	target := tree.FindByID(targetID)
	if target == nil {
		return failure(sess.ID, ErrActivityNotFound, fmt.Sprintf("Activity %q not found", targetID))
	}
	if !target.ControlMode.Choice {
		return failure(sess.ID, ErrChoiceNotAllowed, "Choice navigation not allowed for target activity")
	}
	preOut := evaluatePreRules(target, sess.State(target.ID))
	if !preOut.choosable() {
		return failure(sess.ID, ErrChoiceNotAllowed, "Choice navigation not allowed for target activity")
	}
	if preOut.exitParent {
		// The target would close its own cluster instead of delivering.
		return failure(sess.ID, ErrNoDeliverableActivity,
			fmt.Sprintf("Sequencing rules prevent delivery of activity %q", targetID))
	}

	// A cluster target delivers its first deliverable leaf.
	deliverTarget := target
	if !target.IsLeaf() {
		deliverTarget = nil
		for _, leaf := range tree.Leaves() {
			if !insideSubtree(tree, leaf, target) {
				continue
			}
			out := evaluatePreRules(leaf, sess.State(leaf.ID))
			if out.exitParent || !out.deliverable() {
				continue
			}
			deliverTarget = leaf
			break
		}
		if deliverTarget == nil {
			return failure(sess.ID, ErrNoDeliverableActivity,
				fmt.Sprintf("Activity %q has no deliverable content", targetID))
		}
	}

	prev := sess.CurrentActivity
	if prev != "" {
		e.finalizeAttempt(sess, tree, tree.FindByID(prev))
		if sess.ControlFlow.EndSession {
			sess.CurrentActivity = ""
			return Response{
				Success:          true,
				SessionID:        sess.ID,
				PreviousActivity: prev,
				Instruction:      terminationInstruction("exitAll"),
			}
		}
	}
	e.deliver(sess, deliverTarget)
	return Response{
		Success:          true,
		SessionID:        sess.ID,
		CurrentActivity:  deliverTarget.ID,
		PreviousActivity: prev,
		Instruction:      deliveryInstruction(deliverTarget, "choice"),
	}
}

func (e *Engine) exit(sess *session.Session, tree *activity.Tree) Response {
	if sess.CurrentActivity == "" {
		return failure(sess.ID, ErrNoCurrentActivity, "No current activity to exit")
	}
	current := tree.FindByID(sess.CurrentActivity)

	// Post-condition rules can override a plain exit.
	if current != nil {
		switch postAction(current, sess.State(current.ID)) {
		case activity.ActionRetry:
			e.finalizeAttempt(sess, tree, current)
			if sess.ControlFlow.EndSession {
				sess.CurrentActivity = ""
				return Response{
					Success:          true,
					SessionID:        sess.ID,
					PreviousActivity: current.ID,
					Instruction:      terminationInstruction("exitAll"),
				}
			}
			e.deliver(sess, current)
			return Response{
				Success:         true,
				SessionID:       sess.ID,
				CurrentActivity: current.ID,
				Instruction:     deliveryInstruction(current, "retry"),
			}
		case activity.ActionContinue:
			return e.flowContinue(sess, tree)
		case activity.ActionExitAll:
			return e.exitAll(sess, tree)
		}
	}

	e.finalizeAttempt(sess, tree, current)
	sess.CurrentActivity = ""
	sess.ControlFlow.EndSession = true
	return Response{
		Success:          true,
		SessionID:        sess.ID,
		PreviousActivity: currentID(current),
		Instruction:      terminationInstruction("exit"),
	}
}

func (e *Engine) exitAll(sess *session.Session, tree *activity.Tree) Response {
	prev := sess.CurrentActivity
	if prev != "" {
		e.finalizeAttempt(sess, tree, tree.FindByID(prev))
	}
	sess.ForEachState(func(st *session.ActivityState) {
		st.Active = false
	})
	sess.CurrentActivity = ""
	sess.ControlFlow.EndSession = true
	return Response{
		Success:          true,
		SessionID:        sess.ID,
		PreviousActivity: prev,
		Instruction:      terminationInstruction("exitAll"),
	}
}

func (e *Engine) abandon(sess *session.Session, tree *activity.Tree) Response {
	if sess.CurrentActivity == "" {
		return failure(sess.ID, ErrNoCurrentActivity, "No current activity to abandon")
	}
	state := sess.State(sess.CurrentActivity)
	prev := sess.CurrentActivity
	// Abandoned attempts earn no rollup credit.
	state.DiscardAttempt()
	sess.CurrentActivity = ""
	return Response{
		Success:          true,
		SessionID:        sess.ID,
		PreviousActivity: prev,
		Instruction:      terminationInstruction("abandon"),
	}
}

func (e *Engine) abandonAll(sess *session.Session) Response {
	sess.ForEachState(func(st *session.ActivityState) {
		st.Reset()
	})
	sess.CurrentActivity = ""
	sess.SuspendedActivity = ""
	sess.ControlFlow.EndSession = true
	return Response{
		Success:     true,
		SessionID:   sess.ID,
		Instruction: terminationInstruction("abandonAll"),
	}
}

func (e *Engine) suspendAll(sess *session.Session, tree *activity.Tree) Response {
	if sess.CurrentActivity == "" {
		return failure(sess.ID, ErrNoCurrentActivity, "No current activity to suspend")
	}
	state := sess.State(sess.CurrentActivity)
	state.Suspended = true
	state.Active = false
	sess.SuspendedActivity = sess.CurrentActivity
	prev := sess.CurrentActivity
	sess.CurrentActivity = ""
	sess.ControlFlow.EndSession = true
	return Response{
		Success:          true,
		SessionID:        sess.ID,
		PreviousActivity: prev,
		Instruction:      terminationInstruction("suspendAll"),
	}
}

// --- Helpers ---

// deliver activates the target leaf and opens a new attempt. Attempt counts
// move only here: on (re)entry, never on inspection. A matched retry
// pre-rule discards the recorded progress first, so the new attempt starts
// clean instead of inheriting the old result.
func (e *Engine) deliver(sess *session.Session, node *activity.Node) {
	state := sess.State(node.ID)
	if evaluatePreRules(node, state).retry {
		state.DiscardAttempt()
	}
	state.Active = true
	state.Suspended = false
	state.AttemptCount++
	sess.CurrentActivity = node.ID
	sess.ControlFlow.EndSession = false
	e.logger.Debug("activity delivered",
		"session_id", sess.ID,
		"activity", node.ID,
		"attempt", state.AttemptCount,
	)
}

// finalizeAttempt closes the attempt on a departing activity. When the
// content did not report status itself (per deliveryControls), the engine
// credits completion/satisfaction, rolls the result up to ancestors, then
// applies the ancestors' exit-condition rules. Returns the clusters an exit
// rule closed, so flow can route around them.
func (e *Engine) finalizeAttempt(sess *session.Session, tree *activity.Tree, node *activity.Node) []*activity.Node {
	if node == nil {
		return nil
	}
	state := sess.State(node.ID)
	if state == nil {
		return nil
	}
	state.Active = false
	if !node.DeliveryControls.Tracked {
		return nil
	}
	if !node.DeliveryControls.CompletionSetByContent && !state.ProgressDetermined {
		state.Completed = true
		state.ProgressDetermined = true
	}
	if !node.DeliveryControls.ObjectiveSetByContent && !state.ObjectiveProgressDetermined {
		state.ObjectiveSatisfied = true
		state.ObjectiveProgressDetermined = true
	}
	rollupFrom(sess, tree, node.ID)
	return e.applyExitRules(sess, tree, node)
}

// applyExitRules evaluates the exit-condition rules of the terminated
// activity's ancestors, innermost first. exit closes the declaring cluster,
// retry discards the cluster's recorded progress so re-entry starts a fresh
// attempt, exitAll ends the whole session.
func (e *Engine) applyExitRules(sess *session.Session, tree *activity.Tree, node *activity.Node) (closed []*activity.Node) {
	for parent := tree.Parent(node.ID); parent != nil; parent = tree.Parent(parent.ID) {
		action := exitAction(parent, sess.State(parent.ID))
		if action == "" {
			continue
		}
		e.logger.Debug("exit rule fired",
			"session_id", sess.ID,
			"activity", parent.ID,
			"action", action,
		)
		switch action {
		case activity.ActionExit:
			forEachStateIn(sess, tree, parent, func(st *session.ActivityState) {
				st.Active = false
			})
			closed = append(closed, parent)
		case activity.ActionRetry, activity.ActionRetryAll:
			forEachStateIn(sess, tree, parent, func(st *session.ActivityState) {
				st.DiscardAttempt()
			})
		case activity.ActionExitAll:
			sess.ForEachState(func(st *session.ActivityState) {
				st.Active = false
			})
			sess.ControlFlow.EndSession = true
			return closed
		}
	}
	return closed
}

// forEachStateIn visits the states of the activities inside scope's subtree.
func forEachStateIn(sess *session.Session, tree *activity.Tree, scope *activity.Node, fn func(*session.ActivityState)) {
	sess.ForEachState(func(st *session.ActivityState) {
		node := tree.FindByID(st.ActivityID)
		if node != nil && insideSubtree(tree, node, scope) {
			fn(st)
		}
	})
}

func deliveryInstruction(node *activity.Node, mode string) *Instruction {
	return &Instruction{
		Type:       InstructionDelivery,
		ActivityID: node.ID,
		Href:       node.Href,
		Mode:       mode,
	}
}

func terminationInstruction(reason string) *Instruction {
	return &Instruction{
		Type:   InstructionTermination,
		Reason: reason,
	}
}

func currentID(node *activity.Node) string {
	if node == nil {
		return ""
	}
	return node.ID
}

func insideSubtree(tree *activity.Tree, node, root *activity.Node) bool {
	for n := node; n != nil; n = tree.Parent(n.ID) {
		if n.ID == root.ID {
			return true
		}
	}
	return false
}
