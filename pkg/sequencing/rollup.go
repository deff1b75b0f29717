package sequencing

import (
	"github.com/scormlab/sequencer/pkg/activity"
	"github.com/scormlab/sequencer/pkg/session"
)

// rollupFrom propagates status changes from the activity with the given id
// up through its ancestors. Each cluster is recomputed only from its direct
// children, bottom-up, so a grandchild change reaches the root through the
// intermediate cluster's own rollup.
func rollupFrom(sess *session.Session, tree *activity.Tree, activityID string) {
	parent := tree.Parent(activityID)
	for parent != nil {
		rollupCluster(sess, tree, parent)
		parent = tree.Parent(parent.ID)
	}
}

// rollupCluster recomputes one cluster's status from its direct children.
// Declared rollup rules run first; measure and default completion/satisfaction
// rollup fill in whatever the rules left undetermined.
func rollupCluster(sess *session.Session, tree *activity.Tree, cluster *activity.Node) {
	state := sess.State(cluster.ID)
	if state == nil || len(cluster.Children) == 0 {
		return
	}

	children := trackedChildren(sess, cluster)
	if len(children) == 0 {
		return
	}

	rollupMeasure(state, children)

	ruledSatisfaction := false
	ruledCompletion := false
	for _, rule := range cluster.RollupRules {
		if !rollupRuleMatches(sess, tree, cluster, rule) {
			continue
		}
		switch rule.Action {
		case activity.RollupSatisfied:
			state.ObjectiveSatisfied = true
			state.ObjectiveProgressDetermined = true
			ruledSatisfaction = true
		case activity.RollupNotSatisfied:
			state.ObjectiveSatisfied = false
			state.ObjectiveProgressDetermined = true
			ruledSatisfaction = true
		case activity.RollupCompleted:
			state.Completed = true
			state.ProgressDetermined = true
			ruledCompletion = true
		case activity.RollupIncomplete:
			state.Completed = false
			state.ProgressDetermined = true
			ruledCompletion = true
		}
	}

	if !ruledCompletion {
		defaultCompletionRollup(state, children)
	}
	if !ruledSatisfaction {
		defaultSatisfactionRollup(state, children)
	}
}

// rollupRuleMatches applies the rule's child-activity-set policy: every
// contributing child is tested against the rule conditions and the counts
// are compared per the policy.
func rollupRuleMatches(sess *session.Session, tree *activity.Tree, cluster *activity.Node, rule activity.RollupRule) bool {
	matched := 0
	total := 0
	for _, child := range cluster.Children {
		if !child.DeliveryControls.Tracked {
			continue
		}
		childState := sess.State(child.ID)
		if childState == nil {
			continue
		}
		total++
		if ruleMatches(rule.Combination, rule.Conditions, child, childState) {
			matched++
		}
	}
	if total == 0 {
		return false
	}

	switch rule.ChildActivitySet {
	case activity.ChildSetAll:
		return matched == total
	case activity.ChildSetAny:
		return matched > 0
	case activity.ChildSetNone:
		return matched == 0
	case activity.ChildSetAtLeastCount:
		return matched >= rule.MinimumCount
	case activity.ChildSetAtLeastPercent:
		return float64(matched)/float64(total) >= rule.MinimumPercent
	}
	return false
}

func trackedChildren(sess *session.Session, cluster *activity.Node) []*session.ActivityState {
	var out []*session.ActivityState
	for _, child := range cluster.Children {
		if !child.DeliveryControls.Tracked {
			continue
		}
		if st := sess.State(child.ID); st != nil {
			out = append(out, st)
		}
	}
	return out
}

// defaultCompletionRollup is the SCORM default when no completion rollup
// rule fired: the cluster is complete when every tracked child is complete,
// and progress is determined once every child's progress is determined.
func defaultCompletionRollup(state *session.ActivityState, children []*session.ActivityState) {
	allDetermined := true
	allCompleted := true
	for _, c := range children {
		if !c.ProgressDetermined {
			allDetermined = false
		}
		if !c.Completed {
			allCompleted = false
		}
	}
	if allDetermined {
		state.ProgressDetermined = true
		state.Completed = allCompleted
	}
}

func defaultSatisfactionRollup(state *session.ActivityState, children []*session.ActivityState) {
	allDetermined := true
	allSatisfied := true
	for _, c := range children {
		if !c.ObjectiveProgressDetermined {
			allDetermined = false
		}
		if !c.ObjectiveSatisfied {
			allSatisfied = false
		}
	}
	if allDetermined {
		state.ObjectiveProgressDetermined = true
		state.ObjectiveSatisfied = allSatisfied
	}
}

// rollupMeasure averages the known child measures onto the cluster.
func rollupMeasure(state *session.ActivityState, children []*session.ActivityState) {
	sum := 0.0
	known := 0
	for _, c := range children {
		if c.ObjectiveMeasureKnown {
			sum += c.ObjectiveMeasure
			known++
		}
	}
	if known > 0 {
		state.ObjectiveMeasureKnown = true
		state.ObjectiveMeasure = sum / float64(known)
	}
}
