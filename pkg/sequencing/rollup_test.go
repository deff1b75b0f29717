package sequencing

import (
	"testing"

	"github.com/scormlab/sequencer/pkg/activity"
	"github.com/scormlab/sequencer/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rollupTree builds root -> module -> (a, b, c) with default sequencing.
func rollupTree(moduleRules []activity.RollupRule) (*activity.Tree, *session.Session) {
	leaf := func(id, parent string) *activity.Node {
		return &activity.Node{
			ID:               id,
			Kind:             activity.KindLeaf,
			ParentID:         parent,
			ControlMode:      activity.DefaultControlMode(),
			DeliveryControls: activity.DefaultDeliveryControls(),
		}
	}
	module := &activity.Node{
		ID:               "module",
		Kind:             activity.KindCluster,
		ParentID:         "root",
		ControlMode:      activity.DefaultControlMode(),
		DeliveryControls: activity.DefaultDeliveryControls(),
		RollupRules:      moduleRules,
		Children: []*activity.Node{
			leaf("a", "module"),
			leaf("b", "module"),
			leaf("c", "module"),
		},
	}
	root := &activity.Node{
		ID:               "root",
		Kind:             activity.KindCluster,
		ControlMode:      activity.DefaultControlMode(),
		DeliveryControls: activity.DefaultDeliveryControls(),
		Children:         []*activity.Node{module},
	}
	tree := activity.NewTree("course", "Course", root)
	sess := session.New("learner", "course", tree)
	return tree, sess
}

func complete(sess *session.Session, id string) {
	st := sess.State(id)
	st.Completed = true
	st.ProgressDetermined = true
	st.ObjectiveSatisfied = true
	st.ObjectiveProgressDetermined = true
}

func TestRollup_DefaultAllChildrenComplete(t *testing.T) {
	tree, sess := rollupTree(nil)

	complete(sess, "a")
	complete(sess, "b")
	rollupFrom(sess, tree, "a")

	module := sess.State("module")
	assert.False(t, module.ProgressDetermined, "one child still undetermined")

	complete(sess, "c")
	rollupFrom(sess, tree, "c")

	assert.True(t, module.ProgressDetermined)
	assert.True(t, module.Completed)
	assert.True(t, module.ObjectiveSatisfied)

	root := sess.State("root")
	assert.True(t, root.Completed, "rollup reaches the root through the module")
}

func TestRollup_DefaultIncompleteChild(t *testing.T) {
	tree, sess := rollupTree(nil)

	complete(sess, "a")
	complete(sess, "b")
	st := sess.State("c")
	st.ProgressDetermined = true // determined but not completed
	st.ObjectiveProgressDetermined = true
	rollupFrom(sess, tree, "c")

	module := sess.State("module")
	assert.True(t, module.ProgressDetermined)
	assert.False(t, module.Completed)
	assert.False(t, module.ObjectiveSatisfied)
}

func TestRollup_AtLeastCountRule(t *testing.T) {
	tree, sess := rollupTree([]activity.RollupRule{{
		ChildActivitySet: activity.ChildSetAtLeastCount,
		MinimumCount:     2,
		Combination:      activity.CombinationAll,
		Conditions:       []activity.RuleCondition{{Type: activity.CondCompleted}},
		Action:           activity.RollupCompleted,
	}})

	complete(sess, "a")
	rollupFrom(sess, tree, "a")
	assert.False(t, sess.State("module").Completed, "only one of two required")

	complete(sess, "b")
	rollupFrom(sess, tree, "b")
	assert.True(t, sess.State("module").Completed)
	assert.True(t, sess.State("module").ProgressDetermined)
}

func TestRollup_AtLeastPercentRule(t *testing.T) {
	tree, sess := rollupTree([]activity.RollupRule{{
		ChildActivitySet: activity.ChildSetAtLeastPercent,
		MinimumPercent:   0.6,
		Combination:      activity.CombinationAll,
		Conditions:       []activity.RuleCondition{{Type: activity.CondSatisfied}},
		Action:           activity.RollupSatisfied,
	}})

	complete(sess, "a")
	rollupFrom(sess, tree, "a")
	assert.False(t, sess.State("module").ObjectiveSatisfied, "1/3 is below 60%")

	complete(sess, "b")
	rollupFrom(sess, tree, "b")
	assert.True(t, sess.State("module").ObjectiveSatisfied, "2/3 reaches 60%")
}

func TestRollup_NoneRule(t *testing.T) {
	tree, sess := rollupTree([]activity.RollupRule{{
		ChildActivitySet: activity.ChildSetNone,
		Combination:      activity.CombinationAll,
		Conditions:       []activity.RuleCondition{{Type: activity.CondAttempted}},
		Action:           activity.RollupIncomplete,
	}})

	rollupFrom(sess, tree, "a")
	module := sess.State("module")
	assert.True(t, module.ProgressDetermined, "no child attempted yet, rule fires")
	assert.False(t, module.Completed)
}

func TestRollup_RuleOverridesDefault(t *testing.T) {
	// anyCompleted -> completed: the declared rule wins over the default
	// all-children policy.
	tree, sess := rollupTree([]activity.RollupRule{{
		ChildActivitySet: activity.ChildSetAny,
		Combination:      activity.CombinationAll,
		Conditions:       []activity.RuleCondition{{Type: activity.CondCompleted}},
		Action:           activity.RollupCompleted,
	}})

	complete(sess, "a")
	rollupFrom(sess, tree, "a")

	module := sess.State("module")
	assert.True(t, module.Completed)
	assert.True(t, module.ProgressDetermined)
}

func TestRollup_MeasureAveragesKnownChildren(t *testing.T) {
	tree, sess := rollupTree(nil)

	a := sess.State("a")
	a.ObjectiveMeasureKnown = true
	a.ObjectiveMeasure = 0.8
	b := sess.State("b")
	b.ObjectiveMeasureKnown = true
	b.ObjectiveMeasure = 0.4
	// c has no known measure and must not drag the average down.
	rollupFrom(sess, tree, "a")

	module := sess.State("module")
	require.True(t, module.ObjectiveMeasureKnown)
	assert.InDelta(t, 0.6, module.ObjectiveMeasure, 1e-9)
}

func TestRollup_UntrackedChildrenExcluded(t *testing.T) {
	tree, sess := rollupTree(nil)
	tree.FindByID("c").DeliveryControls.Tracked = false

	complete(sess, "a")
	complete(sess, "b")
	rollupFrom(sess, tree, "a")

	module := sess.State("module")
	assert.True(t, module.Completed, "untracked child does not block rollup")
}
