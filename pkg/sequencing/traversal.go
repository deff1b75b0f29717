package sequencing

import (
	"github.com/scormlab/sequencer/pkg/activity"
	"github.com/scormlab/sequencer/pkg/session"
)

// firstDeliverable walks the leaves in document order and returns the first
// one whose pre-condition rules allow delivery, or nil.
func firstDeliverable(sess *session.Session, tree *activity.Tree) *activity.Node {
	next, _ := scanForward(sess, tree, tree.Leaves(), 0)
	return next
}

// flowForward returns the next deliverable leaf strictly after `from` in
// document order. Leaves a skip or disabled rule excludes are passed over;
// a stopForwardTraversal rule aborts the walk (stopped=true).
func flowForward(sess *session.Session, tree *activity.Tree, from *activity.Node) (next *activity.Node, stopped bool) {
	leaves := tree.Leaves()
	idx := leafIndex(leaves, from.ID)
	if idx < 0 {
		return nil, false
	}
	return scanForward(sess, tree, leaves, idx+1)
}

// scanForward finds the first deliverable leaf at or after start. A matched
// exitParent rule leaves the enclosing cluster: the walk resumes past that
// cluster's subtree without delivering anything inside it.
func scanForward(sess *session.Session, tree *activity.Tree, leaves []*activity.Node, start int) (*activity.Node, bool) {
	for i := start; i < len(leaves); i++ {
		out := evaluatePreRules(leaves[i], sess.State(leaves[i].ID))
		if out.stopForward {
			return nil, true
		}
		if out.exitParent {
			i = indexPastParent(tree, leaves, i) - 1
			continue
		}
		if out.deliverable() {
			return leaves[i], false
		}
	}
	return nil, false
}

// indexPastParent returns the index of the first leaf outside the parent
// cluster of leaves[idx], or len(leaves) when nothing follows it.
func indexPastParent(tree *activity.Tree, leaves []*activity.Node, idx int) int {
	parent := tree.Parent(leaves[idx].ID)
	if parent == nil {
		return len(leaves)
	}
	for i := idx + 1; i < len(leaves); i++ {
		if !insideSubtree(tree, leaves[i], parent) {
			return i
		}
	}
	return len(leaves)
}

// flowPastClosedScopes redirects a pending delivery whose cluster an exit
// rule just closed to the first deliverable leaf after that cluster.
func flowPastClosedScopes(sess *session.Session, tree *activity.Tree, next *activity.Node, closed []*activity.Node) *activity.Node {
	for _, scope := range closed {
		if next == nil || !insideSubtree(tree, next, scope) {
			continue
		}
		leaves := tree.Leaves()
		after := len(leaves)
		for i := leafIndex(leaves, next.ID) + 1; i < len(leaves); i++ {
			if !insideSubtree(tree, leaves[i], scope) {
				after = i
				break
			}
		}
		next, _ = scanForward(sess, tree, leaves, after)
	}
	return next
}

// flowBackward returns the closest deliverable leaf before `from` in
// document order. stopForwardTraversal does not constrain backward flow.
func flowBackward(sess *session.Session, tree *activity.Tree, from *activity.Node) *activity.Node {
	leaves := tree.Leaves()
	idx := leafIndex(leaves, from.ID)
	if idx < 0 {
		return nil
	}
	for i := idx - 1; i >= 0; i-- {
		out := evaluatePreRules(leaves[i], sess.State(leaves[i].ID))
		if out.skip || out.disabled {
			continue
		}
		return leaves[i]
	}
	return nil
}

// forwardOnlyBlocked reports whether any ancestor cluster of the node
// declares forwardOnly, which forbids backward traversal out of or within
// that cluster.
func forwardOnlyBlocked(tree *activity.Tree, node *activity.Node) bool {
	for parent := tree.Parent(node.ID); parent != nil; parent = tree.Parent(parent.ID) {
		if parent.ControlMode.ForwardOnly {
			return true
		}
	}
	return false
}

// choosableActivities lists the leaves a choice request could currently
// target: choice enabled on the activity and no disabled or
// hiddenFromChoice pre-rule in effect.
func choosableActivities(sess *session.Session, tree *activity.Tree) []string {
	var out []string
	for _, leaf := range tree.Leaves() {
		if !leaf.ControlMode.Choice {
			continue
		}
		if !evaluatePreRules(leaf, sess.State(leaf.ID)).choosable() {
			continue
		}
		out = append(out, leaf.ID)
	}
	return out
}

func leafIndex(leaves []*activity.Node, id string) int {
	for i, l := range leaves {
		if l.ID == id {
			return i
		}
	}
	return -1
}
