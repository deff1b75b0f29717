package sequencing

import (
	"strconv"
	"strings"
	"time"

	"github.com/scormlab/sequencer/pkg/activity"
	"github.com/scormlab/sequencer/pkg/session"
)

// preOutcome is the combined verdict of an activity's pre-condition rules.
type preOutcome struct {
	skip        bool
	disabled    bool
	hidden      bool
	stopForward bool
	exitParent  bool
	retry       bool
}

// evaluatePreRules runs every pre-condition rule of node against its current
// state and folds the matched actions into one outcome.
func evaluatePreRules(node *activity.Node, state *session.ActivityState) preOutcome {
	var out preOutcome
	for _, rule := range node.RulesOfKind(activity.RulePre) {
		if !ruleMatches(rule.Combination, rule.Conditions, node, state) {
			continue
		}
		switch rule.Action {
		case activity.ActionSkip:
			out.skip = true
		case activity.ActionDisabled:
			out.disabled = true
		case activity.ActionHiddenFromChoice:
			out.hidden = true
		case activity.ActionStopForwardTraversal:
			out.stopForward = true
		case activity.ActionExitParent:
			out.exitParent = true
		case activity.ActionRetry:
			out.retry = true
		}
	}
	return out
}

// deliverable reports whether the pre-rule outcome still allows delivery
// through flow traversal.
func (o preOutcome) deliverable() bool {
	return !o.skip && !o.disabled && !o.stopForward
}

// choosable reports whether the pre-rule outcome still allows delivery via
// a choice request.
func (o preOutcome) choosable() bool {
	return !o.disabled && !o.hidden
}

// postAction returns the action of the first matching post-condition rule,
// or empty when none matches.
func postAction(node *activity.Node, state *session.ActivityState) activity.RuleAction {
	for _, rule := range node.RulesOfKind(activity.RulePost) {
		if ruleMatches(rule.Combination, rule.Conditions, node, state) {
			return rule.Action
		}
	}
	return ""
}

// exitAction returns the action of the first matching exit-condition rule,
// or empty when none matches. Exit rules are evaluated against the state of
// the ancestor that declares them, when a descendant attempt terminates.
func exitAction(node *activity.Node, state *session.ActivityState) activity.RuleAction {
	for _, rule := range node.RulesOfKind(activity.RuleExit) {
		if ruleMatches(rule.Combination, rule.Conditions, node, state) {
			return rule.Action
		}
	}
	return ""
}

// ruleMatches combines a rule's conditions with its declared combination.
// A rule with no conditions never matches.
func ruleMatches(comb activity.ConditionCombination, conds []activity.RuleCondition, node *activity.Node, state *session.ActivityState) bool {
	if len(conds) == 0 {
		return false
	}
	for _, cond := range conds {
		matched := conditionMatches(cond, node, state)
		if comb == activity.CombinationAny {
			if matched {
				return true
			}
		} else if !matched {
			return false
		}
	}
	return comb != activity.CombinationAny
}

// conditionMatches evaluates one condition against the activity state,
// applying the not operator last.
func conditionMatches(cond activity.RuleCondition, node *activity.Node, state *session.ActivityState) bool {
	var v bool
	switch cond.Type {
	case activity.CondAlways:
		v = true
	case activity.CondSatisfied:
		v = state.ObjectiveProgressDetermined && state.ObjectiveSatisfied
	case activity.CondObjectiveStatusKnown:
		v = state.ObjectiveProgressDetermined
	case activity.CondObjectiveMeasureKnown:
		v = state.ObjectiveMeasureKnown
	case activity.CondMeasureGreaterThan:
		v = state.ObjectiveMeasureKnown &&
			cond.MeasureThreshold != nil &&
			state.ObjectiveMeasure > *cond.MeasureThreshold
	case activity.CondMeasureLessThan:
		v = state.ObjectiveMeasureKnown &&
			cond.MeasureThreshold != nil &&
			state.ObjectiveMeasure < *cond.MeasureThreshold
	case activity.CondCompleted:
		v = state.ProgressDetermined && state.Completed
	case activity.CondProgressKnown:
		v = state.ProgressDetermined
	case activity.CondAttempted:
		v = state.AttemptCount > 0
	case activity.CondAttemptLimitExceeded:
		v = node.LimitConditions.AttemptLimit > 0 &&
			state.AttemptCount >= node.LimitConditions.AttemptLimit
	case activity.CondTimeLimitExceeded:
		limit, ok := parseISODuration(node.LimitConditions.AttemptDurationLimit)
		v = ok && limit > 0 && state.AttemptElapsedDuration >= limit
	default:
		// Unknown condition vocabulary evaluates to unknown, which never
		// triggers a rule.
		return false
	}
	if cond.Operator == activity.OpNot {
		return !v
	}
	return v
}

// parseISODuration handles the ISO 8601 duration subset SCORM manifests use
// (PnDTnHnMnS, time designators only in practice).
func parseISODuration(s string) (time.Duration, bool) {
	if s == "" || s[0] != 'P' {
		return 0, false
	}
	rest := s[1:]
	var total time.Duration
	inTime := false
	for len(rest) > 0 {
		if rest[0] == 'T' {
			inTime = true
			rest = rest[1:]
			continue
		}
		i := 0
		for i < len(rest) && (rest[i] == '.' || (rest[i] >= '0' && rest[i] <= '9')) {
			i++
		}
		if i == 0 || i == len(rest) {
			return 0, false
		}
		value, err := strconv.ParseFloat(rest[:i], 64)
		if err != nil {
			return 0, false
		}
		unit := rest[i]
		rest = rest[i+1:]
		switch {
		case unit == 'D' && !inTime:
			total += time.Duration(value * 24 * float64(time.Hour))
		case unit == 'H' && inTime:
			total += time.Duration(value * float64(time.Hour))
		case unit == 'M' && inTime:
			total += time.Duration(value * float64(time.Minute))
		case unit == 'S' && inTime:
			total += time.Duration(value * float64(time.Second))
		case unit == 'Y' || unit == 'W' || (unit == 'M' && !inTime):
			// Calendar units are not exact; SCORM content never uses them.
			return 0, false
		default:
			return 0, false
		}
	}
	return total, true
}

// FormatISODuration renders a duration in the manifest's ISO 8601 subset.
// Used by hosts echoing limit conditions back out.
func FormatISODuration(d time.Duration) string {
	if d <= 0 {
		return "PT0S"
	}
	var b strings.Builder
	b.WriteString("PT")
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	sec := d.Seconds()
	if h > 0 {
		b.WriteString(strconv.FormatInt(int64(h), 10))
		b.WriteByte('H')
	}
	if m > 0 {
		b.WriteString(strconv.FormatInt(int64(m), 10))
		b.WriteByte('M')
	}
	if sec > 0 || (h == 0 && m == 0) {
		b.WriteString(strconv.FormatFloat(sec, 'f', -1, 64))
		b.WriteByte('S')
	}
	return b.String()
}
