package sequencing

import (
	"testing"
	"time"

	"github.com/scormlab/sequencer/pkg/activity"
	"github.com/scormlab/sequencer/pkg/session"
	"github.com/stretchr/testify/assert"
)

func threshold(v float64) *float64 { return &v }

func TestConditionMatches(t *testing.T) {
	node := &activity.Node{
		LimitConditions: activity.LimitConditions{
			AttemptLimit:         2,
			AttemptDurationLimit: "PT10M",
		},
	}

	tests := []struct {
		name  string
		cond  activity.RuleCondition
		state session.ActivityState
		want  bool
	}{
		{
			name: "always",
			cond: activity.RuleCondition{Type: activity.CondAlways},
			want: true,
		},
		{
			name: "always negated",
			cond: activity.RuleCondition{Type: activity.CondAlways, Operator: activity.OpNot},
			want: false,
		},
		{
			name:  "satisfied requires determination",
			cond:  activity.RuleCondition{Type: activity.CondSatisfied},
			state: session.ActivityState{ObjectiveSatisfied: true},
			want:  false,
		},
		{
			name: "satisfied",
			cond: activity.RuleCondition{Type: activity.CondSatisfied},
			state: session.ActivityState{
				ObjectiveSatisfied:          true,
				ObjectiveProgressDetermined: true,
			},
			want: true,
		},
		{
			name: "completed",
			cond: activity.RuleCondition{Type: activity.CondCompleted},
			state: session.ActivityState{
				Completed:          true,
				ProgressDetermined: true,
			},
			want: true,
		},
		{
			name:  "attempted",
			cond:  activity.RuleCondition{Type: activity.CondAttempted},
			state: session.ActivityState{AttemptCount: 1},
			want:  true,
		},
		{
			name: "not attempted",
			cond: activity.RuleCondition{Type: activity.CondAttempted, Operator: activity.OpNot},
			want: true,
		},
		{
			name: "measure greater than",
			cond: activity.RuleCondition{
				Type:             activity.CondMeasureGreaterThan,
				MeasureThreshold: threshold(0.5),
			},
			state: session.ActivityState{ObjectiveMeasureKnown: true, ObjectiveMeasure: 0.7},
			want:  true,
		},
		{
			name: "measure greater than requires known measure",
			cond: activity.RuleCondition{
				Type:             activity.CondMeasureGreaterThan,
				MeasureThreshold: threshold(0.5),
			},
			state: session.ActivityState{ObjectiveMeasure: 0.7},
			want:  false,
		},
		{
			name: "measure less than",
			cond: activity.RuleCondition{
				Type:             activity.CondMeasureLessThan,
				MeasureThreshold: threshold(0.5),
			},
			state: session.ActivityState{ObjectiveMeasureKnown: true, ObjectiveMeasure: 0.3},
			want:  true,
		},
		{
			name:  "attempt limit exceeded",
			cond:  activity.RuleCondition{Type: activity.CondAttemptLimitExceeded},
			state: session.ActivityState{AttemptCount: 2},
			want:  true,
		},
		{
			name:  "attempt limit not reached",
			cond:  activity.RuleCondition{Type: activity.CondAttemptLimitExceeded},
			state: session.ActivityState{AttemptCount: 1},
			want:  false,
		},
		{
			name:  "time limit exceeded",
			cond:  activity.RuleCondition{Type: activity.CondTimeLimitExceeded},
			state: session.ActivityState{AttemptElapsedDuration: 11 * time.Minute},
			want:  true,
		},
		{
			name: "unknown condition never triggers",
			cond: activity.RuleCondition{Type: "somethingNew"},
			want: false,
		},
		{
			name: "unknown condition negated still never triggers",
			cond: activity.RuleCondition{Type: "somethingNew", Operator: activity.OpNot},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := tt.state
			assert.Equal(t, tt.want, conditionMatches(tt.cond, node, &st))
		})
	}
}

func TestRuleMatches_Combinations(t *testing.T) {
	node := &activity.Node{}
	state := &session.ActivityState{AttemptCount: 1}

	attempted := activity.RuleCondition{Type: activity.CondAttempted}
	completed := activity.RuleCondition{Type: activity.CondCompleted}

	assert.False(t, ruleMatches(activity.CombinationAll, nil, node, state),
		"a rule without conditions never matches")

	assert.True(t, ruleMatches(activity.CombinationAll,
		[]activity.RuleCondition{attempted}, node, state))
	assert.False(t, ruleMatches(activity.CombinationAll,
		[]activity.RuleCondition{attempted, completed}, node, state))
	assert.True(t, ruleMatches(activity.CombinationAny,
		[]activity.RuleCondition{attempted, completed}, node, state))
	assert.False(t, ruleMatches(activity.CombinationAny,
		[]activity.RuleCondition{completed}, node, state))
}

func TestEvaluatePreRules_FoldsActions(t *testing.T) {
	node := &activity.Node{
		SequencingRules: []activity.SequencingRule{
			{
				Kind:        activity.RulePre,
				Combination: activity.CombinationAll,
				Conditions:  []activity.RuleCondition{{Type: activity.CondAlways}},
				Action:      activity.ActionSkip,
			},
			{
				Kind:        activity.RulePre,
				Combination: activity.CombinationAll,
				Conditions:  []activity.RuleCondition{{Type: activity.CondAttempted}},
				Action:      activity.ActionDisabled,
			},
			{
				Kind:        activity.RulePost,
				Combination: activity.CombinationAll,
				Conditions:  []activity.RuleCondition{{Type: activity.CondAlways}},
				Action:      activity.ActionRetry,
			},
		},
	}

	out := evaluatePreRules(node, &session.ActivityState{})
	assert.True(t, out.skip)
	assert.False(t, out.disabled, "unmatched rule contributes nothing")
	assert.False(t, out.retry, "post rules are not pre rules")
	assert.False(t, out.deliverable())
	assert.True(t, out.choosable())
}

func TestPostAction_FirstMatchWins(t *testing.T) {
	node := &activity.Node{
		SequencingRules: []activity.SequencingRule{
			{
				Kind:        activity.RulePost,
				Combination: activity.CombinationAll,
				Conditions:  []activity.RuleCondition{{Type: activity.CondAttempted}},
				Action:      activity.ActionRetry,
			},
			{
				Kind:        activity.RulePost,
				Combination: activity.CombinationAll,
				Conditions:  []activity.RuleCondition{{Type: activity.CondAlways}},
				Action:      activity.ActionContinue,
			},
		},
	}

	assert.Equal(t, activity.ActionContinue, postAction(node, &session.ActivityState{}))
	assert.Equal(t, activity.ActionRetry, postAction(node, &session.ActivityState{AttemptCount: 1}))
	assert.Equal(t, activity.RuleAction(""), postAction(&activity.Node{}, &session.ActivityState{}))
}

func TestParseISODuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"PT30M", 30 * time.Minute, true},
		{"PT1H30M", 90 * time.Minute, true},
		{"PT10S", 10 * time.Second, true},
		{"PT0.5S", 500 * time.Millisecond, true},
		{"P1DT2H", 26 * time.Hour, true},
		{"P2D", 48 * time.Hour, true},
		{"PT0S", 0, true},
		{"", 0, false},
		{"30M", 0, false},
		{"P", 0, true},
		{"P1M", 0, false}, // calendar month, not minutes
		{"P1Y", 0, false},
		{"PTxS", 0, false},
		{"PT5", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseISODuration(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFormatISODuration(t *testing.T) {
	assert.Equal(t, "PT0S", FormatISODuration(0))
	assert.Equal(t, "PT30M", FormatISODuration(30*time.Minute))
	assert.Equal(t, "PT1H30M", FormatISODuration(90*time.Minute))
	assert.Equal(t, "PT1H5S", FormatISODuration(time.Hour+5*time.Second))
	assert.Equal(t, "PT0.5S", FormatISODuration(500*time.Millisecond))
}

func TestExitAction_FirstMatchWins(t *testing.T) {
	node := &activity.Node{
		SequencingRules: []activity.SequencingRule{
			{
				Kind:        activity.RuleExit,
				Combination: activity.CombinationAll,
				Conditions:  []activity.RuleCondition{{Type: activity.CondAttempted}},
				Action:      activity.ActionExit,
			},
			{
				Kind:        activity.RuleExit,
				Combination: activity.CombinationAll,
				Conditions:  []activity.RuleCondition{{Type: activity.CondAlways}},
				Action:      activity.ActionExitAll,
			},
		},
	}

	assert.Equal(t, activity.ActionExitAll, exitAction(node, &session.ActivityState{}))
	assert.Equal(t, activity.ActionExit, exitAction(node, &session.ActivityState{AttemptCount: 1}))
	assert.Equal(t, activity.RuleAction(""), exitAction(&activity.Node{}, &session.ActivityState{}))
}
