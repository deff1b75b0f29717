package activity

// RuleKind tells when a sequencing rule is evaluated.
type RuleKind string

const (
	RulePre  RuleKind = "pre"
	RulePost RuleKind = "post"
	RuleExit RuleKind = "exit"
)

// ConditionOperator negates (or not) a single rule condition.
type ConditionOperator string

const (
	OpNoOp ConditionOperator = "noOp"
	OpNot  ConditionOperator = "not"
)

// ConditionType names the state predicate a rule condition tests.
type ConditionType string

const (
	CondAlways                ConditionType = "always"
	CondSatisfied             ConditionType = "satisfied"
	CondObjectiveStatusKnown  ConditionType = "objectiveStatusKnown"
	CondObjectiveMeasureKnown ConditionType = "objectiveMeasureKnown"
	CondMeasureGreaterThan    ConditionType = "objectiveMeasureGreaterThan"
	CondMeasureLessThan       ConditionType = "objectiveMeasureLessThan"
	CondCompleted             ConditionType = "completed"
	CondProgressKnown         ConditionType = "activityProgressKnown"
	CondAttempted             ConditionType = "attempted"
	CondAttemptLimitExceeded  ConditionType = "attemptLimitExceeded"
	CondTimeLimitExceeded     ConditionType = "timeLimitExceeded"
)

// RuleAction is what a matched sequencing rule does.
type RuleAction string

const (
	ActionSkip                 RuleAction = "skip"
	ActionDisabled             RuleAction = "disabled"
	ActionHiddenFromChoice     RuleAction = "hiddenFromChoice"
	ActionStopForwardTraversal RuleAction = "stopForwardTraversal"
	ActionExitParent           RuleAction = "exitParent"
	ActionExitAll              RuleAction = "exitAll"
	ActionRetry                RuleAction = "retry"
	ActionRetryAll             RuleAction = "retryAll"
	ActionContinue             RuleAction = "continue"
	ActionPrevious             RuleAction = "previous"
	ActionExit                 RuleAction = "exit"
)

// RuleCondition is one predicate inside a sequencing or rollup rule.
// MeasureThreshold is only meaningful for the measure comparison types.
type RuleCondition struct {
	Type                ConditionType     `json:"type"`
	ReferencedObjective string            `json:"referencedObjective,omitempty"`
	Operator            ConditionOperator `json:"operator,omitempty"`
	MeasureThreshold    *float64          `json:"measureThreshold,omitempty"`
}

// ConditionCombination joins multiple conditions within one rule.
type ConditionCombination string

const (
	CombinationAll ConditionCombination = "all"
	CombinationAny ConditionCombination = "any"
)

// SequencingRule is a pre/post/exit condition rule on an activity.
type SequencingRule struct {
	Kind        RuleKind             `json:"kind"`
	Combination ConditionCombination `json:"combination,omitempty"`
	Conditions  []RuleCondition      `json:"conditions,omitempty"`
	Action      RuleAction           `json:"action"`
}

// ChildActivitySet selects which children a rollup rule considers.
type ChildActivitySet string

const (
	ChildSetAll            ChildActivitySet = "all"
	ChildSetAny            ChildActivitySet = "any"
	ChildSetNone           ChildActivitySet = "none"
	ChildSetAtLeastCount   ChildActivitySet = "atLeastCount"
	ChildSetAtLeastPercent ChildActivitySet = "atLeastPercent"
)

// RollupAction is the status a matched rollup rule writes on the parent.
type RollupAction string

const (
	RollupSatisfied    RollupAction = "satisfied"
	RollupNotSatisfied RollupAction = "notSatisfied"
	RollupCompleted    RollupAction = "completed"
	RollupIncomplete   RollupAction = "incomplete"
)

// RollupRule aggregates child status onto a cluster.
type RollupRule struct {
	ChildActivitySet ChildActivitySet     `json:"childActivitySet"`
	MinimumCount     int                  `json:"minimumCount,omitempty"`
	MinimumPercent   float64              `json:"minimumPercent,omitempty"`
	Combination      ConditionCombination `json:"combination,omitempty"`
	Conditions       []RuleCondition      `json:"conditions,omitempty"`
	Action           RollupAction         `json:"action"`
}
