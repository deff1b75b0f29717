package activity

// Kind distinguishes container activities from deliverable content.
type Kind string

const (
	// KindCluster is an aggregating activity with child activities.
	KindCluster Kind = "cluster"
	// KindLeaf is a deliverable activity backed by a launchable resource.
	KindLeaf Kind = "leaf"
)

// ControlMode holds the sequencing control modes declared on an activity.
// Zero value is NOT the SCORM default; use DefaultControlMode.
type ControlMode struct {
	Choice      bool `json:"choice"`
	ChoiceExit  bool `json:"choiceExit"`
	Flow        bool `json:"flow"`
	ForwardOnly bool `json:"forwardOnly"`
}

// DefaultControlMode returns the SCORM 2004 defaults applied when an item
// declares no <controlMode> element.
func DefaultControlMode() ControlMode {
	return ControlMode{
		Choice:     true,
		ChoiceExit: true,
	}
}

// DeliveryControls determine how the runtime reports progress for an activity.
type DeliveryControls struct {
	Tracked                bool `json:"tracked"`
	CompletionSetByContent bool `json:"completionSetByContent"`
	ObjectiveSetByContent  bool `json:"objectiveSetByContent"`
}

// DefaultDeliveryControls returns the SCORM defaults (tracked=true).
func DefaultDeliveryControls() DeliveryControls {
	return DeliveryControls{Tracked: true}
}

// ConstrainedChoice holds the constrainChoiceConsiderations values.
type ConstrainedChoice struct {
	PreventActivation bool `json:"preventActivation"`
	ConstrainChoice   bool `json:"constrainChoice"`
}

// LimitConditions caps how often and how long an activity may be attempted.
type LimitConditions struct {
	AttemptLimit         int    `json:"attemptLimit,omitempty"`
	AttemptDurationLimit string `json:"attemptAbsoluteDurationLimit,omitempty"`
}

// RandomizationControls drive child selection and ordering per attempt.
type RandomizationControls struct {
	RandomizationTiming string `json:"randomizationTiming,omitempty"`
	SelectCount         int    `json:"selectCount,omitempty"`
	ReorderChildren     bool   `json:"reorderChildren,omitempty"`
	SelectionTiming     string `json:"selectionTiming,omitempty"`
}

// Objective is a learning objective attached to an activity.
type Objective struct {
	ID                   string  `json:"id,omitempty"`
	Primary              bool    `json:"primary"`
	SatisfiedByMeasure   bool    `json:"satisfiedByMeasure"`
	MinNormalizedMeasure float64 `json:"minNormalizedMeasure"`
}

// Node is a single activity in the tree. Nodes are immutable once the tree
// is built. The parent link is a non-owning id; resolve it through the tree
// index rather than holding a back-pointer.
type Node struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Kind     Kind   `json:"kind"`
	ParentID string `json:"parentId,omitempty"`

	// ResourceID references the <resource> this leaf launches, empty for clusters.
	ResourceID string `json:"resourceId,omitempty"`
	// Href is the resolved launch URL for leaves.
	Href string `json:"href,omitempty"`

	Children []*Node `json:"children,omitempty"`

	ControlMode       ControlMode           `json:"controlMode"`
	DeliveryControls  DeliveryControls      `json:"deliveryControls"`
	ConstrainedChoice ConstrainedChoice     `json:"constrainedChoice"`
	LimitConditions   LimitConditions       `json:"limitConditions"`
	Randomization     RandomizationControls `json:"randomization"`

	SequencingRules []SequencingRule `json:"sequencingRules,omitempty"`
	Objectives      []Objective      `json:"objectives,omitempty"`
	RollupRules     []RollupRule     `json:"rollupRules,omitempty"`
}

// IsLeaf reports whether the node delivers content.
func (n *Node) IsLeaf() bool {
	return n.Kind == KindLeaf
}

// PrimaryObjective returns the primary objective, or nil if none is declared.
func (n *Node) PrimaryObjective() *Objective {
	for i := range n.Objectives {
		if n.Objectives[i].Primary {
			return &n.Objectives[i]
		}
	}
	return nil
}

// RulesOfKind filters the node's sequencing rules by kind.
func (n *Node) RulesOfKind(kind RuleKind) []SequencingRule {
	var out []SequencingRule
	for _, r := range n.SequencingRules {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out
}

// Resource describes a launchable <resource> from the manifest.
type Resource struct {
	Identifier   string   `json:"identifier"`
	Type         string   `json:"type"`
	ScormType    string   `json:"scormType,omitempty"`
	Href         string   `json:"href,omitempty"`
	Files        []string `json:"files,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
}
