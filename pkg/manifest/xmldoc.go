package manifest

import "encoding/xml"

// Raw document shapes for encoding/xml. Element names match by local name,
// so the imsss/adlseq namespace prefixes used by authoring tools are
// irrelevant here. Boolean attributes stay strings: an absent attribute must
// fall back to the SCORM default, which is not always false.

type xmlManifest struct {
	XMLName       xml.Name          `xml:"manifest"`
	Identifier    string            `xml:"identifier,attr"`
	Version       string            `xml:"version,attr"`
	Organizations *xmlOrganizations `xml:"organizations"`
	Resources     *xmlResources     `xml:"resources"`
}

type xmlOrganizations struct {
	Default       string            `xml:"default,attr"`
	Organizations []xmlOrganization `xml:"organization"`
}

type xmlOrganization struct {
	Identifier string         `xml:"identifier,attr"`
	Title      string         `xml:"title"`
	Items      []xmlItem      `xml:"item"`
	Sequencing *xmlSequencing `xml:"sequencing"`
}

type xmlItem struct {
	Identifier    string         `xml:"identifier,attr"`
	IdentifierRef string         `xml:"identifierref,attr"`
	IsVisible     string         `xml:"isvisible,attr"`
	Title         string         `xml:"title"`
	Items         []xmlItem      `xml:"item"`
	Sequencing    *xmlSequencing `xml:"sequencing"`
}

type xmlSequencing struct {
	ControlMode      *xmlControlMode      `xml:"controlMode"`
	SequencingRules  *xmlSequencingRules  `xml:"sequencingRules"`
	LimitConditions  *xmlLimitConditions  `xml:"limitConditions"`
	RollupRules      *xmlRollupRules      `xml:"rollupRules"`
	Objectives       *xmlObjectives       `xml:"objectives"`
	Randomization    *xmlRandomization    `xml:"randomizationControls"`
	DeliveryControls *xmlDeliveryControls `xml:"deliveryControls"`
	ConstrainChoice  *xmlConstrainChoice  `xml:"constrainChoiceConsiderations"`
}

type xmlControlMode struct {
	Choice      string `xml:"choice,attr"`
	ChoiceExit  string `xml:"choiceExit,attr"`
	Flow        string `xml:"flow,attr"`
	ForwardOnly string `xml:"forwardOnly,attr"`
}

type xmlSequencingRules struct {
	PreConditionRules  []xmlSequencingRule `xml:"preConditionRule"`
	PostConditionRules []xmlSequencingRule `xml:"postConditionRule"`
	ExitConditionRules []xmlSequencingRule `xml:"exitConditionRule"`
}

type xmlSequencingRule struct {
	Conditions *xmlRuleConditions `xml:"ruleConditions"`
	Action     *xmlRuleAction     `xml:"ruleAction"`
}

type xmlRuleConditions struct {
	Combination string             `xml:"conditionCombination,attr"`
	Conditions  []xmlRuleCondition `xml:"ruleCondition"`
}

type xmlRuleCondition struct {
	Condition           string `xml:"condition,attr"`
	Operator            string `xml:"operator,attr"`
	ReferencedObjective string `xml:"referencedObjective,attr"`
	MeasureThreshold    string `xml:"measureThreshold,attr"`
}

type xmlRuleAction struct {
	Action string `xml:"action,attr"`
}

type xmlLimitConditions struct {
	AttemptLimit                 string `xml:"attemptLimit,attr"`
	AttemptAbsoluteDurationLimit string `xml:"attemptAbsoluteDurationLimit,attr"`
}

type xmlRollupRules struct {
	Rules []xmlRollupRule `xml:"rollupRule"`
}

type xmlRollupRule struct {
	ChildActivitySet string               `xml:"childActivitySet,attr"`
	MinimumCount     string               `xml:"minimumCount,attr"`
	MinimumPercent   string               `xml:"minimumPercent,attr"`
	Conditions       *xmlRollupConditions `xml:"rollupConditions"`
	Action           *xmlRuleAction       `xml:"rollupAction"`
}

type xmlRollupConditions struct {
	Combination string               `xml:"conditionCombination,attr"`
	Conditions  []xmlRollupCondition `xml:"rollupCondition"`
}

type xmlRollupCondition struct {
	Condition string `xml:"condition,attr"`
	Operator  string `xml:"operator,attr"`
}

type xmlObjectives struct {
	Primary    *xmlObjective  `xml:"primaryObjective"`
	Objectives []xmlObjective `xml:"objective"`
}

type xmlObjective struct {
	ObjectiveID          string `xml:"objectiveID,attr"`
	SatisfiedByMeasure   string `xml:"satisfiedByMeasure,attr"`
	MinNormalizedMeasure string `xml:"minNormalizedMeasure"`
}

type xmlRandomization struct {
	RandomizationTiming string `xml:"randomizationTiming,attr"`
	SelectCount         string `xml:"selectCount,attr"`
	ReorderChildren     string `xml:"reorderChildren,attr"`
	SelectionTiming     string `xml:"selectionTiming,attr"`
}

type xmlDeliveryControls struct {
	Tracked                string `xml:"tracked,attr"`
	CompletionSetByContent string `xml:"completionSetByContent,attr"`
	ObjectiveSetByContent  string `xml:"objectiveSetByContent,attr"`
}

type xmlConstrainChoice struct {
	PreventActivation string `xml:"preventActivation,attr"`
	ConstrainChoice   string `xml:"constrainChoice,attr"`
}

type xmlResources struct {
	Resources []xmlResource `xml:"resource"`
}

type xmlResource struct {
	Identifier   string          `xml:"identifier,attr"`
	Type         string          `xml:"type,attr"`
	ScormType    string          `xml:"scormType,attr"`
	Href         string          `xml:"href,attr"`
	Files        []xmlFile       `xml:"file"`
	Dependencies []xmlDependency `xml:"dependency"`
}

type xmlFile struct {
	Href string `xml:"href,attr"`
}

type xmlDependency struct {
	IdentifierRef string `xml:"identifierref,attr"`
}
