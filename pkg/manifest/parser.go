package manifest

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"

	"github.com/scormlab/sequencer/pkg/activity"
)

// Parse turns a raw imsmanifest.xml document into an immutable activity
// tree. It fails with *Error when <manifest>, <organizations>, or a
// resolvable default <organization> is missing. A missing <sequencing>
// block is not an error; it yields the SCORM default values.
func Parse(data []byte, courseID string) (*activity.Tree, error) {
	var doc xmlManifest
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, errorf(courseID, "not a well-formed manifest: %v", err)
	}
	if doc.XMLName.Local != "manifest" {
		return nil, errorf(courseID, "root element is <%s>, expected <manifest>", doc.XMLName.Local)
	}
	if doc.Organizations == nil {
		return nil, errorf(courseID, "missing <organizations> element")
	}

	resources := parseResources(doc.Resources)

	org, err := selectOrganization(doc.Organizations, courseID)
	if err != nil {
		return nil, err
	}

	b := &treeBuilder{
		courseID:  courseID,
		resources: resources,
		seen:      make(map[string]bool),
	}
	root, err := b.buildOrganization(org)
	if err != nil {
		return nil, err
	}

	title := org.Title
	if title == "" {
		title = org.Identifier
	}
	return activity.NewTree(courseID, title, root), nil
}

// parseResources indexes <resource> elements by identifier.
func parseResources(res *xmlResources) map[string]activity.Resource {
	out := make(map[string]activity.Resource)
	if res == nil {
		return out
	}
	for _, r := range res.Resources {
		def := activity.Resource{
			Identifier: r.Identifier,
			Type:       r.Type,
			ScormType:  r.ScormType,
			Href:       r.Href,
		}
		for _, f := range r.Files {
			def.Files = append(def.Files, f.Href)
		}
		for _, d := range r.Dependencies {
			def.Dependencies = append(def.Dependencies, d.IdentifierRef)
		}
		out[r.Identifier] = def
	}
	return out
}

// selectOrganization honors the default attribute, falling back to the
// first declared organization.
func selectOrganization(orgs *xmlOrganizations, courseID string) (*xmlOrganization, error) {
	if len(orgs.Organizations) == 0 {
		return nil, errorf(courseID, "no <organization> declared")
	}
	if orgs.Default != "" {
		for i := range orgs.Organizations {
			if orgs.Organizations[i].Identifier == orgs.Default {
				return &orgs.Organizations[i], nil
			}
		}
	}
	return &orgs.Organizations[0], nil
}

type treeBuilder struct {
	courseID  string
	resources map[string]activity.Resource
	seen      map[string]bool
	anonCount int
}

func (b *treeBuilder) buildOrganization(org *xmlOrganization) (*activity.Node, error) {
	root := &activity.Node{
		ID:    org.Identifier,
		Title: org.Title,
		Kind:  activity.KindCluster,
	}
	if root.ID == "" {
		root.ID = b.nextAnonID()
	}
	if root.Title == "" {
		root.Title = root.ID
	}
	b.seen[root.ID] = true
	applyDefaults(root)
	applySequencing(root, org.Sequencing)

	for i := range org.Items {
		child, err := b.buildItem(&org.Items[i], root.ID)
		if err != nil {
			return nil, err
		}
		root.Children = append(root.Children, child)
	}
	return root, nil
}

func (b *treeBuilder) buildItem(item *xmlItem, parentID string) (*activity.Node, error) {
	id := item.Identifier
	if id == "" {
		id = b.nextAnonID()
	}
	if b.seen[id] {
		return nil, errorf(b.courseID, "duplicate activity identifier %q", id)
	}
	b.seen[id] = true

	node := &activity.Node{
		ID:       id,
		Title:    resolveTitle(item, id),
		ParentID: parentID,
	}
	applyDefaults(node)
	applySequencing(node, item.Sequencing)

	if len(item.Items) == 0 {
		node.Kind = activity.KindLeaf
		node.ResourceID = item.IdentifierRef
		node.Href = b.resolveHref(item.IdentifierRef)
		return node, nil
	}

	node.Kind = activity.KindCluster
	for i := range item.Items {
		child, err := b.buildItem(&item.Items[i], id)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

func (b *treeBuilder) nextAnonID() string {
	b.anonCount++
	return fmt.Sprintf("%s-activity-%d", b.courseID, b.anonCount)
}

// resolveHref follows the item's identifierref into the resource map. When
// the resource itself has no href, the first listed file stands in.
func (b *treeBuilder) resolveHref(identifierRef string) string {
	if identifierRef == "" {
		return ""
	}
	res, ok := b.resources[identifierRef]
	if !ok {
		return ""
	}
	if res.Href != "" {
		return res.Href
	}
	if len(res.Files) > 0 {
		return res.Files[0]
	}
	return ""
}

func resolveTitle(item *xmlItem, id string) string {
	if item.Title != "" {
		return item.Title
	}
	if id != "" {
		return id
	}
	return "Untitled Activity"
}

func applyDefaults(node *activity.Node) {
	node.ControlMode = activity.DefaultControlMode()
	node.DeliveryControls = activity.DefaultDeliveryControls()
}

func applySequencing(node *activity.Node, seq *xmlSequencing) {
	if seq == nil {
		return
	}
	if cm := seq.ControlMode; cm != nil {
		node.ControlMode = activity.ControlMode{
			Choice:      parseBool(cm.Choice, true),
			ChoiceExit:  parseBool(cm.ChoiceExit, true),
			Flow:        parseBool(cm.Flow, false),
			ForwardOnly: parseBool(cm.ForwardOnly, false),
		}
	}
	if dc := seq.DeliveryControls; dc != nil {
		node.DeliveryControls = activity.DeliveryControls{
			Tracked:                parseBool(dc.Tracked, true),
			CompletionSetByContent: parseBool(dc.CompletionSetByContent, false),
			ObjectiveSetByContent:  parseBool(dc.ObjectiveSetByContent, false),
		}
	}
	if cc := seq.ConstrainChoice; cc != nil {
		node.ConstrainedChoice = activity.ConstrainedChoice{
			PreventActivation: parseBool(cc.PreventActivation, false),
			ConstrainChoice:   parseBool(cc.ConstrainChoice, false),
		}
	}
	if lc := seq.LimitConditions; lc != nil {
		node.LimitConditions = activity.LimitConditions{
			AttemptLimit:         parseInt(lc.AttemptLimit, 0),
			AttemptDurationLimit: lc.AttemptAbsoluteDurationLimit,
		}
	}
	if rc := seq.Randomization; rc != nil {
		node.Randomization = activity.RandomizationControls{
			RandomizationTiming: rc.RandomizationTiming,
			SelectCount:         parseInt(rc.SelectCount, 0),
			ReorderChildren:     parseBool(rc.ReorderChildren, false),
			SelectionTiming:     rc.SelectionTiming,
		}
	}
	if obj := seq.Objectives; obj != nil {
		if obj.Primary != nil {
			node.Objectives = append(node.Objectives, parseObjective(obj.Primary, true))
		}
		for i := range obj.Objectives {
			node.Objectives = append(node.Objectives, parseObjective(&obj.Objectives[i], false))
		}
	}
	if rules := seq.SequencingRules; rules != nil {
		for i := range rules.PreConditionRules {
			node.SequencingRules = append(node.SequencingRules,
				parseSequencingRule(&rules.PreConditionRules[i], activity.RulePre))
		}
		for i := range rules.PostConditionRules {
			node.SequencingRules = append(node.SequencingRules,
				parseSequencingRule(&rules.PostConditionRules[i], activity.RulePost))
		}
		for i := range rules.ExitConditionRules {
			node.SequencingRules = append(node.SequencingRules,
				parseSequencingRule(&rules.ExitConditionRules[i], activity.RuleExit))
		}
	}
	if rr := seq.RollupRules; rr != nil {
		for i := range rr.Rules {
			node.RollupRules = append(node.RollupRules, parseRollupRule(&rr.Rules[i]))
		}
	}
}

func parseObjective(obj *xmlObjective, primary bool) activity.Objective {
	return activity.Objective{
		ID:                   obj.ObjectiveID,
		Primary:              primary,
		SatisfiedByMeasure:   parseBool(obj.SatisfiedByMeasure, false),
		MinNormalizedMeasure: parseFloat(obj.MinNormalizedMeasure, 1.0),
	}
}

func parseSequencingRule(rule *xmlSequencingRule, kind activity.RuleKind) activity.SequencingRule {
	out := activity.SequencingRule{
		Kind:        kind,
		Combination: activity.CombinationAll,
	}
	if rule.Conditions != nil {
		if rule.Conditions.Combination == string(activity.CombinationAny) {
			out.Combination = activity.CombinationAny
		}
		for _, c := range rule.Conditions.Conditions {
			out.Conditions = append(out.Conditions, parseRuleCondition(c.Condition, c.Operator, c.ReferencedObjective, c.MeasureThreshold))
		}
	}
	if rule.Action != nil {
		out.Action = activity.RuleAction(rule.Action.Action)
	}
	return out
}

func parseRollupRule(rule *xmlRollupRule) activity.RollupRule {
	out := activity.RollupRule{
		ChildActivitySet: activity.ChildSetAll,
		MinimumCount:     parseInt(rule.MinimumCount, 0),
		MinimumPercent:   parseFloat(rule.MinimumPercent, 0),
		Combination:      activity.CombinationAll,
	}
	if rule.ChildActivitySet != "" {
		out.ChildActivitySet = activity.ChildActivitySet(rule.ChildActivitySet)
	}
	if rule.Conditions != nil {
		if rule.Conditions.Combination == string(activity.CombinationAny) {
			out.Combination = activity.CombinationAny
		}
		for _, c := range rule.Conditions.Conditions {
			out.Conditions = append(out.Conditions, parseRuleCondition(c.Condition, c.Operator, "", ""))
		}
	}
	if rule.Action != nil {
		out.Action = activity.RollupAction(rule.Action.Action)
	}
	return out
}

func parseRuleCondition(condition, operator, refObjective, threshold string) activity.RuleCondition {
	out := activity.RuleCondition{
		Type:                activity.ConditionType(condition),
		ReferencedObjective: refObjective,
		Operator:            activity.OpNoOp,
	}
	if operator == "not" {
		out.Operator = activity.OpNot
	}
	if threshold != "" {
		if v, err := strconv.ParseFloat(threshold, 64); err == nil {
			out.MeasureThreshold = &v
		}
	}
	return out
}

func parseBool(s string, def bool) bool {
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return v
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}
