package analyses

import "fmt"

// Change types produced by the code generation stage.
const (
	ChangeTypeCSS       = "css"
	ChangeTypeProps     = "props"
	ChangeTypeStructure = "structure"
	ChangeTypeAnimation = "animation"
)

var validChangeTypes = map[string]struct{}{
	ChangeTypeCSS:       {},
	ChangeTypeProps:     {},
	ChangeTypeStructure: {},
	ChangeTypeAnimation: {},
}

// CodeChange is one concrete before/after edit suggestion.
type CodeChange struct {
	Type        string `json:"type"`
	Before      string `json:"before"`
	After       string `json:"after"`
	Explanation string `json:"explanation"`
}

// ChangePlanStep is one entry of the stage-one implementation plan.
type ChangePlanStep struct {
	ElementToChange string `json:"element_to_change"`
	ChangeRequired  string `json:"change_required"`
}

// InterpretationPlan is the validated output of the interpretation stage.
type InterpretationPlan struct {
	Interpretation string           `json:"interpretation"`
	Reasoning      string           `json:"reasoning"`
	ChangePlan     []ChangePlanStep `json:"change_plan"`
	Confidence     float64          `json:"confidence"`
}

// CodeGenResult is the validated output of the code generation stage.
type CodeGenResult struct {
	ActionableChanges           []CodeChange `json:"actionable_changes"`
	ExternalDependenciesNoted   []string     `json:"external_dependencies_noted,omitempty"`
	ParentComponentChangesNoted []string     `json:"parent_component_changes_noted,omitempty"`
}

// TranslationResult is the assembled output of the full pipeline.
type TranslationResult struct {
	Interpretation              string       `json:"interpretation"`
	ActionableChanges           []CodeChange `json:"actionable_changes"`
	ExternalDependenciesNoted   []string     `json:"external_dependencies_noted,omitempty"`
	ParentComponentChangesNoted []string     `json:"parent_component_changes_noted,omitempty"`
	Confidence                  float64      `json:"confidence"`
	Reasoning                   string       `json:"reasoning"`
}

func (p InterpretationPlan) validate() error {
	if p.Interpretation == "" {
		return fmt.Errorf("interpretation is required")
	}
	if p.Reasoning == "" {
		return fmt.Errorf("reasoning is required")
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("confidence %v outside [0,1]", p.Confidence)
	}
	for i, step := range p.ChangePlan {
		if step.ElementToChange == "" {
			return fmt.Errorf("change_plan[%d].element_to_change is required", i)
		}
		if step.ChangeRequired == "" {
			return fmt.Errorf("change_plan[%d].change_required is required", i)
		}
	}
	return nil
}

func (r CodeGenResult) validate() error {
	for i, change := range r.ActionableChanges {
		if _, ok := validChangeTypes[change.Type]; !ok {
			return fmt.Errorf("actionable_changes[%d].type %q outside enumeration", i, change.Type)
		}
		if change.Before == "" {
			return fmt.Errorf("actionable_changes[%d].before is required", i)
		}
		if change.After == "" {
			return fmt.Errorf("actionable_changes[%d].after is required", i)
		}
		if change.Explanation == "" {
			return fmt.Errorf("actionable_changes[%d].explanation is required", i)
		}
	}
	return nil
}

func (r TranslationResult) validate() error {
	plan := InterpretationPlan{
		Interpretation: r.Interpretation,
		Reasoning:      r.Reasoning,
		Confidence:     r.Confidence,
	}
	if err := plan.validate(); err != nil {
		return err
	}
	gen := CodeGenResult{ActionableChanges: r.ActionableChanges}
	return gen.validate()
}
