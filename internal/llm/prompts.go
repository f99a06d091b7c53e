package llm

import (
	"embed"
	"encoding/json"
	"strings"
)

//go:embed prompts/*.txt
var promptFiles embed.FS

var (
	interpretationTemplate = mustTemplate("prompts/interpretation.txt")
	codeGenTemplate        = mustTemplate("prompts/codegen.txt")
	patternTemplate        = mustTemplate("prompts/pattern.txt")
)

func mustTemplate(name string) string {
	raw, err := promptFiles.ReadFile(name)
	if err != nil {
		panic("missing prompt template: " + name)
	}
	return string(raw)
}

// PlanStep is one entry of the interpretation plan fed into code generation.
type PlanStep struct {
	ElementToChange string `json:"element_to_change"`
	ChangeRequired  string `json:"change_required"`
}

// BuildInterpretationPrompt renders the stage-one prompt. An empty component
// name falls back to a generic label.
func BuildInterpretationPrompt(componentName, componentCode, feedback string) string {
	name := strings.TrimSpace(componentName)
	if name == "" {
		name = "Unnamed Component"
	}
	return strings.NewReplacer(
		"{{componentName}}", SanitizeForPrompt(name),
		"{{componentCode}}", SanitizeForPrompt(componentCode),
		"{{feedback}}", SanitizeForPrompt(feedback),
	).Replace(interpretationTemplate)
}

// BuildCodeGenPrompt renders the stage-two prompt. The plan is serialized as
// indented JSON so the model sees it the same way it produced it.
func BuildCodeGenPrompt(componentCode string, plan []PlanStep) string {
	if plan == nil {
		plan = []PlanStep{}
	}
	planJSON, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		planJSON = []byte("[]")
	}
	return strings.NewReplacer(
		"{{componentCode}}", SanitizeForPrompt(componentCode),
		"{{changePlan}}", string(planJSON),
	).Replace(codeGenTemplate)
}

// BuildPatternPrompt renders the pattern extraction prompt.
func BuildPatternPrompt(feedback string) string {
	return strings.NewReplacer(
		"{{feedback}}", SanitizeForPrompt(feedback),
	).Replace(patternTemplate)
}

// SanitizeForPrompt neutralizes characters that would break out of the
// delimited blocks in the templates. Backslashes are escaped first so the
// later escapes are not double-processed.
func SanitizeForPrompt(input string) string {
	out := strings.ReplaceAll(input, `\`, `\\`)
	out = strings.ReplaceAll(out, "`", "\\`")
	out = strings.ReplaceAll(out, "${", "\\${")
	return strings.TrimSpace(out)
}
