package analyses

import (
	"context"
	"fmt"
	"time"

	"feedback-translator/internal/llm"
	"feedback-translator/internal/shared/metrics"
	"feedback-translator/internal/shared/telemetry"
)

// Orchestrator input bounds. A stricter feedback bound applies at request
// intake; these are the final backstop before any model call.
const (
	minComponentNameLen = 1
	maxComponentNameLen = 100
	minSourceLen        = 10
	maxSourceLen        = 50000
	minFeedbackLen      = 5
	maxFeedbackLen      = 1000
)

// Translator runs the two-stage feedback-to-code-change pipeline: an
// interpretation call that plans the change, then a code generation call that
// executes the plan. Separating planning from editing keeps each model task
// narrow and verifiable.
type Translator struct {
	LLM llm.Client
	// MaxRetries is the number of re-calls after a failed model attempt.
	// Zero selects the default policy; use a negative value to disable
	// retries entirely (one attempt per call).
	MaxRetries int
	BaseDelay  time.Duration

	// sleep is swapped out in tests to avoid real backoff delays.
	sleep func(context.Context, time.Duration) error
}

// NewTranslator builds a Translator with default retry policy.
func NewTranslator(client llm.Client) *Translator {
	return &Translator{
		LLM:        client,
		MaxRetries: defaultMaxRetries,
		BaseDelay:  defaultBaseDelay,
	}
}

// Translate converts client feedback on a component into validated code-change
// suggestions. Stage failures surface as a single error; no partial result is
// ever returned.
func (t *Translator) Translate(ctx context.Context, componentName, sourceText, feedback string) (TranslationResult, error) {
	if err := validateTranslateInput(componentName, sourceText, feedback); err != nil {
		return TranslationResult{}, err
	}
	if t.LLM == nil {
		return TranslationResult{}, &TranslationError{Stage: stageInterpretation, Err: llm.ErrNotImplemented}
	}

	start := time.Now()

	plan, err := t.interpret(ctx, componentName, sourceText, feedback)
	if err != nil {
		return TranslationResult{}, err
	}
	telemetry.Info("translate.interpretation", map[string]any{
		"component":  componentName,
		"confidence": plan.Confidence,
		"plan_steps": len(plan.ChangePlan),
	})

	gen, err := t.generateChanges(ctx, sourceText, plan)
	if err != nil {
		return TranslationResult{}, err
	}
	telemetry.Info("translate.code_generation", map[string]any{
		"component": componentName,
		"changes":   len(gen.ActionableChanges),
	})

	result := TranslationResult{
		Interpretation:              plan.Interpretation,
		ActionableChanges:           gen.ActionableChanges,
		ExternalDependenciesNoted:   gen.ExternalDependenciesNoted,
		ParentComponentChangesNoted: gen.ParentComponentChangesNoted,
		Confidence:                  plan.Confidence,
		Reasoning:                   plan.Reasoning,
	}
	if err := result.validate(); err != nil {
		return TranslationResult{}, &TranslationError{Stage: stageAssembly, Err: &ValidationError{Stage: stageAssembly, Reason: err.Error()}}
	}

	metrics.ObserveTranslationDuration(time.Since(start))
	return result, nil
}

func (t *Translator) interpret(ctx context.Context, componentName, sourceText, feedback string) (InterpretationPlan, error) {
	prompt := llm.BuildInterpretationPrompt(componentName, sourceText, feedback)

	raw, err := t.invokeModel(ctx, prompt)
	if err != nil {
		return InterpretationPlan{}, &TranslationError{Stage: stageInterpretation, Err: err}
	}

	// Validation runs outside the retried closure: a schema mismatch is a
	// deterministic model answer, not a transient fault worth re-calling for.
	plan, err := parseInterpretationPlan(raw)
	if err != nil {
		return InterpretationPlan{}, &TranslationError{Stage: stageInterpretation, Err: err}
	}
	return plan, nil
}

func (t *Translator) generateChanges(ctx context.Context, sourceText string, plan InterpretationPlan) (CodeGenResult, error) {
	steps := make([]llm.PlanStep, 0, len(plan.ChangePlan))
	for _, s := range plan.ChangePlan {
		steps = append(steps, llm.PlanStep{
			ElementToChange: s.ElementToChange,
			ChangeRequired:  s.ChangeRequired,
		})
	}
	prompt := llm.BuildCodeGenPrompt(sourceText, steps)

	raw, err := t.invokeModel(ctx, prompt)
	if err != nil {
		return CodeGenResult{}, &TranslationError{Stage: stageCodeGen, Err: err}
	}

	result, err := parseCodeGenResult(raw)
	if err != nil {
		return CodeGenResult{}, &TranslationError{Stage: stageCodeGen, Err: err}
	}
	return result, nil
}

func (t *Translator) invokeModel(ctx context.Context, prompt string) (string, error) {
	// Zero means unset and picks the default; retryWithBackoff clamps a
	// negative value to a single attempt.
	maxRetries := t.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}
	baseDelay := t.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}

	start := time.Now()
	raw, err := retryWithBackoff(ctx, func() (string, error) {
		return t.LLM.Generate(ctx, prompt)
	}, maxRetries, baseDelay, t.sleep)
	metrics.ObserveModelCallDuration(time.Since(start))
	return raw, err
}

func validateTranslateInput(componentName, sourceText, feedback string) error {
	if len(componentName) < minComponentNameLen {
		return &InvalidInputError{Field: "componentName", Reason: "component name is required"}
	}
	if len(componentName) > maxComponentNameLen {
		return &InvalidInputError{Field: "componentName", Reason: fmt.Sprintf("component name longer than %d characters", maxComponentNameLen)}
	}
	if len(sourceText) < minSourceLen {
		return &InvalidInputError{Field: "sourceText", Reason: fmt.Sprintf("component code shorter than %d characters", minSourceLen)}
	}
	if len(sourceText) > maxSourceLen {
		return &InvalidInputError{Field: "sourceText", Reason: fmt.Sprintf("component code longer than %d characters", maxSourceLen)}
	}
	if len(feedback) < minFeedbackLen {
		return &InvalidInputError{Field: "feedback", Reason: fmt.Sprintf("feedback shorter than %d characters", minFeedbackLen)}
	}
	if len(feedback) > maxFeedbackLen {
		return &InvalidInputError{Field: "feedback", Reason: fmt.Sprintf("feedback longer than %d characters", maxFeedbackLen)}
	}
	return nil
}
