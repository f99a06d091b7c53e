package analyses

import (
	"bytes"
	"encoding/json"
	"errors"
)

const (
	stageInterpretation = "interpretation"
	stageCodeGen        = "code_generation"
	stageAssembly       = "assembly"
)

// parseInterpretationPlan decodes and validates a stage-one model response.
func parseInterpretationPlan(raw string) (InterpretationPlan, error) {
	var plan InterpretationPlan
	if err := decodeStrict(raw, &plan); err != nil {
		return InterpretationPlan{}, &ValidationError{Stage: stageInterpretation, Reason: err.Error()}
	}
	if err := plan.validate(); err != nil {
		return InterpretationPlan{}, &ValidationError{Stage: stageInterpretation, Reason: err.Error()}
	}
	return plan, nil
}

// parseCodeGenResult decodes and validates a stage-two model response.
func parseCodeGenResult(raw string) (CodeGenResult, error) {
	var result CodeGenResult
	if err := decodeStrict(raw, &result); err != nil {
		return CodeGenResult{}, &ValidationError{Stage: stageCodeGen, Reason: err.Error()}
	}
	if err := result.validate(); err != nil {
		return CodeGenResult{}, &ValidationError{Stage: stageCodeGen, Reason: err.Error()}
	}
	return result, nil
}

// decodeStrict rejects trailing garbage after the top-level JSON value. Unknown
// fields are tolerated since models sometimes add commentary keys.
func decodeStrict(raw string, dst any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON value")
	}
	return nil
}
