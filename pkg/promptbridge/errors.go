package promptbridge

import "fmt"

// Precondition condition names surfaced by the bridge. These are write-path
// failures the caller could have checked, so they are explicit errors rather
// than structured absence.
const (
	ConditionNoMapping  = "no prompt mapping registered for prompt"
	ConditionNoKey      = "no config key found for prompt"
	ConditionNoOverride = "no override found for prompt in experiment"
)

// PreconditionError reports a named, actionable precondition failure during
// a bridge write operation.
type PreconditionError struct {
	Condition  string // One of the Condition* names
	ProjectID  string
	PromptName string
}

// Error implements the error interface.
func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s [project=%s, prompt=%s]", e.Condition, e.ProjectID, e.PromptName)
}

// Is reports whether target names the same condition, so callers can match
// with errors.Is against a bare condition error.
func (e *PreconditionError) Is(target error) bool {
	other, ok := target.(*PreconditionError)
	return ok && other.Condition == e.Condition
}

// Condition sentinels for errors.Is matching.
var (
	ErrNoMappingForPrompt  = &PreconditionError{Condition: ConditionNoMapping}
	ErrNoKeyForPrompt      = &PreconditionError{Condition: ConditionNoKey}
	ErrNoOverrideForPrompt = &PreconditionError{Condition: ConditionNoOverride}
)

// newPreconditionError creates a precondition error for a concrete prompt.
func newPreconditionError(condition, projectID, promptName string) *PreconditionError {
	return &PreconditionError{
		Condition:  condition,
		ProjectID:  projectID,
		PromptName: promptName,
	}
}
