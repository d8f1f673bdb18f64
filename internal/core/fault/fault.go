// Package fault defines the error taxonomy that crosses the engine
// boundary. Everything else is absorbed where it happens.
package fault

import "fmt"

// ContextOverflowError reports that the input for a call would not fit in
// the target model's context window once the response reservation is
// subtracted. It is surfaced to the caller as a "try a shorter question"
// failure, never silently truncated.
type ContextOverflowError struct {
	Model          string
	InputTokens    int
	ContextWindow  int
	ReservedTokens int
}

func (e *ContextOverflowError) Error() string {
	return fmt.Sprintf("context overflow for %s: %d input tokens exceed %d window minus %d reserved",
		e.Model, e.InputTokens, e.ContextWindow, e.ReservedTokens)
}

// ProviderError reports a network, auth or rate-limit failure from a
// completion or embedding capability. The turn produces no answer.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider failure during %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Provider wraps err as a ProviderError unless it already is one or is a
// ContextOverflowError, which must keep its identity.
func Provider(op string, err error) error {
	if err == nil {
		return nil
	}
	switch err.(type) {
	case *ProviderError, *ContextOverflowError:
		return err
	}
	return &ProviderError{Op: op, Err: err}
}
