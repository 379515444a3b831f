// Package failure defines the error taxonomy shared by the pipeline stages.
package failure

import (
	"errors"
	"strings"
)

// Sentinel errors. Stage errors wrap exactly one of them and are matched with errors.Is.
var (
	ErrExtraction             = errors.New("extraction failure")
	ErrEvaluation             = errors.New("evaluation failure")
	ErrNotificationGeneration = errors.New("notification generation failure")
	ErrTransport              = errors.New("transport failure")
	ErrConfiguration          = errors.New("configuration error")
)

// ConfigurationError aggregates every configuration problem found during validation.
type ConfigurationError struct {
	Problems []string
}

func (e *ConfigurationError) Error() string {
	if e == nil || len(e.Problems) == 0 {
		return ErrConfiguration.Error()
	}
	return ErrConfiguration.Error() + ": " + strings.Join(e.Problems, "; ")
}

// Is reports ErrConfiguration as the kind of this error.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Add records a problem. Blank problems are ignored.
func (e *ConfigurationError) Add(problem string) {
	problem = strings.TrimSpace(problem)
	if problem == "" {
		return
	}
	e.Problems = append(e.Problems, problem)
}

// OrNil returns nil when no problems were recorded.
func (e *ConfigurationError) OrNil() error {
	if e == nil || len(e.Problems) == 0 {
		return nil
	}
	return e
}
