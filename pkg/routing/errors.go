package routing

import "fmt"

// UnknownModelError is returned when no binding exists for a model alias.
type UnknownModelError struct {
	Model string
}

// Error implements the error interface.
func (e *UnknownModelError) Error() string {
	return fmt.Sprintf("model %q is not configured", e.Model)
}
