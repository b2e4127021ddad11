package credential

import "fmt"

// NoEligibleCredentialError is returned by Store.Pick when no credential can
// serve the requested model, either because none is configured for it or
// because every eligible credential is currently banned.
type NoEligibleCredentialError struct {
	// Model is the requested model alias.
	Model string

	// AllBanned distinguishes an exhausted pool from an unconfigured one.
	AllBanned bool
}

// Error implements the error interface.
func (e *NoEligibleCredentialError) Error() string {
	if e.AllBanned {
		return fmt.Sprintf("all credentials for model %q are temporarily banned", e.Model)
	}
	return fmt.Sprintf("no credentials configured for model %q", e.Model)
}
