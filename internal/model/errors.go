package model

import "fmt"

// ConstructionError reports malformed or inconsistent market data. It names
// the offending entity so single-run callers get an actionable message.
type ConstructionError struct {
	Entity string
	Reason string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("model construction: %s: %s", e.Entity, e.Reason)
}
