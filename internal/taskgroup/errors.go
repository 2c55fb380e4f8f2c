package taskgroup

import "fmt"

// InvariantViolationError means aggregation found result items that were
// never requested: a request/response mismatch too serious to silently
// continue. It aborts the owning group's combination step only; other
// groups are unaffected.
type InvariantViolationError struct {
	Group string
	Extra []string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("taskgroup %s: %d result items were never requested (first: %q)",
		e.Group, len(e.Extra), e.Extra[0])
}
