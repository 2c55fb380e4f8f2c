// Package task defines the unit of remote work: an immutable input set,
// a sanitized request name, the remote identity acquired on submission,
// and the last fetched status.
//
// A task's input set never changes after construction. Follow-up work for
// items that produced no result is always a new Task instance synthesized
// by the reconciler, never a mutation of the original.
package task
