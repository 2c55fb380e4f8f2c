// Package reconcile diffs what a completed task's remote side confirms it
// received against what it actually produced, classifies the discrepancy,
// and decides whether a follow-up task is warranted.
//
// The accounting invariant lives here: every item a task was responsible
// for ends up counted as produced, explicitly failed, or missing. Nothing
// is silently dropped.
package reconcile
