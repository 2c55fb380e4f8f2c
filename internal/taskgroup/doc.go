// Package taskgroup drives the submit, poll, reconcile, resubmit cycle
// for the set of tasks covering one logical input partition, and combines
// their outputs once every task has settled.
//
// Taskgroups are independent of one another; nothing here is shared
// across groups. Within a group, remote calls for different tasks run
// concurrently under a configured limit, while all mutation of the
// group's task list goes through the group lock.
package taskgroup
