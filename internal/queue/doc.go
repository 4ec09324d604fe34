// Package queue tracks generation jobs from submission until they succeed or
// are dismissed.
//
// A Manager owns every job record and the set of job ids whose generate call
// is in flight. Nothing outside the Manager mutates either; callers read
// copies through Snapshot, Get and Subscribe.
//
// Lifecycle of a record:
//
//	queued -> generating -> removed (succeeded)
//	                     -> failed  -> removed (dismissed)
//	queued -> failed (reference image upload failed)
//
// Enqueue creates the record and starts it at once. A submission that still
// has reference images to prepare uses Reserve instead: the record is
// visible as queued while the images are prepared, then Dispatch starts it
// or Fail marks it failed. Each reservation carries a Ticket, so updates
// meant for an earlier submission of the same id are dropped.
//
// There is no retry, no timeout and no cancellation. Dismiss only hides a
// record; if its generate call settles later the update is dropped. Jobs
// run concurrently with no cap, so completion order is independent of
// submission order.
package queue
