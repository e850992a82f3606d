// Package scheduler implements an in-process deadline scheduler.
//
// A single goroutine owns a min-heap of scheduled tasks ordered by deadline
// (ties broken by registration order) and a set of cancelled ids. Clients talk
// to it only through an unbounded command channel: Add commands carry a
// one-shot reply channel for the assigned ScheduleID, Remove commands are
// fire-and-forget. Each loop iteration races the next command against the
// earliest deadline, then either applies the command or runs every task that
// is due.
//
// Cancellation is lazy: Remove only records a tombstone, and the entry is
// discarded when it reaches the top of the heap. Callbacks run on the loop
// goroutine; a slow callback delays every other task and all command
// processing, so long work should be handed off to another goroutine.
//
// Repeating tasks are rescheduled relative to the instant their callback
// returned, so drift accumulates and missed periods are skipped rather than
// replayed.
package scheduler
