// Package workpackage defines the unit of scheduling: one tile of one
// execution group's output operation.
//
// # Arena
//
// All packages of one evaluation live in an Arena and refer to each other by
// stable integer index. Parent and child links are index lists, so the graph
// cannot dangle once the arena is dropped at the end of an evaluation.
//
// # Gating
//
// A package may be handed to a worker only when every parent has executed.
// This is tracked with an atomic parent counter rather than by locking at
// dispatch time: the completion of a parent decrements the counter of each
// child, and the child becomes eligible when it reaches zero and carries a
// priority.
//
// # State
//
// State only moves forward (NotScheduled -> Scheduled -> Executed). Transitions
// are compare-and-swap so two goroutines racing to schedule the same package
// cannot both win.
package workpackage
