// Package executor drives one evaluation of an operation graph.
//
// The ExecutionSystem builds the work package graph across execution groups,
// propagates priority from output groups back to their inputs, and hands
// eligible packages to the WorkScheduler tier by tier: High, then Medium,
// then Low. Fast calculation only runs the High tier.
//
// A package is eligible once it has a priority, is not scheduled yet, and
// every parent has executed. The completion callback of each package
// releases its children and wakes the controlling goroutine, which waits on a
// notification channel rather than polling.
package executor
