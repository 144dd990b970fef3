// Package engine schedules I/O automata.
//
// Two schedulers share one implementation of ioa.System (core) and differ
// only in where runnables wait and who runs them:
//
// Cooperative runs everything on the goroutine that called Run. Each loop
// iteration waits in poll (zero timeout when work is queued), promotes due
// timers and ready descriptors, then runs one structural command and one
// action. Execution order is exactly queue order.
//
// Pool runs actions on N workers, each owning a blocking queue. An action
// is routed by its automaton's aid, so one automaton's actions never run
// concurrently and keep their queue order. A config goroutine applies
// structural commands and an io goroutine waits in poll on timers,
// registered descriptors and a self-pipe. The goroutines form an errgroup.
//
// RUNNABLES AND THE FIXED POINT:
//
// A runnable is a queued action, a queued structural command, a pending
// timer or a descriptor registration. The core counts them. Every producer
// takes its hold before the consumer of the work it replaces releases, so
// the count only reaches zero when nothing is queued, nothing waits and
// nothing runs. That is the fixed point: Run destroys every automaton,
// discards leftovers and returns, leaving the scheduler ready to run again.
//
// DEDUPLICATION:
//
// Exec queues refuse an ActionRef equal to one still waiting. Timers keep
// the earliest deadline per ActionRef; descriptor registrations keep the
// first action per descriptor and direction.
//
// RESULTS:
//
// Structural requests return a buffered channel. When the command runs,
// the result is sent on it and it is closed, and the requester's Schedule
// runs; if the requester no longer exists the channel is closed empty.
// Requests against destroyed automata are logged at debug level and
// otherwise ignored.
//
// Descriptor readiness uses poll(2) through golang.org/x/sys/unix, so the
// package builds only on unix systems.
package engine
