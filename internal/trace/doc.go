// Package trace defines the run journal: the ordered record of everything a
// scheduler did during one run.
//
// Every structural request (create, bind, unbind, destroy) and every executed
// action becomes one Entry stamped with the run id and a sequence number from
// a logical Clock. Entries are appended to a Journal as they happen. The
// in-memory Recorder backs tests and the harness; internal/store and
// internal/store/boltstore persist entries for the trace command.
//
// Sequence numbers reflect the order in which the scheduler observed events.
// Under the cooperative scheduler this is a total order and repeated runs of
// the same topology produce identical journals (apart from the run id). Under
// the worker pool only the per-automaton order is stable.
package trace
