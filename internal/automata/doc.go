// Package automata provides small general-purpose automata for building and
// exercising networks: a counting source, a recording sink, a FIFO relay, a
// timer-driven ticker, and a composer that creates and binds a whole network
// from a Plan.
//
// Every automaton here follows the same pattern: preconditions are pure
// reads of local state and binding counts, effects change local state, and
// Schedule queues exactly the actions whose preconditions currently hold.
// An automaton with nothing enabled queues nothing, which is what lets a
// finite network reach its fixed point.
package automata
