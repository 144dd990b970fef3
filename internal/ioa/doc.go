// Package ioa defines the contract between automata and the runtime that
// executes them.
//
// An automaton is a state machine whose actions are one of three kinds:
//
//   - Output: locally controlled; has a precondition and an effect. When the
//     output is bound, its effect's value is delivered to every bound input.
//   - Input: always enabled; has only an effect (Deliver). Inputs run only
//     because a bound output fired.
//   - Internal: locally controlled; has a precondition and an effect, and is
//     invisible to other automata.
//
// Every action is also unvalued or valued, and unparameterized,
// parameterized or auto-parameterized. Auto-parameterized actions receive the
// Aid of the automaton on the other side of the binding as their parameter.
//
// # Schedule
//
// The runtime never guesses which actions might be enabled. After every
// effect, and after every structural notification, it calls the
// automaton's Schedule method (or the action's own Schedule override), and
// the automaton re-arms whatever it wants to run next through its Context.
// A precondition is re-checked immediately before the effect runs; if it no
// longer holds the effect is skipped, but Schedule still runs.
//
// # Structural operations
//
// Create, Bind, Unbind and Destroy are requests. They are queued and applied
// later, and their results arrive on the channel each request returns.
// Automata that take part in a binding, or whose child goes away, receive an
// Event in their Mailbox. In both cases the automaton's Schedule runs right
// after delivery.
//
// ActionRef values are the only thing that crosses from automata into the
// runtime queues: an Aid, an action name and an optional parameter. They
// compare with == and are safe to use as map keys.
package ioa
