// Package model is the registry of live automata.
//
// The Model owns every automaton instance, keyed by Aid, together with the
// bookkeeping that relates them:
//
//   - creation ownership: each automaton knows its parent and the create
//     key it was made under, and each parent knows its children by key;
//   - bindings: each bound output has one binding holding, in attachment
//     order, the edges that connect it to inputs. Every edge remembers the
//     automaton that made it (the binder) and the binder's bind key.
//
// Everything else refers to automata by Aid only; nothing outside the Model
// holds an instance.
//
// # Locking
//
// One reader/writer lock guards the registry. Create, Bind, Unbind and
// Destroy take it exclusively. Execute takes it shared, so unrelated
// automata run in parallel. Each record also has its own mutex, held while
// that automaton's code runs, so no two goroutines are ever inside the same
// instance at once. Record mutexes are never nested.
//
// # Failures
//
// Structural failures are result codes. Operations whose caller no longer
// exists, or Execute on a destroyed automaton, return sentinel errors so the
// scheduler can report and drop them. Broken internal invariants panic.
package model
