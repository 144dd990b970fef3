// Package harness runs scenario files against the schedulers.
//
// A scenario names a topology file, picks a scheduler, and lists assertions
// checked against the run's journal.
//
// # Scenario Format
//
//	name: pipeline
//	description: "A source feeds a sink through a relay"
//	topology: ../topologies/pipeline.yaml
//	scheduler: cooperative
//	workers: 2
//	assertions:
//	  - type: trace_count
//	    action: src.out
//	    count: 3
//	  - type: trace_order
//	    actions: [src.out, mid.out]
//	  - type: deliveries
//	    action: sink.in
//	    count: 3
//	  - type: bind_result
//	    key: src.out->mid.in
//	    result: BOUND
//
// The topology path is relative to the scenario file.
//
// # Assertion Types
//
//   - trace_count: an action fired exactly N times
//   - trace_order: actions first fired in the listed order
//   - deliveries: an input action received exactly N values
//   - bind_result: the bind made under key answered with result
//
// Actions are written "automaton.action", where automaton is the name the
// topology gave it.
//
// # Deterministic Testing
//
// Scenarios run with a constant run id and the scheduler's logical clock, so
// a scenario run twice on the cooperative scheduler yields byte-identical
// journals. RunWithGolden compares that journal against a golden file.
package harness
