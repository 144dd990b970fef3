// Package network loads declarative topologies: named automata from the
// utility catalog and the bindings between them.
//
// Topologies can be written in YAML, CUE or HCL; the file extension picks
// the decoder. Every name and endpoint read from a file is trimmed and put
// in Unicode NFC so that visually equal names compare equal.
//
//	name: pipeline
//	automata:
//	  - name: src
//	    type: source
//	    count: 3
//	  - name: sink
//	    type: sink
//	bindings:
//	  - output: src.out
//	    input: sink.in
//
// A validated Topology turns into an automata.Plan, and from there into a
// root generator that builds the network when run.
package network
