package harness

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/ioa/internal/trace"
)

// Snapshot renders a scenario's journal for golden comparison: a header
// line, then one line per entry, skipped actions omitted.
func Snapshot(name string, entries []trace.Entry) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "scenario: %s\n", name)
	trace.WriteText(&buf, entries, false)
	return buf.Bytes()
}

// AssertGolden compares result's journal against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Snapshot(name, result.Trace))
}
