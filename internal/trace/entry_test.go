package trace

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ioa/internal/ioa"
)

func sampleRun(runID string) []Entry {
	entries := []Entry{
		RunStart("cooperative"),
		Create(ioa.NoAid, ioa.CreateResult{Code: ioa.AutomatonCreated, Aid: 0}),
		Create(0, ioa.CreateResult{Code: ioa.AutomatonCreated, Key: "src", Aid: 1}),
		Create(0, ioa.CreateResult{Code: ioa.AutomatonCreated, Key: "sink", Aid: 2}),
		Bind(0, ioa.BindResult{Code: ioa.Bound, Key: "src.out->sink.in", Output: ioa.Ref(1, "out"), Input: ioa.Ref(2, "in")}),
		Execute(ioa.Ref(1, "out"), true, []ioa.ActionRef{ioa.Ref(2, "in")}),
		Execute(ioa.Ref(1, "out"), false, nil),
		Unbind(0, ioa.UnbindResult{Code: ioa.BindKeyDNE, Key: "nope"}),
		Destroy(0, ioa.DestroyResult{Code: ioa.AutomatonDestroyed, Key: "src", Aid: 1}),
		RunStop(2, nil),
	}
	for i := range entries {
		entries[i].RunID = runID
		entries[i].Seq = int64(i + 1)
	}
	return entries
}

func TestConstructors(t *testing.T) {
	e := Execute(ioa.RefParam(3, "send", 7), true, []ioa.ActionRef{ioa.RefParam(4, "recv", 3)})
	p := int64(7)
	want := Entry{
		Op:        OpExecute,
		Aid:       3,
		Target:    -1,
		Action:    "send",
		Param:     &p,
		Result:    ResultFired,
		Delivered: []Endpoint{{Aid: 4, Action: "recv"}},
	}
	if diff := cmp.Diff(want, e); diff != "" {
		t.Errorf("Execute() mismatch (-want +got):\n%s", diff)
	}

	stop := RunStop(0, errors.New("boom"))
	assert.Equal(t, "error", stop.Result)
	assert.Equal(t, "boom", stop.Detail)

	create := Create(ioa.NoAid, ioa.CreateResult{Code: ioa.AutomatonCreated, Aid: 0})
	assert.Equal(t, -1, create.Aid)
	assert.Equal(t, 0, create.Target)
}

func TestNamesAndSummarize(t *testing.T) {
	entries := sampleRun("r")

	assert.Equal(t, map[int]string{0: "", 1: "src", 2: "sink"}, Names(entries))

	got := Summarize(entries)
	want := Stats{Entries: 10, Created: 3, Destroyed: 1, Bound: 1, Executed: 2, Fired: 1, Deliveries: 1}
	assert.Equal(t, want, got)
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder()
	for _, e := range append(sampleRun("a"), sampleRun("b")...) {
		require.NoError(t, r.Append(ctx, e))
	}

	runs, err := r.Runs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Run{
		{ID: "a", Detail: "cooperative", Entries: 10},
		{ID: "b", Detail: "cooperative", Entries: 10},
	}, runs)

	got, err := r.Entries(ctx, "b")
	require.NoError(t, err)
	if diff := cmp.Diff(sampleRun("b"), got); diff != "" {
		t.Errorf("Entries(b) mismatch (-want +got):\n%s", diff)
	}

	r.Reset()
	assert.Empty(t, r.All())
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleRun("r"), false))

	want := strings.Join([]string{
		"  [1] run_start cooperative",
		`  [2] create by=-1 key="" -> AUTOMATON_CREATED aid=0`,
		`  [3] create by=0 key="src" -> AUTOMATON_CREATED aid=1`,
		`  [4] create by=0 key="sink" -> AUTOMATON_CREATED aid=2`,
		`  [5] bind by=0 key="src.out->sink.in" 1.out -> 2.in: BOUND`,
		"  [6] execute 1.out fired -> 2.in",
		`  [8] unbind by=0 key="nope" -> BIND_KEY_DNE`,
		`  [9] destroy by=0 key="src" -> AUTOMATON_DESTROYED aid=1`,
		"  [10] run_stop ok destroyed=2",
	}, "\n") + "\n"
	assert.Equal(t, want, buf.String())

	buf.Reset()
	require.NoError(t, WriteText(&buf, sampleRun("r"), true))
	assert.Contains(t, buf.String(), "[7] execute 1.out skipped")
}

func TestWriteJSONLines(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONLines(&buf, sampleRun("r")[5:6]))
	assert.JSONEq(t,
		`{"run_id":"r","seq":6,"op":"execute","aid":1,"target":-1,"action":"out","result":"fired","delivered":[{"aid":2,"action":"in"}]}`,
		buf.String())
}
