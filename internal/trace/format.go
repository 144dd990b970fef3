package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/ioa/internal/ioa"
)

// Stats summarizes a run.
type Stats struct {
	Entries    int `json:"entries"`
	Created    int `json:"created"`
	Destroyed  int `json:"destroyed"`
	Bound      int `json:"bound"`
	Unbound    int `json:"unbound"`
	Executed   int `json:"executed"`
	Fired      int `json:"fired"`
	Deliveries int `json:"deliveries"`
}

// Summarize counts what happened in entries.
func Summarize(entries []Entry) Stats {
	s := Stats{Entries: len(entries)}
	for _, e := range entries {
		switch e.Op {
		case OpCreate:
			if e.Result == ioa.AutomatonCreated.String() {
				s.Created++
			}
		case OpDestroy:
			if e.Result == ioa.AutomatonDestroyed.String() {
				s.Destroyed++
			}
		case OpBind:
			if e.Result == ioa.Bound.String() {
				s.Bound++
			}
		case OpUnbind:
			if e.Result == ioa.Unbound.String() {
				s.Unbound++
			}
		case OpExecute:
			s.Executed++
			if e.Result == ResultFired {
				s.Fired++
			}
			s.Deliveries += len(e.Delivered)
		}
	}
	return s
}

// Line renders one entry on a single line.
func Line(e Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s", e.Seq, e.Op)

	switch e.Op {
	case OpRunStart:
		fmt.Fprintf(&b, " %s", e.Detail)
	case OpRunStop:
		fmt.Fprintf(&b, " %s %s", e.Result, e.Detail)
	case OpCreate, OpDestroy:
		fmt.Fprintf(&b, " by=%d key=%q -> %s", e.Aid, e.Key, e.Result)
		if e.Target >= 0 {
			fmt.Fprintf(&b, " aid=%d", e.Target)
		}
	case OpBind:
		fmt.Fprintf(&b, " by=%d key=%q %s -> %s: %s", e.Aid, e.Key, e.Output, e.Input, e.Result)
	case OpUnbind:
		fmt.Fprintf(&b, " by=%d key=%q -> %s", e.Aid, e.Key, e.Result)
	case OpExecute:
		fmt.Fprintf(&b, " %d.%s", e.Aid, e.Action)
		if e.Param != nil {
			fmt.Fprintf(&b, "[%d]", *e.Param)
		}
		fmt.Fprintf(&b, " %s", e.Result)
		if len(e.Delivered) > 0 {
			parts := make([]string, len(e.Delivered))
			for i, d := range e.Delivered {
				parts[i] = fmt.Sprintf("%d.%s", d.Aid, d.Action)
			}
			fmt.Fprintf(&b, " -> %s", strings.Join(parts, ", "))
		}
	}
	return b.String()
}

// WriteText writes entries one per line, skipping actions that did not fire
// unless verbose is set.
func WriteText(w io.Writer, entries []Entry, verbose bool) error {
	for _, e := range entries {
		if e.Op == OpExecute && e.Result == ResultSkipped && !verbose {
			continue
		}
		if _, err := fmt.Fprintln(w, "  "+Line(e)); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSONLines writes entries as newline-delimited JSON.
func WriteJSONLines(w io.Writer, entries []Entry) error {
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encode entry %d: %w", e.Seq, err)
		}
	}
	return nil
}
