package testutil

// ConstantRunID returns the same run id every time.
//
// A scenario run twice with a ConstantRunID produces byte-identical journals,
// which golden comparisons rely on. Unlike trace.FixedGenerator it never runs
// out.
//
// ConstantRunID is stateless and safe for concurrent use.
type ConstantRunID string

// DefaultRunID is used when a ConstantRunID is empty.
const DefaultRunID = "test-run"

// Generate returns the fixed run id.
func (c ConstantRunID) Generate() string {
	if c == "" {
		return DefaultRunID
	}
	return string(c)
}
