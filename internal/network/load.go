package network

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

// Format is a topology file syntax.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
	FormatHCL  Format = "hcl"
)

// Error codes carried by LoadError.
const (
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnknownFormat = "UNKNOWN_FORMAT"
	ErrCodeParse         = "PARSE_FAILED"
	ErrCodeInvalid       = "INVALID"
)

// LoadError reports why a topology file could not be loaded.
type LoadError struct {
	Code    string
	Path    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	case ".hcl":
		return FormatHCL, nil
	}
	return "", &LoadError{
		Code:    ErrCodeUnknownFormat,
		Path:    path,
		Message: "expected a .yaml, .yml, .cue or .hcl file",
	}
}

// Load reads, normalizes and validates the topology at path.
func Load(path string) (*Topology, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Path: path, Message: "cannot read file", Err: err}
	}
	t, err := Parse(data, format, filepath.Base(path))
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) && le.Path == "" {
			le.Path = path
		}
		return nil, err
	}
	return t, nil
}

// Parse decodes data in format, normalizes and validates it. filename only
// labels positions in error messages.
func Parse(data []byte, format Format, filename string) (*Topology, error) {
	var (
		t   *Topology
		err error
	)
	switch format {
	case FormatYAML:
		t, err = decodeYAML(data)
	case FormatCUE:
		t, err = decodeCUE(data, filename)
	case FormatHCL:
		t, err = decodeHCL(data, filename)
	default:
		return nil, &LoadError{Code: ErrCodeUnknownFormat, Message: fmt.Sprintf("unknown format %q", format)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeParse, Message: err.Error(), Err: err}
	}

	t.normalize()
	if err := t.Validate(); err != nil {
		return nil, &LoadError{Code: ErrCodeInvalid, Message: err.Error(), Err: err}
	}
	return t, nil
}

func decodeYAML(data []byte) (*Topology, error) {
	var t Topology
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty document")
		}
		return nil, fmt.Errorf("yaml: %w", err)
	}
	return &t, nil
}

func decodeCUE(data []byte, filename string) (*Topology, error) {
	v := cuecontext.New().CompileBytes(data, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("cue: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("cue: %w", err)
	}
	var t Topology
	if err := v.Decode(&t); err != nil {
		return nil, fmt.Errorf("cue: %w", err)
	}
	return &t, nil
}

type hclTopology struct {
	Name     string         `hcl:"name,optional"`
	Automata []hclAutomaton `hcl:"automaton,block"`
	Bindings []hclBinding   `hcl:"binding,block"`
}

type hclAutomaton struct {
	Name   string `hcl:"name,label"`
	Type   string `hcl:"type"`
	Count  int    `hcl:"count,optional"`
	Period string `hcl:"period,optional"`
}

type hclBinding struct {
	Output string `hcl:"output"`
	Input  string `hcl:"input"`
}

func decodeHCL(data []byte, filename string) (*Topology, error) {
	f, diags := hclparse.NewParser().ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("hcl: %w", diags)
	}
	var raw hclTopology
	if diags := gohcl.DecodeBody(f.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("hcl: %w", diags)
	}

	t := &Topology{Name: raw.Name}
	for _, a := range raw.Automata {
		t.Automata = append(t.Automata, Automaton(a))
	}
	for _, b := range raw.Bindings {
		t.Bindings = append(t.Bindings, Binding(b))
	}
	return t, nil
}

func (t *Topology) normalize() {
	t.Name = clean(t.Name)
	for i := range t.Automata {
		a := &t.Automata[i]
		a.Name = clean(a.Name)
		a.Type = strings.ToLower(clean(a.Type))
		a.Period = clean(a.Period)
	}
	for i := range t.Bindings {
		b := &t.Bindings[i]
		b.Output = clean(b.Output)
		b.Input = clean(b.Input)
	}
}

func clean(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
