// Package steps implements the catalog of typed computation nodes a test
// case is built from, and the compiler that lowers a graph of them into an
// executable Python program. Each variant lives in its own file and declares
// its socket arity, its validation rules and its code emission, mirroring
// how nodes plug into the graph engine.
package steps

import (
	"encoding/json"
	"fmt"

	"gradeflow/api/pkg/pycode"
)

// StepType discriminates the step variants on the wire.
type StepType string

const (
	StepInput        StepType = "INPUT_STEP"
	StepOutput       StepType = "OUTPUT_STEP"
	StepRunFunction  StepType = "PY_RUN_FUNCTION_STEP"
	StepObjectAccess StepType = "OBJECT_ACCESS_STEP"
	StepStringMatch  StepType = "STRING_MATCH_STEP"
	StepLoop         StepType = "LOOP_STEP"
	StepIfElse       StepType = "IF_ELSE_STEP"
)

// shorthands feed the generated variable names; they keep identifiers short
// while staying recognisable in the assembled program.
var shorthands = map[StepType]string{
	StepInput:        "in",
	StepOutput:       "out",
	StepRunFunction:  "py_run_func",
	StepObjectAccess: "obj_access",
	StepStringMatch:  "str_match",
	StepLoop:         "loop",
	StepIfElse:       "if_else",
}

// Bound is an inclusive socket-count range; -1 leaves that side open.
type Bound struct {
	Min, Max int
}

func (b Bound) contains(n int) bool {
	if b.Min >= 0 && n < b.Min {
		return false
	}
	if b.Max >= 0 && n > b.Max {
		return false
	}
	return true
}

func (b Bound) String() string {
	switch {
	case b.Min == b.Max:
		return fmt.Sprintf("exactly %d", b.Min)
	case b.Min < 0 && b.Max >= 0:
		return fmt.Sprintf("at most %d", b.Max)
	case b.Min >= 0 && b.Max < 0:
		return fmt.Sprintf("at least %d", b.Min)
	default:
		return fmt.Sprintf("between %d and %d", b.Min, b.Max)
	}
}

// Arity constrains the number of sockets per quadrant of a step.
type Arity struct {
	DataIn, DataOut, ControlIn, ControlOut Bound
}

// defaultControl caps a control quadrant at a single socket, the default
// chaining contract shared by most steps.
var defaultControl = Bound{Min: -1, Max: 1}

// Step is a typed node of a compute graph. The variant set is closed: every
// implementation lives in this package, is decoded through DecodeStep and is
// dispatched by type switch rather than an open registry.
type Step interface {
	ID() int
	Type() StepType
	Inputs() []*Socket
	Outputs() []*Socket

	// Arity declares the socket-count contract enforced at validation.
	Arity() Arity
	// Validate checks variant-specific structure beyond arity.
	Validate() error
	// Emit produces the statements realising this step. Inputs arrive as
	// already-named variables and threaded files via the context.
	Emit(ctx *EmitContext) ([]pycode.Stmt, error)

	// subgraphAliases names the control sockets that own subgraphs.
	subgraphAliases() []string
	base() *Base
}

// Base carries the identity and socket set shared by every step variant.
type Base struct {
	StepID int       `json:"id"`
	Kind   StepType  `json:"type"`
	In     []*Socket `json:"inputs"`
	Out    []*Socket `json:"outputs"`
}

func (b *Base) base() *Base        { return b }
func (b *Base) ID() int            { return b.StepID }
func (b *Base) Type() StepType     { return b.Kind }
func (b *Base) Inputs() []*Socket  { return b.In }
func (b *Base) Outputs() []*Socket { return b.Out }

func (b *Base) subgraphAliases() []string { return nil }

// normalise stamps each socket with its direction. Called once after decode
// or construction; alias lookups depend on it.
func (b *Base) normalise() {
	for _, s := range b.In {
		s.dir = SocketIn
	}
	for _, s := range b.Out {
		s.dir = SocketOut
	}
}

func (b *Base) socket(id string) (*Socket, bool) {
	for _, s := range b.In {
		if s.ID == id {
			return s, true
		}
	}
	for _, s := range b.Out {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// socketByAlias finds a socket by its TYPE.DIR.LABEL handle.
func (b *Base) socketByAlias(alias string) (*Socket, bool) {
	for _, s := range b.In {
		if s.Alias() == alias {
			return s, true
		}
	}
	for _, s := range b.Out {
		if s.Alias() == alias {
			return s, true
		}
	}
	return nil, false
}

func (b *Base) dataIn() []*Socket  { return filterSockets(b.In, true) }
func (b *Base) dataOut() []*Socket { return filterSockets(b.Out, true) }

func filterSockets(sockets []*Socket, data bool) []*Socket {
	var out []*Socket
	for _, s := range sockets {
		if s.isData() == data {
			out = append(out, s)
		}
	}
	return out
}

// validateBase enforces socket-id uniqueness and the arity contract common
// to every variant.
func (b *Base) validateBase(arity Arity) error {
	seen := make(map[string]bool, len(b.In)+len(b.Out))
	for _, s := range append(append([]*Socket{}, b.In...), b.Out...) {
		if s.ID == "" {
			return validationErrf(b.StepID, "", "socket with empty id")
		}
		if seen[s.ID] {
			return validationErrf(b.StepID, s.ID, "duplicate socket id")
		}
		seen[s.ID] = true
	}

	quadrants := []struct {
		label string
		bound Bound
		count int
	}{
		{"data input", arity.DataIn, len(filterSockets(b.In, true))},
		{"data output", arity.DataOut, len(filterSockets(b.Out, true))},
		{"control input", arity.ControlIn, len(filterSockets(b.In, false))},
		{"control output", arity.ControlOut, len(filterSockets(b.Out, false))},
	}
	for _, q := range quadrants {
		if !q.bound.contains(q.count) {
			return validationErrf(b.StepID, "", "requires %s %s sockets, found %d", q.bound, q.label, q.count)
		}
	}
	return nil
}

// DecodeStep constructs the step variant named by the "type" discriminator.
// Unknown discriminators and unknown fields are rejected. Adding a variant
// means adding a case here and a new file implementing Step.
func DecodeStep(raw json.RawMessage) (Step, error) {
	var head struct {
		Type StepType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("step: %w", err)
	}

	var step Step
	switch head.Type {
	case StepInput:
		step = &InputStep{}
	case StepOutput:
		step = &OutputStep{}
	case StepRunFunction:
		step = &RunFunctionStep{}
	case StepObjectAccess:
		step = &ObjectAccessStep{}
	case StepStringMatch:
		step = &StringMatchStep{}
	case StepLoop:
		step = &LoopStep{}
	case StepIfElse:
		step = &IfElseStep{}
	default:
		return nil, fmt.Errorf("unknown step type: %q", head.Type)
	}

	if err := strictDecode(raw, step); err != nil {
		return nil, fmt.Errorf("step type %s: %w", head.Type, err)
	}
	step.base().normalise()
	return step, nil
}
