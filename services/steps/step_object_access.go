package steps

import "gradeflow/api/pkg/pycode"

// ObjectAccessStep extracts a keyed entry from a mapping produced upstream.
type ObjectAccessStep struct {
	Base
	Key string `json:"key"`
}

func (s *ObjectAccessStep) Arity() Arity {
	return Arity{
		DataIn:     Bound{Min: 1, Max: 1},
		DataOut:    Bound{Min: 1, Max: 1},
		ControlIn:  defaultControl,
		ControlOut: defaultControl,
	}
}

func (s *ObjectAccessStep) Validate() error {
	return s.validateBase(s.Arity())
}

func (s *ObjectAccessStep) Emit(ctx *EmitContext) ([]pycode.Stmt, error) {
	in := s.dataIn()[0]
	v, ok := ctx.Var(in.ID)
	if !ok {
		return nil, emissionErrf(s.StepID, in.ID, "no value bound to input socket")
	}
	return []pycode.Stmt{
		pycode.Assign{
			Target: ctx.OutVar(s.dataOut()[0]),
			Value:  pycode.Subscript{X: v, Index: pycode.Literal{Value: s.Key}},
		},
	}, nil
}
