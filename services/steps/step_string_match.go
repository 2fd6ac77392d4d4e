package steps

import "gradeflow/api/pkg/pycode"

// StringMatchStep compares the string renderings of its two operands and
// outputs the boolean result. Operands come from connected variables or,
// failing that, from literals embedded on the operand sockets.
type StringMatchStep struct {
	Base
}

func (s *StringMatchStep) Arity() Arity {
	return Arity{
		DataIn:     Bound{Min: 2, Max: 2},
		DataOut:    Bound{Min: 1, Max: 1},
		ControlIn:  defaultControl,
		ControlOut: defaultControl,
	}
}

func (s *StringMatchStep) Validate() error {
	if err := s.validateBase(s.Arity()); err != nil {
		return err
	}
	for _, socket := range s.dataIn() {
		if _, isFile := socket.File(); isFile {
			return validationErrf(s.StepID, socket.ID, "cannot match against a file literal")
		}
	}
	return nil
}

func (s *StringMatchStep) operand(ctx *EmitContext, socket *Socket) (pycode.Expr, error) {
	if v, ok := ctx.Var(socket.ID); ok {
		return v, nil
	}
	if isPrimitive(socket.Data) {
		return pycode.Literal{Value: socket.Data}, nil
	}
	return nil, emissionErrf(s.StepID, socket.ID, "no value bound to operand socket")
}

func (s *StringMatchStep) Emit(ctx *EmitContext) ([]pycode.Stmt, error) {
	operands := s.dataIn()
	lhs, err := s.operand(ctx, operands[0])
	if err != nil {
		return nil, err
	}
	rhs, err := s.operand(ctx, operands[1])
	if err != nil {
		return nil, err
	}

	strCast := func(e pycode.Expr) pycode.Expr {
		return pycode.Call{Func: pycode.Name{Value: "str"}, Args: []pycode.Expr{e}}
	}
	return []pycode.Stmt{
		pycode.Assign{
			Target: ctx.OutVar(s.dataOut()[0]),
			Value:  pycode.Compare{Left: strCast(lhs), Op: "==", Right: strCast(rhs)},
		},
	}, nil
}
