package steps

import "gradeflow/api/pkg/pycode"

// OutputStep terminates a test case. It serialises the value bound to each of
// its input sockets into a JSON object printed to stdout, which is the
// program's verdict payload; an input socket with no bound value is an
// emission error. The optional per-socket comparison and visibility attributes are
// not evaluated here; they ride along for the verdict consumer.
type OutputStep struct {
	Base
}

func (s *OutputStep) Arity() Arity {
	return Arity{
		DataIn:     Bound{Min: 1, Max: -1},
		DataOut:    Bound{Min: 0, Max: 0},
		ControlIn:  Bound{Min: 0, Max: 0},
		ControlOut: Bound{Min: 0, Max: 0},
	}
}

func (s *OutputStep) Validate() error {
	if err := s.validateBase(s.Arity()); err != nil {
		return err
	}
	for _, socket := range s.dataIn() {
		if socket.Comparison == nil {
			continue
		}
		if err := socket.Comparison.Validate(); err != nil {
			return validationErrf(s.StepID, socket.ID, "%v", err)
		}
	}
	return nil
}

// Emit prints the socket-id to value mapping as the program's final act.
func (s *OutputStep) Emit(ctx *EmitContext) ([]pycode.Stmt, error) {
	var items []pycode.DictItem
	for _, socket := range s.dataIn() {
		v, ok := ctx.Var(socket.ID)
		if !ok {
			return nil, emissionErrf(s.StepID, socket.ID, "no value bound to output socket")
		}
		items = append(items, pycode.DictItem{
			Key:   pycode.Literal{Value: socket.ID},
			Value: v,
		})
	}

	return []pycode.Stmt{
		pycode.Import{Module: "json"},
		pycode.ExprStmt{X: pycode.Call{
			Func: pycode.Name{Value: "print"},
			Args: []pycode.Expr{pycode.Call{
				Func: pycode.Attr{X: pycode.Name{Value: "json"}, Name: "dumps"},
				Args: []pycode.Expr{pycode.Dict{Items: items}},
			}},
		}},
	}, nil
}
