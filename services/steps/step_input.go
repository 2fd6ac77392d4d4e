package steps

import (
	"gradeflow/api/pkg/pycode"
	"gradeflow/api/services/runner"
)

// InputStep feeds literal values into the graph. Authored input steps embed
// their literals in the test-case definition; the synthesised user-input
// step carries the candidate's submitted values instead and is flagged with
// IsUser so validation does not demand embedded data at authoring time.
type InputStep struct {
	Base
	IsUser bool `json:"is_user,omitempty"`
}

// NewUserInputStep builds the input step that represents candidate-supplied
// values, one output socket per supplied datum.
func NewUserInputStep(id int, sockets []*Socket) *InputStep {
	s := &InputStep{
		Base:   Base{StepID: id, Kind: StepInput, Out: sockets},
		IsUser: true,
	}
	s.normalise()
	return s
}

func (s *InputStep) Arity() Arity {
	return Arity{
		DataIn:     Bound{Min: 0, Max: 0},
		DataOut:    Bound{Min: 1, Max: -1},
		ControlIn:  Bound{Min: 0, Max: 0},
		ControlOut: Bound{Min: 0, Max: 0},
	}
}

// Validate requires a concrete literal on every output socket unless the
// step stands in for candidate input, whose values arrive at evaluation
// time.
func (s *InputStep) Validate() error {
	if err := s.validateBase(s.Arity()); err != nil {
		return err
	}
	if s.IsUser {
		return nil
	}
	for _, socket := range s.dataOut() {
		if socket.Data == nil {
			return validationErrf(s.StepID, socket.ID, "missing data for output socket")
		}
	}
	return nil
}

// Emit assigns each socket's literal to the socket's variable. File literals
// are assigned as their path under the executor's working subdirectory,
// where the runner materialises program files.
func (s *InputStep) Emit(ctx *EmitContext) ([]pycode.Stmt, error) {
	var stmts []pycode.Stmt
	for _, socket := range s.dataOut() {
		switch data := socket.Data.(type) {
		case nil:
			continue
		case runner.File:
			stmts = append(stmts, pycode.Assign{
				Target: ctx.OutVar(socket),
				Value:  pycode.Literal{Value: "src/" + data.Name},
			})
		default:
			if !isPrimitive(data) {
				return nil, emissionErrf(s.StepID, socket.ID, "unsupported literal %T", data)
			}
			stmts = append(stmts, pycode.Assign{
				Target: ctx.OutVar(socket),
				Value:  pycode.Literal{Value: data},
			})
		}
	}
	return stmts, nil
}
