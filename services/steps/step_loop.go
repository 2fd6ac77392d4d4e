package steps

import "gradeflow/api/pkg/pycode"

// Socket aliases naming the subgraphs owned by control-flow steps.
const (
	aliasPredicate = "CONTROL.IN.PREDICATE"
	aliasBody      = "CONTROL.OUT.BODY"
	aliasIf        = "CONTROL.OUT.IF"
	aliasElse      = "CONTROL.OUT.ELSE"
)

// LoopStep repeats its BODY subgraph. The optional PREDICATE subgraph is
// evaluated first on every iteration and its result variable breaks the loop
// when truthy; without a predicate the loop relies on the executor's time
// limit to terminate.
type LoopStep struct {
	Base
}

func (s *LoopStep) Arity() Arity {
	return Arity{
		DataIn:     Bound{Min: 0, Max: 0},
		DataOut:    Bound{Min: 0, Max: 0},
		ControlIn:  Bound{Min: 1, Max: 2},
		ControlOut: Bound{Min: 1, Max: 2},
	}
}

func (s *LoopStep) subgraphAliases() []string {
	return []string{aliasPredicate, aliasBody}
}

func (s *LoopStep) Validate() error {
	if err := s.validateBase(s.Arity()); err != nil {
		return err
	}
	if _, ok := s.socketByAlias(aliasBody); !ok {
		return validationErrf(s.StepID, "", "missing %s socket", aliasBody)
	}
	return nil
}

func (s *LoopStep) Emit(ctx *EmitContext) ([]pycode.Stmt, error) {
	var body []pycode.Stmt

	// Predicate runs ahead of the body, so a loop may terminate before the
	// first iteration's work.
	if predSocket, ok := s.socketByAlias(aliasPredicate); ok {
		predStmts, err := ctx.Subgraph(predSocket.ID)
		if err != nil {
			return nil, err
		}
		predVar, ok := ctx.Var(predSocket.ID)
		if !ok {
			return nil, emissionErrf(s.StepID, predSocket.ID, "predicate subgraph does not feed the predicate socket")
		}
		body = append(body, predStmts...)
		body = append(body, pycode.If{Test: predVar, Body: []pycode.Stmt{pycode.Break{}}})
	}

	bodySocket, _ := s.socketByAlias(aliasBody)
	bodyStmts, err := ctx.Subgraph(bodySocket.ID)
	if err != nil {
		return nil, err
	}
	body = append(body, bodyStmts...)

	return []pycode.Stmt{
		pycode.While{Test: pycode.Literal{Value: true}, Body: body},
	}, nil
}
