package steps

import "gradeflow/api/pkg/pycode"

// IfElseStep evaluates its PREDICATE subgraph and branches into the IF or
// ELSE subgraph on the predicate's result variable.
type IfElseStep struct {
	Base
}

func (s *IfElseStep) Arity() Arity {
	return Arity{
		DataIn:     Bound{Min: 0, Max: 0},
		DataOut:    Bound{Min: 0, Max: 0},
		ControlIn:  Bound{Min: 1, Max: 2},
		ControlOut: Bound{Min: 2, Max: 3},
	}
}

func (s *IfElseStep) subgraphAliases() []string {
	return []string{aliasPredicate, aliasIf, aliasElse}
}

func (s *IfElseStep) Validate() error {
	if err := s.validateBase(s.Arity()); err != nil {
		return err
	}
	for _, alias := range []string{aliasPredicate, aliasIf, aliasElse} {
		if _, ok := s.socketByAlias(alias); !ok {
			return validationErrf(s.StepID, "", "missing %s socket", alias)
		}
	}
	return nil
}

func (s *IfElseStep) Emit(ctx *EmitContext) ([]pycode.Stmt, error) {
	predSocket, _ := s.socketByAlias(aliasPredicate)
	predStmts, err := ctx.Subgraph(predSocket.ID)
	if err != nil {
		return nil, err
	}
	predVar, ok := ctx.Var(predSocket.ID)
	if !ok {
		return nil, emissionErrf(s.StepID, predSocket.ID, "predicate subgraph does not feed the predicate socket")
	}

	ifSocket, _ := s.socketByAlias(aliasIf)
	ifStmts, err := ctx.Subgraph(ifSocket.ID)
	if err != nil {
		return nil, err
	}
	elseSocket, _ := s.socketByAlias(aliasElse)
	elseStmts, err := ctx.Subgraph(elseSocket.ID)
	if err != nil {
		return nil, err
	}

	stmts := append([]pycode.Stmt{}, predStmts...)
	stmts = append(stmts, pycode.If{Test: predVar, Body: ifStmts, Else: elseStmts})
	return stmts, nil
}
