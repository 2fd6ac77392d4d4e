package steps

import (
	"sort"

	"gradeflow/api/pkg/pycode"
)

// RunFunctionStep calls a named function from a candidate- or author-provided
// Python module. Exactly one input socket is flagged as the module source;
// the remaining inputs become positional or keyword arguments. Trusted
// modules are imported and called directly, untrusted ones go through the
// sandbox worker shim.
type RunFunctionStep struct {
	Base
	FunctionIdentifier string `json:"function_identifier"`
	AllowError         bool   `json:"allow_error,omitempty"`
}

func (s *RunFunctionStep) Arity() Arity {
	return Arity{
		DataIn:     Bound{Min: 1, Max: -1},
		DataOut:    Bound{Min: 1, Max: 2},
		ControlIn:  defaultControl,
		ControlOut: defaultControl,
	}
}

func (s *RunFunctionStep) Validate() error {
	if err := s.validateBase(s.Arity()); err != nil {
		return err
	}
	if s.FunctionIdentifier == "" {
		return validationErrf(s.StepID, "", "missing function identifier")
	}

	moduleSockets := 0
	for _, socket := range s.dataIn() {
		if socket.ImportAsModule {
			moduleSockets++
		}
	}
	if moduleSockets != 1 {
		return validationErrf(s.StepID, "", "requires exactly one module source socket, found %d", moduleSockets)
	}

	errorSockets := 0
	for _, socket := range s.dataOut() {
		if socket.HandlesError {
			errorSockets++
		}
	}
	switch {
	case s.AllowError && errorSockets != 1:
		return validationErrf(s.StepID, "", "allow_error requires exactly one error socket, found %d", errorSockets)
	case !s.AllowError && errorSockets != 0:
		return validationErrf(s.StepID, "", "unexpected error socket, allow_error is false")
	case len(s.dataOut())-errorSockets == 0:
		return validationErrf(s.StepID, "", "missing value output socket")
	}
	return nil
}

// moduleSocket returns the input socket flagged as the module source.
func (s *RunFunctionStep) moduleSocket() *Socket {
	for _, socket := range s.dataIn() {
		if socket.ImportAsModule {
			return socket
		}
	}
	return nil
}

// args returns the positional-argument sockets in ascending position order.
func (s *RunFunctionStep) args() []*Socket {
	var sockets []*Socket
	for _, socket := range s.dataIn() {
		if socket.ArgMetadata != nil {
			sockets = append(sockets, socket)
		}
	}
	sort.SliceStable(sockets, func(i, j int) bool {
		return sockets[i].ArgMetadata.Position < sockets[j].ArgMetadata.Position
	})
	return sockets
}

// kwargs returns the keyword-argument sockets in declaration order.
func (s *RunFunctionStep) kwargs() []*Socket {
	var sockets []*Socket
	for _, socket := range s.dataIn() {
		if socket.KwargName != nil {
			sockets = append(sockets, socket)
		}
	}
	return sockets
}

// paramExpr resolves an argument socket to an expression: the connected
// variable if one is bound, otherwise the socket's own literal.
func (s *RunFunctionStep) paramExpr(ctx *EmitContext, socket *Socket) (pycode.Expr, bool, error) {
	if v, ok := ctx.Var(socket.ID); ok {
		return v, true, nil
	}
	if socket.Data == nil {
		return nil, false, nil
	}
	if !isPrimitive(socket.Data) {
		return nil, false, emissionErrf(s.StepID, socket.ID, "argument literal must be a primitive, got %T", socket.Data)
	}
	return pycode.Literal{Value: socket.Data}, true, nil
}

func (s *RunFunctionStep) Emit(ctx *EmitContext) ([]pycode.Stmt, error) {
	moduleSocket := s.moduleSocket()
	moduleFile, ok := ctx.File(moduleSocket.ID)
	if !ok {
		return nil, emissionErrf(s.StepID, moduleSocket.ID, "missing module file")
	}
	module := pycode.ModuleName(moduleFile.Name)

	var args []pycode.Expr
	for _, socket := range s.args() {
		expr, ok, err := s.paramExpr(ctx, socket)
		if err != nil {
			return nil, err
		}
		if ok {
			args = append(args, expr)
		}
	}
	var kwargs []pycode.Kwarg
	for _, socket := range s.kwargs() {
		expr, ok, err := s.paramExpr(ctx, socket)
		if err != nil {
			return nil, err
		}
		if ok {
			kwargs = append(kwargs, pycode.Kwarg{Name: *socket.KwargName, Value: expr})
		}
	}

	// Pick the value and error channels. Without allow_error the error slot
	// drains into the scratch sink.
	var outSocket, errSocket *Socket
	for _, socket := range s.dataOut() {
		if socket.HandlesError {
			errSocket = socket
		} else if outSocket == nil {
			outSocket = socket
		}
	}
	outVar := ctx.OutVar(outSocket)
	errVar := pycode.UnusedVar
	if errSocket != nil {
		errVar = ctx.OutVar(errSocket)
	}

	if moduleFile.Trusted {
		fn := pycode.Name{Value: s.FunctionIdentifier}
		return []pycode.Stmt{
			pycode.ImportFrom{Module: module, Names: []string{s.FunctionIdentifier}},
			pycode.Assign{
				Target: outVar,
				Value:  pycode.Call{Func: fn, Args: args, Kwargs: kwargs},
			},
		}, nil
	}

	shimArgs := []pycode.Expr{
		pycode.Literal{Value: module},
		pycode.Literal{Value: s.FunctionIdentifier},
		pycode.Literal{Value: s.AllowError},
	}
	shimArgs = append(shimArgs, args...)
	return []pycode.Stmt{
		pycode.Assign{
			Target: pycode.Tuple{Elems: []pycode.Expr{outVar, errVar}},
			Value: pycode.Call{
				Func:   pycode.Name{Value: "call_function_safe"},
				Args:   shimArgs,
				Kwargs: kwargs,
			},
		},
	}, nil
}
