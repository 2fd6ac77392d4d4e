package steps

import "fmt"

// ValidationError reports a malformed step or graph: arity mismatches,
// dangling edge endpoints, missing module sockets and the like. It is always
// raised before any program text is produced.
type ValidationError struct {
	Step   int
	Socket string
	Msg    string
}

func (e *ValidationError) Error() string {
	switch {
	case e.Socket != "":
		return fmt.Sprintf("step %d socket %q: %s", e.Step, e.Socket, e.Msg)
	case e.Step >= 0:
		return fmt.Sprintf("step %d: %s", e.Step, e.Msg)
	default:
		return e.Msg
	}
}

func validationErrf(step int, socket, format string, args ...any) *ValidationError {
	return &ValidationError{Step: step, Socket: socket, Msg: fmt.Sprintf(format, args...)}
}

// EmissionError reports a step that was asked to emit code without the data
// it needs, naming the offending step and socket.
type EmissionError struct {
	Step   int
	Socket string
	Msg    string
}

func (e *EmissionError) Error() string {
	if e.Socket != "" {
		return fmt.Sprintf("step %d socket %q: %s", e.Step, e.Socket, e.Msg)
	}
	return fmt.Sprintf("step %d: %s", e.Step, e.Msg)
}

func emissionErrf(step int, socket, format string, args ...any) *EmissionError {
	return &EmissionError{Step: step, Socket: socket, Msg: fmt.Sprintf(format, args...)}
}
