package problem

import (
	"encoding/json"
	"fmt"

	"gradeflow/api/pkg/pycode"
	"gradeflow/api/services/graph"
	"gradeflow/api/services/runner"
	"gradeflow/api/services/steps"
)

// UserInputStepID is the reserved step id the synthesised user-input step is
// attached under. Authored test-case edges reference it before the step
// exists, so it must never collide with an authored step id.
const UserInputStepID = 0

// Entrypoint is the file name the assembled program ships as.
const Entrypoint = "__entrypoint.py"

// RequiredInput declares a datum the candidate must provide: a primitive or
// a file, keyed by a string id matching the user-input step's socket.
type RequiredInput struct {
	ID   string `json:"id"`
	Data any    `json:"data"`
}

// UnmarshalJSON normalises the literal the same way socket data is parsed.
func (r *RequiredInput) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID   string          `json:"id"`
		Data json.RawMessage `json:"data"`
	}
	if err := strictDecode(data, &wire); err != nil {
		return fmt.Errorf("required input: %w", err)
	}
	literal, err := steps.ParseLiteral(wire.Data)
	if err != nil {
		return fmt.Errorf("required input %q: %w", wire.ID, err)
	}
	*r = RequiredInput{ID: wire.ID, Data: literal}
	return nil
}

// TestCase is one compute graph of a programming task.
type TestCase struct {
	ID    int
	Graph *steps.ComputeGraph
}

// UnmarshalJSON splits the test-case id from the embedded graph definition.
func (tc *TestCase) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID    int               `json:"id"`
		Nodes []json.RawMessage `json:"nodes"`
		Edges []graph.Edge      `json:"edges"`
	}
	if err := strictDecode(data, &wire); err != nil {
		return fmt.Errorf("testcase: %w", err)
	}

	stepList := make([]steps.Step, 0, len(wire.Nodes))
	for _, raw := range wire.Nodes {
		step, err := steps.DecodeStep(raw)
		if err != nil {
			return fmt.Errorf("testcase %d: %w", wire.ID, err)
		}
		stepList = append(stepList, step)
	}
	g, err := steps.NewComputeGraph(stepList, wire.Edges)
	if err != nil {
		return fmt.Errorf("testcase %d: %w", wire.ID, err)
	}

	tc.ID = wire.ID
	tc.Graph = g
	return nil
}

// ProgrammingTask grades candidate code by compiling each test-case graph
// into a program and shipping the bundle to the sandbox executor.
type ProgrammingTask struct {
	ID             int                   `json:"id"`
	Type           TaskType              `json:"type"`
	Question       string                `json:"question"`
	Environment    runner.ComputeContext `json:"environment"`
	RequiredInputs []RequiredInput       `json:"required_inputs"`
	TestCases      []TestCase            `json:"testcases"`
}

func (t *ProgrammingTask) TaskID() int        { return t.ID }
func (t *ProgrammingTask) TaskType() TaskType { return TaskProgramming }

// ValidateUserInputs checks the submitted inputs against the declared
// required inputs: every declared id must be supplied and nothing extra.
func (t *ProgrammingTask) ValidateUserInputs(inputs []RequiredInput) error {
	supplied := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		if supplied[in.ID] {
			return &steps.ValidationError{Step: -1, Msg: fmt.Sprintf("duplicate user input %q", in.ID)}
		}
		supplied[in.ID] = true
	}

	declared := make(map[string]bool, len(t.RequiredInputs))
	for _, req := range t.RequiredInputs {
		declared[req.ID] = true
		if !supplied[req.ID] {
			return &steps.ValidationError{Step: -1, Msg: fmt.Sprintf("required input %q not provided", req.ID)}
		}
	}
	for _, in := range inputs {
		if !declared[in.ID] {
			return &steps.ValidationError{Step: -1, Msg: fmt.Sprintf("unexpected user input %q", in.ID)}
		}
	}
	return nil
}

// UserInputStep synthesises the input step carrying the candidate's values,
// so downstream compilation treats user input as just another graph node.
func (t *ProgrammingTask) UserInputStep(inputs []RequiredInput) *steps.InputStep {
	sockets := make([]*steps.Socket, 0, len(inputs))
	for _, in := range inputs {
		sockets = append(sockets, &steps.Socket{ID: in.ID, Data: in.Data})
	}
	return steps.NewUserInputStep(UserInputStepID, sockets)
}

// Programs validates the user inputs and compiles every test case into an
// executor program: the sandboxed entrypoint plus the file literals the
// graph references.
func (t *ProgrammingTask) Programs(inputs []RequiredInput) ([]runner.Program, error) {
	if err := t.ValidateUserInputs(inputs); err != nil {
		return nil, err
	}

	programs := make([]runner.Program, 0, len(t.TestCases))
	for _, tc := range t.TestCases {
		g, err := tc.Graph.WithStep(t.UserInputStep(inputs))
		if err != nil {
			return nil, fmt.Errorf("testcase %d: %w", tc.ID, err)
		}
		compiled, err := g.Compile()
		if err != nil {
			return nil, fmt.Errorf("testcase %d: %w", tc.ID, err)
		}
		assembled := pycode.Sandbox(compiled)

		files := append(g.Files(), runner.File{
			Name:    Entrypoint,
			Content: assembled.Source(),
		})
		programs = append(programs, runner.Program{
			ID:         tc.ID,
			Entrypoint: Entrypoint,
			Files:      files,
		})
	}
	return programs, nil
}

// CreateJob packages the compiled programs with the task's compute context
// under a fresh job id, ready for dispatch.
func (t *ProgrammingTask) CreateJob(inputs []RequiredInput) (runner.Job, error) {
	programs, err := t.Programs(inputs)
	if err != nil {
		return runner.Job{}, err
	}
	return runner.NewJob(programs, t.Environment)
}
