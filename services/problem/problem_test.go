package problem_test

import (
	"encoding/json"
	"strings"
	"testing"

	"gradeflow/api/services/problem"
	"gradeflow/api/services/runner"
)

// minimalDefn carries one programming task whose test case matches a user
// provided string against an embedded literal.
const minimalDefn = `{
	"name": "Greeting",
	"description": "Say hello",
	"tasks": [
		{
			"id": 1,
			"type": "PROGRAMMING",
			"question": "Provide the expected greeting",
			"environment": {"language": "PYTHON", "time_limit_secs": 2, "memory_limit_mb": 256},
			"required_inputs": [{"id": "name", "data": "hello"}],
			"testcases": [
				{
					"id": 10,
					"nodes": [
						{"id": 2, "type": "INPUT_STEP", "inputs": [], "outputs": [{"id": "want", "data": "hello"}]},
						{"id": 3, "type": "STRING_MATCH_STEP",
							"inputs": [{"id": "l"}, {"id": "r"}],
							"outputs": [{"id": "m"}]},
						{"id": 4, "type": "OUTPUT_STEP", "inputs": [{"id": "eq"}], "outputs": []}
					],
					"edges": [
						{"id": 1, "from_node_id": 0, "from_socket_id": "name", "to_node_id": 3, "to_socket_id": "l"},
						{"id": 2, "from_node_id": 2, "from_socket_id": "want", "to_node_id": 3, "to_socket_id": "r"},
						{"id": 3, "from_node_id": 3, "from_socket_id": "m", "to_node_id": 4, "to_socket_id": "eq"}
					]
				}
			]
		}
	]
}`

func loadDefn(t *testing.T, raw string) *problem.Problem {
	t.Helper()
	var p problem.Problem
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("failed to parse problem: %v", err)
	}
	return &p
}

func programmingTask(t *testing.T, p *problem.Problem, id int) *problem.ProgrammingTask {
	t.Helper()
	task, ok := p.Task(id)
	if !ok {
		t.Fatalf("task %d not found", id)
	}
	pt, ok := task.(*problem.ProgrammingTask)
	if !ok {
		t.Fatalf("task %d is not a programming task", id)
	}
	return pt
}

func TestProblemDecoding(t *testing.T) {
	t.Parallel()

	p := loadDefn(t, minimalDefn)
	if p.Name != "Greeting" || len(p.Tasks) != 1 {
		t.Fatalf("unexpected problem: %+v", p)
	}

	pt := programmingTask(t, p, 1)
	if pt.Environment.TimeLimitSecs != 2 || pt.Environment.Language != runner.LanguagePython {
		t.Errorf("unexpected environment: %+v", pt.Environment)
	}
	if len(pt.TestCases) != 1 || pt.TestCases[0].ID != 10 {
		t.Fatalf("unexpected test cases: %+v", pt.TestCases)
	}
}

func TestProblemDecodingRejectsUnknowns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{
			name:    "unknown task type",
			raw:     `{"name": "x", "description": "", "tasks": [{"id": 1, "type": "ESSAY"}]}`,
			wantErr: "unknown task type",
		},
		{
			name:    "unknown problem field",
			raw:     `{"name": "x", "description": "", "tasks": [], "difficulty": 3}`,
			wantErr: "unknown field",
		},
		{
			name: "unknown task field",
			raw: `{"name": "x", "description": "", "tasks": [
				{"id": 1, "type": "SHORT_ANSWER", "question": "q", "points": 5}
			]}`,
			wantErr: "unknown field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var p problem.Problem
			err := json.Unmarshal([]byte(tt.raw), &p)
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestValidateUserInputs(t *testing.T) {
	t.Parallel()

	pt := programmingTask(t, loadDefn(t, minimalDefn), 1)

	tests := []struct {
		name    string
		inputs  []problem.RequiredInput
		wantErr string
	}{
		{
			name:   "exact match",
			inputs: []problem.RequiredInput{{ID: "name", Data: "hello"}},
		},
		{
			name:    "missing required input",
			inputs:  nil,
			wantErr: `required input "name" not provided`,
		},
		{
			name: "extra input",
			inputs: []problem.RequiredInput{
				{ID: "name", Data: "hello"},
				{ID: "bonus", Data: 1},
			},
			wantErr: `unexpected user input "bonus"`,
		},
		{
			name: "duplicate input",
			inputs: []problem.RequiredInput{
				{ID: "name", Data: "a"},
				{ID: "name", Data: "b"},
			},
			wantErr: `duplicate user input "name"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := pt.ValidateUserInputs(tt.inputs)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("expected error containing %q, got %q", tt.wantErr, err.Error())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestProgramsPackaging(t *testing.T) {
	t.Parallel()

	pt := programmingTask(t, loadDefn(t, minimalDefn), 1)
	programs, err := pt.Programs([]problem.RequiredInput{{ID: "name", Data: "hello"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(programs) != 1 {
		t.Fatalf("expected 1 program, got %d", len(programs))
	}

	prog := programs[0]
	if prog.ID != 10 {
		t.Errorf("expected program id 10, got %d", prog.ID)
	}
	if prog.Entrypoint != problem.Entrypoint {
		t.Errorf("unexpected entrypoint %q", prog.Entrypoint)
	}
	if err := prog.Validate(); err != nil {
		t.Errorf("packaged program invalid: %v", err)
	}

	var entry *runner.File
	for i := range prog.Files {
		if prog.Files[i].Name == prog.Entrypoint {
			entry = &prog.Files[i]
		}
	}
	if entry == nil {
		t.Fatal("entrypoint file missing from program")
	}
	for _, want := range []string{
		"if __name__ == \"__main__\":",
		"json.dumps",
		"str(",
	} {
		if !strings.Contains(entry.Content, want) {
			t.Errorf("expected assembled program to contain %q", want)
		}
	}
}

func TestProgramsAbortsWithoutRequiredInput(t *testing.T) {
	t.Parallel()

	pt := programmingTask(t, loadDefn(t, minimalDefn), 1)
	_, err := pt.Programs(nil)
	if err == nil || !strings.Contains(err.Error(), `required input "name" not provided`) {
		t.Fatalf("expected missing-input error, got %v", err)
	}
}

func TestCreateJob(t *testing.T) {
	t.Parallel()

	pt := programmingTask(t, loadDefn(t, minimalDefn), 1)
	inputs := []problem.RequiredInput{{ID: "name", Data: "hello"}}

	job, err := pt.CreateJob(inputs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(job.Programs) != 1 || job.Context != pt.Environment {
		t.Errorf("unexpected job: %+v", job)
	}

	again, err := pt.CreateJob(inputs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.ID == again.ID {
		t.Error("expected fresh job ids per dispatch")
	}
}

func TestSimpleTaskEvaluation(t *testing.T) {
	t.Parallel()

	mc := &problem.MultipleChoiceTask{ID: 2, Choices: []string{"a", "b"}, Expected: 1}
	if res := mc.Evaluate(1); res.Status != problem.EvalSuccess || res.Result != true {
		t.Errorf("unexpected multiple choice verdict: %+v", res)
	}
	if res := mc.Evaluate(0); res.Result != false {
		t.Errorf("expected wrong choice to grade false, got %+v", res)
	}

	mr := &problem.MultipleResponseTask{ID: 3, Choices: []string{"a", "b", "c"}, Expected: []int{0, 2}}
	res := mr.Evaluate([]int{0, 1})
	score, ok := res.Result.(problem.ResponseScore)
	if !ok {
		t.Fatalf("unexpected result type %T", res.Result)
	}
	if score.Correct != 1 || score.Incorrect != 1 || score.Total != 3 {
		t.Errorf("unexpected score: %+v", score)
	}

	sa := &problem.ShortAnswerTask{ID: 4, Question: "why?"}
	if res := sa.Evaluate("because"); res.Status != problem.EvalSkipped {
		t.Errorf("expected short answers to be skipped, got %+v", res)
	}
}
