// Package problem models authored assessment definitions: a problem is a set
// of typed tasks, each carrying its own grading contract. Programming tasks
// compile their test-case graphs into executor jobs; the remaining task
// types produce a trivial verdict synchronously.
package problem

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TaskType discriminates task variants on the wire.
type TaskType string

const (
	TaskProgramming      TaskType = "PROGRAMMING"
	TaskMultipleChoice   TaskType = "MULTIPLE_CHOICE"
	TaskMultipleResponse TaskType = "MULTIPLE_RESPONSE"
	TaskShortAnswer      TaskType = "SHORT_ANSWER"
)

// EvalStatus is the lifecycle state of a task evaluation.
type EvalStatus string

const (
	EvalPending EvalStatus = "PENDING"
	EvalSuccess EvalStatus = "SUCCESS"
	EvalSkipped EvalStatus = "SKIPPED"
	EvalFailed  EvalStatus = "FAILED"
)

// EvalResult is what evaluating a single synchronous task yields; Result is
// the verdict itself. Programming tasks do not produce one: they compile into
// a runner.Job via CreateJob instead.
type EvalResult struct {
	TaskID int        `json:"task_id"`
	Status EvalStatus `json:"status"`
	Result any        `json:"result,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// Task is one gradable unit of a problem.
type Task interface {
	TaskID() int
	TaskType() TaskType
}

// Problem is the top-level authored definition.
type Problem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Tasks       []Task `json:"tasks"`
}

// Task looks a task up by id.
func (p *Problem) Task(id int) (Task, bool) {
	for _, t := range p.Tasks {
		if t.TaskID() == id {
			return t, true
		}
	}
	return nil, false
}

// UnmarshalJSON decodes a problem definition, dispatching each task on its
// "type" discriminator with strict unknown-field rejection.
func (p *Problem) UnmarshalJSON(data []byte) error {
	var wire struct {
		Name        string            `json:"name"`
		Description string            `json:"description"`
		Tasks       []json.RawMessage `json:"tasks"`
	}
	if err := strictDecode(data, &wire); err != nil {
		return fmt.Errorf("problem: %w", err)
	}

	tasks := make([]Task, 0, len(wire.Tasks))
	for _, raw := range wire.Tasks {
		task, err := decodeTask(raw)
		if err != nil {
			return err
		}
		tasks = append(tasks, task)
	}

	*p = Problem{Name: wire.Name, Description: wire.Description, Tasks: tasks}
	return nil
}

func decodeTask(raw json.RawMessage) (Task, error) {
	var head struct {
		Type TaskType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("task: %w", err)
	}

	var task Task
	switch head.Type {
	case TaskProgramming:
		task = &ProgrammingTask{}
	case TaskMultipleChoice:
		task = &MultipleChoiceTask{}
	case TaskMultipleResponse:
		task = &MultipleResponseTask{}
	case TaskShortAnswer:
		task = &ShortAnswerTask{}
	default:
		return nil, fmt.Errorf("unknown task type: %q", head.Type)
	}

	if err := strictDecode(raw, task); err != nil {
		return nil, fmt.Errorf("task type %s: %w", head.Type, err)
	}
	return task, nil
}

func strictDecode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
