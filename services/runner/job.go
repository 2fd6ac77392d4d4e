// Package runner defines the contract with the external sandbox executor:
// the job envelope shipped over the work queue and the verdict envelope that
// comes back. The executor itself lives outside this codebase; everything
// here is pure data plus validation.
package runner

import (
	"fmt"

	"github.com/google/uuid"
)

// File is a blob materialised into the executor's working tree. Trusted files
// may be imported directly by the assembled program; untrusted ones must only
// be invoked through the sandbox worker.
type File struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	Trusted bool   `json:"trusted"`
}

// Language selects the execution environment. Only Python is supported.
type Language string

const LanguagePython Language = "PYTHON"

// ExtraOptions carries optional executor tweaks: a specific interpreter
// version and a dependency manifest installed before the program runs.
type ExtraOptions struct {
	Version      string `json:"version,omitempty"`
	Requirements string `json:"requirements,omitempty"`
}

// ComputeContext bounds the execution of every program in a job. Resource
// limits are enforced by the executor, not locally.
type ComputeContext struct {
	Language      Language      `json:"language"`
	TimeLimitSecs float64       `json:"time_limit_secs"`
	MemoryLimitMB int           `json:"memory_limit_mb"`
	ExtraOptions  *ExtraOptions `json:"extra_options,omitempty"`
}

// Validate checks the context limits.
func (c ComputeContext) Validate() error {
	if c.Language != LanguagePython {
		return fmt.Errorf("unsupported language: %q", c.Language)
	}
	if c.TimeLimitSecs <= 0 {
		return fmt.Errorf("time limit must be positive, got %v", c.TimeLimitSecs)
	}
	if c.MemoryLimitMB <= 0 {
		return fmt.Errorf("memory limit must be positive, got %d", c.MemoryLimitMB)
	}
	return nil
}

// Program is one executable unit of a job: an entrypoint plus the files it
// runs with. ID tracks the test case the program was compiled from.
type Program struct {
	ID         int    `json:"id"`
	Entrypoint string `json:"entrypoint"`
	Files      []File `json:"files"`
}

// Validate checks that the entrypoint names one of the program's files.
func (p Program) Validate() error {
	for _, f := range p.Files {
		if f.Name == p.Entrypoint {
			return nil
		}
	}
	return fmt.Errorf("entrypoint %q not found in program files", p.Entrypoint)
}

// Job bundles the compiled programs of a submission with their execution
// context. The id correlates the asynchronous verdict back to the dispatch.
type Job struct {
	ID       uuid.UUID      `json:"id"`
	Programs []Program      `json:"programs"`
	Context  ComputeContext `json:"context"`
}

// NewJob validates the programs and context and assigns a fresh job id.
// Two calls on identical inputs produce distinct jobs.
func NewJob(programs []Program, context ComputeContext) (Job, error) {
	if len(programs) == 0 {
		return Job{}, fmt.Errorf("job requires at least one program")
	}
	for _, p := range programs {
		if err := p.Validate(); err != nil {
			return Job{}, fmt.Errorf("program %d: %w", p.ID, err)
		}
	}
	if err := context.Validate(); err != nil {
		return Job{}, fmt.Errorf("compute context: %w", err)
	}
	return Job{ID: uuid.New(), Programs: programs, Context: context}, nil
}
