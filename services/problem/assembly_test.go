package problem_test

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"gradeflow/api/services/problem"
)

// assemblyFixture drives one compile-and-inspect round: the definition's own
// required inputs stand in for a submission and the assembled entrypoint is
// checked for the expected fragments.
type assemblyFixture struct {
	Definition string   `yaml:"definition"`
	Task       int      `yaml:"task"`
	Contains   []string `yaml:"contains"`
}

func TestAssemblyFixtures(t *testing.T) {
	t.Parallel()

	raw, err := os.ReadFile(filepath.Join("testdata", "assemblies.yaml"))
	if err != nil {
		t.Fatalf("failed to read fixtures: %v", err)
	}
	var fixtures []assemblyFixture
	if err := yaml.Unmarshal(raw, &fixtures); err != nil {
		t.Fatalf("failed to parse fixtures: %v", err)
	}
	if len(fixtures) == 0 {
		t.Fatal("no assembly fixtures found")
	}

	for _, fixture := range fixtures {
		t.Run(fixture.Definition, func(t *testing.T) {
			t.Parallel()

			defnRaw, err := os.ReadFile(filepath.Join("testdata", fixture.Definition))
			if err != nil {
				t.Fatalf("failed to read definition: %v", err)
			}
			var defn problem.Problem
			if err := json.Unmarshal(defnRaw, &defn); err != nil {
				t.Fatalf("failed to parse definition: %v", err)
			}

			task, ok := defn.Task(fixture.Task)
			if !ok {
				t.Fatalf("task %d not found", fixture.Task)
			}
			pt, ok := task.(*problem.ProgrammingTask)
			if !ok {
				t.Fatalf("task %d is not a programming task", fixture.Task)
			}

			programs, err := pt.Programs(pt.RequiredInputs)
			if err != nil {
				t.Fatalf("failed to assemble: %v", err)
			}

			for _, prog := range programs {
				entrypoint := ""
				for _, f := range prog.Files {
					if f.Name == prog.Entrypoint {
						entrypoint = f.Content
					}
				}
				if entrypoint == "" {
					t.Fatalf("testcase %d: entrypoint missing", prog.ID)
				}
				for _, want := range fixture.Contains {
					if !strings.Contains(entrypoint, want) {
						t.Errorf("testcase %d: missing fragment %q in:\n%s", prog.ID, want, entrypoint)
					}
				}
			}
		})
	}
}

// TestAssemblyShipsGraphFiles checks that file literals referenced by the
// graph travel with the program, alongside the entrypoint.
func TestAssemblyShipsGraphFiles(t *testing.T) {
	t.Parallel()

	defnRaw, err := os.ReadFile(filepath.Join("testdata", "addition.json"))
	if err != nil {
		t.Fatalf("failed to read definition: %v", err)
	}
	var defn problem.Problem
	if err := json.Unmarshal(defnRaw, &defn); err != nil {
		t.Fatalf("failed to parse definition: %v", err)
	}

	pt := defn.Tasks[0].(*problem.ProgrammingTask)
	programs, err := pt.Programs(pt.RequiredInputs)
	if err != nil {
		t.Fatalf("failed to assemble: %v", err)
	}

	names := map[string]bool{}
	for _, f := range programs[0].Files {
		names[f.Name] = true
	}
	for _, want := range []string{"sol.py", problem.Entrypoint} {
		if !names[want] {
			t.Errorf("expected file %q in program, got %v", want, fmt.Sprint(names))
		}
	}
}
