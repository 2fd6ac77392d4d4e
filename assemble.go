package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gradeflow/api/services/problem"
)

// newAssembleCmd compiles every programming test case in a problem
// definition and prints the generated source, without executing anything.
// The declared required inputs stand in for a candidate submission so a
// definition can be checked end-to-end on its own.
func newAssembleCmd() *cobra.Command {
	var defnPath string

	cmd := &cobra.Command{
		Use:   "assemble",
		Short: "Compile all programming test cases in a problem definition",
		RunE: func(cmd *cobra.Command, _ []string) error {
			defn, err := loadProblem(defnPath)
			if err != nil {
				return err
			}

			for _, task := range defn.Tasks {
				pt, ok := task.(*problem.ProgrammingTask)
				if !ok {
					continue
				}

				programs, err := pt.Programs(pt.RequiredInputs)
				if err != nil {
					return fmt.Errorf("task %d: %w", pt.ID, err)
				}
				for _, prog := range programs {
					fmt.Fprintf(cmd.OutOrStdout(), "# task %d testcase %d\n", pt.ID, prog.ID)
					for _, f := range prog.Files {
						if f.Name != prog.Entrypoint {
							continue
						}
						fmt.Fprintln(cmd.OutOrStdout(), f.Content)
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&defnPath, "defn", "", "path to the problem definition JSON")
	cmd.MarkFlagRequired("defn")
	return cmd
}

func loadProblem(path string) (*problem.Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read problem definition: %w", err)
	}
	var defn problem.Problem
	if err := json.Unmarshal(data, &defn); err != nil {
		return nil, fmt.Errorf("parse problem definition: %w", err)
	}
	return &defn, nil
}
