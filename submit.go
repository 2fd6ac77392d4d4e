package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gradeflow/api/pkg/broker"
	"gradeflow/api/pkg/config"
	"gradeflow/api/pkg/db"
	"gradeflow/api/services/dispatch"
	"gradeflow/api/services/problem"
	"gradeflow/api/services/storage"
)

// newSubmitCmd evaluates a submission against a problem definition: it
// compiles the addressed programming task, publishes the job to the work
// queue and records it as pending. The verdict arrives asynchronously and is
// applied by the serve command's consumer.
func newSubmitCmd() *cobra.Command {
	var (
		defnPath   string
		inputsPath string
		taskID     int
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Dispatch a submission for a programming task",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			defn, err := loadProblem(defnPath)
			if err != nil {
				return err
			}
			task, ok := defn.Task(taskID)
			if !ok {
				return fmt.Errorf("task %d not found in %q", taskID, defn.Name)
			}
			pt, ok := task.(*problem.ProgrammingTask)
			if !ok {
				return fmt.Errorf("task %d is %s, not a programming task", taskID, task.TaskType())
			}

			inputs, err := loadUserInputs(inputsPath)
			if err != nil {
				return err
			}

			cfg := config.Load()
			if err := cfg.RequireDatabase(); err != nil {
				return err
			}
			if err := cfg.RequireBroker(); err != nil {
				return err
			}

			pool, err := db.Connect(ctx, db.DefaultConfig(cfg.DatabaseURL))
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()

			store, err := storage.NewInstance(pool)
			if err != nil {
				return err
			}

			publisher, err := broker.NewPublisher(broker.Config{
				URL:            cfg.AMQPURL,
				Exchange:       cfg.Exchange,
				Queue:          cfg.TaskQueue,
				ConnectionName: cfg.ConnectionName,
			})
			if err != nil {
				return err
			}
			defer publisher.Close()

			dispatcher, err := dispatch.NewDispatcher(publisher, store)
			if err != nil {
				return err
			}

			job, err := dispatcher.Dispatch(ctx, pt, inputs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dispatched job %s (%d programs)\n", job.ID, len(job.Programs))
			return nil
		},
	}

	cmd.Flags().StringVar(&defnPath, "defn", "", "path to the problem definition JSON")
	cmd.Flags().StringVar(&inputsPath, "inputs", "", "path to the user inputs JSON ([{id, data}, ...])")
	cmd.Flags().IntVar(&taskID, "task", 0, "id of the programming task to evaluate")
	cmd.MarkFlagRequired("defn")
	cmd.MarkFlagRequired("inputs")
	cmd.MarkFlagRequired("task")
	return cmd
}

func loadUserInputs(path string) ([]problem.RequiredInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read user inputs: %w", err)
	}
	var inputs []problem.RequiredInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, fmt.Errorf("parse user inputs: %w", err)
	}
	return inputs, nil
}
