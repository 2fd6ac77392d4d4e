package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	slog.SetDefault(slog.New(logHandler))

	root := &cobra.Command{
		Use:           "gradeflow",
		Short:         "Assessment platform tooling: assemble, dispatch and reconcile graded programs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newAssembleCmd(),
		newSubmitCmd(),
		newServeCmd(),
		newPermsCmd(),
	)

	if err := root.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
