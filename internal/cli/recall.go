package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "recall",
		Short: "Load memory context for the current session",
		Long: "Runs the session lifecycle: detects whether a new session has begun,\n" +
			"promotes buffered notes across the boundary, and prints the assembled\n" +
			"context. Safe to call repeatedly; back-to-back calls are idempotent.",
		Run: runRecall,
	}
	cmd.Flags().Bool("force", false, "Force a session boundary regardless of elapsed time")
	RootCmd.AddCommand(cmd)

	RootCmd.AddCommand(&cobra.Command{
		Use:   "checkpoint",
		Short: "Force a session boundary now",
		Run: func(cmd *cobra.Command, args []string) {
			e, err := openEngine()
			if err != nil {
				exitErr("open engine", err)
			}
			defer e.Close()

			res, err := e.Checkpoint(cmd.Context())
			if err != nil {
				exitErr("checkpoint", err)
			}
			printJSON(res)
		},
	})
}

func runRecall(cmd *cobra.Command, args []string) {
	force, _ := cmd.Flags().GetBool("force")

	e, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer e.Close()

	res, err := e.Recall(cmd.Context(), force)
	if err != nil {
		exitErr("recall", err)
	}

	if formatFlag == "text" {
		fmt.Println(res.Context)
		return
	}
	printJSON(res)
}
