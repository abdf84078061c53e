package cli

import (
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show store health: sizes, counts, staleness warnings",
		Run:   runStatus,
	})
}

func runStatus(cmd *cobra.Command, args []string) {
	e, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer e.Close()

	res, err := e.Status(cmd.Context())
	if err != nil {
		exitErr("status", err)
	}
	printJSON(res)
}
