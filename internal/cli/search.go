package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search permanent memory and the session buffer",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}
	cmd.Flags().Bool("promoted-only", false, "Skip the unpromoted session buffer")
	RootCmd.AddCommand(cmd)

	blocker := &cobra.Command{
		Use:   "blocker [description]",
		Short: "Log a blocker and find related memories",
		Args:  cobra.MinimumNArgs(1),
		Run:   runBlocker,
	}
	RootCmd.AddCommand(blocker)
}

func runSearch(cmd *cobra.Command, args []string) {
	promotedOnly, _ := cmd.Flags().GetBool("promoted-only")
	query := strings.Join(args, " ")

	e, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer e.Close()

	hits, err := e.Search(cmd.Context(), query, !promotedOnly)
	if err != nil {
		exitErr("search", err)
	}

	if formatFlag == "text" {
		for _, h := range hits {
			fmt.Printf("[%s] %s\n", h.Source, h.Entry.Text)
		}
		return
	}
	printJSON(hits)
}

func runBlocker(cmd *cobra.Command, args []string) {
	e, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer e.Close()

	res, err := e.Blocker(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		exitErr("blocker", err)
	}
	printJSON(res)
}
