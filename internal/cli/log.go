package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "log [text]",
		Short: "Log a memory or working note",
		Long: "Routes text to permanent memory (decision, issue, learning, problem,\n" +
			"progress, gotcha) or the session buffer (experience, blocker, rejected,\n" +
			"assumption). Text can be a positional arg or piped via stdin.",
		Run: runLog,
	}
	cmd.Flags().StringP("kind", "k", "experience", "Entry kind or buffer category")
	RootCmd.AddCommand(cmd)
}

func runLog(cmd *cobra.Command, args []string) {
	kind, _ := cmd.Flags().GetString("kind")

	text := readInput(args)
	if text == "" {
		exitErr("log", fmt.Errorf("text is required (positional arg or stdin)"))
	}

	e, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer e.Close()

	res, err := e.Log(cmd.Context(), text, kind)
	if err != nil {
		exitErr("log", err)
	}
	printJSON(res)
}

// readInput returns positional args joined, falling back to piped stdin.
func readInput(args []string) string {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " "))
	}
	stat, _ := os.Stdin.Stat()
	if (stat.Mode() & os.ModeCharDevice) == 0 {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			exitErr("read stdin", err)
		}
		return strings.TrimSpace(string(b))
	}
	return ""
}
