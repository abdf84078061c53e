// Package cli implements the mnemo CLI commands.
package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/mnemo/internal/config"
	"github.com/rcliao/mnemo/internal/core"
)

var (
	dataDir    string
	formatFlag string
	verbose    bool
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "mnemo",
	Short: "Session continuity for AI coding assistants",
	Long: "mnemo keeps cross-session memory in plain markdown files: it extracts facts\n" +
		"from loose prose, detects session boundaries, promotes working notes to\n" +
		"permanent memory, warns about repeated rejected approaches, and surfaces\n" +
		"due reminders.",
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dataDir, "dir", "d", "", "Data directory (default: $MNEMO_DIR or ./.mnemo)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "json", "Output format: json or text")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging to stderr")
}

func getDataDir() string {
	if dataDir != "" {
		return dataDir
	}
	if env := os.Getenv("MNEMO_DIR"); env != "" {
		return env
	}
	return ".mnemo"
}

func openEngine() (*core.Engine, error) {
	dir := getDataDir()
	cfg, err := config.Load(filepath.Join(dir, core.ConfigFile))
	if err != nil {
		return nil, err
	}

	logger := zap.NewNop()
	if verbose {
		logger, _ = zap.NewDevelopment()
	}
	return core.Open(dir, cfg, logger)
}

func printJSON(v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}
