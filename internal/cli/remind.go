package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func init() {
	remind := &cobra.Command{
		Use:   "remind [message]",
		Short: "Create a reminder",
		Long: "Recognized due expressions: \"tomorrow\", \"in 3 days\", \"in 2 weeks\",\n" +
			"\"next session\", \"2026-12-25\", \"December 25\", or \"on kw1,kw2\" for\n" +
			"context-triggered reminders.",
		Args: cobra.MinimumNArgs(1),
		Run:  runRemind,
	}
	remind.Flags().StringP("when", "w", "next session", "Due expression")
	RootCmd.AddCommand(remind)

	RootCmd.AddCommand(&cobra.Command{
		Use:   "reminders",
		Short: "List reminders with their current status",
		Run:   runReminders,
	})

	RootCmd.AddCommand(&cobra.Command{
		Use:   "done [id]",
		Short: "Acknowledge a reminder",
		Args:  cobra.ExactArgs(1),
		Run:   runDone,
	})
}

func runRemind(cmd *cobra.Command, args []string) {
	when, _ := cmd.Flags().GetString("when")

	e, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer e.Close()

	r, err := e.Remind(cmd.Context(), strings.Join(args, " "), when)
	if err != nil {
		exitErr("remind", err)
	}
	printJSON(r)
}

func runReminders(cmd *cobra.Command, args []string) {
	e, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer e.Close()

	reminders, err := e.Reminders(cmd.Context())
	if err != nil {
		exitErr("reminders", err)
	}

	if formatFlag == "text" {
		for _, r := range reminders {
			fmt.Printf("%s  [%s]  %s (%s)\n", r.ID, r.Status, r.Message, r.Expr)
		}
		return
	}
	printJSON(reminders)
}

func runDone(cmd *cobra.Command, args []string) {
	e, err := openEngine()
	if err != nil {
		exitErr("open engine", err)
	}
	defer e.Close()

	if err := e.ReminderDone(cmd.Context(), args[0]); err != nil {
		exitErr("done", err)
	}
	fmt.Println("ok")
}
