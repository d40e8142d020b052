package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/scholarloop/scholarloop/internal/dbctx"
	"github.com/scholarloop/scholarloop/internal/entitlement"
)

var usageCmd = &cobra.Command{
	Use:   "usage <user-id>",
	Short: "Show a user's usage events and remaining AI quota",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid user ID %q: %w", args[0], err)
		}
		window, _ := cmd.Flags().GetDuration("since")

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		dbc := dbctx.New(cmd.Context())
		since := time.Now().Add(-window)
		events, err := e.store.Usage.ListByUser(dbc, userID, since)
		if err != nil {
			return fmt.Errorf("list usage: %w", err)
		}
		aiUsed, err := e.store.Usage.CountSince(dbc, userID, entitlement.EventPrefix, time.Now().Add(-24*time.Hour))
		if err != nil {
			return fmt.Errorf("count usage: %w", err)
		}

		out := cmd.OutOrStdout()
		byType := map[string]int{}
		for _, ev := range events {
			byType[ev.EventType]++
		}
		types := make([]string, 0, len(byType))
		for t := range byType {
			types = append(types, t)
		}
		sort.Strings(types)

		fmt.Fprintf(out, "Usage since %s\n", since.Local().Format("2006-01-02 15:04"))
		fmt.Fprintln(out, strings.Repeat("─", 40))
		if len(types) == 0 {
			fmt.Fprintln(out, "No usage recorded.")
		}
		for _, t := range types {
			fmt.Fprintf(out, "%-28s  %6d\n", t, byType[t])
		}
		fmt.Fprintln(out, strings.Repeat("─", 40))
		fmt.Fprintf(out, "AI calls in the last 24h: %d (daily limit %d, trial %d)\n",
			aiUsed, e.cfg.Entitlement.DailyLimit, e.cfg.Entitlement.TrialDailyLimit)
		return nil
	},
}

func init() {
	usageCmd.Flags().Duration("since", 7*24*time.Hour, "How far back to list events")
}
