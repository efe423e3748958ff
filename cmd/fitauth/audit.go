package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/fitlife/fitAuth/audit"
	"github.com/spf13/cobra"
)

var (
	auditLimit int
	auditUser  string
	auditJSON  bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspects the activity and login logs",
}

var auditActivitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "Lists recent activity records, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, done, err := openAudit()
		if err != nil {
			return err
		}
		defer done()

		var recs []audit.ActivityRecord
		if auditUser != "" {
			recs, err = logger.ActivitiesForUser(cmd.Context(), auditUser, auditLimit)
		} else {
			recs, err = logger.RecentActivities(cmd.Context(), auditLimit)
		}
		if err != nil {
			return err
		}
		if auditJSON {
			return printJSON(cmd.OutOrStdout(), recs)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tUSER\tACTION\tDETAILS")
		for _, r := range recs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Timestamp.Format(time.RFC3339), r.UserEmail, r.Action, r.Details)
		}
		return w.Flush()
	},
}

var auditLoginsCmd = &cobra.Command{
	Use:   "logins",
	Short: "Lists recent login records, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, done, err := openAudit()
		if err != nil {
			return err
		}
		defer done()

		recs, err := logger.RecentLogins(cmd.Context(), auditLimit)
		if err != nil {
			return err
		}
		if auditJSON {
			return printJSON(cmd.OutOrStdout(), recs)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "LOGIN\tUSER\tSUCCESS\tDURATION\tREASON")
		for _, r := range recs {
			duration := "open"
			if r.SessionDuration != nil {
				duration = (time.Duration(*r.SessionDuration) * time.Second).String()
			}
			fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", r.LoginTime.Format(time.RFC3339), r.UserEmail, r.Success, duration, r.FailureReason)
		}
		return w.Flush()
	},
}

var auditStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints counters derived from the activity log",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, done, err := openAudit()
		if err != nil {
			return err
		}
		defer done()

		stats, err := logger.Stats(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), stats)
	},
}

var auditClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Deletes both logs and the derived counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, done, err := openAudit()
		if err != nil {
			return err
		}
		defer done()
		return logger.Clear(cmd.Context())
	},
}

func openAudit() (*audit.Logger, func(), error) {
	rt, err := openRuntime()
	if err != nil {
		return nil, nil, err
	}
	engine, err := rt.engine(tabID)
	if err != nil {
		rt.Close()
		return nil, nil, err
	}
	return engine.Audit(), func() {
		engine.Close()
		rt.Close()
	}, nil
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditActivitiesCmd, auditLoginsCmd, auditStatsCmd, auditClearCmd)

	auditCmd.PersistentFlags().IntVar(&auditLimit, "limit", 20, "maximum records to print")
	auditCmd.PersistentFlags().BoolVar(&auditJSON, "json", false, "print records as JSON")
	auditActivitiesCmd.Flags().StringVar(&auditUser, "user", "", "only records of this user id")
}
