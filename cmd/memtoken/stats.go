package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats <user-id>",
		Short: "Show token usage statistics for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				exitErr("open store", err)
			}
			defer store.Close()

			s, err := store.Stats(cmdCtx(), args[0])
			if err != nil {
				exitErr("stats", err)
			}

			lastActivity := "never"
			if s.LastActivity != nil {
				lastActivity = s.LastActivity.Format("2006-01-02 15:04:05")
			}

			fmt.Printf("Stats for user %q\n", s.UserID)
			fmt.Printf("  Total tokens:    %d\n", s.TotalTokens)
			fmt.Printf("  Active tokens:   %d\n", s.ActiveTokens)
			fmt.Printf("  Last activity:   %s\n", lastActivity)
			fmt.Printf("  Logins (30d):    %d\n", s.Logins30d)
			return nil
		},
	}
	rootCmd.AddCommand(cmd)
}
