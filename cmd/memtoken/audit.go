package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	var userID string
	var limit int

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the authentication audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				exitErr("open store", err)
			}
			defer store.Close()

			entries, err := store.Audit(cmdCtx(), userID, limit)
			if err != nil {
				exitErr("audit", err)
			}
			if len(entries) == 0 {
				fmt.Println("No audit log entries found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "TIMESTAMP\tUSER ID\tACTION\tMESSAGE\tCLIENT")
			for _, e := range entries {
				msg := e.ErrorMessage
				if msg == "" {
					msg = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					e.Timestamp.Format("2006-01-02 15:04:05"), e.UserID, e.Action, msg, e.ClientInfo)
			}
			w.Flush()
			fmt.Printf("\nShowing %d entries\n", len(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "Filter by user ID")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum entries to show")

	rootCmd.AddCommand(cmd)
}
