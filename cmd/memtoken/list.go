package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	var userID string
	var showTokens bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all authentication tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				exitErr("open store", err)
			}
			defer store.Close()

			tokens, err := store.List(cmdCtx(), userID)
			if err != nil {
				exitErr("list tokens", err)
			}
			if len(tokens) == 0 {
				fmt.Println("No tokens found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "TOKEN\tUSER ID\tNAME\tSTATUS\tCREATED\tLAST USED\tEXPIRES")
			now := time.Now()
			for _, t := range tokens {
				display := t.Token[:min(16, len(t.Token))] + "..."
				if showTokens {
					display = t.Token
				}
				status := "active"
				if !t.Enabled {
					status = "disabled"
				} else if t.ExpiresAt != nil && now.After(*t.ExpiresAt) {
					status = "expired"
				}
				name := t.DisplayName
				if name == "" {
					name = "n/a"
				}
				lastUsed := "never"
				if t.LastUsedAt != nil {
					lastUsed = t.LastUsedAt.Format("2006-01-02 15:04")
				}
				expires := "never"
				if t.ExpiresAt != nil {
					expires = t.ExpiresAt.Format("2006-01-02")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					display, t.UserID, name, status, t.CreatedAt.Format("2006-01-02"), lastUsed, expires)
			}
			w.Flush()
			fmt.Printf("\nTotal: %d token(s)\n", len(tokens))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "Filter by user ID")
	cmd.Flags().BoolVar(&showTokens, "show-tokens", false, "Show full tokens (security risk)")

	rootCmd.AddCommand(cmd)
}
