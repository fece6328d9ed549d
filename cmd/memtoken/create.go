package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	var userID, email, name string
	var expiresDays int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new MCP authentication token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user-id is required")
			}
			if email == "" {
				email = userID
			}

			store, err := openStore()
			if err != nil {
				exitErr("open store", err)
			}
			defer store.Close()

			var expiresAt *int64
			if expiresDays > 0 {
				ts := time.Now().Add(time.Duration(expiresDays) * 24 * time.Hour).Unix()
				expiresAt = &ts
			}

			var permissions []string
			token, err := store.CreateToken(cmdCtx(), userID, name, email, permissions, expiresAt)
			if err != nil {
				exitErr("create token", err)
			}

			fmt.Println(strings.Repeat("=", 80))
			fmt.Println("Token created successfully")
			fmt.Println(strings.Repeat("=", 80))
			fmt.Printf("Token:        %s\n", token.Token)
			fmt.Printf("User ID:      %s\n", token.UserID)
			if name != "" {
				fmt.Printf("Display Name: %s\n", name)
			}
			if token.ExpiresAt != nil {
				fmt.Printf("Expires:      %s\n", token.ExpiresAt.Format("2006-01-02 15:04:05 UTC"))
			} else {
				fmt.Println("Expires:      Never")
			}
			fmt.Println()
			fmt.Println("Configure the client with:")
			fmt.Printf("  X-MCP-Token: %s\n", token.Token)
			fmt.Printf("  X-MCP-UserID: %s\n", token.UserID)
			fmt.Println(strings.Repeat("=", 80))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "User ID (email recommended)")
	cmd.Flags().StringVar(&email, "email", "", "User email (defaults to user-id)")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().IntVar(&expiresDays, "expires-days", 0, "Token expiry in days (default: never)")

	rootCmd.AddCommand(cmd)
}
