package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/snorlak1/mem0-server-mcp/internal/authstore"
	"github.com/snorlak1/mem0-server-mcp/internal/authstore/postgres"
	"github.com/snorlak1/mem0-server-mcp/internal/config"
)

var dsnFlag string

var rootCmd = &cobra.Command{
	Use:   "memtoken",
	Short: "Manage MCP Gateway authentication tokens",
	Long:  "Create, list, revoke, enable, delete, and audit tokens in the auth store.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dsnFlag, "dsn", "", "Postgres DSN (default: $AUTH_STORE_DSN)")
}

func openStore() (authstore.Store, error) {
	dsn := dsnFlag
	if dsn == "" {
		if cfg, err := config.Load(); err == nil {
			dsn = cfg.AuthStoreDSN
		}
	}
	if dsn == "" {
		return nil, fmt.Errorf("no auth store DSN: pass --dsn or set AUTH_STORE_DSN")
	}
	return postgres.NewClient(postgres.Config{DSN: dsn})
}

func exitErr(msg string, err error) {
	fmt.Fprintf(os.Stderr, "error: %s: %v\n", msg, err)
	os.Exit(1)
}

// cmdCtx is the background context every subcommand's store call runs
// under; the CLI has no request lifecycle to cancel against.
func cmdCtx() context.Context {
	return context.Background()
}
