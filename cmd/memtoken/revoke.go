package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "revoke <token-prefix>",
		Short: "Revoke (disable) every token matching a prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				exitErr("open store", err)
			}
			defer store.Close()

			n, err := store.Revoke(cmdCtx(), args[0])
			if err != nil {
				exitErr("revoke token", err)
			}
			if n == 0 {
				exitErr("revoke token", fmt.Errorf("no token matched prefix %q", args[0]))
			}
			fmt.Printf("Revoked %d token(s) matching %q\n", n, args[0])
			return nil
		},
	}
	rootCmd.AddCommand(cmd)
}
