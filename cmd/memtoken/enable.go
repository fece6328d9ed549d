package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "enable <token-prefix>",
		Short: "Re-enable every previously revoked token matching a prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				exitErr("open store", err)
			}
			defer store.Close()

			n, err := store.Enable(cmdCtx(), args[0])
			if err != nil {
				exitErr("enable token", err)
			}
			if n == 0 {
				exitErr("enable token", fmt.Errorf("no token matched prefix %q", args[0]))
			}
			fmt.Printf("Enabled %d token(s) matching %q\n", n, args[0])
			return nil
		},
	}
	rootCmd.AddCommand(cmd)
}
