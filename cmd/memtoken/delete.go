package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <token-prefix>",
		Short: "Permanently delete every token matching a prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("this is permanent; re-run with --yes to confirm")
			}

			store, err := openStore()
			if err != nil {
				exitErr("open store", err)
			}
			defer store.Close()

			n, err := store.Delete(cmdCtx(), args[0])
			if err != nil {
				exitErr("delete token", err)
			}
			if n == 0 {
				exitErr("delete token", fmt.Errorf("no token matched prefix %q", args[0]))
			}
			fmt.Printf("Deleted %d token(s) matching %q\n", n, args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm permanent deletion")
	rootCmd.AddCommand(cmd)
}
