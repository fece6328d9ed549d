// Command memtoken is the administrative CLI for the auth store,
// covering the create/list/revoke/enable/delete/audit/stats surface
// spec.md §6 names. Grounded on
// original_source/scripts/mcp-token.py's click-based subcommands and
// rcliao-agent-memory/internal/cli's cobra-per-file convention.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
