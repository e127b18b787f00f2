// Package cli implements the gitacct command-line interface.
//
// Commands are Cobra commands grouped by noun:
//
//	gitacct account [add|list|show|update|delete|test]
//	gitacct type [add|list|rename|delete]
//	gitacct project [add|list|show|update|delete|configure|validate|scan|test]
//	gitacct ssh [sync|import|hosts|keys]
//	gitacct doctor
//	gitacct unlock
//	gitacct serve
//	gitacct config [init|show|get|set]
//
// Every command that touches records goes through internal/service, the
// same layer the HTTP API uses, so the two surfaces share one set of rules.
//
// # Output
//
// Human output is styled with lipgloss and goes to stdout; spinners go to
// stderr. With --json every command prints a JSONEnvelope instead and
// interactive prompts are disabled.
//
// # Flag Handling
//
// Global flags (--config, --verbose, --no-color, --json, --yes) live on the
// root command. Deletes ask for confirmation unless --yes is given, and
// refuse to run without a terminal otherwise.
package cli
