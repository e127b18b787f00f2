// Package ui provides terminal output components for gitacct: colors and
// symbols, a spinner for slow operations such as key generation, tables
// for account and project listings, an interactive account picker, and
// confirmation prompts.
//
// # Color Scheme
//
//	ColorSuccess   - Successful operations
//	ColorError     - Failures and errors
//	ColorWarning   - Warnings and skipped items
//	ColorInfo      - Informational messages
//	ColorMuted     - Secondary text, timing info
//
// Use DisableColors() or ApplyColorMode("never") for monochrome output.
//
// # Spinner Usage
//
//	s := ui.NewSpinner("Generating key")
//	s.Start()
//	// ... do work ...
//	s.Success() // or s.Fail() or s.Skip()
//
// # Tables
//
//	fmt.Print(ui.RenderSimpleTable(columns, rows))
//
// Interactive components (PickAccount, Confirm) must only run when stdin is
// a terminal; callers check IsTerminal first.
package ui
