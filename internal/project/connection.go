package project

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rileyhilliard/gitacct/internal/errors"
	"github.com/rileyhilliard/gitacct/internal/exec"
)

// DefaultConnectTimeout bounds a connection test.
const DefaultConnectTimeout = 15 * time.Second

// ConnectionResult is the outcome of an SSH authentication test.
type ConnectionResult struct {
	Alias    string        `json:"alias"`
	OK       bool          `json:"ok"`
	Output   string        `json:"output"`
	Duration time.Duration `json:"duration"`
}

// TestConnection runs `ssh -T git@<alias>` non-interactively. Git hosts
// refuse a shell, so GitHub exits 1 even on success; the greeting decides.
func TestConnection(ctx context.Context, runner exec.Runner, alias string) (*ConnectionResult, error) {
	if runner == nil {
		runner = exec.NewLocalRunner()
	}
	ctx, cancel := context.WithTimeout(ctx, DefaultConnectTimeout)
	defer cancel()

	res, err := runner.Run(ctx, exec.Command{
		Name: "ssh",
		Args: []string{
			"-T",
			"-o", "BatchMode=yes",
			"-o", "ConnectTimeout=10",
			"-o", "StrictHostKeyChecking=accept-new",
			"git@" + alias,
		},
	})
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't test SSH access for %s", alias),
			"Make sure ssh is installed and the host alias is synced: gitacct ssh sync")
	}

	out := res.Diagnostic()
	return &ConnectionResult{
		Alias:    alias,
		OK:       res.ExitCode == 0 || authenticated(out),
		Output:   out,
		Duration: res.Duration,
	}, nil
}

func authenticated(output string) bool {
	lower := strings.ToLower(output)
	return strings.Contains(lower, "successfully authenticated") ||
		strings.Contains(lower, "welcome to")
}
