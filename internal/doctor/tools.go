package doctor

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/rileyhilliard/gitacct/internal/exec"
)

const toolTimeout = 5 * time.Second

// Tool describes an external program gitacct relies on.
type Tool struct {
	Name        string
	VersionArgs []string // nil when the tool has no version flag
	Purpose     string
}

// RequiredTools are the programs gitacct shells out to.
var RequiredTools = []Tool{
	{Name: "git", VersionArgs: []string{"--version"}, Purpose: "reading and writing repositories"},
	{Name: "ssh", VersionArgs: []string{"-V"}, Purpose: "testing connections"},
	{Name: "ssh-keygen", Purpose: "generating keys"},
}

// ToolStatus is what ProbeTool found.
type ToolStatus struct {
	Name      string `json:"name"`
	Installed bool   `json:"installed"`
	Path      string `json:"path,omitempty"`
	Version   string `json:"version,omitempty"`
}

// ProbeTool looks tool up on PATH and asks it for its version.
func ProbeTool(ctx context.Context, runner exec.Runner, tool Tool) ToolStatus {
	st := ToolStatus{Name: tool.Name}
	path, err := exec.LookPath(tool.Name)
	if err != nil {
		return st
	}
	st.Installed = true
	st.Path = path

	if tool.VersionArgs == nil || runner == nil {
		return st
	}
	ctx, cancel := context.WithTimeout(ctx, toolTimeout)
	defer cancel()
	res, err := runner.Run(ctx, exec.Command{Name: tool.Name, Args: tool.VersionArgs})
	if err != nil {
		return st
	}
	// ssh prints its version on stderr.
	out := strings.TrimSpace(string(res.Stdout))
	if out == "" {
		out = strings.TrimSpace(string(res.Stderr))
	}
	if i := strings.IndexByte(out, '\n'); i >= 0 {
		out = out[:i]
	}
	st.Version = out
	return st
}

// Prerequisites is the body of the prerequisites endpoint.
type Prerequisites struct {
	Git       bool                `json:"git"`
	SSH       bool                `json:"ssh"`
	SSHKeygen bool                `json:"ssh_keygen"`
	Details   PrerequisiteDetails `json:"details"`
}

// PrerequisiteDetails carries versions and platform facts.
type PrerequisiteDetails struct {
	GitVersion string `json:"git_version,omitempty"`
	SSHVersion string `json:"ssh_version,omitempty"`
	Platform   string `json:"platform"`
	GoVersion  string `json:"go_version"`
}

// OK reports whether every required tool is installed.
func (p Prerequisites) OK() bool {
	return p.Git && p.SSH && p.SSHKeygen
}

// CheckPrerequisites probes every required tool.
func CheckPrerequisites(ctx context.Context, runner exec.Runner) Prerequisites {
	p := Prerequisites{Details: PrerequisiteDetails{
		Platform:  runtime.GOOS,
		GoVersion: runtime.Version(),
	}}
	for _, tool := range RequiredTools {
		st := ProbeTool(ctx, runner, tool)
		switch tool.Name {
		case "git":
			p.Git = st.Installed
			p.Details.GitVersion = st.Version
		case "ssh":
			p.SSH = st.Installed
			p.Details.SSHVersion = st.Version
		case "ssh-keygen":
			p.SSHKeygen = st.Installed
		}
	}
	return p
}

// ToolCheck verifies a required program is on PATH.
type ToolCheck struct {
	Tool   Tool
	Runner exec.Runner
}

func (c *ToolCheck) Name() string     { return "tool_" + c.Tool.Name }
func (c *ToolCheck) Category() string { return "TOOLS" }

func (c *ToolCheck) Run() CheckResult {
	st := ProbeTool(context.Background(), c.Runner, c.Tool)
	if !st.Installed {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("%s not found on PATH", c.Tool.Name),
			Suggestion: fmt.Sprintf("Install %s; gitacct needs it for %s.", c.Tool.Name, c.Tool.Purpose),
		}
	}

	msg := fmt.Sprintf("%s: %s", c.Tool.Name, st.Path)
	if st.Version != "" {
		msg = fmt.Sprintf("%s (%s)", msg, st.Version)
	}
	return CheckResult{Name: c.Name(), Status: StatusPass, Message: msg}
}

func (c *ToolCheck) Fix() error {
	return nil // Installing system packages is out of scope
}

// NewToolChecks creates a check per required tool.
func NewToolChecks(runner exec.Runner) []Check {
	checks := make([]Check, 0, len(RequiredTools))
	for _, t := range RequiredTools {
		checks = append(checks, &ToolCheck{Tool: t, Runner: runner})
	}
	return checks
}
