package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rmkendall/croft/errors"
	"github.com/rmkendall/croft/workspace"
)

// defaultCommandTimeout bounds external process invocations that do not
// request their own timeout.
const defaultCommandTimeout = 60 * time.Second

// RunShellCommandTool runs an allowlisted OS command inside the sandbox
// root.
type RunShellCommandTool struct {
	allowedCommands []string
	ws              *workspace.Context
}

func (t *RunShellCommandTool) Name() string { return "run_shell_command" }
func (t *RunShellCommandTool) Description() string {
	if len(t.allowedCommands) == 0 {
		return "Executes a shell command. No commands are currently allowed. Args: command (string), timeout (int seconds, optional)."
	}

	var b strings.Builder
	b.WriteString("Executes a shell command. Args: command (string), timeout (int seconds, optional).\n")
	b.WriteString("Allowed command patterns:\n")
	for _, cmd := range t.allowedCommands {
		fmt.Fprintf(&b, "- %s\n", cmd)
	}
	return b.String()
}

func (t *RunShellCommandTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	command, ok := args["command"].(string)
	if !ok {
		return "", errors.New("missing or invalid 'command' argument")
	}

	allowed, err := isCommandAllowed(command, t.allowedCommands)
	if err != nil {
		return "", err
	}
	if !allowed {
		return "", errors.New("command '%s' is not in the list of allowed commands", command)
	}

	timeout := defaultCommandTimeout
	if secs, ok := args["timeout"].(int); ok && secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	parts := strings.Fields(command)
	cmd := exec.CommandContext(cctx, parts[0], parts[1:]...)
	cmd.Dir = t.ws.Root()

	output, err := cmd.CombinedOutput()
	if cctx.Err() == context.DeadlineExceeded {
		return "", errors.New("command '%s' timed out after %s", command, timeout)
	}
	if err != nil {
		return "", errors.Wrapf(err, "command execution failed. Output:\n%s", string(output))
	}

	return fmt.Sprintf("Command executed successfully. Output:\n%s", string(output)), nil
}
