package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/creack/pty"

	"github.com/armatrix/orchestra-go/tools"
)

// BashInput is the input of the Bash tool.
type BashInput struct {
	Command string `json:"command" jsonschema:"required,description=The command to execute"`
	Timeout int    `json:"timeout,omitempty" jsonschema:"description=Timeout in milliseconds (max 600000)"`
}

type bashTool struct{ w *Workspace }

func (t *bashTool) Name() string { return BashName }
func (t *bashTool) Description() string {
	return "Run a bash command with the workspace as working directory"
}

func (t *bashTool) Execute(ctx context.Context, in BashInput) (*tools.Result, error) {
	if in.Command == "" {
		return tools.ErrorResult("command is required"), nil
	}
	timeout := t.w.timeout(in.Timeout)
	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(cmdCtx, "bash", "-c", in.Command)
	cmd.Dir = t.w.Root

	var output []byte
	ptmx, err := pty.Start(cmd)
	if err == nil {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, ptmx) // EIO once the process exits
		_ = ptmx.Close()
		err = cmd.Wait()
		output = buf.Bytes()
	} else {
		cmd = exec.CommandContext(cmdCtx, "bash", "-c", in.Command)
		cmd.Dir = t.w.Root
		output, err = cmd.CombinedOutput()
	}

	if errors.Is(cmdCtx.Err(), context.DeadlineExceeded) {
		return tools.ErrorResult(fmt.Sprintf("command timed out after %s", timeout)), nil
	}
	text := truncate(string(output))
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return tools.TextResult(text), nil
	case errors.As(err, &exitErr):
		return tools.ErrorResult(fmt.Sprintf("%s\n[exit code %d]", text, exitErr.ExitCode())), nil
	default:
		return tools.ErrorResult(fmt.Sprintf("%s\n[%s]", text, err)), nil
	}
}
