package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/armatrix/orchestra-go/tools"
)

// ReadInput is the input of the ReadFile tool.
type ReadInput struct {
	Path   string `json:"path" jsonschema:"required,description=File path relative to the workspace"`
	Offset int    `json:"offset,omitempty" jsonschema:"description=First line to return (1-based)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Maximum number of lines"`
}

type readTool struct{ w *Workspace }

func (t *readTool) Name() string { return ReadName }
func (t *readTool) Description() string {
	return "Read a text file from the workspace, with line numbers"
}

func (t *readTool) Execute(_ context.Context, in ReadInput) (*tools.Result, error) {
	path, err := t.w.resolve(in.Path)
	if err != nil {
		return tools.ErrorResult(err.Error()), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return tools.ErrorResult(fmt.Sprintf("failed to read file: %s", err)), nil
	}

	lines := strings.Split(string(data), "\n")
	start := max(in.Offset, 1) - 1
	if start >= len(lines) {
		return tools.ErrorResult(fmt.Sprintf("offset %d is past the end of the file (%d lines)", in.Offset, len(lines))), nil
	}
	end := len(lines)
	if in.Limit > 0 {
		end = min(start+in.Limit, end)
	}

	var b strings.Builder
	for i := start; i < end; i++ {
		fmt.Fprintf(&b, "%6d\t%s\n", i+1, lines[i])
	}
	return tools.TextResult(truncate(b.String())), nil
}

// WriteInput is the input of the WriteFile tool.
type WriteInput struct {
	Path    string `json:"path" jsonschema:"required,description=File path relative to the workspace"`
	Content string `json:"content" jsonschema:"required,description=Full file content"`
}

type writeTool struct{ w *Workspace }

func (t *writeTool) Name() string { return WriteName }
func (t *writeTool) Description() string {
	return "Create or overwrite a file in the workspace. Parent directories are created."
}

func (t *writeTool) Execute(_ context.Context, in WriteInput) (*tools.Result, error) {
	path, err := t.w.resolve(in.Path)
	if err != nil {
		return tools.ErrorResult(err.Error()), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return tools.ErrorResult(fmt.Sprintf("failed to create directory: %s", err)), nil
	}
	if err := os.WriteFile(path, []byte(in.Content), 0o644); err != nil {
		return tools.ErrorResult(fmt.Sprintf("failed to write file: %s", err)), nil
	}
	return tools.TextResult(fmt.Sprintf("Wrote %d bytes to %s", len(in.Content), in.Path)), nil
}

// EditInput is the input of the Edit tool.
type EditInput struct {
	Path       string `json:"path" jsonschema:"required,description=File path relative to the workspace"`
	OldString  string `json:"old_string" jsonschema:"required,description=The text to replace"`
	NewString  string `json:"new_string" jsonschema:"required,description=The replacement text"`
	ReplaceAll bool   `json:"replace_all,omitempty" jsonschema:"description=Replace all occurrences"`
}

type editTool struct{ w *Workspace }

func (t *editTool) Name() string { return EditName }
func (t *editTool) Description() string {
	return "Perform an exact string replacement in a workspace file"
}

func (t *editTool) Execute(_ context.Context, in EditInput) (*tools.Result, error) {
	path, err := t.w.resolve(in.Path)
	if err != nil {
		return tools.ErrorResult(err.Error()), nil
	}
	if in.OldString == in.NewString {
		return tools.ErrorResult("old_string and new_string must be different"), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return tools.ErrorResult(fmt.Sprintf("failed to read file: %s", err)), nil
	}

	content := string(data)
	count := strings.Count(content, in.OldString)
	switch {
	case count == 0:
		return tools.ErrorResult("old_string not found in file"), nil
	case count > 1 && !in.ReplaceAll:
		return tools.ErrorResult(fmt.Sprintf(
			"old_string appears %d times in file; set replace_all or add context to make it unique", count)), nil
	}

	n := 1
	if in.ReplaceAll {
		n = -1
	}
	if err := os.WriteFile(path, []byte(strings.Replace(content, in.OldString, in.NewString, n)), 0o644); err != nil {
		return tools.ErrorResult(fmt.Sprintf("failed to write file: %s", err)), nil
	}
	return tools.TextResult(fmt.Sprintf("Replaced %d occurrence(s) in %s", count, in.Path)), nil
}

// GlobInput is the input of the Glob tool.
type GlobInput struct {
	Pattern string `json:"pattern" jsonschema:"required,description=Glob pattern such as **/*.go"`
}

type globTool struct{ w *Workspace }

func (t *globTool) Name() string        { return GlobName }
func (t *globTool) Description() string { return "List workspace files matching a glob pattern" }

func (t *globTool) Execute(_ context.Context, in GlobInput) (*tools.Result, error) {
	if !doublestar.ValidatePattern(in.Pattern) {
		return tools.ErrorResult(fmt.Sprintf("invalid pattern %q", in.Pattern)), nil
	}
	matches, err := doublestar.Glob(os.DirFS(t.w.Root), in.Pattern, doublestar.WithFilesOnly())
	if err != nil {
		return tools.ErrorResult(err.Error()), nil
	}
	if len(matches) == 0 {
		return tools.TextResult("no files matched"), nil
	}
	return tools.TextResult(truncate(strings.Join(matches, "\n"))), nil
}
