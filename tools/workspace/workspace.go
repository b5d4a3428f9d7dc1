// Package workspace provides file and shell tools confined to one directory,
// for agents that produce or inspect files.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/armatrix/orchestra-go/tools"
)

// Tool names.
const (
	BashName  = "Bash"
	ReadName  = "ReadFile"
	WriteName = "WriteFile"
	EditName  = "Edit"
	GlobName  = "Glob"
)

// Names lists every workspace tool.
var Names = []string{BashName, ReadName, WriteName, EditName, GlobName}

var errOutsideRoot = errors.New("path is outside the workspace")

const (
	defaultCommandTimeout = 2 * time.Minute
	maxCommandTimeout     = 10 * time.Minute
	maxOutputBytes        = 30_000
)

// Workspace is a directory agents may read, write and run commands in.
type Workspace struct {
	// Root is the directory every path is resolved against.
	Root string
	// ReadOnly omits the tools that modify files or run commands.
	ReadOnly bool
	// CommandTimeout bounds Bash commands that do not set their own.
	CommandTimeout time.Duration
}

// New returns a workspace rooted at the absolute form of root. The directory
// must exist.
func New(root string) (*Workspace, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace: %s is not a directory", abs)
	}
	return &Workspace{Root: abs}, nil
}

// Register adds the workspace tools to r.
func (w *Workspace) Register(r *tools.Registry) {
	tools.Register(r, &readTool{w})
	tools.Register(r, &globTool{w})
	if w.ReadOnly {
		return
	}
	tools.Register(r, &writeTool{w})
	tools.Register(r, &editTool{w})
	tools.Register(r, &bashTool{w})
}

// resolve maps a relative or absolute path into the workspace.
func (w *Workspace) resolve(path string) (string, error) {
	if path == "" {
		return "", errors.New("path is required")
	}
	p := path
	if !filepath.IsAbs(p) {
		p = filepath.Join(w.Root, p)
	}
	p = filepath.Clean(p)
	if !within(w.Root, p) || !within(realPath(w.Root), realPath(p)) {
		return "", fmt.Errorf("%w: %s", errOutsideRoot, path)
	}
	return p, nil
}

func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// realPath follows symlinks in p. Components that do not exist yet are kept
// as written, so paths of files about to be created resolve too.
func realPath(p string) string {
	var rest []string
	cur := p
	for range 64 {
		if real, err := filepath.EvalSymlinks(cur); err == nil {
			return filepath.Join(append([]string{real}, rest...)...)
		}
		// Dangling link: continue from its target.
		if target, err := os.Readlink(cur); err == nil {
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(cur), target)
			}
			cur = filepath.Clean(target)
			continue
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		rest = append([]string{filepath.Base(cur)}, rest...)
		cur = parent
	}
	return p
}

func (w *Workspace) timeout(ms int) time.Duration {
	d := w.CommandTimeout
	if d <= 0 {
		d = defaultCommandTimeout
	}
	if ms > 0 {
		d = time.Duration(ms) * time.Millisecond
	}
	return min(d, maxCommandTimeout)
}

func truncate(s string) string {
	if len(s) > maxOutputBytes {
		return s[:maxOutputBytes] + "\n... [output truncated]"
	}
	return s
}
