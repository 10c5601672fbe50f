// Package workspace implements the project sandbox context. Every path a
// tool touches must resolve to a descendant of a single root directory; the
// Context is the one place that rule is enforced.
package workspace

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rmkendall/croft/errors"
)

// ErrOutsideRoot is returned when a resolved path escapes the sandbox root.
// Callers compare with errors.Is to map the failure to a security result.
var ErrOutsideRoot = errors.New("path resolves outside the sandbox root")

// Context is an immutable sandbox root. It is shared read-only by every tool
// call in a session.
type Context struct {
	root string
}

// New creates a Context rooted at dir. The directory must exist; the stored
// root is absolute with symlinks evaluated so later descendant checks are
// not fooled by links out of the tree.
func New(dir string) (*Context, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("sandbox root is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "could not absolutize sandbox root %q", dir)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "sandbox root %q is not usable", dir)
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return nil, errors.Wrapf(err, "could not stat sandbox root %q", dir)
	}
	if !info.IsDir() {
		return nil, errors.New("sandbox root %q is not a directory", dir)
	}
	return &Context{root: resolved}, nil
}

// Root returns the absolute sandbox root.
func (c *Context) Root() string {
	return c.root
}

// Resolve turns a tool-supplied path into an absolute path inside the root.
// "~" and "~/..." expand against the user home directory, absolute paths are
// taken as given, and relative paths are joined to the root. If the cleaned
// result is not the root or a descendant of it, ErrOutsideRoot is returned.
func (c *Context) Resolve(path string) (string, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return "", errors.New("empty path")
	}

	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "could not expand ~")
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}

	if !filepath.IsAbs(p) {
		p = filepath.Join(c.root, p)
	}
	p = filepath.Clean(p)

	if !c.contains(p) {
		return "", errors.Wrapf(ErrOutsideRoot, "%q", path)
	}

	// The lexical check alone can be defeated by a symlink inside the
	// sandbox that points out of it. Evaluate the deepest existing ancestor
	// and check the real location too.
	real, err := resolveExisting(p)
	if err != nil {
		return "", errors.Wrapf(err, "could not resolve %q", path)
	}
	if !c.contains(real) {
		return "", errors.Wrapf(ErrOutsideRoot, "%q", path)
	}
	return p, nil
}

// resolveExisting evaluates symlinks on the longest existing prefix of p and
// rejoins the not-yet-existing remainder.
func resolveExisting(p string) (string, error) {
	rest := ""
	cur := p
	for {
		real, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(real, rest), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p, nil
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}

func (c *Context) contains(abs string) bool {
	if abs == c.root {
		return true
	}
	return strings.HasPrefix(abs, c.root+string(filepath.Separator))
}
