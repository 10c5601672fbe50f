package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rmkendall/croft/config"
	"github.com/rmkendall/croft/errors"
	"github.com/rmkendall/croft/workspace"
)

// Paths reaching these tools have already been resolved into the sandbox by
// argument normalization; the hidden/read-only checks here are the second,
// pattern-based layer on top of that.

// ReadFileTool reads a file, optionally a line range of it.
type ReadFileTool struct {
	fsAccess *config.FilesystemAccess
	ws       *workspace.Context
}

func (t *ReadFileTool) Name() string { return "read_file" }
func (t *ReadFileTool) Description() string {
	return "Reads the content of a file. Args: file_path (string), offset (int, optional 1-based first line), limit (int, optional max lines)."
}

func (t *ReadFileTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, ok := args["file_path"].(string)
	if !ok {
		return "", errors.New("missing or invalid 'file_path' argument")
	}

	if err := t.checkHidden(path); err != nil {
		return "", err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read file '%s'", path)
	}

	offset, _ := args["offset"].(int)
	limit, _ := args["limit"].(int)
	if offset <= 0 && limit <= 0 {
		return string(content), nil
	}

	lines := strings.Split(string(content), "\n")
	start := 0
	if offset > 0 {
		start = offset - 1
	}
	if start >= len(lines) {
		return "", nil
	}
	end := len(lines)
	if limit > 0 && start+limit < end {
		end = start + limit
	}
	return strings.Join(lines[start:end], "\n"), nil
}

func (t *ReadFileTool) checkHidden(path string) error {
	hidden, err := isPathRestricted(relToRoot(t.ws, path), t.fsAccess.Hidden)
	if err != nil {
		return err
	}
	if hidden {
		return errors.New("access denied: path '%s' is hidden", path)
	}
	return nil
}

// WriteFileTool replaces a file's content entirely.
type WriteFileTool struct {
	fsAccess *config.FilesystemAccess
	ws       *workspace.Context
}

func (t *WriteFileTool) Name() string { return "write_file" }
func (t *WriteFileTool) Description() string {
	return "Writes content to a file, replacing it entirely. Args: file_path (string), content (string)."
}

func (t *WriteFileTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, pathOk := args["file_path"].(string)
	content, contentOk := args["content"].(string)
	if !pathOk || !contentOk {
		return "", errors.New("missing or invalid 'file_path' or 'content' arguments")
	}

	rel := relToRoot(t.ws, path)
	hidden, err := isPathRestricted(rel, t.fsAccess.Hidden)
	if err != nil {
		return "", err
	}
	if hidden {
		return "", errors.New("access denied: path '%s' is hidden", path)
	}

	readOnly, err := isPathRestricted(rel, t.fsAccess.ReadOnly)
	if err != nil {
		return "", err
	}
	if readOnly {
		return "", errors.New("access denied: path '%s' is read-only", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", errors.Wrapf(err, "failed to create parent directory for '%s'", path)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", errors.Wrapf(err, "failed to write to file '%s'", path)
	}
	return fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path), nil
}

// ListDirTool lists the entries of a directory.
type ListDirTool struct {
	fsAccess *config.FilesystemAccess
	ws       *workspace.Context
}

func (t *ListDirTool) Name() string { return "list_dir" }
func (t *ListDirTool) Description() string {
	return "Lists the entries of a directory, one per line; directories get a trailing '/'. Args: dir_path (string)."
}

func (t *ListDirTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	path, ok := args["dir_path"].(string)
	if !ok {
		return "", errors.New("missing or invalid 'dir_path' argument")
	}

	hidden, err := isPathRestricted(relToRoot(t.ws, path), t.fsAccess.Hidden)
	if err != nil {
		return "", err
	}
	if hidden {
		return "", errors.New("access denied: path '%s' is hidden", path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to list directory '%s'", path)
	}

	var b strings.Builder
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		// Entries that would be hidden to the other tools stay hidden here.
		relEntry := filepath.Join(relToRoot(t.ws, path), e.Name())
		if restricted, err := isPathRestricted(relEntry, t.fsAccess.Hidden); err == nil && restricted {
			continue
		}
		b.WriteString(name)
		b.WriteString("\n")
	}
	return b.String(), nil
}
