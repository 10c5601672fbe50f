package tools

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rmkendall/croft/config"
	"github.com/rmkendall/croft/errors"
	"github.com/rmkendall/croft/workspace"
)

const (
	maxSearchFiles   = 200
	maxSearchMatches = 100
)

// SearchFilesTool finds files by glob pattern inside the sandbox, and
// optionally filters them to those containing a query string, reporting the
// matching lines.
type SearchFilesTool struct {
	fsAccess *config.FilesystemAccess
	ws       *workspace.Context
}

func (t *SearchFilesTool) Name() string { return "search_files" }
func (t *SearchFilesTool) Description() string {
	return "Finds files matching a glob pattern. Args: pattern (string, doublestar glob), dir_path (string, optional subdirectory), query (string, optional substring to grep matched files for)."
}

func (t *SearchFilesTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	pattern, ok := args["pattern"].(string)
	if !ok || strings.TrimSpace(pattern) == "" {
		return "", errors.New("missing or invalid 'pattern' argument")
	}

	base := t.ws.Root()
	if dir, ok := args["dir_path"].(string); ok && dir != "" {
		base = dir
	}
	query, _ := args["query"].(string)

	matches, err := doublestar.Glob(os.DirFS(base), pattern)
	if err != nil {
		return "", errors.Wrapf(err, "invalid glob pattern '%s'", pattern)
	}

	var b strings.Builder
	files := 0
	for _, rel := range matches {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		abs := filepath.Join(base, rel)
		if restricted, err := isPathRestricted(relToRoot(t.ws, abs), t.fsAccess.Hidden); err != nil || restricted {
			continue
		}
		info, err := os.Stat(abs)
		if err != nil || info.IsDir() {
			continue
		}

		if files >= maxSearchFiles {
			b.WriteString("[result truncated]\n")
			break
		}
		files++

		if query == "" {
			b.WriteString(rel)
			b.WriteString("\n")
			continue
		}
		if err := grepFile(abs, rel, query, &b); err != nil {
			continue
		}
	}

	if b.Len() == 0 {
		return "No matches found.", nil
	}
	return b.String(), nil
}

func grepFile(abs, rel, query string, out *strings.Builder) error {
	f, err := os.Open(abs)
	if err != nil {
		return err
	}
	defer f.Close()

	matches := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if strings.Contains(scanner.Text(), query) {
			fmt.Fprintf(out, "%s:%d: %s\n", rel, line, strings.TrimSpace(scanner.Text()))
			matches++
			if matches >= maxSearchMatches {
				fmt.Fprintf(out, "%s: [more matches truncated]\n", rel)
				break
			}
		}
	}
	return scanner.Err()
}
