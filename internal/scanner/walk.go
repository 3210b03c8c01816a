package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var errStopWalk = errors.New("stop walk")

type visitFunc func(path string) error

type walkErrFunc func(path string, err error)

type walker struct {
	followSymlinks bool
	visit          visitFunc
	onError        walkErrFunc
}

// walk visits regular files under root in lexical order. Entries whose name
// starts with "." are skipped. Symlinked directories are followed when
// enabled; a link back to an ancestor is reported and not descended.
func (w *walker) walk(ctx context.Context, root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("stat library root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("library root %s is not a directory", root)
	}
	real, err := filepath.EvalSymlinks(root)
	if err != nil {
		return fmt.Errorf("resolve library root: %w", err)
	}
	return w.walkDir(ctx, root, []string{real})
}

func (w *walker) walkDir(ctx context.Context, dir string, ancestors []string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.onError(dir, err)
		return nil
	}
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)

		mode := entry.Type()
		if mode&fs.ModeSymlink != 0 {
			if !w.followSymlinks {
				continue
			}
			info, err := os.Stat(path)
			if err != nil {
				w.onError(path, err)
				continue
			}
			mode = info.Mode().Type()
		}

		switch {
		case mode.IsDir():
			real, err := filepath.EvalSymlinks(path)
			if err != nil {
				w.onError(path, err)
				continue
			}
			if containsPath(ancestors, real) {
				w.onError(path, fmt.Errorf("symlink loop to %s", real))
				continue
			}
			if err := w.walkDir(ctx, path, append(ancestors[:len(ancestors):len(ancestors)], real)); err != nil {
				return err
			}
		case mode.IsRegular():
			if err := w.visit(path); err != nil {
				return err
			}
		}
	}
	return nil
}

func containsPath(list []string, target string) bool {
	for _, p := range list {
		if p == target {
			return true
		}
	}
	return false
}
