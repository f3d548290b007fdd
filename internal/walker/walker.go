package walker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"dcmcanon/internal/convert"
)

// Options filter enumeration.
type Options struct {
	// Extensions limits results to these lower-case, dot-prefixed suffixes.
	// Empty means every regular file.
	Extensions     []string
	IncludeHidden  bool
	FollowSymlinks bool
}

// Listing is the result of an enumeration.
type Listing struct {
	Files  []string
	Errors []WalkError
}

// WalkError pairs a path that could not be read with its error.
type WalkError struct {
	Path  string
	Error error
}

// Enumerate returns the absolute paths of all regular files under root,
// sorted, excluding conversion scratch files. Unreadable subdirectories are
// reported in Listing.Errors and skipped; an unreadable root is an error.
//
// Symlinked files are returned by their resolved target when FollowSymlinks
// is set, since an in-place replace through the link would clobber the link
// itself. Otherwise links are skipped.
func Enumerate(ctx context.Context, root string, opts Options) (Listing, error) {
	var listing Listing
	abs, err := filepath.Abs(root)
	if err != nil {
		return listing, fmt.Errorf("resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return listing, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return listing, fmt.Errorf("root %s is not a directory", abs)
	}

	w := &walk{
		opts:    opts,
		visited: make(map[string]struct{}),
		seen:    make(map[string]struct{}),
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		w.visited[real] = struct{}{}
	}
	if err := w.dir(ctx, abs, &listing, true); err != nil {
		return listing, err
	}
	slices.Sort(listing.Files)
	return listing, nil
}

type walk struct {
	opts    Options
	visited map[string]struct{}
	seen    map[string]struct{}
}

func (w *walk) dir(ctx context.Context, dir string, listing *Listing, root bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if root {
			return fmt.Errorf("read root: %w", err)
		}
		listing.Errors = append(listing.Errors, WalkError{Path: dir, Error: err})
		return nil
	}
	for _, entry := range entries {
		name := entry.Name()
		if convert.IsTempArtifact(name) {
			continue
		}
		if !w.opts.IncludeHidden && strings.HasPrefix(name, ".") {
			continue
		}
		path := filepath.Join(dir, name)
		mode := entry.Type()

		if mode&os.ModeSymlink != 0 {
			if !w.opts.FollowSymlinks {
				continue
			}
			real, err := filepath.EvalSymlinks(path)
			if err != nil {
				listing.Errors = append(listing.Errors, WalkError{Path: path, Error: err})
				continue
			}
			info, err := os.Stat(real)
			if err != nil {
				listing.Errors = append(listing.Errors, WalkError{Path: path, Error: err})
				continue
			}
			switch {
			case info.IsDir():
				if _, ok := w.visited[real]; ok {
					continue
				}
				w.visited[real] = struct{}{}
				if err := w.dir(ctx, real, listing, false); err != nil {
					return err
				}
			case info.Mode().IsRegular() && w.matches(real):
				w.add(real, listing)
			}
			continue
		}

		switch {
		case mode.IsDir():
			if w.opts.FollowSymlinks {
				if real, err := filepath.EvalSymlinks(path); err == nil {
					if _, ok := w.visited[real]; ok {
						continue
					}
					w.visited[real] = struct{}{}
				}
			}
			if err := w.dir(ctx, path, listing, false); err != nil {
				return err
			}
		case mode.IsRegular() && w.matches(name):
			w.add(path, listing)
		}
	}
	return nil
}

func (w *walk) add(path string, listing *Listing) {
	if _, ok := w.seen[path]; ok {
		return
	}
	w.seen[path] = struct{}{}
	listing.Files = append(listing.Files, path)
}

func (w *walk) matches(name string) bool {
	if len(w.opts.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	return slices.Contains(w.opts.Extensions, ext)
}
