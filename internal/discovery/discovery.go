// Package discovery enumerates candidate video files under a root path.
// Discovery is synchronous: it returns a fully-ordered slice rather than
// streaming files via channels, since file enumeration does not need
// concurrency — only the Worker Pool does.
package discovery

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tdorsey/corruptvideofileinspector/internal/model"
)

// ContentProbeFunc optionally confirms that a candidate file is really a
// video, beyond its extension. Used when Options.ContentProbe is set.
type ContentProbeFunc func(path string) (bool, error)

// WarnFunc receives a human-readable warning for a skipped or
// fallen-back-to-extension-only entry. The Controller writes these
// warnings to the log; they are not delivered to the ProgressSink.
type WarnFunc func(path, message string)

// Options configures one Walk call.
type Options struct {
	Recursive    bool
	Extensions   []string // lowercase, dot-prefixed; empty means accept all regular files
	ContentProbe ContentProbeFunc
	Warn         WarnFunc
}

// Walk enumerates candidate files under root in deterministic lexicographic
// path order.
func Walk(ctx context.Context, root string, opts Options) ([]model.VideoFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &os.PathError{Op: "walk", Path: root, Err: os.ErrInvalid}
	}

	warn := opts.Warn
	if warn == nil {
		warn = func(string, string) {}
	}

	extSet := make(map[string]struct{}, len(opts.Extensions))
	for _, e := range opts.Extensions {
		extSet[strings.ToLower(e)] = struct{}{}
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}
	if resolved, err := filepath.EvalSymlinks(absRoot); err == nil {
		absRoot = resolved
	}

	w := &walker{
		opts:    opts,
		extSet:  extSet,
		warn:    warn,
		visited: make(map[string]struct{}),
		root:    absRoot,
	}

	if err := w.walkDir(ctx, root); err != nil {
		return nil, err
	}

	sort.Slice(w.files, func(i, j int) bool { return w.files[i].Path < w.files[j].Path })
	return w.files, nil
}

type walker struct {
	opts    Options
	extSet  map[string]struct{}
	warn    WarnFunc
	visited map[string]struct{} // device:inode identities already descended into
	files   []model.VideoFile
	root    string // absolute, symlink-resolved scan root; bounds symlink targets
}

func (w *walker) walkDir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if id, ok := directoryIdentity(dir); ok {
		if _, seen := w.visited[id]; seen {
			return nil
		}
		w.visited[id] = struct{}{}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		w.warn(dir, "unreadable directory: "+err.Error())
		return nil
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		path := filepath.Join(dir, entry.Name())

		typ := entry.Type()
		if typ&os.ModeSymlink != 0 {
			if !w.opts.Recursive {
				continue
			}
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil {
				w.warn(path, "unreadable symlink: "+err.Error())
				continue
			}
			if !w.withinRoot(resolved) {
				w.warn(path, "symlink target escapes scan root, skipping: "+resolved)
				continue
			}
			info, err := os.Stat(resolved)
			if err != nil {
				w.warn(path, "unreadable symlink target: "+err.Error())
				continue
			}
			if info.IsDir() {
				if err := w.walkDir(ctx, resolved); err != nil {
					return err
				}
				continue
			}
			w.considerFile(resolved, info.Size())
			continue
		}

		if entry.IsDir() {
			if !w.opts.Recursive {
				continue
			}
			if err := w.walkDir(ctx, path); err != nil {
				return err
			}
			continue
		}

		info, err := entry.Info()
		if err != nil {
			w.warn(path, "unreadable entry: "+err.Error())
			continue
		}
		w.considerFile(path, info.Size())
	}

	return nil
}

// withinRoot reports whether a resolved symlink target stays inside the
// scan root's subtree, per the rule that links are only followed within it.
func (w *walker) withinRoot(resolved string) bool {
	rel, err := filepath.Rel(w.root, resolved)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "..")
}

func (w *walker) considerFile(path string, size int64) {
	if len(w.extSet) > 0 {
		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := w.extSet[ext]; !ok {
			return
		}
	}

	f, err := os.Open(path)
	if err != nil {
		w.warn(path, "unreadable file: "+err.Error())
		return
	}
	_ = f.Close()

	if w.opts.ContentProbe != nil {
		ok, err := w.opts.ContentProbe(path)
		if err != nil {
			w.warn(path, "content probe failed, falling back to extension match: "+err.Error())
		} else if !ok {
			return
		}
	}

	w.files = append(w.files, model.NewVideoFile(path, size))
}
