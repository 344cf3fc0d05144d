package vfs

import (
	"strings"

	coreerrors "github.com/retrofuture-os/coreos/errors"
)

// Mount binds a path prefix to a filesystem implementation (and,
// implicitly, whatever block device or arena that implementation sits
// on). The mount whose path is "/" is the distinguished root mount.
type Mount struct {
	Path     string
	FS       FileSystem
	ReadOnly bool
}

// mountTable holds every live mount. There is no global singleton; one
// mountTable lives inside each VFS instance.
type mountTable struct {
	mounts []*Mount
}

// add registers fs at path. path must be normalized already (callers
// go through VFS.Mount, which normalizes first). Re-mounting an
// already-occupied path fails with AlreadyExists.
func (t *mountTable) add(path string, fs FileSystem, readOnly bool) (*Mount, error) {
	for _, m := range t.mounts {
		if m.Path == path {
			return nil, coreerrors.ErrAlreadyExists
		}
	}
	m := &Mount{Path: path, FS: fs, ReadOnly: readOnly}
	t.mounts = append(t.mounts, m)
	return m, nil
}

// remove unregisters the mount at path.
func (t *mountTable) remove(path string) (*Mount, error) {
	for i, m := range t.mounts {
		if m.Path == path {
			t.mounts = append(t.mounts[:i], t.mounts[i+1:]...)
			return m, nil
		}
	}
	return nil, coreerrors.ErrNotMounted
}

// resolve picks, over all live mounts, the one whose path is the longest
// prefix of normalized (a normalized absolute path). If no non-root mount
// matches, falls back to the root mount ("/"). Returns the mount and the
// path with the mount's prefix (and leading slashes) stripped.
func (t *mountTable) resolve(normalized string) (*Mount, string, error) {
	var best *Mount
	bestLen := -1

	for _, m := range t.mounts {
		if !isPrefixMatch(m.Path, normalized) {
			continue
		}
		if len(m.Path) > bestLen {
			best = m
			bestLen = len(m.Path)
		}
	}

	if best == nil {
		return nil, "", coreerrors.ErrNotMounted
	}

	rel := strings.TrimPrefix(normalized, best.Path)
	rel = strings.TrimPrefix(rel, "/")
	return best, rel, nil
}

// isPrefixMatch reports whether mountPath is a path-component prefix of
// path (not just a string prefix — "/ab" must not match "/abc").
func isPrefixMatch(mountPath, path string) bool {
	if mountPath == "/" {
		return true
	}
	if !strings.HasPrefix(path, mountPath) {
		return false
	}
	rest := path[len(mountPath):]
	return rest == "" || strings.HasPrefix(rest, "/")
}
