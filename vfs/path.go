// Package vfs is the path-normalizing, mount-routing dispatch layer that
// unifies fat12 and ramdisk (or any other backend implementing
// FileSystem) behind a single pathname API.
package vfs

import (
	"strings"

	coreerrors "github.com/retrofuture-os/coreos/errors"
)

// MaxPathLength and MaxComponentLength bound path grammar per §6.
const (
	MaxPathLength      = 256
	MaxComponentLength = 64
)

// Normalize resolves raw against cwd per §4.D: absolute if raw begins
// with "/", otherwise seeded with cwd. "." is dropped, ".." pops the last
// component (a no-op at root), and empty components from "//" collapse.
// The result always begins with "/" and never has a trailing slash
// except for the lone "/".
func Normalize(raw, cwd string) (string, error) {
	if len(raw) > MaxPathLength {
		return "", coreerrors.ErrInvalidArgument.WithMessage("path exceeds max length")
	}

	var seed string
	if strings.HasPrefix(raw, "/") {
		seed = raw
	} else {
		seed = cwd + "/" + raw
	}

	var stack []string
	for _, comp := range strings.Split(seed, "/") {
		switch comp {
		case "", ".":
			continue
		case "..":
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			if len(comp) > MaxComponentLength {
				return "", coreerrors.ErrInvalidArgument.WithMessage("path component exceeds max length")
			}
			stack = append(stack, comp)
		}
	}

	if len(stack) == 0 {
		return "/", nil
	}
	return "/" + strings.Join(stack, "/"), nil
}
