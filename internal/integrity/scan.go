// Package integrity scans a mounted FAT12 volume for the universal
// invariants it must hold after every successful mutating operation. It
// has no disko analogue — disko ships no such scanner — so this is
// grounded directly in the properties themselves rather than any one
// teacher file, aggregating what it finds with go-multierror the way a
// multi-step disko operation could but none actually does.
package integrity

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/retrofuture-os/coreos/fat12"
)

// Scan walks every directory entry reachable from the root, checking:
//
//  1. every entry's starting cluster is 0 or in [2, total_clusters+2)
//  2. every non-zero chain reaches end-of-chain within total_clusters steps
//  3. no two entries' chains share a cluster
//  4. every FAT copy is byte-identical
//  5. every subdirectory's "." and ".." entries point at the right clusters
//
// It returns nil if the volume is clean, or a *multierror.Error listing
// every violation found.
func Scan(fs *fat12.FileSystem) error {
	var result *multierror.Error

	identical, err := fs.FATCopiesIdentical()
	if err != nil {
		result = multierror.Append(result, fmt.Errorf("reading FAT copies: %w", err))
	} else if !identical {
		result = multierror.Append(result, fmt.Errorf("FAT copies are not byte-identical"))
	}

	seen := make(map[fat12.ClusterID]string)
	walkDir(fs, "/", 0, 0, &result, seen)

	return result.ErrorOrNil()
}

// walkDir checks the directory at path, whose own starting cluster is self
// and whose parent's is parent (both 0 for the root).
func walkDir(fs *fat12.FileSystem, path string, self, parent fat12.ClusterID, result **multierror.Error, seen map[fat12.ClusterID]string) {
	entries, err := fs.Readdir(path)
	if err != nil {
		*result = multierror.Append(*result, fmt.Errorf("reading directory %q: %w", path, err))
		return
	}

	var sawDot, sawDotDot bool
	for _, e := range entries {
		if e.IsVolumeLabel() || e.Deleted || e.IsLongName() {
			continue
		}

		if e.Name == "." {
			sawDot = true
			if e.FirstCluster != self {
				*result = multierror.Append(*result, fmt.Errorf("%s/.: cluster %d, want %d", path, e.FirstCluster, self))
			}
		}
		if e.Name == ".." {
			sawDotDot = true
			if e.FirstCluster != parent {
				*result = multierror.Append(*result, fmt.Errorf("%s/..: cluster %d, want %d", path, e.FirstCluster, parent))
			}
		}

		checkClusterRange(fs, path, e, result)

		// "." and ".." deliberately alias an existing chain (their own
		// directory's, and their parent's) — that's invariant 5, not a
		// violation of invariant 3's disjointness.
		if e.Name != "." && e.Name != ".." {
			chain := checkChainTerminates(fs, path, e, result)
			checkChainDisjoint(path, e, chain, seen, result)
		}

		if e.IsDirectory() && e.Name != "." && e.Name != ".." {
			childPath := path
			if childPath != "/" {
				childPath += "/"
			}
			childPath += e.Name
			walkDir(fs, childPath, e.FirstCluster, self, result, seen)
		}
	}

	if path != "/" {
		if !sawDot || !sawDotDot {
			*result = multierror.Append(*result, fmt.Errorf("directory %q missing \".\"/\"..\" entries", path))
		}
	}
}

func checkClusterRange(fs *fat12.FileSystem, path string, e fat12.Dirent, result **multierror.Error) {
	if e.FirstCluster == 0 {
		return
	}
	if e.FirstCluster < 2 || uint(e.FirstCluster) >= fs.Boot.TotalClusters+2 {
		*result = multierror.Append(*result, fmt.Errorf(
			"%s/%s: starting cluster %d outside [2, %d)", path, e.Name, e.FirstCluster, fs.Boot.TotalClusters+2))
	}
}

func checkChainTerminates(fs *fat12.FileSystem, path string, e fat12.Dirent, result **multierror.Error) []fat12.ClusterID {
	if e.FirstCluster == 0 {
		return nil
	}
	chain, err := fs.Chain(e.FirstCluster)
	if err != nil {
		*result = multierror.Append(*result, fmt.Errorf("%s/%s: chain walk failed: %w", path, e.Name, err))
		return nil
	}
	if uint(len(chain)) > fs.Boot.TotalClusters {
		*result = multierror.Append(*result, fmt.Errorf(
			"%s/%s: chain exceeds total_clusters steps without reaching end-of-chain", path, e.Name))
	}
	return chain
}

func checkChainDisjoint(path string, e fat12.Dirent, chain []fat12.ClusterID, seen map[fat12.ClusterID]string, result **multierror.Error) {
	for _, c := range chain {
		owner, ok := seen[c]
		label := path + "/" + e.Name
		if ok && owner != label {
			*result = multierror.Append(*result, fmt.Errorf(
				"cluster %d is claimed by both %q and %q", c, owner, label))
			continue
		}
		seen[c] = label
	}
}
