package repoworker

import (
	"sort"

	"github.com/go-git/go-git/v5"
)

// changedPaths scans the working tree and returns the paths a poll
// should act on: modified-in-worktree, untracked, or conflicted. Both
// index- and worktree-deletions are dropped, including the composite
// of a path staged as deleted and recreated untracked — none of these
// are file changes this pipeline can usefully diff and commit.
//
// go-git does not report a distinct type-change status the way
// libgit2 does; a file whose type changed on disk surfaces as
// Modified here, which this pipeline treats the same as any other
// content change.
func changedPaths(wt *git.Worktree) ([]string, error) {
	status, err := wt.Status()
	if err != nil {
		return nil, err
	}

	var paths []string
	for path, fs := range status {
		if fs.Staging == git.Deleted || fs.Worktree == git.Deleted {
			continue
		}
		switch fs.Worktree {
		case git.Modified, git.Untracked, git.UpdatedButUnmerged:
			paths = append(paths, path)
		}
	}

	sort.Strings(paths) // deterministic order; the map itself is already deduplicated by path
	return paths, nil
}
