package repoworker

import (
	"errors"
	"io"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/pmezard/go-difflib/difflib"
)

// diffPath returns the unified diff of path's current worktree content
// against its content in the index. An untracked path has no index
// entry, so it diffs against an empty blob. An empty return value
// means the working tree content is identical to the index.
func diffPath(repo *git.Repository, wt *git.Worktree, path string) (string, error) {
	newContent, err := readWorktreeFile(wt, path)
	if err != nil {
		return "", err
	}

	oldContent, err := readIndexBlob(repo, path)
	if err != nil {
		return "", err
	}

	if oldContent == newContent {
		return "", nil
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldContent),
		B:        difflib.SplitLines(newContent),
		FromFile: "index/" + path,
		ToFile:   "worktree/" + path,
		Context:  3,
	}
	return difflib.GetUnifiedDiffString(diff)
}

func readWorktreeFile(wt *git.Worktree, path string) (string, error) {
	f, err := wt.Filesystem.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func readIndexBlob(repo *git.Repository, path string) (string, error) {
	idx, err := repo.Storer.Index()
	if err != nil {
		return "", err
	}

	entry, err := idx.Entry(path)
	if errors.Is(err, index.ErrEntryNotFound) {
		return "", nil // untracked: nothing staged for this path yet
	}
	if err != nil {
		return "", err
	}

	blob, err := repo.BlobObject(entry.Hash)
	if err != nil {
		return "", err
	}

	r, err := blob.Reader()
	if err != nil {
		return "", err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
