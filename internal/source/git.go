package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Git is a git repository whose working tree holds one directory per package.
type Git struct {
	URL string
	// Ref is a branch or tag name; empty means the remote HEAD.
	Ref string
	// Progress receives the remote's sideband output when set.
	Progress io.Writer
	OnStage  StageFunc
}

// Fetch clones the repository at Ref into a fresh directory under tmpDir.
func (g Git) Fetch(ctx context.Context, tmpDir string) (*Fetched, error) {
	work, err := makeWorkDir(tmpDir, "git-*")
	if err != nil {
		return nil, err
	}
	dest := filepath.Join(work, "checkout")
	fetched := &Fetched{Dir: dest, cleanup: func() error { return os.RemoveAll(work) }}

	notify(g.OnStage, "Cloning %s...", g)

	var lastErr error
	for _, ref := range g.candidateRefs() {
		repo, err := git.PlainCloneContext(ctx, dest, false, g.cloneOptions(ref))
		if err != nil {
			lastErr = err
			// Clean up failed attempt (best-effort)
			_ = os.RemoveAll(dest)
			continue
		}

		head, err := repo.Head()
		if err != nil {
			fetched.Cleanup()
			return nil, fmt.Errorf("failed to get HEAD: %w", err)
		}
		fetched.Revision = head.Hash().String()
		return fetched, nil
	}

	fetched.Cleanup()
	return nil, fmt.Errorf("failed to clone %s: %w", g, lastErr)
}

func (g Git) String() string {
	if g.Ref == "" {
		return g.URL
	}
	return g.URL + "@" + g.Ref
}

// candidateRefs lists the references to try: the ref as a branch, then as a tag.
func (g Git) candidateRefs() []plumbing.ReferenceName {
	if g.Ref == "" {
		return []plumbing.ReferenceName{""}
	}
	return []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(g.Ref),
		plumbing.NewTagReferenceName(g.Ref),
	}
}

func (g Git) cloneOptions(ref plumbing.ReferenceName) *git.CloneOptions {
	opts := &git.CloneOptions{
		URL:           g.URL,
		ReferenceName: ref,
		SingleBranch:  true,
		Progress:      g.Progress,
	}
	// The local transport does not negotiate shallow clones.
	if !isLocalURL(g.URL) {
		opts.Depth = 1
	}
	return opts
}

func isLocalURL(url string) bool {
	return strings.HasPrefix(url, "file://") || !strings.Contains(url, "://") && !strings.Contains(url, "@")
}
