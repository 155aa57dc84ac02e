// Package gitinfo extracts Git metadata from a project directory so that
// built images can carry provenance labels.
//
// Design decisions:
//   - We shell out to `git` rather than using a Go Git library (e.g., go-git)
//     because the three queries involved (HEAD, branch, dirty state) are
//     trivial CLI calls, and shelling out matches how the rest of the
//     ecosystem records build provenance.
//   - Git being absent, or the project not being a repository, is not an
//     error condition for the CLI: callers log it and build without labels.
package gitinfo

import (
	"fmt"
	"os/exec"
	"strings"
)

// OCI image annotation keys used for provenance labels on built images.
// These are the standard keys from the OCI image spec annotations, so
// registries and scanners that understand them pick the values up as-is.
const (
	// LabelRevision records the source control revision the image was built from.
	LabelRevision = "org.opencontainers.image.revision"

	// LabelRefName records the branch (or tag) name the build came from.
	LabelRefName = "org.opencontainers.image.ref.name"
)

// Info holds the Git metadata recorded on built images.
type Info struct {
	// Commit is the full SHA of HEAD at build time.
	Commit string `json:"commit"`

	// Branch is the short branch name (e.g., "main"). Git reports "HEAD"
	// for a detached checkout; callers should treat that as no branch.
	Branch string `json:"branch,omitempty"`

	// Dirty indicates uncommitted changes were present at build time.
	Dirty bool `json:"dirty,omitempty"`
}

// ShortCommit returns an abbreviated commit SHA for display, or the empty
// string when no commit is known.
func (i Info) ShortCommit() string {
	if len(i.Commit) <= 12 {
		return i.Commit
	}
	return i.Commit[:12]
}

// OCILabels converts the metadata into image labels. A dirty working tree
// is marked with a "-dirty" suffix on the revision, the same convention
// `git describe --dirty` uses. Returns nil when there is no commit, so the
// result can be merged into a label map unconditionally.
func (i Info) OCILabels() map[string]string {
	if i.Commit == "" {
		return nil
	}

	revision := i.Commit
	if i.Dirty {
		revision += "-dirty"
	}

	labels := map[string]string{
		LabelRevision: revision,
	}
	if i.Branch != "" && i.Branch != "HEAD" {
		labels[LabelRefName] = i.Branch
	}
	return labels
}

// Describe queries the repository containing dir for the metadata that goes
// into provenance labels: the HEAD commit, the current branch, and whether
// the working tree has uncommitted changes.
//
// Returns an error when dir is not inside a Git repository or git is not
// installed. Callers are expected to treat that as "no provenance", not as
// a failure.
func Describe(dir string) (Info, error) {
	commit, err := runGit(dir, "rev-parse", "HEAD")
	if err != nil {
		return Info{}, err
	}

	branch, err := runGit(dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return Info{}, err
	}

	// `git status --porcelain` prints one line per changed or untracked
	// path and nothing at all for a clean tree, which makes the dirty
	// check a simple emptiness test.
	status, err := runGit(dir, "status", "--porcelain")
	if err != nil {
		return Info{}, err
	}

	return Info{
		Commit: strings.TrimSpace(commit),
		Branch: strings.TrimSpace(branch),
		Dirty:  strings.TrimSpace(status) != "",
	}, nil
}

// runGit executes a git command with the given arguments in the specified
// directory.
//
// It captures both stdout and stderr. On success (exit code 0), it returns
// the stdout output. On failure, it returns an error that includes the
// stderr output for diagnostics.
//
// The dir parameter is passed to git via the -C flag, which causes git to
// change to that directory before doing anything else. This avoids changing
// the process's working directory.
func runGit(dir string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", dir}, args...)

	// #nosec G204 -- args are constructed internally, not from user input
	cmd := exec.Command("git", fullArgs...)

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		message := fmt.Sprintf("git %s failed", strings.Join(args, " "))
		if stderrStr != "" {
			message = fmt.Sprintf("%s: %s", message, stderrStr)
		}
		return "", fmt.Errorf("%s: %w", message, err)
	}

	return stdout.String(), nil
}
