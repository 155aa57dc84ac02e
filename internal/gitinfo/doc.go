// Package gitinfo provides Git metadata lookup for image provenance.
//
// When a project directory is a Git checkout, the build stamps the image
// with standard OCI annotations (revision, ref name) derived from HEAD.
// The package shells out to the git CLI via `git -C <dir>`; absence of git
// or of a repository is reported as an error that callers downgrade to
// "build without provenance labels".
package gitinfo
