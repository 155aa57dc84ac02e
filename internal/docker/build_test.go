package docker

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDecodeBuildStream verifies that a successful build stream decodes
// cleanly, including the trailing aux message carrying the image ID.
func TestDecodeBuildStream(t *testing.T) {
	stream := strings.NewReader(
		`{"stream":"Step 1/6 : FROM python:3.9-slim\n"}` + "\n" +
			`{"stream":" ---> 0123456789ab\n"}` + "\n" +
			`{"aux":{"ID":"sha256:feedfacecafe"}}` + "\n" +
			`{"stream":"Successfully built feedfacecafe\n"}` + "\n")

	err := decodeBuildStream(stream)
	assert.NoError(t, err)
}

// TestDecodeBuildStream_Empty verifies an empty stream is not an error.
func TestDecodeBuildStream_Empty(t *testing.T) {
	err := decodeBuildStream(strings.NewReader(""))
	assert.NoError(t, err)
}

// TestDecodeBuildStream_ErrorDetail verifies that an error detail inside
// the stream surfaces as the build failure. The daemon reports failed
// build steps this way; the HTTP request itself succeeds.
func TestDecodeBuildStream_ErrorDetail(t *testing.T) {
	failure := "The command '/bin/sh -c pip install --no-cache-dir -r requirements.txt' returned a non-zero code: 1"
	stream := strings.NewReader(
		`{"stream":"Step 3/6 : RUN pip install --no-cache-dir -r requirements.txt\n"}` + "\n" +
			`{"errorDetail":{"code":1,"message":"` + failure + `"},"error":"` + failure + `"}` + "\n")

	err := decodeBuildStream(stream)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-zero code: 1",
		"the daemon's failure message should be preserved")
}

// TestDecodeBuildStream_Garbage verifies that non-JSON output is reported
// as a decode failure rather than silently swallowed.
func TestDecodeBuildStream_Garbage(t *testing.T) {
	err := decodeBuildStream(strings.NewReader("this is not a json message stream"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

// TestReadDockerignore verifies the .dockerignore parsing: comments and
// blank lines are dropped, directory patterns are cleaned of their
// trailing slash.
func TestReadDockerignore(t *testing.T) {
	dir := t.TempDir()
	content := "# build litter\n.git\n__pycache__/\n*.pyc\n\ndata/\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".dockerignore"), []byte(content), 0o644))

	patterns, err := readDockerignore(dir)

	require.NoError(t, err)
	assert.Equal(t, []string{".git", "__pycache__", "*.pyc", "data"}, patterns)
}

// TestReadDockerignore_Missing verifies a context without a .dockerignore
// yields no exclusions and no error.
func TestReadDockerignore_Missing(t *testing.T) {
	patterns, err := readDockerignore(t.TempDir())

	require.NoError(t, err)
	assert.Empty(t, patterns)
}
