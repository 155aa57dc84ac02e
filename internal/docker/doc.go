// Package docker provides Docker Engine API wrappers for the rqdash CLI.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows)
//   - Container label management: rqdash stamps every container it creates
//     with rqdash.* labels, which are the sole persistence mechanism
//   - Image builds from a local context directory, with the daemon's
//     build output streamed through the log
//   - Dashboard container lifecycle: create, start, stop, remove, wait,
//     log streaming, readiness detection
//   - The cleanup pass: exited containers, dangling images, network and
//     volume prunes
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
package docker
