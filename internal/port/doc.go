// Package port implements host port preflight checks for the rqdash CLI.
//
// The dashboard binds exactly one host port (8501 by default), so the
// package stays small: Scanner verifies OS-level availability via
// net.Listen()/net.ListenPacket() before a container is started, and can
// probe upward from the configured port when the caller asked for an
// automatic fallback. Catching a taken port here turns a late, cryptic
// Docker bind error into an immediate message naming the port.
package port
