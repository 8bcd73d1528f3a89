// Package server supervises a long-running server process through marker
// files.
//
// The server and the supervisor share three paths. The server creates the
// ready marker once it accepts work. Stop creates the stop request marker,
// the server reacts by shutting down and creates the stopped marker when
// done. Start and Stop block on those markers using package readiness; the
// process itself runs through package process on a background goroutine and
// its output is captured for Logs.
//
// A server that ignores the stop request is not left behind: once the stop
// budget is spent, or the caller's context ends, Stop kills its process
// group. Kill does the same without the marker handshake.
package server
