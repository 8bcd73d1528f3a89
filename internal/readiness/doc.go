// Package readiness detects state changes of an externally managed process
// through marker files.
//
// A Supervisor moves from NotStarted to Polling and ends in Ready,
// TimedOut or Cancelled. It checks only whether the marker path exists: the
// supervised process may live in a separate process tree and the marker is
// the one signal both sides share.
//
//	err := readiness.WaitForReady(ctx, filepath.Join(dir, "ready"), 500*time.Millisecond, 60)
//	if errors.Is(err, readiness.ErrNotReady) {
//		// the server never signalled readiness
//	}
//
// WaitForStop uses the same loop for the marker written on shutdown.
package readiness
