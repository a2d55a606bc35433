// Package shutdown provides graceful shutdown for long-running commands.
//
// Usage:
//
//	h := shutdown.NewHandler(10 * time.Second)
//	h.OnShutdown(func(ctx context.Context) error { return watcher.Stop() })
//	err := h.Wait(ctx) // blocks until SIGINT/SIGTERM
package shutdown
