package signalhandler

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"imagesorter/logging"
)

// SetupHandler returns a context that is cancelled on SIGINT or SIGTERM.
// The sorter checks it between files, so the file being copied when the
// signal arrives is finished first. A second signal exits immediately.
func SetupHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logging.LogWarning("Received %s, stopping after the current file", sig)
			cancel()
		case <-ctx.Done():
			signal.Stop(sigChan)
			return
		}

		<-sigChan
		logging.LogError("Received second signal, exiting now")
		os.Exit(130)
	}()

	return ctx, cancel
}
