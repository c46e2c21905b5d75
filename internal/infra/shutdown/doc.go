// Package shutdown runs cleanup hooks when the process is asked to stop.
//
//	h := shutdown.NewHandler(10*time.Second, logger)
//	h.OnShutdown("session store", engine.Close)
//	err := h.Wait(ctx) // returns after SIGINT, SIGTERM or ctx is done
package shutdown
