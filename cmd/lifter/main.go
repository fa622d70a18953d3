package main

import (
	"log/slog"
	"net/http"
	"os"

	_ "net/http/pprof" // profiling

	"github.com/tebeka/atexit"

	"lifter/internal/lifter/cmd"
	"lifter/internal/lifter/log"
)

func main() {
	atexit.Register(func() { _ = log.Close() })
	defer log.RecoverPanic("main", func() {
		slog.Error("Application terminated due to unhandled panic")
		atexit.Exit(2)
	})

	if os.Getenv("LIFTER_PROFILE") != "" {
		go func() {
			slog.Info("Serving pprof at localhost:6060")
			if httpErr := http.ListenAndServe("localhost:6060", nil); httpErr != nil {
				slog.Error("Failed to pprof listen", "error", httpErr)
			}
		}()
	}

	atexit.Exit(cmd.Execute())
}
