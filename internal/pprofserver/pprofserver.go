package pprofserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
)

// Handle registers the pprof handlers on the mux.
func Handle(mux *http.ServeMux) {
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
}

// Launch serves pprof on the IPv6 loopback at the given port so profiles are
// never reachable from outside the host. A listener failure only loses
// profiling, so it is logged and the game server keeps running.
func Launch(port string, logger *slog.Logger) {
	go func() {
		mux := http.NewServeMux()
		Handle(mux)
		addr := fmt.Sprintf("[::1]%s", port)
		logger.Info("starting pprof server", "addr", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("pprof server stopped", "error", err.Error())
		}
	}()
}
