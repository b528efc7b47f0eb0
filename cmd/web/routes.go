package main

import (
	"net/http"

	"github.com/justinas/alice"
)

func (app *application) routes() http.Handler {
	mux := http.NewServeMux()

	session := alice.New(app.sessionManager.LoadAndSave, commonContext, app.bindSlot)
	// SSE responses outlive the request body, which the LoadAndSave
	// middleware cannot handle.
	sse := alice.New(app.serverSentEventMiddleware, app.bindSlot)

	mux.Handle("GET /api/healthy", http.HandlerFunc(app.healthy))
	mux.Handle("POST /api/start", session.ThenFunc(app.startGame))
	mux.Handle("POST /api/action", session.ThenFunc(app.action))
	mux.Handle("GET /api/state", session.ThenFunc(app.state))
	mux.Handle("GET /api/stream", sse.ThenFunc(app.streamEvents))

	return app.recoverPanic(app.logRequest(secureHeaders(noSurf(mux))))
}
