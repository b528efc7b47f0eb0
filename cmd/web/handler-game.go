package main

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/mkarsten/kaltvik/internal/contexthelpers"
	"github.com/mkarsten/kaltvik/internal/errors"
	"github.com/mkarsten/kaltvik/internal/game"
	"github.com/mkarsten/kaltvik/internal/models"
	"github.com/mkarsten/kaltvik/internal/random"
)

// stateView is the player-state summary returned next to every output.
type stateView struct {
	Scene     string           `json:"scene"`
	Day       int              `json:"day"`
	Block     models.TimeBlock `json:"block"`
	Sanity    int              `json:"sanity"`
	Reality   int              `json:"reality"`
	Attention int              `json:"attention"`
	Archetype models.Archetype `json:"archetype"`
	Ended     bool             `json:"ended"`
}

func newStateView(session *game.Session) stateView {
	player := session.Player
	return stateView{
		Scene:     player.CurrentScene,
		Day:       player.Day,
		Block:     player.Block(),
		Sanity:    player.Sanity,
		Reality:   player.Reality,
		Attention: player.Attention,
		Archetype: player.Archetype,
		Ended:     session.Ended(),
	}
}

type startResponse struct {
	Output *game.RenderedScene `json:"output"`
	State  stateView           `json:"state"`
	// CSRFToken must be echoed back in the X-CSRF-Token header on
	// subsequent POSTs.
	CSRFToken string `json:"csrf_token"`
}

type actionRequest struct {
	Input struct {
		Choice int  `json:"choice"`
		Manual *int `json:"manual,omitempty"`
	} `json:"input"`
}

type actionResponse struct {
	Output *game.Result `json:"output"`
	State  stateView    `json:"state"`
}

// startGame begins a fresh playthrough in a new save slot and binds the slot
// to the visitor's session.
func (app *application) startGame(w http.ResponseWriter, r *http.Request) {
	slot, err := random.Letters(20)
	if err != nil {
		app.serverError(w, r, errors.Wrap(err, "generate slot"))
		return
	}

	session, err := app.engine.NewSession(slot, time.Now().UnixNano())
	if err != nil {
		app.serverError(w, r, err)
		return
	}
	app.engine.OpenStream(session)

	rendered, err := app.engine.Start(session)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	app.mu.Lock()
	app.sessions[slot] = session
	app.mu.Unlock()

	if err = app.saves.Put(r.Context(), slot, session.ToSnapshot()); err != nil {
		app.serverError(w, r, err)
		return
	}
	app.sessionManager.Put(r.Context(), string(slotSessionKey), slot)

	app.writeJSON(w, r, http.StatusOK, startResponse{
		Output:    rendered,
		State:     newStateView(session),
		CSRFToken: contexthelpers.CSRFToken(r.Context()),
	})
}

// action takes one choice in the visitor's current game. The slot lock is
// held across the whole act-then-persist sequence: the engine mutates the
// session without any locking of its own, so two requests racing on the
// same cookie must not reach Choose concurrently.
func (app *application) action(w http.ResponseWriter, r *http.Request) {
	slot := contexthelpers.CurrentSlot(r.Context())
	if slot == "" {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	lock := app.slotLock(slot)
	lock.Lock()
	defer lock.Unlock()

	session, err := app.session(r.Context(), slot)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			app.clientError(w, r, http.StatusNotFound)
			return
		}
		app.serverError(w, r, err)
		return
	}

	var req actionRequest
	if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	result, err := app.engine.Choose(session, req.Input.Choice, req.Input.Manual)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	if err = app.saves.Put(r.Context(), slot, session.ToSnapshot()); err != nil {
		app.serverError(w, r, err)
		return
	}

	app.writeJSON(w, r, http.StatusOK, actionResponse{Output: result, State: newStateView(session)})
}

// state reports the current player-state summary without acting. Reads take
// the slot lock too; player maps may be mid-write in a concurrent action.
func (app *application) state(w http.ResponseWriter, r *http.Request) {
	slot := contexthelpers.CurrentSlot(r.Context())
	if slot == "" {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	lock := app.slotLock(slot)
	lock.Lock()
	defer lock.Unlock()

	session, err := app.session(r.Context(), slot)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			app.clientError(w, r, http.StatusNotFound)
			return
		}
		app.serverError(w, r, err)
		return
	}
	app.writeJSON(w, r, http.StatusOK, newStateView(session))
}

// streamEvents serves the session's live event log over Server Sent Events.
func (app *application) streamEvents(w http.ResponseWriter, r *http.Request) {
	slot := contexthelpers.CurrentSlot(r.Context())
	if slot == "" {
		app.clientError(w, r, http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		app.serverError(w, r, errors.New("response writer does not support flushing"))
		return
	}

	// The server's WriteTimeout would kill the stream after a few seconds;
	// this response is long-lived, so clear its deadline.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		app.logger.Warn("clear stream write deadline", errors.SlogError(err))
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	var events chan game.Event
	select {
	case events = <-app.eventBroker.Subscribe(slot):
	case <-r.Context().Done():
		return
	}
	if events == nil {
		// The session already ended.
		return
	}

	for {
		select {
		case event, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				app.logger.Error("marshal event", errors.SlogError(err))
				continue
			}
			if _, err = w.Write([]byte("data: " + string(data) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// slotLock returns the mutex serializing engine access for one slot.
func (app *application) slotLock(slot string) *sync.Mutex {
	app.mu.Lock()
	defer app.mu.Unlock()
	lock, ok := app.slotLocks[slot]
	if !ok {
		lock = &sync.Mutex{}
		app.slotLocks[slot] = lock
	}
	return lock
}

// session returns the live session for a slot, rebuilding it from the stored
// snapshot when the process has not seen the slot yet.
func (app *application) session(ctx context.Context, slot string) (*game.Session, error) {
	app.mu.Lock()
	defer app.mu.Unlock()
	if session, ok := app.sessions[slot]; ok {
		return session, nil
	}

	snapshot, err := app.saves.Get(ctx, slot)
	if err != nil {
		return nil, err
	}
	session, err := app.engine.SessionFromSnapshot(slot, snapshot)
	if err != nil {
		return nil, err
	}
	if !session.Ended() {
		app.engine.OpenStream(session)
	}
	app.sessions[slot] = session
	return session, nil
}
