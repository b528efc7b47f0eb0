package contexthelpers

import (
	"context"
)

// CurrentSlot returns the save slot bound to this request, or "" when the
// visitor has not started a game.
func CurrentSlot(ctx context.Context) string {
	slot, ok := ctx.Value(currentSlotContextKey).(string)
	if !ok {
		return ""
	}

	return slot
}

// CSRFToken returns the token the browser client must echo on POSTs.
func CSRFToken(ctx context.Context) string {
	csrfToken, ok := ctx.Value(csrfTokenContextKey).(string)
	if !ok {
		return ""
	}

	return csrfToken
}
