package contexthelpers

import (
	"context"
	"net/http"
)

func SetCurrentSlot(r *http.Request, slot string) *http.Request {
	ctx := context.WithValue(r.Context(), currentSlotContextKey, slot)
	return r.WithContext(ctx)
}

func SetCSRFToken(r *http.Request, csrfToken string) *http.Request {
	ctx := context.WithValue(r.Context(), csrfTokenContextKey, csrfToken)
	return r.WithContext(ctx)
}
