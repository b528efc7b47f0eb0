package contexthelpers

type contextKey string

const currentSlotContextKey = contextKey("currentSlot")
const csrfTokenContextKey = contextKey("csrfToken")
