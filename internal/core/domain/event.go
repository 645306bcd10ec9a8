package domain

import "time"

type CartEventType string

const (
	CartEventAdd      CartEventType = "add"
	CartEventRemove   CartEventType = "remove"
	CartEventCheckout CartEventType = "checkout"
)

// A CartEvent is an analytics fact about a cart mutation.
// Production is best-effort and never affects cart state.
type CartEvent struct {
	EventID     string
	SessionID   int
	Type        CartEventType
	ProductCode string
	Quantity    int
	OccurredAt  time.Time
}
