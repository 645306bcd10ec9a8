package schema

const CartEventSchemaTextV1 = `{
	"type": "record",
	"namespace": "cart",
	"name": "cart_event",
	"fields": [
		{"name": "event_id", "type": "string"},
		{"name": "session_id", "type": "int"},
		{"name": "event_type", "type": "string"},
		{"name": "product_code", "type": "string"},
		{"name": "quantity", "type": "int"},
		{"name": "occurred_at", "type": "long"}
	]
}`

// A CartEventV1 is the wire form of a cart mutation fact.
// OccurredAt is unix milliseconds.
type CartEventV1 struct {
	EventID     string `avro:"event_id"`
	SessionID   int    `avro:"session_id"`
	EventType   string `avro:"event_type"`
	ProductCode string `avro:"product_code"`
	Quantity    int    `avro:"quantity"`
	OccurredAt  int64  `avro:"occurred_at"`
}
