package kafka

import (
	"context"
	"log/slog"

	"github.com/niksmo/levelup-shop/internal/core/domain"
	"github.com/niksmo/levelup-shop/internal/core/port"
	"github.com/niksmo/levelup-shop/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

var _ port.CartEventsProducer = (*CartEventsProducer)(nil)

// A CartEventsProducer publishes [domain.CartEvent] facts,
// keyed by event id.
type CartEventsProducer struct {
	cl      ProducerClient
	encoder Encoder
}

func NewCartEventsProducer(opts ...ProducerOpt) (CartEventsProducer, error) {
	const op = "NewCartEventsProducer"

	if len(opts) != 2 {
		panic(opErr(ErrTooFewOpts, op)) // develop mistake
	}

	var options producerOpts
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return CartEventsProducer{}, opErr(err, op)
		}
	}
	return CartEventsProducer{options.cl, options.encoder}, nil
}

func (p CartEventsProducer) Close() {
	const op = "CartEventsProducer.Close"
	log := slog.With("op", op)
	log.Info("closing producer...")
	p.cl.Close()
	log.Info("producer is closed")
}

func (p CartEventsProducer) ProduceEvents(
	ctx context.Context, evts []domain.CartEvent,
) error {
	const op = "CartEventsProducer.ProduceEvents"

	if err := ctx.Err(); err != nil {
		return opErr(err, op)
	}

	rs, err := p.createRecords(evts)
	if err != nil {
		return opErr(err, op)
	}

	res := p.cl.ProduceSync(ctx, rs...)
	if err := res.FirstErr(); err != nil {
		return opErr(err, op)
	}
	return nil
}

func (p CartEventsProducer) createRecords(
	evts []domain.CartEvent,
) (rs []*kgo.Record, err error) {
	const op = "CartEventsProducer.createRecords"

	for _, evt := range evts {
		s := p.toSchema(evt)
		b, err := p.encoder.Encode(s)
		if err != nil {
			return nil, opErr(err, op)
		}
		msgKey := []byte(s.EventID)
		rs = append(rs, &kgo.Record{Key: msgKey, Value: b})
	}
	return rs, nil
}

func (CartEventsProducer) toSchema(evt domain.CartEvent) (s schema.CartEventV1) {
	s.EventID = evt.EventID
	s.SessionID = evt.SessionID
	s.EventType = string(evt.Type)
	s.ProductCode = evt.ProductCode
	s.Quantity = evt.Quantity
	s.OccurredAt = evt.OccurredAt.UnixMilli()
	return s
}
