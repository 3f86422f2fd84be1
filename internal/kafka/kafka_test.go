package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/yardhoppers/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBookingEvent(t *testing.T) {
	b := &domain.Booking{
		ID:          3,
		ListingID:   8,
		BookingUser: "guest",
		CheckIn:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:    time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC),
		Status:      domain.BookingStatusConfirmed,
	}

	event := NewBookingEvent(EventBookingCreated, b)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, EventBookingCreated, event.Type)
	assert.Equal(t, int64(3), event.BookingID)
	assert.Equal(t, "2024-06-01", event.CheckIn)
	assert.Equal(t, "2024-06-10", event.CheckOut)
	assert.Equal(t, "CONFIRMED", event.Status)
}

func TestBookingEvents(t *testing.T) {
	var got []BookingEvent
	handler := BookingEvents(func(ctx context.Context, e BookingEvent) error {
		got = append(got, e)
		return nil
	})

	require.NoError(t, handler(context.Background(), kafka.Message{Value: []byte(`{"type":"booking_cancelled","booking_id":5}`)}))
	require.NoError(t, handler(context.Background(), kafka.Message{Value: []byte(`not json`)}))

	require.Len(t, got, 1)
	assert.Equal(t, EventBookingCancelled, got[0].Type)
	assert.Equal(t, int64(5), got[0].BookingID)
}

func TestBookingEvents_PropagatesHandlerError(t *testing.T) {
	boom := errors.New("boom")
	handler := BookingEvents(func(context.Context, BookingEvent) error { return boom })

	err := handler(context.Background(), kafka.Message{Value: []byte(`{}`)})
	assert.Equal(t, boom, err)
}

func TestProducer_CheckConnectionWithoutBrokers(t *testing.T) {
	p := NewProducer(nil)
	assert.Error(t, p.CheckConnection(context.Background()))
	assert.NoError(t, p.Close())
}

// fakeReader serves queued messages, then blocks until ctx is done.
type fakeReader struct {
	queue     []kafka.Message
	committed []int64
	commitErr error
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.queue) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.queue[0]
	r.queue = r.queue[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if r.commitErr != nil {
		return r.commitErr
	}
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestConsumer_CommitsAfterHandler(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{{Offset: 1}, {Offset: 2}}}
	consumer := &Consumer{reader: reader}
	ctx, cancel := context.WithCancel(context.Background())

	var handled []int64
	err := consumer.Consume(ctx, func(ctx context.Context, msg kafka.Message) error {
		assert.Len(t, reader.committed, len(handled), "offset committed before its handler ran")
		handled = append(handled, msg.Offset)
		if msg.Offset == 2 {
			cancel()
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int64{1, 2}, handled)
	assert.Equal(t, []int64{1, 2}, reader.committed)
}

func TestConsumer_HandlerFailureLeavesOffsetUncommitted(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{{Offset: 1}, {Offset: 2}}}
	consumer := &Consumer{reader: reader, retries: 2, backoff: time.Millisecond}
	boom := errors.New("smtp down")

	calls := 0
	err := consumer.Consume(context.Background(), func(ctx context.Context, msg kafka.Message) error {
		if msg.Offset == 2 {
			calls++
			return boom
		}
		return nil
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int64{1}, reader.committed)
}

func TestConsumer_RetrySucceeds(t *testing.T) {
	reader := &fakeReader{queue: []kafka.Message{{Offset: 7}}}
	consumer := &Consumer{reader: reader, retries: 1, backoff: time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := consumer.Consume(ctx, func(ctx context.Context, msg kafka.Message) error {
		calls++
		if calls == 1 {
			return errors.New("transient")
		}
		cancel()
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []int64{7}, reader.committed)
}

func TestConsumer_CommitError(t *testing.T) {
	commitErr := errors.New("rebalance in progress")
	reader := &fakeReader{queue: []kafka.Message{{Offset: 3}}, commitErr: commitErr}
	consumer := &Consumer{reader: reader}

	err := consumer.Consume(context.Background(), func(context.Context, kafka.Message) error { return nil })

	assert.ErrorIs(t, err, commitErr)
}

func TestNewConsumer_Options(t *testing.T) {
	consumer := NewConsumer([]string{"localhost:9092"}, "group", "topic", WithHandlerRetries(3, time.Second))
	defer consumer.Close()

	assert.Equal(t, 3, consumer.retries)
	assert.Equal(t, time.Second, consumer.backoff)
}
