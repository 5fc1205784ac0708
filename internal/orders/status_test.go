package orders

import (
	"encoding/json"
	"testing"

	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusPaid))
	assert.True(t, CanTransition(StatusPending, StatusFailed))
	assert.False(t, CanTransition(StatusPaid, StatusFailed))
	assert.False(t, CanTransition(StatusFailed, StatusPaid))
	assert.False(t, CanTransition(StatusPaid, StatusPaid))
	assert.False(t, CanTransition(Status("bogus"), StatusPaid))
}

type recordingPublisher struct {
	msgs []kafka.Message
}

func (p *recordingPublisher) Publish(key, value []byte, headers ...kafka.Header) {
	p.msgs = append(p.msgs, kafka.Message{Key: key, Value: value, Headers: headers})
}

func TestPublishEnvelope(t *testing.T) {
	pub := &recordingPublisher{}
	env := NewEnvelope(EventPaymentAuthorized, "store-api", "o-1", "req-9",
		PaymentAuthorizedPayload{OrderID: "o-1", PaymentRef: "tok", AmountCents: 1500})

	Publish(pub, env)

	require.Len(t, pub.msgs, 1)
	m := pub.msgs[0]
	assert.Equal(t, "o-1", string(m.Key))
	assert.Equal(t, EventPaymentAuthorized, kafkax.HeaderValue(m, kafkax.HeaderEventType))

	var got Envelope
	require.NoError(t, json.Unmarshal(m.Value, &got))
	assert.Equal(t, env.EventID, got.EventID)
	assert.Equal(t, "req-9", got.TraceID)

	p, err := kafkax.UnwrapPayload[PaymentAuthorizedPayload](got.Payload)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), p.AmountCents)
}
