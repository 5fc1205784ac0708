package kafka

import (
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// Router dispatches a message to the publisher registered for its
// x-event-type header. One Producer is bound to one topic, so services that
// emit several event types publish through a Router.
type Router struct {
	Routes map[string]Publisher
	Log    zerolog.Logger
}

func (r *Router) Publish(key, value []byte, headers ...kafka.Header) {
	m := kafka.Message{Headers: headers}
	t := HeaderValue(m, HeaderEventType)
	p, ok := r.Routes[t]
	if !ok {
		r.Log.Warn().Str("event_type", t).Str("key", string(key)).Msg("no topic for event, dropped")
		return
	}
	p.Publish(key, value, headers...)
}
