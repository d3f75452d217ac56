package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

// HeaderCarrier adapts message headers to otel's TextMapCarrier.
type HeaderCarrier []kafka.Header

func (c *HeaderCarrier) Get(key string) string {
	for _, h := range *c {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *HeaderCarrier) Set(key, value string) {
	for i, h := range *c {
		if h.Key == key {
			(*c)[i].Value = []byte(value)
			return
		}
	}
	*c = append(*c, kafka.Header{Key: key, Value: []byte(value)})
}

func (c *HeaderCarrier) Keys() []string {
	out := make([]string, 0, len(*c))
	for _, h := range *c {
		out = append(out, h.Key)
	}
	return out
}

// ExtractContext continues the producer's trace for a consumed message.
func ExtractContext(ctx context.Context, m kafka.Message) context.Context {
	carrier := HeaderCarrier(m.Headers)
	return otel.GetTextMapPropagator().Extract(ctx, &carrier)
}

// HeaderValue returns the first header named key.
func HeaderValue(m kafka.Message, key string) string {
	carrier := HeaderCarrier(m.Headers)
	return carrier.Get(key)
}
