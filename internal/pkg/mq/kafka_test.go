package mq

import (
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestKafkaHeaderCarrier(t *testing.T) {
	carrier := KafkaHeaderCarrier{
		{Key: "real-topic", Value: []byte("order-timeout-check-topic")},
	}

	if got := carrier.Get("real-topic"); got != "order-timeout-check-topic" {
		t.Errorf("Get(real-topic) = %q", got)
	}
	if got := carrier.Get("missing"); got != "" {
		t.Errorf("Get(missing) = %q, want empty", got)
	}

	carrier.Set("traceparent", "00-abc-def-01")
	if got := carrier.Get("traceparent"); got != "00-abc-def-01" {
		t.Errorf("Get(traceparent) = %q", got)
	}

	// Set 覆盖已有 key，而不是追加重复的 header
	carrier.Set("traceparent", "00-abc-def-02")
	if got := carrier.Get("traceparent"); got != "00-abc-def-02" {
		t.Errorf("Get(traceparent) after overwrite = %q", got)
	}
	if len(carrier) != 2 {
		t.Errorf("expected 2 headers, got %d", len(carrier))
	}

	keys := carrier.Keys()
	if len(keys) != 2 || keys[0] != "real-topic" || keys[1] != "traceparent" {
		t.Errorf("unexpected keys: %v", keys)
	}
}

func TestInjectTraceContextPreservesExistingHeaders(t *testing.T) {
	headers := []kafka.Header{
		{Key: "real-topic", Value: []byte("pay-success-topic")},
	}
	InjectTraceContext(t.Context(), &headers)

	found := false
	for _, h := range headers {
		if h.Key == "real-topic" && string(h.Value) == "pay-success-topic" {
			found = true
		}
	}
	if !found {
		t.Error("injection must not clobber routing headers")
	}
}
