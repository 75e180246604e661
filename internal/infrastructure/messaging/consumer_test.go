package messaging

import (
	"encoding/json"
	"testing"
	"time"
)

func TestDecodeMessage(t *testing.T) {
	msg, err := NewMessage("q-1", "royalty_settle", "q-1", "wealth", &RoyaltyEventsMessage{
		QueryID:     "q-1",
		Genre:       "wealth",
		TotalMicros: 120,
		Items: []RoyaltyEventItem{
			{PassageID: "p#0", BookTitle: "The Richest Man in Babylon", Rank: 1, Tokens: 30, CostMicros: 120},
		},
	})
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}

	got, err := decodeMessage(map[string]interface{}{"data": string(raw)})
	if err != nil {
		t.Fatalf("decodeMessage() error = %v", err)
	}
	if got.Type != "royalty_settle" || got.QueryID != "q-1" || got.Genre != "wealth" {
		t.Errorf("消息头 = %+v", got)
	}

	var payload RoyaltyEventsMessage
	if err := got.UnmarshalPayload(&payload); err != nil {
		t.Fatalf("UnmarshalPayload() error = %v", err)
	}
	if len(payload.Items) != 1 || payload.Items[0].CostMicros != 120 {
		t.Errorf("载荷 = %+v", payload)
	}
}

func TestDecodeMessageInvalid(t *testing.T) {
	if _, err := decodeMessage(map[string]interface{}{}); err == nil {
		t.Error("缺少 data 字段应报错")
	}
	if _, err := decodeMessage(map[string]interface{}{"data": "not-json"}); err == nil {
		t.Error("非 JSON 载荷应报错")
	}
}

func TestCalculateBackoff(t *testing.T) {
	cfg := BackoffConfig{Initial: time.Second, Max: 10 * time.Second, Multiplier: 2}

	tests := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 10 * time.Second},
		{10, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := cfg.CalculateBackoff(tt.retryCount); got != tt.want {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", tt.retryCount, got, tt.want)
		}
	}
}

func TestDLQStreamName(t *testing.T) {
	if got := StreamRoyalty.DLQStream(); got != "dlq:stream:royalty:events" {
		t.Errorf("DLQStream() = %q", got)
	}
}
