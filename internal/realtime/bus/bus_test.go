package bus

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/yungbote/evoplanner-backend/internal/realtime"
)

func TestDecodeEnvelope(t *testing.T) {
	raw, err := json.Marshal(envelope{V: envelopeVersion, Msg: realtime.SSEMessage{
		Channel: "job:1",
		Event:   realtime.SSEEventJobProgress,
	}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	msg, err := decodeEnvelope(string(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Channel != "job:1" || msg.Event != realtime.SSEEventJobProgress {
		t.Fatalf("decoded: got=%+v", msg)
	}

	for _, bad := range []string{`not json`, `{"v":2,"msg":{"channel":"job:1"}}`, `{"channel":"job:1"}`} {
		if _, err := decodeEnvelope(bad); err == nil {
			t.Fatalf("decode %q: want error", bad)
		}
	}
}

func TestLocalBusDeliversToEveryForwarder(t *testing.T) {
	b := NewLocalBus()
	var a, c int
	_ = b.StartForwarder(context.Background(), func(realtime.SSEMessage) { a++ })
	_ = b.StartForwarder(context.Background(), func(realtime.SSEMessage) { c++ })

	if err := b.Publish(context.Background(), realtime.SSEMessage{Channel: "recruitment:1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if a != 1 || c != 1 {
		t.Fatalf("deliveries: want=1,1 got=%d,%d", a, c)
	}
}
