package commandrouter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/devlens/devlens/internal/registry"
	"github.com/devlens/devlens/internal/types"
)

type fakeTransport struct {
	sent [][]byte
}

func (f *fakeTransport) Send(frame []byte) error {
	f.sent = append(f.sent, frame)
	return nil
}

func (f *fakeTransport) Closed() bool { return false }

// TestCommandTimeout is scenario S2 from spec.md §8.
func TestCommandTimeout(t *testing.T) {
	reg := registry.New()
	tr := &fakeTransport{}
	reg.Register("s1", "app", tr)

	rt := New()
	start := time.Now()
	res := rt.SendCommand(reg, "s1", types.CommandFrame{Command: "capture_dom_snapshot", RequestID: "r1"}, 100*time.Millisecond, nil)
	elapsed := time.Since(start)

	if res.Outcome != OutcomeTimeout {
		t.Fatalf("Outcome = %v, want timeout", res.Outcome)
	}
	if elapsed < 100*time.Millisecond {
		t.Fatalf("resolved too early: %v", elapsed)
	}
	if rt.PendingCount() != 0 {
		t.Fatalf("PendingCount() = %d, want 0 after resolution", rt.PendingCount())
	}
}

// TestCommandSuccess is scenario S3 from spec.md §8.
func TestCommandSuccess(t *testing.T) {
	reg := registry.New()
	tr := &fakeTransport{}
	reg.Register("s1", "app", tr)

	rt := New()
	done := make(chan Result, 1)
	go func() {
		done <- rt.SendCommand(reg, "s1", types.CommandFrame{Command: "capture_dom_snapshot", RequestID: "r1"}, time.Second, nil)
	}()

	// Give SendCommand time to register the waiter before resolving.
	time.Sleep(10 * time.Millisecond)
	data, _ := json.Marshal(types.DOMSnapshotBody{HTML: "<x/>", URL: "u", ElementCount: 1})
	rt.Resolve(types.CommandReply{RequestID: "r1", Data: data})

	res := <-done
	if res.Outcome != OutcomeReply {
		t.Fatalf("Outcome = %v, want reply", res.Outcome)
	}
	var body types.DOMSnapshotBody
	if err := json.Unmarshal(res.Data, &body); err != nil {
		t.Fatalf("unmarshal reply data: %v", err)
	}
	if body.HTML != "<x/>" {
		t.Fatalf("HTML = %q, want <x/>", body.HTML)
	}
}

func TestCommandNoSession(t *testing.T) {
	reg := registry.New()
	rt := New()
	res := rt.SendCommand(reg, "missing", types.CommandFrame{RequestID: "r1"}, time.Second, nil)
	if res.Outcome != OutcomeNoSession {
		t.Fatalf("Outcome = %v, want no-session", res.Outcome)
	}
}

func TestCommandDisconnect(t *testing.T) {
	reg := registry.New()
	tr := &fakeTransport{}
	reg.Register("s1", "app", tr)
	rt := New()

	done := make(chan Result, 1)
	go func() {
		done <- rt.SendCommand(reg, "s1", types.CommandFrame{RequestID: "r1"}, time.Second, nil)
	}()
	time.Sleep(10 * time.Millisecond)
	rt.DisconnectSession("s1")

	res := <-done
	if res.Outcome != OutcomeDisconnected {
		t.Fatalf("Outcome = %v, want disconnected", res.Outcome)
	}
}

func TestLateReplyDiscarded(t *testing.T) {
	reg := registry.New()
	tr := &fakeTransport{}
	reg.Register("s1", "app", tr)
	rt := New()

	res := rt.SendCommand(reg, "s1", types.CommandFrame{RequestID: "r1"}, 20*time.Millisecond, nil)
	if res.Outcome != OutcomeTimeout {
		t.Fatalf("Outcome = %v, want timeout", res.Outcome)
	}
	// A reply arriving after forget() must be a silent no-op, not a panic.
	rt.Resolve(types.CommandReply{RequestID: "r1", Data: json.RawMessage(`{}`)})
}
