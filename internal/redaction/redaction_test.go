package redaction

import (
	"testing"

	"github.com/devlens/devlens/internal/types"
)

func TestRedactBearerToken(t *testing.T) {
	e := New()
	got := e.Redact("Authorization: Bearer abc123.def456-ghi")
	if got == "Authorization: Bearer abc123.def456-ghi" {
		t.Fatal("expected bearer token to be redacted")
	}
}

func TestRedactCreditCardRequiresLuhn(t *testing.T) {
	e := New()
	valid := "4111 1111 1111 1111" // passes Luhn
	if got := e.Redact(valid); got == valid {
		t.Fatal("expected valid card number to be redacted")
	}
	invalid := "1234 5678 9012 3456" // fails Luhn
	if got := e.Redact(invalid); got != invalid {
		t.Fatalf("expected non-Luhn digit string to survive untouched, got %q", got)
	}
}

func TestScrubEventRedactsAuthorizationHeader(t *testing.T) {
	e := New()
	evt := types.Event{
		Tag: types.TagNetwork,
		Network: &types.NetworkBody{
			Method:         "GET",
			URL:            "/x",
			RequestHeaders: map[string]string{"Authorization": "Bearer sometoken"},
		},
	}
	e.ScrubEvent(&evt)
	if evt.Network.RequestHeaders["Authorization"] != "[redacted]" {
		t.Fatalf("Authorization = %q, want [redacted]", evt.Network.RequestHeaders["Authorization"])
	}
}

func TestScrubEventRedactsConsoleMessage(t *testing.T) {
	e := New()
	evt := types.Event{
		Tag:     types.TagConsole,
		Console: &types.ConsoleBody{Message: "failed with AKIA1234567890ABCDEF"},
	}
	e.ScrubEvent(&evt)
	if evt.Console.Message == "failed with AKIA1234567890ABCDEF" {
		t.Fatal("expected aws key in console message to be redacted")
	}
}

func TestScrubEventIgnoresOtherTags(t *testing.T) {
	e := New()
	evt := types.Event{Tag: types.TagSession}
	e.ScrubEvent(&evt) // must not panic on nil bodies
}
