package mail

import (
	"strings"
	"testing"
	"time"

	"github.com/GridtNetwork/gridtlib/internal/clock"
)

func TestComposeMessageRendersPlainAndHTML(t *testing.T) {
	fc := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	msg, err := ComposeMessage(fc, ComposeOptions{
		From:    "Gridt <noreply@gridt.example>",
		To:      []string{"a@example.com"},
		Subject: "Password changed",
		Body:    "Your **password** was just changed.",
	})
	if err != nil {
		t.Fatalf("ComposeMessage: %v", err)
	}
	s := string(msg)
	if !containsAll(s, "Subject: Password changed", "text/plain", "text/html", "Your password was just changed") {
		t.Errorf("composed message missing expected parts:\n%s", s)
	}
}

func TestLoadRegistryAndSendRendersTemplate(t *testing.T) {
	reg, err := LoadRegistry([]byte(`
password-changed:
  subject: "Your password changed"
  body: "Hi {{.Username}}, your password was just changed."
`))
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if _, ok := reg["password-changed"]; !ok {
		t.Fatal("expected password-changed template in registry")
	}

	rendered, err := renderText("t", reg["password-changed"].Body, map[string]any{"Username": "alice"})
	if err != nil {
		t.Fatalf("renderText: %v", err)
	}
	if rendered != "Hi alice, your password was just changed." {
		t.Errorf("got %q", rendered)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
