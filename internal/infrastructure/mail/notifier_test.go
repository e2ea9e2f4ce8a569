package mail

import (
	"context"
	"net/smtp"
	"strings"
	"testing"

	"intelpipeline/internal/config"
)

func TestSendBuildsMessage(t *testing.T) {
	t.Parallel()

	n := NewSMTPNotifier(config.SMTPConfig{
		Host:     "relay.example.org",
		Port:     587,
		From:     "pipeline@example.org",
		Username: "pipeline",
		Password: "secret",
	})

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	n.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := n.Send(context.Background(), "ops@example.org", "Refresh complete", "42 articles fetched")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotAddr != "relay.example.org:587" {
		t.Fatalf("addr = %q", gotAddr)
	}
	if gotFrom != "pipeline@example.org" {
		t.Fatalf("from = %q", gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "ops@example.org" {
		t.Fatalf("to = %v", gotTo)
	}
	msg := string(gotMsg)
	for _, want := range []string{"Subject: Refresh complete", "To: ops@example.org", "42 articles fetched"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestSendRejectsMissingConfig(t *testing.T) {
	t.Parallel()

	n := NewSMTPNotifier(config.SMTPConfig{})
	if err := n.Send(context.Background(), "ops@example.org", "s", "b"); err == nil {
		t.Fatal("send without host must fail")
	}

	n = NewSMTPNotifier(config.SMTPConfig{Host: "relay", Port: 25})
	if err := n.Send(context.Background(), "", "s", "b"); err == nil {
		t.Fatal("send without recipient must fail")
	}
}
