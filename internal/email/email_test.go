package email

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
)

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, in)
	return &sesv2.SendEmailOutput{}, nil
}

func invitation() Invitation {
	return Invitation{
		ToEmail:      "bruno@example.com",
		InviterName:  "Anna Rossi",
		ResourceName: "Casa <Milano>",
		Kind:         KindGroup,
		ShareToken:   "abc123",
	}
}

func TestRender(t *testing.T) {
	s, err := newService(nil, "", "", "http://localhost:3000")
	if err != nil {
		t.Fatal(err)
	}

	subject, html, text, err := s.Render(invitation())
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(subject, "Anna Rossi") {
		t.Errorf("unexpected subject %q", subject)
	}
	if !strings.Contains(html, "http://localhost:3000/expenses/join/abc123") {
		t.Error("html body should carry the join link")
	}
	if strings.Contains(html, "Casa <Milano>") {
		t.Error("html body must escape resource names")
	}
	if !strings.Contains(text, "Casa <Milano>") || !strings.Contains(text, "abc123") {
		t.Errorf("unexpected text body %q", text)
	}

	list := invitation()
	list.Kind = KindList
	if _, html, _, err := s.Render(list); err != nil || !strings.Contains(html, "/shopping-lists/join/abc123") {
		t.Errorf("unexpected list render: %v", err)
	}

	bad := invitation()
	bad.Kind = "gym"
	if _, _, _, err := s.Render(bad); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestSendInvitationDisabled(t *testing.T) {
	s, err := NewService(context.Background(), "eu-west-1", "", "", "http://localhost:3000")
	if err != nil {
		t.Fatal(err)
	}
	if s.Enabled() {
		t.Fatal("service without sender must be disabled")
	}
	sent, err := s.SendInvitation(context.Background(), invitation())
	if err != nil || sent {
		t.Errorf("expected sent=false without error, got %v %v", sent, err)
	}
}

func TestSendInvitation(t *testing.T) {
	fake := &fakeSES{}
	s, err := newService(fake, "noreply@example.com", "Gestionale", "http://localhost:3000")
	if err != nil {
		t.Fatal(err)
	}

	sent, err := s.SendInvitation(context.Background(), invitation())
	if err != nil || !sent {
		t.Fatalf("expected sent, got %v %v", sent, err)
	}
	if len(fake.inputs) != 1 {
		t.Fatalf("expected one SES call, got %d", len(fake.inputs))
	}
	in := fake.inputs[0]
	if *in.FromEmailAddress != "Gestionale <noreply@example.com>" {
		t.Errorf("unexpected from %s", *in.FromEmailAddress)
	}
	if in.Destination.ToAddresses[0] != "bruno@example.com" {
		t.Errorf("unexpected destination %v", in.Destination.ToAddresses)
	}

	fake.err = errors.New("throttled")
	if sent, err := s.SendInvitation(context.Background(), invitation()); err == nil || sent {
		t.Error("expected SES failure to surface")
	}
}
