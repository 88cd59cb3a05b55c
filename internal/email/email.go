// Package email sends invitation emails through Amazon SES. Without a sender address
// the service runs disabled and reports every invitation as not sent.
package email

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"log/slog"
	"net/url"
	texttemplate "text/template"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/localnerve/gestionale/data"
)

// Invitation kinds
const (
	KindGroup = "group"
	KindList  = "list"
)

// Invitation asks ToEmail to join a group or a shopping list
type Invitation struct {
	ToEmail      string
	InviterName  string
	ResourceName string
	Kind         string
	ShareToken   string
}

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Service sends invitations
type Service struct {
	client      sesAPI
	fromEmail   string
	fromName    string
	frontendURL string
	html        *htmltemplate.Template
	text        *texttemplate.Template
}

// NewService loads the AWS configuration for region. An empty fromEmail yields a
// disabled service.
func NewService(ctx context.Context, region, fromEmail, fromName, frontendURL string) (*Service, error) {
	if fromEmail == "" {
		slog.Info("email service disabled: SES_FROM_EMAIL not configured")
		return newService(nil, "", "", frontendURL)
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	slog.Info("email service enabled", "from", fromEmail, "region", region)
	return newService(sesv2.NewFromConfig(cfg), fromEmail, fromName, frontendURL)
}

func newService(client sesAPI, fromEmail, fromName, frontendURL string) (*Service, error) {
	html, err := htmltemplate.ParseFS(data.Templates, "templates/invite.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email template: %w", err)
	}
	text, err := texttemplate.ParseFS(data.Templates, "templates/invite.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email template: %w", err)
	}
	return &Service{
		client:      client,
		fromEmail:   fromEmail,
		fromName:    fromName,
		frontendURL: frontendURL,
		html:        html,
		text:        text,
	}, nil
}

// Enabled reports whether invitations are actually sent
func (s *Service) Enabled() bool {
	return s != nil && s.client != nil
}

type inviteView struct {
	Heading      string
	InviterName  string
	ResourceName string
	ShareToken   string
	FrontendURL  string
	JoinURL      string
}

// Render builds the subject and both bodies for an invitation
func (s *Service) Render(inv Invitation) (subject, html, text string, err error) {
	view := inviteView{
		InviterName:  inv.InviterName,
		ResourceName: inv.ResourceName,
		ShareToken:   inv.ShareToken,
		FrontendURL:  s.frontendURL,
	}
	switch inv.Kind {
	case KindGroup:
		subject = fmt.Sprintf("%s ti ha invitato nel gruppo spese %s", inv.InviterName, inv.ResourceName)
		view.Heading = "Invito a un gruppo spese"
		view.JoinURL = s.frontendURL + "/expenses/join/" + url.PathEscape(inv.ShareToken)
	case KindList:
		subject = fmt.Sprintf("%s ti ha invitato alla lista della spesa %s", inv.InviterName, inv.ResourceName)
		view.Heading = "Invito a una lista della spesa"
		view.JoinURL = s.frontendURL + "/shopping-lists/join/" + url.PathEscape(inv.ShareToken)
	default:
		return "", "", "", fmt.Errorf("unknown invitation kind %q", inv.Kind)
	}

	var hb, tb bytes.Buffer
	if err := s.html.Execute(&hb, view); err != nil {
		return "", "", "", fmt.Errorf("failed to render email: %w", err)
	}
	if err := s.text.Execute(&tb, view); err != nil {
		return "", "", "", fmt.Errorf("failed to render email: %w", err)
	}
	return subject, hb.String(), tb.String(), nil
}

// SendInvitation sends the invitation and reports whether an email left the service
func (s *Service) SendInvitation(ctx context.Context, inv Invitation) (bool, error) {
	subject, html, text, err := s.Render(inv)
	if err != nil {
		return false, err
	}

	if !s.Enabled() {
		slog.Info("skipping invitation email (service disabled)", "to", inv.ToEmail, "kind", inv.Kind)
		return false, nil
	}

	from := s.fromEmail
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)
	}

	_, err = s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination:      &sestypes.Destination{ToAddresses: []string{inv.ToEmail}},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &sestypes.Body{
					Html: &sestypes.Content{Data: aws.String(html), Charset: aws.String("UTF-8")},
					Text: &sestypes.Content{Data: aws.String(text), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to send email: %w", err)
	}

	slog.Info("invitation email sent", "to", inv.ToEmail, "kind", inv.Kind)
	return true, nil
}
