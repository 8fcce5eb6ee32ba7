package mail

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mindmate/server/internal/auth"
	"github.com/mindmate/server/internal/config"
)

const (
	verificationSubject = "Please Verify Your Email"
	resetSubject        = "Reset your password"
)

// Links builds the URLs embedded in emails.
type Links struct {
	// PublicURL hosts GET /auth/verify-email.
	PublicURL string
	// FrontendURL hosts the page that posts to /auth/reset-password.
	FrontendURL string
}

// VerifyLink returns the email-verification URL for token.
func (l Links) VerifyLink(token string) string {
	return strings.TrimRight(l.PublicURL, "/") + "/auth/verify-email?token=" + url.QueryEscape(token)
}

// ResetLink returns the password-reset URL for token.
func (l Links) ResetLink(token string) string {
	return strings.TrimRight(l.FrontendURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
}

// defaultSendTimeout applies when the notifier is built without a timeout.
const defaultSendTimeout = 20 * time.Second

// sendFunc matches SendSMTP.
type sendFunc func(ctx context.Context, settings SMTPSettings, msg Message) error

// SMTPNotifier implements auth.Notifier over SMTP.
type SMTPNotifier struct {
	settings SMTPSettings
	from     string
	fromName string
	links    Links
	timeout  time.Duration
	send     sendFunc
}

var _ auth.Notifier = (*SMTPNotifier)(nil)

// NewSMTPNotifier creates a notifier from the MAIL_* configuration. Each
// delivery is cut off after timeout.
func NewSMTPNotifier(cfg config.MailConfig, links Links, timeout time.Duration) *SMTPNotifier {
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTPNotifier{
		settings: SMTPSettings{
			Host:     cfg.Server,
			Port:     cfg.Port,
			Username: cfg.Username,
			Password: cfg.Password,
			TLSMode:  cfg.TLSMode,
		},
		from:     from,
		fromName: cfg.FromName,
		links:    links,
		timeout:  timeout,
		send:     SendSMTP,
	}
}

// SendVerification mails the email-verification link.
func (n *SMTPNotifier) SendVerification(ctx context.Context, email, token string) error {
	body, err := render(verificationTmpl, linkData{Link: n.links.VerifyLink(token), Expiry: "1 hour"})
	if err != nil {
		return err
	}
	return n.deliver(ctx, email, verificationSubject, body)
}

// SendPasswordReset mails the password-reset link.
func (n *SMTPNotifier) SendPasswordReset(ctx context.Context, email, token string) error {
	body, err := render(resetTmpl, linkData{Link: n.links.ResetLink(token), Expiry: "15 minutes"})
	if err != nil {
		return err
	}
	return n.deliver(ctx, email, resetSubject, body)
}

func (n *SMTPNotifier) deliver(ctx context.Context, to, subject, body string) error {
	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	err := n.send(sendCtx, n.settings, Message{
		FromName:  n.fromName,
		FromEmail: n.from,
		ToEmail:   to,
		Subject:   subject,
		HTMLBody:  body,
	})
	if err != nil {
		return err
	}
	zerolog.Ctx(ctx).Info().Str("email", auth.MaskEmail(to)).Str("subject", subject).Msg("email sent")
	return nil
}

// LogNotifier is used when no SMTP server is configured. Links are logged
// only when devLinks is set.
type LogNotifier struct {
	links    Links
	devLinks bool
}

var _ auth.Notifier = (*LogNotifier)(nil)

// NewLogNotifier creates a notifier that only writes to the log.
func NewLogNotifier(links Links, devLinks bool) *LogNotifier {
	return &LogNotifier{links: links, devLinks: devLinks}
}

func (n *LogNotifier) SendVerification(ctx context.Context, email, token string) error {
	n.log(ctx, email, verificationSubject, n.links.VerifyLink(token))
	return nil
}

func (n *LogNotifier) SendPasswordReset(ctx context.Context, email, token string) error {
	n.log(ctx, email, resetSubject, n.links.ResetLink(token))
	return nil
}

func (n *LogNotifier) log(ctx context.Context, email, subject, link string) {
	ev := zerolog.Ctx(ctx).Warn().Str("email", auth.MaskEmail(email)).Str("subject", subject)
	if n.devLinks {
		ev = ev.Str("link", link)
	}
	ev.Msg("mail server not configured, email not sent")
}
