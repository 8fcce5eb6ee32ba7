// Package mail delivers verification and password-reset emails over SMTP.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// Message is a single HTML email.
type Message struct {
	FromName  string
	FromEmail string
	ToEmail   string
	Subject   string
	HTMLBody  string
}

// SMTPSettings describes the outbound server. TLSMode is "tls", "starttls" or "none".
type SMTPSettings struct {
	Host     string
	Port     int
	Username string
	Password string
	TLSMode  string
}

// SendSMTP delivers msg. The context deadline bounds the dial and the whole
// exchange, greeting included.
func SendSMTP(ctx context.Context, settings SMTPSettings, msg Message) error {
	addr := net.JoinHostPort(settings.Host, fmt.Sprint(settings.Port))
	client, err := smtpConnect(ctx, settings, addr)
	if err != nil {
		return err
	}
	defer client.Close()

	if settings.Username != "" {
		auth := smtp.PlainAuth("", settings.Username, settings.Password, settings.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(msg.FromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := client.Rcpt(msg.ToEmail); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := writer.Write([]byte(buildMessage(msg))); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	if err := client.Quit(); err != nil && !strings.Contains(err.Error(), "use of closed network connection") {
		return fmt.Errorf("smtp quit: %w", err)
	}
	return nil
}

func smtpConnect(ctx context.Context, settings SMTPSettings, addr string) (*smtp.Client, error) {
	tlsConfig := &tls.Config{ServerName: settings.Host, MinVersion: tls.VersionTLS12}
	var dialer net.Dialer

	tlsMode := settings.TLSMode
	if tlsMode == "" {
		tlsMode = "starttls"
	}
	var (
		conn net.Conn
		err  error
	)
	if tlsMode == "tls" {
		td := tls.Dialer{NetDialer: &dialer, Config: tlsConfig}
		conn, err = td.DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("smtp dial: %w", err)
	}
	// A server that accepts and stays silent would block NewClient forever.
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, settings.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	if tlsMode == "starttls" {
		if err := client.StartTLS(tlsConfig); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("smtp starttls: %w", err)
		}
	}
	return client, nil
}

func buildMessage(msg Message) string {
	from := msg.FromEmail
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", msg.FromName, msg.FromEmail)
	}
	lines := []string{
		"From: " + from,
		"To: " + msg.ToEmail,
		"Subject: " + msg.Subject,
		"MIME-Version: 1.0",
		`Content-Type: text/html; charset="UTF-8"`,
		"",
		msg.HTMLBody,
	}
	return strings.Join(lines, "\r\n")
}
