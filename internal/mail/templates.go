package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

const verificationTemplate = `<html>
  <body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <p>Hi,</p>
    <p>Thanks for signing up! Please verify your email by clicking the button below:</p>
    <p>
      <a href="{{.Link}}"
         style="display:inline-block;padding:12px 20px;background:#007bff;color:white;text-decoration:none;border-radius:5px;font-weight:bold;">
        Verify Email
      </a>
    </p>
    <p>This link expires in {{.Expiry}}. If you didn't create an account, you can safely ignore this email.</p>
    <hr>
    <small style="color:#888;">This email was sent automatically. Please do not reply.</small>
  </body>
</html>`

const resetTemplate = `<html>
  <body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <p>Hi,</p>
    <p>You requested a password reset. Click below to set a new password:</p>
    <a href="{{.Link}}"
       style="background:#007bff;color:white;padding:10px 15px;text-decoration:none;">
      Reset Password
    </a>
    <p>This link will expire in {{.Expiry}}. If you didn't request it, you can ignore this email.</p>
  </body>
</html>`

var (
	verificationTmpl = template.Must(template.New("verification").Parse(verificationTemplate))
	resetTmpl        = template.Must(template.New("reset").Parse(resetTemplate))
)

type linkData struct {
	Link   string
	Expiry string
}

func render(t *template.Template, data linkData) (string, error) {
	var body bytes.Buffer
	if err := t.Execute(&body, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", t.Name(), err)
	}
	return body.String(), nil
}
