package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"
)

type emailData struct {
	AppName   string
	URL       string
	ExpiresIn string
}

var (
	verifyText = texttemplate.Must(texttemplate.New("verify.txt").Parse(
		`Welcome to {{.AppName}}!

Confirm your email address by opening the link below:
{{.URL}}

The link expires in {{.ExpiresIn}}. If you did not create an account, ignore this email.
`))

	verifyHTML = htmltemplate.Must(htmltemplate.New("verify.html").Parse(
		`<!doctype html>
<html><body style="font-family:sans-serif;color:#111">
<h2>Welcome to {{.AppName}}</h2>
<p>Confirm your email address to finish setting up your account.</p>
<p><a href="{{.URL}}" style="display:inline-block;padding:10px 18px;background:#2563eb;color:#fff;text-decoration:none;border-radius:6px">Verify email</a></p>
<p style="color:#555;font-size:13px">The link expires in {{.ExpiresIn}}. If you did not create an account, ignore this email.</p>
</body></html>`))

	resetText = texttemplate.Must(texttemplate.New("reset.txt").Parse(
		`A password reset was requested for your {{.AppName}} account.

Choose a new password here:
{{.URL}}

The link expires in {{.ExpiresIn}}. If you did not request a reset, ignore this email; your password stays unchanged.
`))

	resetHTML = htmltemplate.Must(htmltemplate.New("reset.html").Parse(
		`<!doctype html>
<html><body style="font-family:sans-serif;color:#111">
<h2>Reset your {{.AppName}} password</h2>
<p>We received a request to reset your password.</p>
<p><a href="{{.URL}}" style="display:inline-block;padding:10px 18px;background:#2563eb;color:#fff;text-decoration:none;border-radius:6px">Reset password</a></p>
<p style="color:#555;font-size:13px">The link expires in {{.ExpiresIn}}. If you did not request a reset, ignore this email; your password stays unchanged.</p>
</body></html>`))
)

// VerificationEmail builds the account verification message for to.
func VerificationEmail(appName, to, url string, ttl time.Duration) (Message, error) {
	data := emailData{AppName: appName, URL: url, ExpiresIn: humanDuration(ttl)}
	text, html, err := render(verifyText, verifyHTML, data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("%s - Verify your email address", appName),
		Text:    text,
		HTML:    html,
	}, nil
}

// PasswordResetEmail builds the password reset message for to.
func PasswordResetEmail(appName, to, url string, ttl time.Duration) (Message, error) {
	data := emailData{AppName: appName, URL: url, ExpiresIn: humanDuration(ttl)}
	text, html, err := render(resetText, resetHTML, data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("%s - Password reset request", appName),
		Text:    text,
		HTML:    html,
	}, nil
}

func render(text *texttemplate.Template, html *htmltemplate.Template, data emailData) (string, string, error) {
	var tb, hb bytes.Buffer
	if err := text.Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", text.Name(), err)
	}
	if err := html.Execute(&hb, data); err != nil {
		return "", "", fmt.Errorf("render %s: %w", html.Name(), err)
	}
	return tb.String(), hb.String(), nil
}

// humanDuration renders whole hours and minutes, e.g. "45 minutes" or
// "1 hour 30 minutes".
func humanDuration(d time.Duration) string {
	if d < time.Minute {
		return "less than a minute"
	}
	d = d.Round(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	var parts []string
	if h > 0 {
		parts = append(parts, plural(h, "hour"))
	}
	if m > 0 {
		parts = append(parts, plural(m, "minute"))
	}
	return strings.Join(parts, " ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
