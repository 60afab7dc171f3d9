package mail

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/DanielHaim/PanicDeck/internal/pkg/env"
)

// ErrNotConfigured is returned when no SMTP relay is set; callers treat
// mail as one more best-effort channel and log it away
var ErrNotConfigured = errors.New("mail: SMTP_HOST is not configured")

// SendReportAlert mails one subscriber about a new or regressed report
func SendReportAlert(to string, headline string, projectName string, environmentName string, lastSeen time.Time, reportURL string) error {
	body := fmt.Sprintf(
		"<p>%s</p>"+
			"<p><strong>Project:</strong> %s<br>"+
			"<strong>Environment:</strong> %s<br>"+
			"<strong>Last seen:</strong> %s</p>"+
			"<p><a href=\"%s\">View report</a></p>",
		headline, projectName, environmentName,
		lastSeen.UTC().Format("2006-01-02 15:04:05 UTC"), reportURL,
	)

	return Send(to, headline, body)
}

// SendQuotaAlert mails an organization owner that the rolling request
// budget is about to run out
func SendQuotaAlert(to string, orgName string, used uint, limit uint, settingsURL string) error {
	subject := fmt.Sprintf("%s is approaching its request limit", orgName)
	body := fmt.Sprintf(
		"<p>Your organization <strong>%s</strong> has used %d of its %d monthly requests.</p>"+
			"<p>Once the limit is reached, further error reports will be rejected until the window resets.</p>"+
			"<p><a href=\"%s\">Review your plan</a></p>",
		orgName, used, limit, settingsURL,
	)

	return Send(to, subject, body)
}

// Send delivers one HTML mail through the SMTP relay from the environment
func Send(to string, subject string, htmlBody string) error {
	host := env.GetEnv("SMTP_HOST", "")
	if host == "" {
		return ErrNotConfigured
	}

	port := env.GetEnv("SMTP_PORT", "587")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "no-reply@panicdeck.local")

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)
	msg := buildMessage(sender, to, subject, htmlBody)

	if err := smtp.SendMail(addr, auth, sender, []string{to}, msg); err != nil {
		return err
	}

	log.Debugf("[Mail] Sent %q to %s via %s", subject, to, addr)
	return nil
}

func buildMessage(sender string, to string, subject string, htmlBody string) []byte {
	var b strings.Builder
	b.WriteString("From: " + sender + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
