package services

import (
	"fmt"
	"html"
	"net/smtp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"planpal-backend/internal/models"
)

type EmailService struct {
	host        string
	port        string
	user        string
	pass        string
	from        string
	frontendURL string
	devMode     bool
}

func NewEmailService(host, port, user, pass, from, frontendURL string) *EmailService {
	devMode := host == "" || user == ""
	if devMode {
		log.Println("⚠ Email service running in DEV MODE (logging to console)")
	}
	return &EmailService{
		host:        host,
		port:        port,
		user:        user,
		pass:        pass,
		from:        from,
		frontendURL: frontendURL,
		devMode:     devMode,
	}
}

// Titles come from model output; CR/LF would start new mail headers.
var headerBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func reminderSubject(task *models.Task) string {
	return fmt.Sprintf("PlanPal Reminder: %s", headerBreaks.Replace(task.Title))
}

func formatDue(t *time.Time) string {
	if t == nil {
		return "no due time"
	}
	return t.Format(time.RFC1123)
}

func (s *EmailService) SendReminderEmail(to string, task *models.Task, reminder *models.Reminder) error {
	title := html.EscapeString(task.Title)
	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: 'Segoe UI', Arial, sans-serif; margin: 0; padding: 0; background-color: #f8fafc;">
  <div style="max-width: 480px; margin: 40px auto; background: white; border-radius: 12px; box-shadow: 0 4px 24px rgba(0,0,0,0.08); overflow: hidden;">
    <div style="background: %s; padding: 24px; text-align: center;">
      <h1 style="color: white; margin: 0; font-size: 22px; font-weight: 700;">PlanPal</h1>
      <p style="color: rgba(255,255,255,0.85); margin: 8px 0 0; font-size: 13px;">%s</p>
    </div>
    <div style="padding: 32px;">
      <p style="margin: 0 0 8px; font-size: 14px; color: #1e293b;"><strong>Task:</strong> %s</p>
      <p style="margin: 0 0 8px; font-size: 14px; color: #1e293b;"><strong>Due at:</strong> %s</p>
      <p style="margin: 0 0 24px; font-size: 14px; color: #1e293b;"><strong>Reminder time:</strong> %s</p>
      <a href="%s" style="display: inline-block; background: #6366f1; color: white; text-decoration: none; padding: 12px 32px; border-radius: 8px; font-weight: 600; font-size: 14px;">
        Open PlanPal
      </a>
    </div>
  </div>
</body>
</html>`,
		task.Color, html.EscapeString(task.Category), title,
		formatDue(task.DueAt), reminder.RemindAt.Format(time.RFC1123), s.frontendURL)

	return s.sendHTML(to, reminderSubject(task), body)
}

func (s *EmailService) sendHTML(to, subject, htmlBody string) error {
	if s.devMode {
		log.Printf("📧 [DEV EMAIL] To: %s | Subject: %s", to, subject)
		log.Debugf("📧 Body:\n%s", htmlBody)
		return nil
	}

	headers := []string{
		fmt.Sprintf("From: %s", s.from),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=UTF-8",
	}

	message := strings.Join(headers, "\r\n") + "\r\n\r\n" + htmlBody

	auth := smtp.PlainAuth("", s.user, s.pass, s.host)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)

	err := smtp.SendMail(addr, auth, s.from, []string{to}, []byte(message))
	if err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}

	log.Printf("📧 Email sent to %s: %s", to, subject)
	return nil
}
