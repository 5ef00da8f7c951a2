package utils

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/gomail.v2"

	"github.com/jobatlas/jobatlas_backend/models"
	"github.com/jobatlas/jobatlas_backend/websocket"
)

// AlertNotifier delivers stored alert notifications out-of-band: an email
// summary to the alert's owner and a push to any connected dashboard
// sessions. Both legs are best-effort; a delivery failure is logged and never
// fails the evaluation that produced the notification.
type AlertNotifier struct {
	hub *websocket.Hub
}

func NewAlertNotifier(hub *websocket.Hub) *AlertNotifier {
	return &AlertNotifier{hub: hub}
}

// Deliver implements the alert engine's delivery hook.
func (n *AlertNotifier) Deliver(notification models.Notification) {
	if n.hub != nil {
		if err := n.hub.SendToUser(notification.UserEmail, websocket.Message{
			Type:    notification.Type,
			Message: notification.Message,
			Data:    notification,
		}); err != nil {
			log.Printf("Websocket delivery skipped for %s: %v", notification.UserEmail, err)
		}
	}

	if err := sendNotificationEmail(notification); err != nil {
		log.Printf("Failed to send notification email to %s: %v", notification.UserEmail, err)
	}
}

// sendNotificationEmail mails the notification summary to the alert's owner
// using the env-configured SMTP relay. An unset SMTP_HOST disables email.
func sendNotificationEmail(notification models.Notification) error {
	smtpHost := os.Getenv("SMTP_HOST")
	if smtpHost == "" {
		return nil
	}
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	smtpPort := 2525
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		fmt.Sscanf(portStr, "%d", &smtpPort)
	}

	subject := "Job alert: " + notification.Message
	body := fmt.Sprintf("Hello,\n\nYour job alert fired:\n\n%s\n\nOpen the dashboard to see the matching postings.\n\nJobAtlas", notification.Message)

	m := gomail.NewMessage()
	m.SetHeader("From", smtpUser)
	m.SetHeader("To", notification.UserEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	d := gomail.NewDialer(smtpHost, smtpPort, smtpUser, smtpPass)
	return d.DialAndSend(m)
}
