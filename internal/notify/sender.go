package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/smtp"
	"time"

	"github.com/google/uuid"

	"github.com/justpow98/j3d-backend/internal/config"
	"github.com/justpow98/j3d-backend/internal/db"
)

type Event string

const (
	EventPrintStarted   Event = "print_started"
	EventPrintCompleted Event = "print_completed"
	EventPrintFailed    Event = "print_failed"
	EventMaterialChange Event = "material_change"
	EventMaintenance    Event = "maintenance"
)

type Payload struct {
	Event      string      `json:"event"`
	DeliveryID string      `json:"delivery_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Data       interface{} `json:"data"`
}

type PrintEventData struct {
	JobID        int64  `json:"job_id"`
	PrinterID    int64  `json:"printer_id"`
	PrinterName  string `json:"printer_name"`
	JobName      string `json:"job_name"`
	Status       string `json:"status"`
	FailedReason string `json:"failed_reason,omitempty"`
}

// Dispatcher delivers job-transition notifications over webhook and email.
// Delivery is best-effort: failures are logged and swallowed, never
// propagated to the status update that triggered them.
type Dispatcher struct {
	httpClient *http.Client
	smtpHost   string
	smtpPort   int
	emailFrom  string
	sendMail   func(addr, from string, to []string, msg []byte) error
}

func NewDispatcher(cfg config.NotifyConfig) *Dispatcher {
	return &Dispatcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		smtpHost:  cfg.SMTPHost,
		smtpPort:  cfg.SMTPPort,
		emailFrom: cfg.EmailFrom,
		sendMail: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// enabledFor maps a lifecycle event onto the per-printer preference flags.
func enabledFor(pref *db.NotificationPreference, event Event) bool {
	switch event {
	case EventPrintStarted:
		return pref.NotifyStart
	case EventPrintCompleted:
		return pref.NotifyComplete
	case EventPrintFailed:
		return pref.NotifyFail
	case EventMaterialChange:
		return pref.NotifyMaterialChange
	case EventMaintenance:
		return pref.NotifyMaintenance
	}
	return false
}

// PrintEvent fans a job transition out to the printer's configured
// destinations. Returns nothing: there is no failure the caller can act on.
func (d *Dispatcher) PrintEvent(ctx context.Context, printer *db.Printer, pref *db.NotificationPreference, event Event, job *db.ScheduledPrint) {
	if pref == nil || !enabledFor(pref, event) {
		return
	}

	data := &PrintEventData{
		JobID:        job.ID,
		PrinterID:    printer.ID,
		PrinterName:  printer.Name,
		JobName:      job.JobName,
		Status:       job.Status,
		FailedReason: job.FailedReason,
	}

	if pref.WebhookURL != "" {
		if err := d.sendWebhook(ctx, pref.WebhookURL, event, data); err != nil {
			log.Printf("[notify] webhook delivery failed for printer %d: %v", printer.ID, err)
		}
	}

	if pref.EmailEnabled && pref.EmailAddress != "" {
		if err := d.sendEmail(pref.EmailAddress, event, data); err != nil {
			log.Printf("[notify] email delivery failed for printer %d: %v", printer.ID, err)
		}
	}
}

func (d *Dispatcher) sendWebhook(ctx context.Context, destination string, event Event, data interface{}) error {
	if err := ValidateWebhookURL(destination); err != nil {
		return err
	}

	payload := &Payload{
		Event:      string(event),
		DeliveryID: uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		Data:       data,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Notification-Event", payload.Event)
	req.Header.Set("X-Delivery-ID", payload.DeliveryID)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func (d *Dispatcher) sendEmail(to string, event Event, data *PrintEventData) error {
	if d.smtpHost == "" {
		return fmt.Errorf("smtp host not configured")
	}

	subject := fmt.Sprintf("[j3d] %s: %s", event, data.JobName)
	body := fmt.Sprintf("Printer: %s\r\nJob: %s\r\nStatus: %s\r\n", data.PrinterName, data.JobName, data.Status)
	if data.FailedReason != "" {
		body += fmt.Sprintf("Reason: %s\r\n", data.FailedReason)
	}

	msg := []byte(fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", d.emailFrom, to, subject, body))
	addr := fmt.Sprintf("%s:%d", d.smtpHost, d.smtpPort)
	return d.sendMail(addr, d.emailFrom, []string{to}, msg)
}
