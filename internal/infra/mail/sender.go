// Package mail sends operator alerts over SMTP.
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"text/template"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/xavierca1/leadflow/internal/entity"
)

//go:embed templates/dead_letter.txt
var templatesFS embed.FS

var deadLetterTmpl = template.Must(template.ParseFS(templatesFS, "templates/dead_letter.txt"))

// Dialer is satisfied by *gomail.Dialer.
type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

func NewAlertSender(host string, port int, user, password, from, to string, retries int) *AlertSender {
	s := &AlertSender{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		From:     from,
		To:       to,
		Retries:  retries,
	}
	if host != "" {
		s.dialer = gomail.NewDialer(host, port, user, password)
	}
	return s
}

// WithDialer replaces the SMTP dialer.
func (s *AlertSender) WithDialer(d Dialer) *AlertSender {
	s.dialer = d
	return s
}

func (s *AlertSender) Enabled() bool {
	return s.dialer != nil && s.To != ""
}

// SendDeadLetter renders and sends one dead-letter alert.
func (s *AlertSender) SendDeadLetter(data DeadLetterEmailData) error {
	if !s.Enabled() {
		return nil
	}

	var body bytes.Buffer
	if err := deadLetterTmpl.Execute(&body, data); err != nil {
		return fmt.Errorf("error rendering alert template: %w", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from())
	m.SetHeader("To", s.To)
	m.SetHeader("Subject", fmt.Sprintf("[leadflow] lead task %s dead-lettered", data.TaskID))
	m.SetBody("text/plain", body.String())

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("error sending alert over SMTP: %w", err)
	}
	return nil
}

// NotifyExhausted sends the alert in the background; SMTP latency or
// failure never delays the dead-lettering of the message. Wait blocks
// until pending alerts are out.
func (s *AlertSender) NotifyExhausted(taskID string, task entity.Task, cause error) {
	if !s.Enabled() {
		return
	}

	data := DeadLetterEmailData{
		TaskID:      taskID,
		PhoneNumber: task.PhoneNumber,
		Retries:     s.Retries,
		Metadata:    task.Metadata,
		FailedAt:    time.Now().UTC(),
	}
	if cause != nil {
		data.Cause = cause.Error()
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if err := s.SendDeadLetter(data); err != nil {
			zap.L().Warn("dead-letter alert failed", zap.String("task_id", taskID), zap.Error(err))
		}
	}()
}

// Wait returns once every alert started by NotifyExhausted has finished,
// or with ctx's error if that comes first.
func (s *AlertSender) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AlertSender) from() string {
	if s.From != "" {
		return s.From
	}
	return s.User
}
