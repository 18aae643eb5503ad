package mail

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/xavierca1/leadflow/internal/entity"
)

type captureDialer struct {
	sent chan *gomail.Message
	err  error
}

func newCaptureDialer() *captureDialer {
	return &captureDialer{sent: make(chan *gomail.Message, 4)}
}

func (d *captureDialer) DialAndSend(m ...*gomail.Message) error {
	for _, msg := range m {
		d.sent <- msg
	}
	return d.err
}

func render(t *testing.T, m *gomail.Message) string {
	t.Helper()
	var sb strings.Builder
	_, err := m.WriteTo(&sb)
	require.NoError(t, err)
	return sb.String()
}

func TestSendDeadLetter(t *testing.T) {
	d := newCaptureDialer()
	s := NewAlertSender("smtp.local", 587, "bot@example.com", "secret", "", "ops@example.com", 3).WithDialer(d)

	err := s.SendDeadLetter(DeadLetterEmailData{
		TaskID:      "task-1",
		PhoneNumber: "09123456789",
		Retries:     3,
		Cause:       "storage unavailable",
		Metadata:    map[string]any{"ip": "10.0.0.1"},
		FailedAt:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	msg := <-d.sent
	assert.Equal(t, []string{"ops@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"bot@example.com"}, msg.GetHeader("From"))
	assert.Equal(t, []string{"[leadflow] lead task task-1 dead-lettered"}, msg.GetHeader("Subject"))

	body := render(t, msg)
	assert.Contains(t, body, "09123456789")
	assert.Contains(t, body, "storage unavailable")
	assert.Contains(t, body, "ip: 10.0.0.1")
}

func TestSendDeadLetterWrapsSMTPErrors(t *testing.T) {
	d := newCaptureDialer()
	d.err = errors.New("535 auth failed")
	s := NewAlertSender("smtp.local", 587, "u", "p", "alerts@example.com", "ops@example.com", 3).WithDialer(d)

	err := s.SendDeadLetter(DeadLetterEmailData{TaskID: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "535 auth failed")
}

func TestNotifyExhaustedSendsInBackground(t *testing.T) {
	d := newCaptureDialer()
	s := NewAlertSender("smtp.local", 587, "u", "p", "alerts@example.com", "ops@example.com", 3).WithDialer(d)

	s.NotifyExhausted("task-9", entity.Task{PhoneNumber: "09123456789"}, errors.New("db down"))

	select {
	case msg := <-d.sent:
		assert.Contains(t, render(t, msg), "db down")
	case <-time.After(2 * time.Second):
		t.Fatal("alert was not sent")
	}
}

// blockingDialer holds every send until release is closed.
type blockingDialer struct {
	release chan struct{}
	sent    chan struct{}
}

func (d *blockingDialer) DialAndSend(m ...*gomail.Message) error {
	<-d.release
	close(d.sent)
	return nil
}

func TestWaitBlocksUntilAlertsFinish(t *testing.T) {
	d := &blockingDialer{release: make(chan struct{}), sent: make(chan struct{})}
	s := NewAlertSender("smtp.local", 587, "u", "p", "alerts@example.com", "ops@example.com", 3).WithDialer(d)

	s.NotifyExhausted("task-1", entity.Task{PhoneNumber: "09123456789"}, errors.New("db down"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)

	close(d.release)
	require.NoError(t, s.Wait(context.Background()))
	select {
	case <-d.sent:
	default:
		t.Fatal("Wait returned before the alert was sent")
	}
}

func TestDisabledSenderIsNoop(t *testing.T) {
	s := NewAlertSender("", 587, "", "", "", "ops@example.com", 3)
	assert.False(t, s.Enabled())

	assert.NoError(t, s.SendDeadLetter(DeadLetterEmailData{TaskID: "t"}))
	s.NotifyExhausted("t", entity.Task{}, nil)
	assert.NoError(t, s.Wait(context.Background()))
}
