package mail

import (
	"sync"
	"time"
)

type DeadLetterEmailData struct {
	TaskID      string
	PhoneNumber string
	Retries     int
	Cause       string
	Metadata    map[string]any
	FailedAt    time.Time
}

type AlertSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       string
	Retries  int

	dialer   Dialer
	inflight sync.WaitGroup
}
