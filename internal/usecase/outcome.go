package usecase

import (
	"time"

	"github.com/xavierca1/leadflow/internal/entity"
)

// Outcome is the result of processing one task: Success, Invalid or
// Transient. The queue layer acks the first two and requeues Transient
// after RetryAfter.
type Outcome interface {
	outcome()
}

type Success struct {
	PhoneNumber string
	Created     bool
	Status      entity.LeadStatus
}

// Invalid is a permanent failure; the task must not be retried.
type Invalid struct {
	PhoneNumber string
	Message     string
}

type Transient struct {
	PhoneNumber string
	Err         error
	RetryAfter  time.Duration
}

func (Success) outcome()   {}
func (Invalid) outcome()   {}
func (Transient) outcome() {}
