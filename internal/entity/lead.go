package entity

import (
	"context"
	"time"
)

type LeadStatus string

const (
	LeadStatusPending   LeadStatus = "pending"
	LeadStatusProcessed LeadStatus = "processed"
	LeadStatusDuplicate LeadStatus = "duplicate"
	// LeadStatusFailed is part of the schema but no pipeline path assigns it.
	LeadStatusFailed LeadStatus = "failed"
)

func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusPending, LeadStatusProcessed, LeadStatusDuplicate, LeadStatusFailed:
		return true
	}
	return false
}

// Lead is the durable record of a submitted phone number. PhoneNumber is
// unique at the storage layer.
type Lead struct {
	ID          int64      `json:"id"`
	PhoneNumber string     `json:"phone_number"`
	Status      LeadStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}

type LeadRepositoryInterface interface {
	// InsertOrMarkDuplicate inserts a processed lead, or, when the phone
	// number already exists, moves it to duplicate. created reports which
	// branch ran. Both branches run in one transaction.
	InsertOrMarkDuplicate(ctx context.Context, phoneNumber string, now time.Time) (lead *Lead, created bool, err error)
	FindByPhone(ctx context.Context, phoneNumber string) (*Lead, error)
}
