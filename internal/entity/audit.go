package entity

import "time"

// AuditEntry is one write-only record in the request_logs collection.
type AuditEntry struct {
	PhoneNumber string    `bson:"phone_number" json:"phone_number"`
	Success     bool      `bson:"success" json:"success"`
	Error       *string   `bson:"error" json:"error"`
	Timestamp   time.Time `bson:"timestamp" json:"timestamp"`
	Metadata    Metadata  `bson:"metadata" json:"metadata"`
}
