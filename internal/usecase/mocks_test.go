package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/leadflow/internal/entity"
)

type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) Record(ctx context.Context, phoneNumber string, metadata entity.Metadata, success bool, errMsg string) {
	m.Called(ctx, phoneNumber, metadata, success, errMsg)
}

type MockTaskPublisher struct {
	mock.Mock
}

func (m *MockTaskPublisher) Publish(ctx context.Context, task entity.Task) (string, error) {
	args := m.Called(ctx, task)
	return args.String(0), args.Error(1)
}

// memoryLeadRepository mirrors the unique-constraint arbitration of the
// Postgres repository: a single lock plays the role of the unique index.
type memoryLeadRepository struct {
	mu    sync.Mutex
	leads map[string]*entity.Lead
	err   error
}

func newMemoryLeadRepository() *memoryLeadRepository {
	return &memoryLeadRepository{leads: make(map[string]*entity.Lead)}
}

func (r *memoryLeadRepository) InsertOrMarkDuplicate(_ context.Context, phone string, now time.Time) (*entity.Lead, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return nil, false, r.err
	}

	if lead, ok := r.leads[phone]; ok {
		if lead.Status != entity.LeadStatusDuplicate {
			lead.Status = entity.LeadStatusDuplicate
			lead.UpdatedAt = now
		}
		cp := *lead
		return &cp, false, nil
	}

	processedAt := now
	lead := &entity.Lead{
		ID:          int64(len(r.leads) + 1),
		PhoneNumber: phone,
		Status:      entity.LeadStatusProcessed,
		CreatedAt:   now,
		UpdatedAt:   now,
		ProcessedAt: &processedAt,
	}
	r.leads[phone] = lead
	cp := *lead
	return &cp, true, nil
}

func (r *memoryLeadRepository) FindByPhone(_ context.Context, phone string) (*entity.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[phone]
	if !ok {
		return nil, errors.New("lead not found")
	}
	cp := *lead
	return &cp, nil
}

// nopAudit drops every entry.
type nopAudit struct{}

func (nopAudit) Record(context.Context, string, entity.Metadata, bool, string) {}
