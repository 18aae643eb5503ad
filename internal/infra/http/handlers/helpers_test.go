package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/leadflow/internal/entity"
)

// capturePublisher records tasks instead of sending them to the broker.
type capturePublisher struct {
	mu    sync.Mutex
	tasks []entity.Task
	err   error
}

func (p *capturePublisher) Publish(_ context.Context, task entity.Task) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.tasks = append(p.tasks, task)
	return "task-" + task.PhoneNumber, nil
}

func (p *capturePublisher) drain() []entity.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.tasks
	p.tasks = nil
	return out
}

type MockAuditRecorder struct {
	mock.Mock
}

func (m *MockAuditRecorder) Record(ctx context.Context, phoneNumber string, metadata entity.Metadata, success bool, errMsg string) {
	m.Called(ctx, phoneNumber, metadata, success, errMsg)
}

type memoryLeadRepository struct {
	mu    sync.Mutex
	leads map[string]*entity.Lead
}

func newMemoryLeadRepository() *memoryLeadRepository {
	return &memoryLeadRepository{leads: make(map[string]*entity.Lead)}
}

func (r *memoryLeadRepository) InsertOrMarkDuplicate(_ context.Context, phone string, now time.Time) (*entity.Lead, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if lead, ok := r.leads[phone]; ok {
		lead.Status = entity.LeadStatusDuplicate
		lead.UpdatedAt = now
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
		return nil, nil
	}
	cp := *lead
	return &cp, nil
}
