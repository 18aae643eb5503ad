package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/leadflow/internal/entity"
)

type ProcessLeadUseCase struct {
	Repo   entity.LeadRepositoryInterface
	Audit  AuditRecorder
	Policy RetryPolicy
	Logger *zap.Logger
	Now    func() time.Time
}

func NewProcessLeadUseCase(repo entity.LeadRepositoryInterface, audit AuditRecorder, policy RetryPolicy, logger *zap.Logger) *ProcessLeadUseCase {
	return &ProcessLeadUseCase{
		Repo:   repo,
		Audit:  audit,
		Policy: policy,
		Logger: logger,
		Now:    time.Now,
	}
}

// Execute processes one task. retries is how many times this task has
// already been requeued; it only feeds the Transient backoff.
func (uc *ProcessLeadUseCase) Execute(ctx context.Context, task entity.Task, retries int) Outcome {
	phone := task.PhoneNumber
	log := uc.Logger.With(zap.String("phone_number", phone), zap.Int("retries", retries))

	// Queued tasks can outlive a rule change, so validate again.
	if _, err := ValidatePhoneNumber(phone); err != nil {
		log.Info("validation failed", zap.Error(err))
		uc.Audit.Record(ctx, phone, task.Metadata.With("reason", "validation_error"), false, err.Error())
		return Invalid{PhoneNumber: phone, Message: err.Error()}
	}

	lead, created, err := uc.Repo.InsertOrMarkDuplicate(ctx, phone, uc.Now().UTC())
	if err != nil {
		terr := &TechnicalError{Code: ErrCodeStorage, Message: "lead upsert failed", Err: err}
		delay := uc.Policy.Backoff(retries)
		log.Error("lead processing failed", zap.Error(terr), zap.Duration("retry_after", delay))
		uc.Audit.Record(ctx, phone, task.Metadata, false, terr.Error())
		return Transient{PhoneNumber: phone, Err: terr, RetryAfter: delay}
	}

	uc.Audit.Record(ctx, phone, task.Metadata.With("created", created), true, "")
	log.Debug("lead processed", zap.Bool("created", created), zap.String("status", string(lead.Status)))

	return Success{PhoneNumber: phone, Created: created, Status: lead.Status}
}
