package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/leadflow/internal/entity"
)

// SubmitLeadUseCase validates a phone number and enqueues it. It does not
// wait for the worker.
type SubmitLeadUseCase struct {
	Queue  TaskPublisher
	Logger *zap.Logger
}

func NewSubmitLeadUseCase(queue TaskPublisher, logger *zap.Logger) *SubmitLeadUseCase {
	return &SubmitLeadUseCase{Queue: queue, Logger: logger}
}

// Execute returns a DomainError for invalid input and never enqueues it.
// Enqueue failures are not errors: the output carries a nil TaskID instead.
func (uc *SubmitLeadUseCase) Execute(ctx context.Context, input SubmitLeadInput) (*SubmitLeadOutput, error) {
	phone, err := ValidatePhoneNumber(strings.TrimSpace(input.Phone))
	if err != nil {
		return nil, err
	}

	out := &SubmitLeadOutput{Success: true, Message: SubmitLeadMessage}

	taskID, err := uc.Queue.Publish(ctx, entity.Task{PhoneNumber: phone, Metadata: input.Metadata})
	if err != nil {
		uc.Logger.Warn("failed to enqueue lead task", zap.String("phone_number", phone), zap.Error(err))
		return out, nil
	}

	out.TaskID = &taskID
	return out, nil
}
