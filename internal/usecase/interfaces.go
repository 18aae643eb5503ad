package usecase

import (
	"context"

	"github.com/xavierca1/leadflow/internal/entity"
)

// AuditRecorder writes best-effort audit entries. Implementations must not
// block on or report backing store failures.
type AuditRecorder interface {
	Record(ctx context.Context, phoneNumber string, metadata entity.Metadata, success bool, errMsg string)
}

// TaskPublisher enqueues a task and returns its id.
type TaskPublisher interface {
	Publish(ctx context.Context, task entity.Task) (string, error)
}
