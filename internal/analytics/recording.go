package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vtftk/app/internal/domain"
)

// ExecutionStore is the dispatcher write surface the recorder wraps.
type ExecutionStore interface {
	CreateExecution(ctx context.Context, exec domain.Execution) error
	InsertChatMessage(ctx context.Context, messageID, userID, message string, createdAt time.Time) error
}

// FireRecorder receives one notification per persisted execution.
type FireRecorder interface {
	RecordFire(ctx context.Context, exec domain.Execution) error
}

// RecordingStore decorates an ExecutionStore, bumping fire counters
// alongside each execution write. Counter failures are logged only.
type RecordingStore struct {
	ExecutionStore
	recorder FireRecorder
	log      *zap.SugaredLogger
}

func NewRecordingStore(store ExecutionStore, recorder FireRecorder, log *zap.SugaredLogger) *RecordingStore {
	return &RecordingStore{ExecutionStore: store, recorder: recorder, log: log}
}

func (r *RecordingStore) CreateExecution(ctx context.Context, exec domain.Execution) error {
	if err := r.ExecutionStore.CreateExecution(ctx, exec); err != nil {
		return err
	}
	if err := r.recorder.RecordFire(ctx, exec); err != nil {
		r.log.Warnw("analytics: record fire failed",
			"automation_id", exec.AutomationID, "error", err)
	}
	return nil
}
