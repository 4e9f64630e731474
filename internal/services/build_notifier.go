package services

import (
	"context"
	"time"

	types "github.com/yungbote/spackmon-backend/internal/domain"
	"github.com/yungbote/spackmon-backend/internal/platform/logger"
)

// BuildPublisher is the transport a BuildNotifier forwards to (redis pub/sub in production).
type BuildPublisher interface {
	PublishBuildStatus(ctx context.Context, ev types.BuildStatusEvent) error
}

type BuildNotifier interface {
	StatusChanged(ctx context.Context, ev types.BuildStatusEvent)
}

type buildNotifier struct {
	log *logger.Logger
	pub BuildPublisher
}

// NewBuildNotifier never fails a write: publish errors are logged and dropped. A nil
// publisher only logs.
func NewBuildNotifier(baseLog *logger.Logger, pub BuildPublisher) BuildNotifier {
	return &buildNotifier{log: baseLog.With("service", "BuildNotifier"), pub: pub}
}

func (n *buildNotifier) StatusChanged(ctx context.Context, ev types.BuildStatusEvent) {
	if n == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	if n.pub == nil {
		n.log.Debug("build status changed",
			"build_id", ev.BuildID,
			"old_status", ev.OldStatus,
			"new_status", ev.NewStatus,
			"cascaded", ev.Cascaded,
		)
		return
	}
	if err := n.pub.PublishBuildStatus(ctx, ev); err != nil {
		n.log.Warn("publish build status failed", "build_id", ev.BuildID, "error", err)
	}
}
