package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/salespilot/internal/entity"
	"github.com/xavierca1/salespilot/internal/infra/metrics"
)

const (
	DefaultRejectBelow  int64 = 3000
	DefaultQualifyAbove int64 = 50000
)

// TriageRules holds the budget thresholds. Budgets strictly below RejectBelow
// are rejected, budgets strictly above QualifyAbove are qualified.
type TriageRules struct {
	RejectBelow  int64
	QualifyAbove int64
}

func DefaultTriageRules() TriageRules {
	return TriageRules{RejectBelow: DefaultRejectBelow, QualifyAbove: DefaultQualifyAbove}
}

func (r TriageRules) Decide(budget int64) entity.Status {
	switch {
	case budget < r.RejectBelow:
		return entity.StatusRejected
	case budget > r.QualifyAbove:
		return entity.StatusQualified
	default:
		return entity.StatusNew
	}
}

// drivesStatus reports whether triage may move a lead in status s.
// Leads past qualification keep their pipeline position on resubmission.
func drivesStatus(s entity.Status) bool {
	return s == "" || s == entity.StatusNew || s == entity.StatusQualified
}

// applyStatus sets a non-triage status and logs it on the timeline.
func applyStatus(lead *entity.Lead, status entity.Status, event string, now time.Time) {
	lead.Status = status
	lead.AppendEvent(event, now)
	metrics.RecordStatusChange(string(status))
}

func dispatch(ctx context.Context, log *zap.Logger, notifier Notifier, n *entity.Notification) {
	if n == nil || notifier == nil {
		return
	}
	if err := notifier.Notify(ctx, *n); err != nil {
		metrics.RecordNotification(string(n.Kind), "enqueue_failed")
		log.Warn("notification not queued",
			zap.String("kind", string(n.Kind)),
			zap.String("lead_id", n.LeadID),
			zap.Error(err))
		return
	}
	if n.Kind == entity.NotifyAcknowledgement {
		log.Info("acknowledgement sent", zap.String("lead_id", n.LeadID), zap.String("to", n.To))
	}
}

func orNop(log *zap.Logger) *zap.Logger {
	if log == nil {
		return zap.NewNop()
	}
	return log
}
