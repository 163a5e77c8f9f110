package retention

import (
	"context"
	"errors"
	"strings"
	"time"

	"mercator-hq/ledger/pkg/records"
)

// AuditSweeper is the audit event sweeper with targeted deletes for
// cascading removals.
type AuditSweeper struct {
	*Sweeper[records.AuditEvent]
}

// NewAuditSweeper creates a sweeper for audit events.
func NewAuditSweeper(store records.Store[records.AuditEvent], policy PolicyFunc, opts Options) *AuditSweeper {
	return &AuditSweeper{
		Sweeper: NewSweeper(records.AuditEventKind, store, records.AuditTimestamp, policy, opts),
	}
}

// SweepForEntity deletes every audit event about one entity, regardless of age.
func (a *AuditSweeper) SweepForEntity(ctx context.Context, entityKind, entityID string) (int64, error) {
	if strings.TrimSpace(entityKind) == "" || strings.TrimSpace(entityID) == "" {
		return 0, records.NewRetentionError(records.AuditEventKind.Name(), 0, errors.New("entity kind and id are required"))
	}
	f := records.AuditCriteria{EntityKind: &entityKind, EntityID: &entityID}.Compile(time.UTC)
	return a.DeleteMatching(ctx, f, TriggerEntity)
}

// SweepForActor deletes every audit event recorded for actor, regardless of age.
func (a *AuditSweeper) SweepForActor(ctx context.Context, actor string) (int64, error) {
	if strings.TrimSpace(actor) == "" {
		return 0, records.NewRetentionError(records.AuditEventKind.Name(), 0, errors.New("actor is required"))
	}
	f := records.AuditCriteria{Actor: &actor}.Compile(time.UTC)
	return a.DeleteMatching(ctx, f, TriggerActor)
}
