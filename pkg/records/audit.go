package records

import (
	"time"

	"mercator-hq/ledger/pkg/filter"
)

// AuditEvent records one operation performed by an actor on an entity.
type AuditEvent struct {
	ID         string    `json:"id"`
	Actor      string    `json:"actor"`
	Operation  string    `json:"operation"`
	EntityKind string    `json:"entity_kind"`
	EntityID   string    `json:"entity_id"`
	Success    bool      `json:"success"`
	Details    string    `json:"details,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Operations.
const (
	OperationCreate = "CREATE"
	OperationUpdate = "UPDATE"
	OperationDelete = "DELETE"
	OperationLogin  = "LOGIN"
	OperationLogout = "LOGOUT"
	OperationExport = "EXPORT"
)

// Status labels used by AuditByStatus.
const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// Audit event fields.
var (
	AuditID         = filter.NewField("id", "id", func(e *AuditEvent) string { return e.ID })
	AuditActor      = filter.NewField("actor", "actor", func(e *AuditEvent) string { return e.Actor })
	AuditOperation  = filter.NewField("operation", "operation", func(e *AuditEvent) string { return e.Operation })
	AuditEntityKind = filter.NewField("entity_kind", "entity_kind", func(e *AuditEvent) string { return e.EntityKind })
	AuditEntityID   = filter.NewField("entity_id", "entity_id", func(e *AuditEvent) string { return e.EntityID })
	AuditSuccess    = filter.NewField("success", "success", func(e *AuditEvent) bool { return e.Success })
	AuditDetails    = filter.NewTextField("details", "details", func(e *AuditEvent) string { return e.Details })
	AuditTimestamp  = filter.NewDateField("timestamp", "timestamp", func(e *AuditEvent) time.Time { return e.Timestamp })
)

// AuditEventKind describes audit events. Listings default to newest first.
var AuditEventKind = NewKind("audit_events", AuditID,
	func(e *AuditEvent, id string) { e.ID = id },
	[]filter.Order[AuditEvent]{AuditTimestamp.Desc()},
	AuditID.Ref(), AuditActor.Ref(), AuditOperation.Ref(), AuditEntityKind.Ref(),
	AuditEntityID.Ref(), AuditSuccess.Ref(), AuditDetails.Ref(), AuditTimestamp.Ref(),
)

// Dashboard dimensions over audit events.
var (
	AuditByDay = Dimension[AuditEvent]{
		Name:      "day",
		Field:     AuditTimestamp.Ref(),
		Bucketing: BucketDay,
	}
	AuditByOperation = Dimension[AuditEvent]{
		Name:      "operation",
		Field:     AuditOperation.Ref(),
		Bucketing: BucketValue,
	}
	AuditByActor = Dimension[AuditEvent]{
		Name:      "actor",
		Field:     AuditActor.Ref(),
		Bucketing: BucketValue,
	}
	AuditByStatus = Dimension[AuditEvent]{
		Name:       "status",
		Field:      AuditSuccess.Ref(),
		Bucketing:  BucketFlag,
		TrueLabel:  StatusSuccess,
		FalseLabel: StatusFailure,
	}
)

// AuditCriteria is the sparse filter for audit event listings.
type AuditCriteria struct {
	Actor      *string    `json:"actor,omitempty"`
	Operations []string   `json:"operations,omitempty"`
	EntityKind *string    `json:"entity_kind,omitempty"`
	EntityID   *string    `json:"entity_id,omitempty"`
	Success    *bool      `json:"success,omitempty"`
	Details    *string    `json:"details,omitempty"`
	From       *time.Time `json:"from,omitempty"`
	Until      *time.Time `json:"until,omitempty"`
}

// Compile maps the criteria to a composite; date bounds widen in loc.
func (c AuditCriteria) Compile(loc *time.Location) filter.Composite[AuditEvent] {
	return filter.NewCompiler[AuditEvent](loc).
		Add(AuditActor.Equals(c.Actor)).
		Add(AuditOperation.In(c.Operations)).
		Add(AuditEntityKind.Equals(c.EntityKind)).
		Add(AuditEntityID.Equals(c.EntityID)).
		Add(AuditSuccess.Equals(c.Success)).
		Add(AuditDetails.Contains(c.Details)).
		Add(AuditTimestamp.Between(c.From, c.Until)).
		Build()
}
