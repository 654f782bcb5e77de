package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"chapel/internal/assetlog"
	"chapel/internal/platform/metrics"
	"chapel/internal/provenance"
	"chapel/pkg/callerctx"
)

// AssetField is one uploadable attribute on an entity, as it stands right
// now. Empty Location means the field holds no file.
type AssetField struct {
	Name      string
	Location  string
	SizeBytes int64
}

// Entity is what the observer needs to know about a content row. Concrete
// entity types live in internal/content; the observer never imports them.
type Entity interface {
	// EntityKind is the logical type name recorded in the ledgers.
	EntityKind() string
	// EntityID is the numeric row identifier.
	EntityID() int64
	// Display is the human-readable snapshot stored as the event summary.
	Display() string
	// Attributes are the plain fields, rendered to strings for delta
	// computation.
	Attributes() map[string]string
	// Assets are the uploadable fields and their current values.
	Assets() []AssetField
}

// Config carries the observer's failure policy. Provenance and asset writes
// normally degrade to the operational log so a ledger outage cannot block
// content mutations; EscalateEventFailures flips that tradeoff toward audit
// completeness. The pre-delete purge always escalates regardless: a failed
// purge would strand asset rows forever.
type Config struct {
	EscalateEventFailures bool
}

// Observer reacts to entity lifecycle transitions and authentication
// outcomes. It is the only writer of the provenance and asset ledgers on
// those paths, and it is synchronous: every method runs inside the caller's
// transaction when one is active.
type Observer struct {
	events   provenance.Store
	assets   assetlog.Store
	registry Registry
	logger   *slog.Logger
	metrics  *metrics.Metrics
	cfg      Config
	tracer   trace.Tracer
}

func NewObserver(
	events provenance.Store,
	assets assetlog.Store,
	registry Registry,
	logger *slog.Logger,
	m *metrics.Metrics,
	cfg Config,
) *Observer {
	return &Observer{
		events:   events,
		assets:   assets,
		registry: registry,
		logger:   logger,
		metrics:  m,
		cfg:      cfg,
		tracer:   otel.Tracer("chapel/audit"),
	}
}

// EntityCreated records a CREATE event and, for tracked kinds, asset records
// for every populated upload field. The caller has already persisted the
// entity; this runs in the same transaction.
func (o *Observer) EntityCreated(ctx context.Context, e Entity) error {
	ctx, span := o.tracer.Start(ctx, "audit.EntityCreated")
	defer span.End()

	err := o.appendEntityEvent(ctx, provenance.KindCreate, e, nil)

	for _, field := range e.Assets() {
		o.upsertAsset(ctx, e, field, true)
	}
	return err
}

// EntityUpdated records an UPDATE event carrying the field-level delta
// between prev and curr, and reconciles asset records. Uploader attribution
// only moves to the current actor for fields whose file actually changed in
// this save.
func (o *Observer) EntityUpdated(ctx context.Context, prev, curr Entity) error {
	ctx, span := o.tracer.Start(ctx, "audit.EntityUpdated")
	defer span.End()

	err := o.appendEntityEvent(ctx, provenance.KindUpdate, curr, diffAttributes(prev, curr))

	prevAssets := make(map[string]AssetField, len(prev.Assets()))
	for _, field := range prev.Assets() {
		prevAssets[field.Name] = field
	}
	for _, field := range curr.Assets() {
		changed := prevAssets[field.Name].Location != field.Location
		o.upsertAsset(ctx, curr, field, changed)
	}
	return err
}

// EntityDeleted must be called before the entity row is removed and inside
// the same transaction: it purges every asset record for the entity while
// the identifier is still known, then records the DELETE event with the
// entity's last summary. A purge failure is returned (never swallowed) so
// the surrounding delete fails with it instead of stranding orphans.
func (o *Observer) EntityDeleted(ctx context.Context, e Entity) error {
	ctx, span := o.tracer.Start(ctx, "audit.EntityDeleted")
	defer span.End()

	ref := assetlog.EntityRef{Kind: e.EntityKind(), ID: e.EntityID()}
	purged, err := o.assets.DeleteAllFor(ctx, ref)
	if err != nil {
		o.metrics.LedgerWriteFailures.WithLabelValues("asset").Inc()
		return fmt.Errorf("purge asset records for %s: %w", ref, err)
	}
	if purged > 0 {
		o.metrics.AssetRecordsPurged.Add(float64(purged))
	}

	return o.appendEntityEvent(ctx, provenance.KindDelete, e, nil)
}

// Login records a successful sign-in. Authentication happens before the
// request's caller context is fully populated, so identity and origin arrive
// as direct parameters rather than through the carrier.
func (o *Observer) Login(ctx context.Context, actor, sourceAddress, agentString string) {
	o.appendAuthEvent(ctx, provenance.KindLogin, actor, sourceAddress, agentString,
		"Login: "+actor)
}

// Logout records a sign-out.
func (o *Observer) Logout(ctx context.Context, actor, sourceAddress, agentString string) {
	o.appendAuthEvent(ctx, provenance.KindLogout, actor, sourceAddress, agentString,
		"Logout: "+actor)
}

// AccessDenied records an authorization failure. No entity fields are
// populated and no entity-level change has been applied.
func (o *Observer) AccessDenied(ctx context.Context, actor, sourceAddress, agentString, detail string) {
	o.appendAuthEvent(ctx, provenance.KindAccessDenied, actor, sourceAddress, agentString, detail)
}

func (o *Observer) appendEntityEvent(ctx context.Context, kind provenance.Kind, e Entity, delta provenance.Changes) error {
	caller, _ := callerctx.Current(ctx) // absent caller is a valid state

	event := provenance.Event{
		Actor:         caller.Actor,
		Kind:          kind,
		EntityKind:    e.EntityKind(),
		EntityID:      e.EntityID(),
		Summary:       e.Display(),
		Delta:         delta,
		SourceAddress: caller.SourceAddress,
		AgentString:   caller.AgentString,
		OccurredAt:    time.Now(),
	}

	if err := o.events.Append(ctx, event); err != nil {
		return o.reportEventFailure(ctx, event, err)
	}
	o.metrics.EventsAppended.WithLabelValues(string(kind)).Inc()
	return nil
}

func (o *Observer) appendAuthEvent(ctx context.Context, kind provenance.Kind, actor, sourceAddress, agentString, summary string) {
	event := provenance.Event{
		Actor:         actor,
		Kind:          kind,
		Summary:       summary,
		SourceAddress: sourceAddress,
		AgentString:   agentString,
		OccurredAt:    time.Now(),
	}
	if err := o.events.Append(ctx, event); err != nil {
		// Auth events never block the auth flow itself.
		o.logLedgerFailure(ctx, event, err)
		return
	}
	o.metrics.EventsAppended.WithLabelValues(string(kind)).Inc()
}

// upsertAsset writes the asset record for one populated field of a tracked
// entity. Failures degrade to the operational log: a broken asset ledger
// must not block the upload that triggered it.
func (o *Observer) upsertAsset(ctx context.Context, e Entity, field AssetField, changed bool) {
	if field.Location == "" {
		return
	}
	if !o.registry.AssetTracked(e.EntityKind()) {
		return
	}

	caller, _ := callerctx.Current(ctx)
	record := assetlog.Record{
		Entity:     assetlog.EntityRef{Kind: e.EntityKind(), ID: e.EntityID()},
		FieldName:  field.Name,
		Location:   field.Location,
		SizeBytes:  field.SizeBytes,
		UploadedBy: caller.Actor,
		RecordedAt: time.Now(),
	}

	if err := o.assets.Upsert(ctx, record, changed); err != nil {
		o.metrics.LedgerWriteFailures.WithLabelValues("asset").Inc()
		o.logger.ErrorContext(ctx, "asset record write failed",
			"entity", record.Entity.String(),
			"field", field.Name,
			"error", err,
		)
	}
}

// reportEventFailure applies the configured policy for a failed provenance
// write: swallow after logging (default, availability over audit
// completeness) or escalate to the caller.
func (o *Observer) reportEventFailure(ctx context.Context, event provenance.Event, err error) error {
	o.logLedgerFailure(ctx, event, err)
	if o.cfg.EscalateEventFailures {
		return fmt.Errorf("append provenance event: %w", err)
	}
	return nil
}

func (o *Observer) logLedgerFailure(ctx context.Context, event provenance.Event, err error) {
	o.metrics.LedgerWriteFailures.WithLabelValues("provenance").Inc()
	o.logger.ErrorContext(ctx, "provenance event write failed",
		"kind", string(event.Kind),
		"entity_kind", event.EntityKind,
		"entity_id", event.EntityID,
		"error", err,
	)
}

// diffAttributes builds the structured delta between two versions of an
// entity. Fields present in only one version diff against the empty string.
func diffAttributes(prev, curr Entity) provenance.Changes {
	changes := provenance.Changes{}
	prevAttrs := prev.Attributes()
	currAttrs := curr.Attributes()

	for name, oldVal := range prevAttrs {
		if newVal, ok := currAttrs[name]; !ok || newVal != oldVal {
			changes[name] = provenance.Change{Old: oldVal, New: currAttrs[name]}
		}
	}
	for name, newVal := range currAttrs {
		if _, ok := prevAttrs[name]; !ok {
			changes[name] = provenance.Change{Old: "", New: newVal}
		}
	}

	if len(changes) == 0 {
		return nil
	}
	return changes
}
