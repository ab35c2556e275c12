package procureflow

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/viant/procureflow/metrics"
	"github.com/viant/procureflow/model"
	"github.com/viant/procureflow/policy"
	"github.com/viant/procureflow/service/approval"
	"github.com/viant/procureflow/service/bulk"
	"github.com/viant/procureflow/service/dao/record"
	"github.com/viant/procureflow/service/dao/record/fs"
	"github.com/viant/procureflow/service/dao/record/memory"
	"github.com/viant/procureflow/service/dao/record/pg"
	"github.com/viant/procureflow/service/event"
	"github.com/viant/procureflow/service/fanout"
	"github.com/viant/procureflow/service/group"
	"github.com/viant/procureflow/service/logistics"
	mmemory "github.com/viant/procureflow/service/messaging/memory"
	"github.com/viant/procureflow/service/registry"
	"github.com/viant/procureflow/service/transition"
	"github.com/viant/procureflow/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// Service is the façade exposed to the surrounding application.
type Service struct {
	config     *Config
	logger     *zap.Logger
	registry   *registry.Service
	records    record.Service
	events     *event.Service
	metrics    *metrics.Metrics
	registerer prometheus.Registerer
	exporter   sdktrace.SpanExporter
	creator    fanout.ArtifactCreator
	provider   logistics.Provider

	engine   *transition.Service
	approval *approval.Service
	groups   *group.Service
	bulk     *bulk.Service
	fanout   *fanout.Service
	listener *event.Listener[transition.Event]
	pool     *pgxpool.Pool
}

// ResolveActiveDefinition returns the active definition for tenantID and recordType.
func (s *Service) ResolveActiveDefinition(ctx context.Context, tenantID string, recordType model.RecordType) (*model.Definition, error) {
	return s.registry.ResolveActive(ctx, tenantID, recordType)
}

// SaveDefinition validates and stores a new definition version.
func (s *Service) SaveDefinition(ctx context.Context, definition *model.Definition) (*model.Definition, error) {
	return s.registry.Save(ctx, definition)
}

// LoadDefinition reads a YAML definition from URL and saves it.
func (s *Service) LoadDefinition(ctx context.Context, URL string) (*model.Definition, error) {
	definition, err := s.registry.Load(ctx, URL)
	if err != nil {
		return nil, err
	}
	return s.registry.Save(ctx, definition)
}

// ResolvePolicy returns the effective rejection policy of stageKey in the
// active definition.
func (s *Service) ResolvePolicy(ctx context.Context, tenantID string, recordType model.RecordType, stageKey string) (*model.RejectionPolicy, error) {
	definition, err := s.registry.ResolveActive(ctx, tenantID, recordType)
	if err != nil {
		return nil, err
	}
	return policy.Resolve(definition, stageKey)
}

// Submit creates a record at the initial stage of the active definition.
func (s *Service) Submit(ctx context.Context, request *transition.SubmitRequest) (*model.Record, error) {
	result, err := s.engine.Submit(ctx, request)
	if err != nil {
		return nil, err
	}
	return result.Record, nil
}

// Record returns a stored record.
func (s *Service) Record(ctx context.Context, id string) (*model.Record, error) {
	return s.engine.Load(ctx, id)
}

// Approve approves recordID at its current stage.
func (s *Service) Approve(ctx context.Context, recordID string, actor model.Actor) (*transition.Result, error) {
	return s.engine.Approve(ctx, &transition.Request{RecordID: recordID, Actor: actor})
}

// Reject rejects recordID at its current stage.
func (s *Service) Reject(ctx context.Context, recordID string, actor model.Actor, reasonCode, remarks string) (*transition.Result, error) {
	return s.engine.Reject(ctx, &transition.Request{RecordID: recordID, Actor: actor, ReasonCode: reasonCode, Remarks: remarks})
}

// Resubmit re-enters a rejected record.
func (s *Service) Resubmit(ctx context.Context, recordID string, actor model.Actor) (*transition.Result, error) {
	return s.engine.Resubmit(ctx, &transition.Request{RecordID: recordID, Actor: actor})
}

// Pending returns the records of tenantID awaiting a decision actor may make.
func (s *Service) Pending(ctx context.Context, tenantID string, actor model.Actor) ([]*approval.Item, error) {
	return s.approval.Pending(ctx, tenantID, actor)
}

// Decide records an approver's decision.
func (s *Service) Decide(ctx context.Context, decision *approval.Decision) (*transition.Result, error) {
	return s.approval.Decide(ctx, decision)
}

// Approvals returns the approver worklist service.
func (s *Service) Approvals() *approval.Service {
	return s.approval
}

// BulkApprove approves every record independently.
func (s *Service) BulkApprove(ctx context.Context, recordIDs []string, actor model.Actor) *bulk.Outcome {
	return s.bulk.Approve(ctx, recordIDs, actor)
}

// BulkReject rejects every record independently.
func (s *Service) BulkReject(ctx context.Context, recordIDs []string, actor model.Actor, reasonCode, remarks string) *bulk.Outcome {
	return s.bulk.Reject(ctx, recordIDs, actor, reasonCode, remarks)
}

// ExpandGroup returns every record sharing the group of anyMemberID.
func (s *Service) ExpandGroup(ctx context.Context, anyMemberID string) ([]string, error) {
	return s.groups.Expand(ctx, anyMemberID)
}

// ApproveGroup expands anyMemberID and approves every member.
func (s *Service) ApproveGroup(ctx context.Context, anyMemberID string, actor model.Actor) (*bulk.Outcome, error) {
	return s.bulk.ApproveGroup(ctx, anyMemberID, actor)
}

// CreateLinkedArtifact creates one artifact per fulfillment partner and
// links the approved records to it.
func (s *Service) CreateLinkedArtifact(ctx context.Context, recordIDs []string, externalRefNumber string, externalRefDate time.Time, tenantID string, actor model.Actor) (*fanout.Outcome, error) {
	return s.fanout.CreateLinkedArtifacts(ctx, &fanout.Request{
		TenantID:          tenantID,
		RecordIDs:         recordIDs,
		ExternalRefNumber: externalRefNumber,
		ExternalRefDate:   externalRefDate,
		Actor:             actor,
	})
}

// UpdateFulfillment advances post-approval status of recordID.
func (s *Service) UpdateFulfillment(ctx context.Context, recordID string, actor model.Actor, status model.Status) (*transition.Result, error) {
	return s.engine.UpdateFulfillment(ctx, &transition.FulfillmentRequest{RecordID: recordID, Actor: actor, Status: status})
}

// Transitions returns the transition engine for requests with preconditions.
func (s *Service) Transitions() *transition.Service {
	return s.engine
}

// Events returns the event service carrying transition and notification events.
func (s *Service) Events() *event.Service {
	return s.events
}

// Close stops background listeners and releases the store.
func (s *Service) Close() {
	if s.listener != nil {
		s.listener.Stop()
	}
	s.events.Close()
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Service) init(ctx context.Context) error {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if err := s.initTracing(); err != nil {
		return err
	}
	if s.registerer != nil {
		s.metrics = metrics.New(&metrics.Config{Registry: s.registerer})
	}
	if s.registry == nil {
		s.registry = registry.New(registry.WithLogger(s.logger))
	}
	if err := s.initRecords(ctx); err != nil {
		return err
	}
	engineConfig := s.config.Engine
	s.events = event.New(
		event.WithLogger(s.logger),
		event.WithQueueConfig(func(string) mmemory.Config {
			return mmemory.Config{
				MaxRetries:  engineConfig.MaxRetries,
				RetryDelay:  engineConfig.RetryDelay,
				DeadLetter:  true,
				QueueBuffer: engineConfig.EventBuffer,
			}
		}))
	s.engine = transition.New(s.registry, s.records,
		transition.WithEvents(s.events),
		transition.WithMetrics(s.metrics),
		transition.WithLogger(s.logger))
	s.approval = approval.New(s.registry, s.records, s.engine)
	s.groups = group.New(s.records)
	s.bulk = bulk.New(s.engine, s.groups,
		bulk.WithWorkers(s.config.Bulk.Workers),
		bulk.WithMetrics(s.metrics),
		bulk.WithLogger(s.logger))
	fanoutOptions := []fanout.Option{
		fanout.WithTenants(s.config.FanOut.Tenants...),
		fanout.WithWorkers(s.config.FanOut.Workers),
		fanout.WithMetrics(s.metrics),
		fanout.WithLogger(s.logger),
	}
	if s.creator != nil {
		fanoutOptions = append(fanoutOptions, fanout.WithCreator(s.creator))
	}
	s.fanout = fanout.New(s.engine, fanoutOptions...)
	if s.provider != nil {
		client := logistics.NewClient(s.provider, s.config.Logistics, s.logger)
		actor := model.Actor{ID: engineConfig.DispatchActor, Role: model.RoleProcurementOfficer}
		dispatcher := logistics.NewDispatcher(client, s.engine, actor, s.metrics, s.logger,
			logistics.WithLinkedDispatch(s.fanout.Enabled))
		s.listener = dispatcher.Attach(ctx, s.events)
	}
	return nil
}

func (s *Service) initTracing() error {
	tracingConfig := s.config.Tracing
	if s.exporter != nil {
		return tracing.InitWithExporter(tracingConfig.ServiceName, tracingConfig.ServiceVersion, s.exporter)
	}
	if tracingConfig.Enabled {
		return tracing.Init(tracingConfig.ServiceName, tracingConfig.ServiceVersion, tracingConfig.OutputFile)
	}
	return nil
}

func (s *Service) initRecords(ctx context.Context) error {
	if s.records != nil {
		return nil
	}
	storeConfig := s.config.Store
	switch storeConfig.Kind {
	case StoreFS:
		records, err := fs.New(ctx, storeConfig.URL, fs.WithLogger(s.logger))
		if err != nil {
			return err
		}
		s.records = records
	case StorePostgres:
		pool, err := pgxpool.New(ctx, storeConfig.DSN)
		if err != nil {
			return fmt.Errorf("failed to connect to record store: %w", err)
		}
		records := pg.New(pool)
		if err = records.EnsureSchema(ctx); err != nil {
			pool.Close()
			return err
		}
		s.pool = pool
		s.records = records
	default:
		s.records = memory.New()
	}
	return nil
}

// New creates the engine. Background listeners started here run until Close.
func New(ctx context.Context, options ...Option) (*Service, error) {
	ret := &Service{}
	for _, option := range options {
		option(ret)
	}
	if err := ret.init(ctx); err != nil {
		return nil, err
	}
	return ret, nil
}
