package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campuschain/credit-ledger-api/internal/ledger"
	"github.com/campuschain/credit-ledger-api/internal/models"
	"github.com/campuschain/credit-ledger-api/pkg/jobs"
)

type eventStore interface {
	Insert(ctx context.Context, row *models.EventRow) error
}

type creditMirror interface {
	Upsert(ctx context.Context, row *models.CreditRow) error
	SetStatus(ctx context.Context, recordID uint64, status ledger.Status, reviewedBy string, reviewedAt time.Time) error
}

type roleMirror interface {
	Upsert(ctx context.Context, binding *models.RoleBinding) error
}

type userRoleSyncer interface {
	SyncRoleByAddress(ctx context.Context, address string, role ledger.Role, updatedAt time.Time) error
}

type recordReader interface {
	Record(recordID uint64) (ledger.CreditRecord, bool)
}

type indexObserver interface {
	ObserveEventIndexed()
}

// EventPublisher fans committed ledger events out to external consumers.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RedisPublisher publishes events on a Redis channel.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher wraps a Redis client.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish implements EventPublisher.
func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}

// IndexerConfig tunes the indexer worker pool.
type IndexerConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
	Channel    string
}

// IndexerService mirrors committed ledger events into Postgres and
// republishes them on Redis. The ledger's subscriber callback only
// enqueues, so mutations never block on the mirror; workers apply events
// asynchronously and retry on failure. Event seq is the idempotency key
// throughout, so replays are harmless.
type IndexerService struct {
	events    eventStore
	credits   creditMirror
	roles     roleMirror
	users     userRoleSyncer
	records   recordReader
	publisher EventPublisher
	queue     *jobs.Queue
	channel   string
	logger    *zap.Logger
	metrics   indexObserver

	// staging buffer between the ledger's critical section and the queue.
	// The subscriber must never block while the ledger mutex is held, so it
	// appends here and the pump goroutine feeds the queue.
	mu      sync.Mutex
	staged  []ledger.Event
	wake    chan struct{}
	pumpWG  sync.WaitGroup
	stopped chan struct{}
}

// IndexerOption configures the indexer.
type IndexerOption func(*IndexerService)

// WithIndexObserver wires per-event indexing metrics.
func WithIndexObserver(obs indexObserver) IndexerOption {
	return func(s *IndexerService) {
		if obs != nil {
			s.metrics = obs
		}
	}
}

// NewIndexerService constructs the indexer.
func NewIndexerService(events eventStore, credits creditMirror, roles roleMirror, users userRoleSyncer, records recordReader, publisher EventPublisher, cfg IndexerConfig, logger *zap.Logger, opts ...IndexerOption) *IndexerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Channel == "" {
		cfg.Channel = "ledger.events"
	}
	svc := &IndexerService{
		events:    events,
		credits:   credits,
		roles:     roles,
		users:     users,
		records:   records,
		publisher: publisher,
		channel:   cfg.Channel,
		logger:    logger,
		wake:      make(chan struct{}, 1),
		stopped:   make(chan struct{}),
	}
	svc.queue = jobs.NewQueue("ledger-indexer", svc.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Start launches the worker pool and the staging pump.
func (s *IndexerService) Start(ctx context.Context) {
	s.queue.Start(ctx)
	s.pumpWG.Add(1)
	go s.pump(ctx)
}

// Stop drains the staging pump and the worker pool.
func (s *IndexerService) Stop() {
	close(s.stopped)
	s.pumpWG.Wait()
	s.queue.Stop()
}

// Subscriber returns the callback to register on the ledger. It runs inside
// the ledger's critical section, so it only stages the event and returns.
func (s *IndexerService) Subscriber() ledger.Subscriber {
	return func(event ledger.Event) {
		s.mu.Lock()
		s.staged = append(s.staged, event)
		s.mu.Unlock()
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
}

func (s *IndexerService) pump(ctx context.Context) {
	defer s.pumpWG.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopped:
			s.drain()
			return
		case <-s.wake:
			s.drain()
		}
	}
}

func (s *IndexerService) drain() {
	s.mu.Lock()
	batch := s.staged
	s.staged = nil
	s.mu.Unlock()

	for _, event := range batch {
		job := jobs.Job{
			ID:      strconv.FormatUint(event.Seq, 10),
			Type:    string(event.Type),
			Payload: event,
		}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Error("failed to enqueue ledger event", zap.Uint64("seq", event.Seq), zap.Error(err))
		}
	}
}

func (s *IndexerService) handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(ledger.Event)
	if !ok {
		s.logger.Error("indexer received unexpected payload", zap.String("job_id", job.ID))
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %d: %w", event.Seq, err)
	}

	if err := s.events.Insert(ctx, &models.EventRow{
		Seq:       event.Seq,
		Type:      event.Type,
		Payload:   payload,
		EmittedAt: event.At,
	}); err != nil {
		return err
	}

	if err := s.apply(ctx, event); err != nil {
		return err
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, s.channel, payload); err != nil {
			// mirror rows are already written; publication alone is retried
			// by the caller via the queue
			return fmt.Errorf("publish event %d: %w", event.Seq, err)
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveEventIndexed()
	}
	return nil
}

func (s *IndexerService) apply(ctx context.Context, event ledger.Event) error {
	switch event.Type {
	case ledger.EventRoleAssigned:
		if err := s.roles.Upsert(ctx, &models.RoleBinding{
			Account:    event.Account,
			Role:       event.Role,
			AssignedBy: event.Assigner,
			UpdatedAt:  event.At,
		}); err != nil {
			return err
		}
		return s.users.SyncRoleByAddress(ctx, event.Account, event.Role, event.At)

	case ledger.EventCreditRecorded:
		if event.RecordID == nil {
			return fmt.Errorf("credit recorded event %d missing record id", event.Seq)
		}
		record, ok := s.records.Record(*event.RecordID)
		if !ok {
			return fmt.Errorf("ledger record %d not found for event %d", *event.RecordID, event.Seq)
		}
		return s.credits.Upsert(ctx, &models.CreditRow{
			RecordID:   record.ID,
			StudentID:  record.StudentID,
			CourseName: record.CourseName,
			Score:      record.Score,
			Teacher:    record.Teacher,
			Status:     record.Status,
			RecordedAt: record.CreatedAt,
			UpdatedAt:  event.At,
		})

	case ledger.EventCreditApproved:
		if event.RecordID == nil {
			return fmt.Errorf("credit approved event %d missing record id", event.Seq)
		}
		return s.credits.SetStatus(ctx, *event.RecordID, ledger.StatusApproved, event.Admin, event.At)

	case ledger.EventCreditRejected:
		if event.RecordID == nil {
			return fmt.Errorf("credit rejected event %d missing record id", event.Seq)
		}
		return s.credits.SetStatus(ctx, *event.RecordID, ledger.StatusRejected, event.Admin, event.At)

	default:
		s.logger.Warn("unknown ledger event type", zap.String("type", string(event.Type)), zap.Uint64("seq", event.Seq))
		return nil
	}
}
