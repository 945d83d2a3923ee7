package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/eventprosnz/eventpros-backend/pkg/config"
	"github.com/eventprosnz/eventpros-backend/pkg/db/models"
	"github.com/eventprosnz/eventpros-backend/pkg/enums"
	"github.com/eventprosnz/eventpros-backend/pkg/logger"
	"github.com/eventprosnz/eventpros-backend/pkg/metrics"
	"github.com/eventprosnz/eventpros-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize   = 50
	defaultPoll        = 500 * time.Millisecond
	defaultMaxAttempts = 10
	publishTimeout     = 15 * time.Second
	maxBackoff         = 10 * time.Second
	jitterWindow       = 250 * time.Millisecond
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxStore interface {
	ClaimPending(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(tx *gorm.DB, id uuid.UUID) error
	RecordAttempt(tx *gorm.DB, id uuid.UUID, cause error) error
	Exhaust(tx *gorm.DB, id uuid.UUID, cause error, attempts int) error
}

type deadLetterStore interface {
	Insert(tx *gorm.DB, entry models.OutboxDLQ) error
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// publisherFor returns the publisher for topic, or nil when none exists.
type publisherFor func(topic string) publisher

type ServiceParams struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           txRunner
	PubSub       pubSubClient
	Outbox       outboxStore
	DeadLetters  deadLetterStore
	Registry     eventResolver
	PublisherFor publisherFor
	Metrics      *metrics.OutboxMetrics
}

// Service moves outbox_events rows to Pub/Sub. A batch is claimed and settled
// inside one transaction, so the row locks taken by ClaimPending hold until
// each row's outcome is written.
type Service struct {
	logg         *logger.Logger
	db           txRunner
	pubsub       pubSubClient
	outbox       outboxStore
	deadLetters  deadLetterStore
	registry     eventResolver
	publisherFor publisherFor
	metrics      *metrics.OutboxMetrics
	batchSize    int
	maxAttempts  int
	poll         time.Duration
	now          func() time.Time
}

func NewService(p ServiceParams) (*Service, error) {
	switch {
	case p.Config == nil:
		return nil, errors.New("config is required")
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil, p.PubSub == nil:
		return nil, errors.New("database and pubsub clients are required")
	case p.Outbox == nil, p.DeadLetters == nil:
		return nil, errors.New("outbox and dead letter stores are required")
	case p.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	pubFor := p.PublisherFor
	if pubFor == nil {
		pubFor = func(topic string) publisher {
			if t := p.PubSub.Publisher(topic); t != nil {
				return gcpPublisher{t}
			}
			return nil
		}
	}

	cfg := p.Config.Outbox
	poll := defaultPoll
	if cfg.PollIntervalMS > 0 {
		poll = time.Duration(cfg.PollIntervalMS) * time.Millisecond
	}
	return &Service{
		logg:         p.Logger,
		db:           p.DB,
		pubsub:       p.PubSub,
		outbox:       p.Outbox,
		deadLetters:  p.DeadLetters,
		registry:     p.Registry,
		publisherFor: pubFor,
		metrics:      p.Metrics,
		batchSize:    orDefault(cfg.BatchSize, defaultBatchSize),
		maxAttempts:  orDefault(cfg.MaxAttempts, defaultMaxAttempts),
		poll:         poll,
		now:          time.Now,
	}, nil
}

func orDefault(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// Run drains the outbox until ctx ends. A full batch is followed immediately
// by the next one, an empty batch waits one poll interval, and consecutive
// failures back off up to maxBackoff.
func (s *Service) Run(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	if err := s.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub not ready: %w", err)
	}

	failures := 0
	for {
		stats, err := s.processBatch(ctx)
		var wait time.Duration
		switch {
		case ctx.Err() != nil:
			s.logg.Info(ctx, "outbox publisher stopping")
			return ctx.Err()
		case err != nil:
			failures++
			wait = retryDelay(s.poll, failures)
			s.logg.Error(s.logg.WithField(ctx, "consecutive_failures", failures), "outbox batch failed", err)
		case stats.claimed >= s.batchSize:
			failures = 0
			continue
		default:
			failures = 0
			wait = s.poll + rand.N(jitterWindow)
		}
		if stats.claimed > 0 {
			s.logg.Debug(s.logg.WithFields(ctx, stats.fields()), "outbox batch settled")
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

type batchStats struct {
	claimed, published, retried, buried int
}

func (b batchStats) fields() map[string]any {
	return map[string]any{
		"claimed":   b.claimed,
		"published": b.published,
		"retried":   b.retried,
		"buried":    b.buried,
	}
}

// verdict is what happened to one row's publish attempt.
type verdict struct {
	reason enums.OutboxDLQErrorReason // set when the row is dead-lettered
	topic  string
	err    error
}

func (s *Service) processBatch(ctx context.Context) (batchStats, error) {
	var stats batchStats
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		stats = batchStats{}
		rows, err := s.outbox.ClaimPending(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("claim outbox rows: %w", err)
		}
		stats.claimed = len(rows)
		for _, row := range rows {
			if err := s.settle(ctx, tx, row, s.attempt(ctx, row), &stats); err != nil {
				return err
			}
		}
		return nil
	})
	return stats, err
}

func (s *Service) attempt(ctx context.Context, row models.OutboxEvent) verdict {
	resolved, err := s.registry.Resolve(row)
	if err != nil {
		return verdict{reason: enums.OutboxDLQReasonNonRetryable, err: err}
	}
	v := verdict{topic: resolved.Descriptor.Topic}
	v.err = s.publish(ctx, row, resolved)

	var permanent registry.NonRetryableError
	switch {
	case v.err == nil:
	case errors.As(v.err, &permanent):
		v.reason = enums.OutboxDLQReasonNonRetryable
	case row.AttemptCount+1 >= s.maxAttempts:
		v.reason = enums.OutboxDLQReasonMaxAttempts
		v.err = fmt.Errorf("attempt %d of %d: %w", row.AttemptCount+1, s.maxAttempts, v.err)
	}
	return v
}

func (s *Service) settle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, v verdict, stats *batchStats) error {
	eventType := string(row.EventType)
	fields := map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     eventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID.String(),
	}
	if v.topic != "" {
		fields["topic"] = v.topic
	}
	logCtx := s.logg.WithFields(ctx, fields)

	switch {
	case v.err == nil:
		if err := s.outbox.MarkPublished(tx, row.ID); err != nil {
			return fmt.Errorf("mark %s published: %w", row.ID, err)
		}
		stats.published++
		s.metrics.IncPublished(eventType)
		s.logg.Debug(logCtx, "outbox event published")

	case v.reason != "":
		if err := s.deadLetters.Insert(tx, models.DeadLetter(row, v.reason, v.err, s.now().UTC())); err != nil {
			return fmt.Errorf("dead-letter %s: %w", row.ID, err)
		}
		if err := s.outbox.Exhaust(tx, row.ID, v.err, s.maxAttempts); err != nil {
			return fmt.Errorf("exhaust %s: %w", row.ID, err)
		}
		stats.buried++
		s.metrics.IncDeadLettered(eventType, string(v.reason))
		logCtx = s.logg.WithFields(logCtx, map[string]any{"error_reason": v.reason, "error": v.err.Error()})
		s.logg.Warn(logCtx, "outbox event dead-lettered")

	default:
		if err := s.outbox.RecordAttempt(tx, row.ID, v.err); err != nil {
			return fmt.Errorf("record attempt for %s: %w", row.ID, err)
		}
		stats.retried++
		s.metrics.IncFailed(eventType)
		logCtx = s.logg.WithFields(logCtx, map[string]any{"attempt": row.AttemptCount + 1, "error": v.err.Error()})
		s.logg.Warn(logCtx, "outbox publish will be retried")
	}
	return nil
}

func (s *Service) publish(ctx context.Context, row models.OutboxEvent, resolved *registry.ResolvedEvent) error {
	topic := resolved.Descriptor.Topic
	pub := s.publisherFor(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %q", topic))
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	res := pub.Publish(ctx, &gcppubsub.Message{
		Data: row.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	})
	if res == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher for %q returned no result", topic))
	}
	_, err := res.Get(ctx)
	return err
}

// retryDelay doubles the poll interval per consecutive failure, capped at
// maxBackoff.
func retryDelay(poll time.Duration, failures int) time.Duration {
	d := poll
	for i := 0; i < failures && d < maxBackoff; i++ {
		d *= 2
	}
	return min(d, maxBackoff)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type gcpPublisher struct {
	p *gcppubsub.Publisher
}

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return g.p.Publish(ctx, msg)
}
