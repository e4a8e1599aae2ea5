package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/hirepurchase-backend/pkg/config"
	"github.com/angelmondragon/hirepurchase-backend/pkg/db/models"
	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
	"github.com/angelmondragon/hirepurchase-backend/pkg/logger"
	"github.com/angelmondragon/hirepurchase-backend/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPollInterval   = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type dlqRepository interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// ServiceParams wires the audit publisher.
type ServiceParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            dbClient
	Broker        func(context.Context) error
	Publisher     auditPublisher
	Repository    outboxRepository
	Registry      registryResolver
	DLQRepository dlqRepository
}

// Service forwards committed ledger events to the audit topic. Events of one
// aggregate are published in commit order: once an event fails, the rest of
// its aggregate's events wait for the next batch.
type Service struct {
	logg         *logger.Logger
	db           dbClient
	broker       func(context.Context) error
	publisher    auditPublisher
	repo         outboxRepository
	registry     registryResolver
	dlq          dlqRepository
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

type forwardOutcome int

const (
	outcomePublished forwardOutcome = iota
	outcomeRetry
	outcomeDeadLettered
)

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.Broker == nil:
		return nil, errors.New("broker ping is required")
	case params.Publisher == nil:
		return nil, errors.New("audit publisher is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	case params.DLQRepository == nil:
		return nil, errors.New("dlq repository is required")
	}

	tuning := params.Config.Outbox
	svc := &Service{
		logg:         params.Logger,
		db:           params.DB,
		broker:       params.Broker,
		publisher:    params.Publisher,
		repo:         params.Repository,
		registry:     params.Registry,
		dlq:          params.DLQRepository,
		batchSize:    tuning.BatchSize,
		maxAttempts:  tuning.MaxAttempts,
		pollInterval: time.Duration(tuning.PollIntervalMS) * time.Millisecond,
	}
	if svc.batchSize <= 0 {
		svc.batchSize = defaultBatchSize
	}
	if svc.maxAttempts <= 0 {
		svc.maxAttempts = defaultMaxAttempts
	}
	if svc.pollInterval <= 0 {
		svc.pollInterval = defaultPollInterval
	}
	return svc, nil
}

// Run drains the outbox until ctx ends. Failed batches back off exponentially
// up to maxBackoff; an empty outbox waits one poll interval.
func (s *Service) Run(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := s.broker(ctx); err != nil {
		return fmt.Errorf("pubsub ping failed: %w", err)
	}
	defer s.publisher.Stop()

	wait := s.pollInterval
	for ctx.Err() == nil {
		drained, err := s.drainBatch(ctx)
		switch {
		case err != nil:
			s.logg.Error(ctx, "audit batch failed", err)
			wait = nextBackoff(wait, s.pollInterval, maxBackoff)
		case drained:
			wait = s.pollInterval
			continue
		default:
			wait = s.pollInterval
		}
		sleep(ctx, withJitter(wait))
	}
	s.logg.Info(ctx, "audit publisher stopping")
	return ctx.Err()
}

// drainBatch locks one batch of unpublished rows and forwards them. It
// reports whether any row was found.
func (s *Service) drainBatch(ctx context.Context) (bool, error) {
	found := false
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return err
		}
		found = len(events) > 0

		held := map[string]struct{}{}
		for _, event := range events {
			key := orderingKey(event)
			if _, blocked := held[key]; blocked {
				s.logg.Info(s.logg.WithFields(ctx, logFields(event, nil)), "audit event held behind failed predecessor")
				continue
			}
			outcome, err := s.forward(ctx, tx, event)
			if err != nil {
				return err
			}
			if outcome == outcomeRetry {
				held[key] = struct{}{}
			}
		}
		return nil
	})
	return found, err
}

func (s *Service) forward(ctx context.Context, tx *gorm.DB, event models.OutboxEvent) (forwardOutcome, error) {
	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return outcomeDeadLettered, s.deadLetter(ctx, tx, event, nil, enums.OutboxDLQReasonNonRetryable, err)
	}

	fields := logFields(event, resolved)
	err = s.publish(ctx, auditMessage(event, resolved.Envelope))
	if err == nil {
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return outcomePublished, fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "audit event published")
		return outcomePublished, nil
	}

	var nonRetryable registry.NonRetryableError
	if errors.As(err, &nonRetryable) {
		return outcomeDeadLettered, s.deadLetter(ctx, tx, event, resolved, enums.OutboxDLQReasonNonRetryable, err)
	}
	if event.AttemptCount+1 >= s.maxAttempts {
		return outcomeDeadLettered, s.deadLetter(ctx, tx, event, resolved, enums.OutboxDLQReasonMaxAttempts,
			fmt.Errorf("max publish attempts reached: %w", err))
	}

	fields["attempt_count"] = event.AttemptCount + 1
	s.logg.Warn(s.logg.WithField(s.logg.WithFields(ctx, fields), "error", err.Error()), "audit event publish failed")
	if err := s.repo.MarkFailedTx(tx, event.ID, err); err != nil {
		return outcomeRetry, fmt.Errorf("mark failure %s: %w", event.ID, err)
	}
	return outcomeRetry, nil
}

func (s *Service) publish(ctx context.Context, msg *gcppubsub.Message) error {
	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()
	result := s.publisher.Publish(publishCtx, msg)
	if result == nil {
		return registry.NewNonRetryableError(errors.New("audit publisher returned no result"))
	}
	if _, err := result.Get(publishCtx); err != nil {
		s.publisher.ResumePublish(msg.OrderingKey)
		return err
	}
	return nil
}

func (s *Service) deadLetter(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, resolved *registry.ResolvedEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	fields := logFields(event, resolved)
	fields["error_reason"] = reason
	s.logg.Warn(s.logg.WithField(s.logg.WithFields(ctx, fields), "error", cause.Error()), "audit event moved to dlq")

	message := cause.Error()
	entry := models.OutboxDLQ{
		EventID:       event.ID,
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       event.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &message,
		AttemptCount:  event.AttemptCount,
		FailedAt:      time.Now().UTC(),
	}
	if err := s.dlq.InsertTx(tx, entry); err != nil {
		return fmt.Errorf("insert dlq %s: %w", event.ID, err)
	}
	if err := s.repo.MarkTerminalTx(tx, event.ID, cause, s.maxAttempts); err != nil {
		return fmt.Errorf("mark terminal %s: %w", event.ID, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func nextBackoff(current, base, limit time.Duration) time.Duration {
	if current < base {
		current = base
	}
	if next := current * 2; next < limit {
		return next
	}
	return limit
}

func withJitter(d time.Duration) time.Duration {
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}
