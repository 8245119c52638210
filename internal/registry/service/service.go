// Package service implements the registration engine shared by every record
// kind, plus the read-only lookups over its indices.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ledgerreg/internal/ledger"
	"ledgerreg/internal/registry/metrics"
	"ledgerreg/internal/registry/models"
	"ledgerreg/internal/registry/store"
	"ledgerreg/pkg/domain"
	dErrors "ledgerreg/pkg/domain-errors"
	"ledgerreg/pkg/platform/sentinel"
	"ledgerreg/pkg/requestcontext"
)

const tracerName = "ledgerreg/registry"

// Store is the storage the engine needs for one record kind.
type Store[P any] interface {
	RunInTx(ctx context.Context, id models.RecordID, fn func(ctx context.Context, tx store.Tx[P]) error) error
	FindByID(ctx context.Context, id models.RecordID) (*models.Record[P], error)
	ListByOwner(ctx context.Context, owner domain.Account) ([]models.RecordID, error)
	OwnerOf(ctx context.Context, id models.RecordID) (domain.Account, error)
	ListByHash(ctx context.Context, hash domain.ContentHash) ([]models.RecordID, error)
}

// Service admits records of one kind. Credential and schema registries are two
// instances of it configured with different KindSpecs.
type Service[P any] struct {
	spec       models.KindSpec[P]
	store      Store[P]
	authorizer ledger.Authorizer
	clock      ledger.Clock
	logger     *slog.Logger
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

type Option[P any] func(*Service[P])

func WithLogger[P any](logger *slog.Logger) Option[P] {
	return func(s *Service[P]) {
		s.logger = logger
	}
}

func WithMetrics[P any](m *metrics.Metrics) Option[P] {
	return func(s *Service[P]) {
		s.metrics = m
	}
}

// WithClock replaces the request-scoped time oracle.
func WithClock[P any](clock ledger.Clock) Option[P] {
	return func(s *Service[P]) {
		s.clock = clock
	}
}

func WithTracer[P any](tracer trace.Tracer) Option[P] {
	return func(s *Service[P]) {
		s.tracer = tracer
	}
}

// New constructs a Service for spec backed by st.
func New[P any](spec models.KindSpec[P], st Store[P], authorizer ledger.Authorizer, opts ...Option[P]) *Service[P] {
	s := &Service[P]{
		spec:       spec,
		store:      st,
		authorizer: authorizer,
		clock:      ledger.RequestClock,
		logger:     slog.Default(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Kind reports the record kind this service admits.
func (s *Service[P]) Kind() models.Kind {
	return s.spec.Kind
}

// Register admits a new record on behalf of origin and returns its id.
//
// Checks run in a fixed order: capability, signer, id, version, properties,
// then existence. A call violating several rules fails with the first one.
// The existence check, the four index writes and the RecordRegistered event
// commit as one unit of work; a rejected call changes nothing.
func (s *Service[P]) Register(ctx context.Context, origin ledger.Origin, params models.RecordParams[P]) (_ models.RecordID, err error) {
	kind := string(s.spec.Kind)
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, "registry.Register", trace.WithAttributes(
		attribute.String("registry.kind", kind),
		attribute.String("registry.id", string(params.ID)),
	))
	defer func() {
		s.metrics.ObserveRegister(kind, time.Since(start))
		if err != nil {
			s.reject(ctx, span, params.ID, err)
		}
		span.End()
	}()

	if err := s.authorizer.EnsureAuthorized(ctx, origin); err != nil {
		return "", authorizationError(err)
	}
	signer, err := ledger.EnsureSigned(origin)
	if err != nil {
		return "", err
	}
	if !s.spec.VersionRequired {
		// unversioned kinds never store a version
		params.Version = ""
	}
	if err := s.spec.Validate(params); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeValidation, "invalid "+kind)
	}

	err = s.store.RunInTx(ctx, params.ID, func(ctx context.Context, tx store.Tx[P]) error {
		exists, err := tx.Exists(ctx, params.ID)
		if err != nil {
			return err
		}
		if exists {
			return models.ErrIDAlreadyExists
		}

		rec := models.NewRecord(params, s.clock.Now(ctx))
		if err := tx.Insert(ctx, rec); err != nil {
			return err
		}
		return tx.Emit(ctx, models.RecordRegistered{
			Kind:         s.spec.Kind,
			Signer:       signer,
			ID:           rec.ID,
			ContentHash:  rec.ContentHash,
			Version:      rec.Version,
			RegisteredAt: rec.RegisteredAt,
		})
	})
	if err != nil {
		return "", s.commitError(err)
	}

	s.metrics.IncRegistered(kind)
	span.SetStatus(codes.Ok, "")
	s.logger.InfoContext(ctx, "record_registered",
		"kind", kind,
		"id", params.ID,
		"owner", params.Owner,
		"signer", signer,
		"request_id", requestcontext.RequestID(ctx),
	)
	return params.ID, nil
}

func (s *Service[P]) reject(ctx context.Context, span trace.Span, id models.RecordID, err error) {
	kind := string(s.spec.Kind)
	reason := models.ReasonOf(err)
	s.metrics.IncRejected(kind, reason)
	span.SetAttributes(attribute.String("registry.reject_reason", reason))
	span.SetStatus(codes.Error, reason)

	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal || dErrors.CodeOf(err) == dErrors.CodeTimeout {
		level = slog.LevelError
		span.RecordError(err)
	}
	s.logger.Log(ctx, level, "registration_rejected",
		"kind", kind,
		"id", id,
		"reason", reason,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}

// authorizationError keeps an authorizer's coded error and classifies the rest.
func authorizationError(err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, models.ErrUnauthorized) {
		return dErrors.Wrap(err, dErrors.CodeForbidden, "origin lacks the registrar capability")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "authorization check failed")
}

func (s *Service[P]) commitError(err error) error {
	kind := string(s.spec.Kind)
	var de *dErrors.Error
	switch {
	case errors.Is(err, models.ErrIDAlreadyExists):
		return dErrors.Wrap(err, dErrors.CodeConflict, kind+" already registered")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		// lost a race the existence check could not see
		return dErrors.Wrap(models.ErrIDAlreadyExists, dErrors.CodeConflict, kind+" already registered")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "concurrent write, retry")
	case errors.As(err, &de):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to register "+kind)
	}
}

// Get returns the record registered under id.
func (s *Service[P]) Get(ctx context.Context, id models.RecordID) (*models.Record[P], error) {
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.lookupError(err, "record")
	}
	return rec, nil
}

// ListByOwner returns the ids owned by owner in registration order.
func (s *Service[P]) ListByOwner(ctx context.Context, owner domain.Account) ([]models.RecordID, error) {
	ids, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, s.lookupError(err, "owner index")
	}
	return ids, nil
}

// OwnerOf returns the owner recorded for id.
func (s *Service[P]) OwnerOf(ctx context.Context, id models.RecordID) (domain.Account, error) {
	owner, err := s.store.OwnerOf(ctx, id)
	if err != nil {
		return domain.Account{}, s.lookupError(err, "owner")
	}
	return owner, nil
}

// ListByHash returns every id registered with hash, in registration order.
func (s *Service[P]) ListByHash(ctx context.Context, hash domain.ContentHash) ([]models.RecordID, error) {
	ids, err := s.store.ListByHash(ctx, hash)
	if err != nil {
		return nil, s.lookupError(err, "hash index")
	}
	return ids, nil
}

func (s *Service[P]) lookupError(err error, what string) error {
	if errors.Is(err, store.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, string(s.spec.Kind)+" "+what+" not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load "+string(s.spec.Kind)+" "+what)
}
