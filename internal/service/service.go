package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rajasatyajit/EcoScan/internal/analytics"
	"github.com/rajasatyajit/EcoScan/internal/classifier"
	apperrors "github.com/rajasatyajit/EcoScan/internal/errors"
	"github.com/rajasatyajit/EcoScan/internal/ledger"
	"github.com/rajasatyajit/EcoScan/internal/logger"
	"github.com/rajasatyajit/EcoScan/internal/models"
	"github.com/rajasatyajit/EcoScan/internal/pipeline"
	"github.com/rajasatyajit/EcoScan/pkg/utils"
)

// Resolver turns an identifier into a product
type Resolver interface {
	ResolveDetailed(ctx context.Context, id string) (pipeline.Resolution, error)
}

// Ledger is the scan history the service records into
type Ledger interface {
	Append(ctx context.Context, productID string, product *models.Product) (ledger.Outcome, error)
	Clear(ctx context.Context) error
	Snapshot() []models.ScanEvent
	Query(q models.HistoryQuery) []models.ScanEvent
	Head() (models.ScanEvent, bool)
	Points() int
}

// Catalog supplies alternatives for known products
type Catalog interface {
	Lookup(id string) (*models.Product, bool)
	Alternatives(id string) []string
}

// ProductView is a resolved product as presented to callers.
// GradeConsistent is false when a source asserted a grade outside the
// score's band; the asserted grade is kept.
type ProductView struct {
	models.Product
	Source          string                                  `json:"source"`
	ImpactClasses   map[models.Dimension]models.ImpactClass `json:"impact_classes"`
	GradeConsistent bool                                    `json:"grade_consistent"`
}

// Mutation reports the ledger state after a write. Warning is set when the
// write applied in memory but could not be persisted.
type Mutation struct {
	Outcome ledger.Outcome    `json:"outcome,omitempty"`
	Event   *models.ScanEvent `json:"event,omitempty"`
	Points  int               `json:"points"`
	Warning string            `json:"warning,omitempty"`
}

// ScanResult is a resolved product together with its recorded event
type ScanResult struct {
	Product *ProductView `json:"product"`
	Mutation
}

// Option configures a Service
type Option func(*Service)

// WithClock sets the observation time used for statistics
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service ties resolution, the ledger and analytics together
type Service struct {
	resolver Resolver
	ledger   Ledger
	catalog  Catalog
	now      func() time.Time
}

// New creates a service
func New(resolver Resolver, l Ledger, catalog Catalog, opts ...Option) *Service {
	s := &Service{
		resolver: resolver,
		ledger:   l,
		catalog:  catalog,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Product resolves id without recording anything
func (s *Service) Product(ctx context.Context, id string) (*ProductView, error) {
	res, err := s.resolver.ResolveDetailed(ctx, id)
	if err != nil {
		return nil, err
	}
	if !res.Found() {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNotFound, res.ID)
	}
	return newProductView(res), nil
}

// Scan resolves id and, when a product is found, appends it to the ledger.
// Nothing is recorded for an unknown product or an abandoned request.
func (s *Service) Scan(ctx context.Context, id string) (*ScanResult, error) {
	res, err := s.resolver.ResolveDetailed(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !res.Found() {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNotFound, res.ID)
	}

	outcome, err := s.ledger.Append(ctx, res.ID, res.Product)
	result := &ScanResult{
		Product:  newProductView(res),
		Mutation: s.mutation(ctx, outcome, err),
	}
	if err != nil && result.Warning == "" {
		return nil, err
	}

	logger.WithContext(ctx).Info("Scan recorded",
		"product_id", res.ID,
		"source", res.Source,
		"outcome", outcome,
		"points", result.Points,
	)
	return result, nil
}

// Record appends id to the ledger directly, with an optional product to
// snapshot. No resolution takes place.
func (s *Service) Record(ctx context.Context, id string, product *models.Product) (*Mutation, error) {
	id = utils.NormalizeIdentifier(id)
	if id == "" {
		return nil, apperrors.ValidationError{Field: "product_id", Message: "is required"}
	}
	if product != nil {
		if err := validateProduct(id, product); err != nil {
			return nil, err
		}
	}

	outcome, err := s.ledger.Append(ctx, id, product)
	m := s.mutation(ctx, outcome, err)
	if err != nil && m.Warning == "" {
		return nil, err
	}
	return &m, nil
}

// History lists recorded events, most recent first
func (s *Service) History(q models.HistoryQuery) []models.ScanEvent {
	return s.ledger.Query(q)
}

// Clear empties the ledger
func (s *Service) Clear(ctx context.Context) (*Mutation, error) {
	err := s.ledger.Clear(ctx)
	m := s.mutation(ctx, "", err)
	if err != nil && m.Warning == "" {
		return nil, err
	}
	return &m, nil
}

// Stats summarizes engagement as of now
func (s *Service) Stats() analytics.Summary {
	return analytics.Summarize(s.ledger.Snapshot(), s.ledger.Points(), s.now())
}

// Alternatives returns catalog products suggested in place of id
func (s *Service) Alternatives(id string) ([]models.Product, error) {
	id = utils.NormalizeIdentifier(id)
	if id == "" {
		return nil, apperrors.ValidationError{Field: "product_id", Message: "is required"}
	}

	out := []models.Product{}
	for _, altID := range s.catalog.Alternatives(id) {
		if p, ok := s.catalog.Lookup(altID); ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

// mutation builds the post-write view; persistence failures become warnings
func (s *Service) mutation(ctx context.Context, outcome ledger.Outcome, err error) Mutation {
	m := Mutation{Outcome: outcome, Points: s.ledger.Points()}
	if head, ok := s.ledger.Head(); ok {
		m.Event = &head
	}
	if err != nil && apperrors.IsPersistenceWarning(err) {
		logger.WithContext(ctx).Warn("Ledger change not persisted", "error", err)
		m.Warning = err.Error()
	}
	return m
}

func newProductView(res pipeline.Resolution) *ProductView {
	return &ProductView{
		Product:         *res.Product,
		Source:          res.Source,
		ImpactClasses:   classifier.ClassifyProduct(res.Product),
		GradeConsistent: classifier.Consistent(res.Product),
	}
}

func validateProduct(id string, p *models.Product) error {
	var errs apperrors.MultiError
	if p.ID != "" && utils.NormalizeIdentifier(p.ID) != id {
		errs.Add(apperrors.ValidationError{Field: "product.id", Message: "does not match product_id"})
	}
	if p.Name == "" {
		errs.Add(apperrors.ValidationError{Field: "product.name", Message: "is required"})
	}
	if p.Score < 0 || p.Score > 100 {
		errs.Add(apperrors.ValidationError{Field: "product.score", Message: "must be between 0 and 100"})
	}
	if !p.Grade.Valid() {
		errs.Add(apperrors.ValidationError{Field: "product.grade", Message: "must be one of A, B, C, D, E"})
	}
	if len(errs.Errors) == 1 {
		return errs.Errors[0]
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}
