package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/rajasatyajit/EcoScan/config"
	apperrors "github.com/rajasatyajit/EcoScan/internal/errors"
	"github.com/rajasatyajit/EcoScan/internal/logger"
	"github.com/rajasatyajit/EcoScan/internal/metrics"
	"github.com/rajasatyajit/EcoScan/internal/models"
	"github.com/rajasatyajit/EcoScan/pkg/utils"
)

// SourceCatalog names the local fallback in logs, metrics and responses
const SourceCatalog = "catalog"

// Source defines a pluggable remote product lookup
type Source interface {
	Name() string
	Lookup(ctx context.Context, id string) (*models.Product, error)
}

// Catalog is the local fallback lookup
type Catalog interface {
	Lookup(id string) (*models.Product, bool)
}

// Resolution is a resolve result together with the source that answered.
// Product is nil when no source knows the identifier.
type Resolution struct {
	ID      string
	Product *models.Product
	Source  string
}

// Found reports whether any source produced a product
func (r Resolution) Found() bool {
	return r.Product != nil
}

// Pipeline resolves identifiers remote first, then catalog, then not-found.
// It holds no per-identifier state.
type Pipeline struct {
	remote  Source
	catalog Catalog
	limiter *rate.Limiter
	sem     *semaphore.Weighted
}

// New creates a pipeline. A nil remote skips straight to the catalog.
func New(remote Source, catalog Catalog, cfg config.ResolverConfig) *Pipeline {
	perMinute := cfg.RateLimit
	if perMinute <= 0 {
		perMinute = 100
	}
	concurrent := cfg.MaxConcurrent
	if concurrent < 1 {
		concurrent = 1
	}

	p := &Pipeline{
		remote:  remote,
		catalog: catalog,
		limiter: rate.NewLimiter(rate.Limit(perMinute/60), concurrent),
		sem:     semaphore.NewWeighted(int64(concurrent)),
	}

	remoteName := "none"
	if remote != nil {
		remoteName = remote.Name()
	}
	logger.Info("Pipeline initialized",
		"remote", remoteName,
		"rate_limit_per_min", perMinute,
		"max_concurrent", concurrent,
	)

	return p
}

// Resolve returns the product for id, or nil when no source knows it.
// The only error is a validation error for an empty identifier.
func (p *Pipeline) Resolve(ctx context.Context, id string) (*models.Product, error) {
	res, err := p.ResolveDetailed(ctx, id)
	if err != nil {
		return nil, err
	}
	return res.Product, nil
}

// ResolveDetailed is Resolve with the answering source attached
func (p *Pipeline) ResolveDetailed(ctx context.Context, id string) (Resolution, error) {
	id = utils.NormalizeIdentifier(id)
	if id == "" {
		return Resolution{}, apperrors.ValidationError{Field: "product_id", Message: "is required"}
	}

	start := time.Now()
	res := Resolution{ID: id}

	if p.remote != nil {
		product, err := p.lookupRemote(ctx, id)
		if err == nil && product != nil {
			res.Product, res.Source = product, p.remote.Name()
			metrics.RecordResolution(res.Source, "found", time.Since(start))
			return res, nil
		}
		logger.WithContext(ctx).Warn("Remote lookup failed, falling back to catalog",
			"source", p.remote.Name(),
			"product_id", id,
			"error", err,
		)
		metrics.RecordResolution(p.remote.Name(), outcomeFor(err), time.Since(start))
	}

	if product, ok := p.catalog.Lookup(id); ok {
		res.Product, res.Source = product, SourceCatalog
		metrics.RecordResolution(SourceCatalog, "found", time.Since(start))
		return res, nil
	}

	logger.WithContext(ctx).Debug("Product not found", "product_id", id)
	metrics.RecordResolution(SourceCatalog, "not_found", time.Since(start))
	return res, nil
}

// lookupRemote makes the single remote call, gated by the semaphore and limiter
func (p *Pipeline) lookupRemote(ctx context.Context, id string) (*models.Product, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, apperrors.ResolveError{Source: p.remote.Name(), Stage: "acquire", Err: err}
	}
	defer p.sem.Release(1)

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, apperrors.ResolveError{Source: p.remote.Name(), Stage: "rate_limit", Err: err}
	}

	product, err := p.remote.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, apperrors.ResolveError{Source: p.remote.Name(), Stage: "lookup", Err: apperrors.ErrUnknownProduct}
	}
	return product, nil
}

func outcomeFor(err error) string {
	var re apperrors.ResolveError
	switch {
	case errors.Is(err, apperrors.ErrUnknownProduct):
		return "unknown"
	case errors.As(err, &re):
		return fmt.Sprintf("%s_error", re.Stage)
	default:
		return "error"
	}
}
