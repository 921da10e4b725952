package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/deppfellow/go-catalog/internal/errs"
	"github.com/deppfellow/go-catalog/internal/middleware"
	"github.com/deppfellow/go-catalog/internal/model/product"
	"github.com/deppfellow/go-catalog/internal/repository"
	"github.com/deppfellow/go-catalog/internal/server"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/shopspring/decimal"
)

// ProductNotFoundCode is the error code clients receive for an unknown or deleted product.
const ProductNotFoundCode = "PRODUCT_NOT_FOUND"

// ProductService turns store outcomes into API outcomes: absent products
// become 404s and field validation failures become 400s with field errors.
// Storage faults pass through to the global error handler.
type ProductService struct {
	server *server.Server
	repo   repository.ProductRepository
}

// NewProductService builds the service on whichever store the configuration
// selected. The server is kept for its logger and New Relic application.
func NewProductService(s *server.Server, repo repository.ProductRepository) *ProductService {
	return &ProductService{
		server: s,
		repo:   repo,
	}
}

func (s *ProductService) ListActive(ctx context.Context) ([]product.Product, error) {
	return s.repo.ListActive(ctx)
}

func (s *ProductService) Get(ctx context.Context, id int64) (*product.Product, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, notFound(id)
	}
	return p, nil
}

func (s *ProductService) Create(ctx context.Context, fields product.Fields) (*product.Product, error) {
	p, err := s.repo.Create(ctx, fields)
	if err != nil {
		return nil, invalidOr(err)
	}

	middleware.GetLoggerFromContext(ctx).Info().
		Int64("product_id", p.ID).
		Str("event", "product_created").
		Msg("product created")

	if txn := newrelic.FromContext(ctx); txn != nil {
		txn.AddAttribute("product.id", p.ID)
	}

	return p, nil
}

func (s *ProductService) Update(ctx context.Context, id int64, fields product.Fields) (*product.Product, error) {
	p, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return nil, invalidOr(err)
	}
	if p == nil {
		return nil, notFound(id)
	}

	middleware.GetLoggerFromContext(ctx).Info().
		Int64("product_id", id).
		Str("event", "product_updated").
		Msg("product updated")

	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return notFound(id)
	}

	middleware.GetLoggerFromContext(ctx).Info().
		Int64("product_id", id).
		Str("event", "product_deleted").
		Msg("product deactivated")

	return nil
}

func (s *ProductService) SearchByName(ctx context.Context, term string) ([]product.Product, error) {
	return s.repo.SearchByName(ctx, term)
}

func (s *ProductService) GetByPriceRange(ctx context.Context, min, max decimal.Decimal) ([]product.Product, error) {
	return s.repo.GetByPriceRange(ctx, min, max)
}

func notFound(id int64) error {
	code := ProductNotFoundCode
	return errs.NewNotFoundError(fmt.Sprintf("Product %d not found", id), true, &code)
}

// invalidOr maps a *product.ValidationError to a 400 and returns any other error as is.
func invalidOr(err error) error {
	var invalid *product.ValidationError
	if !errors.As(err, &invalid) {
		return err
	}

	fieldErrors := make([]errs.FieldError, 0, len(invalid.Issues))
	for _, issue := range invalid.Issues {
		fieldErrors = append(fieldErrors, errs.FieldError{
			Field: issue.Field,
			Error: issue.Message,
		})
	}
	return errs.NewBadRequestError("Validation failed", true, nil, fieldErrors, nil)
}
