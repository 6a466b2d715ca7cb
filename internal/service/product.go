package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/utafrali/storefront/internal/cache"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const (
	// stockLookups bounds concurrent inventory calls while enriching a listing.
	stockLookups = 8
	// productLoadTimeout bounds a shared product load.
	productLoadTimeout = 5 * time.Second
)

// StockChecker reports units available for a product. It never fails;
// unknown stock is reported as 0.
type StockChecker interface {
	GetAvailable(ctx context.Context, productID int64) int
}

// ProductView is a product with its current stock flag.
type ProductView struct {
	domain.Product
	InStock bool
}

// ProductInput holds the writable product fields.
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    string
	CategoryID  int64
}

// ProductService implements catalog reads and writes.
type ProductService struct {
	store    repository.Store
	stock    StockChecker
	cache    cacheAside
	loads    singleflight.Group
	producer *event.Producer
	logger   *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(store repository.Store, stock StockChecker, c cache.Cache, ttl time.Duration, producer *event.Producer, logger *slog.Logger) *ProductService {
	return &ProductService{
		store:    store,
		stock:    stock,
		cache:    newCacheAside(c, ttl, logger),
		producer: producer,
		logger:   logger,
	}
}

// GetByID returns a product with its stock flag. Concurrent misses for the
// same product share one load.
func (s *ProductService) GetByID(ctx context.Context, id int64) (*ProductView, error) {
	key := cache.ProductKey(id)

	var cached ProductView
	gen, hit := s.cache.get(ctx, key, &cached)
	if hit {
		return &cached, nil
	}

	ch := s.loads.DoChan(key, func() (any, error) {
		// The load is shared by every waiter and ignores the first caller's cancellation.
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), productLoadTimeout)
		defer cancel()

		p, err := s.store.Products().GetByID(loadCtx, id)
		if err != nil {
			return nil, err
		}
		view := ProductView{Product: *p, InStock: s.stock.GetAvailable(loadCtx, p.ID) > 0}
		s.cache.put(loadCtx, gen, key, view)
		return view, nil
	})

	var v any
	var err error
	select {
	case res := <-ch:
		v, err = res.Val, res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	view := v.(ProductView)
	return &view, nil
}

// List returns every product. Only this unfiltered listing is cached.
func (s *ProductService) List(ctx context.Context) ([]ProductView, error) {
	var cached []ProductView
	gen, hit := s.cache.get(ctx, cache.AllProductsKey, &cached)
	if hit && cached != nil {
		return cached, nil
	}

	views, err := s.list(ctx, repository.ProductFilter{})
	if err != nil {
		return nil, err
	}
	s.cache.put(ctx, gen, cache.AllProductsKey, views)
	return views, nil
}

// SearchByName returns products whose name contains name, ignoring case.
func (s *ProductService) SearchByName(ctx context.Context, name string) ([]ProductView, error) {
	return s.list(ctx, repository.ProductFilter{NameContains: strings.TrimSpace(name)})
}

// ListByCategory returns the products of a category.
func (s *ProductService) ListByCategory(ctx context.Context, categoryID int64) ([]ProductView, error) {
	return s.list(ctx, repository.ProductFilter{CategoryID: categoryID})
}

func (s *ProductService) list(ctx context.Context, filter repository.ProductFilter) ([]ProductView, error) {
	products, err := s.store.Products().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return s.withStock(ctx, products), nil
}

// withStock looks up stock for each product concurrently.
func (s *ProductService) withStock(ctx context.Context, products []domain.Product) []ProductView {
	views := make([]ProductView, len(products))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stockLookups)
	for i := range products {
		g.Go(func() error {
			views[i] = ProductView{
				Product: products[i],
				InStock: s.stock.GetAvailable(gctx, products[i].ID) > 0,
			}
			return nil
		})
	}
	_ = g.Wait()
	return views
}

// Create adds a product to an existing category.
func (s *ProductService) Create(ctx context.Context, in ProductInput) (*ProductView, error) {
	if err := validateProductInput(in); err != nil {
		return nil, err
	}

	p := &domain.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       domain.RoundMoney(in.Price),
		ImageURL:    in.ImageURL,
		CategoryID:  in.CategoryID,
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		if _, err := r.Categories().GetByID(ctx, in.CategoryID); err != nil {
			return err
		}
		return r.Products().Create(ctx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.afterWrite(ctx, p.ID, event.ProductCreated, p)
	return s.view(ctx, p), nil
}

// Update overwrites a product. The product and the target category must
// both exist.
func (s *ProductService) Update(ctx context.Context, id int64, in ProductInput) (*ProductView, error) {
	if err := validateProductInput(in); err != nil {
		return nil, err
	}

	p := &domain.Product{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Price:       domain.RoundMoney(in.Price),
		ImageURL:    in.ImageURL,
		CategoryID:  in.CategoryID,
	}
	s.cache.evict(ctx, cache.ProductKey(id), cache.AllProductsKey)

	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repositories) error {
		existing, err := r.Products().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing.CategoryID != in.CategoryID {
			if _, err := r.Categories().GetByID(ctx, in.CategoryID); err != nil {
				return err
			}
		}
		return r.Products().Update(ctx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.afterWrite(ctx, id, event.ProductUpdated, p)
	return s.view(ctx, p), nil
}

// Delete removes a product. Products that appear on an order cannot be
// deleted.
func (s *ProductService) Delete(ctx context.Context, id int64) error {
	s.cache.evict(ctx, cache.ProductKey(id), cache.AllProductsKey)

	if err := s.store.Products().Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.afterWrite(ctx, id, event.ProductDeleted, nil)
	return nil
}

func (s *ProductService) view(ctx context.Context, p *domain.Product) *ProductView {
	return &ProductView{Product: *p, InStock: s.stock.GetAvailable(ctx, p.ID) > 0}
}

func (s *ProductService) afterWrite(ctx context.Context, id int64, change string, p *domain.Product) {
	s.cache.evict(ctx, cache.ProductKey(id), cache.AllProductsKey)
	s.loads.Forget(cache.ProductKey(id))

	if err := s.producer.PublishProductChanged(ctx, id, change, p); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.changed event",
			slog.Int64("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product "+change,
		slog.Int64("product_id", id),
	)
}

func validateProductInput(in ProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return apperrors.InvalidArgument("name is required")
	}
	if in.Price.IsNegative() {
		return apperrors.InvalidArgument("price must not be negative")
	}
	if in.CategoryID <= 0 {
		return apperrors.InvalidArgument("categoryId is required")
	}
	return nil
}
