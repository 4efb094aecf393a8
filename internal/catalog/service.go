package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	ErrNegativePrice    = errors.New("price cannot be negative")
	ErrNegativeQuantity = errors.New("quantity cannot be negative")
)

type CategoryInput struct {
	Name        string
	Description string
}

type ProductInput struct {
	Name       string
	Brand      string
	CategoryID uuid.UUID
	Price      decimal.Decimal
	Quantity   int
}

type Service interface {
	GetCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error)
	CreateCategory(ctx context.Context, in CategoryInput) (*Category, error)
	UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (*Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	SearchCategories(ctx context.Context, namePart string) ([]Category, error)

	GetProductByID(ctx context.Context, id uuid.UUID) (*ProductView, error)
	CreateProduct(ctx context.Context, in ProductInput) (*ProductView, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*ProductView, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	SearchProducts(ctx context.Context, f ProductFilter) ([]ProductView, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	c, err := s.repo.GetCategoryByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		log.Error().Err(err).Stringer("category_id", id).Msg("service: failed to get category")
		return nil, fmt.Errorf("service: failed to get category: %w", err)
	}
	return c, nil
}

func (s *service) CreateCategory(ctx context.Context, in CategoryInput) (*Category, error) {
	exists, err := s.repo.CategoryExistsByName(ctx, in.Name)
	if err != nil {
		log.Error().Err(err).Str("name", in.Name).Msg("service: failed to check category name")
		return nil, fmt.Errorf("service: failed to check category name: %w", err)
	}
	if exists {
		return nil, ErrCategoryExists
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate category id: %w", err)
	}

	c := &Category{ID: id, Name: in.Name, Description: in.Description}
	if err := s.repo.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, ErrCategoryExists) {
			return nil, ErrCategoryExists
		}
		log.Error().Err(err).Str("name", in.Name).Msg("service: failed to create category")
		return nil, fmt.Errorf("service: failed to create category: %w", err)
	}

	log.Info().Stringer("category_id", c.ID).Str("name", c.Name).Msg("service: category created")
	return c, nil
}

func (s *service) UpdateCategory(ctx context.Context, id uuid.UUID, in CategoryInput) (*Category, error) {
	c, err := s.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// The record's own name is not a conflict with itself.
	if c.Name != in.Name {
		exists, err := s.repo.CategoryExistsByName(ctx, in.Name)
		if err != nil {
			log.Error().Err(err).Str("name", in.Name).Msg("service: failed to check category name")
			return nil, fmt.Errorf("service: failed to check category name: %w", err)
		}
		if exists {
			return nil, ErrCategoryExists
		}
	}

	c.Name = in.Name
	c.Description = in.Description

	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		if errors.Is(err, ErrCategoryNotFound) || errors.Is(err, ErrCategoryExists) {
			return nil, err
		}
		log.Error().Err(err).Stringer("category_id", id).Msg("service: failed to update category")
		return nil, fmt.Errorf("service: failed to update category: %w", err)
	}

	return c, nil
}

func (s *service) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	err := s.repo.DeleteCategory(ctx, id)
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return ErrCategoryNotFound
		}
		log.Error().Err(err).Stringer("category_id", id).Msg("service: failed to delete category")
		return fmt.Errorf("service: failed to delete category: %w", err)
	}
	return nil
}

func (s *service) SearchCategories(ctx context.Context, namePart string) ([]Category, error) {
	categories, err := s.repo.FindCategories(ctx, strings.TrimSpace(namePart))
	if err != nil {
		log.Error().Err(err).Msg("service: failed to search categories")
		return nil, fmt.Errorf("service: failed to search categories: %w", err)
	}
	return categories, nil
}

func (s *service) GetProductByID(ctx context.Context, id uuid.UUID) (*ProductView, error) {
	v, err := s.repo.GetProductViewByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to get product")
		return nil, fmt.Errorf("service: failed to get product: %w", err)
	}
	return v, nil
}

func (s *service) CreateProduct(ctx context.Context, in ProductInput) (*ProductView, error) {
	if err := s.validateProductInput(in); err != nil {
		return nil, err
	}

	exists, err := s.repo.ProductExistsByName(ctx, in.Name)
	if err != nil {
		log.Error().Err(err).Str("name", in.Name).Msg("service: failed to check product name")
		return nil, fmt.Errorf("service: failed to check product name: %w", err)
	}
	if exists {
		return nil, ErrProductNameExists
	}

	category, err := s.repo.GetCategoryByID(ctx, in.CategoryID)
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		log.Error().Err(err).Stringer("category_id", in.CategoryID).Msg("service: failed to fetch category for product")
		return nil, fmt.Errorf("service: failed to fetch category for product: %w", err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate product id: %w", err)
	}

	p := &Product{
		ID:         id,
		Name:       in.Name,
		Brand:      in.Brand,
		CategoryID: category.ID,
		Price:      in.Price,
		Quantity:   in.Quantity,
	}

	if err := s.repo.CreateProduct(ctx, p); err != nil {
		if errors.Is(err, ErrProductNameExists) {
			return nil, ErrProductNameExists
		}
		log.Error().Err(err).Str("name", in.Name).Msg("service: failed to create product")
		return nil, fmt.Errorf("service: failed to create product: %w", err)
	}

	log.Info().Stringer("product_id", p.ID).Str("name", p.Name).Msg("service: product created")
	return &ProductView{Product: *p, CategoryName: category.Name}, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, in ProductInput) (*ProductView, error) {
	if err := s.validateProductInput(in); err != nil {
		return nil, err
	}

	p, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to fetch product for update")
		return nil, fmt.Errorf("service: failed to fetch product for update: %w", err)
	}

	// Name uniqueness is case-insensitive; renaming only in letter case is
	// still the same record, not a conflict.
	if !strings.EqualFold(p.Name, in.Name) {
		exists, err := s.repo.ProductExistsByName(ctx, in.Name)
		if err != nil {
			log.Error().Err(err).Str("name", in.Name).Msg("service: failed to check product name")
			return nil, fmt.Errorf("service: failed to check product name: %w", err)
		}
		if exists {
			return nil, ErrProductNameExists
		}
	}

	category, err := s.repo.GetCategoryByID(ctx, in.CategoryID)
	if err != nil {
		if errors.Is(err, ErrCategoryNotFound) {
			return nil, ErrCategoryNotFound
		}
		log.Error().Err(err).Stringer("category_id", in.CategoryID).Msg("service: failed to fetch category for product")
		return nil, fmt.Errorf("service: failed to fetch category for product: %w", err)
	}

	p.Name = in.Name
	p.Brand = in.Brand
	p.CategoryID = category.ID
	p.Price = in.Price
	p.Quantity = in.Quantity

	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		if errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrProductNameExists) {
			return nil, err
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to update product")
		return nil, fmt.Errorf("service: failed to update product: %w", err)
	}

	return &ProductView{Product: *p, CategoryName: category.Name}, nil
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	err := s.repo.DeleteProduct(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return ErrProductNotFound
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to delete product")
		return fmt.Errorf("service: failed to delete product: %w", err)
	}
	return nil
}

func (s *service) SearchProducts(ctx context.Context, f ProductFilter) ([]ProductView, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.Brand = strings.TrimSpace(f.Brand)
	f.CategoryName = strings.TrimSpace(f.CategoryName)

	products, err := s.repo.FindProducts(ctx, f)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to search products")
		return nil, fmt.Errorf("service: failed to search products: %w", err)
	}
	return products, nil
}

func (s *service) validateProductInput(in ProductInput) error {
	if in.Price.IsNegative() {
		return ErrNegativePrice
	}
	if in.Quantity < 0 {
		return ErrNegativeQuantity
	}
	return nil
}
