package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/digitalstore/internal/catalog"
	"github.com/vasiliy-maslov/digitalstore/internal/user"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidQuantity  = errors.New("quantity must be at least 1")
	ErrInvalidStatus    = errors.New("unknown order status")
	ErrOrderCancelled   = errors.New("cannot modify a cancelled order")
	ErrOrderDelivered   = errors.New("cannot modify a delivered order")
	ErrNotOrderOwner    = errors.New("you can only modify your own orders")
	ErrClientCancelOnly = errors.New("client may only cancel an order")
)

// UserStore is the slice of the identity store the lifecycle engine needs.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
}

// ProductStore is the slice of the catalog store the lifecycle engine needs.
type ProductStore interface {
	GetProductByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

type CreateInput struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
}

type Service interface {
	Create(ctx context.Context, in CreateInput) (*View, error)
	GetByID(ctx context.Context, id uuid.UUID) (*View, error)
	// UpdateStatus transitions the order identified by id to newStatus on
	// behalf of the principal identified by actorEmail. Cancellation restores
	// the ordered quantity to the product's stock.
	UpdateStatus(ctx context.Context, id uuid.UUID, newStatus Status, actorEmail string) (*View, error)
	Search(ctx context.Context, f Filter) ([]View, error)
	// SearchForUser is the client-scoped variant of Search: the filter is
	// forced onto the given owner and the email predicate is not exposed.
	SearchForUser(ctx context.Context, userID uuid.UUID, f Filter) ([]View, error)
}

type service struct {
	repo     Repository
	users    UserStore
	products ProductStore
}

func NewService(repo Repository, users UserStore, products ProductStore) Service {
	return &service{
		repo:     repo,
		users:    users,
		products: products,
	}
}

func (s *service) Create(ctx context.Context, in CreateInput) (*View, error) {
	if in.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	owner, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		log.Error().Err(err).Stringer("user_id", in.UserID).Msg("service: failed to fetch order owner")
		return nil, fmt.Errorf("service: failed to fetch order owner: %w", err)
	}

	product, err := s.products.GetProductByID(ctx, in.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		log.Error().Err(err).Stringer("product_id", in.ProductID).Msg("service: failed to fetch product for order")
		return nil, fmt.Errorf("service: failed to fetch product for order: %w", err)
	}

	if product.Quantity < in.Quantity {
		return nil, fmt.Errorf("%w: only %d available", ErrInsufficientStock, product.Quantity)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate order id: %w", err)
	}

	now := time.Now().UTC()
	o := &Order{
		ID:         id,
		UserID:     owner.ID,
		ProductID:  product.ID,
		Quantity:   in.Quantity,
		TotalPrice: product.Price.Mul(decimal.NewFromInt(int64(in.Quantity))),
		Status:     StatusNew,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// The repository decrements the stock and writes the order atomically,
	// re-checking availability against concurrent creations.
	if err := s.repo.Create(ctx, o); err != nil {
		if errors.Is(err, ErrInsufficientStock) || errors.Is(err, ErrProductNotFound) {
			return nil, err
		}
		log.Error().Err(err).Stringer("order_id", o.ID).Msg("service: failed to create order")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	log.Info().
		Stringer("order_id", o.ID).
		Stringer("user_id", owner.ID).
		Stringer("product_id", product.ID).
		Int("quantity", o.Quantity).
		Msg("service: order created")

	return &View{
		ID:           o.ID,
		UserID:       owner.ID,
		UserEmail:    owner.Email,
		UserFullName: owner.FullName(),
		ProductID:    product.ID,
		ProductName:  product.Name,
		ProductBrand: product.Brand,
		Quantity:     o.Quantity,
		UnitPrice:    product.Price,
		TotalPrice:   o.TotalPrice,
		Status:       o.Status,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
	}, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*View, error) {
	v, err := s.repo.GetViewByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to fetch order")
		return nil, fmt.Errorf("service: failed to fetch order: %w", err)
	}
	return v, nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus Status, actorEmail string) (*View, error) {
	if !newStatus.Valid() {
		return nil, ErrInvalidStatus
	}

	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to fetch order for status update")
		return nil, fmt.Errorf("service: failed to fetch order for status update: %w", err)
	}

	actor, err := s.users.GetByEmail(ctx, actorEmail)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		log.Error().Err(err).Str("email", actorEmail).Msg("service: failed to resolve acting user")
		return nil, fmt.Errorf("service: failed to resolve acting user: %w", err)
	}

	switch o.Status {
	case StatusCancelled:
		return nil, ErrOrderCancelled
	case StatusDelivered:
		return nil, ErrOrderDelivered
	}

	if actor.Role == user.RoleClient {
		if o.UserID != actor.ID {
			return nil, ErrNotOrderOwner
		}
		if newStatus != StatusCancelled {
			return nil, ErrClientCancelOnly
		}
	}
	// MANAGER and ADMIN may set any target status, including skipping
	// intermediate states.

	oldStatus := o.Status
	o.Status = newStatus
	o.UpdatedAt = time.Now().UTC()

	restock := newStatus == StatusCancelled
	if err := s.repo.UpdateStatus(ctx, o, restock); err != nil {
		if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrProductNotFound) ||
			errors.Is(err, ErrOrderCancelled) || errors.Is(err, ErrOrderDelivered) {
			return nil, err
		}
		log.Error().Err(err).Stringer("order_id", id).Str("new_status", newStatus.String()).Msg("service: failed to update order status")
		return nil, fmt.Errorf("service: failed to update order status: %w", err)
	}

	log.Info().
		Stringer("order_id", id).
		Str("old_status", oldStatus.String()).
		Str("new_status", newStatus.String()).
		Bool("restocked", restock).
		Msg("service: order status updated")

	return s.GetByID(ctx, id)
}

func (s *service) Search(ctx context.Context, f Filter) ([]View, error) {
	views, err := s.repo.FindByFilter(ctx, f)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to search orders")
		return nil, fmt.Errorf("service: failed to search orders: %w", err)
	}
	return views, nil
}

func (s *service) SearchForUser(ctx context.Context, userID uuid.UUID, f Filter) ([]View, error) {
	f.UserID = &userID
	f.UserEmail = ""
	return s.Search(ctx, f)
}
