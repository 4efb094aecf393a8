package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Repository interface {
	// Create persists the order and decrements the product's stock in one
	// transaction. The decrement is conditional on sufficient stock, so a
	// concurrent creation that loses the race fails with ErrInsufficientStock
	// instead of overselling.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetViewByID(ctx context.Context, id uuid.UUID) (*View, error)
	// UpdateStatus persists the new status and, when restock is set, returns
	// the order's quantity to the product's stock in the same transaction.
	// The update is conditional on the stored status not being terminal, so a
	// concurrent transition that loses the race fails with ErrOrderCancelled
	// or ErrOrderDelivered instead of overwriting a terminal state (and, on a
	// lost cancel, restocking twice).
	UpdateStatus(ctx context.Context, o *Order, restock bool) error
	FindByFilter(ctx context.Context, f Filter) ([]View, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, o *Order) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Stringer("order_id", o.ID).Msg("repository: failed to rollback order creation")
			}
		}
	}()

	decrement := `
		UPDATE products
		SET quantity = quantity - $2
		WHERE id = $1 AND quantity >= $2
	`
	cmdTag, err := tx.Exec(ctx, decrement, o.ProductID, o.Quantity)
	if err != nil {
		return fmt.Errorf("repository: failed to decrement stock for product %s: %w", o.ProductID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Either the product vanished or a concurrent order drained the
		// stock after the service's pre-check. Re-check inside the
		// transaction to report which.
		var available int
		scanErr := tx.QueryRow(ctx, `SELECT quantity FROM products WHERE id = $1`, o.ProductID).Scan(&available)
		if scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				err = ErrProductNotFound
				return err
			}
			err = fmt.Errorf("repository: failed to re-check stock for product %s: %w", o.ProductID, scanErr)
			return err
		}
		err = fmt.Errorf("%w: only %d available", ErrInsufficientStock, available)
		return err
	}

	insert := `
		INSERT INTO orders (id, user_id, product_id, quantity, total_price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.Exec(ctx, insert,
		o.ID,
		o.UserID,
		o.ProductID,
		o.Quantity,
		o.TotalPrice,
		string(o.Status),
		o.CreatedAt,
		o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit order creation: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	query := `
		SELECT id, user_id, product_id, quantity, total_price, status, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var o Order
	err := r.db.QueryRow(ctx, query, id).Scan(
		&o.ID,
		&o.UserID,
		&o.ProductID,
		&o.Quantity,
		&o.TotalPrice,
		&o.Status,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", id, err)
	}
	return &o, nil
}

const viewColumns = `
	o.id, o.user_id, u.email, u.first_name || ' ' || u.last_name,
	o.product_id, p.name, p.brand, o.quantity, p.price, o.total_price,
	o.status, o.created_at, o.updated_at
`

func scanView(row pgx.Row) (*View, error) {
	var v View
	err := row.Scan(
		&v.ID,
		&v.UserID,
		&v.UserEmail,
		&v.UserFullName,
		&v.ProductID,
		&v.ProductName,
		&v.ProductBrand,
		&v.Quantity,
		&v.UnitPrice,
		&v.TotalPrice,
		&v.Status,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *postgresRepository) GetViewByID(ctx context.Context, id uuid.UUID) (*View, error) {
	query := `
		SELECT ` + viewColumns + `
		FROM orders o
		JOIN users u ON u.id = o.user_id
		JOIN products p ON p.id = o.product_id
		WHERE o.id = $1
	`

	v, err := scanView(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order view by id %s: %w", id, err)
	}
	return v, nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, o *Order, restock bool) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Stringer("order_id", o.ID).Msg("repository: failed to rollback status update")
			}
		}
	}()

	update := `
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status NOT IN ('DELIVERED', 'CANCELLED')
	`
	cmdTag, err := tx.Exec(ctx, update, string(o.Status), o.UpdatedAt, o.ID)
	if err != nil {
		return fmt.Errorf("repository: failed to update status for order %s: %w", o.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		// Either the order is gone or a concurrent transition already made it
		// terminal after the service's pre-read. Re-check inside the
		// transaction to report which.
		var current string
		scanErr := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, o.ID).Scan(&current)
		if scanErr != nil {
			if errors.Is(scanErr, pgx.ErrNoRows) {
				err = ErrOrderNotFound
				return err
			}
			err = fmt.Errorf("repository: failed to re-check status for order %s: %w", o.ID, scanErr)
			return err
		}
		if Status(current) == StatusDelivered {
			err = ErrOrderDelivered
			return err
		}
		err = ErrOrderCancelled
		return err
	}

	if restock {
		cmdTag, err = tx.Exec(ctx, `UPDATE products SET quantity = quantity + $2 WHERE id = $1`, o.ProductID, o.Quantity)
		if err != nil {
			return fmt.Errorf("repository: failed to restock product %s: %w", o.ProductID, err)
		}
		if cmdTag.RowsAffected() == 0 {
			err = ErrProductNotFound
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit status update: %w", err)
	}
	return nil
}

func (r *postgresRepository) FindByFilter(ctx context.Context, f Filter) ([]View, error) {
	query := `
		SELECT ` + viewColumns + `
		FROM orders o
		JOIN users u ON u.id = o.user_id
		JOIN products p ON p.id = o.product_id
		WHERE ($1::text IS NULL OR u.email ILIKE '%' || $1 || '%')
		  AND ($2::uuid IS NULL OR o.user_id = $2)
		  AND ($3::text IS NULL OR p.name ILIKE '%' || $3 || '%')
		  AND ($4::text IS NULL OR o.status = $4)
		  AND ($5::timestamptz IS NULL OR o.created_at >= $5)
		  AND ($6::timestamptz IS NULL OR o.created_at <= $6)
		  AND ($7::timestamptz IS NULL OR o.updated_at >= $7)
		  AND ($8::timestamptz IS NULL OR o.updated_at <= $8)
		ORDER BY o.id
	`

	var statusArg *string
	if f.Status != nil {
		s := string(*f.Status)
		statusArg = &s
	}

	rows, err := r.db.Query(ctx, query,
		likePattern(f.UserEmail),
		f.UserID,
		likePattern(f.ProductName),
		statusArg,
		f.CreatedFrom,
		f.CreatedTo,
		f.UpdatedFrom,
		f.UpdatedTo,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer rows.Close()

	views := make([]View, 0)
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order row: %w", err)
		}
		views = append(views, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders: %w", err)
	}

	return views, nil
}

// likePattern maps an empty filter string to SQL NULL and escapes LIKE
// metacharacters so user input always matches literally.
func likePattern(s string) *string {
	if s == "" {
		return nil
	}
	escaped := likeEscaper.Replace(s)
	return &escaped
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
