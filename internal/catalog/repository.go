package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrCategoryNotFound  = errors.New("category not found")
	ErrCategoryExists    = errors.New("category with this name already exists")
	ErrProductNotFound   = errors.New("product not found")
	ErrProductNameExists = errors.New("product with this name already exists")
)

type Repository interface {
	CreateCategory(ctx context.Context, c *Category) error
	GetCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error)
	CategoryExistsByName(ctx context.Context, name string) (bool, error)
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	FindCategories(ctx context.Context, namePart string) ([]Category, error)

	CreateProduct(ctx context.Context, p *Product) error
	GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error)
	GetProductViewByID(ctx context.Context, id uuid.UUID) (*ProductView, error)
	ProductExistsByName(ctx context.Context, name string) (bool, error)
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	FindProducts(ctx context.Context, f ProductFilter) ([]ProductView, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func (r *postgresRepository) CreateCategory(ctx context.Context, c *Category) error {
	query := `INSERT INTO categories (id, name, description) VALUES ($1, $2, $3)`

	_, err := r.db.Exec(ctx, query, c.ID, c.Name, c.Description)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCategoryExists
		}
		return fmt.Errorf("repository: failed to insert category: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetCategoryByID(ctx context.Context, id uuid.UUID) (*Category, error) {
	query := `SELECT id, name, description FROM categories WHERE id = $1`

	var c Category
	err := r.db.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("repository: failed to select category by id %s: %w", id, err)
	}
	return &c, nil
}

func (r *postgresRepository) CategoryExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM categories WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("repository: failed to check category name existence: %w", err)
	}
	return exists, nil
}

func (r *postgresRepository) UpdateCategory(ctx context.Context, c *Category) error {
	query := `UPDATE categories SET name = $1, description = $2 WHERE id = $3`

	cmdTag, err := r.db.Exec(ctx, query, c.Name, c.Description, c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCategoryExists
		}
		return fmt.Errorf("repository: failed to update category %s: %w", c.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// DeleteCategory does not check for referencing products. Deleting a category
// that products still point at leaves those references dangling.
func (r *postgresRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete category %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *postgresRepository) FindCategories(ctx context.Context, namePart string) ([]Category, error) {
	query := `
		SELECT id, name, description
		FROM categories
		WHERE ($1::text IS NULL OR name ILIKE '%' || $1 || '%')
		ORDER BY id
	`

	rows, err := r.db.Query(ctx, query, likePattern(namePart))
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("repository: failed to scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating categories: %w", err)
	}

	return categories, nil
}

func (r *postgresRepository) CreateProduct(ctx context.Context, p *Product) error {
	query := `
		INSERT INTO products (id, name, brand, category_id, price, quantity)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.Exec(ctx, query, p.ID, p.Name, p.Brand, p.CategoryID, p.Price, p.Quantity)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrProductNameExists
		}
		return fmt.Errorf("repository: failed to insert product: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	query := `SELECT id, name, brand, category_id, price, quantity FROM products WHERE id = $1`

	var p Product
	err := r.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Brand, &p.CategoryID, &p.Price, &p.Quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product by id %s: %w", id, err)
	}
	return &p, nil
}

func (r *postgresRepository) GetProductViewByID(ctx context.Context, id uuid.UUID) (*ProductView, error) {
	query := `
		SELECT p.id, p.name, p.brand, p.category_id, p.price, p.quantity, c.name
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1
	`

	var v ProductView
	err := r.db.QueryRow(ctx, query, id).Scan(
		&v.ID, &v.Name, &v.Brand, &v.CategoryID, &v.Price, &v.Quantity, &v.CategoryName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product view by id %s: %w", id, err)
	}
	return &v, nil
}

func (r *postgresRepository) ProductExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE LOWER(name) = LOWER($1))`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("repository: failed to check product name existence: %w", err)
	}
	return exists, nil
}

func (r *postgresRepository) UpdateProduct(ctx context.Context, p *Product) error {
	query := `
		UPDATE products
		SET name = $1, brand = $2, category_id = $3, price = $4, quantity = $5
		WHERE id = $6
	`
	cmdTag, err := r.db.Exec(ctx, query, p.Name, p.Brand, p.CategoryID, p.Price, p.Quantity, p.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrProductNameExists
		}
		return fmt.Errorf("repository: failed to update product %s: %w", p.ID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// DeleteProduct does not check for referencing orders; see DeleteCategory.
func (r *postgresRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete product %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepository) FindProducts(ctx context.Context, f ProductFilter) ([]ProductView, error) {
	query := `
		SELECT p.id, p.name, p.brand, p.category_id, p.price, p.quantity, c.name
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE ($1::text IS NULL OR p.name ILIKE '%' || $1 || '%')
		  AND ($2::text IS NULL OR p.brand ILIKE '%' || $2 || '%')
		  AND ($3::text IS NULL OR LOWER(c.name) = LOWER($3))
		  AND ($4::numeric IS NULL OR p.price >= $4)
		  AND ($5::numeric IS NULL OR p.price <= $5)
		  AND ($6::int IS NULL OR p.quantity >= $6)
		  AND ($7::int IS NULL OR p.quantity <= $7)
		ORDER BY p.id
	`

	rows, err := r.db.Query(ctx, query,
		likePattern(f.Name),
		likePattern(f.Brand),
		nullableText(f.CategoryName),
		f.MinPrice,
		f.MaxPrice,
		f.MinQuantity,
		f.MaxQuantity,
	)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]ProductView, 0)
	for rows.Next() {
		var v ProductView
		err := rows.Scan(&v.ID, &v.Name, &v.Brand, &v.CategoryID, &v.Price, &v.Quantity, &v.CategoryName)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan product row: %w", err)
		}
		products = append(products, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating products: %w", err)
	}

	return products, nil
}

// nullableText maps an empty filter string to SQL NULL for exact-match
// predicates; ILIKE predicates go through likePattern instead.
func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
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
