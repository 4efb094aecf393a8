package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusNew       Status = "NEW"
	StatusAccepted  Status = "ACCEPTED"
	StatusInTransit Status = "IN_TRANSIT"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusAccepted, StatusInTransit, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal statuses admit no further transition.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type Order struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	UserID     uuid.UUID       `json:"user_id" db:"user_id"`
	ProductID  uuid.UUID       `json:"product_id" db:"product_id"`
	Quantity   int             `json:"quantity" db:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price" db:"total_price"`
	Status     Status          `json:"status" db:"status"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// View is the read-facing order shape. The user and product columns are
// joined in at read time and always reflect current data; TotalPrice is the
// only creation-time snapshot.
type View struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	UserID       uuid.UUID       `json:"user_id" db:"user_id"`
	UserEmail    string          `json:"user_email" db:"user_email"`
	UserFullName string          `json:"user_full_name" db:"user_full_name"`
	ProductID    uuid.UUID       `json:"product_id" db:"product_id"`
	ProductName  string          `json:"product_name" db:"product_name"`
	ProductBrand string          `json:"product_brand" db:"product_brand"`
	Quantity     int             `json:"quantity" db:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price" db:"unit_price"`
	TotalPrice   decimal.Decimal `json:"total_price" db:"total_price"`
	Status       Status          `json:"status" db:"status"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// Filter holds the optional predicates for order search. Absent fields
// impose no constraint; present fields are ANDed. UserID scopes the search
// to one owner and is set by the service for client callers.
type Filter struct {
	UserEmail   string
	UserID      *uuid.UUID
	ProductName string
	Status      *Status
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	UpdatedFrom *time.Time
	UpdatedTo   *time.Time
}
