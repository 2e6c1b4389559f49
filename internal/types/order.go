package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-ml/pkg/errors"
)

type PurchaseType string

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusRejected  OrderStatus = "REJECTED"
)

const (
	PurchaseTypeBuy  PurchaseType = "BUY"
	PurchaseTypeSell PurchaseType = "SELL"
)

// Order is a broker order produced by the trader job.
type Order struct {
	ID        string       `yaml:"id" json:"id" validate:"required"`
	Symbol    string       `yaml:"symbol" json:"symbol" validate:"required"`
	Side      PurchaseType `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	Quantity  float64      `yaml:"quantity" json:"quantity" validate:"gt=0"`
	Price     float64      `yaml:"price" json:"price" validate:"gt=0"`
	StopPrice float64      `yaml:"stop_price" json:"stop_price" validate:"gte=0"`
	Status    OrderStatus  `yaml:"status" json:"status" validate:"required"`
	CreatedAt time.Time    `yaml:"created_at" json:"created_at"`
	FilledAt  time.Time    `yaml:"filled_at" json:"filled_at"`
}

func (o Order) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid order", err)
	}

	return nil
}
