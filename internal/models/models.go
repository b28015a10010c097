package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Password  string    `json:"-"` // bcrypt hash
	Role      Role      `json:"role"`
	IsActive  bool      `json:"isActive"`
	CreatedAt time.Time `json:"createdAt"`
}

type PaymentMethod string

const (
	PaymentCOD        PaymentMethod = "cod"
	PaymentSSLCommerz PaymentMethod = "sslcommerz"
	PaymentBkash      PaymentMethod = "bkash"
	PaymentNagad      PaymentMethod = "nagad"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCOD, PaymentSSLCommerz, PaymentBkash, PaymentNagad:
		return true
	}
	return false
}

type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemConfirmed ItemStatus = "confirmed"
	ItemCancelled ItemStatus = "cancelled"
)

type ShippingAddress struct {
	Street     string `json:"street"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Phone      string `json:"phone"`
}

// OrderItem is a purchase-time snapshot of a product. Everything but the
// status fields is immutable once the order is created.
type OrderItem struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"productId"`
	Name         string          `json:"name"`
	ImageURL     string          `json:"image"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int             `json:"quantity"`
	Size         string          `json:"size"`
	Color        string          `json:"color"`
	Status       ItemStatus      `json:"status"`
	ConfirmedAt  *time.Time      `json:"confirmedAt,omitempty"`
	CancelledAt  *time.Time      `json:"cancelledAt,omitempty"`
	CancelReason string          `json:"cancelReason,omitempty"`
}

type Order struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`

	// Owner details for display, attached on reads.
	UserName  string `json:"userName,omitempty"`
	UserEmail string `json:"userEmail,omitempty"`

	OrderItems      []OrderItem     `json:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`

	PaymentMethod        PaymentMethod `json:"paymentMethod"`
	PaymentTransactionID string        `json:"paymentTransactionId,omitempty"`
	PaymentStatus        string        `json:"paymentStatus,omitempty"`
	IsPaid               bool          `json:"isPaid"`
	PaidAt               *time.Time    `json:"paidAt,omitempty"`

	ItemsPrice    decimal.Decimal `json:"itemsPrice"`
	ShippingPrice decimal.Decimal `json:"shippingPrice"`
	TaxPrice      decimal.Decimal `json:"taxPrice"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`

	IsConfirmed  bool       `json:"isConfirmed"`
	ConfirmedAt  *time.Time `json:"confirmedAt,omitempty"`
	IsShipped    bool       `json:"isShipped"`
	ShippedAt    *time.Time `json:"shippedAt,omitempty"`
	IsDelivered  bool       `json:"isDelivered"`
	DeliveredAt  *time.Time `json:"deliveredAt,omitempty"`
	IsCancelled  bool       `json:"isCancelled"`
	CancelledAt  *time.Time `json:"cancelledAt,omitempty"`
	CancelReason string     `json:"cancelReason,omitempty"`

	// Version backs the optimistic conditional update on the orders row.
	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

type Product struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	ImageURL   string          `json:"image"`
	Price      decimal.Decimal `json:"price"`
	IsFeatured bool            `json:"isFeatured"`
	IsActive   bool            `json:"isActive"`
	Rating     float64         `json:"rating"`
	NumReviews int             `json:"numReviews"`
	CreatedAt  time.Time       `json:"createdAt"`
}

type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	UserID    string    `json:"userId"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
