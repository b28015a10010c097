package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/apperr"
	"github.com/mohammad-aiman/Bayt-AL-Libaas-sub001/internal/models"
)

// Client talks to the hosted payment gateway over HTTP. Calls run through a
// circuit breaker so a misbehaving gateway degrades checkout fast instead of
// tying up request handlers on timeouts.
type Client struct {
	http      *resty.Client
	breaker   *gobreaker.CircuitBreaker
	storeID   string
	storePass string
	logger    *slog.Logger
}

type Config struct {
	BaseURL   string
	StoreID   string
	StorePass string
	Timeout   time.Duration
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "payment-gateway",
		Interval: 15 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("payment circuit state changed",
				"circuit", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(timeout).
			SetRetryCount(0), // the breaker decides, not blind retries
		breaker:   breaker,
		storeID:   cfg.StoreID,
		storePass: cfg.StorePass,
		logger:    logger,
	}
}

type initiateRequest struct {
	StoreID       string `json:"storeId"`
	StorePassword string `json:"storePassword"`
	TransactionID string `json:"tranId"`
	OrderID       string `json:"orderId"`
	TotalAmount   string `json:"totalAmount"`
	Currency      string `json:"currency"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	CustomerPhone string `json:"customerPhone"`
}

type initiateResponse struct {
	Status        string `json:"status"`
	GatewayURL    string `json:"gatewayPageURL"`
	FailedReason  string `json:"failedreason"`
	TransactionID string `json:"tranId"`
}

// Initiate registers a payment session with the gateway and returns the
// transaction id to remember on the order. The order total is already final
// at this point; the gateway only echoes it back on the callback.
func (c *Client) Initiate(ctx context.Context, o *models.Order) (string, error) {
	tranID := uuid.New().String()
	req := initiateRequest{
		StoreID:       c.storeID,
		StorePassword: c.storePass,
		TransactionID: tranID,
		OrderID:       o.ID,
		TotalAmount:   o.TotalPrice.StringFixed(2),
		Currency:      "BDT",
		CustomerName:  o.UserName,
		CustomerEmail: o.UserEmail,
		CustomerPhone: o.ShippingAddress.Phone,
	}

	result, err := c.breaker.Execute(func() (any, error) {
		var out initiateResponse
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(req).
			SetResult(&out).
			Post("/v1/session")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("gateway returned %s", resp.Status())
		}
		return &out, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", apperr.Wrap(apperr.CodeInternal, "payment gateway unavailable", err)
		}
		return "", apperr.Wrap(apperr.CodeInternal, "payment gateway request failed", err)
	}

	out := result.(*initiateResponse)
	if out.Status != "SUCCESS" {
		return "", apperr.Newf(apperr.CodeInternal, "gateway rejected session: %s", out.FailedReason)
	}
	if out.TransactionID != "" {
		tranID = out.TransactionID
	}
	c.logger.Info("payment session created", "order_id", o.ID, "tran_id", tranID)
	return tranID, nil
}
