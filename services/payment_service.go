package services

import (
	"context"
	"fmt"
	"math"
	"net/http"

	razorpay "github.com/razorpay/razorpay-go"
	"go.uber.org/zap"

	"github.com/deepaktraders/storefront-backend/models"
	"github.com/deepaktraders/storefront-backend/repository"
)

// PaymentGateway creates an order on the payment provider and returns the
// provider's order id.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (string, error)
}

// RazorpayGateway is the live PaymentGateway backed by the Razorpay Orders API.
type RazorpayGateway struct {
	client *razorpay.Client
}

func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{client: razorpay.NewClient(keyID, keySecret)}
}

func (g *RazorpayGateway) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (string, error) {
	data := map[string]interface{}{
		"amount":   amountPaise,
		"currency": currency,
		"receipt":  receipt,
	}
	resp, err := g.client.Order.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay order create: %w", err)
	}
	id, ok := resp["id"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("razorpay order create: response missing id")
	}
	return id, nil
}

// CheckoutResponse is everything the browser needs to open the payment widget.
type CheckoutResponse struct {
	OrderID         string  `json:"order_id"`
	RazorpayOrderID string  `json:"razorpay_order_id"`
	RazorpayKeyID   string  `json:"razorpay_key_id"`
	Amount          int64   `json:"amount"`
	AmountRupees    float64 `json:"amount_rupees"`
	Currency        string  `json:"currency"`
	Name            string  `json:"name"`
	Email           string  `json:"email"`
	Phone           string  `json:"phone"`
}

// PaymentService drives checkout: it asks OrderService for a priced order,
// registers it with the gateway, and hands the widget parameters back.
type PaymentService struct {
	orders       *OrderService
	orderRepo    repository.OrderRepository
	gateway      PaymentGateway
	gatewayKeyID string
	log          *zap.Logger
}

func NewPaymentService(orders *OrderService, orderRepo repository.OrderRepository, gateway PaymentGateway, gatewayKeyID string, log *zap.Logger) *PaymentService {
	return &PaymentService{
		orders:       orders,
		orderRepo:    orderRepo,
		gateway:      gateway,
		gatewayKeyID: gatewayKeyID,
		log:          log,
	}
}

// RupeesToPaise converts a rupee amount to the gateway's integer paise,
// rounding to the nearest paisa.
func RupeesToPaise(rupees float64) int64 {
	return int64(math.Round(rupees * 100))
}

// Checkout creates the internal order, registers it with the gateway, and
// returns the parameters the payment widget needs. The gateway order id is
// stored on the order immediately so the verify callback can find it.
func (s *PaymentService) Checkout(ctx context.Context, principal *models.Principal, items []CheckoutItem, address models.ShippingAddress) (*CheckoutResponse, *ServiceError) {
	if principal == nil {
		return nil, ErrMustBeLoggedIn
	}

	order, svcErr := s.orders.CreateOrder(ctx, principal.UserID, items, address)
	if svcErr != nil {
		return nil, svcErr
	}

	receipt := "order_" + order.ID.Hex()
	amountPaise := RupeesToPaise(order.Amount)

	gatewayOrderID, err := s.gateway.CreateOrder(ctx, amountPaise, order.Currency, receipt)
	if err != nil {
		s.log.Error("Failed to create gateway order",
			zap.String("order_id", order.ID.Hex()),
			zap.Error(err),
		)
		return nil, NewServiceError(http.StatusBadGateway, "payment gateway unavailable")
	}

	if err := s.orderRepo.SetGatewayOrder(ctx, order.ID, gatewayOrderID, receipt); err != nil {
		s.log.Error("Failed to record gateway order id",
			zap.String("order_id", order.ID.Hex()),
			zap.String("razorpay_order_id", gatewayOrderID),
			zap.Error(err),
		)
		return nil, ErrInternal
	}

	s.log.Info("Checkout initiated",
		zap.String("order_id", order.ID.Hex()),
		zap.String("razorpay_order_id", gatewayOrderID),
		zap.Int64("amount_paise", amountPaise),
	)

	return &CheckoutResponse{
		OrderID:         order.ID.Hex(),
		RazorpayOrderID: gatewayOrderID,
		RazorpayKeyID:   s.gatewayKeyID,
		Amount:          amountPaise,
		AmountRupees:    order.Amount,
		Currency:        order.Currency,
		Name:            order.ShippingAddress.Name,
		Email:           order.ShippingAddress.Email,
		Phone:           order.ShippingAddress.Phone,
	}, nil
}
