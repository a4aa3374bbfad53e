package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/deepaktraders/storefront-backend/models"
	"github.com/deepaktraders/storefront-backend/repository"
)

// CheckoutItem is a purchase request line. Prices are never accepted from the
// client; only product references and quantities.
type CheckoutItem struct {
	ProductID string `json:"product_id" binding:"required"`
	Qty       int    `json:"qty" binding:"required,min=1,max=99"`
}

// ImageResolver resolves a blob storage key to a fetchable URL, nil when the
// key cannot be resolved.
type ImageResolver interface {
	Resolve(ctx context.Context, key string) *string
}

// EventPublisher emits order lifecycle events, best-effort.
type EventPublisher interface {
	Publish(ctx context.Context, event models.OrderEvent)
}

// PaymentVerifier authenticates a gateway callback.
type PaymentVerifier interface {
	Verify(gatewayOrderID, gatewayPaymentID, claimed string) (bool, error)
}

// OrderService owns the order ledger: orders are created with server-computed
// totals, transition pending→paid only after signature verification, and never
// transition back.
type OrderService struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	verifier PaymentVerifier
	images   ImageResolver
	events   EventPublisher
	log      *zap.Logger
}

func NewOrderService(orders repository.OrderRepository, products repository.ProductRepository, verifier PaymentVerifier, images ImageResolver, events EventPublisher, log *zap.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		verifier: verifier,
		images:   images,
		events:   events,
		log:      log,
	}
}

// CreateOrder resolves every product, computes the total from server-known
// prices, and inserts the order plus snapshotted line items. Any unresolvable
// product aborts the whole operation with nothing inserted.
func (s *OrderService) CreateOrder(ctx context.Context, userID string, items []CheckoutItem, address models.ShippingAddress) (*models.Order, *ServiceError) {
	if len(items) == 0 {
		return nil, NewServiceError(http.StatusBadRequest, "at least one item is required")
	}

	// Coalesce duplicate lines and validate quantities up front.
	lines := make([]CheckoutItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		if item.Qty < 1 || item.Qty > models.MaxQty {
			return nil, NewServiceError(http.StatusBadRequest, fmt.Sprintf("invalid quantity for product %s", item.ProductID))
		}
		if i, ok := index[item.ProductID]; ok {
			lines[i].Qty = clampQty(lines[i].Qty + item.Qty)
			continue
		}
		index[item.ProductID] = len(lines)
		lines = append(lines, item)
	}

	ids := make([]primitive.ObjectID, 0, len(lines))
	for _, line := range lines {
		id, err := primitive.ObjectIDFromHex(line.ProductID)
		if err != nil {
			return nil, NewServiceError(http.StatusNotFound, fmt.Sprintf("product %s not found", line.ProductID))
		}
		ids = append(ids, id)
	}

	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		s.log.Error("Failed to resolve products for order", zap.Error(err))
		return nil, ErrInternal
	}
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID.Hex()] = p
	}
	for _, line := range lines {
		if _, ok := byID[line.ProductID]; !ok {
			return nil, NewServiceError(http.StatusNotFound, fmt.Sprintf("product %s not found", line.ProductID))
		}
	}

	var amount float64
	for _, line := range lines {
		amount += byID[line.ProductID].Price * float64(line.Qty)
	}

	order := &models.Order{
		UserID:          userID,
		Amount:          amount,
		Currency:        "INR",
		Status:          models.OrderStatusPending,
		ShippingAddress: address,
		CreatedAt:       time.Now().UTC(),
	}
	orderID, err := s.orders.CreateOrder(ctx, order)
	if err != nil {
		s.log.Error("Failed to insert order", zap.Error(err))
		return nil, ErrInternal
	}
	order.ID = orderID

	orderItems := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		p := byID[line.ProductID]
		orderItems = append(orderItems, models.OrderItem{
			OrderID:   orderID,
			ProductID: line.ProductID,
			Quantity:  line.Qty,
			Price:     p.Price,
			Name:      p.Name,
		})
	}
	if err := s.orders.InsertItems(ctx, orderItems); err != nil {
		s.log.Error("Failed to insert order items, rolling back order",
			zap.String("order_id", orderID.Hex()),
			zap.Error(err),
		)
		// Best-effort rollback; the janitor sweep catches what this misses.
		if delErr := s.orders.DeleteOrder(ctx, orderID); delErr != nil {
			s.log.Warn("Failed to delete itemless order", zap.Error(delErr))
		}
		return nil, ErrInternal
	}

	if s.events != nil {
		s.events.Publish(ctx, models.OrderEvent{
			Type:      "order.created",
			OrderID:   orderID.Hex(),
			UserID:    userID,
			Amount:    amount,
			Currency:  order.Currency,
			Timestamp: order.CreatedAt,
		})
	}

	return order, nil
}

// VerifyAndMarkPaid authenticates a gateway callback and, only on success,
// flips the order to paid. Replaying a valid callback is a no-op success: the
// order stays paid with its original timestamp.
func (s *OrderService) VerifyAndMarkPaid(ctx context.Context, gatewayOrderID, gatewayPaymentID, gatewaySignature string) (*models.Order, *ServiceError) {
	ok, err := s.verifier.Verify(gatewayOrderID, gatewayPaymentID, gatewaySignature)
	if err != nil {
		s.log.Error("Payment verification unavailable", zap.Error(err))
		return nil, NewServiceError(http.StatusInternalServerError, "Server misconfiguration")
	}
	if !ok {
		s.log.Warn("Payment signature mismatch",
			zap.String("razorpay_order_id", gatewayOrderID),
			zap.String("razorpay_payment_id", gatewayPaymentID),
		)
		return nil, NewServiceError(http.StatusBadRequest, "Invalid signature")
	}

	order, err := s.orders.FindByRazorpayOrderID(ctx, gatewayOrderID)
	if err == repository.ErrNotFound {
		return nil, NewServiceError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		s.log.Error("Failed to load order for verification", zap.Error(err))
		return nil, ErrInternal
	}

	if order.Status == models.OrderStatusPaid {
		if order.RazorpayPaymentID == gatewayPaymentID {
			return order, nil
		}
		return nil, NewServiceError(http.StatusConflict, "order already paid")
	}
	if order.Status == models.OrderStatusFailed {
		return nil, NewServiceError(http.StatusConflict, "order already failed")
	}

	paidAt := time.Now().UTC()
	changed, err := s.orders.MarkPaid(ctx, order.ID, gatewayOrderID, gatewayPaymentID, gatewaySignature, paidAt)
	if err != nil {
		s.log.Error("Failed to mark order paid", zap.Error(err))
		return nil, ErrInternal
	}
	if !changed {
		// Lost a race with a concurrent callback; re-read and accept if it
		// recorded the same payment.
		current, err := s.orders.FindByID(ctx, order.ID)
		if err != nil {
			return nil, ErrInternal
		}
		if current.Status == models.OrderStatusPaid && current.RazorpayPaymentID == gatewayPaymentID {
			return current, nil
		}
		return nil, NewServiceError(http.StatusConflict, "order already paid")
	}

	order.Status = models.OrderStatusPaid
	order.PaidAt = &paidAt
	order.RazorpayOrderID = gatewayOrderID
	order.RazorpayPaymentID = gatewayPaymentID
	order.RazorpaySignature = gatewaySignature

	if s.events != nil {
		s.events.Publish(ctx, models.OrderEvent{
			Type:      "payment.verified",
			OrderID:   order.ID.Hex(),
			UserID:    order.UserID,
			Amount:    order.Amount,
			Currency:  order.Currency,
			Timestamp: paidAt,
		})
	}

	s.log.Info("Order marked paid",
		zap.String("order_id", order.ID.Hex()),
		zap.String("razorpay_payment_id", gatewayPaymentID),
	)
	return order, nil
}

// ListOrdersForUser returns the user's orders newest first, each joined with
// its line items. A since-deleted product still renders from its snapshot; only
// the image is omitted.
func (s *OrderService) ListOrdersForUser(ctx context.Context, userID string) ([]models.OrderView, *ServiceError) {
	orders, err := s.orders.FindByUser(ctx, userID)
	if err != nil {
		s.log.Error("Failed to list orders", zap.Error(err))
		return nil, ErrInternal
	}

	views := make([]models.OrderView, 0, len(orders))
	for _, order := range orders {
		items, err := s.orders.ItemsByOrder(ctx, order.ID)
		if err != nil {
			s.log.Error("Failed to load order items", zap.Error(err))
			return nil, ErrInternal
		}

		itemViews := make([]models.OrderItemView, 0, len(items))
		for _, item := range items {
			itemViews = append(itemViews, models.OrderItemView{
				OrderItem: item,
				Image:     s.resolveItemImage(ctx, item.ProductID),
			})
		}
		views = append(views, models.OrderView{Order: order, Items: itemViews})
	}
	return views, nil
}

func (s *OrderService) resolveItemImage(ctx context.Context, productID string) *string {
	if s.images == nil {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return nil
	}
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil
	}
	return s.images.Resolve(ctx, product.Image)
}

// RunJanitor periodically deletes pending orders that were left without line
// items by a crash between the two inserts.
func (s *OrderService) RunJanitor(ctx context.Context, interval, age time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.orders.SweepOrphans(ctx, age)
			if err != nil {
				s.log.Warn("Order sweep failed", zap.Error(err))
				continue
			}
			if deleted > 0 {
				s.log.Info("Swept itemless pending orders", zap.Int("deleted", deleted))
			}
		}
	}
}
