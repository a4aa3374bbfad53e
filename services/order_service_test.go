package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/deepaktraders/storefront-backend/models"
)

type MockOrderRepository struct{ mock.Mock }

func (m *MockOrderRepository) CreateOrder(ctx context.Context, order *models.Order) (primitive.ObjectID, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}
func (m *MockOrderRepository) InsertItems(ctx context.Context, items []models.OrderItem) error {
	args := m.Called(ctx, items)
	return args.Error(0)
}
func (m *MockOrderRepository) DeleteOrder(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockOrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}
func (m *MockOrderRepository) FindByUser(ctx context.Context, userID string) ([]models.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Order), args.Error(1)
}
func (m *MockOrderRepository) FindByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*models.Order, error) {
	args := m.Called(ctx, razorpayOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}
func (m *MockOrderRepository) ItemsByOrder(ctx context.Context, orderID primitive.ObjectID) ([]models.OrderItem, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.OrderItem), args.Error(1)
}
func (m *MockOrderRepository) SetGatewayOrder(ctx context.Context, id primitive.ObjectID, razorpayOrderID, receipt string) error {
	args := m.Called(ctx, id, razorpayOrderID, receipt)
	return args.Error(0)
}
func (m *MockOrderRepository) MarkPaid(ctx context.Context, id primitive.ObjectID, razorpayOrderID, razorpayPaymentID, razorpaySignature string, paidAt time.Time) (bool, error) {
	args := m.Called(ctx, id, razorpayOrderID, razorpayPaymentID, razorpaySignature, paidAt)
	return args.Bool(0), args.Error(1)
}
func (m *MockOrderRepository) SweepOrphans(ctx context.Context, olderThan time.Duration) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Int(0), args.Error(1)
}

type MockProductRepository struct{ mock.Mock }

func (m *MockProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}
func (m *MockProductRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}
func (m *MockProductRepository) List(ctx context.Context, page, perPage int) ([]models.Product, int64, error) {
	args := m.Called(ctx, page, perPage)
	return args.Get(0).([]models.Product), args.Get(1).(int64), args.Error(2)
}
func (m *MockProductRepository) Search(ctx context.Context, term string, page, perPage int) ([]models.Product, int64, error) {
	args := m.Called(ctx, term, page, perPage)
	return args.Get(0).([]models.Product), args.Get(1).(int64), args.Error(2)
}
func (m *MockProductRepository) FindByCategory(ctx context.Context, categoryID primitive.ObjectID, limit int) ([]models.Product, error) {
	args := m.Called(ctx, categoryID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}
func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) (primitive.ObjectID, error) {
	args := m.Called(ctx, product)
	return args.Get(0).(primitive.ObjectID), args.Error(1)
}
func (m *MockProductRepository) Update(ctx context.Context, id primitive.ObjectID, updates bson.M) error {
	args := m.Called(ctx, id, updates)
	return args.Error(0)
}
func (m *MockProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type stubVerifier struct {
	ok  bool
	err error
}

func (s stubVerifier) Verify(gatewayOrderID, gatewayPaymentID, claimed string) (bool, error) {
	return s.ok, s.err
}

func newOrderFixture(verifier PaymentVerifier) (*OrderService, *MockOrderRepository, *MockProductRepository) {
	orders := new(MockOrderRepository)
	products := new(MockProductRepository)
	svc := NewOrderService(orders, products, verifier, nil, nil, zap.NewNop())
	return svc, orders, products
}

func TestCreateOrderComputesAmountFromStoredPrices(t *testing.T) {
	svc, orders, products := newOrderFixture(stubVerifier{})
	ctx := context.Background()

	p1 := models.Product{ID: primitive.NewObjectID(), Name: "Rice 5kg", Price: 450}
	p2 := models.Product{ID: primitive.NewObjectID(), Name: "Dal 1kg", Price: 120.50}

	products.On("FindByIDs", ctx, mock.Anything).Return([]models.Product{p1, p2}, nil)

	orderID := primitive.NewObjectID()
	orders.On("CreateOrder", ctx, mock.Anything).Return(orderID, nil)
	orders.On("InsertItems", ctx, mock.Anything).Return(nil)

	order, svcErr := svc.CreateOrder(ctx, "u1", []CheckoutItem{
		{ProductID: p1.ID.Hex(), Qty: 2},
		{ProductID: p2.ID.Hex(), Qty: 1},
	}, models.ShippingAddress{Name: "A"})
	require.Nil(t, svcErr)

	assert.Equal(t, 2*450+120.50, order.Amount)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "INR", order.Currency)
	assert.Equal(t, orderID, order.ID)

	// line items snapshot the price and name at purchase time
	inserted := orders.Calls[1].Arguments.Get(1).([]models.OrderItem)
	require.Len(t, inserted, 2)
	assert.Equal(t, "Rice 5kg", inserted[0].Name)
	assert.Equal(t, 450.0, inserted[0].Price)
	assert.Equal(t, orderID, inserted[0].OrderID)
}

func TestCreateOrderAbortsWhenAnyProductIsMissing(t *testing.T) {
	svc, orders, products := newOrderFixture(stubVerifier{})
	ctx := context.Background()

	known := models.Product{ID: primitive.NewObjectID(), Name: "Rice", Price: 100}
	missing := primitive.NewObjectID()

	products.On("FindByIDs", ctx, mock.Anything).Return([]models.Product{known}, nil)

	_, svcErr := svc.CreateOrder(ctx, "u1", []CheckoutItem{
		{ProductID: known.ID.Hex(), Qty: 1},
		{ProductID: missing.Hex(), Qty: 1},
	}, models.ShippingAddress{})

	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)
	orders.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestCreateOrderRejectsEmptyAndInvalidLines(t *testing.T) {
	svc, _, _ := newOrderFixture(stubVerifier{})
	ctx := context.Background()

	_, svcErr := svc.CreateOrder(ctx, "u1", nil, models.ShippingAddress{})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)

	_, svcErr = svc.CreateOrder(ctx, "u1", []CheckoutItem{{ProductID: "p", Qty: 0}}, models.ShippingAddress{})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
}

func TestCreateOrderRollsBackWhenItemInsertFails(t *testing.T) {
	svc, orders, products := newOrderFixture(stubVerifier{})
	ctx := context.Background()

	p := models.Product{ID: primitive.NewObjectID(), Name: "Rice", Price: 100}
	products.On("FindByIDs", ctx, mock.Anything).Return([]models.Product{p}, nil)

	orderID := primitive.NewObjectID()
	orders.On("CreateOrder", ctx, mock.Anything).Return(orderID, nil)
	orders.On("InsertItems", ctx, mock.Anything).Return(errors.New("write failed"))
	orders.On("DeleteOrder", ctx, orderID).Return(nil)

	_, svcErr := svc.CreateOrder(ctx, "u1", []CheckoutItem{{ProductID: p.ID.Hex(), Qty: 1}}, models.ShippingAddress{})
	require.NotNil(t, svcErr)
	orders.AssertCalled(t, "DeleteOrder", ctx, orderID)
}

func TestVerifyRejectsInvalidSignatureWithoutTouchingOrder(t *testing.T) {
	svc, orders, _ := newOrderFixture(stubVerifier{ok: false})

	_, svcErr := svc.VerifyAndMarkPaid(context.Background(), "order_r", "pay_r", "bad")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	assert.Equal(t, "Invalid signature", svcErr.Message)
	orders.AssertNotCalled(t, "FindByRazorpayOrderID", mock.Anything, mock.Anything)
}

func TestVerifyReportsMisconfiguredSecret(t *testing.T) {
	svc, _, _ := newOrderFixture(stubVerifier{err: ErrSecretMissing})

	_, svcErr := svc.VerifyAndMarkPaid(context.Background(), "order_r", "pay_r", "sig")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusInternalServerError, svcErr.StatusCode)
	assert.Equal(t, "Server misconfiguration", svcErr.Message)
}

func TestVerifyMarksPendingOrderPaid(t *testing.T) {
	svc, orders, _ := newOrderFixture(stubVerifier{ok: true})
	ctx := context.Background()

	order := &models.Order{
		ID:     primitive.NewObjectID(),
		UserID: "u1",
		Amount: 570.50,
		Status: models.OrderStatusPending,
	}
	orders.On("FindByRazorpayOrderID", ctx, "order_r").Return(order, nil)
	orders.On("MarkPaid", ctx, order.ID, "order_r", "pay_r", "sig", mock.Anything).Return(true, nil)

	paid, svcErr := svc.VerifyAndMarkPaid(ctx, "order_r", "pay_r", "sig")
	require.Nil(t, svcErr)

	assert.Equal(t, models.OrderStatusPaid, paid.Status)
	assert.Equal(t, "pay_r", paid.RazorpayPaymentID)
	require.NotNil(t, paid.PaidAt)
}

func TestVerifyReplayOfPaidOrderIsIdempotent(t *testing.T) {
	svc, orders, _ := newOrderFixture(stubVerifier{ok: true})
	ctx := context.Background()

	paidAt := time.Now().UTC().Add(-time.Minute)
	order := &models.Order{
		ID:                primitive.NewObjectID(),
		UserID:            "u1",
		Status:            models.OrderStatusPaid,
		RazorpayPaymentID: "pay_r",
		PaidAt:            &paidAt,
	}
	orders.On("FindByRazorpayOrderID", ctx, "order_r").Return(order, nil)

	replayed, svcErr := svc.VerifyAndMarkPaid(ctx, "order_r", "pay_r", "sig")
	require.Nil(t, svcErr)

	// the original payment record is untouched
	assert.Equal(t, paidAt, *replayed.PaidAt)
	orders.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestVerifyRejectsConflictingPaymentOnPaidOrder(t *testing.T) {
	svc, orders, _ := newOrderFixture(stubVerifier{ok: true})
	ctx := context.Background()

	order := &models.Order{
		ID:                primitive.NewObjectID(),
		Status:            models.OrderStatusPaid,
		RazorpayPaymentID: "pay_original",
	}
	orders.On("FindByRazorpayOrderID", ctx, "order_r").Return(order, nil)

	_, svcErr := svc.VerifyAndMarkPaid(ctx, "order_r", "pay_other", "sig")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusConflict, svcErr.StatusCode)
}

func TestListOrdersRendersSnapshotsForDeletedProducts(t *testing.T) {
	svc, orders, _ := newOrderFixture(stubVerifier{})
	ctx := context.Background()

	order := models.Order{ID: primitive.NewObjectID(), UserID: "u1", Status: models.OrderStatusPaid}
	orders.On("FindByUser", ctx, "u1").Return([]models.Order{order}, nil)
	orders.On("ItemsByOrder", ctx, order.ID).Return([]models.OrderItem{
		{OrderID: order.ID, ProductID: primitive.NewObjectID().Hex(), Name: "Gone Product", Price: 99, Quantity: 1},
	}, nil)

	views, svcErr := svc.ListOrdersForUser(ctx, "u1")
	require.Nil(t, svcErr)
	require.Len(t, views, 1)
	require.Len(t, views[0].Items, 1)

	// the snapshot still renders, only the live image is absent
	assert.Equal(t, "Gone Product", views[0].Items[0].Name)
	assert.Equal(t, 99.0, views[0].Items[0].Price)
	assert.Nil(t, views[0].Items[0].Image)
}
