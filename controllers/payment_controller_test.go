package controllers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/deepaktraders/storefront-backend/models"
	"github.com/deepaktraders/storefront-backend/repository"
	"github.com/deepaktraders/storefront-backend/services"
)

// stubOrderRepo serves a single in-memory order for the verify flow.
type stubOrderRepo struct {
	mu    sync.Mutex
	order *models.Order
}

func (s *stubOrderRepo) CreateOrder(ctx context.Context, order *models.Order) (primitive.ObjectID, error) {
	return primitive.NewObjectID(), nil
}
func (s *stubOrderRepo) InsertItems(ctx context.Context, items []models.OrderItem) error { return nil }
func (s *stubOrderRepo) DeleteOrder(ctx context.Context, id primitive.ObjectID) error    { return nil }
func (s *stubOrderRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *s.order
	return &copied, nil
}
func (s *stubOrderRepo) FindByUser(ctx context.Context, userID string) ([]models.Order, error) {
	return nil, nil
}
func (s *stubOrderRepo) FindByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order == nil || s.order.RazorpayOrderID != razorpayOrderID {
		return nil, repository.ErrNotFound
	}
	copied := *s.order
	return &copied, nil
}
func (s *stubOrderRepo) ItemsByOrder(ctx context.Context, orderID primitive.ObjectID) ([]models.OrderItem, error) {
	return nil, nil
}
func (s *stubOrderRepo) SetGatewayOrder(ctx context.Context, id primitive.ObjectID, razorpayOrderID, receipt string) error {
	return nil
}
func (s *stubOrderRepo) MarkPaid(ctx context.Context, id primitive.ObjectID, razorpayOrderID, razorpayPaymentID, razorpaySignature string, paidAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.order == nil || s.order.ID != id || s.order.Status != models.OrderStatusPending {
		return false, nil
	}
	s.order.Status = models.OrderStatusPaid
	s.order.RazorpayPaymentID = razorpayPaymentID
	s.order.RazorpaySignature = razorpaySignature
	s.order.PaidAt = &paidAt
	return true, nil
}
func (s *stubOrderRepo) SweepOrphans(ctx context.Context, olderThan time.Duration) (int, error) {
	return 0, nil
}

// stubRemoteCarts records ReplaceItems calls so the post-payment cart clear is
// observable.
type stubRemoteCarts struct {
	mu       sync.Mutex
	replaced map[string][]models.CartItem
}

func (s *stubRemoteCarts) Get(ctx context.Context, userID string) (*models.Cart, error) {
	return nil, nil
}
func (s *stubRemoteCarts) ReplaceItems(ctx context.Context, userID string, items []models.CartItem, seq int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.replaced == nil {
		s.replaced = make(map[string][]models.CartItem)
	}
	s.replaced[userID] = items
	return nil
}
func (s *stubRemoteCarts) Clear(ctx context.Context, userID string) error { return nil }

func sign(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func verifyRouter(secret string, repo *stubOrderRepo, carts *stubRemoteCarts) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	verifier := services.NewSignatureVerifier(secret)
	orderService := services.NewOrderService(repo, nil, verifier, nil, nil, log)
	writer := services.NewRemoteCartWriter(carts, time.Hour, log)
	cartService := services.NewCartService(nil, carts, writer, log)

	pc := NewPaymentController(nil, orderService, cartService, log)

	r := gin.New()
	r.POST("/payments/verify", pc.VerifyPayment)
	return r
}

func postVerify(t *testing.T, r *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/payments/verify", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestVerifyPaymentRejectsMissingFields(t *testing.T) {
	r := verifyRouter("secret", &stubOrderRepo{}, &stubRemoteCarts{})

	cases := []map[string]string{
		{},
		{"razorpay_order_id": "order_r"},
		{"razorpay_order_id": "order_r", "razorpay_payment_id": "pay_r"},
		{"razorpay_payment_id": "pay_r", "razorpay_signature": "sig"},
	}
	for _, body := range cases {
		w := postVerify(t, r, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Missing or invalid fields"}`, w.Body.String())
	}
}

func TestVerifyPaymentReportsMissingSecret(t *testing.T) {
	r := verifyRouter("", &stubOrderRepo{}, &stubRemoteCarts{})

	w := postVerify(t, r, map[string]string{
		"razorpay_order_id":   "order_r",
		"razorpay_payment_id": "pay_r",
		"razorpay_signature":  "sig",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Server misconfiguration"}`, w.Body.String())
}

func TestVerifyPaymentRejectsBadSignature(t *testing.T) {
	r := verifyRouter("secret", &stubOrderRepo{}, &stubRemoteCarts{})

	w := postVerify(t, r, map[string]string{
		"razorpay_order_id":   "order_r",
		"razorpay_payment_id": "pay_r",
		"razorpay_signature":  "definitely-wrong",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid signature"}`, w.Body.String())
}

func TestVerifyPaymentMarksOrderPaidAndClearsCart(t *testing.T) {
	repo := &stubOrderRepo{order: &models.Order{
		ID:              primitive.NewObjectID(),
		UserID:          "u1",
		Status:          models.OrderStatusPending,
		RazorpayOrderID: "order_r",
	}}
	carts := &stubRemoteCarts{}
	r := verifyRouter("secret", repo, carts)

	w := postVerify(t, r, map[string]string{
		"razorpay_order_id":   "order_r",
		"razorpay_payment_id": "pay_r",
		"razorpay_signature":  sign("secret", "order_r", "pay_r"),
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	assert.Equal(t, models.OrderStatusPaid, repo.order.Status)
	require.Contains(t, carts.replaced, "u1")
	assert.Empty(t, carts.replaced["u1"])

	// a replayed callback stays successful and does not flip anything back
	w = postVerify(t, r, map[string]string{
		"razorpay_order_id":   "order_r",
		"razorpay_payment_id": "pay_r",
		"razorpay_signature":  sign("secret", "order_r", "pay_r"),
	})
	assert.Equal(t, http.StatusOK, w.Code)
}
