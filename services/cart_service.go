package services

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/deepaktraders/storefront-backend/models"
	"github.com/deepaktraders/storefront-backend/repository"
)

// MergeMode selects how overlapping lines combine when two carts merge.
type MergeMode string

const (
	MergeSum     MergeMode = "sum"
	MergeReplace MergeMode = "replace"
)

// CartService decides which cart store is authoritative for a request and
// reconciles the guest and remote carts when the caller's identity changes.
// The remote cart is authoritative whenever a principal is present, the guest
// cart otherwise.
type CartService struct {
	guest  repository.GuestCartRepository
	remote repository.CartRepository
	writer *RemoteCartWriter
	log    *zap.Logger
}

func NewCartService(guest repository.GuestCartRepository, remote repository.CartRepository, writer *RemoteCartWriter, log *zap.Logger) *CartService {
	return &CartService{guest: guest, remote: remote, writer: writer, log: log}
}

// ActiveCart returns the authoritative cart's items. It never blocks on a
// pending debounced write: the latest enqueued state is returned directly.
func (s *CartService) ActiveCart(ctx context.Context, principal *models.Principal, token string) ([]models.CartItem, *ServiceError) {
	if principal != nil {
		if items, ok := s.writer.Pending(principal.UserID); ok {
			return items, nil
		}
		cart, err := s.remote.Get(ctx, principal.UserID)
		if err != nil {
			s.log.Error("Failed to load remote cart", zap.Error(err))
			return nil, ErrInternal
		}
		if cart == nil {
			return []models.CartItem{}, nil
		}
		return cart.Items, nil
	}

	items, err := s.guest.GetCart(ctx, token)
	if err != nil {
		s.log.Error("Failed to load guest cart", zap.Error(err))
		return nil, ErrInternal
	}
	if items == nil {
		items = []models.CartItem{}
	}
	return items, nil
}

// AddItem adds delta units of a product, clamping the line at the cap.
func (s *CartService) AddItem(ctx context.Context, principal *models.Principal, token, productID string, delta int) ([]models.CartItem, *ServiceError) {
	if productID == "" || delta < 1 {
		return nil, NewServiceError(http.StatusBadRequest, "invalid item")
	}
	return s.mutate(ctx, principal, token, func(items []models.CartItem) []models.CartItem {
		for i, item := range items {
			if item.ProductID == productID {
				items[i].Qty = clampQty(item.Qty + delta)
				return items
			}
		}
		return append(items, models.CartItem{ProductID: productID, Qty: clampQty(delta)})
	})
}

// SetQty replaces a line's quantity; zero or less removes the line.
func (s *CartService) SetQty(ctx context.Context, principal *models.Principal, token, productID string, qty int) ([]models.CartItem, *ServiceError) {
	if productID == "" {
		return nil, NewServiceError(http.StatusBadRequest, "invalid item")
	}
	if qty <= 0 {
		return s.RemoveItem(ctx, principal, token, productID)
	}
	return s.mutate(ctx, principal, token, func(items []models.CartItem) []models.CartItem {
		for i, item := range items {
			if item.ProductID == productID {
				items[i].Qty = clampQty(qty)
				return items
			}
		}
		return append(items, models.CartItem{ProductID: productID, Qty: clampQty(qty)})
	})
}

// RemoveItem drops a line; removing an absent product is a no-op.
func (s *CartService) RemoveItem(ctx context.Context, principal *models.Principal, token, productID string) ([]models.CartItem, *ServiceError) {
	return s.mutate(ctx, principal, token, func(items []models.CartItem) []models.CartItem {
		out := items[:0]
		for _, item := range items {
			if item.ProductID != productID {
				out = append(out, item)
			}
		}
		return out
	})
}

// Clear empties the active cart.
func (s *CartService) Clear(ctx context.Context, principal *models.Principal, token string) *ServiceError {
	if principal != nil {
		if err := s.writer.WriteNow(ctx, principal.UserID, nil); err != nil {
			s.log.Error("Failed to clear remote cart", zap.Error(err))
			return ErrInternal
		}
		return nil
	}
	if err := s.guest.DeleteCart(ctx, token); err != nil {
		s.log.Error("Failed to clear guest cart", zap.Error(err))
		return ErrInternal
	}
	return nil
}

// ClearRemote empties a user's server cart. Used after a verified payment,
// where the order rows already hold the authoritative purchase record.
func (s *CartService) ClearRemote(ctx context.Context, userID string) error {
	return s.writer.WriteNow(ctx, userID, nil)
}

func (s *CartService) mutate(ctx context.Context, principal *models.Principal, token string, apply func([]models.CartItem) []models.CartItem) ([]models.CartItem, *ServiceError) {
	items, svcErr := s.ActiveCart(ctx, principal, token)
	if svcErr != nil {
		return nil, svcErr
	}
	items = apply(items)

	if principal != nil {
		// Remote writes are debounced; the pending state serves reads meanwhile.
		s.writer.Enqueue(principal.UserID, items)
		return items, nil
	}
	if err := s.guest.SaveCart(ctx, token, items); err != nil {
		s.log.Error("Failed to save guest cart", zap.Error(err))
		return nil, ErrInternal
	}
	return items, nil
}

// Merge combines two carts into one. Output order is a's insertion order
// followed by b's lines that were not already present. With MergeSum
// quantities add; with MergeReplace b's quantities win.
func (s *CartService) Merge(a, b []models.CartItem, mode MergeMode) []models.CartItem {
	order := make([]string, 0, len(a)+len(b))
	qty := make(map[string]int, len(a)+len(b))

	for _, item := range a {
		if _, ok := qty[item.ProductID]; !ok {
			order = append(order, item.ProductID)
		}
		qty[item.ProductID] = item.Qty
	}
	for _, item := range b {
		cur, ok := qty[item.ProductID]
		if !ok {
			order = append(order, item.ProductID)
			qty[item.ProductID] = item.Qty
			continue
		}
		if mode == MergeSum {
			qty[item.ProductID] = cur + item.Qty
		} else {
			qty[item.ProductID] = item.Qty
		}
	}

	merged := make([]models.CartItem, 0, len(order))
	for _, pid := range order {
		q := clampQty(qty[pid])
		if q < 1 {
			continue
		}
		merged = append(merged, models.CartItem{ProductID: pid, Qty: q})
	}
	return merged
}

// Sync reconciles the two stores after an identity transition. The previous
// principal is tracked explicitly per cart session, so exactly one merge fires
// per transition no matter how often Sync is called.
func (s *CartService) Sync(ctx context.Context, token string, principal *models.Principal) ([]models.CartItem, *ServiceError) {
	cur := ""
	if principal != nil {
		cur = principal.UserID
	}

	prev, err := s.guest.LastPrincipal(ctx, token)
	if err != nil {
		s.log.Error("Failed to read last principal", zap.Error(err))
		return nil, ErrInternal
	}

	if cur != prev {
		switch {
		case cur != "":
			// Anonymous (or another account) became this user: fold the guest
			// cart into the user's remote cart.
			if svcErr := s.mergeOnLogin(ctx, token, cur); svcErr != nil {
				return nil, svcErr
			}
		case prev != "":
			// Logout: the remote cart is about to become unreachable, hand its
			// contents to the guest cart wholesale.
			if svcErr := s.handoffOnLogout(ctx, token, prev); svcErr != nil {
				return nil, svcErr
			}
		}
		if err := s.guest.SetLastPrincipal(ctx, token, cur); err != nil {
			s.log.Error("Failed to record principal transition", zap.Error(err))
			return nil, ErrInternal
		}
	}

	return s.ActiveCart(ctx, principal, token)
}

func (s *CartService) mergeOnLogin(ctx context.Context, token, userID string) *ServiceError {
	guestItems, err := s.guest.GetCart(ctx, token)
	if err != nil {
		s.log.Error("Failed to load guest cart for merge", zap.Error(err))
		return ErrInternal
	}
	if len(guestItems) == 0 {
		return nil
	}

	var remoteItems []models.CartItem
	if pending, ok := s.writer.Pending(userID); ok {
		remoteItems = pending
	} else {
		cart, err := s.remote.Get(ctx, userID)
		if err != nil {
			s.log.Error("Failed to load remote cart for merge", zap.Error(err))
			return ErrInternal
		}
		if cart != nil {
			remoteItems = cart.Items
		}
	}

	merged := s.Merge(guestItems, remoteItems, MergeSum)

	// The guest cart is only cleared once the remote write is confirmed, so a
	// failed write cannot lose items.
	if err := s.writer.WriteNow(ctx, userID, merged); err != nil {
		s.log.Error("Failed to write merged cart", zap.Error(err))
		return ErrInternal
	}
	if err := s.guest.DeleteCart(ctx, token); err != nil {
		s.log.Warn("Failed to clear guest cart after merge", zap.Error(err))
	}
	s.log.Info("Merged guest cart into remote cart",
		zap.String("user_id", userID),
		zap.Int("lines", len(merged)),
	)
	return nil
}

func (s *CartService) handoffOnLogout(ctx context.Context, token, prevUserID string) *ServiceError {
	var remoteItems []models.CartItem
	if pending, ok := s.writer.Pending(prevUserID); ok {
		remoteItems = pending
	} else {
		cart, err := s.remote.Get(ctx, prevUserID)
		if err != nil {
			s.log.Error("Failed to load remote cart for handoff", zap.Error(err))
			return ErrInternal
		}
		if cart != nil {
			remoteItems = cart.Items
		}
	}
	if len(remoteItems) == 0 {
		return nil
	}

	handoff := s.Merge(nil, remoteItems, MergeReplace)
	if err := s.guest.SaveCart(ctx, token, handoff); err != nil {
		s.log.Error("Failed to hand remote cart to guest", zap.Error(err))
		return ErrInternal
	}
	return nil
}

func clampQty(q int) int {
	if q > models.MaxQty {
		return models.MaxQty
	}
	return q
}
