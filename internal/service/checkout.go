package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/flicky/storefront-api/internal/checkout"
	"github.com/flicky/storefront-api/internal/metrics"
	"github.com/flicky/storefront-api/internal/model"
	"github.com/flicky/storefront-api/internal/repository"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrCheckoutInProgress = errors.New("order submission already in progress")
)

// OrderPublisher announces placed orders to asynchronous consumers.
type OrderPublisher interface {
	PublishOrderPlaced(ctx context.Context, msg model.OrderMessage) error
}

// HistoryInvalidator drops a user's cached order history.
type HistoryInvalidator interface {
	InvalidateHistory(ctx context.Context, userID uuid.UUID) error
}

// defaultPersistTimeout bounds the order insert when no timeout is configured.
const defaultPersistTimeout = 10 * time.Second

// CheckoutState is what the review step shows: sequencer position plus the
// live cart it will snapshot.
type CheckoutState struct {
	Sequencer *checkout.Sequencer
	Cart      *model.Cart
}

type CheckoutService struct {
	checkoutRepo repository.CheckoutRepository
	cartRepo     repository.CartRepository
	orderRepo    repository.OrderRepository
	history      HistoryInvalidator
	publisher    OrderPublisher
	log          *slog.Logger

	persistTimeout time.Duration
}

func NewCheckoutService(
	checkoutRepo repository.CheckoutRepository,
	cartRepo repository.CartRepository,
	orderRepo repository.OrderRepository,
	history HistoryInvalidator,
	publisher OrderPublisher,
	log *slog.Logger,
) *CheckoutService {
	return &CheckoutService{
		checkoutRepo:   checkoutRepo,
		cartRepo:       cartRepo,
		orderRepo:      orderRepo,
		history:        history,
		publisher:      publisher,
		log:            log,
		persistTimeout: defaultPersistTimeout,
	}
}

// SetPersistTimeout bounds the order insert. It must stay below the
// in-flight lock TTL so a slow insert cannot outlive its lock.
func (s *CheckoutService) SetPersistTimeout(d time.Duration) {
	if d > 0 {
		s.persistTimeout = d
	}
}

func (s *CheckoutService) State(ctx context.Context, sessionID string) (*CheckoutState, error) {
	seq, err := s.checkoutRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get checkout: %w", err)
	}
	cart, err := s.cartRepo.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return &CheckoutState{Sequencer: seq, Cart: cart}, nil
}

func (s *CheckoutService) SubmitAddress(ctx context.Context, sessionID string, addr model.Address) (*CheckoutState, error) {
	return s.advance(ctx, sessionID, true, func(seq *checkout.Sequencer) error { return seq.SubmitAddress(addr) })
}

func (s *CheckoutService) SubmitPayment(ctx context.Context, sessionID string, p checkout.Payment) (*CheckoutState, error) {
	return s.advance(ctx, sessionID, true, func(seq *checkout.Sequencer) error { return seq.SubmitPayment(p) })
}

func (s *CheckoutService) Back(ctx context.Context, sessionID string) (*CheckoutState, error) {
	return s.advance(ctx, sessionID, false, func(seq *checkout.Sequencer) error {
		seq.Back()
		return nil
	})
}

// Cancel abandons the flow. The cart itself is kept.
func (s *CheckoutService) Cancel(ctx context.Context, sessionID string) error {
	return s.checkoutRepo.Reset(ctx, sessionID)
}

func (s *CheckoutService) advance(ctx context.Context, sessionID string, needItems bool, step func(*checkout.Sequencer) error) (*CheckoutState, error) {
	state, err := s.State(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if needItems && state.Cart.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if err := step(state.Sequencer); err != nil {
		return nil, err
	}
	if err := s.checkoutRepo.Save(ctx, sessionID, state.Sequencer); err != nil {
		return nil, fmt.Errorf("save checkout: %w", err)
	}
	return state, nil
}

// PlaceOrder turns the reviewed cart into an order. Nothing in the session
// changes unless the order was persisted.
func (s *CheckoutService) PlaceOrder(ctx context.Context, sessionID string, userID uuid.UUID) (*model.Order, error) {
	token, locked, err := s.checkoutRepo.Lock(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("acquire checkout lock: %w", err)
	}
	if !locked {
		metrics.OrderFailures.WithLabelValues("in_progress").Inc()
		return nil, ErrCheckoutInProgress
	}
	defer func() {
		if err := s.checkoutRepo.Unlock(context.WithoutCancel(ctx), sessionID, token); err != nil {
			s.log.Error("release checkout lock", "session_id", sessionID, "error", err)
		}
	}()

	state, err := s.State(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	address, err := state.Sequencer.ReadyToConfirm()
	if err != nil {
		metrics.OrderFailures.WithLabelValues("step").Inc()
		return nil, err
	}
	if state.Cart.IsEmpty() {
		metrics.OrderFailures.WithLabelValues("empty_cart").Inc()
		return nil, ErrEmptyCart
	}

	order := &model.Order{
		UserID:          userID,
		Items:           state.Cart.Snapshot(),
		Total:           state.Cart.Subtotal(),
		ShippingAddress: address,
	}
	if err := s.persist(ctx, order); err != nil {
		metrics.OrderFailures.WithLabelValues("persist").Inc()
		return nil, fmt.Errorf("create order: %w", err)
	}
	metrics.OrdersPlaced.Inc()

	log := s.log.With("order_id", order.ID, "user_id", userID)

	// The order exists from here on; session cleanup failures are logged only.
	if err := s.cartRepo.Clear(ctx, sessionID); err != nil {
		log.Error("clear cart after order", "error", err)
	}
	if err := s.checkoutRepo.Reset(ctx, sessionID); err != nil {
		log.Error("reset checkout after order", "error", err)
	}
	if s.history != nil {
		if err := s.history.InvalidateHistory(ctx, userID); err != nil {
			log.Error("invalidate order history", "error", err)
		}
	}
	if s.publisher != nil {
		msg := model.OrderMessage{OrderID: order.ID, UserID: userID, Total: order.Total}
		if err := s.publisher.PublishOrderPlaced(ctx, msg); err != nil {
			log.Error("publish order placed", "error", err)
		}
	}

	log.Info("order placed", "total", order.Total.String(), "items", len(order.Items))
	return order, nil
}

func (s *CheckoutService) persist(ctx context.Context, order *model.Order) error {
	ctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()
	return s.orderRepo.Create(ctx, order)
}
