package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/builderhub/checkout/internal/core/domain"
	"github.com/builderhub/checkout/internal/payment"
	"github.com/builderhub/checkout/internal/port"
)

const (
	defaultCurrency       = "USD"
	defaultConversionRate = 300
	// minCaptureAmount is the smallest amount the payment provider
	// will capture, in the payment currency's minor-unit precision.
	minCaptureAmount = 0.01
	// defaultAttemptRetention keeps resolved attempts queryable for
	// late status polls before they are dropped from the registry.
	defaultAttemptRetention = time.Hour
)

// Config carries the checkout tunables. ConversionRate divides the
// listing-currency total into the payment currency; a production
// deployment would feed this from a rate source instead of a constant.
type Config struct {
	Currency       string
	ConversionRate float64
	// AttemptRetention bounds how long resolved attempts stay in the
	// registry. Pending attempts are never evicted.
	AttemptRetention time.Duration
}

// PurchaseRequest is the buyer's input to the order placement
// workflow. Item is the snapshot the buyer saw; stock is re-validated
// against the store at commit time.
type PurchaseRequest struct {
	Item          domain.Item
	BuyerID       string
	Quantity      int
	Address       string
	ContactNumber string
	PaymentMethod domain.PaymentMethod
}

type AttemptState string

const (
	AttemptPendingPayment AttemptState = "pending_payment"
	AttemptSucceeded      AttemptState = "succeeded"
	AttemptCancelled      AttemptState = "cancelled"
	AttemptFailed         AttemptState = "failed"
)

// Attempt tracks one purchase from request to terminal state. PayPal
// attempts stay pending until the widget reports an outcome; there is
// no timeout on that suspension, only an explicit cancel resolves an
// abandoned attempt.
type Attempt struct {
	ID     string
	Widget payment.WidgetConfig

	req   PurchaseRequest
	total float64

	mu    sync.Mutex
	state AttemptState
	order *domain.Order
	err   error
	done  chan struct{}
}

func (a *Attempt) State() AttemptState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Order returns the created order once the attempt succeeded.
func (a *Attempt) Order() *domain.Order {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.order
}

// Err returns the terminal error: ErrPaymentCancelled for a cancelled
// attempt, the failure cause for a failed one, nil otherwise.
func (a *Attempt) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Wait blocks until the attempt reaches a terminal state or the
// context is done.
func (a *Attempt) Wait(ctx context.Context) error {
	select {
	case <-a.done:
		return a.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// resolveLocked transitions to a terminal state. Caller holds a.mu.
func (a *Attempt) resolveLocked(state AttemptState, order *domain.Order, err error) {
	a.state = state
	a.order = order
	a.err = err
	close(a.done)
}

// CheckoutService runs the order placement workflow: validate buyer
// input, branch on payment method, decrement stock, persist the order,
// notify the seller. Stock is only ever mutated through the store's
// conditional decrement, and every mutation for an attempt happens at
// most once.
type CheckoutService struct {
	db       port.DatabaseRepository
	cache    port.CacheRepository
	notifier *Notifier
	cfg      Config
	logger   *slog.Logger

	mu       sync.Mutex
	attempts map[string]*Attempt
}

func NewCheckoutService(db port.DatabaseRepository, cache port.CacheRepository, notifier *Notifier, cfg Config, logger *slog.Logger) *CheckoutService {
	if cfg.Currency == "" {
		cfg.Currency = defaultCurrency
	}
	if cfg.ConversionRate <= 0 {
		cfg.ConversionRate = defaultConversionRate
	}
	if cfg.AttemptRetention <= 0 {
		cfg.AttemptRetention = defaultAttemptRetention
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutService{
		db:       db,
		cache:    cache,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		attempts: make(map[string]*Attempt),
	}
}

// PlaceOrder validates the request and starts a purchase attempt.
// Cash-on-delivery commits before returning, so the returned attempt
// is terminal. PayPal returns a pending attempt whose Widget config
// must be handed to the embedded capture widget; the attempt resolves
// through HandleWidgetMessage. Validation failures return a
// *ValidationError and issue no writes.
func (s *CheckoutService) PlaceOrder(ctx context.Context, req PurchaseRequest) (*Attempt, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	a := &Attempt{
		ID:    uuid.NewString(),
		req:   req,
		total: round2(req.Item.Price * float64(req.Quantity)),
		state: AttemptPendingPayment,
		done:  make(chan struct{}),
	}

	switch req.PaymentMethod {
	case domain.PaymentCashOnDelivery:
		s.register(a)
		a.mu.Lock()
		defer a.mu.Unlock()
		order, err := s.commit(ctx, a, "")
		if err != nil {
			a.resolveLocked(AttemptFailed, nil, err)
			s.retire(a)
			return a, err
		}
		a.resolveLocked(AttemptSucceeded, order, nil)
		s.retire(a)
		return a, nil

	case domain.PaymentPayPal:
		converted := round2(a.total / s.cfg.ConversionRate)
		if converted < minCaptureAmount {
			return nil, &ValidationError{Reason: "order total is below the online payment minimum"}
		}
		a.Widget = payment.WidgetConfig{
			AttemptID:   a.ID,
			Amount:      strconv.FormatFloat(converted, 'f', 2, 64),
			Currency:    s.cfg.Currency,
			Description: fmt.Sprintf("%s x%d", req.Item.Name, req.Quantity),
		}
		s.register(a)
		s.logger.Info("awaiting payment capture",
			"attempt", a.ID, "item", req.Item.ID, "amount", a.Widget.Amount)
		return a, nil

	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unsupported payment method %q", req.PaymentMethod)}
	}
}

// HandleWidgetMessage applies one outcome message from the embedded
// widget to a pending attempt. Debug messages are ignored. The first
// terminal message wins; any later message fails with
// ErrAttemptResolved, so a cancel racing an in-flight capture resolves
// deterministically and never triggers a second stock decrement.
func (s *CheckoutService) HandleWidgetMessage(ctx context.Context, attemptID string, msg payment.Message) (*Attempt, error) {
	s.mu.Lock()
	a, ok := s.attempts[attemptID]
	s.mu.Unlock()
	if !ok {
		return nil, ErrAttemptNotFound
	}

	if !msg.Terminal() {
		s.logger.Debug("ignoring non-terminal widget message", "attempt", attemptID, "status", msg.Status)
		return a, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != AttemptPendingPayment {
		return a, ErrAttemptResolved
	}

	switch msg.Status {
	case payment.StatusSuccess:
		order, err := s.commit(ctx, a, msg.OrderID)
		if err != nil {
			a.resolveLocked(AttemptFailed, nil, err)
			s.retire(a)
			return a, err
		}
		a.resolveLocked(AttemptSucceeded, order, nil)
		s.retire(a)
		return a, nil

	case payment.StatusCancel:
		a.resolveLocked(AttemptCancelled, nil, ErrPaymentCancelled)
		s.retire(a)
		s.logger.Info("payment cancelled by user", "attempt", a.ID)
		return a, nil

	case payment.StatusError:
		perr := &PaymentError{Message: msg.Error}
		a.resolveLocked(AttemptFailed, nil, perr)
		s.retire(a)
		s.logger.Warn("payment widget error", "attempt", a.ID, "error", msg.Error)
		return a, perr

	default:
		return a, fmt.Errorf("unrecognized widget status %q", msg.Status)
	}
}

// Attempt looks up a purchase attempt by id.
func (s *CheckoutService) Attempt(attemptID string) (*Attempt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[attemptID]
	return a, ok
}

func (s *CheckoutService) register(a *Attempt) {
	s.mu.Lock()
	s.attempts[a.ID] = a
	s.mu.Unlock()
}

// retire drops a resolved attempt from the registry once the retention
// window passes, so late status polls still see the terminal state but
// the registry does not grow for the life of the process.
func (s *CheckoutService) retire(a *Attempt) {
	time.AfterFunc(s.cfg.AttemptRetention, func() {
		s.mu.Lock()
		delete(s.attempts, a.ID)
		s.mu.Unlock()
	})
}

// commit performs the mutation sequence for a validated attempt:
// idempotency guard, conditional stock decrement, order insert,
// notification enqueue, strictly in that order. paymentRef is empty
// for cash on delivery. Caller holds a.mu.
func (s *CheckoutService) commit(ctx context.Context, a *Attempt, paymentRef string) (*domain.Order, error) {
	req := a.req

	ok, err := s.cache.SetIdempotency(ctx, "attempt:"+a.ID)
	if err != nil {
		if paymentRef != "" {
			return nil, fmt.Errorf("%w: payment %s captured, idempotency check failed: %v", ErrOrderIncomplete, paymentRef, err)
		}
		return nil, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		return nil, ErrAttemptResolved
	}

	ok, err = s.db.DecrementStock(ctx, req.Item.ID, req.Quantity)
	if err != nil {
		if paymentRef != "" {
			return nil, fmt.Errorf("%w: payment %s captured, stock decrement failed: %v", ErrOrderIncomplete, paymentRef, err)
		}
		return nil, fmt.Errorf("stock decrement failed: %w", err)
	}
	if !ok {
		if paymentRef != "" {
			// Capture already happened; the buyer paid for stock
			// that is gone. Operator follow-up required.
			return nil, fmt.Errorf("%w: payment %s captured but stock was insufficient", ErrOrderIncomplete, paymentRef)
		}
		return nil, ErrInsufficientStock
	}

	if invErr := s.cache.InvalidateItem(ctx, req.Item.ID); invErr != nil {
		s.logger.Warn("item cache invalidation failed", "item", req.Item.ID, "error", invErr)
	}

	order := domain.Order{
		ID:            uuid.NewString(),
		ItemID:        req.Item.ID,
		ItemName:      req.Item.Name,
		SellerID:      req.Item.OwnerID,
		BuyerID:       req.BuyerID,
		Quantity:      req.Quantity,
		TotalPrice:    a.total,
		PaymentMethod: req.PaymentMethod,
		Status:        domain.OrderStatusPending,
		Address:       strings.TrimSpace(req.Address),
		ContactNumber: digitsOf(req.ContactNumber),
		PaymentRef:    paymentRef,
		CreatedAt:     time.Now(),
	}

	if err := s.db.CreateOrder(ctx, order); err != nil {
		if rbErr := s.db.IncrementStock(ctx, req.Item.ID, req.Quantity); rbErr != nil {
			s.logger.Error("CRITICAL stock rollback failed",
				"item", req.Item.ID, "attempt", a.ID, "error", rbErr)
			return nil, fmt.Errorf("%w: order write failed and stock rollback failed: %v", ErrOrderIncomplete, err)
		}
		if paymentRef != "" {
			return nil, fmt.Errorf("%w: payment %s captured, order write failed: %v", ErrOrderIncomplete, paymentRef, err)
		}
		return nil, fmt.Errorf("order create failed: %w", err)
	}

	s.notifier.OrderPlaced(order)
	s.logger.Info("order placed",
		"order", order.ID, "item", order.ItemID, "buyer", order.BuyerID,
		"method", order.PaymentMethod, "total", order.TotalPrice)

	return &order, nil
}
