// Package checkout sequences a buyer checkout: validate input,
// initiate the M-Pesa STK push, wait for confirmation, create the
// order, clear the cart. The two remote halves are not transactionally
// linked; the orchestrator's job is strict sequencing and honest
// reporting when the halves disagree.
package checkout

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/kukuhub/storefront/internal/auth"
	"github.com/kukuhub/storefront/internal/backend"
	"github.com/kukuhub/storefront/internal/domain"
	"github.com/kukuhub/storefront/internal/notify"
)

type State string

const (
	StateIdle                 State = "idle"
	StateValidatingInput      State = "validating_input"
	StateAwaitingInitiation   State = "awaiting_payment_initiation"
	StateAwaitingConfirmation State = "awaiting_payment_confirmation"
	StateCreatingOrder        State = "creating_order"
	StateCompleted            State = "completed"
	StateFailed               State = "failed"
)

const minPhoneLength = 10

// Outcome is what one checkout run produced. Exactly one of Order and
// Failure is set unless the run was cancelled before any side effect.
type Outcome struct {
	State   State
	Order   *domain.Order
	Failure *domain.Failure
	// Cancelled means the buyer backed out before payment initiation
	// succeeded: no order, no charge assumed.
	Cancelled bool
	// OrderFailedAfterPayment marks the split outcome: the charge was
	// initiated and assumed confirmed, but order creation failed. The
	// caller must tell the buyer to contact support, not retry.
	OrderFailedAfterPayment bool
}

func (o Outcome) Completed() bool { return o.State == StateCompleted }

// PaymentInitiator starts an STK push.
type PaymentInitiator interface {
	InitiateSTKPush(ctx context.Context, phoneNumber string, amount decimal.Decimal) (backend.InitiationResult, error)
}

// OrderSubmitter creates the order on the backend.
type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, lines []domain.CartLine, buyerID string) (domain.Order, error)
}

// Confirmer resolves when the initiated payment may be treated as
// settled. Implementations decide what "confirmed" means; see
// DelayConfirmer and PollingConfirmer.
type Confirmer interface {
	Await(ctx context.Context, requestID string) error
}

// Cart is the slice of the cart store the orchestrator needs.
type Cart interface {
	Lines() []domain.CartLine
	Total() decimal.Decimal
	Clear(ctx context.Context)
}

// OrderCache receives the order record once the backend accepted it.
type OrderCache interface {
	Insert(ctx context.Context, order domain.Order)
}

// SessionSource gates checkout on a live buyer session.
type SessionSource interface {
	Buyer() (auth.Session, bool)
}

type Orchestrator struct {
	payments  PaymentInitiator
	submitter OrderSubmitter
	confirmer Confirmer
	cart      Cart
	cache     OrderCache
	sessions  SessionSource
	notifier  notify.Notifier
	metrics   *Metrics
	logger    *slog.Logger

	mu    sync.Mutex
	state State
}

func NewOrchestrator(
	payments PaymentInitiator,
	submitter OrderSubmitter,
	confirmer Confirmer,
	cartStore Cart,
	cache OrderCache,
	sessions SessionSource,
	notifier notify.Notifier,
	metrics *Metrics,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		payments:  payments,
		submitter: submitter,
		confirmer: confirmer,
		cart:      cartStore,
		cache:     cache,
		sessions:  sessions,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger,
		state:     StateIdle,
	}
}

// State reports where the current (or last) run got to.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Run drives one checkout attempt. It never panics or returns an
// error: every failure is converted into an Outcome with a classified
// Failure and a user-visible notification, and the orchestrator stays
// re-enterable for a corrected resubmission.
func (o *Orchestrator) Run(ctx context.Context, phoneNumber string) Outcome {
	defer o.setState(StateIdle)

	o.setState(StateValidatingInput)
	phone := strings.TrimSpace(phoneNumber)
	if len(phone) < minPhoneLength {
		return o.fail(ctx, domain.NewFailure(domain.FailureUserInput,
			"Please enter a valid M-Pesa phone number (at least 10 digits)."))
	}

	buyer, ok := o.sessions.Buyer()
	if !ok {
		return o.fail(ctx, domain.NewFailure(domain.FailureUserInput,
			"Please log in to complete your purchase."))
	}

	lines := o.cart.Lines()
	if len(lines) == 0 {
		return o.fail(ctx, domain.NewFailure(domain.FailureUserInput, "Your cart is empty."))
	}
	amount := o.cart.Total()

	// Backing out is still free here: nothing has left the process.
	if ctx.Err() != nil {
		return o.cancelled(ctx)
	}

	o.setState(StateAwaitingInitiation)
	res, err := o.payments.InitiateSTKPush(ctx, phone, amount)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return o.cancelled(ctx)
		}
		return o.fail(ctx, asFailure(err))
	}

	// The charge may already be in flight on the buyer's phone; from
	// here the flow runs to an outcome regardless of the caller.
	ctx = context.WithoutCancel(ctx)

	o.setState(StateAwaitingConfirmation)
	o.notifier.Notify("Payment initiated", "Check your phone and enter your M-Pesa PIN to complete payment.")

	if err := o.confirmer.Await(ctx, res.RequestID); err != nil {
		return o.fail(ctx, asFailure(err))
	}

	o.setState(StateCreatingOrder)
	order, err := o.submitter.SubmitOrder(ctx, lines, buyer.UserID)
	if err != nil {
		// The money moved but the order did not. Silently failing here
		// would strand the buyer, so this outcome is reported apart.
		o.logger.Error("order creation failed after payment", "error", err, "buyer", buyer.UserID)
		o.notifier.Notify("Order problem",
			"Your payment went through but we could not record your order. Please contact support.")
		o.metrics.record(ctx, "order_failed_after_payment")
		o.setState(StateFailed)
		return Outcome{State: StateFailed, Failure: asFailure(err), OrderFailedAfterPayment: true}
	}

	// Order record first, cart clearing second: a failure above leaves
	// the cart intact for retry.
	o.cache.Insert(ctx, order)
	o.cart.Clear(ctx)

	o.setState(StateCompleted)
	o.notifier.Notify("Order placed", "Order "+order.OrderID+" has been placed. Thank you for shopping with us.")
	o.metrics.record(ctx, "completed")
	o.logger.Info("checkout completed", "order_id", order.OrderID, "total", order.Total.String())

	return Outcome{State: StateCompleted, Order: &order}
}

func (o *Orchestrator) fail(ctx context.Context, failure *domain.Failure) Outcome {
	o.setState(StateFailed)
	o.notifier.Notify("Checkout failed", failure.Message)
	o.metrics.record(ctx, string(failure.Class))
	o.logger.Warn("checkout failed", "class", failure.Class, "message", failure.Message)
	return Outcome{State: StateFailed, Failure: failure}
}

func (o *Orchestrator) cancelled(ctx context.Context) Outcome {
	o.metrics.record(ctx, "cancelled")
	o.logger.Info("checkout cancelled before payment initiation")
	return Outcome{State: StateIdle, Cancelled: true}
}

// asFailure keeps already-classified failures intact and wraps
// anything unexpected in a generic backend failure so the user still
// sees something actionable.
func asFailure(err error) *domain.Failure {
	var failure *domain.Failure
	if errors.As(err, &failure) {
		return failure
	}
	return domain.NewFailure(domain.FailureBackend, "Something went wrong. Please try again.")
}
