package domain

import "github.com/shopspring/decimal"

// FailureClass tells the caller what kind of failure a remote call
// produced, and with it whether retrying the same input makes sense.
type FailureClass string

const (
	FailureNone FailureClass = "none"
	// FailureUserInput is recoverable by the user correcting input.
	FailureUserInput FailureClass = "user_input"
	// FailureServerConfig is a deployment misconfiguration. Surfaced
	// distinctly so the user is not blamed for it.
	FailureServerConfig FailureClass = "server_config"
	FailureNetwork      FailureClass = "network"
	FailureTimeout      FailureClass = "timeout"
	// FailureBackend means the server responded but declined the
	// operation; its message is passed through verbatim.
	FailureBackend FailureClass = "backend"
)

// Failure is a classified remote-call failure. All backend call sites
// convert errors into one of these instead of letting transport errors
// escape past the orchestration boundary.
type Failure struct {
	Class   FailureClass `json:"class"`
	Message string       `json:"message"`
}

func (f *Failure) Error() string {
	return f.Message
}

func NewFailure(class FailureClass, message string) *Failure {
	return &Failure{Class: class, Message: message}
}

type PaymentOutcome string

const (
	PaymentPending   PaymentOutcome = "pending"
	PaymentInitiated PaymentOutcome = "initiated"
	PaymentFailed    PaymentOutcome = "failed"
)

// PaymentAttempt captures a single STK push interaction. It lives for
// one checkout only and is never persisted.
type PaymentAttempt struct {
	PhoneNumber string
	Amount      decimal.Decimal
	RequestID   string
	Outcome     PaymentOutcome
	Class       FailureClass
}
