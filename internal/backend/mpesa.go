package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kukuhub/storefront/internal/domain"
)

// PaymentState is the backend's view of an STK push in flight.
type PaymentState string

const (
	PaymentStatePending   PaymentState = "pending"
	PaymentStateCompleted PaymentState = "completed"
	PaymentStateFailed    PaymentState = "failed"
)

// InitiationResult is the outcome of a successful STK push initiation.
// The request id identifies the push for later status checks.
type InitiationResult struct {
	Message   string
	RequestID string
}

type stkPushRequest struct {
	PhoneNumber string          `json:"phoneNumber"`
	Amount      decimal.Decimal `json:"amount"`
}

type stkPushResponse struct {
	Success           bool            `json:"success"`
	Message           string          `json:"message"`
	CheckoutRequestID string          `json:"checkoutRequestID"`
	Details           json.RawMessage `json:"details"`
}

const serverConfigMessage = "The payment service is misconfigured (invalid callback URL). " +
	"This is not a problem with your payment details - please contact support."

// InitiateSTKPush asks the backend to trigger a PIN prompt on the
// payer's phone. Failures come back classified: a misconfigured
// callback URL on the server side is reported as a deployment problem,
// never as the user's fault.
func (c *Client) InitiateSTKPush(ctx context.Context, phoneNumber string, amount decimal.Decimal) (InitiationResult, error) {
	formatted := NormalizePhone(phoneNumber)

	ctx, cancel := context.WithTimeout(ctx, c.paymentTimeout)
	defer cancel()

	c.logger.Info("initiating stk push", "phone", formatted, "amount", amount.String())

	var resp stkPushResponse
	err := c.doJSON(ctx, http.MethodPost, "/mpesa/stkpush", stkPushRequest{
		PhoneNumber: formatted,
		Amount:      amount,
	}, &resp)
	if err != nil {
		return InitiationResult{}, err
	}

	if !resp.Success {
		return InitiationResult{}, classifyInitiationFailure(resp)
	}

	return InitiationResult{
		Message:   orDefault(resp.Message, "STK push initiated successfully"),
		RequestID: resp.CheckoutRequestID,
	}, nil
}

// classifyInitiationFailure decides whether a declined initiation is
// the user's problem or the deployment's. The gateway reports a bad
// callback URL inside the nested error details; everything else is
// surfaced verbatim as user-correctable.
func classifyInitiationFailure(resp stkPushResponse) *domain.Failure {
	if mentionsInvalidCallback(resp.Message) || mentionsInvalidCallback(string(resp.Details)) {
		return domain.NewFailure(domain.FailureServerConfig, serverConfigMessage)
	}
	return domain.NewFailure(domain.FailureUserInput,
		orDefault(resp.Message, "Payment could not be initiated. Please check your details and try again."))
}

func mentionsInvalidCallback(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "callbackurl") || strings.Contains(lower, "callback url")
}

// NormalizePhone rewrites a leading-0 number into the 254 country-code
// form. Anything else, including +254 numbers, passes through
// unchanged; whether the gateway tolerates those is the backend's call.
func NormalizePhone(phoneNumber string) string {
	if strings.HasPrefix(phoneNumber, "0") {
		return "254" + phoneNumber[1:]
	}
	return phoneNumber
}

type paymentStatusResponse struct {
	Success bool         `json:"success"`
	Status  PaymentState `json:"status"`
	Message string       `json:"message"`
}

// PaymentStatus checks how an initiated STK push is doing. An absent
// status field reads as still pending.
func (c *Client) PaymentStatus(ctx context.Context, requestID string) (PaymentState, error) {
	var resp paymentStatusResponse
	path := fmt.Sprintf("/mpesa/status/%s", requestID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return PaymentStatePending, err
	}

	if resp.Status == "" {
		return PaymentStatePending, nil
	}
	return resp.Status, nil
}
