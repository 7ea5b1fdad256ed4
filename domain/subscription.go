package domain

import (
	"errors"
	"time"
)

var (
	MessageSuccessCheckout        = "checkout created successfully"
	MessageSuccessWebhook         = "notification processed"
	MessageSuccessGetSubscription = "subscription retrieved successfully"

	MessageFailedCheckout        = "failed to create checkout"
	MessageFailedWebhook         = "failed to process notification"
	MessageFailedGetSubscription = "failed to retrieve subscription"

	ErrAlreadyPremium       = errors.New("user already has an active premium subscription")
	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrInvalidSignature     = errors.New("invalid notification signature")
	ErrPaymentGatewayFailed = errors.New("payment gateway request failed")
)

const (
	PlanPremium      = "premium"
	PremiumPeriod    = 30 * 24 * time.Hour
	SubscriptionLive = "active"
	SubscriptionOff  = "inactive"
)

type (
	CheckoutResponse struct {
		OrderID     string `json:"order_id"`
		Token       string `json:"token"`
		RedirectURL string `json:"redirect_url"`
	}

	// MidtransNotification is the subset of the Midtrans HTTP notification body we act on.
	MidtransNotification struct {
		OrderID           string `json:"order_id" validate:"required"`
		StatusCode        string `json:"status_code" validate:"required"`
		GrossAmount       string `json:"gross_amount" validate:"required"`
		SignatureKey      string `json:"signature_key" validate:"required"`
		TransactionStatus string `json:"transaction_status" validate:"required"`
		FraudStatus       string `json:"fraud_status"`
		PaymentType       string `json:"payment_type"`
	}

	SubscriptionResponse struct {
		Plan               string     `json:"plan"`
		Status             string     `json:"status"`
		Tier               string     `json:"tier"`
		ScansThisMonth     int        `json:"scans_this_month"`
		ScanLimit          int        `json:"scan_limit"` // 0 is unlimited
		CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
		CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	}
)
