package midtrans

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"splay/domain"
	"splay/entities"
	"splay/pkg/user"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type (
	MidtransService interface {
		Checkout(ctx context.Context, userID string) (domain.CheckoutResponse, error)
		HandleNotification(ctx context.Context, req domain.MidtransNotification) error
		GetSubscription(ctx context.Context, userID string) (domain.SubscriptionResponse, error)
	}

	// SnapClient is the part of snap.Client used for checkout.
	SnapClient interface {
		CreateTransaction(req *snap.Request) (*snap.Response, *midtrans.Error)
	}

	Options struct {
		ServerKey     string
		PremiumPrice  int64
		FreeScanLimit int
	}

	midtransService struct {
		midtransRepository MidtransRepository
		userRepository     user.UserRepository
		snapClient         SnapClient
		logger             *zap.Logger
		opts               Options
		now                func() time.Time
	}
)

func NewSnapClient(serverKey string, isProd bool) SnapClient {
	env := midtrans.Sandbox
	if isProd {
		env = midtrans.Production
	}
	var client snap.Client
	client.New(serverKey, env)
	return &client
}

func NewMidtransService(
	midtransRepository MidtransRepository,
	userRepository user.UserRepository,
	snapClient SnapClient,
	logger *zap.Logger,
	opts Options,
) MidtransService {
	return &midtransService{
		midtransRepository: midtransRepository,
		userRepository:     userRepository,
		snapClient:         snapClient,
		logger:             logger,
		opts:               opts,
		now:                time.Now,
	}
}

func (s *midtransService) newOrderID() string {
	return fmt.Sprintf("SPLAY-%d-%s", s.now().Unix(), strings.ToUpper(uuid.NewString()[:8]))
}

func (s *midtransService) Checkout(ctx context.Context, userID string) (domain.CheckoutResponse, error) {
	u, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.CheckoutResponse{}, domain.ErrUserNotFound
		}
		return domain.CheckoutResponse{}, err
	}

	if u.SubscriptionTier == entities.TierPremium {
		sub, err := s.midtransRepository.GetSubscriptionByUserID(ctx, userID)
		if err == nil && s.isLive(sub) {
			return domain.CheckoutResponse{}, domain.ErrAlreadyPremium
		}
	}

	orderID := s.newOrderID()
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: s.opts.PremiumPrice,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: u.Name,
			Email: u.Email,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:    domain.PlanPremium,
				Name:  "Splay Premium (30 days)",
				Price: s.opts.PremiumPrice,
				Qty:   1,
			},
		},
	}

	resp, merr := s.snapClient.CreateTransaction(req)
	if merr != nil {
		s.logger.Error("creating snap transaction", zap.String("order_id", orderID), zap.String("error", merr.Message))
		return domain.CheckoutResponse{}, fmt.Errorf("%w: %s", domain.ErrPaymentGatewayFailed, merr.Message)
	}

	tx := &entities.Transaction{
		ID:          uuid.New(),
		UserID:      u.ID,
		OrderID:     orderID,
		Plan:        domain.PlanPremium,
		Amount:      s.opts.PremiumPrice,
		Status:      entities.TransactionPending,
		SnapToken:   resp.Token,
		RedirectURL: resp.RedirectURL,
	}
	if err := s.midtransRepository.CreateTransaction(ctx, tx); err != nil {
		return domain.CheckoutResponse{}, fmt.Errorf("saving transaction: %w", err)
	}

	return domain.CheckoutResponse{
		OrderID:     orderID,
		Token:       resp.Token,
		RedirectURL: resp.RedirectURL,
	}, nil
}

// Signature computes the notification signature Midtrans sends:
// sha512(order_id + status_code + gross_amount + server_key) in hex.
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func (s *midtransService) HandleNotification(ctx context.Context, req domain.MidtransNotification) error {
	expected := Signature(req.OrderID, req.StatusCode, req.GrossAmount, s.opts.ServerKey)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(req.SignatureKey))) != 1 {
		return domain.ErrInvalidSignature
	}

	tx, err := s.midtransRepository.GetTransactionByOrderID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrTransactionNotFound
		}
		return err
	}

	log := s.logger.With(zap.String("order_id", req.OrderID), zap.String("transaction_status", req.TransactionStatus))

	// a paid order never goes back
	if tx.Status == entities.TransactionPaid {
		log.Info("notification for paid order ignored")
		return nil
	}

	switch req.TransactionStatus {
	case "capture":
		if req.FraudStatus == "challenge" {
			log.Info("payment challenged")
			return nil
		}
		return s.activate(ctx, tx, req.PaymentType, log)
	case "settlement":
		return s.activate(ctx, tx, req.PaymentType, log)
	case "deny", "cancel", "expire", "failure":
		log.Info("payment failed")
		return s.midtransRepository.UpdateTransactionStatus(ctx, req.OrderID, entities.TransactionFailed, req.PaymentType)
	default:
		log.Info("payment pending")
		return nil
	}
}

func (s *midtransService) activate(ctx context.Context, tx *entities.Transaction, paymentType string, log *zap.Logger) error {
	start := s.now().UTC()
	end := start.Add(domain.PremiumPeriod)
	if err := s.midtransRepository.ActivatePremium(ctx, tx.OrderID, paymentType, start, end); err != nil {
		return fmt.Errorf("activating premium: %w", err)
	}
	log.Info("premium activated", zap.String("user_id", tx.UserID.String()), zap.Time("period_end", end))
	return nil
}

func (s *midtransService) isLive(sub *entities.Subscription) bool {
	return sub.Status == domain.SubscriptionLive &&
		sub.CurrentPeriodEnd != nil &&
		sub.CurrentPeriodEnd.After(s.now())
}

func (s *midtransService) GetSubscription(ctx context.Context, userID string) (domain.SubscriptionResponse, error) {
	u, err := s.userRepository.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.SubscriptionResponse{}, domain.ErrUserNotFound
		}
		return domain.SubscriptionResponse{}, err
	}

	res := domain.SubscriptionResponse{
		Plan:      entities.TierFree,
		Status:    domain.SubscriptionOff,
		Tier:      u.SubscriptionTier,
		ScanLimit: s.opts.FreeScanLimit,
	}
	if u.ScanPeriod == s.now().UTC().Format("2006-01") {
		res.ScansThisMonth = u.ScansThisMonth
	}

	sub, err := s.midtransRepository.GetSubscriptionByUserID(ctx, userID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return res, nil
	case err != nil:
		return domain.SubscriptionResponse{}, err
	}

	if sub.Status == domain.SubscriptionLive && !s.isLive(sub) {
		if err := s.midtransRepository.ExpireSubscription(ctx, userID); err != nil {
			return domain.SubscriptionResponse{}, fmt.Errorf("expiring subscription: %w", err)
		}
		sub.Status = domain.SubscriptionOff
		res.Tier = entities.TierFree
	}

	res.Plan = sub.Plan
	res.Status = sub.Status
	res.CurrentPeriodStart = sub.CurrentPeriodStart
	res.CurrentPeriodEnd = sub.CurrentPeriodEnd
	if res.Tier == entities.TierPremium {
		res.ScanLimit = 0
	}
	return res, nil
}
