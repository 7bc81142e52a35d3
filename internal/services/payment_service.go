// internal/services/payment_service.go
package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/refund"

	"github.com/beatmarket/beatmarket-backend/internal/config"
	"github.com/beatmarket/beatmarket-backend/internal/currency"
)

var (
	ErrUnsupportedCurrency = errors.New("gateway does not support this currency")
	ErrUnknownGateway      = errors.New("unknown payment gateway")
	ErrChargeDeclined      = errors.New("payment was declined")
)

// Gateway is a card processor. Charges and refunds are mocked when no
// provider credentials are configured.
type Gateway interface {
	Name() string
	SupportsCurrency(code string) bool
	Charge(req *ChargeRequest) (*ChargeResult, error)
	Refund(req *GatewayRefundRequest) error
}

type ChargeRequest struct {
	Amount          float64
	Currency        string
	PaymentMethodID string
	Description     string
}

type ChargeResult struct {
	TransactionID string
	Gateway       string
}

type PaymentRequest struct {
	Amount           float64 `json:"amount" validate:"required,gt=0"`
	Currency         string  `json:"currency,omitempty" validate:"currency"`
	PaymentMethodID  string  `json:"payment_method_id,omitempty"`
	Description      string  `json:"description,omitempty"`
	PreferredGateway string  `json:"preferred_gateway,omitempty"`
}

type PaymentResult struct {
	Success       bool    `json:"success"`
	TransactionID string  `json:"transaction_id"`
	USDAmount     float64 `json:"usd_amount"`
	Gateway       string  `json:"gateway"`
	Currency      string  `json:"currency"`
	Amount        float64 `json:"amount"`
}

type GatewayRefundRequest struct {
	TransactionID string  `json:"transaction_id" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Currency      string  `json:"currency,omitempty" validate:"currency"`
	Gateway       string  `json:"gateway" validate:"required"`
}

// regionalCurrencies route to the regional gateway instead of the default
// card processor.
var regionalCurrencies = map[string]bool{
	"NGN": true,
	"GHS": true,
	"KES": true,
	"ZAR": true,
	"UGX": true,
	"TZS": true,
	"XOF": true,
}

// PaymentService converts amounts to USD and routes charges/refunds to a
// gateway by currency-region affinity.
type PaymentService struct {
	gateways       map[string]Gateway
	defaultGateway Gateway
	regional       Gateway
}

func NewPaymentService(cfg *config.Config) *PaymentService {
	def := newStripeGateway(cfg.Payment.StripeSecretKey)
	reg := newRegionalGateway()

	return &PaymentService{
		gateways: map[string]Gateway{
			def.Name(): def,
			reg.Name(): reg,
		},
		defaultGateway: def,
		regional:       reg,
	}
}

// ProcessPayment charges the card and reports the USD equivalent. A
// preferred gateway that cannot handle the currency is an error, not a
// silent fallback.
func (s *PaymentService) ProcessPayment(req *PaymentRequest) (*PaymentResult, error) {
	code := currency.Normalize(req.Currency)
	if code == "" {
		code = "USD"
	}

	usd, err := currency.ToUSD(req.Amount, code)
	if err != nil {
		return nil, err
	}

	gateway, err := s.routeGateway(code, req.PreferredGateway)
	if err != nil {
		return nil, err
	}

	charge, err := gateway.Charge(&ChargeRequest{
		Amount:          req.Amount,
		Currency:        code,
		PaymentMethodID: req.PaymentMethodID,
		Description:     req.Description,
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"gateway":    gateway.Name(),
		"currency":   code,
		"amount":     req.Amount,
		"usd_amount": usd,
	}).Info("Payment processed")

	return &PaymentResult{
		Success:       true,
		TransactionID: charge.TransactionID,
		USDAmount:     usd,
		Gateway:       gateway.Name(),
		Currency:      code,
		Amount:        req.Amount,
	}, nil
}

// RefundPayment reverses a prior charge on the gateway that made it.
func (s *PaymentService) RefundPayment(req *GatewayRefundRequest) error {
	gateway, ok := s.gateways[strings.ToLower(req.Gateway)]
	if !ok {
		return ErrUnknownGateway
	}

	code := currency.Normalize(req.Currency)
	if code == "" {
		code = "USD"
	}
	if !gateway.SupportsCurrency(code) {
		return ErrUnsupportedCurrency
	}

	if err := gateway.Refund(req); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"gateway":        gateway.Name(),
		"transaction_id": req.TransactionID,
		"amount":         req.Amount,
	}).Info("Payment refunded")

	return nil
}

func (s *PaymentService) routeGateway(code, preferred string) (Gateway, error) {
	if preferred != "" {
		gateway, ok := s.gateways[strings.ToLower(preferred)]
		if !ok {
			return nil, ErrUnknownGateway
		}
		if !gateway.SupportsCurrency(code) {
			return nil, ErrUnsupportedCurrency
		}
		return gateway, nil
	}

	if regionalCurrencies[code] {
		return s.regional, nil
	}
	return s.defaultGateway, nil
}

// stripeGateway is the default card processor. Without an API key it
// simulates approvals, which keeps development and tests offline.
type stripeGateway struct {
	live bool
}

func newStripeGateway(secretKey string) *stripeGateway {
	if secretKey != "" {
		stripe.Key = secretKey
	}
	return &stripeGateway{live: secretKey != ""}
}

func (g *stripeGateway) Name() string { return "stripe" }

func (g *stripeGateway) SupportsCurrency(code string) bool {
	return currency.IsSupported(code) && !regionalCurrencies[code]
}

func (g *stripeGateway) Charge(req *ChargeRequest) (*ChargeResult, error) {
	if !g.live {
		return &ChargeResult{
			TransactionID: "pi_mock_" + uuid.NewString(),
			Gateway:       g.Name(),
		}, nil
	}

	amountInCents := int64(currency.RoundCents(req.Amount) * 100)
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amountInCents),
		Currency:      stripe.String(strings.ToLower(req.Currency)),
		PaymentMethod: stripe.String(req.PaymentMethodID),
		Description:   stripe.String(req.Description),
		Confirm:       stripe.Bool(true),
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, ErrChargeDeclined
	}

	return &ChargeResult{TransactionID: pi.ID, Gateway: g.Name()}, nil
}

func (g *stripeGateway) Refund(req *GatewayRefundRequest) error {
	if !g.live {
		return nil
	}

	amountInCents := int64(currency.RoundCents(req.Amount) * 100)
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.TransactionID),
		Amount:        stripe.Int64(amountInCents),
		Reason:        stripe.String("requested_by_customer"),
	}

	if _, err := refund.New(params); err != nil {
		return fmt.Errorf("failed to process refund: %w", err)
	}
	return nil
}

// regionalGateway handles African-market currencies. The processor
// integration is simulated end to end.
type regionalGateway struct{}

func newRegionalGateway() *regionalGateway { return &regionalGateway{} }

func (g *regionalGateway) Name() string { return "paystack" }

func (g *regionalGateway) SupportsCurrency(code string) bool {
	return regionalCurrencies[code]
}

func (g *regionalGateway) Charge(req *ChargeRequest) (*ChargeResult, error) {
	return &ChargeResult{
		TransactionID: "ps_mock_" + uuid.NewString(),
		Gateway:       g.Name(),
	}, nil
}

func (g *regionalGateway) Refund(req *GatewayRefundRequest) error {
	return nil
}
