package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/vehiclemarket/sales-system/sales-service/domain"
)

var _ domain.PaymentGateway = (*HTTPPaymentGateway)(nil)

const (
	defaultGatewayTimeout        = 10 * time.Second
	defaultPaymentExpirationDays = 3
	gatewayDateLayout            = "2006-01-02T15:04:05.000Z07:00"
)

// HTTPPaymentGatewayConfig configures the payment provider client
type HTTPPaymentGatewayConfig struct {
	BaseURL         string
	AccessToken     string
	NotificationURL string
	Timeout         time.Duration
	ExpirationDays  int
}

// HTTPPaymentGateway talks to a Mercado Pago compatible payments API
type HTTPPaymentGateway struct {
	baseURL         string
	accessToken     string
	notificationURL string
	expiration      time.Duration
	client          *http.Client
	now             func() time.Time
}

// NewHTTPPaymentGateway creates a new HTTPPaymentGateway
func NewHTTPPaymentGateway(cfg HTTPPaymentGatewayConfig) *HTTPPaymentGateway {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	days := cfg.ExpirationDays
	if days <= 0 {
		days = defaultPaymentExpirationDays
	}

	return &HTTPPaymentGateway{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		accessToken:     cfg.AccessToken,
		notificationURL: cfg.NotificationURL,
		expiration:      time.Duration(days) * 24 * time.Hour,
		client:          &http.Client{Timeout: timeout},
		now:             time.Now,
	}
}

type gatewayIdentification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type gatewayPayer struct {
	Email          string                `json:"email"`
	FirstName      string                `json:"first_name"`
	LastName       string                `json:"last_name"`
	Identification gatewayIdentification `json:"identification"`
}

type createGatewayPaymentRequest struct {
	TransactionAmount json.Number  `json:"transaction_amount"`
	PaymentMethodID   string       `json:"payment_method_id"`
	DateOfExpiration  string       `json:"date_of_expiration"`
	ExternalReference string       `json:"external_reference,omitempty"`
	NotificationURL   string       `json:"notification_url,omitempty"`
	Payer             gatewayPayer `json:"payer"`
}

type gatewayPaymentResponse struct {
	ID                 json.Number `json:"id"`
	Status             string      `json:"status"`
	StatusDetail       string      `json:"status_detail"`
	ExternalReference  string      `json:"external_reference"`
	PaymentMethodID    string      `json:"payment_method_id"`
	DateOfExpiration   string      `json:"date_of_expiration"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
	TransactionDetails struct {
		ExternalResourceURL string `json:"external_resource_url"`
		Barcode             struct {
			Content string `json:"content"`
		} `json:"barcode"`
	} `json:"transaction_details"`
}

type gatewayErrorResponse struct {
	Message string `json:"message"`
}

// CreatePayment opens a charge for the buyer. The buyer's CPF is mandatory.
func (g *HTTPPaymentGateway) CreatePayment(ctx context.Context, req domain.PaymentGatewayRequest) (*domain.GatewayPayment, error) {
	if !req.Amount.IsPositive() {
		return nil, errors.New("payment amount must be greater than zero")
	}
	if strings.TrimSpace(req.Buyer.Email) == "" {
		return nil, errors.New("buyer email is required")
	}
	if strings.TrimSpace(req.Buyer.Name) == "" {
		return nil, errors.New("buyer name is required")
	}
	cpf := req.Buyer.CPF()
	if cpf == "" {
		return nil, errors.New("buyer CPF document is required")
	}

	firstName, lastName := req.Buyer.SplitName()
	body := createGatewayPaymentRequest{
		TransactionAmount: json.Number(req.Amount.Decimal()),
		PaymentMethodID:   req.Method.String(),
		DateOfExpiration:  g.now().Add(g.expiration).Format(gatewayDateLayout),
		ExternalReference: req.ExternalReference,
		NotificationURL:   g.notificationURL,
		Payer: gatewayPayer{
			Email:     req.Buyer.Email,
			FirstName: firstName,
			LastName:  lastName,
			Identification: gatewayIdentification{
				Type:   string(domain.DocumentTypeCPF),
				Number: cpf,
			},
		},
	}

	headers := map[string]string{}
	if req.ExternalReference != "" {
		headers["X-Idempotency-Key"] = req.ExternalReference
	}

	return g.do(ctx, http.MethodPost, "/v1/payments", body, headers)
}

// GetPayment reads the current state of a charge
func (g *HTTPPaymentGateway) GetPayment(ctx context.Context, id string) (*domain.GatewayPayment, error) {
	return g.do(ctx, http.MethodGet, "/v1/payments/"+id, nil, nil)
}

// CancelPayment cancels a charge that was not paid yet
func (g *HTTPPaymentGateway) CancelPayment(ctx context.Context, id string) (*domain.GatewayPayment, error) {
	return g.do(ctx, http.MethodPut, "/v1/payments/"+id, map[string]string{"status": "cancelled"}, nil)
}

func (g *HTTPPaymentGateway) do(ctx context.Context, method, path string, payload interface{}, headers map[string]string) (*domain.GatewayPayment, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode gateway request")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build gateway request")
	}
	req.Header.Set("Authorization", "Bearer "+g.accessToken)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s failed", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read gateway response")
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr gatewayErrorResponse
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return nil, errors.Errorf("payment gateway returned status %d: %s", resp.StatusCode, apiErr.Message)
		}
		return nil, errors.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	var payment gatewayPaymentResponse
	if err := json.Unmarshal(raw, &payment); err != nil {
		return nil, errors.Wrap(err, "failed to decode gateway response")
	}
	return toGatewayPayment(&payment), nil
}

func toGatewayPayment(resp *gatewayPaymentResponse) *domain.GatewayPayment {
	details := domain.PaymentDetails{
		QRCode:       resp.PointOfInteraction.TransactionData.QRCode,
		QRCodeBase64: resp.PointOfInteraction.TransactionData.QRCodeBase64,
		Barcode:      resp.TransactionDetails.Barcode.Content,
		PDFURL:       resp.TransactionDetails.ExternalResourceURL,
	}

	if resp.DateOfExpiration != "" {
		if expiration, err := time.Parse(time.RFC3339, resp.DateOfExpiration); err == nil {
			details.ExpirationDate = &expiration
			if resp.PaymentMethodID == domain.PaymentMethodBoleto.String() {
				dueDate := expiration
				details.DueDate = &dueDate
			}
		}
	}

	return &domain.GatewayPayment{
		ID:                resp.ID.String(),
		Status:            resp.Status,
		StatusDetail:      resp.StatusDetail,
		ExternalReference: resp.ExternalReference,
		Method:            resp.PaymentMethodID,
		Details:           details,
	}
}
