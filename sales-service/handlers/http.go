package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"github.com/vehiclemarket/sales-system/sales-service/application"
	"github.com/vehiclemarket/sales-system/sales-service/domain"
	"github.com/vehiclemarket/sales-system/shared/logging"
	"github.com/vehiclemarket/sales-system/shared/models"
)

// StartSaleRequest is the body of POST /v1/sales
type StartSaleRequest struct {
	VehicleID string `json:"vehicle_id"`
	BuyerID   string `json:"buyer_id"`
	Payment   struct {
		Method string `json:"method"`
		Amount struct {
			Amount   json.Number `json:"amount"`
			Currency string      `json:"currency"`
		} `json:"amount"`
	} `json:"payment"`
}

// CancelSaleRequest is the optional body of POST /v1/sales/{id}/cancel
type CancelSaleRequest struct {
	Reason string `json:"reason"`
}

// SaleHandlers contains sale HTTP handlers
type SaleHandlers struct {
	startSale            *application.StartSale
	getSale              *application.GetSale
	cancelSale           *application.CancelSale
	confirmDelivery      *application.ConfirmDelivery
	handlePaymentWebhook *application.HandlePaymentWebhook
	logger               *logging.Logger
}

// NewSaleHandlers creates new sale handlers
func NewSaleHandlers(
	startSale *application.StartSale,
	getSale *application.GetSale,
	cancelSale *application.CancelSale,
	confirmDelivery *application.ConfirmDelivery,
	handlePaymentWebhook *application.HandlePaymentWebhook,
	logger *logging.Logger,
) *SaleHandlers {
	if logger == nil {
		logger = logging.Nop()
	}
	return &SaleHandlers{
		startSale:            startSale,
		getSale:              getSale,
		cancelSale:           cancelSale,
		confirmDelivery:      confirmDelivery,
		handlePaymentWebhook: handlePaymentWebhook,
		logger:               logger,
	}
}

// StartSale handles sale creation requests. A sale cancelled by a business rule
// is answered with 422 and the cancelled sale.
func (h *SaleHandlers) StartSale(w http.ResponseWriter, r *http.Request) {
	var req StartSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	amount, err := models.ParseMoney(req.Payment.Amount.Amount.String(), req.Payment.Amount.Currency)
	if err != nil {
		http.Error(w, "Invalid payment amount", http.StatusBadRequest)
		return
	}

	cmd := &application.StartSaleCommand{
		VehicleID:     req.VehicleID,
		BuyerID:       req.BuyerID,
		Amount:        amount.Amount,
		Currency:      req.Payment.Amount.Currency,
		PaymentMethod: req.Payment.Method,
	}

	sale, err := h.startSale.Execute(r.Context(), cmd)
	if err != nil {
		if sale == nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.WithContext(r.Context()).WithError(err).WithField("sale_id", sale.ID.String()).Error("sale saga failed")
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	status := http.StatusCreated
	if sale.Status == domain.SaleStatusCancelled {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, application.NewSaleView(sale))
}

// GetSale handles sale retrieval requests
func (h *SaleHandlers) GetSale(w http.ResponseWriter, r *http.Request) {
	saleID, ok := saleIDParam(w, r)
	if !ok {
		return
	}

	sale, err := h.getSale.Execute(r.Context(), &application.GetSaleQuery{SaleID: saleID})
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, application.NewSaleView(sale))
}

// CancelSale handles sale cancellation requests
func (h *SaleHandlers) CancelSale(w http.ResponseWriter, r *http.Request) {
	saleID, ok := saleIDParam(w, r)
	if !ok {
		return
	}

	var req CancelSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sale, err := h.cancelSale.Execute(r.Context(), &application.CancelSaleCommand{
		SaleID: saleID,
		Reason: req.Reason,
	})
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, application.NewSaleView(sale))
}

// ConfirmDelivery handles vehicle hand over confirmations
func (h *SaleHandlers) ConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	saleID, ok := saleIDParam(w, r)
	if !ok {
		return
	}

	sale, err := h.confirmDelivery.Execute(r.Context(), &application.ConfirmDeliveryCommand{SaleID: saleID})
	if err != nil {
		h.logger.WithContext(r.Context()).WithError(err).WithField("sale_id", saleID).Warn("delivery confirmation failed")
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, application.NewSaleView(sale))
}

// PaymentWebhook handles payment gateway notifications. The gateway may send
// the notification in the query string instead of the body. Payloads that cannot
// be acted on are acknowledged so the gateway stops redelivering them.
func (h *SaleHandlers) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	log := h.logger.WithContext(r.Context())

	var cmd application.PaymentWebhookCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil && !errors.Is(err, io.EOF) {
		log.WithError(err).Warn("ignoring unparseable payment webhook")
		writeJSON(w, http.StatusOK, application.ConfirmationResult{Status: application.ConfirmationIgnored})
		return
	}

	query := r.URL.Query()
	if cmd.Type == "" {
		cmd.Type = query.Get("type")
	}
	if cmd.Data.ID == "" {
		cmd.Data.ID = query.Get("data.id")
	}

	if strings.EqualFold(cmd.Type, "payment") && strings.TrimSpace(cmd.Data.ID) == "" {
		log.Warn("ignoring payment webhook without payment id")
		writeJSON(w, http.StatusOK, application.ConfirmationResult{Status: application.ConfirmationIgnored})
		return
	}

	result, err := h.handlePaymentWebhook.Execute(r.Context(), &cmd)
	if err != nil {
		log.WithError(err).WithField("payment_id", cmd.Data.ID).Error("failed to process payment webhook")
		http.Error(w, err.Error(), errorStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// RegisterRoutes registers sale routes
func (h *SaleHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Route("/sales", func(r chi.Router) {
			r.Post("/", h.StartSale)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSale)
				r.Post("/cancel", h.CancelSale)
				r.Post("/confirm-delivery", h.ConfirmDelivery)
			})
		})
		r.Post("/payments/webhook", h.PaymentWebhook)
	})
}

func saleIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	saleID := chi.URLParam(r, "id")
	if saleID == "" {
		http.Error(w, "Sale ID is required", http.StatusBadRequest)
		return "", false
	}
	if _, err := models.NewID(saleID); err != nil {
		http.Error(w, "Invalid sale ID", http.StatusBadRequest)
		return "", false
	}
	return saleID, true
}

// errorStatus maps use case errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrSaleNotFound), errors.Is(err, domain.ErrSagaNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidSaleState):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidationFailure), errors.Is(err, domain.ErrReservationConflict):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrGatewayFailure), errors.Is(err, domain.ErrSagaExecutionFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
