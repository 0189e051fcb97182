package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"fiado-ledger/internal/api/handler/dto"
	"fiado-ledger/internal/domain/customer"
	"fiado-ledger/internal/domain/ledger"
	"fiado-ledger/internal/pkg/apperrors"

	"github.com/go-chi/chi/v5"
)

type LedgerHandler struct {
	service ledger.LedgerService
	logger  *slog.Logger
}

func NewLedgerHandler(s ledger.LedgerService, l *slog.Logger) *LedgerHandler {
	if s == nil {
		panic("ledger service cannot be nil")
	}
	if l == nil {
		panic("logger cannot be nil")
	}
	return &LedgerHandler{
		service: s,
		logger:  l.With("component", "LedgerHandler"),
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("no request body")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Default().Error("Failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":{"message":"Internal server error"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func respondError(w http.ResponseWriter, err error) {
	status, message, field, maxAllowed := http.StatusInternalServerError, "An unexpected error occurred.", "", ""
	var validationError *apperrors.ValidationError
	var exceedsPending *ledger.ExceedsPendingError
	var appErr *apperrors.AppError

	switch {
	case errors.As(err, &exceedsPending):
		status, message = http.StatusBadRequest, exceedsPending.Error()
		maxAllowed = exceedsPending.Max.StringFixed(2)
	case errors.As(err, &validationError):
		status, message, field = http.StatusBadRequest, validationError.Message, validationError.Field
	case errors.Is(err, apperrors.ErrImportFormat):
		status, message = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, apperrors.ErrNoOutstandingDebt), errors.Is(err, apperrors.ErrAlreadyExists), errors.Is(err, apperrors.ErrConflict):
		status, message = http.StatusConflict, err.Error()
	case errors.Is(err, apperrors.ErrNotFound), errors.Is(err, customer.ErrNotFound):
		status, message = http.StatusNotFound, "Resource not found."
	case errors.Is(err, apperrors.ErrInvalidArgument), errors.Is(err, apperrors.ErrValidation), errors.Is(err, apperrors.ErrInvalidPaymentAmount):
		status, message = http.StatusBadRequest, err.Error()
	case errors.Is(err, apperrors.ErrUnauthorized):
		status, message = http.StatusUnauthorized, "Unauthorized."
	case errors.As(err, &appErr):
		message = appErr.Error()
	default:
		slog.Default().Error("Unhandled internal error", "error", err)
	}

	resp := dto.ErrorResponse{
		Error: dto.ErrorDetail{
			Message:    message,
			Field:      field,
			MaxAllowed: maxAllowed,
		},
	}
	respondJSON(w, status, resp)
}

// AddPurchase handles POST /customers/{customerID}/purchases
// @Summary Add a purchase to a customer's tab
// @Description Appends a new line item. The price is typed text and accepts comma or dot decimals with at most two places.
// @Tags Ledger
// @Accept json
// @Produce json
// @Param customerID path int true "Customer ID" Minimum(1)
// @Param request body dto.AddPurchaseRequest true "Purchase payload"
// @Success 201 {object} dto.PurchaseResponse "Purchase added"
// @Failure 400 {object} dto.ErrorResponse "Invalid name or price"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /customers/{customerID}/purchases [post]
// @Security BearerAuth
func (h *LedgerHandler) AddPurchase(w http.ResponseWriter, r *http.Request) {
	customerID, err := getCustomerIDFromURL(r)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to get customer ID from URL", slog.Any("error", err))
		respondError(w, err)
		return
	}

	var req dto.AddPurchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		h.logger.WarnContext(r.Context(), "Request validation failed", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	created, err := h.service.AddPurchase(r.Context(), customerID, req.Name, req.Price)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, customer.ErrNotFound) && !errors.Is(err, apperrors.ErrValidation) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to add purchase", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Purchase added successfully", slog.String("purchaseID", created.PurchaseID))
	respondJSON(w, http.StatusCreated, dto.NewPurchaseResponse(created))
}

// RemovePurchase handles DELETE /customers/{customerID}/purchases/{purchaseID}
// @Summary Remove a purchase from a customer's tab
// @Description Removes one line item. If that pushes the pending balance to zero or below, the whole account settles.
// @Tags Ledger
// @Produce json
// @Param customerID path int true "Customer ID" Minimum(1)
// @Param purchaseID path string true "Purchase ID"
// @Success 200 {object} dto.RemovalResponse "Purchase removed"
// @Failure 400 {object} dto.ErrorResponse "Invalid customer ID"
// @Failure 404 {object} dto.ErrorResponse "Customer or purchase not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /customers/{customerID}/purchases/{purchaseID} [delete]
// @Security BearerAuth
func (h *LedgerHandler) RemovePurchase(w http.ResponseWriter, r *http.Request) {
	customerID, err := getCustomerIDFromURL(r)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to get customer ID from URL", slog.Any("error", err))
		respondError(w, err)
		return
	}

	purchaseID := chi.URLParam(r, "purchaseID")
	if purchaseID == "" {
		respondError(w, fmt.Errorf("%w: purchaseID not found in URL path", apperrors.ErrInvalidArgument))
		return
	}

	result, err := h.service.RemovePurchase(r.Context(), customerID, purchaseID)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, customer.ErrNotFound) && !errors.Is(err, ledger.ErrPurchaseNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to remove purchase", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Purchase removed successfully", slog.Bool("autoSettled", result.AutoSettled))
	respondJSON(w, http.StatusOK, dto.RemovalResponse{AutoSettled: result.AutoSettled})
}

// GetTotals handles GET /customers/{customerID}/totals
// @Summary Retrieve a customer's totals
// @Description Returns the gross purchase total, the amount paid so far and the derived pending balance.
// @Tags Ledger
// @Produce json
// @Param customerID path int true "Customer ID" Minimum(1)
// @Success 200 {object} dto.TotalsResponse "Totals computed"
// @Failure 400 {object} dto.ErrorResponse "Invalid customer ID"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /customers/{customerID}/totals [get]
// @Security BearerAuth
func (h *LedgerHandler) GetTotals(w http.ResponseWriter, r *http.Request) {
	customerID, err := getCustomerIDFromURL(r)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to get customer ID from URL", slog.Any("error", err))
		respondError(w, err)
		return
	}

	totals, err := h.service.GetTotals(r.Context(), customerID)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, customer.ErrNotFound) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to compute totals", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewTotalsResponse(totals))
}

// RegisterPayment handles POST /customers/{customerID}/payments
// @Summary Register a partial payment
// @Description Records a payment against the pending balance. Paying the balance in full settles and clears the account.
// @Tags Ledger
// @Accept json
// @Produce json
// @Param customerID path int true "Customer ID" Minimum(1)
// @Param request body dto.RegisterPaymentRequest true "Payment payload"
// @Success 200 {object} dto.PaymentResponse "Payment recorded"
// @Failure 400 {object} dto.ErrorResponse "Invalid amount, or amount above the pending balance (maxAllowed is reported)"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 409 {object} dto.ErrorResponse "Customer has no outstanding debt"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /customers/{customerID}/payments [post]
// @Security BearerAuth
func (h *LedgerHandler) RegisterPayment(w http.ResponseWriter, r *http.Request) {
	customerID, err := getCustomerIDFromURL(r)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to get customer ID from URL", slog.Any("error", err))
		respondError(w, err)
		return
	}

	var req dto.RegisterPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}
	if err := req.Validate(); err != nil {
		h.logger.WarnContext(r.Context(), "Request validation failed", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	result, err := h.service.RegisterPayment(r.Context(), customerID, req.Amount)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, customer.ErrNotFound) &&
			!errors.Is(err, apperrors.ErrInvalidPaymentAmount) &&
			!errors.Is(err, apperrors.ErrNoOutstandingDebt) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to register payment", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Payment registered successfully", slog.Bool("settled", result.Settled))
	respondJSON(w, http.StatusOK, dto.NewPaymentResponse(result))
}

// LiquidateDebt handles POST /customers/{customerID}/liquidation
// @Summary Liquidate a customer's debt
// @Description Clears the whole tab regardless of how much has been paid, resetting purchases and payment history.
// @Tags Ledger
// @Produce json
// @Param customerID path int true "Customer ID" Minimum(1)
// @Success 200 {object} dto.LiquidationResponse "Debt liquidated"
// @Failure 400 {object} dto.ErrorResponse "Invalid customer ID"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 409 {object} dto.ErrorResponse "Customer has no outstanding debt"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /customers/{customerID}/liquidation [post]
// @Security BearerAuth
func (h *LedgerHandler) LiquidateDebt(w http.ResponseWriter, r *http.Request) {
	customerID, err := getCustomerIDFromURL(r)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to get customer ID from URL", slog.Any("error", err))
		respondError(w, err)
		return
	}

	result, err := h.service.LiquidateDebt(r.Context(), customerID)
	if err != nil {
		level := slog.LevelWarn
		if !errors.Is(err, customer.ErrNotFound) && !errors.Is(err, apperrors.ErrNoOutstandingDebt) {
			level = slog.LevelError
		}
		h.logger.Log(r.Context(), level, "Service failed to liquidate debt", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Debt liquidated successfully", slog.Int("itemCount", result.ItemCount))
	respondJSON(w, http.StatusOK, dto.LiquidationResponse{ItemCount: result.ItemCount})
}
