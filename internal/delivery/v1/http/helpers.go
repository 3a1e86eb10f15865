package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
	"github.com/go-chi/chi/v5"
)

const (
	headerOperatorID   = "X-Operator-ID"
	headerOperatorRole = "X-Operator-Role"

	maxBodySize = 1 << 20
)

type ErrorResponse struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail называет строку корзины, из-за которой операция не прошла.
type ErrorDetail struct {
	ProductID int64  `json:"productId"`
	SKU       string `json:"sku,omitempty"`
	Name      string `json:"name,omitempty"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
	Reason    string `json:"reason"`
}

func NewErrorResponse(code int, message string, details []ErrorDetail) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Порядок важен: ErrCatalogNotLoaded оборачивает ErrCollaboratorUnavailable.
var errorStatuses = []struct {
	err    error
	status int
}{
	{e.ErrStatusBadRequest, http.StatusBadRequest},
	{e.ErrMissingFields, http.StatusBadRequest},
	{e.ErrInvalidQuantity, http.StatusBadRequest},
	{e.ErrNoMedications, http.StatusBadRequest},
	{e.ErrUnknownFormat, http.StatusBadRequest},
	{e.ErrNotPermitted, http.StatusForbidden},
	{e.ErrSessionNotFound, http.StatusNotFound},
	{e.ErrProductNotFound, http.StatusNotFound},
	{e.ErrLineNotFound, http.StatusNotFound},
	{e.ErrNoIssue, http.StatusNotFound},
	{e.ErrInsufficientStock, http.StatusConflict},
	{e.ErrFulfillmentRejected, http.StatusConflict},
	{e.ErrSubmissionInProgress, http.StatusConflict},
	{e.ErrInvalidTransition, http.StatusConflict},
	{e.ErrPrescriptionConsumed, http.StatusConflict},
	{e.ErrDispatchInProgress, http.StatusConflict},
	{e.ErrSearchSuperseded, http.StatusConflict},
	{e.ErrEmptyCart, http.StatusUnprocessableEntity},
	{e.ErrCatalogNotLoaded, http.StatusServiceUnavailable},
	{e.ErrCollaboratorUnavailable, http.StatusServiceUnavailable},
}

func ToHTTPResponse(err error) (int, string) {
	for _, s := range errorStatuses {
		if errors.Is(err, s.err) {
			return s.status, s.err.Error()
		}
	}

	return http.StatusInternalServerError, e.ErrInternalServerError.Error()
}

// errorDetails вытаскивает из типизированных ошибок виновные строки.
func errorDetails(err error) []ErrorDetail {
	var stockErr *domain.StockError
	if errors.As(err, &stockErr) {
		return []ErrorDetail{{
			ProductID: stockErr.ProductID,
			Name:      stockErr.ProductName,
			Requested: stockErr.Requested,
			Available: stockErr.Available,
			Reason:    string(domain.RejectInsufficientStock),
		}}
	}

	var rejection *domain.RejectionError
	if errors.As(err, &rejection) {
		details := make([]ErrorDetail, 0, len(rejection.Lines))
		for _, l := range rejection.Lines {
			details = append(details, ErrorDetail{
				ProductID: l.ProductID,
				SKU:       l.SKU,
				Requested: l.Requested,
				Available: l.Available,
				Reason:    string(l.Reason),
			})
		}
		return details
	}

	return nil
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(NewErrorResponse(code, msg, errorDetails(err)))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %s", e.ErrStatusBadRequest, err.Error())
	}

	return nil
}

// operatorFromHeaders читает личность оператора, переданную шлюзом авторизации.
func operatorFromHeaders(r *http.Request) (domain.Operator, error) {
	id := strings.TrimSpace(r.Header.Get(headerOperatorID))
	roleName := r.Header.Get(headerOperatorRole)
	if id == "" || roleName == "" {
		return domain.Operator{}, fmt.Errorf("%w: %s and %s headers", e.ErrMissingFields, headerOperatorID, headerOperatorRole)
	}

	role, err := domain.ParseRole(roleName)
	if err != nil {
		return domain.Operator{}, err
	}

	return domain.Operator{ID: id, Role: role}, nil
}

func productIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "productId")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid product id %q", e.ErrStatusBadRequest, raw)
	}

	return id, nil
}

func formatParam(r *http.Request) (domain.Format, error) {
	return domain.ParseFormat(chi.URLParam(r, "format"))
}

func parseBoolQuery(r *http.Request, key string) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return false, nil
	}

	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be boolean", e.ErrStatusBadRequest, key)
	}

	return v, nil
}
