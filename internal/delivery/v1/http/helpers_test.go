package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/DRSN-tech/pharmacy-counter/internal/domain"
	"github.com/DRSN-tech/pharmacy-counter/pkg/e"
	"github.com/stretchr/testify/assert"
)

func TestToHTTPResponse(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{e.Wrap("op", e.ErrSessionNotFound), http.StatusNotFound},
		{&domain.StockError{ProductID: 1, Requested: 4, Available: 3}, http.StatusConflict},
		{&domain.RejectionError{}, http.StatusConflict},
		{e.Wrap("op", e.ErrEmptyCart), http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: %w", e.ErrCatalogNotLoaded, e.ErrCollaboratorUnavailable), http.StatusServiceUnavailable},
		{e.ErrNotPermitted, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		code, _ := ToHTTPResponse(tc.err)
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}

func TestToHTTPResponse_CatalogNotLoadedMessage(t *testing.T) {
	_, msg := ToHTTPResponse(fmt.Errorf("%w: %w", e.ErrCatalogNotLoaded, e.ErrCollaboratorUnavailable))
	assert.Equal(t, e.ErrCatalogNotLoaded.Error(), msg)
}

func TestErrorDetails_RejectionListsEveryLine(t *testing.T) {
	err := e.Wrap("op", &domain.RejectionError{Lines: []domain.RejectedLine{
		{ProductID: 1, SKU: "PCM-500", Requested: 2, Available: 0, Reason: domain.RejectInsufficientStock},
		{ProductID: 9, Requested: 1, Reason: domain.RejectUnknownProduct},
	}})

	details := errorDetails(err)
	assert.Len(t, details, 2)
	assert.Equal(t, "unknown_product", details[1].Reason)
	assert.Nil(t, errorDetails(errors.New("boom")))
}
