package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AKAPP611/al-jameel-mes/internal/shared"
)

func TestRespondErrorMapsClasses(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: order X", shared.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: quantity", shared.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: already fulfilled", shared.ErrConflict), http.StatusConflict},
		{fmt.Errorf("load: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		require.Equal(t, tc.status, rec.Code, tc.err.Error())
		require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

		var problem ProblemDetail
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
		require.Equal(t, tc.status, problem.Status)
	}

	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("secret backend detail"))
	require.NotContains(t, rec.Body.String(), "secret backend detail")
}

func TestDecodeJSON(t *testing.T) {
	var target struct {
		SKU string `json:"sku"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"sku":"PST-18-21"}`))
	require.NoError(t, DecodeJSON(req, &target))
	require.Equal(t, "PST-18-21", target.SKU)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"sku":`))
	err := DecodeJSON(req, &target)
	require.ErrorIs(t, err, shared.ErrValidation)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	err = DecodeJSON(req, &target)
	require.ErrorIs(t, err, io.EOF)
}
