package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/hirepurchase-backend/pkg/errors"
)

type paymentBody struct {
	CustomerID uuid.UUID       `json:"customer_id" validate:"required"`
	Amount     decimal.Decimal `json:"amount" validate:"gt=0"`
	Method     string          `json:"method" validate:"required,oneof=CASH TRANSFER"`
}

func decode(t *testing.T, body string) (paymentBody, error) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var dest paymentBody
	err := DecodeJSONBody(req, &dest)
	return dest, err
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	id := uuid.New()
	got, err := decode(t, `{"customer_id":"`+id.String()+`","amount":"150.25","method":"CASH"}`)
	require.NoError(t, err)
	assert.Equal(t, id, got.CustomerID)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("150.25")))
}

func TestDecodeJSONBodyValidatesCustomTypes(t *testing.T) {
	_, err := decode(t, `{"amount":"0","method":"CASH"}`)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", details["customer_id"])
	assert.Equal(t, "must be greater than 0", details["amount"])
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	_, err := decode(t, `{"customer_id":"`+uuid.NewString()+`","amount":"1","method":"CASH","price":"0.01"}`)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rc := chi.NewRouteContext()
	rc.URLParams.Add("purchaseId", id.String())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	got, err := ParseUUIDParam(req, "purchaseId")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseUUIDParam(httptest.NewRequest(http.MethodGet, "/", nil), "purchaseId")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestParseQueryUUID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?customer_id=nope", nil)
	_, err := ParseQueryUUID(req, "customer_id")
	assert.Error(t, err)

	got, err := ParseQueryUUID(httptest.NewRequest(http.MethodGet, "/", nil), "customer_id")
	require.NoError(t, err)
	assert.Nil(t, got)
}
