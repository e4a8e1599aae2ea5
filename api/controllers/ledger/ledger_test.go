package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/hirepurchase-backend/api/middleware"
	"github.com/angelmondragon/hirepurchase-backend/internal/delivery"
	internalpayments "github.com/angelmondragon/hirepurchase-backend/internal/payments"
	"github.com/angelmondragon/hirepurchase-backend/internal/pricing"
	internalpurchases "github.com/angelmondragon/hirepurchase-backend/internal/purchases"
	"github.com/angelmondragon/hirepurchase-backend/internal/waybills"
	"github.com/angelmondragon/hirepurchase-backend/pkg/auth"
	"github.com/angelmondragon/hirepurchase-backend/pkg/db/models"
	"github.com/angelmondragon/hirepurchase-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hirepurchase-backend/pkg/errors"
	"github.com/angelmondragon/hirepurchase-backend/pkg/pagination"
)

type stubPurchaseService struct {
	createFn    func(ctx context.Context, actor auth.Actor, input internalpurchases.CreateInput) (*internalpurchases.CreateResult, error)
	getFn       func(ctx context.Context, shopID, purchaseID uuid.UUID) (*internalpurchases.Detail, error)
	listFn      func(ctx context.Context, shopID uuid.UUID, filters internalpurchases.ListFilters) (*internalpurchases.PurchaseList, error)
	collectorFn func(ctx context.Context, actor auth.Actor, params pagination.Params) (*internalpurchases.PurchaseList, error)
}

func (s stubPurchaseService) Create(ctx context.Context, actor auth.Actor, input internalpurchases.CreateInput) (*internalpurchases.CreateResult, error) {
	return s.createFn(ctx, actor, input)
}

func (s stubPurchaseService) Get(ctx context.Context, shopID, purchaseID uuid.UUID) (*internalpurchases.Detail, error) {
	return s.getFn(ctx, shopID, purchaseID)
}

func (s stubPurchaseService) List(ctx context.Context, shopID uuid.UUID, filters internalpurchases.ListFilters) (*internalpurchases.PurchaseList, error) {
	return s.listFn(ctx, shopID, filters)
}

func (s stubPurchaseService) ListForCollector(ctx context.Context, actor auth.Actor, params pagination.Params) (*internalpurchases.PurchaseList, error) {
	return s.collectorFn(ctx, actor, params)
}

type stubPaymentService struct {
	applyFn func(ctx context.Context, actor auth.Actor, input internalpayments.ApplyInput) (*internalpayments.ApplyResult, error)
	listFn  func(ctx context.Context, shopID, purchaseID uuid.UUID) ([]models.Payment, error)
}

func (s stubPaymentService) Apply(ctx context.Context, actor auth.Actor, input internalpayments.ApplyInput) (*internalpayments.ApplyResult, error) {
	return s.applyFn(ctx, actor, input)
}

func (s stubPaymentService) List(ctx context.Context, shopID, purchaseID uuid.UUID) ([]models.Payment, error) {
	return s.listFn(ctx, shopID, purchaseID)
}

type stubDeliveryService struct {
	transitionFn func(ctx context.Context, actor auth.Actor, input delivery.TransitionInput) (*models.Purchase, error)
}

func (s stubDeliveryService) Transition(ctx context.Context, actor auth.Actor, input delivery.TransitionInput) (*models.Purchase, error) {
	return s.transitionFn(ctx, actor, input)
}

type stubWaybillService struct {
	issueFn func(ctx context.Context, actor auth.Actor, input waybills.IssueInput) (*waybills.IssueResult, error)
	getFn   func(ctx context.Context, shopID, purchaseID uuid.UUID) (*models.Waybill, error)
}

func (s stubWaybillService) Issue(ctx context.Context, actor auth.Actor, input waybills.IssueInput) (*waybills.IssueResult, error) {
	return s.issueFn(ctx, actor, input)
}

func (s stubWaybillService) Get(ctx context.Context, shopID, purchaseID uuid.UUID) (*models.Waybill, error) {
	return s.getFn(ctx, shopID, purchaseID)
}

func testActor() auth.Actor {
	return auth.Actor{UserID: uuid.New(), ShopID: uuid.New(), Role: enums.StaffRoleStaff}
}

func newRequest(t *testing.T, method, target string, body any, actor *auth.Actor, params map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	ctx := req.Context()
	if actor != nil {
		ctx = middleware.WithActor(ctx, *actor)
	}
	if len(params) > 0 {
		rc := chi.NewRouteContext()
		for k, v := range params {
			rc.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rc)
	}
	return req.WithContext(ctx)
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v (%s)", err, resp.Body.String())
	}
	return envelope.Data
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) (string, map[string]any) {
	t.Helper()
	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error: %v (%s)", err, resp.Body.String())
	}
	return envelope.Error.Code, envelope.Error.Details
}

func samplePurchase(shopID uuid.UUID) models.Purchase {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return models.Purchase{
		ID:                 uuid.New(),
		ShopID:             shopID,
		CustomerID:         uuid.New(),
		PurchaseNumber:     "HP-20260301-0001",
		PurchaseType:       enums.PurchaseTypeCredit,
		Status:             enums.PurchaseStatusActive,
		Subtotal:           decimal.RequireFromString("1000.00"),
		InterestAmount:     decimal.RequireFromString("50.50"),
		TotalAmount:        decimal.RequireFromString("1050.50"),
		DownPayment:        decimal.RequireFromString("200.00"),
		AmountPaid:         decimal.RequireFromString("200.00"),
		OutstandingBalance: decimal.RequireFromString("850.50"),
		Installments:       3,
		TenorDays:          90,
		StartDate:          now,
		DueDate:            now.AddDate(0, 0, 90),
		DeliveryStatus:     enums.DeliveryStatusPending,
		CreatedAt:          now,
	}
}

func TestCreatePurchaseReturnsCreated(t *testing.T) {
	actor := testActor()
	customerID := uuid.New()
	productID := uuid.New()

	var captured internalpurchases.CreateInput
	svc := stubPurchaseService{
		createFn: func(ctx context.Context, got auth.Actor, input internalpurchases.CreateInput) (*internalpurchases.CreateResult, error) {
			require.Equal(t, actor, got)
			captured = input
			p := samplePurchase(actor.ShopID)
			return &internalpurchases.CreateResult{
				Purchase: &p,
				Schedule: []pricing.Installment{{Sequence: 1, DueDate: p.DueDate, Amount: p.OutstandingBalance}},
			}, nil
		},
	}

	body := map[string]any{
		"customer_id":         customerID,
		"purchase_type":       "credit",
		"items":               []map[string]any{{"product_id": productID, "quantity": 2}},
		"down_payment":        "200.00",
		"down_payment_method": "cash",
		"tenor_days":          90,
	}
	resp := httptest.NewRecorder()
	CreatePurchase(svc, nil).ServeHTTP(resp, newRequest(t, http.MethodPost, "/api/v1/purchases", body, &actor, nil))

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	require.Equal(t, customerID, captured.CustomerID)
	require.Equal(t, enums.PurchaseTypeCredit, captured.PurchaseType)
	require.Equal(t, enums.PaymentMethodCash, captured.DownPaymentMethod)
	require.True(t, captured.DownPayment.Equal(decimal.RequireFromString("200")))
	require.Len(t, captured.Items, 1)
	require.Equal(t, 2, captured.Items[0].Quantity)

	data := decodeData(t, resp)
	purchase := data["purchase"].(map[string]any)
	require.Equal(t, "1050.5", purchase["total_amount"])
	require.Equal(t, "850.5", purchase["outstanding_balance"])
	require.Len(t, data["schedule"], 1)
}

func TestCreatePurchaseRejectsInvalidPayload(t *testing.T) {
	actor := testActor()
	svc := stubPurchaseService{
		createFn: func(context.Context, auth.Actor, internalpurchases.CreateInput) (*internalpurchases.CreateResult, error) {
			t.Fatalf("service must not be called")
			return nil, nil
		},
	}

	cases := map[string]any{
		"missing items": map[string]any{
			"customer_id":   uuid.New(),
			"purchase_type": "cash",
			"tenor_days":    30,
		},
		"unknown type": map[string]any{
			"customer_id":   uuid.New(),
			"purchase_type": "rent_to_own",
			"items":         []map[string]any{{"product_id": uuid.New(), "quantity": 1}},
			"tenor_days":    30,
		},
		"installments beyond tenor": map[string]any{
			"customer_id":   uuid.New(),
			"purchase_type": "credit",
			"items":         []map[string]any{{"product_id": uuid.New(), "quantity": 1}},
			"tenor_days":    30,
			"installments":  2000000000,
		},
		"malformed json": `{"customer_id":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp := httptest.NewRecorder()
			CreatePurchase(svc, nil).ServeHTTP(resp, newRequest(t, http.MethodPost, "/api/v1/purchases", body, &actor, nil))
			require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
			code, _ := decodeError(t, resp)
			require.Equal(t, string(pkgerrors.CodeValidation), code)
		})
	}
}

func TestCreatePurchaseRequiresActor(t *testing.T) {
	resp := httptest.NewRecorder()
	CreatePurchase(stubPurchaseService{}, nil).ServeHTTP(resp, newRequest(t, http.MethodPost, "/api/v1/purchases", "{}", nil, nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestListPurchasesParsesFilters(t *testing.T) {
	actor := testActor()
	customerID := uuid.New()
	svc := stubPurchaseService{
		listFn: func(ctx context.Context, shopID uuid.UUID, filters internalpurchases.ListFilters) (*internalpurchases.PurchaseList, error) {
			require.Equal(t, actor.ShopID, shopID)
			require.NotNil(t, filters.CustomerID)
			require.Equal(t, customerID, *filters.CustomerID)
			require.NotNil(t, filters.Status)
			require.Equal(t, enums.PurchaseStatusOverdue, *filters.Status)
			require.Equal(t, 5, filters.Params.Limit)
			require.Equal(t, "abc", filters.Params.Cursor)
			return &internalpurchases.PurchaseList{Purchases: []models.Purchase{samplePurchase(shopID)}, NextCursor: "next"}, nil
		},
	}

	target := "/api/v1/purchases?customer_id=" + customerID.String() + "&status=overdue&limit=5&cursor=abc"
	resp := httptest.NewRecorder()
	ListPurchases(svc, nil).ServeHTTP(resp, newRequest(t, http.MethodGet, target, nil, &actor, nil))

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	data := decodeData(t, resp)
	require.Equal(t, "next", data["next_cursor"])
	require.Len(t, data["purchases"], 1)
}

func TestListPurchasesRejectsBadStatus(t *testing.T) {
	actor := testActor()
	resp := httptest.NewRecorder()
	ListPurchases(stubPurchaseService{}, nil).ServeHTTP(resp, newRequest(t, http.MethodGet, "/api/v1/purchases?status=lost", nil, &actor, nil))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestPurchaseDetailNotFound(t *testing.T) {
	actor := testActor()
	purchaseID := uuid.New()
	svc := stubPurchaseService{
		getFn: func(ctx context.Context, shopID, id uuid.UUID) (*internalpurchases.Detail, error) {
			require.Equal(t, purchaseID, id)
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
		},
	}
	resp := httptest.NewRecorder()
	PurchaseDetail(svc, nil).ServeHTTP(resp, newRequest(t, http.MethodGet, "/api/v1/purchases/"+purchaseID.String(), nil, &actor,
		map[string]string{"purchaseId": purchaseID.String()}))
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestApplyPaymentPassesOverpaymentPolicy(t *testing.T) {
	actor := testActor()
	purchase := samplePurchase(actor.ShopID)
	svc := stubPaymentService{
		applyFn: func(ctx context.Context, got auth.Actor, input internalpayments.ApplyInput) (*internalpayments.ApplyResult, error) {
			require.Equal(t, purchase.ID, input.PurchaseID)
			require.Equal(t, enums.OverpaymentCap, input.Overpayment)
			require.Equal(t, enums.PaymentMethodMobileMoney, input.Method)
			require.NotNil(t, input.Reference)
			require.Equal(t, "MM-778", *input.Reference)

			refused := input.Amount.Sub(purchase.OutstandingBalance)
			settled := purchase
			settled.AmountPaid = purchase.TotalAmount
			settled.OutstandingBalance = decimal.Zero
			settled.Status = enums.PurchaseStatusCompleted
			return &internalpayments.ApplyResult{
				Payment: models.Payment{
					ID:         uuid.New(),
					PurchaseID: purchase.ID,
					Amount:     purchase.OutstandingBalance,
					Method:     input.Method,
					Status:     enums.PaymentStatusConfirmed,
				},
				Purchase:    settled,
				Overpayment: &refused,
			}, nil
		},
	}

	body := map[string]any{"amount": "900.50", "method": "mobile_money", "reference": "  MM-778 ", "overpayment": "cap"}
	resp := httptest.NewRecorder()
	ApplyPayment(svc, nil).ServeHTTP(resp, newRequest(t, http.MethodPost, "/api/v1/purchases/"+purchase.ID.String()+"/payments", body, &actor,
		map[string]string{"purchaseId": purchase.ID.String()}))

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	data := decodeData(t, resp)
	require.Equal(t, "50", data["overpayment"])
	require.Equal(t, "COMPLETED", data["purchase"].(map[string]any)["status"])
	require.Equal(t, "850.5", data["payment"].(map[string]any)["amount"])
}

func TestApplyPaymentRejectsNonPositiveAmount(t *testing.T) {
	actor := testActor()
	purchaseID := uuid.New()
	resp := httptest.NewRecorder()
	ApplyPayment(stubPaymentService{}, nil).ServeHTTP(resp, newRequest(t, http.MethodPost, "/", map[string]any{"amount": "0", "method": "cash"}, &actor,
		map[string]string{"purchaseId": purchaseID.String()}))
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())
}

func TestApplyPaymentSurfacesConflictReason(t *testing.T) {
	actor := testActor()
	purchaseID := uuid.New()
	svc := stubPaymentService{
		applyFn: func(context.Context, auth.Actor, internalpayments.ApplyInput) (*internalpayments.ApplyResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "payment exceeds outstanding balance").
				WithDetails(map[string]any{"reason": "overpayment"})
		},
	}
	resp := httptest.NewRecorder()
	ApplyPayment(svc, nil).ServeHTTP(resp, newRequest(t, http.MethodPost, "/", map[string]any{"amount": "10", "method": "cash"}, &actor,
		map[string]string{"purchaseId": purchaseID.String()}))

	require.Equal(t, http.StatusConflict, resp.Code)
	code, details := decodeError(t, resp)
	require.Equal(t, string(pkgerrors.CodeConflict), code)
	require.Equal(t, "overpayment", details["reason"])
}

func TestListPaymentsWrapsRows(t *testing.T) {
	actor := testActor()
	purchaseID := uuid.New()
	svc := stubPaymentService{
		listFn: func(ctx context.Context, shopID, id uuid.UUID) ([]models.Payment, error) {
			require.Equal(t, actor.ShopID, shopID)
			return []models.Payment{{ID: uuid.New(), PurchaseID: id, Amount: decimal.NewFromInt(100), Method: enums.PaymentMethodCash}}, nil
		},
	}
	resp := httptest.NewRecorder()
	ListPayments(svc, nil).ServeHTTP(resp, newRequest(t, http.MethodGet, "/", nil, &actor, map[string]string{"purchaseId": purchaseID.String()}))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, decodeData(t, resp)["payments"], 1)
}

func TestSetDeliveryStatusRejectsUnknownStatus(t *testing.T) {
	actor := testActor()
	purchaseID := uuid.New()
	resp := httptest.NewRecorder()
	SetDeliveryStatus(stubDeliveryService{}, nil).ServeHTTP(resp, newRequest(t, http.MethodPost, "/", map[string]any{"status": "teleported"}, &actor,
		map[string]string{"purchaseId": purchaseID.String()}))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSetDeliveryStatusStateConflict(t *testing.T) {
	actor := testActor()
	purchaseID := uuid.New()
	svc := stubDeliveryService{
		transitionFn: func(ctx context.Context, got auth.Actor, input delivery.TransitionInput) (*models.Purchase, error) {
			require.Equal(t, enums.DeliveryStatusScheduled, input.Status)
			require.NotNil(t, input.ScheduledDate)
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "delivery already completed")
		},
	}
	body := map[string]any{"status": "scheduled", "scheduled_date": "2026-04-01T00:00:00Z"}
	resp := httptest.NewRecorder()
	SetDeliveryStatus(svc, nil).ServeHTTP(resp, newRequest(t, http.MethodPost, "/", body, &actor, map[string]string{"purchaseId": purchaseID.String()}))
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestIssueWaybillAcceptsEmptyBody(t *testing.T) {
	actor := testActor()
	purchaseID := uuid.New()
	svc := stubWaybillService{
		issueFn: func(ctx context.Context, got auth.Actor, input waybills.IssueInput) (*waybills.IssueResult, error) {
			require.Equal(t, purchaseID, input.PurchaseID)
			require.Nil(t, input.RecipientName)
			return &waybills.IssueResult{
				Waybill: models.Waybill{
					ID:              uuid.New(),
					PurchaseID:      purchaseID,
					WaybillNumber:   "WB-20260301-0001",
					RecipientName:   "Ama Mensah",
					RecipientPhone:  "+233200000000",
					DeliveryAddress: "12 Ring Road",
					IssuedByID:      got.UserID,
				},
				DeliveryStatus: enums.DeliveryStatusScheduled,
			}, nil
		},
	}
	resp := httptest.NewRecorder()
	IssueWaybill(svc, nil).ServeHTTP(resp, newRequest(t, http.MethodPost, "/", nil, &actor, map[string]string{"purchaseId": purchaseID.String()}))

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	data := decodeData(t, resp)
	require.Equal(t, "SCHEDULED", data["delivery_status"])
	require.Equal(t, "WB-20260301-0001", data["waybill"].(map[string]any)["waybill_number"])
}

func TestGetWaybillBadParam(t *testing.T) {
	actor := testActor()
	resp := httptest.NewRecorder()
	GetWaybill(stubWaybillService{}, nil).ServeHTTP(resp, newRequest(t, http.MethodGet, "/", nil, &actor, map[string]string{"purchaseId": "nope"}))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}
