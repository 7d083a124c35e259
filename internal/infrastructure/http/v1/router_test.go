package v1_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcost/internal/core/id"
	"stockcost/internal/domain/catalogs/product"
	"stockcost/internal/domain/documents/purchase_order"
	"stockcost/internal/domain/documents/receiving"
	"stockcost/internal/domain/registers/stock"
	v1 "stockcost/internal/infrastructure/http/v1"
	"stockcost/internal/infrastructure/http/v1/middleware"
	"stockcost/internal/infrastructure/storage/memory"
	"stockcost/pkg/logger"
)

type api struct {
	t      *testing.T
	router *gin.Engine
	store  *memory.Store
}

func newAPI(t *testing.T) *api {
	t.Helper()
	store := memory.New()
	numbers := memory.NewNumerator()
	stockSvc := stock.NewService(store.Stock(), store.Products(), store)

	router := v1.NewRouter(v1.RouterConfig{
		Services: v1.Services{
			Products:       product.NewService(store.Products(), store, numbers),
			PurchaseOrders: purchase_order.NewService(store.PurchaseOrders(), store.Products(), numbers, store),
			Receiving: receiving.NewService(store.Vouchers(), store.Products(), store.PurchaseOrders(),
				stockSvc, store.Events(), numbers, store),
			Stock: stockSvc,
		},
		Logger:      logger.Nop(),
		Storage:     "memory",
		Idempotency: memory.NewIdempotencyStore(time.Hour),
	})
	return &api{t: t, router: router, store: store}
}

func (a *api) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// seed creates water (bottle, case=24) and a purchase order for 10 cases at 240.
func (a *api) seed() (productID, lineID, warehouseID string) {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/v1/catalog/products", map[string]any{
		"name":    "Water 0.5l",
		"baseUom": "bottle",
		"uoms":    []map[string]any{{"name": "case", "conversionFactor": "24", "sellingPrice": "0"}},
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	productID = decode(a.t, rec)["id"].(string)

	warehouseID = id.New().String()
	rec = a.do(http.MethodPost, "/api/v1/document/purchase-orders", map[string]any{
		"supplierId":  id.New().String(),
		"warehouseId": warehouseID,
		"lines": []map[string]any{
			{"productId": productID, "uom": "case", "quantity": "10", "unitPrice": "240"},
		},
	})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	lines := decode(a.t, rec)["lines"].([]any)
	lineID = lines[0].(map[string]any)["id"].(string)
	return productID, lineID, warehouseID
}

func receiveBody(productID, lineID, warehouseID, qty, uom string) map[string]any {
	return map[string]any{
		"productId":           productID,
		"warehouseId":         warehouseID,
		"purchaseOrderLineId": lineID,
		"quantity":            qty,
		"uom":                 uom,
		"unitPrice":           "240",
	}
}

func TestHealthLive(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.HeaderRequestID))
}

func TestReceiveStockHappyPath(t *testing.T) {
	a := newAPI(t)
	productID, lineID, warehouseID := a.seed()

	rec := a.do(http.MethodPost, "/api/v1/document/receiving/receive-stock",
		receiveBody(productID, lineID, warehouseID, "10", "case"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decode(t, rec)
	item := body["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "240", item["newInventoryQuantity"])
	assert.Equal(t, "10", item["newAverageCost"])
	assert.Equal(t, "received", body["purchaseOrderStatus"])

	rec = a.do(http.MethodGet, "/api/v1/registers/stock/balances?productId="+productID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "240", decode(t, rec)["total"])

	rec = a.do(http.MethodGet, "/api/v1/catalog/products/"+productID+"/convert?qty=2&from=case&to=bottle", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "48", decode(t, rec)["result"])
}

func TestErrorStatusMapping(t *testing.T) {
	a := newAPI(t)
	productID, lineID, warehouseID := a.seed()

	t.Run("not found", func(t *testing.T) {
		rec := a.do(http.MethodGet, "/api/v1/catalog/products/"+id.New().String(), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "PRODUCT_NOT_FOUND", decode(t, rec)["code"])
	})

	t.Run("bad id", func(t *testing.T) {
		rec := a.do(http.MethodGet, "/api/v1/document/receiving/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", decode(t, rec)["code"])
	})

	t.Run("unconfigured uom", func(t *testing.T) {
		rec := a.do(http.MethodPost, "/api/v1/document/receiving/receive-stock",
			receiveBody(productID, lineID, warehouseID, "1", "pallet"))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "UOM_NOT_CONFIGURED", decode(t, rec)["code"])
	})

	t.Run("cancel twice", func(t *testing.T) {
		rec := a.do(http.MethodPost, "/api/v1/document/receiving/receive-stock",
			receiveBody(productID, lineID, warehouseID, "1", "case"))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		voucherID := decode(t, rec)["voucherId"].(string)

		cancelPath := "/api/v1/document/receiving/" + voucherID + "/cancel"
		rec = a.do(http.MethodPost, cancelPath, map[string]any{"reason": "wrong delivery"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = a.do(http.MethodPost, cancelPath, map[string]any{"reason": "wrong delivery"})
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "ALREADY_CANCELLED", decode(t, rec)["code"])
	})
}

func TestIdempotentReceiveIsReplayed(t *testing.T) {
	a := newAPI(t)
	productID, lineID, warehouseID := a.seed()
	body := receiveBody(productID, lineID, warehouseID, "5", "case")

	first := a.do(http.MethodPost, "/api/v1/document/receiving/receive-stock", body,
		middleware.HeaderIdempotencyKey, "rcv-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := a.do(http.MethodPost, "/api/v1/document/receiving/receive-stock", body,
		middleware.HeaderIdempotencyKey, "rcv-1")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	rec := a.do(http.MethodGet, "/api/v1/registers/stock/balances?productId="+productID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "120", decode(t, rec)["total"])

	other := receiveBody(productID, lineID, warehouseID, "1", "case")
	rec = a.do(http.MethodPost, "/api/v1/document/receiving/receive-stock", other,
		middleware.HeaderIdempotencyKey, "rcv-1")
	assert.Equal(t, http.StatusConflict, rec.Code)
}
