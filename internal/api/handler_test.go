package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"stockpos/m/internal/auth"
	"stockpos/m/internal/ledger"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	t.Setenv("SEED_USERNAME", "tester")
	t.Setenv("SEED_PASSWORD", "testpassword")

	users := auth.NewStore()
	inv := ledger.NewInventory()
	sales := ledger.NewSales(inv)
	promos := ledger.NewPromotions()
	return New(users, inv, sales, promos, "test_secret").Router()
}

func do(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func loginToken(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "tester",
		"password": "testpassword",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	token, _ := body["access_token"].(string)
	if token == "" {
		t.Fatal("expected access_token in login response")
	}
	if body["token_type"] != "bearer" {
		t.Fatalf("expected token_type bearer, got %v", body["token_type"])
	}
	return token
}

func createTestProduct(t *testing.T, router http.Handler, token, code string, quantity int, price float64) {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/products/", token, map[string]any{
		"code":        code,
		"name":        "Test Product",
		"category":    "test",
		"quantity":    quantity,
		"price":       price,
		"description": "a product used for testing",
		"supplier":    "Test Supplier",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product failed: %d %s", rec.Code, rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)
	rec := do(t, router, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/auth/register", "", map[string]string{
		"username":  "newuser",
		"password":  "newpassword",
		"full_name": "New User",
		"email":     "newuser@example.com",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["username"] != "newuser" {
		t.Errorf("expected username newuser, got %v", body["username"])
	}
	if _, ok := body["password"]; ok {
		t.Error("password must not be exposed in the response")
	}

	rec = do(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "newuser",
		"password": "newpassword",
	})
	if rec.Code != http.StatusOK {
		t.Errorf("login as new user failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "nonexistent",
		"password": "wrongpassword",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("invalid login should fail with 401, got %d", rec.Code)
	}
}

func TestResetPassword(t *testing.T) {
	router := newTestRouter(t)
	token := loginToken(t, router)

	rec := do(t, router, http.MethodPost, "/auth/reset-password", token, map[string]string{
		"new_password": "changedpassword",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("reset password failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodPost, "/auth/login", "", map[string]string{
		"username": "tester",
		"password": "changedpassword",
	})
	if rec.Code != http.StatusOK {
		t.Errorf("login with changed password failed: %d", rec.Code)
	}
}

func TestProtectedEndpointsRequireToken(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/reports/sales", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/reports/sales", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with bogus token, got %d", rec.Code)
	}
}

func TestProductLifecycle(t *testing.T) {
	router := newTestRouter(t)
	token := loginToken(t, router)

	createTestProduct(t, router, token, "TP001", 50, 20.0)

	rec := do(t, router, http.MethodPost, "/products/", token, map[string]any{
		"code": "TP001", "name": "Again", "category": "", "quantity": 1, "price": 1.0,
		"description": "", "supplier": "",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate product creation should fail with 409, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodPut, "/products/TP001/add", token, map[string]int{"quantity": 20})
	if rec.Code != http.StatusOK {
		t.Fatalf("add stock failed: %d %s", rec.Code, rec.Body.String())
	}
	if qty := decodeBody(t, rec)["quantity"].(float64); qty != 70 {
		t.Errorf("expected quantity 70, got %v", qty)
	}

	rec = do(t, router, http.MethodPut, "/products/TP001/remove", token, map[string]int{"quantity": 1000})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("removing more than available should fail with 400, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodPut, "/products/TP001/remove", token, map[string]int{"quantity": 10})
	if rec.Code != http.StatusOK {
		t.Fatalf("remove stock failed: %d %s", rec.Code, rec.Body.String())
	}
	if qty := decodeBody(t, rec)["quantity"].(float64); qty != 60 {
		t.Errorf("expected quantity 60, got %v", qty)
	}

	rec = do(t, router, http.MethodPut, "/products/TP001/stock", token, map[string]int{"quantity": 100})
	if rec.Code != http.StatusOK {
		t.Fatalf("set stock failed: %d %s", rec.Code, rec.Body.String())
	}
	if qty := decodeBody(t, rec)["quantity"].(float64); qty != 100 {
		t.Errorf("expected quantity 100, got %v", qty)
	}

	rec = do(t, router, http.MethodPut, "/products/TP001", token, map[string]any{"price": 25.5})
	if rec.Code != http.StatusOK {
		t.Fatalf("update product failed: %d %s", rec.Code, rec.Body.String())
	}
	if price := decodeBody(t, rec)["price"].(float64); price != 25.5 {
		t.Errorf("expected price 25.5, got %v", price)
	}

	rec = do(t, router, http.MethodPut, "/products/UNKNOWN/add", token, map[string]int{"quantity": 1})
	if rec.Code != http.StatusNotFound {
		t.Errorf("mutating an unknown product should fail with 404, got %d", rec.Code)
	}

	// Every successful mutation above must be journaled.
	rec = do(t, router, http.MethodGet, "/reports/movements", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("movements report failed: %d", rec.Code)
	}
	var movements []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &movements); err != nil {
		t.Fatalf("decode movements: %v", err)
	}
	if len(movements) != 3 {
		t.Fatalf("expected 3 movements, got %d", len(movements))
	}
	for i, kind := range []string{"addition", "removal", "update"} {
		if movements[i]["kind"] != kind {
			t.Errorf("movement %d: expected kind %s, got %v", i, kind, movements[i]["kind"])
		}
		if movements[i]["user"] != "tester" {
			t.Errorf("movement %d: expected user tester, got %v", i, movements[i]["user"])
		}
	}
}

func TestLowStockAlert(t *testing.T) {
	router := newTestRouter(t)
	token := loginToken(t, router)

	createTestProduct(t, router, token, "LOW", 4, 10.0)
	createTestProduct(t, router, token, "HIGH", 50, 10.0)

	rec := do(t, router, http.MethodGet, "/products/low-stock", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("low stock alert failed: %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if _, ok := body["LOW"]; !ok {
		t.Error("expected LOW in low-stock alert")
	}
	if _, ok := body["HIGH"]; ok {
		t.Error("HIGH should not appear below the default threshold")
	}

	rec = do(t, router, http.MethodGet, "/products/low-stock?threshold=100", token, nil)
	if len(decodeBody(t, rec)) != 2 {
		t.Error("expected both products below threshold 100")
	}
}

func TestSaleFlow(t *testing.T) {
	router := newTestRouter(t)
	token := loginToken(t, router)

	createTestProduct(t, router, token, "TP001", 50, 20.0)

	rec := do(t, router, http.MethodPost, "/sales/", token, map[string]any{
		"items": []map[string]any{
			{"code": "TP001", "quantity": 5, "unit_price": 999.0, "discount_percent": 10.0},
		},
		"discount_percent": 5.0,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register sale failed: %d %s", rec.Code, rec.Body.String())
	}
	sale := decodeBody(t, rec)
	if sale["total"].(float64) != 85.50 {
		t.Errorf("expected total 85.50, got %v", sale["total"])
	}
	if sale["id"].(float64) != 1 {
		t.Errorf("expected sale id 1, got %v", sale["id"])
	}

	rec = do(t, router, http.MethodGet, "/reports/stock", token, nil)
	stock := decodeBody(t, rec)
	product := stock["TP001"].(map[string]any)
	if product["quantity"].(float64) != 45 {
		t.Errorf("expected quantity 45 after sale, got %v", product["quantity"])
	}

	rec = do(t, router, http.MethodGet, "/sales/1/receipt", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("receipt failed: %d %s", rec.Code, rec.Body.String())
	}
	receipt := decodeBody(t, rec)
	items := receipt["items"].([]any)
	if sub := items[0].(map[string]any)["subtotal"].(float64); sub != 90.00 {
		t.Errorf("expected subtotal 90.00, got %v", sub)
	}
	if receipt["total"].(float64) != 85.50 {
		t.Errorf("expected receipt total 85.50, got %v", receipt["total"])
	}

	rec = do(t, router, http.MethodGet, "/sales/999/receipt", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown receipt should fail with 404, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodPost, "/sales/", token, map[string]any{
		"items": []map[string]any{
			{"code": "INVALID", "quantity": 1},
		},
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("sale with unknown product should fail with 404, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/reports/sales", token, nil)
	var sales []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &sales); err != nil {
		t.Fatalf("decode sales report: %v", err)
	}
	if len(sales) != 1 {
		t.Errorf("expected 1 recorded sale, got %d", len(sales))
	}
}

func TestPromotionFlow(t *testing.T) {
	router := newTestRouter(t)
	token := loginToken(t, router)

	rec := do(t, router, http.MethodPost, "/promotions/", token, map[string]any{
		"code":             "PROMO20",
		"description":      "20% off for testing",
		"discount_percent": 20.0,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create promotion failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, router, http.MethodPost, "/promotions/", token, map[string]any{
		"code":             "PROMO20",
		"description":      "again",
		"discount_percent": 20.0,
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate promotion should fail with 409, got %d", rec.Code)
	}

	// No range validation: >100% discounts are stored as given.
	rec = do(t, router, http.MethodPost, "/promotions/", token, map[string]any{
		"code":             "PROMO_INVALID",
		"description":      "invalid promotion",
		"discount_percent": 150.0,
	})
	if rec.Code != http.StatusCreated {
		t.Errorf("permissive discount should be accepted, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/promotions/", token, nil)
	var promos []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &promos); err != nil {
		t.Fatalf("decode promotions: %v", err)
	}
	if len(promos) != 2 {
		t.Fatalf("expected 2 promotions, got %d", len(promos))
	}

	// Applying the promotion is the caller's job: pass its percentage as
	// the sale-wide discount.
	createTestProduct(t, router, token, "TP001", 100, 20.0)
	rec = do(t, router, http.MethodPost, "/sales/", token, map[string]any{
		"items": []map[string]any{
			{"code": "TP001", "quantity": 10},
		},
		"discount_percent": promos[0]["discount_percent"],
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("sale with promotion failed: %d %s", rec.Code, rec.Body.String())
	}
	if total := decodeBody(t, rec)["total"].(float64); total != 160.00 {
		t.Errorf("expected total 160.00, got %v", total)
	}

	rec = do(t, router, http.MethodGet, "/reports/stock", token, nil)
	product := decodeBody(t, rec)["TP001"].(map[string]any)
	if product["quantity"].(float64) != 90 {
		t.Errorf("expected quantity 90 after sale, got %v", product["quantity"])
	}
}
