package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"

	"stockpos/m/domain"
	"stockpos/m/internal/auth"
	"stockpos/m/internal/ledger"
)

type ctxKey string

const ctxUsername ctxKey = "username"

const defaultLowStockThreshold = 5

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	users  *auth.Store
	inv    *ledger.Inventory
	sales  *ledger.Sales
	promos *ledger.Promotions
	secret string
}

// New constructs a Handler.
func New(users *auth.Store, inv *ledger.Inventory, sales *ledger.Sales, promos *ledger.Promotions, secret string) *Handler {
	return &Handler{users: users, inv: inv, sales: sales, promos: promos, secret: secret}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Group(func(protected chi.Router) {
			protected.Use(h.authMiddleware)
			protected.Post("/reset-password", h.resetPassword)
		})
	})

	r.Group(func(pr chi.Router) {
		pr.Use(h.authMiddleware)

		pr.Route("/products", func(r chi.Router) {
			r.Post("/", h.createProduct)
			r.Get("/low-stock", h.lowStock)
			r.Put("/{code}", h.updateProduct)
			r.Put("/{code}/add", h.addStock)
			r.Put("/{code}/remove", h.removeStock)
			r.Put("/{code}/stock", h.setStock)
		})

		pr.Route("/sales", func(r chi.Router) {
			r.Post("/", h.createSale)
			r.Get("/{id}/receipt", h.receipt)
		})

		pr.Route("/promotions", func(r chi.Router) {
			r.Post("/", h.createPromotion)
			r.Get("/", h.listPromotions)
		})

		pr.Route("/reports", func(r chi.Router) {
			r.Get("/sales", h.salesReport)
			r.Get("/stock", h.stockReport)
			r.Get("/movements", h.movementsReport)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Authentication helpers

type authClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func (h *Handler) generateToken(username string) (string, error) {
	claims := authClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.secret))
}

func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		tokenString := strings.TrimSpace(header[len("Bearer "):])
		token, err := jwt.ParseWithClaims(tokenString, &authClaims{}, func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwt.SigningMethodHS256 {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(h.secret), nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		claims, ok := token.Claims.(*authClaims)
		if !ok {
			respondError(w, http.StatusUnauthorized, "invalid token claims")
			return
		}
		if _, ok := h.users.Lookup(claims.Username); !ok {
			respondError(w, http.StatusUnauthorized, "unknown user")
			return
		}
		ctx := context.WithValue(r.Context(), ctxUsername, claims.Username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func usernameFromContext(r *http.Request) string {
	if val := r.Context().Value(ctxUsername); val != nil {
		if name, ok := val.(string); ok {
			return name
		}
	}
	return ""
}

// Auth handlers

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	user, err := h.users.Register(req.Username, req.Password, req.FullName, req.Email)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			respondError(w, http.StatusConflict, err.Error())
		} else {
			respondError(w, http.StatusInternalServerError, "unable to secure password")
		}
		return
	}
	respondJSON(w, http.StatusCreated, user)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := h.users.Authenticate(req.Username, req.Password)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "incorrect username or password")
		return
	}
	token, err := h.generateToken(user.Username)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to generate token")
		return
	}
	respondJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if payload.NewPassword == "" {
		respondError(w, http.StatusBadRequest, "new_password is required")
		return
	}
	if err := h.users.SetPassword(usernameFromContext(r), payload.NewPassword); err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update password")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
}

// Product handlers

type productRequest struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Supplier    string  `json:"supplier"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Code == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "code and name are required")
		return
	}
	if req.Quantity < 0 || req.Price < 0 {
		respondError(w, http.StatusBadRequest, "quantity and price must not be negative")
		return
	}
	product, err := h.inv.Register(domain.Product{
		Code:        req.Code,
		Name:        req.Name,
		Category:    req.Category,
		Quantity:    req.Quantity,
		Price:       req.Price,
		Description: req.Description,
		Supplier:    req.Supplier,
	})
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, product)
}

type productUpdateRequest struct {
	Price       *float64 `json:"price,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Description *string  `json:"description,omitempty"`
	Supplier    *string  `json:"supplier,omitempty"`
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var req productUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Price != nil && *req.Price < 0 {
		respondError(w, http.StatusBadRequest, "price must not be negative")
		return
	}
	product, err := h.inv.UpdateProduct(chi.URLParam(r, "code"), ledger.ProductUpdate{
		Price:       req.Price,
		Category:    req.Category,
		Description: req.Description,
		Supplier:    req.Supplier,
	})
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) addStock(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	product, err := h.sales.AddStock(chi.URLParam(r, "code"), req.Quantity, usernameFromContext(r))
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handler) removeStock(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	product, err := h.sales.RemoveStock(chi.URLParam(r, "code"), req.Quantity, usernameFromContext(r))
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handler) setStock(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	product, err := h.sales.SetStock(chi.URLParam(r, "code"), req.Quantity, usernameFromContext(r))
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, product)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	threshold := defaultLowStockThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "threshold must be an integer")
			return
		}
		threshold = parsed
	}
	respondJSON(w, http.StatusOK, h.inv.LowStock(threshold))
}

// Sales handlers

type saleItemRequest struct {
	Code            string  `json:"code"`
	Quantity        int     `json:"quantity"`
	UnitPrice       float64 `json:"unit_price,omitempty"`
	DiscountPercent float64 `json:"discount_percent,omitempty"`
}

type saleRequest struct {
	Items           []saleItemRequest `json:"items"`
	DiscountPercent float64           `json:"discount_percent,omitempty"`
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	items := make([]domain.SaleItem, len(req.Items))
	for i, it := range req.Items {
		if it.Quantity < 0 {
			respondError(w, http.StatusBadRequest, "item quantity must not be negative")
			return
		}
		items[i] = domain.SaleItem{
			Code:            it.Code,
			Quantity:        it.Quantity,
			UnitPrice:       it.UnitPrice,
			DiscountPercent: it.DiscountPercent,
		}
	}
	sale, err := h.sales.RegisterSale(items, req.DiscountPercent, usernameFromContext(r))
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sale)
}

func (h *Handler) receipt(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sale id")
		return
	}
	receipt, err := h.sales.Receipt(id)
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, receipt)
}

// Promotion handlers

type promotionRequest struct {
	Code            string  `json:"code"`
	Description     string  `json:"description"`
	DiscountPercent float64 `json:"discount_percent"`
}

func (h *Handler) createPromotion(w http.ResponseWriter, r *http.Request) {
	var req promotionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Code == "" {
		respondError(w, http.StatusBadRequest, "code is required")
		return
	}
	promo, err := h.promos.Create(domain.Promotion{
		Code:            req.Code,
		Description:     req.Description,
		DiscountPercent: req.DiscountPercent,
	})
	if err != nil {
		respondLedgerError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, promo)
}

func (h *Handler) listPromotions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.promos.List())
}

// Reports

func (h *Handler) salesReport(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.sales.Sales())
}

func (h *Handler) stockReport(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.inv.Products())
}

func (h *Handler) movementsReport(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.sales.Movements())
}

// Helpers

func respondLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrDuplicateCode):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ledger.ErrInsufficientStock):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
