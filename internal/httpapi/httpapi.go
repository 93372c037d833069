package httpapi

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"stallpos/terminal/internal/domain"
	"stallpos/terminal/internal/replication"
	"stallpos/terminal/internal/service"
	"stallpos/terminal/internal/store"
	"stallpos/terminal/internal/xid"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	repo          store.Repository
	allowedOrigin string
	log           *logrus.Entry
	loginLimiter  *attemptLimiter
	pinLimiter    *attemptLimiter
	csrfSecret    []byte
}

func New(svc *service.Service, auth *AuthManager, repo store.Repository, allowedOrigin string, log *logrus.Entry) *API {
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	return &API{
		service:       svc,
		auth:          auth,
		repo:          repo,
		allowedOrigin: allowedOrigin,
		log:           log,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		pinLimiter:    newAttemptLimiter(8, time.Minute),
		csrfSecret:    csrfSecret,
	}
}

func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

func (a *API) generateCSRFToken() string {
	now := time.Now().UTC()
	bucket := now.Truncate(time.Hour).Unix()
	return a.csrfTokenForHour(bucket)
}

// validateCSRFToken accepts the current or previous hour bucket,
// giving a two-hour validity window.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	now := time.Now().UTC()
	currentBucket := now.Truncate(time.Hour).Unix()
	prevBucket := currentBucket - 3600

	expected1 := a.csrfTokenForHour(currentBucket)
	expected2 := a.csrfTokenForHour(prevBucket)

	return hmac.Equal([]byte(token), []byte(expected1)) ||
		hmac.Equal([]byte(token), []byte(expected2))
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)
	mux.HandleFunc("/api/v1/auth/csrf-token", a.handleCSRFToken)

	// Order sync surface for peer terminals polling this instance.
	mux.HandleFunc("/api/orders", a.handleOrders)

	mux.HandleFunc("/api/v1/menu", a.requireAuth(a.handleMenu, domain.RoleWorker, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/menu/", a.requireAuth(a.handleMenuActions, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/cart", a.requireAuth(a.handleCart, domain.RoleWorker, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/cart/items", a.requireAuth(a.handleCartItems, domain.RoleWorker, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/checkout", a.requireAuth(a.handleCheckout, domain.RoleWorker, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/sales", a.requireAuth(a.handleSales, domain.RoleWorker, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/sales/", a.requireAuth(a.handleSaleActions, domain.RoleWorker, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/reports/summary", a.requireAuth(a.handleReportSummary, domain.RoleWorker, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/reports/drawer", a.requireAuth(a.handleReportDrawer, domain.RoleWorker, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/settings", a.requireAuth(a.handleSettings, domain.RoleWorker, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/drawer/opening-cash", a.requireAuth(a.handleOpeningCash, domain.RoleWorker, domain.RoleAdmin))
	mux.HandleFunc("/api/v1/sync/resync", a.requireAuth(a.handleResync, domain.RoleWorker, domain.RoleAdmin))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.generateCSRFToken(),
	})
}

// csrfExemptPaths lists paths excluded from CSRF validation: login has
// no prior token fetch, and /api/orders is called by peer terminals,
// not browsers.
var csrfExemptPaths = []string{
	"/api/v1/auth/login",
	"/api/orders",
}

func (a *API) checkCSRF(w http.ResponseWriter, r *http.Request) bool {
	method := r.Method
	if method != http.MethodPost && method != http.MethodPut && method != http.MethodPatch && method != http.MethodDelete {
		return true
	}
	for _, exempt := range csrfExemptPaths {
		if r.URL.Path == exempt {
			return true
		}
	}
	token := strings.TrimSpace(r.Header.Get("X-CSRF-Token"))
	if !a.validateCSRFToken(token) {
		writeError(w, http.StatusForbidden, errors.New("missing or invalid CSRF token"))
		return false
	}
	return true
}

func (a *API) handleMenu(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		items, err := a.service.Menu(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		var req domain.MenuItemCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		item, err := a.service.CreateMenuItem(r.Context(), req)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"item": item})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleMenuActions(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/menu/"), "/"))
	if id == "" {
		writeError(w, http.StatusBadRequest, errors.New("menu item id required"))
		return
	}

	switch r.Method {
	case http.MethodPatch:
		var req domain.MenuItemUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		item, err := a.service.UpdateMenuItem(r.Context(), id, req)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"item": item})
	case http.MethodDelete:
		if err := a.service.DeleteMenuItem(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCart(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		view, err := a.service.Cart(r.Context(), discountFromQuery(r))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case http.MethodDelete:
		if err := a.service.CartClear(r.Context()); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
	default:
		writeMethodNotAllowed(w)
	}
}

func discountFromQuery(r *http.Request) *domain.Discount {
	q := r.URL.Query()
	switch q.Get("discount_type") {
	case domain.DiscountPercent:
		var pct float64
		fmt.Sscanf(q.Get("discount_value"), "%f", &pct)
		return &domain.Discount{Type: domain.DiscountPercent, PercentValue: pct}
	case domain.DiscountFixed:
		var cents int64
		fmt.Sscanf(q.Get("discount_value"), "%d", &cents)
		return &domain.Discount{Type: domain.DiscountFixed, AmountCents: cents}
	}
	return nil
}

func (a *API) handleCartItems(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req domain.CartAddRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		view, err := a.service.CartAdd(r.Context(), req)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case http.MethodPatch:
		var req domain.CartUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		view, err := a.service.CartUpdate(r.Context(), req)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	case http.MethodDelete:
		var req domain.CartRemoveRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		view, err := a.service.CartRemove(r.Context(), req)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}

	var req domain.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sale, err := a.service.Checkout(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rec, err := a.service.BuildReceipt(r.Context(), sale.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"sale": sale, "receipt": rec})
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	sales, err := a.service.History(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": sales})
}

func (a *API) handleSaleActions(w http.ResponseWriter, r *http.Request) {
	tail := strings.TrimSpace(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/sales/"), "/"))
	if tail == "" {
		writeError(w, http.StatusBadRequest, errors.New("sale id required"))
		return
	}

	id := tail
	action := ""
	if idx := strings.IndexByte(tail, '/'); idx >= 0 {
		id = tail[:idx]
		action = tail[idx+1:]
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		sale, err := a.service.Sale(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
	case "status":
		if r.Method != http.MethodPatch {
			writeMethodNotAllowed(w)
			return
		}
		var req domain.StatusUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		sale, err := a.service.UpdateSaleStatus(r.Context(), id, req.Status)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
	case "void":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		a.handleVoid(w, r, id)
	case "receipt":
		if r.Method != http.MethodGet {
			writeMethodNotAllowed(w)
			return
		}
		rec, err := a.service.BuildReceipt(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case "reprint":
		if r.Method != http.MethodPost {
			writeMethodNotAllowed(w)
			return
		}
		if err := a.service.Reprint(r.Context(), id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"queued": true})
	default:
		writeError(w, http.StatusBadRequest, errors.New("unknown sale action"))
	}
}

// handleVoid cancels a sale. Admins void on role alone; workers must
// present the admin PIN.
func (a *API) handleVoid(w http.ResponseWriter, r *http.Request, id string) {
	var req domain.VoidSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	actor, _ := service.ActorFromContext(r.Context())
	if actor.Role != domain.RoleAdmin {
		if !a.pinLimiter.Allow(clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, errors.New("too many PIN attempts"))
			return
		}
		if !a.auth.ValidateAdminPIN(req.AdminPIN) {
			writeError(w, http.StatusForbidden, errors.New("invalid admin PIN"))
			return
		}
	}

	sale, err := a.service.VoidSale(r.Context(), id, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sale": sale})
}

func (a *API) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	summary, err := a.service.Report(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleReportDrawer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}

	audit, err := a.service.Drawer(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, audit)
}

func (a *API) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := a.service.Settings(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, settings)
	case http.MethodPut:
		var settings domain.BillSettings
		if err := decodeJSON(r, &settings); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		updated, err := a.service.UpdateSettings(r.Context(), settings)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleOpeningCash(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cents, err := a.service.OpeningCash(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, domain.OpeningCashPayload{OpeningCashCents: cents})
	case http.MethodPut:
		var req domain.OpeningCashPayload
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := a.service.SetOpeningCash(r.Context(), req.OpeningCashCents); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, req)
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) handleResync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if err := a.service.Resync(r.Context()); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"synced": true})
}

// handleOrders is the order sync surface other terminals poll and
// push to. It works straight against the repository: peers are
// trusted on the stall's network and carry no session token.
func (a *API) handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sales, err := a.repo.ListSales(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		cutoff := time.Now().UTC().Add(-24 * time.Hour)
		orders := make([]replication.WireOrder, 0, len(sales))
		for i := len(sales) - 1; i >= 0; i-- {
			if sales[i].Timestamp.Before(cutoff) {
				continue
			}
			orders = append(orders, replication.FromSale(sales[i]))
		}
		writeJSON(w, http.StatusOK, orders)
	case http.MethodPost:
		var order replication.WireOrder
		if err := decodeJSON(r, &order); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if len(order.Items) == 0 || order.OrderNumber < 1 || order.TotalAmount < 0 {
			writeError(w, http.StatusBadRequest, errors.New("orderNumber, items and totalAmount are required"))
			return
		}
		if order.ID == "" {
			order.ID = xid.NewSaleID()
		}
		if order.CreatedAt.IsZero() {
			order.CreatedAt = time.Now().UTC()
		}
		// a replayed id must never reset an order the kitchen already
		// moved on; merge it the same way terminals merge each other
		if existing, err := a.repo.GetSale(r.Context(), order.ID); err == nil {
			merged := *existing
			if domain.ValidStatus(order.Status) &&
				domain.StatusRank(order.Status) > domain.StatusRank(merged.Status) {
				merged.Status = order.Status
			}
			if order.Printed && !merged.Printed {
				merged.Printed = true
			}
			if err := a.repo.UpsertSale(r.Context(), merged); err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, replication.FromSale(merged))
			return
		} else if !errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		sale := order.ToSale()
		sale.Status = domain.StatusPending
		if err := a.repo.UpsertSale(r.Context(), sale); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, replication.FromSale(sale))
	case http.MethodPut:
		var update replication.WireOrderUpdate
		if err := decodeJSON(r, &update); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if update.ID == "" {
			writeError(w, http.StatusBadRequest, errors.New("order id is required"))
			return
		}
		sale, err := a.repo.GetSale(r.Context(), update.ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if update.Status != nil {
			if !domain.ValidStatus(*update.Status) {
				writeError(w, http.StatusBadRequest, errors.New("unknown status"))
				return
			}
			sale.Status = *update.Status
		}
		if update.Printed != nil {
			sale.Printed = *update.Printed
		}
		if err := a.repo.UpsertSale(r.Context(), *sale); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, replication.FromSale(*sale))
	default:
		writeMethodNotAllowed(w)
	}
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-CSRF-Token")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut || r.Method == http.MethodDelete) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if !a.checkCSRF(w, r) {
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		a.log.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(startedAt).String(),
		}).Debug("request served")
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// writeDomainError maps the store sentinels onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusUnprocessableEntity
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrInvalidSale):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrInsufficientCash):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, store.ErrItemUnavailable):
		status = http.StatusConflict
	case strings.Contains(strings.ToLower(err.Error()), "role required"):
		status = http.StatusForbidden
	case strings.Contains(strings.ToLower(err.Error()), "authentication required"):
		status = http.StatusUnauthorized
	}
	writeError(w, status, err)
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 4xx messages are user-facing; 5xx responses stay generic so
	// internals never leak to clients.
	msg := err.Error()
	if status >= 500 {
		logrus.WithError(err).WithField("status", status).Error("internal error")
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
