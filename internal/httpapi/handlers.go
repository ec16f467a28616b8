package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/indipendencepark/sana-intraprendenza/internal/domain"
)

const dateLayout = "2006-01-02"

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
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
	if errors.Is(err, errInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many attempts"))
		return
	}

	var req domain.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	account, err := a.auth.Register(r.Context(), req)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

func (a *API) handleMembers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.service.Members())
}

func (a *API) handleState(w http.ResponseWriter, _ *http.Request) {
	state, err := a.service.State()
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := a.service.Dashboard(r.Context())
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (a *API) handleInsights(w http.ResponseWriter, r *http.Request) {
	resp, err := a.service.Insights(r.Context())
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleSyncStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.service.SyncStatus())
}

func (a *API) handleSale(w http.ResponseWriter, r *http.Request) {
	req := domain.SaleRequest{Qty: 1}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.respondState(w, http.StatusOK)(a.service.ProcessSale(r.Context(), req))
}

func (a *API) handleTabPayment(w http.ResponseWriter, r *http.Request) {
	var req domain.TabPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.respondState(w, http.StatusOK)(a.service.PayTab(r.Context(), chi.URLParam(r, "userID"), req))
}

func (a *API) handleExpense(w http.ResponseWriter, r *http.Request) {
	var req domain.ExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.respondState(w, http.StatusOK)(a.service.AddExpense(r.Context(), req))
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var draft domain.ProductDraft
	if err := decodeJSON(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.respondState(w, http.StatusCreated)(a.service.SaveProduct(r.Context(), draft, ""))
}

func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var draft domain.ProductDraft
	if err := decodeJSON(r, &draft); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	a.respondState(w, http.StatusOK)(a.service.SaveProduct(r.Context(), draft, chi.URLParam(r, "productID")))
}

func (a *API) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	a.respondState(w, http.StatusOK)(a.service.DeleteProduct(r.Context(), chi.URLParam(r, "productID")))
}

func (a *API) handleAudit(w http.ResponseWriter, r *http.Request) {
	var req domain.AuditRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.service.PerformAudit(r.Context(), req)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := parseLogFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	logs, err := a.service.ListLogs(r.Context(), filter)
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (a *API) handleDeleteLog(w http.ResponseWriter, r *http.Request) {
	a.respondState(w, http.StatusOK)(a.service.DeleteLogEntry(r.Context(), chi.URLParam(r, "logID")))
}

func (a *API) respondState(w http.ResponseWriter, status int) func(domain.State, error) {
	return func(state domain.State, err error) {
		if err != nil {
			writeError(w, errorStatus(err), err)
			return
		}
		writeJSON(w, status, state)
	}
}

func parseLogFilter(r *http.Request) (domain.LogFilter, error) {
	query := r.URL.Query()
	filter := domain.LogFilter{
		Query: strings.TrimSpace(query.Get("q")),
		Limit: parsePositiveLimit(query.Get("limit"), 200, 1000),
	}

	if raw := strings.TrimSpace(query.Get("type")); raw != "" {
		logType := domain.LogType(strings.ToUpper(raw))
		if !logType.Valid() {
			return domain.LogFilter{}, fmt.Errorf("unknown log type %q", raw)
		}
		filter.Type = logType
	}
	for _, bound := range []struct {
		key  string
		dest *time.Time
	}{{"from", &filter.From}, {"to", &filter.To}} {
		raw := strings.TrimSpace(query.Get(bound.key))
		if raw == "" {
			continue
		}
		day, err := time.Parse(dateLayout, raw)
		if err != nil {
			return domain.LogFilter{}, fmt.Errorf("%s must be a date like 2006-01-02", bound.key)
		}
		*bound.dest = day
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return domain.LogFilter{}, errors.New("to must not be before from")
	}
	return filter, nil
}
