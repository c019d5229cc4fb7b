package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/tmatveev/earnbot/internal/earnbot/handlers"
	"github.com/tmatveev/earnbot/internal/earnbot/middleware"
	"github.com/tmatveev/earnbot/internal/earnbot/models"
	"github.com/tmatveev/earnbot/internal/earnbot/repository"
	"github.com/tmatveev/earnbot/internal/earnbot/service"
	"github.com/tmatveev/earnbot/internal/earnbot/texts"
)

const (
	testSecret   = "test-secret"
	testLogin    = "ops"
	testPassword = "hunter22"
)

// adminRepo fakes the Repository surface the admin API reaches.
type adminRepo struct {
	repository.Repository

	mu          sync.Mutex
	accounts    map[string]decimal.Decimal
	withdrawals map[string]*models.WithdrawalRequest
	pingErr     error
}

func newAdminRepo() *adminRepo {
	return &adminRepo{
		accounts:    make(map[string]decimal.Decimal),
		withdrawals: make(map[string]*models.WithdrawalRequest),
	}
}

func (r *adminRepo) Ping(context.Context) error { return r.pingErr }

func (r *adminRepo) ApplyAccountDelta(_ context.Context, userID string, delta models.AccountDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[userID] = r.accounts[userID].Add(delta.Balance)
	return nil
}

func (r *adminRepo) GetWithdrawal(_ context.Context, id string) (*models.WithdrawalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.withdrawals[id]
	if !ok {
		return nil, repository.ErrWithdrawalNotFound
	}
	c := *req
	return &c, nil
}

func (r *adminRepo) UpdateWithdrawalStatus(_ context.Context, id string, status models.WithdrawalStatus, reason string) (models.WithdrawalStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.withdrawals[id]
	if !ok {
		return "", repository.ErrWithdrawalNotFound
	}
	if err := models.ValidateTransition(req.Status, status); err != nil {
		return "", err
	}
	prev := req.Status
	req.Status = status
	if status == models.StatusRejected {
		req.RejectReason = reason
	}
	return prev, nil
}

func (r *adminRepo) ListWithdrawals(_ context.Context, status models.WithdrawalStatus, limit int) ([]models.WithdrawalRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.WithdrawalRequest
	for _, req := range r.withdrawals {
		if status != "" && req.Status != status {
			continue
		}
		out = append(out, *req)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *adminRepo) addWithdrawal(req models.WithdrawalRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := req
	r.withdrawals[req.ID] = &c
}

func newTestServer(t *testing.T, repo *adminRepo) *httptest.Server {
	t.Helper()

	catalog, err := texts.NewCatalog(texts.LangEN, zap.NewNop())
	require.NoError(t, err)
	ledger := service.NewLedgerService(repo, nil, catalog,
		service.Rewards{},
		service.WithdrawPolicy{
			MinPoints:      decimal.RequireFromString("40"),
			PointsPerRupee: decimal.RequireFromString("2"),
		},
		zap.NewNop())

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	h := handlers.NewHandler(ledger, repo, testSecret, testLogin, string(hash), zap.NewNop())

	router := chi.NewRouter()
	router.Get("/healthz", h.Healthz)
	router.Post("/api/admin/login", h.Login)
	router.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(&middleware.JWTConfig{SecretKey: testSecret}))
		r.Get("/api/admin/withdrawals", h.ListWithdrawals)
		r.Get("/api/admin/withdrawals/{id}", h.GetWithdrawal)
		r.Post("/api/admin/withdrawals/{id}/status", h.UpdateWithdrawalStatus)
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func login(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"login": testLogin, "password": testPassword})
	resp, err := http.Post(srv.URL+"/api/admin/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := resp.Header.Get("Authorization")
	require.NotEmpty(t, token)
	return token
}

func doAuthed(t *testing.T, srv *httptest.Server, token, method, path string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestHealthz(t *testing.T) {
	repo := newAdminRepo()
	srv := newTestServer(t, repo)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	repo.pingErr = context.DeadlineExceeded
	resp, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestLogin_BadCredentials(t *testing.T) {
	srv := newTestServer(t, newAdminRepo())

	tests := []struct {
		name string
		body map[string]string
		code int
	}{
		{"wrong password", map[string]string{"login": testLogin, "password": "nope"}, http.StatusUnauthorized},
		{"unknown login", map[string]string{"login": "other", "password": testPassword}, http.StatusUnauthorized},
		{"missing fields", map[string]string{"login": testLogin}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.body)
			resp, err := http.Post(srv.URL+"/api/admin/login", "application/json", bytes.NewReader(body))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.code, resp.StatusCode)
		})
	}
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	srv := newTestServer(t, newAdminRepo())

	resp, err := http.Get(srv.URL + "/api/admin/withdrawals")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doAuthed(t, srv, "Bearer not-a-token", http.MethodGet, "/api/admin/withdrawals", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListWithdrawals(t *testing.T) {
	repo := newAdminRepo()
	repo.addWithdrawal(models.WithdrawalRequest{ID: "a", UserID: "1", Status: models.StatusPending})
	repo.addWithdrawal(models.WithdrawalRequest{ID: "b", UserID: "2", Status: models.StatusApproved})
	srv := newTestServer(t, repo)
	token := login(t, srv)

	resp := doAuthed(t, srv, token, http.MethodGet, "/api/admin/withdrawals", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var all []models.WithdrawalRequest
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&all))
	assert.Len(t, all, 2)

	resp = doAuthed(t, srv, token, http.MethodGet, "/api/admin/withdrawals?status=pending", nil)
	defer resp.Body.Close()
	var pending []models.WithdrawalRequest
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pending))
	require.Len(t, pending, 1)
	assert.Equal(t, "a", pending[0].ID)

	resp = doAuthed(t, srv, token, http.MethodGet, "/api/admin/withdrawals?status=paid", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doAuthed(t, srv, token, http.MethodGet, "/api/admin/withdrawals?limit=zero", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetWithdrawal(t *testing.T) {
	repo := newAdminRepo()
	repo.addWithdrawal(models.WithdrawalRequest{ID: "a", UserID: "1", Status: models.StatusPending})
	srv := newTestServer(t, repo)
	token := login(t, srv)

	resp := doAuthed(t, srv, token, http.MethodGet, "/api/admin/withdrawals/a", nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var req models.WithdrawalRequest
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&req))
	assert.Equal(t, "a", req.ID)

	resp = doAuthed(t, srv, token, http.MethodGet, "/api/admin/withdrawals/missing", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateWithdrawalStatus(t *testing.T) {
	repo := newAdminRepo()
	repo.addWithdrawal(models.WithdrawalRequest{
		ID:           "a",
		UserID:       "1",
		AmountPoints: decimal.RequireFromString("50"),
		AmountRupees: decimal.RequireFromString("25"),
		Status:       models.StatusPending,
	})
	srv := newTestServer(t, repo)
	token := login(t, srv)

	// Approve drives pending through processing
	body, _ := json.Marshal(map[string]string{"status": "approved"})
	resp := doAuthed(t, srv, token, http.MethodPost, "/api/admin/withdrawals/a/status", body)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var req models.WithdrawalRequest
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&req))
	assert.Equal(t, models.StatusApproved, req.Status)

	// Approving again conflicts
	resp = doAuthed(t, srv, token, http.MethodPost, "/api/admin/withdrawals/a/status", body)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Completed finishes it
	body, _ = json.Marshal(map[string]string{"status": "completed"})
	resp = doAuthed(t, srv, token, http.MethodPost, "/api/admin/withdrawals/a/status", body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUpdateWithdrawalStatus_Reject(t *testing.T) {
	repo := newAdminRepo()
	repo.addWithdrawal(models.WithdrawalRequest{
		ID:           "a",
		UserID:       "1",
		AmountPoints: decimal.RequireFromString("50"),
		Status:       models.StatusPending,
	})
	srv := newTestServer(t, repo)
	token := login(t, srv)

	// Reason is mandatory
	body, _ := json.Marshal(map[string]string{"status": "rejected"})
	resp := doAuthed(t, srv, token, http.MethodPost, "/api/admin/withdrawals/a/status", body)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, _ = json.Marshal(map[string]string{"status": "rejected", "reason": "details did not verify"})
	resp = doAuthed(t, srv, token, http.MethodPost, "/api/admin/withdrawals/a/status", body)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var req models.WithdrawalRequest
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&req))
	assert.Equal(t, models.StatusRejected, req.Status)
	assert.Equal(t, "details did not verify", req.RejectReason)

	// The debited points went back to the user
	repo.mu.Lock()
	refunded := repo.accounts["1"]
	repo.mu.Unlock()
	assert.True(t, refunded.Equal(decimal.RequireFromString("50")), "got %s", refunded)
}

func TestUpdateWithdrawalStatus_Errors(t *testing.T) {
	repo := newAdminRepo()
	repo.addWithdrawal(models.WithdrawalRequest{ID: "a", UserID: "1", Status: models.StatusPending})
	srv := newTestServer(t, repo)
	token := login(t, srv)

	body, _ := json.Marshal(map[string]string{"status": "paid"})
	resp := doAuthed(t, srv, token, http.MethodPost, "/api/admin/withdrawals/a/status", body)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, _ = json.Marshal(map[string]string{"status": "approved"})
	resp = doAuthed(t, srv, token, http.MethodPost, "/api/admin/withdrawals/missing/status", body)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
