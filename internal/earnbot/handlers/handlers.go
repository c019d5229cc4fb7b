package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/tmatveev/earnbot/internal/earnbot/middleware"
	"github.com/tmatveev/earnbot/internal/earnbot/models"
	"github.com/tmatveev/earnbot/internal/earnbot/repository"
	"github.com/tmatveev/earnbot/internal/earnbot/service"
)

const defaultListLimit = 100

// Handler handles the ops/admin HTTP API
type Handler struct {
	Ledger            *service.LedgerService
	Repo              repository.Repository
	JWTSecret         string
	AdminLogin        string
	AdminPasswordHash string
	Log               *zap.Logger
}

// NewHandler creates a new handler
func NewHandler(ledger *service.LedgerService, repo repository.Repository, jwtSecret, adminLogin, adminPasswordHash string, log *zap.Logger) *Handler {
	return &Handler{
		Ledger:            ledger,
		Repo:              repo,
		JWTSecret:         jwtSecret,
		AdminLogin:        adminLogin,
		AdminPasswordHash: adminPasswordHash,
		Log:               log,
	}
}

// Healthz reports whether the store is reachable
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.Repo.Ping(r.Context()); err != nil {
		h.Log.Error("health check failed", zap.Error(err))
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Login authenticates the configured admin and hands out a JWT
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Login    string `json:"login"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	if req.Login == "" || req.Password == "" {
		http.Error(w, "Login and password are required", http.StatusBadRequest)
		return
	}

	if req.Login != h.AdminLogin {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.AdminPasswordHash), []byte(req.Password)); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := middleware.GenerateToken(req.Login, h.JWTSecret)
	if err != nil {
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	middleware.SetAuthCookie(w, token)
	w.Header().Set("Authorization", "Bearer "+token)
	w.WriteHeader(http.StatusOK)
}

// ListWithdrawals returns withdrawal requests, optionally filtered by
// status
func (h *Handler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	status := models.WithdrawalStatus(r.URL.Query().Get("status"))
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	requests, err := h.Ledger.Withdrawals(r.Context(), status, limit)
	if err != nil {
		if service.IsTransient(err) {
			http.Error(w, "Server error", http.StatusInternalServerError)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, requests)
}

// GetWithdrawal returns a single withdrawal request
func (h *Handler) GetWithdrawal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	req, err := h.Ledger.Withdrawal(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrWithdrawalNotFound) {
			http.Error(w, "Not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, req)
}

// UpdateWithdrawalStatus drives a withdrawal through the status machine.
// The same refund-on-reject policy applies as to the chat buttons.
func (h *Handler) UpdateWithdrawalStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		Status models.WithdrawalStatus `json:"status"`
		Reason string                  `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	var (
		req *models.WithdrawalRequest
		err error
	)
	switch body.Status {
	case models.StatusProcessing:
		if _, err = h.Repo.UpdateWithdrawalStatus(ctx, id, models.StatusProcessing, ""); err == nil {
			req, err = h.Ledger.Withdrawal(ctx, id)
		}
	case models.StatusApproved:
		req, err = h.Ledger.Approve(ctx, id)
	case models.StatusRejected:
		if body.Reason == "" {
			http.Error(w, "A reason is required to reject", http.StatusBadRequest)
			return
		}
		req, err = h.Ledger.Reject(ctx, id, body.Reason)
	case models.StatusCompleted:
		req, err = h.Ledger.MarkPaid(ctx, id)
	default:
		http.Error(w, "Unknown status", http.StatusBadRequest)
		return
	}

	if err != nil {
		var invalid *models.ErrInvalidTransition
		switch {
		case errors.As(err, &invalid):
			http.Error(w, invalid.Error(), http.StatusConflict)
		case errors.Is(err, repository.ErrWithdrawalNotFound):
			http.Error(w, "Not found", http.StatusNotFound)
		default:
			admin, _ := middleware.GetAdmin(ctx)
			h.Log.Error("status update failed",
				zap.String("request", id),
				zap.String("admin", admin),
				zap.Error(err))
			http.Error(w, "Server error", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, req)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Server error", http.StatusInternalServerError)
	}
}
