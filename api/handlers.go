/*
handlers.go - HTTP API handlers for the points ledger

PURPOSE:
  Exposes the points engine via REST API. Handles HTTP request/response,
  JSON serialization, validation, and delegates to the engine.

ENDPOINTS:
  GET    /                               Endpoint index
  GET    /points/{user_id}               Balances per payer
  POST   /points/{user_id}/add           Credit points
  POST   /points/{user_id}/subtract      Spend points (oldest first)
  GET    /points/{user_id}/transactions  Live ledger, newest first
  GET    /points/{user_id}/history       Journal of credits and spends
  DELETE /points/{user_id}               Reset account

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Accounts: One engine per user id
  - Journal: Audit history
  - Cache: Read-through mirror of balances

REQUEST FLOW (mutations):
  1. Parse and validate body
  2. Lock the account
  3. Mutate the engine
  4. Record journal entry, refresh cache mirror (still locked)
  5. Serialize response

ERROR HANDLING:
  - 400: Validation errors, insufficient points
  - 404: Unknown account on reset
  - 500: Ledger/balance desynchronization, internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo data loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/warp/points-ledger/cache"
	"github.com/warp/points-ledger/points"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Accounts *points.Accounts
	Journal  points.Journal
	Cache    cache.BalanceCache
	Logger   zerolog.Logger
}

// NewHandler creates a handler. A nil cache disables mirroring.
func NewHandler(journal points.Journal, balanceCache cache.BalanceCache, logger zerolog.Logger) *Handler {
	if balanceCache == nil {
		balanceCache = cache.Noop{}
	}
	return &Handler{
		Accounts: points.NewAccounts(),
		Journal:  journal,
		Cache:    balanceCache,
		Logger:   logger,
	}
}

// =============================================================================
// INDEX / HEALTH
// =============================================================================

// Index lists the endpoints.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, EndpointsDTO{
		GET: []string{
			"/points/:user_id",
			"/points/:user_id/transactions",
			"/points/:user_id/history",
			"/scenarios",
		},
		POST: []string{
			"/points/:user_id/add",
			"/points/:user_id/subtract",
			"/points/:user_id/scenarios/:scenario_id",
		},
		DELETE: []string{"/points/:user_id"},
	})
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Health reports liveness and pings the journal when it supports it.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if p, ok := h.Journal.(pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Journal unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthDTO{Status: "ok", Accounts: len(h.Accounts.IDs())})
}

// =============================================================================
// BALANCES
// =============================================================================

// GetBalances returns payer -> points for an account.
// GET /points/{user_id}
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "user_id")
	logger := h.Logger.With().Str("account", userID).Logger()

	cached, ok, err := h.Cache.Get(ctx, userID)
	switch {
	case err != nil:
		cacheLookups.WithLabelValues("error").Inc()
		logger.Warn().Err(err).Msg("balance cache read failed")
	case ok:
		cacheLookups.WithLabelValues("hit").Inc()
		writeJSON(w, http.StatusOK, cached)
		return
	default:
		cacheLookups.WithLabelValues("miss").Inc()
	}

	account, found := h.Accounts.Get(userID)
	if !found {
		writeJSON(w, http.StatusOK, map[string]int64{})
		return
	}

	// A reset between Get and Do leaves the account closed: report it empty.
	balances := map[string]int64{}
	_ = account.Do(func(e *points.Engine) error {
		balances = e.Balances().Map()
		h.refreshCache(ctx, logger, userID, balances)
		return nil
	})
	writeJSON(w, http.StatusOK, balances)
}

// =============================================================================
// CREDIT / SPEND
// =============================================================================

// AddPoints credits points from a payer.
// POST /points/{user_id}/add
func (h *Handler) AddPoints(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "user_id")
	logger := h.Logger.With().Str("account", userID).Str("op", "credit").Logger()

	var req CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pointsRequests.WithLabelValues("credit", outcomeRejected).Inc()
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateRequest(req); err != nil {
		pointsRequests.WithLabelValues("credit", outcomeRejected).Inc()
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}
	at, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		pointsRequests.WithLabelValues("credit", outcomeRejected).Inc()
		writeError(w, http.StatusBadRequest, "Invalid timestamp", err)
		return
	}

	var tx points.Transaction
	err = h.Accounts.Do(userID, func(e *points.Engine) error {
		var err error
		tx, err = e.Credit(req.Payer, *req.Points, at)
		if err != nil {
			return err
		}
		h.record(ctx, logger, points.NewCreditEntry(userID, tx))
		h.refreshCache(ctx, logger, userID, e.Balances().Map())
		return nil
	})
	if err != nil {
		h.writeEngineError(w, logger, "credit", err)
		return
	}

	pointsRequests.WithLabelValues("credit", outcomeOK).Inc()
	pointsCredited.WithLabelValues(tx.Payer).Add(float64(tx.Points))
	logger.Debug().Str("payer", tx.Payer).Int64("points", tx.Points).Str("tx", string(tx.ID)).Msg("points credited")

	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

// SpendPoints spends points oldest-first and returns the per-payer changes.
// POST /points/{user_id}/subtract
func (h *Handler) SpendPoints(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "user_id")
	logger := h.Logger.With().Str("account", userID).Str("op", "spend").Logger()

	var req DebitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pointsRequests.WithLabelValues("spend", outcomeRejected).Inc()
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validateRequest(req); err != nil {
		pointsRequests.WithLabelValues("spend", outcomeRejected).Inc()
		writeError(w, http.StatusBadRequest, "Invalid request", err)
		return
	}
	amount := *req.Points

	// An unknown account holds no points; spending from it goes through the
	// engine so the insufficient-points path is the same.
	var res points.SpendResult
	err := h.Accounts.Do(userID, func(e *points.Engine) error {
		var err error
		res, err = e.Spend(amount)
		if err != nil {
			return err
		}
		h.record(ctx, logger, points.NewSpendEntry(userID, amount, res.Changes))
		h.refreshCache(ctx, logger, userID, e.Balances().Map())
		return nil
	})
	if err != nil {
		h.writeEngineError(w, logger, "spend", err)
		return
	}

	pointsRequests.WithLabelValues("spend", outcomeOK).Inc()
	pointsSpent.Add(float64(amount))
	spendTouched.Observe(float64(res.Touched))
	logger.Debug().Int64("points", amount).Int("touched", res.Touched).Msg("points spent")

	writeJSON(w, http.StatusOK, res.Changes)
}

// =============================================================================
// LEDGER / HISTORY
// =============================================================================

// GetTransactions returns the live ledger, newest first.
// GET /points/{user_id}/transactions
func (h *Handler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	dtos := []TransactionDTO{}
	if account, ok := h.Accounts.Get(userID); ok {
		for _, tx := range account.Transactions() {
			dtos = append(dtos, toTransactionDTO(tx))
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetHistory returns the journal of an account, oldest first.
// GET /points/{user_id}/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	entries, err := h.Journal.Entries(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load history", err)
		return
	}

	dtos := make([]JournalEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toJournalEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ResetAccount discards an account's ledger, balances, history and cache.
// DELETE /points/{user_id}
func (h *Handler) ResetAccount(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")

	if err := h.resetAccount(r.Context(), userID); err != nil {
		if errors.Is(err, points.ErrAccountNotFound) {
			writeError(w, http.StatusNotFound, "Account not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to reset account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// resetAccount clears the journal and the cache while the account is still
// locked, so no in-flight credit or spend can write to either afterwards.
func (h *Handler) resetAccount(ctx context.Context, userID string) error {
	return h.Accounts.Reset(userID, func() error {
		if err := h.Journal.Reset(ctx, userID); err != nil {
			return err
		}
		if err := h.Cache.Invalidate(ctx, userID); err != nil {
			h.Logger.Warn().Err(err).Str("account", userID).Msg("balance cache invalidate failed")
		}
		return nil
	})
}

// =============================================================================
// HELPERS
// =============================================================================

// record writes a journal entry. The engine has already committed the
// mutation, so a failure is logged rather than returned.
func (h *Handler) record(ctx context.Context, logger zerolog.Logger, entry points.JournalEntry) {
	if err := h.Journal.Record(ctx, entry); err != nil {
		logger.Error().Err(err).Str("entry", entry.ID).Msg("journal write failed")
	}
}

// refreshCache repopulates the mirror; on failure the stale key is dropped.
func (h *Handler) refreshCache(ctx context.Context, logger zerolog.Logger, userID string, balances map[string]int64) {
	if err := h.Cache.Set(ctx, userID, balances); err != nil {
		logger.Warn().Err(err).Msg("balance cache refresh failed")
		if err := h.Cache.Invalidate(ctx, userID); err != nil {
			logger.Error().Err(err).Msg("balance cache invalidate failed")
		}
	}
}

func (h *Handler) writeEngineError(w http.ResponseWriter, logger zerolog.Logger, op string, err error) {
	var short *points.InsufficientTotalError
	switch {
	case errors.As(err, &short):
		pointsRequests.WithLabelValues(op, outcomeRejected).Inc()
		writeError(w, http.StatusBadRequest, "Insufficient points", err)
	case errors.Is(err, points.ErrValidation):
		pointsRequests.WithLabelValues(op, outcomeRejected).Inc()
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case points.IsInvariantViolation(err):
		pointsRequests.WithLabelValues(op, outcomeError).Inc()
		invariantViolations.Inc()
		logger.Error().Err(err).Msg("ledger invariant violated")
		writeError(w, http.StatusInternalServerError, "Internal ledger error", nil)
	default:
		pointsRequests.WithLabelValues(op, outcomeError).Inc()
		logger.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
