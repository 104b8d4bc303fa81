/*
scenarios.go - Demo scenario loaders

PURPOSE:
  Pre-built sets of credits that populate an account for demos and manual
  testing of the oldest-first spend rule.

AVAILABLE SCENARIOS:
  two-payers:   DANNON then UNILEVER, the smallest case where a spend
                crosses payers
  multi-payer:  Four credits appended out of timestamp order
  client-demo:  The single DANNON credit the browser client issues

HOW SCENARIOS WORK:
  1. Reset the account (ledger, balances, history, cache)
  2. Credit each entry through the engine, journaling each one
  3. Return the resulting balances

USAGE VIA API:
  POST /points/{user_id}/scenarios/multi-payer

NOTE:
  Loading a scenario wipes the account. Only use in development/demo.
*/
package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/points-ledger/points"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

type scenarioCredit struct {
	Payer     string
	Points    int64
	Timestamp string
}

type scenario struct {
	ScenarioDTO
	Credits []scenarioCredit
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "two-payers",
			Name:        "Two Payers",
			Description: "DANNON 300 then UNILEVER 200; spend 100 or 350 to see the oldest-first rule",
		},
		Credits: []scenarioCredit{
			{"DANNON", 300, "2020-10-31T10:00:00Z"},
			{"UNILEVER", 200, "2020-10-31T11:00:00Z"},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "multi-payer",
			Name:        "Multi-Payer",
			Description: "Four credits from three payers, appended out of timestamp order",
		},
		Credits: []scenarioCredit{
			{"DANNON", 1000, "2020-11-02T14:00:00Z"},
			{"UNILEVER", 200, "2020-10-31T11:00:00Z"},
			{"DANNON", 300, "2020-10-31T10:00:00Z"},
			{"MILLERCOORS", 10000, "2020-11-01T14:00:00Z"},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "client-demo",
			Name:        "Client Demo",
			Description: "The 300-point DANNON credit issued by the browser client",
		},
		Credits: []scenarioCredit{
			{"DANNON", 300, "2014-09-02T12:00:00Z"},
		},
	},
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns the available scenarios.
// GET /scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LoadScenario resets an account and loads a scenario into it.
// POST /points/{user_id}/scenarios/{scenario_id}
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := chi.URLParam(r, "user_id")
	logger := h.Logger.With().Str("account", userID).Str("op", "scenario").Logger()

	sc, ok := findScenario(chi.URLParam(r, "scenario_id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Scenario not found", nil)
		return
	}

	if err := h.resetAccount(ctx, userID); err != nil && !errors.Is(err, points.ErrAccountNotFound) {
		writeError(w, http.StatusInternalServerError, "Failed to reset account", err)
		return
	}

	var balances map[string]int64
	err := h.Accounts.Do(userID, func(e *points.Engine) error {
		for _, c := range sc.Credits {
			at, err := time.Parse(time.RFC3339, c.Timestamp)
			if err != nil {
				return fmt.Errorf("scenario %s: %w", sc.ID, err)
			}
			tx, err := e.Credit(c.Payer, c.Points, at)
			if err != nil {
				return fmt.Errorf("scenario %s: %w", sc.ID, err)
			}
			h.record(ctx, logger, points.NewCreditEntry(userID, tx))
		}
		balances = e.Balances().Map()
		h.refreshCache(ctx, logger, userID, balances)
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	logger.Info().Str("scenario", sc.ID).Msg("scenario loaded")
	writeJSON(w, http.StatusOK, balances)
}
