package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/points-ledger/points"
)

func TestListScenarios(t *testing.T) {
	api := newTestAPI(t, nil, nil)

	rec := api.do(http.MethodGet, "/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[[]ScenarioDTO](t, rec)
	require.Len(t, got, len(scenarios))
	for _, s := range got {
		assert.NotEmpty(t, s.ID)
		assert.NotEmpty(t, s.Name)
	}
}

func TestScenario_MultiPayer(t *testing.T) {
	// GIVEN: The multi-payer scenario (credits out of timestamp order)
	// WHEN: Spending 5000
	// THEN: DANNON's oldest 300, all of UNILEVER, then 4500 of MILLERCOORS

	api := newTestAPI(t, nil, nil)

	rec := api.do(http.MethodPost, "/points/alice/scenarios/multi-payer", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int64{"DANNON": 1300, "UNILEVER": 200, "MILLERCOORS": 10000},
		decode[map[string]int64](t, rec))

	rec = api.do(http.MethodPost, "/points/alice/subtract", map[string]any{"points": 5000})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []points.BalanceChange{
		{Payer: "DANNON", Points: -300},
		{Payer: "UNILEVER", Points: -200},
		{Payer: "MILLERCOORS", Points: -4500},
	}, decode[[]points.BalanceChange](t, rec))

	assert.Equal(t, map[string]int64{"DANNON": 1000, "UNILEVER": 0, "MILLERCOORS": 5300}, api.balances("alice"))
}

func TestScenario_ReplacesExistingAccount(t *testing.T) {
	api := newTestAPI(t, nil, nil)
	api.credit("alice", "KRAFT", 999, "2021-01-01T00:00:00Z")

	rec := api.do(http.MethodPost, "/points/alice/scenarios/two-payers", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, map[string]int64{"DANNON": 300, "UNILEVER": 200}, api.balances("alice"))

	history := decode[[]JournalEntryDTO](t, api.do(http.MethodGet, "/points/alice/history", nil))
	require.Len(t, history, 2)
	assert.Equal(t, "DANNON", history[0].Payer)
}

func TestScenario_AllLoadAndVerify(t *testing.T) {
	for _, s := range scenarios {
		t.Run(s.ID, func(t *testing.T) {
			api := newTestAPI(t, nil, nil)

			rec := api.do(http.MethodPost, "/points/demo/scenarios/"+s.ID, nil)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			account, ok := api.handler.Accounts.Get("demo")
			require.True(t, ok)
			assert.NoError(t, account.Verify())
			assert.Len(t, account.Transactions(), len(s.Credits))
		})
	}
}

func TestScenario_Unknown(t *testing.T) {
	api := newTestAPI(t, nil, nil)

	rec := api.do(http.MethodPost, "/points/alice/scenarios/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
