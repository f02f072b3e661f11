package httpserver

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eshwar187/twin-clone-01/internal/adapter/memory"
	"github.com/Eshwar187/twin-clone-01/internal/adapter/metrics"
	"github.com/Eshwar187/twin-clone-01/internal/app"
)

type stack struct {
	srv      *Server
	sessions *app.Sessions
	http     *metrics.HTTPMetrics
}

// newStack wires the real service over one process's view of a shared
// in-memory backend.
func newStack(t *testing.T, backend *memory.Backend, history *memory.History) stack {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	sessions := app.NewSessions(backend.NewStore(),
		app.WithSessionHistory(history),
		app.WithSessionClock(clock),
	)
	t.Cleanup(sessions.Close)

	reg := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg)
	svc := app.NewService(sessions, history, clock, 30)
	srv := NewServer(testConfig(), svc, WithMetrics(metrics.Handler(reg), httpMetrics.Middleware()))
	return stack{srv: srv, sessions: sessions, http: httpMetrics}
}

func decodeMood(t *testing.T, body []byte) moodResponse {
	t.Helper()
	var resp moodResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func TestServer_EndToEnd(t *testing.T) {
	backend := memory.NewBackend()
	st := newStack(t, backend, memory.NewHistory())
	userID := uuid.New()

	rec := do(t, st.srv, http.MethodGet, userPath(userID, "/mood"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "calm", string(decodeMood(t, rec.Body.Bytes()).Mood))

	rec = do(t, st.srv, http.MethodPost, userPath(userID, "/signals/health"), `{"sleepHours":8,"waterCups":8,"steps":10000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "energetic", string(decodeMood(t, rec.Body.Bytes()).Mood))

	rec = do(t, st.srv, http.MethodPost, userPath(userID, "/signals/bills"), `{"pendingBills":1,"pendingSettlements":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeMood(t, rec.Body.Bytes())
	assert.Equal(t, "stressed", string(resp.Mood))
	require.NotNil(t, resp.Signals.Steps, "earlier signals survive the merge")
	assert.Equal(t, 10000.0, *resp.Signals.Steps)

	rec = do(t, st.srv, http.MethodPut, userPath(userID, "/mood"), `{"mood":"happy"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "happy", string(decodeMood(t, rec.Body.Bytes()).Mood))

	rec = do(t, st.srv, http.MethodGet, userPath(userID, "/signals"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"sleepHours":8,"waterCups":8,"steps":10000,"overdueBills":1}`, rec.Body.String())

	rec = do(t, st.srv, http.MethodGet, userPath(userID, "/mood/history"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history historyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	require.Len(t, history.Entries, 3)
	assert.Equal(t, "happy", string(history.Entries[0].Mood))
	assert.Equal(t, 1, history.Distribution["stressed"])
	assert.Equal(t, 30, history.Days)

	rec = do(t, st.srv, http.MethodDelete, userPath(userID, "/session"), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, st.sessions.Len())

	// Rehydrated from the store: the override survives, nothing is re-derived.
	rec = do(t, st.srv, http.MethodGet, userPath(userID, "/mood"), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "happy", string(decodeMood(t, rec.Body.Bytes()).Mood))

	assert.Equal(t, 1.0, testutil.ToFloat64(st.http.Requests.WithLabelValues(http.MethodPut, "/api/users/:userID/mood", "200")))
}

func TestServer_CrossProcessSync(t *testing.T) {
	backend := memory.NewBackend()
	history := memory.NewHistory()
	a := newStack(t, backend, history)
	b := newStack(t, backend, history)
	userID := uuid.New()

	require.Equal(t, http.StatusOK, do(t, a.srv, http.MethodGet, userPath(userID, "/mood"), "").Code)
	require.Equal(t, http.StatusOK, do(t, b.srv, http.MethodGet, userPath(userID, "/mood"), "").Code)

	rec := do(t, a.srv, http.MethodPatch, userPath(userID, "/signals"), `{"sleepHours":5}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Eventually(t, func() bool {
		rec := do(t, b.srv, http.MethodGet, userPath(userID, "/mood"), "")
		return decodeMood(t, rec.Body.Bytes()).Mood == "tired"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_MetricsEndpoint(t *testing.T) {
	st := newStack(t, memory.NewBackend(), memory.NewHistory())

	rec := do(t, st.srv, http.MethodGet, "/metrics", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
