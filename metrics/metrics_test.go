package metrics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Inc(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	r.Inc(ctx, StylistFailuresTotal, map[string]string{"kind": "SCHEMA", "operation": "tag"}, 1)
	r.Inc(ctx, StylistFailuresTotal, map[string]string{"operation": "tag", "kind": "SCHEMA"}, 2)
	r.Inc(ctx, HTTPRequestsTotal, nil, 1)

	assert.Equal(t, int64(3), r.Value(StylistFailuresTotal, map[string]string{"kind": "SCHEMA", "operation": "tag"}))
	assert.Equal(t, int64(0), r.Value(StylistFailuresTotal, map[string]string{"kind": "DECODE", "operation": "tag"}))
	assert.Equal(t, []string{
		"http_requests_total 1",
		"stylist_failures_total{kind=SCHEMA,operation=tag} 3",
	}, r.SnapshotLines())
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Inc(context.Background(), StylistAttemptsTotal, map[string]string{"operation": "outfit"}, 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), r.Value(StylistAttemptsTotal, map[string]string{"operation": "outfit"}))
}

func TestRegistry_Nil(t *testing.T) {
	var r *Registry
	r.Inc(context.Background(), HTTPRequestsTotal, nil, 1)
	assert.Empty(t, r.SnapshotLines())
	assert.Equal(t, int64(0), r.Value(HTTPRequestsTotal, nil))
}

func TestEchoHandlers(t *testing.T) {
	r := NewRegistry()
	r.Inc(context.Background(), DailyOutfitsTotal, map[string]string{"status": "completed"}, 4)
	e := echo.New()

	rec := httptest.NewRecorder()
	require.NoError(t, r.EchoHandlerText(e.NewContext(httptest.NewRequest(http.MethodGet, "/metrics", nil), rec)))
	assert.Equal(t, "daily_outfits_total{status=completed} 4\n", rec.Body.String())

	rec = httptest.NewRecorder()
	require.NoError(t, r.EchoHandlerJSON(e.NewContext(httptest.NewRequest(http.MethodGet, "/metrics.json", nil), rec)))
	var payload map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, int64(4), payload["daily_outfits_total{status=completed}"])
}
