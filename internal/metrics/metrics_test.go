package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCollectors(t *testing.T) {
	Init()
	Init()

	SetPoolInUse(2)
	ObserveRetry("RETRY")
	ObserveUnit("success")
	ObserveBatch(150 * time.Millisecond)

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "crawlflow_pool_sessions_in_use 2")
	assert.Contains(t, string(body), `crawlflow_fetch_retries_total{kind="RETRY"} 1`)
	assert.Contains(t, string(body), `crawlflow_batch_units_total{status="success"} 1`)
}
