package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecords(t *testing.T) {
	c := NewCollector("neurosim")

	c.NeuronsAdded(1)
	c.NeuronsAdded(1)
	c.ConnectionsAdded(3)
	c.ConnectionsAdded(0)
	c.ObserveCascade(4)
	c.ObserveCascade(0)
	c.SetResidentNetworks(2)
	c.StoreFailed("save_neuron")
	c.ObserveRequest("GET", "/api/network", "200", 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.NeuronsCreated))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.ConnectionsCreated))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Stimulations))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.Firings))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.ResidentNetworks))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.StoreErrors.WithLabelValues("save_neuron")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.HTTPRequests.WithLabelValues("GET", "/api/network", "200")))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.NeuronsAdded(1)
		c.ConnectionsAdded(1)
		c.ObserveCascade(1)
		c.SetResidentNetworks(1)
		c.StoreFailed("x")
		c.ObserveRequest("GET", "/", "200", time.Second)
	})
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector("neurosim")
	b := NewCollector("neurosim")

	a.NeuronsAdded(1)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.NeuronsCreated))
}

func TestHandler(t *testing.T) {
	c := NewCollector("neurosim")
	c.ObserveCascade(3)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "neurosim_firings_total 3")
	assert.Contains(t, rec.Body.String(), "neurosim_cascade_size_bucket")
}
