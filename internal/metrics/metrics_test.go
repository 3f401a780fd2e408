package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/qturkey/listmailer/internal/dispatch"
	"github.com/qturkey/listmailer/internal/ingest"
	"github.com/qturkey/listmailer/internal/model"
)

func TestObserveDispatch(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveDispatch(nil)
	m.ObserveDispatch(&dispatch.Result{Sent: 598, Failed: 2, Continuation: &model.Job{}})
	m.ObserveDispatch(&dispatch.Result{Sent: 3})

	assert.InDelta(t, 601, testutil.ToFloat64(m.Deliveries.WithLabelValues("success")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Deliveries.WithLabelValues("failure")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.JobsDispatched), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.JobsContinued), 0)
}

func TestObserveIngest(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveIngest(&ingest.Result{Templates: 3, Authorized: 2, Job: &model.Job{}})
	m.ObserveIngest(&ingest.Result{})

	assert.InDelta(t, 2, testutil.ToFloat64(m.Templates.WithLabelValues("true")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Templates.WithLabelValues("false")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.JobsIngested), 0)
}

func TestNilMetrics(t *testing.T) {
	t.Parallel()

	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveDispatch(&dispatch.Result{Sent: 1})
		m.ObserveIngest(&ingest.Result{Templates: 1})
	})
}

func TestHandler(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveDispatch(&dispatch.Result{Sent: 1})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `listmailer_delivery_total{result="success"} 1`)
}
