package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/secmon-lab/studypal/pkg/utils/metrics"
)

func TestCollector(t *testing.T) {
	t.Run("nil collector is a no-op", func(t *testing.T) {
		var c *metrics.Collector
		c.RecordRequest("chat_rag", 200)
		c.RecordRetrieval("found", 2)
		c.RecordQuizItem("template")
		c.RecordLLM("local", "generate", nil, time.Second)
		c.TaskStarted()
		c.TaskFinished("done")
		c.RecordHTTP("GET", "/api/health", 200)
		gt.Value(t, c.Registry()).Nil()
	})

	t.Run("records and exposes metrics", func(t *testing.T) {
		c := metrics.New()
		c.RecordRequest("quiz_notes", 400)
		c.RecordRetrieval("no_evidence", 0)
		c.RecordLLM("gemini", "generate", errors.New("boom"), 10*time.Millisecond)
		c.TaskStarted()
		c.TaskFinished("failed")

		n, err := testutil.GatherAndCount(c.Registry(), "studypal_routed_requests_total", "studypal_tasks_total")
		gt.NoError(t, err).Required()
		gt.Value(t, n).Equal(2)

		w := httptest.NewRecorder()
		c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		gt.Value(t, w.Code).Equal(http.StatusOK)
		gt.String(t, w.Body.String()).Contains("studypal_llm_requests_total")
	})
}
