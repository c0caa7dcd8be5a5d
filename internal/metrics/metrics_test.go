package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Alias1177/WinGoTrader/models"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

// counterValue sums every series of the named family.
func counterValue(reg *prometheus.Registry, name string) float64 {
	families, err := reg.Gather()
	if err != nil {
		return -1
	}
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestManagerRecording(t *testing.T) {
	Convey("Given a manager on its own registry", t, func() {
		m := NewManager(WithNamespace("test"))

		Convey("Predictions and outcomes are counted", func() {
			m.Prediction(models.Prediction{Status: models.StatusReady, Rule: "run-4"})
			m.Prediction(models.Prediction{Status: models.StatusInsufficient})
			m.Outcome(true)
			m.Outcome(false)
			m.Outcome(true)

			So(counterValue(m.Registry(), "test_predictions_total"), ShouldEqual, 2)
			So(counterValue(m.Registry(), "test_prediction_outcomes_total"), ShouldEqual, 3)
		})

		Convey("Feed fetches and deliveries are counted", func() {
			m.ObserveFetch(nil, 20*time.Millisecond)
			m.ObserveFetch(errors.New("timeout"), time.Second)
			m.ObserveDelivery(nil)

			So(counterValue(m.Registry(), "test_feed_fetches_total"), ShouldEqual, 2)
			So(counterValue(m.Registry(), "test_deliveries_total"), ShouldEqual, 1)
		})

		Convey("The handler exposes the text format", func() {
			m.Outcome(true)
			rec := httptest.NewRecorder()
			m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
			body, _ := io.ReadAll(rec.Body)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(strings.Contains(string(body), `test_prediction_outcomes_total{result="win"} 1`), ShouldBeTrue)
		})
	})

	Convey("Given a disabled manager", t, func() {
		m := NewManager(WithMetricsEnabled(false))
		m.Outcome(true)
		So(counterValue(m.Registry(), "wingo_prediction_outcomes_total"), ShouldEqual, 0)
	})
}

func TestMiddleware(t *testing.T) {
	Convey("Requests are labelled with the chi route pattern", t, func() {
		m := NewManager()
		r := chi.NewRouter()
		r.Use(m.Middleware)
		r.Get("/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sessions/abc", nil))
		So(counterValue(m.Registry(), "wingo_http_requests_total"), ShouldEqual, 1)

		families, _ := m.Registry().Gather()
		found := false
		for _, mf := range families {
			if mf.GetName() != "wingo_http_requests_total" {
				continue
			}
			for _, metric := range mf.GetMetric() {
				for _, l := range metric.GetLabel() {
					if l.GetName() == "route" && l.GetValue() == "/sessions/{id}" {
						found = true
					}
				}
			}
		}
		So(found, ShouldBeTrue)
	})
}

func TestPush(t *testing.T) {
	Convey("Push sends the registry to the gateway under the job", t, func() {
		var method, path string
		var body []byte
		gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method, path = r.Method, r.URL.Path
			body, _ = io.ReadAll(r.Body)
			w.WriteHeader(http.StatusOK)
		}))
		defer gw.Close()

		m := NewManager()
		m.ObserveDelivery(nil)
		So(m.Push(context.Background(), gw.URL, "wingo_broadcast"), ShouldBeNil)
		So(method, ShouldEqual, http.MethodPut)
		So(path, ShouldEqual, "/metrics/job/wingo_broadcast")
		So(len(body), ShouldBeGreaterThan, 0)
	})

	Convey("A failing gateway is reported", t, func() {
		gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer gw.Close()

		err := NewManager().Push(context.Background(), gw.URL, "wingo_analyzer")
		So(err, ShouldNotBeNil)
	})
}
