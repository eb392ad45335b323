package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddleware_RecordsDurationAndCount(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/search", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest("GET", "/search", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	requestsVal := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/search", "200"))
	if requestsVal < 1 {
		t.Errorf("expected http_requests_total >= 1, got %f", requestsVal)
	}

	durationCount := testutil.CollectAndCount(httpRequestDuration)
	if durationCount == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
}

func TestMetricsMiddleware_DifferentStatusCodes(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())

	r.Get("/signals/popular", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/signals/users/{userId}/history", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/search", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	tests := []struct {
		path           string
		pattern        string
		expectedStatus string
	}{
		{"/signals/popular", "/signals/popular", "200"},
		{"/signals/users/42/history", "/signals/users/{userId}/history", "404"},
		{"/search", "/search", "500"},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.path, http.NoBody)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", tc.pattern, tc.expectedStatus))
			if val < 1 {
				t.Errorf("expected requests_total for %s with status %s >= 1, got %f", tc.path, tc.expectedStatus, val)
			}
		})
	}
}

func TestMetricsMiddleware_DifferentMethods(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())

	r.Get("/signals/click", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("get"))
	})
	r.Post("/signals/click", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("post"))
	})

	methods := []string{"GET", "POST"}

	for _, method := range methods {
		t.Run(method, func(t *testing.T) {
			req := httptest.NewRequest(method, "/signals/click", http.NoBody)
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(method, "/signals/click", "200"))
			if val < 1 {
				t.Errorf("expected requests_total for %s >= 1, got %f", method, val)
			}
		})
	}
}

func TestMetricsMiddleware_UnmatchedRoute(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, path := range []string{"/does-not-exist", "/signals/users/7/unknown"} {
		req := httptest.NewRequest("GET", path, http.NoBody)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404"))
	if val < 2 {
		t.Errorf("expected unmatched 404 requests >= 2, got %f", val)
	}
}

func TestMetricsMiddleware_InFlight(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())

	var during float64
	r.Get("/search", func(w http.ResponseWriter, r *http.Request) {
		during = testutil.ToFloat64(httpRequestsInFlight)
		w.WriteHeader(http.StatusOK)
	})

	before := testutil.ToFloat64(httpRequestsInFlight)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/search", http.NoBody))

	if during != before+1 {
		t.Errorf("in-flight during request = %f, want %f", during, before+1)
	}
	if after := testutil.ToFloat64(httpRequestsInFlight); after != before {
		t.Errorf("in-flight after request = %f, want %f", after, before)
	}
}

func TestRouteLabel_WithoutRouter(t *testing.T) {
	req := httptest.NewRequest("GET", "/raw", http.NoBody)
	if got := routeLabel(req); got != unmatchedRoute {
		t.Errorf("routeLabel = %q, want %q", got, unmatchedRoute)
	}
}

func TestMetricsHandler_ViaPromhttp(t *testing.T) {
	r := chi.NewRouter()

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("# metrics placeholder"))
	})

	req := httptest.NewRequest("GET", "/metrics", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	body, err := io.ReadAll(rr.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	if len(body) == 0 {
		t.Error("expected non-empty metrics response")
	}
}

func TestRegisterSearchMetrics_Idempotent(t *testing.T) {
	RegisterSearchMetrics()
	RegisterSearchMetrics()

	SearchRequestsTotal.WithLabelValues("hit").Inc()
	if got := testutil.ToFloat64(SearchRequestsTotal.WithLabelValues("hit")); got < 1 {
		t.Errorf("expected search_requests_total{cache=hit} >= 1, got %f", got)
	}
}
