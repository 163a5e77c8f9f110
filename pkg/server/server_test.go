package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/ledger/pkg/clock"
	"mercator-hq/ledger/pkg/config"
	"mercator-hq/ledger/pkg/dashboard"
	"mercator-hq/ledger/pkg/records"
	"mercator-hq/ledger/pkg/records/query"
	"mercator-hq/ledger/pkg/records/retention"
	"mercator-hq/ledger/pkg/records/storage"
	"mercator-hq/ledger/pkg/telemetry/health"
	"mercator-hq/ledger/pkg/telemetry/metrics"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	server *Server
	stores *storage.Stores
	locker *retention.LocalLocker
}

func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()

	cfg := config.Default()
	cfg.Server.RateLimit.Enabled = false
	cfg.Retention.RetentionDays = 30
	if mutate != nil {
		mutate(cfg)
	}

	clk := clock.Fixed(testNow)
	stores := storage.NewMemoryStores()
	collector := metrics.NewCollector(nil, nil)
	sweeper := retention.NewAuditSweeper(stores.AuditEvents, func() retention.Policy {
		return retention.Policy{Enabled: cfg.Retention.Enabled, RetentionDays: cfg.Retention.RetentionDays}
	}, retention.Options{Clock: clk, Observer: collector})

	locker := retention.NewLocalLocker()
	checker := health.New(time.Second)
	checker.RegisterCheck("storage", func(context.Context) error { return nil })

	srv, err := New(cfg, Services{
		Stores:    stores,
		Sweeper:   sweeper,
		Locker:    locker,
		Dashboard: dashboard.NewAuditDashboard(stores.AuditEvents, clk, 3, collector),
		Health:    checker,
		Metrics:   collector,
		Version:   health.NewVersionInfo("test", "abc123", ""),
		Clock:     clk,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &fixture{server: srv, stores: stores, locker: locker}
}

func (f *fixture) do(t *testing.T, method, target string, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.RemoteAddr = "192.0.2.1:4000"
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (f *fixture) seedAudit(t *testing.T, events ...records.AuditEvent) {
	t.Helper()
	for i := range events {
		if err := f.stores.AuditEvents.Insert(context.Background(), &events[i]); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}
}

func (f *fixture) seedProducts(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		p := records.Product{
			SKU:       string(rune('A' + i)),
			Name:      "widget",
			Category:  []string{"tools", "books"}[i%2],
			Price:     float64(10 + i),
			Stock:     int64(i),
			Active:    i%2 == 0,
			CreatedAt: testNow.Add(-time.Duration(i) * time.Hour),
		}
		if err := f.stores.Products.Insert(context.Background(), &p); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode body %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestListProducts(t *testing.T) {
	f := newFixture(t, nil)
	f.seedProducts(t, 5)

	tests := []struct {
		name      string
		target    string
		wantSKUs  string
		wantTotal int64
		wantPages int
	}{
		{"default order is newest first", "/v1/products", "ABCDE", 5, 1},
		{"category filter", "/v1/products?category=books", "BD", 2, 1},
		{"repeated category", "/v1/products?category=books&category=tools&size=2", "AB", 5, 3},
		{"price range", "/v1/products?min_price=11&max_price=13", "BCD", 3, 1},
		{"reversed price bounds", "/v1/products?min_price=13&max_price=11", "BCD", 3, 1},
		{"active flag", "/v1/products?active=true", "ACE", 3, 1},
		{"sort and page", "/v1/products?sort=price,desc&page=1&size=2", "CB", 5, 3},
		{"page past the end", "/v1/products?page=9&size=2", "", 5, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tt.target, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			page := decode[query.Page[records.Product]](t, rec)

			var got string
			for _, p := range page.Items {
				got += p.SKU
			}
			if got != tt.wantSKUs {
				t.Errorf("items = %q, want %q", got, tt.wantSKUs)
			}
			if page.Total != tt.wantTotal {
				t.Errorf("total = %d, want %d", page.Total, tt.wantTotal)
			}
			if page.TotalPages != tt.wantPages {
				t.Errorf("total_pages = %d, want %d", page.TotalPages, tt.wantPages)
			}
		})
	}
}

func TestListRejectsMalformedInput(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name     string
		target   string
		wantCode string
	}{
		{"bad number", "/v1/products?min_price=cheap", CodeInvalidParameter},
		{"bad bool", "/v1/users?active=maybe", CodeInvalidParameter},
		{"bad date", "/v1/audit-events?from=yesterday", CodeInvalidParameter},
		{"bad status", "/v1/audit-events?status=MAYBE", CodeInvalidParameter},
		{"negative page", "/v1/products?page=-1", CodeInvalidQuery},
		{"oversized page", "/v1/products?size=100000", CodeInvalidQuery},
		{"unknown sort field", "/v1/products?sort=colour,asc", CodeInvalidQuery},
		{"bad sort direction", "/v1/products?sort=price,sideways", CodeInvalidQuery},
		{"bad export format", "/v1/products/export?format=xml", CodeInvalidFormat},
		{"bad range", "/v1/dashboard/stats?range=FOREVER", CodeInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, tt.target, "")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
			body := decode[ErrorResponse](t, rec)
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
			if body.Error == "" {
				t.Error("error message is empty")
			}
		})
	}
}

func TestCreateAndGet(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/v1/users", `{"username":"alice","email":"alice@example.com","role":"editor","active":true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decode[records.User](t, rec)
	if created.ID == "" {
		t.Fatal("created user has no ID")
	}
	if created.Role != records.RoleEditor {
		t.Errorf("role = %q, want %q", created.Role, records.RoleEditor)
	}
	if !created.CreatedAt.Equal(testNow) {
		t.Errorf("created_at = %v, want %v", created.CreatedAt, testNow)
	}
	if loc := rec.Header().Get("Location"); loc != "/v1/users/"+created.ID {
		t.Errorf("Location = %q", loc)
	}

	rec = f.do(t, http.MethodGet, "/v1/users/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	if got := decode[records.User](t, rec); got.Username != "alice" {
		t.Errorf("username = %q, want alice", got.Username)
	}

	t.Run("duplicate id", func(t *testing.T) {
		rec := f.do(t, http.MethodPost, "/v1/users", `{"id":"`+created.ID+`","username":"bob"}`)
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := f.do(t, http.MethodGet, "/v1/users/missing", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		if body := decode[ErrorResponse](t, rec); body.Code != CodeNotFound {
			t.Errorf("code = %q, want %q", body.Code, CodeNotFound)
		}
	})

	t.Run("invalid bodies", func(t *testing.T) {
		for _, body := range []string{
			`{"username":`,
			`{"username":"carol","colour":"blue"}`,
			`{"username":"  "}`,
			`{"username":"dave","role":"OWNER"}`,
			`{"username":"erin","created_at":"2300-01-01T00:00:00Z"}`,
		} {
			rec := f.do(t, http.MethodPost, "/v1/users", body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("body %s: status = %d, want 400", body, rec.Code)
			}
		}
	})
}

func TestListRejectsUnrepresentablePages(t *testing.T) {
	f := newFixture(t, nil)
	f.seedProducts(t, 3)

	for _, target := range []string{
		"/v1/products?page=4611686018427387904&size=2",
		"/v1/products?created_until=2300-01-01",
		"/v1/products?created_from=0001-01-01",
	} {
		rec := f.do(t, http.MethodGet, target, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400 (body %s)", target, rec.Code, rec.Body.String())
		}
	}
}

func TestAuditDateFilterUsesCallerTimezone(t *testing.T) {
	if _, err := time.LoadLocation("Europe/Berlin"); err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	f := newFixture(t, nil)
	f.seedAudit(t, records.AuditEvent{
		Actor:     "alice",
		Operation: records.OperationLogin,
		Success:   true,
		Timestamp: time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC),
	})

	target := "/v1/audit-events?from=2024-03-11&until=2024-03-11"

	rec := f.do(t, http.MethodGet, target, "")
	if page := decode[query.Page[records.AuditEvent]](t, rec); page.Total != 0 {
		t.Errorf("UTC: total = %d, want 0", page.Total)
	}

	rec = f.do(t, http.MethodGet, target, "", "X-Timezone", "Europe/Berlin")
	if page := decode[query.Page[records.AuditEvent]](t, rec); page.Total != 1 {
		t.Errorf("Europe/Berlin: total = %d, want 1", page.Total)
	}

	rec = f.do(t, http.MethodGet, target, "", "X-Timezone", "Nowhere/Special")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown zone: status = %d, want 400", rec.Code)
	}
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t, nil)
	f.seedProducts(t, 4)

	rec := f.do(t, http.MethodGet, "/v1/products/export?format=csv&category=tools&sort=sku,desc", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "products-20240615-120000.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	rows, err := csv.NewReader(bytes.NewReader(rec.Body.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if rows[0][1] != "sku" || rows[1][1] != "C" || rows[2][1] != "A" {
		t.Errorf("rows = %v", rows)
	}
}

func TestExportJSONReturnsEveryMatch(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Query.DefaultPageSize = 2
		cfg.Query.MaxPageSize = 2
	})
	f.seedProducts(t, 5)

	rec := f.do(t, http.MethodGet, "/v1/products/export", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	items := decode[[]records.Product](t, rec)
	if len(items) != 5 {
		t.Errorf("exported %d products, want 5", len(items))
	}
}

func TestDashboardStats(t *testing.T) {
	f := newFixture(t, nil)
	f.seedAudit(t,
		records.AuditEvent{Actor: "alice", Operation: records.OperationCreate, Success: true, Timestamp: testNow.Add(-time.Hour)},
		records.AuditEvent{Actor: "alice", Operation: records.OperationDelete, Success: false, Timestamp: testNow.Add(-48 * time.Hour)},
		records.AuditEvent{Actor: "bob", Operation: records.OperationCreate, Success: true, Timestamp: testNow.AddDate(0, 0, -20)},
	)

	rec := f.do(t, http.MethodGet, "/v1/dashboard/stats?range=last_7_days", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	stats := decode[dashboard.Stats](t, rec)
	if stats.Range != dashboard.Last7Days {
		t.Errorf("range = %q", stats.Range)
	}
	if len(stats.LogsOverTime) != 2 {
		t.Errorf("logs_over_time has %d points, want 2", len(stats.LogsOverTime))
	}
	if len(stats.TopActors) != 1 || stats.TopActors[0].Label != "alice" {
		t.Errorf("top_actors = %+v", stats.TopActors)
	}
}

func TestRetentionEndpointsRespectSweepLease(t *testing.T) {
	f := newFixture(t, nil)
	f.seedAudit(t,
		records.AuditEvent{Actor: "alice", Operation: records.OperationCreate, Timestamp: testNow.AddDate(0, 0, -40)},
	)

	release, ok, err := f.locker.TryLock(context.Background(), retention.LeaseName(records.AuditEventKind.Name()), time.Minute)
	if err != nil || !ok {
		t.Fatalf("TryLock() = %v, %v", ok, err)
	}

	for _, tt := range []struct{ method, target string }{
		{http.MethodPost, "/v1/retention/sweep"},
		{http.MethodDelete, "/v1/audit-events/entities/products/p1"},
		{http.MethodDelete, "/v1/audit-events/actors/alice"},
	} {
		rec := f.do(t, tt.method, tt.target, "")
		if rec.Code != http.StatusConflict {
			t.Errorf("%s %s: status = %d, want 409", tt.method, tt.target, rec.Code)
		}
		if got := decode[ErrorResponse](t, rec); got.Code != CodeSweepInProgress {
			t.Errorf("%s %s: code = %q, want %q", tt.method, tt.target, got.Code, CodeSweepInProgress)
		}
	}

	n, err := f.stores.AuditEvents.Count(context.Background(), records.AuditCriteria{}.Compile(nil))
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("%d events remain while the lease was held, want 1", n)
	}

	if err := release(context.Background()); err != nil {
		t.Fatalf("release() error = %v", err)
	}
	rec := f.do(t, http.MethodPost, "/v1/retention/sweep", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("sweep after release: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := decode[retention.Result](t, rec); got.Deleted != 1 {
		t.Errorf("sweep after release deleted %d, want 1", got.Deleted)
	}

	// The handler gives the lease back once it is done.
	if _, ok, _ := f.locker.TryLock(context.Background(), retention.LeaseName(records.AuditEventKind.Name()), time.Minute); !ok {
		t.Error("lease still held after the sweep returned")
	}
}

func TestRetentionEndpoints(t *testing.T) {
	f := newFixture(t, nil)
	f.seedAudit(t,
		records.AuditEvent{Actor: "alice", Operation: records.OperationCreate, EntityKind: "products", EntityID: "p1", Timestamp: testNow.AddDate(0, 0, -40)},
		records.AuditEvent{Actor: "alice", Operation: records.OperationUpdate, EntityKind: "products", EntityID: "p1", Timestamp: testNow},
		records.AuditEvent{Actor: "bob", Operation: records.OperationCreate, EntityKind: "products", EntityID: "p2", Timestamp: testNow},
		records.AuditEvent{Actor: "carol", Operation: records.OperationLogin, Timestamp: testNow},
	)

	rec := f.do(t, http.MethodPost, "/v1/retention/sweep", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("sweep status = %d, body %s", rec.Code, rec.Body.String())
	}
	result := decode[retention.Result](t, rec)
	if result.Deleted != 1 {
		t.Errorf("sweep deleted %d, want 1", result.Deleted)
	}
	if want := testNow.AddDate(0, 0, -30); !result.Cutoff.Equal(want) {
		t.Errorf("cutoff = %v, want %v", result.Cutoff, want)
	}

	rec = f.do(t, http.MethodDelete, "/v1/audit-events/entities/products/p1", "")
	if got := decode[DeleteResult](t, rec); rec.Code != http.StatusOK || got.Deleted != 1 {
		t.Errorf("entity delete = %d %+v, want 200 with 1 deleted", rec.Code, got)
	}

	rec = f.do(t, http.MethodDelete, "/v1/audit-events/actors/bob", "")
	if got := decode[DeleteResult](t, rec); rec.Code != http.StatusOK || got.Deleted != 1 {
		t.Errorf("actor delete = %d %+v, want 200 with 1 deleted", rec.Code, got)
	}

	rec = f.do(t, http.MethodDelete, "/v1/audit-events/actors/%20", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank actor: status = %d, want 400", rec.Code)
	}

	n, err := f.stores.AuditEvents.Count(context.Background(), records.AuditCriteria{}.Compile(nil))
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Errorf("%d events left, want 1", n)
	}
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Server.RateLimit.Enabled = true
		cfg.Server.RateLimit.RequestsPerSecond = 0.001
		cfg.Server.RateLimit.Burst = 1
	})

	if rec := f.do(t, http.MethodGet, "/v1/products", ""); rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d", rec.Code)
	}
	rec := f.do(t, http.MethodGet, "/v1/products", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	if rec := f.do(t, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health is rate limited: status = %d", rec.Code)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	f := newFixture(t, nil)

	for _, path := range []string{"/health", "/ready", "/version"} {
		if rec := f.do(t, http.MethodGet, path, ""); rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d", path, rec.Code)
		}
	}

	f.do(t, http.MethodGet, "/v1/products", "")
	rec := f.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `route="/v1/products`) {
		t.Errorf("metrics missing route label:\n%s", rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown route: status = %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
}

func TestStartAndShutdown(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Server.ListenAddress = "127.0.0.1:0"
		cfg.Server.ShutdownTimeout = time.Second
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for f.server.Addr() == nil {
		if time.Now().After(deadline) {
			t.Fatal("server did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Get("http://" + f.server.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
	if f.server.IsRunning() {
		t.Error("IsRunning() = true after shutdown")
	}
}

func TestStartFailsWithoutCertificate(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Server.ListenAddress = "127.0.0.1:0"
		cfg.Server.TLS = config.TLSConfig{
			Enabled:    true,
			CertFile:   dir + "/missing.pem",
			KeyFile:    dir + "/missing.key",
			MinVersion: "1.3",
		}
	})

	err := f.server.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "TLS certificate") {
		t.Fatalf("Start() error = %v, want TLS certificate error", err)
	}
}
