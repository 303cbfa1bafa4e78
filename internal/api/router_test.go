package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/islandman/hotel-listing/internal/api/handler"
	"github.com/islandman/hotel-listing/internal/core/domain"
	"github.com/islandman/hotel-listing/internal/core/ports"
	"github.com/islandman/hotel-listing/internal/core/service"
	"github.com/islandman/hotel-listing/internal/infrastructure/db/sqlstore"
	"github.com/islandman/hotel-listing/internal/infrastructure/ratelimit"
)

const testPassword = "correct-horse-battery"

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testApp struct {
	e     *echo.Echo
	auth  *service.AuthService
	clock *fakeClock
}

func newTestApp(t *testing.T, rules ...domain.RateLimitRule) *testApp {
	t.Helper()
	ctx := context.Background()

	dsn := filepath.Join(t.TempDir(), "api.db") +
		"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	store, err := sqlstore.Open(ctx, sqlstore.Config{Dialect: "sqlite", DSN: dsn}, zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	tokens, err := service.NewTokenManager(service.TokenConfig{
		SigningKey: []byte("router-test-signing-key-0123456789"),
		Issuer:     "HotelListingAPI",
		Audience:   "HotelListingClients",
		Lifetime:   15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	auth := service.NewAuthService(store.Principals(), tokens, zerolog.Nop(), service.WithBcryptCost(bcrypt.MinCost))

	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	e := NewRouter(Dependencies{
		Auth:           auth,
		Tokens:         tokens,
		Units:          store,
		RateLimitStore: ratelimit.NewMemoryStore(time.Minute, ratelimit.WithClock(clock.Now)),
		RateLimitRules: rules,
		Cache:          domain.CachePolicy{MaxAge: 120 * time.Second, MustRevalidate: true},
		Readiness:      map[string]handler.Pinger{"sql": store},
		Log:            zerolog.Nop(),
	})

	app := &testApp{e: e, auth: auth, clock: clock}
	app.register(t, "alice", "alice@example.com", domain.RoleUser, domain.RoleAdministrator)
	app.register(t, "bob", "bob@example.com", domain.RoleUser)
	return app
}

func (a *testApp) register(t *testing.T, name, email string, roles ...string) {
	t.Helper()
	_, err := a.auth.Register(context.Background(), ports.RegisterInput{
		UserName: name, Email: email, Password: testPassword, Roles: roles,
	})
	if err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
}

func (a *testApp) do(t *testing.T, method, target, body, token string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) login(t *testing.T, identifier string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/account/login",
		fmt.Sprintf(`{"email":%q,"password":%q}`, identifier, testPassword), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", identifier, rec.Code, rec.Body.String())
	}
	var resp struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	if resp.Token == "" || resp.ExpiresAt.IsZero() {
		t.Fatalf("incomplete token response: %s", rec.Body.String())
	}
	return resp.Token
}

func decodeID(t *testing.T, rec *httptest.ResponseRecorder) int64 {
	t.Helper()
	var resp struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode id: %v", err)
	}
	if resp.ID < 1 {
		t.Fatalf("expected assigned id, got %d", resp.ID)
	}
	return resp.ID
}

func (a *testApp) seedHotel(t *testing.T, token string) (countryID, hotelID int64) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/countries", `{"name":"Jamaica","short_name":"JM"}`, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create country: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	countryID = decodeID(t, rec)

	rec = a.do(t, http.MethodPost, "/api/hotels",
		fmt.Sprintf(`{"name":"Sandals Resort and Spa","address":"Negril","rating":4.5,"country_id":%d}`, countryID), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create hotel: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc == "" {
		t.Fatalf("expected Location header")
	}
	return countryID, decodeID(t, rec)
}

func TestRouter_AdministratorDeletesHotel(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, "alice@example.com")
	_, hotelID := app.seedHotel(t, token)
	target := fmt.Sprintf("/api/hotels/%d", hotelID)

	rec := app.do(t, http.MethodDelete, target, "", token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.do(t, http.MethodGet, target, "", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}

	rec = app.do(t, http.MethodDelete, target, "", token)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting twice, got %d", rec.Code)
	}
}

func TestRouter_MutationsRequireAdministrator(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(t, "alice")
	_, hotelID := app.seedHotel(t, admin)
	target := fmt.Sprintf("/api/hotels/%d", hotelID)

	user := app.login(t, "bob@example.com")
	if rec := app.do(t, http.MethodDelete, target, "", user); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for User role, got %d", rec.Code)
	}
	if rec := app.do(t, http.MethodDelete, target, "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
	if rec := app.do(t, http.MethodDelete, target, "", "not-a-jwt"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rec.Code)
	}
	if rec := app.do(t, http.MethodGet, target, "", ""); rec.Code != http.StatusOK {
		t.Fatalf("hotel must survive rejected deletes, got %d", rec.Code)
	}
}

func TestRouter_LoginFailuresAreUniform(t *testing.T) {
	app := newTestApp(t)

	wrongPassword := app.do(t, http.MethodPost, "/api/account/login", `{"email":"alice@example.com","password":"nope-nope"}`, "")
	unknownUser := app.do(t, http.MethodPost, "/api/account/login", `{"email":"mallory@example.com","password":"nope-nope"}`, "")

	if wrongPassword.Code != http.StatusUnauthorized || unknownUser.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrongPassword.Code, unknownUser.Code)
	}
	if wrongPassword.Body.String() != unknownUser.Body.String() {
		t.Fatalf("bodies differ: %q vs %q", wrongPassword.Body.String(), unknownUser.Body.String())
	}
}

func TestRouter_RegisterThenLogin(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodPost, "/api/account/register",
		`{"username":"carol","email":"carol@example.com","password":"`+testPassword+`"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}

	rec = app.do(t, http.MethodPost, "/api/account/register",
		`{"username":"CAROL","password":"`+testPassword+`"}`, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate username, got %d", rec.Code)
	}

	rec = app.do(t, http.MethodPost, "/api/account/register", `{"username":"dave","password":"short"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for short password, got %d", rec.Code)
	}

	token := app.login(t, "carol")
	_, hotelID := app.seedHotel(t, app.login(t, "alice"))
	if rec := app.do(t, http.MethodDelete, fmt.Sprintf("/api/hotels/%d", hotelID), "", token); rec.Code != http.StatusForbidden {
		t.Fatalf("registered users hold only the User role, got %d", rec.Code)
	}
}

func TestRouter_AssignRolesTakesEffectOnNextLogin(t *testing.T) {
	app := newTestApp(t)
	admin := app.login(t, "alice")
	_, hotelID := app.seedHotel(t, admin)

	bob, err := app.auth.VerifyCredentials(context.Background(), "bob", testPassword)
	if err != nil {
		t.Fatalf("verify bob: %v", err)
	}
	staleToken := app.login(t, "bob")

	rec := app.do(t, http.MethodPost, "/api/account/"+bob.ID+"/roles", `{"roles":["Administrator"]}`, staleToken)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("users cannot grant roles, got %d", rec.Code)
	}

	rec = app.do(t, http.MethodPost, "/api/account/"+bob.ID+"/roles", `{"roles":["Owner"]}`, admin)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown role, got %d", rec.Code)
	}

	rec = app.do(t, http.MethodPost, "/api/account/"+bob.ID+"/roles", `{"roles":["Administrator"]}`, admin)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}

	target := fmt.Sprintf("/api/hotels/%d", hotelID)
	if rec := app.do(t, http.MethodDelete, target, "", staleToken); rec.Code != http.StatusForbidden {
		t.Fatalf("old token keeps its issuance-time roles, got %d", rec.Code)
	}
	if rec := app.do(t, http.MethodDelete, target, "", app.login(t, "bob")); rec.Code != http.StatusNoContent {
		t.Fatalf("fresh token carries the new role, got %d", rec.Code)
	}
}

func TestRouter_HotelValidationAndIntegrity(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, "alice")
	countryID, hotelID := app.seedHotel(t, token)

	cases := []struct {
		name   string
		method string
		target string
		body   string
		want   int
	}{
		{"rating too high", http.MethodPost, "/api/hotels", fmt.Sprintf(`{"name":"X","address":"Y","rating":6,"country_id":%d}`, countryID), http.StatusBadRequest},
		{"missing country", http.MethodPost, "/api/hotels", `{"name":"X","address":"Y","rating":3}`, http.StatusBadRequest},
		{"address too long", http.MethodPost, "/api/hotels", fmt.Sprintf(`{"name":"X","address":"%s","rating":3,"country_id":%d}`, strings.Repeat("a", 51), countryID), http.StatusBadRequest},
		{"unknown country", http.MethodPost, "/api/hotels", `{"name":"X","address":"Y","rating":3,"country_id":9999}`, http.StatusConflict},
		{"zero id", http.MethodGet, "/api/hotels/0", "", http.StatusBadRequest},
		{"non-numeric id", http.MethodGet, "/api/hotels/abc", "", http.StatusBadRequest},
		{"update missing", http.MethodPut, "/api/hotels/9999", fmt.Sprintf(`{"name":"X","address":"Y","rating":3,"country_id":%d}`, countryID), http.StatusNotFound},
		{"update ok", http.MethodPut, fmt.Sprintf("/api/hotels/%d", hotelID), fmt.Sprintf(`{"name":"Sandals","address":"Negril","rating":5,"country_id":%d}`, countryID), http.StatusNoContent},
		{"bad sort field", http.MethodGet, "/api/hotels?sort=password", "", http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := app.do(t, tc.method, tc.target, tc.body, token)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d: %s", tc.want, rec.Code, rec.Body.String())
			}
		})
	}

	rec := app.do(t, http.MethodGet, fmt.Sprintf("/api/hotels/%d", hotelID), "", "")
	var got struct {
		Rating  float64 `json:"rating"`
		Country *struct {
			Name string `json:"name"`
		} `json:"country"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode hotel: %v", err)
	}
	if got.Rating != 5 || got.Country == nil || got.Country.Name != "Jamaica" {
		t.Fatalf("unexpected hotel: %s", rec.Body.String())
	}
}

func TestRouter_ListFiltersAndCountryIncludesHotels(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, "alice")
	countryID, _ := app.seedHotel(t, token)
	app.do(t, http.MethodPost, "/api/hotels",
		fmt.Sprintf(`{"name":"Budget Inn","address":"Kingston","rating":2,"country_id":%d}`, countryID), token)

	rec := app.do(t, http.MethodGet, "/api/hotels?min_rating=4", "", "")
	var hotels []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &hotels); err != nil {
		t.Fatalf("decode hotels: %v", err)
	}
	if len(hotels) != 1 || hotels[0]["name"] != "Sandals Resort and Spa" {
		t.Fatalf("unexpected filtered hotels: %s", rec.Body.String())
	}

	rec = app.do(t, http.MethodGet, "/api/hotels?name=inn&sort=rating", "", "")
	hotels = nil
	_ = json.Unmarshal(rec.Body.Bytes(), &hotels)
	if len(hotels) != 1 || hotels[0]["name"] != "Budget Inn" {
		t.Fatalf("unexpected name search: %s", rec.Body.String())
	}

	rec = app.do(t, http.MethodGet, fmt.Sprintf("/api/countries/%d", countryID), "", "")
	var country struct {
		Hotels []map[string]any `json:"hotels"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &country); err != nil {
		t.Fatalf("decode country: %v", err)
	}
	if len(country.Hotels) != 2 {
		t.Fatalf("expected 2 hotels on country, got %s", rec.Body.String())
	}
}

func TestRouter_RateLimitOneRequestPerFiveSeconds(t *testing.T) {
	app := newTestApp(t, domain.RateLimitRule{Endpoint: "*", Limit: 1, Period: 5 * time.Second})

	first := app.do(t, http.MethodGet, "/api/countries", "", "")
	if first.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", first.Code)
	}
	if first.Header().Get("X-Rate-Limit-Remaining") != "0" {
		t.Fatalf("expected remaining 0, got %q", first.Header().Get("X-Rate-Limit-Remaining"))
	}

	app.clock.Advance(2 * time.Second)
	second := app.do(t, http.MethodPost, "/api/account/login", `{"email":"alice","password":"`+testPassword+`"}`, "")
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", second.Code)
	}
	if got := second.Header().Get("Retry-After"); got != "3" {
		t.Fatalf("expected Retry-After 3, got %q", got)
	}

	if rec := app.do(t, http.MethodGet, "/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("health probe must not be limited, got %d", rec.Code)
	}

	app.clock.Advance(3 * time.Second)
	if rec := app.do(t, http.MethodGet, "/api/countries", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("new window: expected 200, got %d", rec.Code)
	}
}

func TestRouter_EndpointRulesAreScoped(t *testing.T) {
	app := newTestApp(t, domain.RateLimitRule{Endpoint: "POST:/api/account/login", Limit: 2, Period: time.Minute})

	for i := 0; i < 5; i++ {
		if rec := app.do(t, http.MethodGet, "/api/hotels", "", ""); rec.Code != http.StatusOK {
			t.Fatalf("unmatched route limited on request %d: %d", i, rec.Code)
		}
	}
	app.login(t, "alice")
	app.login(t, "bob")
	rec := app.do(t, http.MethodPost, "/api/account/login", `{"email":"alice","password":"`+testPassword+`"}`, "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third login, got %d", rec.Code)
	}
}

func TestRouter_CacheHeadersAndConditionalGet(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, "alice")
	app.seedHotel(t, token)

	rec := app.do(t, http.MethodGet, "/api/hotels", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=120, must-revalidate" {
		t.Fatalf("unexpected Cache-Control %q", got)
	}
	etag := rec.Header().Get("ETag")
	if !strings.HasPrefix(etag, `W/"`) {
		t.Fatalf("expected weak ETag, got %q", etag)
	}
	if rec.Body.Len() == 0 {
		t.Fatalf("expected body on first read")
	}

	rec = app.do(t, http.MethodGet, "/api/hotels", "", "", "If-None-Match", etag)
	if rec.Code != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Fatalf("304 must not carry a body")
	}

	if rec := app.do(t, http.MethodGet, "/api/hotels/9999", "", ""); rec.Header().Get("ETag") != "" {
		t.Fatalf("errors must not be cached")
	}

	rec = app.do(t, http.MethodPost, "/api/countries", `{"name":"Bahamas","short_name":"BS"}`, token)
	if rec.Header().Get("Cache-Control") != "" {
		t.Fatalf("mutations must not carry cache headers")
	}
}

func TestRouter_HeadOnCachedReads(t *testing.T) {
	app := newTestApp(t)
	token := app.login(t, "alice")
	_, hotelID := app.seedHotel(t, token)
	target := fmt.Sprintf("/api/hotels/%d", hotelID)

	get := app.do(t, http.MethodGet, target, "", "")
	head := app.do(t, http.MethodHead, target, "", "")
	if head.Code != http.StatusOK {
		t.Fatalf("expected 200 for HEAD, got %d", head.Code)
	}
	if head.Header().Get("ETag") != get.Header().Get("ETag") {
		t.Fatalf("HEAD and GET must share the ETag: %q vs %q", head.Header().Get("ETag"), get.Header().Get("ETag"))
	}

	rec := app.do(t, http.MethodHead, target, "", "", "If-None-Match", get.Header().Get("ETag"))
	if rec.Code != http.StatusNotModified {
		t.Fatalf("expected 304 for conditional HEAD, got %d", rec.Code)
	}

	rec = app.do(t, http.MethodHead, "/api/countries", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for HEAD on list, got %d", rec.Code)
	}

	rec = app.do(t, http.MethodHead, "/api/hotels/9999", "", "")
	if rec.Code != http.StatusNotFound || rec.Body.Len() != 0 {
		t.Fatalf("expected bodiless 404, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestRouter_Health(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(t, http.MethodGet, "/health/ready", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"sql":{"status":"ok"}`) {
		t.Fatalf("unexpected readiness body: %s", rec.Body.String())
	}
}
