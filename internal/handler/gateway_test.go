package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voltgrid/merchant-gateway/internal/config"
	"github.com/voltgrid/merchant-gateway/internal/domain"
	"github.com/voltgrid/merchant-gateway/internal/server"
)

const testSecret = "test-secret-key-123"

// stub is a fake downstream service recording the last forwarded request.
type stub struct {
	srv       *httptest.Server
	calls     int32
	mu        sync.Mutex
	lastPath  string
	lastQuery string
	lastBody  []byte
}

func newStubFunc(t *testing.T, handler func(s *stub, w http.ResponseWriter, r *http.Request)) *stub {
	t.Helper()
	s := &stub{}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.calls, 1)
		body, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.lastPath = r.URL.Path
		s.lastQuery = r.URL.RawQuery
		s.lastBody = body
		s.mu.Unlock()
		handler(s, w, r)
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func newStub(t *testing.T, status int, response []byte) *stub {
	return newStubFunc(t, func(_ *stub, w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write(response)
	})
}

// echoStub answers every request with the body it received.
func echoStub(t *testing.T) *stub {
	return newStubFunc(t, func(s *stub, w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		body := s.lastBody
		s.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	})
}

func userStub(t *testing.T, user domain.User) *stub {
	raw, err := json.Marshal(user)
	require.NoError(t, err)
	return newStub(t, http.StatusOK, raw)
}

func (s *stub) count() int32 { return atomic.LoadInt32(&s.calls) }

func (s *stub) last() (path, query string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPath, s.lastQuery, s.lastBody
}

func baseConfig() *config.Config {
	svc := config.Service{Version: "v1"}
	cfg := &config.Config{}
	cfg.Server.BodyLimitMB = 4
	cfg.Auth.JWTSecret = testSecret
	cfg.Services = config.ServicesConfig{
		User: svc, Merchant: svc, Device: svc, Product: svc, Voucher: svc,
		Customer: svc, Order: svc, Payment: svc, Billing: svc, Events: svc,
		Passes: svc, OCPP: svc, Ledgers: svc,
	}
	return cfg
}

func newApp(cfg *config.Config) *fiber.App {
	return server.NewApp(server.AppDependencies{Config: cfg})
}

func signToken(t *testing.T, userID string) string {
	t.Helper()
	claims := domain.Claims{
		ID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func request(t *testing.T, app *fiber.App, method, path, token string, body []byte) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response) domain.Error {
	t.Helper()
	var env domain.Error
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func TestLoginEmptyBody(t *testing.T) {
	users := newStub(t, http.StatusOK, []byte(`{"token":"x"}`))
	cfg := baseConfig()
	cfg.Services.User.BaseURL = users.srv.URL
	app := newApp(cfg)

	for _, body := range [][]byte{nil, []byte(`{}`), []byte(`null`), []byte(`{"email":"a@b.com"}`)} {
		resp := request(t, app, fiber.MethodPost, "/login", "", body)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		env := decodeEnvelope(t, resp)
		assert.Equal(t, domain.ReasonEmptyRequestBody, env.ReasonPhrase)
		assert.Equal(t, "You have requested to authenticate a user but the request body seems to be empty. Please provide an email address and a password.", env.Description)
	}

	// Validation terminates locally: no downstream call was made.
	assert.Equal(t, int32(0), users.count())
}

func TestLoginForwardsValidCredentials(t *testing.T) {
	users := newStub(t, http.StatusOK, []byte(`{"token":"jwt-abc"}`))
	cfg := baseConfig()
	cfg.Services.User.BaseURL = users.srv.URL
	app := newApp(cfg)

	resp := request(t, app, fiber.MethodPost, "/login", "", []byte(`{"email":"a@b.com","password":"hunter2"}`))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"token":"jwt-abc"}`, string(body))

	path, _, forwarded := users.last()
	assert.Equal(t, "/api/v1/users/login", path)
	assert.JSONEq(t, `{"email":"a@b.com","password":"hunter2"}`, string(forwarded))
}

func TestLoginRejectsMalformedEmail(t *testing.T) {
	users := newStub(t, http.StatusOK, nil)
	cfg := baseConfig()
	cfg.Services.User.BaseURL = users.srv.URL
	app := newApp(cfg)

	resp := request(t, app, fiber.MethodPost, "/login", "", []byte(`{"email":"not-an-email","password":"x"}`))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, domain.ReasonFieldValidation, decodeEnvelope(t, resp).ReasonPhrase)
	assert.Equal(t, int32(0), users.count())
}

func TestGatedRouteWithoutToken(t *testing.T) {
	users := userStub(t, domain.User{ID: "u1"})
	merchants := newStub(t, http.StatusOK, []byte(`{}`))
	cfg := baseConfig()
	cfg.Services.User.BaseURL = users.srv.URL
	cfg.Services.Merchant.BaseURL = merchants.srv.URL
	app := newApp(cfg)

	resp := request(t, app, fiber.MethodGet, "/merchants/m1", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, domain.ReasonUserNotAuthenticated, decodeEnvelope(t, resp).ReasonPhrase)

	assert.Equal(t, int32(0), users.count())
	assert.Equal(t, int32(0), merchants.count())
}

func TestCountriesPassthroughIsByteIdentical(t *testing.T) {
	payload := []byte(`{"countries":[{"code":"DE"},{"code":"NL"}]}`)
	merchants := newStub(t, http.StatusOK, payload)
	cfg := baseConfig()
	cfg.Services.Merchant.BaseURL = merchants.srv.URL
	app := newApp(cfg)

	first := request(t, app, fiber.MethodGet, "/countries", "", nil)
	assert.Equal(t, fiber.StatusOK, first.StatusCode)
	body1, _ := io.ReadAll(first.Body)
	assert.Equal(t, payload, body1)

	second := request(t, app, fiber.MethodGet, "/countries", "", nil)
	body2, _ := io.ReadAll(second.Body)
	assert.Equal(t, body1, body2)
}

func TestDeleteAccountListsUnlinkedMerchant(t *testing.T) {
	users := userStub(t, domain.User{ID: "u1", Merchants: []domain.MerchantLink{
		{MerchantID: "m2", MerchantName: "Other", Roles: "admin"},
	}})
	merchants := newStub(t, http.StatusOK, []byte(`{}`))
	cfg := baseConfig()
	cfg.Services.User.BaseURL = users.srv.URL
	cfg.Services.Merchant.BaseURL = merchants.srv.URL
	app := newApp(cfg)

	resp := request(t, app, fiber.MethodDelete, "/merchants/m1/account-lists", signToken(t, "u1"), nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// The user document was consulted, the downstream DELETE never issued.
	assert.Equal(t, int32(1), users.count())
	assert.Equal(t, int32(0), merchants.count())
}

func TestCreateAPIKeyRequiresExactAdminRole(t *testing.T) {
	merchants := newStub(t, http.StatusOK, []byte(`{"apiKey":"secret"}`))

	for _, roles := range []string{"write", "Admin", "view"} {
		users := userStub(t, domain.User{ID: "u1", Merchants: []domain.MerchantLink{
			{MerchantID: "m1", Roles: roles},
		}})
		cfg := baseConfig()
		cfg.Services.User.BaseURL = users.srv.URL
		cfg.Services.Merchant.BaseURL = merchants.srv.URL
		app := newApp(cfg)

		resp := request(t, app, fiber.MethodPost, "/merchants/m1/create-api-key", signToken(t, "u1"), nil)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "roles=%q", roles)

		env := decodeEnvelope(t, resp)
		assert.Equal(t, domain.ReasonUserNotAuthenticated, env.ReasonPhrase)
		assert.Equal(t, "This Merchant is not linked to the login user", env.Description)
	}
	assert.Equal(t, int32(0), merchants.count())

	users := userStub(t, domain.User{ID: "u1", Merchants: []domain.MerchantLink{
		{MerchantID: "m1", Roles: "admin"},
	}})
	cfg := baseConfig()
	cfg.Services.User.BaseURL = users.srv.URL
	cfg.Services.Merchant.BaseURL = merchants.srv.URL
	app := newApp(cfg)

	resp := request(t, app, fiber.MethodPost, "/merchants/m1/create-api-key", signToken(t, "u1"), nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"apiKey":"secret"}`, string(body))
	assert.Equal(t, int32(1), merchants.count())
}

func TestCustomerListAcceptsFoldedAdmin(t *testing.T) {
	users := userStub(t, domain.User{ID: "u1", Merchants: []domain.MerchantLink{
		{MerchantID: "m1", Roles: "Admin"},
	}})
	customers := newStub(t, http.StatusOK, []byte(`{"customers":[]}`))
	cfg := baseConfig()
	cfg.Services.User.BaseURL = users.srv.URL
	cfg.Services.Customer.BaseURL = customers.srv.URL
	app := newApp(cfg)

	resp := request(t, app, fiber.MethodGet, "/merchants/m1/customers", signToken(t, "u1"), nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), customers.count())
}

func TestProductCreateEnrichesMerchantName(t *testing.T) {
	merchantID := uuid.NewString()
	users := userStub(t, domain.User{ID: "u1", Merchants: []domain.MerchantLink{
		{MerchantID: merchantID, MerchantName: "Acme Charging", Roles: "write"},
	}})
	products := echoStub(t)
	cfg := baseConfig()
	cfg.Services.User.BaseURL = users.srv.URL
	cfg.Services.Product.BaseURL = products.srv.URL
	app := newApp(cfg)

	resp := request(t, app, fiber.MethodPost, "/merchants/"+merchantID+"/products", signToken(t, "u1"), []byte(`{"name":"AC fast charge"}`))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	_, _, forwarded := products.last()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(forwarded, &payload))
	assert.Equal(t, "AC fast charge", payload["name"])
	assert.Equal(t, "Acme Charging", payload["merchantName"])
}

func TestOrderListQueryForwardedDeterministically(t *testing.T) {
	users := userStub(t, domain.User{ID: "u1", Merchants: []domain.MerchantLink{
		{MerchantID: "m1", Roles: "view"},
	}})
	orders := newStub(t, http.StatusOK, []byte(`{"orders":[]}`))
	cfg := baseConfig()
	cfg.Services.User.BaseURL = users.srv.URL
	cfg.Services.Order.BaseURL = orders.srv.URL
	app := newApp(cfg)

	resp := request(t, app, fiber.MethodGet, "/merchants/m1/orders?to=2024-02-01&from=2024-01-01", signToken(t, "u1"), nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	path, query, _ := orders.last()
	assert.Equal(t, "/api/v1/merchants/m1/orders", path)
	assert.Equal(t, "from=2024-01-01&to=2024-02-01", query)
}

func TestOrderGetRequiresMerchantIDQuery(t *testing.T) {
	users := userStub(t, domain.User{ID: "u1"})
	orders := newStub(t, http.StatusOK, []byte(`{}`))
	cfg := baseConfig()
	cfg.Services.User.BaseURL = users.srv.URL
	cfg.Services.Order.BaseURL = orders.srv.URL
	app := newApp(cfg)

	resp := request(t, app, fiber.MethodGet, "/orders/o1", signToken(t, "u1"), nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, domain.ReasonFieldValidation, decodeEnvelope(t, resp).ReasonPhrase)
	assert.Equal(t, int32(0), orders.count())
}

func TestDeviceUpdateAuthorizesFromBody(t *testing.T) {
	users := userStub(t, domain.User{ID: "u1", Merchants: []domain.MerchantLink{
		{MerchantID: "m1", Roles: "write"},
	}})
	devices := echoStub(t)
	cfg := baseConfig()
	cfg.Services.User.BaseURL = users.srv.URL
	cfg.Services.Device.BaseURL = devices.srv.URL
	app := newApp(cfg)

	resp := request(t, app, fiber.MethodPatch, "/devices/d1", signToken(t, "u1"), []byte(`{"merchantID":"m1","label":"pole 4"}`))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	path, _, _ := devices.last()
	assert.Equal(t, "/api/v1/devices/d1", path)

	// Same body, merchant the user is not linked to.
	resp = request(t, app, fiber.MethodPatch, "/devices/d1", signToken(t, "u1"), []byte(`{"merchantID":"m9"}`))
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, int32(1), devices.count())
}

func TestDownstreamEnvelopePassesThrough(t *testing.T) {
	users := userStub(t, domain.User{ID: "u1", Merchants: []domain.MerchantLink{
		{MerchantID: "m1", Roles: "admin"},
	}})
	merchants := newStub(t, http.StatusNotFound, []byte(`{"code":404,"description":"Payout frequency not found","reasonPhrase":"PayoutFrequencyNotFoundError"}`))
	cfg := baseConfig()
	cfg.Services.User.BaseURL = users.srv.URL
	cfg.Services.Merchant.BaseURL = merchants.srv.URL
	app := newApp(cfg)

	resp := request(t, app, fiber.MethodGet, "/merchants/m1/payout-frequency", signToken(t, "u1"), nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	assert.Equal(t, "PayoutFrequencyNotFoundError", env.ReasonPhrase)
	assert.Equal(t, "Payout frequency not found", env.Description)
	assert.Equal(t, 404, env.Code)
}

func TestUnstructuredDownstreamFailureIsGeneric500(t *testing.T) {
	merchants := newStub(t, http.StatusBadGateway, []byte("boom"))
	cfg := baseConfig()
	cfg.Services.Merchant.BaseURL = merchants.srv.URL
	app := newApp(cfg)

	resp := request(t, app, fiber.MethodGet, "/countries", "", nil)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	assert.Equal(t, domain.ReasonInternalServer, env.ReasonPhrase)
	assert.Equal(t, "Internal server error", env.Description)
}

func TestUserServiceFailureDoesNotReachDownstream(t *testing.T) {
	users := newStub(t, http.StatusInternalServerError, []byte("database offline"))
	merchants := newStub(t, http.StatusOK, []byte(`{}`))
	cfg := baseConfig()
	cfg.Services.User.BaseURL = users.srv.URL
	cfg.Services.Merchant.BaseURL = merchants.srv.URL
	app := newApp(cfg)

	resp := request(t, app, fiber.MethodGet, "/merchants/m1", signToken(t, "u1"), nil)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, int32(0), merchants.count())
}

func TestVoucherRedeemValidatesStatus(t *testing.T) {
	vouchers := newStub(t, http.StatusOK, []byte(`{}`))
	cfg := baseConfig()
	cfg.Services.Voucher.BaseURL = vouchers.srv.URL
	app := newApp(cfg)
	token := signToken(t, "u1")

	resp := request(t, app, fiber.MethodPatch, "/vouchers/v-123/redeem", token, []byte(`{"status":"expired"}`))
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, domain.ReasonFieldValidation, decodeEnvelope(t, resp).ReasonPhrase)
	assert.Equal(t, int32(0), vouchers.count())

	resp = request(t, app, fiber.MethodPatch, "/vouchers/v-123/redeem", token, []byte(`{"status":"redeemed"}`))
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(1), vouchers.count())
}

func TestMerchantUpdateRequiresBody(t *testing.T) {
	users := userStub(t, domain.User{ID: "u1", Merchants: []domain.MerchantLink{
		{MerchantID: "m1", Roles: "write"},
	}})
	merchants := newStub(t, http.StatusOK, []byte(`{}`))
	cfg := baseConfig()
	cfg.Services.User.BaseURL = users.srv.URL
	cfg.Services.Merchant.BaseURL = merchants.srv.URL
	app := newApp(cfg)

	resp := request(t, app, fiber.MethodPatch, "/merchants/m1", signToken(t, "u1"), nil)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, domain.ReasonEmptyRequestBody, decodeEnvelope(t, resp).ReasonPhrase)

	// Terminated before both the user lookup and the forward.
	assert.Equal(t, int32(0), users.count())
	assert.Equal(t, int32(0), merchants.count())
}

func TestUpstreamHealthReport(t *testing.T) {
	healthy := newStub(t, http.StatusOK, []byte(`{"status":"ok"}`))
	broken := newStub(t, http.StatusInternalServerError, []byte("down"))

	up := config.Service{BaseURL: healthy.srv.URL, Version: "v1"}
	down := config.Service{BaseURL: broken.srv.URL, Version: "v1"}
	cfg := baseConfig()
	cfg.Services = config.ServicesConfig{
		User: up, Merchant: up, Device: up, Product: up, Voucher: up,
		Customer: up, Order: down, Payment: up, Billing: up, Events: up,
		Passes: up, OCPP: up, Ledgers: up,
	}
	app := newApp(cfg)

	resp := request(t, app, fiber.MethodGet, "/health/upstreams", "", nil)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	var report struct {
		Status    map[string]string `json:"status"`
		Healthy   bool              `json:"healthy"`
		Upstreams int               `json:"upstreams"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))

	assert.False(t, report.Healthy)
	assert.Equal(t, 13, report.Upstreams)
	assert.Equal(t, "unreachable", report.Status["order-service"])
	assert.Equal(t, "ok", report.Status["user-service"])
	assert.Equal(t, "ok", report.Status["ledgers-service"])
}
