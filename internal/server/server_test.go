package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/robotter-ai/ccxt-telegram-api/internal/apperror"
	"github.com/robotter-ai/ccxt-telegram-api/internal/exchange"
	"github.com/robotter-ai/ccxt-telegram-api/internal/users"
)

const telegramToken = "123:bot-token"

type fakeExchange struct {
	exchange.Unsupported
	err      error
	canceled []string
}

func (f *fakeExchange) ID() string { return "demo" }

func (f *fakeExchange) FetchTicker(_ context.Context, symbol string) (exchange.Object, error) {
	if f.err != nil {
		return nil, f.err
	}
	return exchange.Object{"symbol": symbol, "last": 10.5, "info": "raw"}, nil
}

func (f *fakeExchange) CancelOrder(_ context.Context, id, symbol string) (exchange.Object, error) {
	f.canceled = append(f.canceled, id+"@"+symbol)
	return exchange.Object{"id": id, "symbol": symbol, "status": "canceled"}, nil
}

type fakeUsers struct {
	user        *users.User
	lookups     int
	credentials []users.Credentials
	deleted     []string
	client      *fakeExchange
	protocols   []exchange.Protocol
	keys        []users.IdentityKey
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{client: &fakeExchange{}}
}

func (f *fakeUsers) signedIn() *fakeUsers {
	f.user = &users.User{
		ID:                  "abc",
		TelegramID:          "42",
		Tokens:              []string{"tok-1"},
		ExchangeID:          "demo",
		ExchangeEnvironment: exchange.Production,
		ExchangeProtocol:    exchange.REST,
	}
	return f
}

// GetByKey resolves tokens and Telegram ids of the signed in user only.
func (f *fakeUsers) GetByKey(_ context.Context, key users.IdentityKey) (*users.User, error) {
	f.lookups++
	f.keys = append(f.keys, key)
	if f.user == nil {
		return nil, apperror.ErrUserNotFound
	}
	switch key.Kind {
	case users.KeyToken:
		for _, token := range f.user.Tokens {
			if token == key.Value {
				return f.user, nil
			}
		}
	case users.KeyTelegramID:
		if f.user.TelegramID != "" && f.user.TelegramID == key.Value {
			return f.user, nil
		}
	}
	return nil, apperror.ErrUserNotFound
}

func (f *fakeUsers) CreateOrUpdate(_ context.Context, credentials users.Credentials) (*users.User, error) {
	f.credentials = append(f.credentials, credentials)
	if credentials.ExchangeAPIKey == "" {
		return nil, apperror.NewValidationError("exchangeApiKey", "is required")
	}
	f.signedIn()
	return f.user, nil
}

func (f *fakeUsers) IssueToken(_ context.Context, user *users.User) (string, error) {
	token := "tok-" + strconv.Itoa(len(user.Tokens)+1)
	user.Tokens = append(user.Tokens, token)
	return token, nil
}

func (f *fakeUsers) Delete(_ context.Context, probe *users.User) error {
	f.deleted = append(f.deleted, probe.ID)
	return nil
}

func (f *fakeUsers) Client(_ context.Context, user *users.User) (exchange.Client, error) {
	f.protocols = append(f.protocols, user.ExchangeProtocol)
	return f.client, nil
}

func newTestServer(registry *fakeUsers) *Server {
	return New(Options{
		Users:         registry,
		Exchanges:     func() []string { return []string{"coinbasepro"} },
		TelegramToken: telegramToken,
	})
}

func do(t *testing.T, s *Server, method, target, body string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	request := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		request.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range cookies {
		request.AddCookie(cookie)
	}
	recorder := httptest.NewRecorder()
	s.Handler().ServeHTTP(recorder, request)

	var response Response
	if recorder.Body.Len() > 0 {
		if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
			t.Fatalf("invalid JSON response %q: %v", recorder.Body.String(), err)
		}
	}
	return recorder, response
}

var tokenCookie = &http.Cookie{Name: tokenCookieName, Value: "tok-1"}

func cookieNamed(recorder *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range recorder.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestHealthAndExchanges(t *testing.T) {
	s := newTestServer(newFakeUsers())

	recorder, response := do(t, s, http.MethodGet, "/health", "")
	if recorder.Code != http.StatusOK || response.Status != "success" {
		t.Errorf("GET /health = %d %+v", recorder.Code, response)
	}

	_, response = do(t, s, http.MethodGet, "/exchanges", "")
	if list, ok := response.Result.([]interface{}); !ok || len(list) != 1 || list[0] != "coinbasepro" {
		t.Errorf("GET /exchanges result = %#v", response.Result)
	}

	recorder, response = do(t, s, http.MethodGet, "/nowhere", "")
	if recorder.Code != http.StatusNotFound || response.Status != "not_found_error" {
		t.Errorf("GET /nowhere = %d %+v", recorder.Code, response)
	}
}

func TestSignInSetsTokenCookie(t *testing.T) {
	registry := newFakeUsers()
	s := newTestServer(registry)

	body := `{"exchangeId":"demo","exchangeEnvironment":"production","exchangeApiKey":"key","exchangeApiSecret":"secret","userTelegramId":42}`
	recorder, response := do(t, s, http.MethodPost, "/auth/signIn", body)
	if recorder.Code != http.StatusOK {
		t.Fatalf("POST /auth/signIn = %d %+v", recorder.Code, response)
	}

	cookie := cookieNamed(recorder, tokenCookieName)
	if cookie == nil {
		t.Fatal("token cookie missing")
	}
	if cookie.Value != "tok-1" || !cookie.HttpOnly || !cookie.Secure || cookie.SameSite != http.SameSiteNoneMode ||
		cookie.MaxAge != 1800 || cookie.Path != "/" {
		t.Errorf("token cookie = %+v", cookie)
	}
	if result, _ := response.Result.(map[string]interface{}); result["token"] != "tok-1" {
		t.Errorf("result = %#v", response.Result)
	}
	if got := registry.credentials[0].UserTelegramID; got != "42" {
		t.Errorf("UserTelegramID = %q, want 42", got)
	}
}

func TestSignInRejectsInvalidInput(t *testing.T) {
	s := newTestServer(newFakeUsers())

	recorder, response := do(t, s, http.MethodPost, "/auth/signIn", "not json")
	if recorder.Code != http.StatusBadRequest || response.Status != "validation_error" {
		t.Errorf("POST /auth/signIn = %d %+v", recorder.Code, response)
	}

	recorder, _ = do(t, s, http.MethodPost, "/auth/signIn", `{"exchangeId":"demo"}`)
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("POST /auth/signIn without key = %d", recorder.Code)
	}
}

func TestSignOutAndRefresh(t *testing.T) {
	registry := newFakeUsers()
	s := newTestServer(registry)

	recorder, response := do(t, s, http.MethodPost, "/auth/signOut", "")
	if recorder.Code != http.StatusUnauthorized || response.Status != "unauthorized_error" {
		t.Errorf("POST /auth/signOut without user = %d %+v", recorder.Code, response)
	}

	registry.signedIn()
	recorder, _ = do(t, s, http.MethodPost, "/auth/refresh", "", tokenCookie)
	if cookie := cookieNamed(recorder, tokenCookieName); recorder.Code != http.StatusOK || cookie == nil || cookie.Value != "tok-2" {
		t.Errorf("POST /auth/refresh = %d, cookie %+v", recorder.Code, cookie)
	}

	recorder, _ = do(t, s, http.MethodPost, "/auth/signOut", "", tokenCookie)
	if recorder.Code != http.StatusOK || len(registry.deleted) != 1 || registry.deleted[0] != "abc" {
		t.Errorf("POST /auth/signOut = %d, deleted %v", recorder.Code, registry.deleted)
	}
	if cookie := cookieNamed(recorder, tokenCookieName); cookie == nil || cookie.MaxAge >= 0 {
		t.Errorf("token cookie not cleared: %+v", cookie)
	}
}

func TestRunUnknownMethodDoesNotResolveUser(t *testing.T) {
	registry := newFakeUsers().signedIn()
	s := newTestServer(registry)

	recorder, response := do(t, s, http.MethodPost, "/run/demo/production/rest/launchRocket", "")
	if recorder.Code != http.StatusNotFound || response.Status != "attribute_not_available_error" {
		t.Errorf("unknown method = %d %+v", recorder.Code, response)
	}
	if registry.lookups != 0 || len(registry.protocols) != 0 {
		t.Error("unknown method must fail before touching users or exchanges")
	}
}

func TestRunDispatchesByName(t *testing.T) {
	registry := newFakeUsers().signedIn()
	s := newTestServer(registry)

	recorder, response := do(t, s, http.MethodPost, "/run/demo/production/websocket/fetch_ticker", `{"symbol":"BTC/USD"}`, tokenCookie)
	if recorder.Code != http.StatusOK {
		t.Fatalf("run = %d %+v", recorder.Code, response)
	}
	result, _ := response.Result.(map[string]interface{})
	if result["symbol"] != "BTC/USD" || result["last"] != 10.5 {
		t.Errorf("result = %#v", response.Result)
	}
	if _, ok := result["info"]; ok {
		t.Error("result must be shaped")
	}
	if len(registry.protocols) != 1 || registry.protocols[0] != exchange.WebSocket {
		t.Errorf("protocols = %v, want the path protocol", registry.protocols)
	}

	recorder, _ = do(t, s, http.MethodGet, "/run/demo/production/rest/fetchTicker?symbol=ETH/USD&token=tok-1", "")
	if recorder.Code != http.StatusOK {
		t.Errorf("run with query = %d", recorder.Code)
	}
}

func TestRunNamedOrderID(t *testing.T) {
	registry := newFakeUsers().signedIn()
	s := newTestServer(registry)

	recorder, response := do(t, s, http.MethodPost, "/run/demo/production/rest/cancelOrder", `{"id":"order-42","symbol":"BTC/USD"}`, tokenCookie)
	if recorder.Code != http.StatusOK {
		t.Fatalf("cancelOrder = %d %+v", recorder.Code, response)
	}
	recorder, _ = do(t, s, http.MethodPost, "/run/demo/production/rest/cancelOrder?id=order-43", "", tokenCookie)
	if recorder.Code != http.StatusOK {
		t.Errorf("cancelOrder with query = %d", recorder.Code)
	}
	if got := registry.client.canceled; len(got) != 2 || got[0] != "order-42@BTC/USD" || got[1] != "order-43@" {
		t.Errorf("canceled = %v", got)
	}
}

func TestRunRequiresProofOfIdentity(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		body   string
		header string
	}{
		{"telegram id query", http.MethodPost, "/run/demo/production/rest/fetchTicker?telegramId=42", `{"symbol":"BTC/USD"}`, ""},
		{"telegram id body", http.MethodPost, "/run/demo/production/rest/fetchTicker", `{"symbol":"BTC/USD","userTelegramId":"42"}`, ""},
		{"telegram id header", http.MethodPost, "/run/demo/production/rest/fetchTicker", `{"symbol":"BTC/USD"}`, "42"},
		{"unknown token", http.MethodPost, "/run/demo/production/rest/fetchTicker?token=tok-9", `{"symbol":"BTC/USD"}`, ""},
		{"sign out", http.MethodPost, "/auth/signOut?telegramId=42", "", ""},
		{"refresh", http.MethodPost, "/auth/refresh?userTelegramId=42", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := newFakeUsers().signedIn()
			request := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			request.Header.Set("Content-Type", "application/json")
			if tt.header != "" {
				request.Header.Set("X-Telegram-Id", tt.header)
			}
			recorder := httptest.NewRecorder()
			newTestServer(registry).Handler().ServeHTTP(recorder, request)

			if recorder.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", recorder.Code, http.StatusUnauthorized)
			}
			if len(registry.protocols) != 0 || len(registry.deleted) != 0 || len(registry.user.Tokens) != 1 {
				t.Errorf("unauthenticated request acted: protocols %v, deleted %v, tokens %v", registry.protocols, registry.deleted, registry.user.Tokens)
			}
			for _, key := range registry.keys {
				if key.Kind == users.KeyTelegramID {
					t.Errorf("resolved a client supplied telegram id %q", key.Value)
				}
			}
		})
	}
}

func TestRunAcceptsBearerToken(t *testing.T) {
	registry := newFakeUsers().signedIn()
	request := httptest.NewRequest(http.MethodGet, "/run/demo/production/rest/fetchTicker?symbol=BTC/USD", nil)
	request.Header.Set("Authorization", "Bearer tok-1")
	recorder := httptest.NewRecorder()
	newTestServer(registry).Handler().ServeHTTP(recorder, request)
	if recorder.Code != http.StatusOK {
		t.Errorf("bearer = %d", recorder.Code)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		user   bool
		err    error
		code   int
		status string
	}{
		{"no user", "/run/demo/production/rest/fetchTicker", `{"symbol":"BTC/USD"}`, false, nil, http.StatusUnauthorized, "unauthorized_error"},
		{"other exchange", "/run/other/production/rest/fetchTicker", `{"symbol":"BTC/USD"}`, true, nil, http.StatusUnauthorized, "exchange_not_available_error"},
		{"bad environment", "/run/demo/moon/rest/fetchTicker", `{"symbol":"BTC/USD"}`, true, nil, http.StatusUnauthorized, "exchange_not_available_error"},
		{"missing argument", "/run/demo/production/rest/fetchTicker", "", true, nil, http.StatusBadRequest, "validation_error"},
		{"upstream", "/run/demo/production/rest/fetchTicker", `{"symbol":"BTC/USD"}`, true, errors.New("rate limited"), http.StatusBadRequest, "method_execution_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := newFakeUsers()
			if tt.user {
				registry.signedIn()
			}
			registry.client.err = tt.err
			recorder, response := do(t, newTestServer(registry), http.MethodPost, tt.path, tt.body, tokenCookie)
			if recorder.Code != tt.code || response.Status != tt.status {
				t.Errorf("got %d %q, want %d %q (%s)", recorder.Code, response.Status, tt.code, tt.status, response.Message)
			}
		})
	}
}

func loginQuery(params map[string]string, hash string) string {
	values := url.Values{}
	for key, value := range params {
		values.Set(key, value)
	}
	values.Set("hash", hash)
	return "/login?" + values.Encode()
}

func TestTelegramLogin(t *testing.T) {
	registry := newFakeUsers()
	s := newTestServer(registry)
	now := time.Unix(1700000000, 0)
	s.now = func() time.Time { return now }

	params := map[string]string{
		"id":         "42",
		"first_name": "Ada",
		"username":   "ada",
		"auth_date":  strconv.FormatInt(now.Add(-time.Minute).Unix(), 10),
	}
	hash := telegramLoginHash(telegramToken, params)

	recorder, response := do(t, s, http.MethodGet, loginQuery(params, strings.Repeat("0", len(hash))), "")
	if recorder.Code != http.StatusForbidden {
		t.Errorf("tampered login = %d %+v", recorder.Code, response)
	}

	stale := map[string]string{"id": "42", "auth_date": strconv.FormatInt(now.Add(-48*time.Hour).Unix(), 10)}
	recorder, _ = do(t, s, http.MethodGet, loginQuery(stale, telegramLoginHash(telegramToken, stale)), "")
	if recorder.Code != http.StatusForbidden {
		t.Errorf("stale login = %d", recorder.Code)
	}

	recorder, response = do(t, s, http.MethodGet, loginQuery(params, hash), "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("login = %d %+v", recorder.Code, response)
	}
	session := cookieNamed(recorder, sessionName)
	if session == nil {
		t.Fatal("session cookie missing")
	}

	// The login session supplies the Telegram id of a later sign-in.
	body := `{"exchangeId":"demo","exchangeApiKey":"key","exchangeApiSecret":"secret"}`
	recorder, _ = do(t, s, http.MethodPost, "/auth/signIn", body, session)
	if recorder.Code != http.StatusOK || registry.credentials[0].UserTelegramID != "42" {
		t.Errorf("sign-in = %d, credentials %+v", recorder.Code, registry.credentials)
	}

	// So does it for the calls of a chat without a token.
	recorder, response = do(t, s, http.MethodGet, "/run/demo/production/rest/fetchTicker?symbol=BTC/USD", "", session)
	if recorder.Code != http.StatusOK {
		t.Errorf("run with login session = %d %+v", recorder.Code, response)
	}
	if last := registry.keys[len(registry.keys)-1]; last.Kind != users.KeyTelegramID || last.Value != "42" {
		t.Errorf("resolved %+v, want the session telegram id", last)
	}

	body = `{"exchangeId":"demo","exchangeApiKey":"key","exchangeApiSecret":"secret","userTelegramId":"7"}`
	recorder, _ = do(t, s, http.MethodPost, "/auth/signIn", body, session)
	if recorder.Code != http.StatusForbidden {
		t.Errorf("sign-in for another chat = %d", recorder.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(newFakeUsers())
	request := httptest.NewRequest(http.MethodOptions, "/auth/signIn", nil)
	request.Header.Set("Origin", "https://app.example.com")
	request.Header.Set("Access-Control-Request-Method", http.MethodPost)
	recorder := httptest.NewRecorder()
	s.Handler().ServeHTTP(recorder, request)

	if recorder.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Errorf("preflight headers = %v", recorder.Header())
	}
}
