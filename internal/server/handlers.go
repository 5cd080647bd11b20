package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/robotter-ai/ccxt-telegram-api/internal/apperror"
	"github.com/robotter-ai/ccxt-telegram-api/internal/exchange"
	"github.com/robotter-ai/ccxt-telegram-api/internal/logger"
	"github.com/robotter-ai/ccxt-telegram-api/internal/model"
	"github.com/robotter-ai/ccxt-telegram-api/internal/users"
)

const (
	maxBodySize = 1 << 20
	// loginMaxAge bounds how old a Telegram login widget payload may be.
	loginMaxAge = 24 * time.Hour
)

var loginParams = []string{"auth_date", "first_name", "last_name", "photo_url", "id", "username"}

/************/
/* Handlers */
/************/

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, "health", "OK", map[string]string{"status": "ok"})
}

func (s *Server) exchangesHandler(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, "exchanges", "Supported exchanges.", s.exchanges())
}

// loginHandler handles the login via telegram login widget
func (s *Server) loginHandler(w http.ResponseWriter, r *http.Request) {
	params := getQueryParams(r, loginParams)
	if !s.checkLogin(r.URL.Query().Get("hash"), params) {
		logger.LogInfo("Login failed!", params["id"])
		writeError(w, "login", apperror.ErrForbidden)
		return
	}

	// Login successful
	session, _ := s.sessionStore.Get(r, sessionName)
	user := getUser(session)
	isNew := !user.IsAuthenticated || user.ID != params["id"]
	user.ID = params["id"]
	user.FirstName = params["first_name"]
	user.LastName = params["last_name"]
	user.Alias = params["username"]
	user.PhotoURL = params["photo_url"]
	user.IsAuthenticated = true
	session.Values["user"] = user
	if err := session.Save(r, w); err != nil {
		writeError(w, "login", err)
		return
	}

	if isNew {
		logger.LogInfof("Telegram login of %s", user.ID)
		s.notify(fmt.Sprintf("New login via Telegram: %s (%s)", user.FirstName, user.ID))
	}
	writeSuccess(w, "login", "Successfully logged in via Telegram.", user)
}

// checkLogin verifies the widget signature: HMAC-SHA256 of the sorted
// key=value lines, keyed with SHA256 of the bot token.
func (s *Server) checkLogin(submittedHash string, params map[string]string) bool {
	if submittedHash == "" || s.telegramToken == "" {
		return false
	}
	authDate, err := strconv.ParseInt(params["auth_date"], 10, 64)
	if err != nil || s.now().Sub(time.Unix(authDate, 0)) > loginMaxAge {
		return false
	}

	expected := telegramLoginHash(s.telegramToken, params)
	logger.LogDebugf("Checksum SHA <> submitted SHA => %s <> %s", expected, submittedHash)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(submittedHash)))
}

func telegramLoginHash(token string, params map[string]string) string {
	var sortedParams []string
	for key, val := range params {
		if val != "" {
			sortedParams = append(sortedParams, key+"="+val)
		}
	}
	sort.Strings(sortedParams)
	checkString := strings.Join(sortedParams, "\n")

	secret := sha256.Sum256([]byte(token))
	h := hmac.New(sha256.New, secret[:])
	h.Write([]byte(checkString))
	return hex.EncodeToString(h.Sum(nil))
}

// logoutHandler removes the Telegram login session.
func (s *Server) logoutHandler(w http.ResponseWriter, r *http.Request) {
	session, _ := s.sessionStore.Get(r, sessionName)
	session.Options.MaxAge = -1
	_ = session.Save(r, w)
	writeSuccess(w, "logout", "Successfully logged out.", nil)
}

// signInHandler creates or updates the user of the posted credentials and
// hands out a session token.
func (s *Server) signInHandler(w http.ResponseWriter, r *http.Request) {
	const title = "auth.signIn"
	var credentials users.Credentials
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := decoder.Decode(&credentials); err != nil {
		writeError(w, title, apperror.NewValidationError("body", "must be a JSON credentials object"))
		return
	}

	// A Telegram login session links the chat to the account.
	session, _ := s.sessionStore.Get(r, sessionName)
	if telegramUser := getUser(session); telegramUser.IsAuthenticated {
		if credentials.UserTelegramID != "" && string(credentials.UserTelegramID) != telegramUser.ID {
			writeError(w, title, apperror.ErrForbidden)
			return
		}
		credentials.UserTelegramID = users.TelegramID(telegramUser.ID)
	}

	ctx, cancel := s.context(r)
	defer cancel()
	user, err := s.users.CreateOrUpdate(ctx, credentials)
	if err != nil {
		writeError(w, title, err)
		return
	}

	token := user.LatestToken()
	s.setTokenCookie(w, token)
	writeSuccess(w, title, "Successfully signed in.", map[string]string{"id": user.ID, "token": token})
}

func (s *Server) signOutHandler(w http.ResponseWriter, r *http.Request) {
	const title = "auth.signOut"
	ctx, cancel := s.context(r)
	defer cancel()

	user, err := s.authenticate(ctx, r)
	if err != nil {
		writeError(w, title, err)
		return
	}
	if err = s.users.Delete(ctx, &users.User{ID: user.ID}); err != nil {
		writeError(w, title, err)
		return
	}
	clearTokenCookie(w)
	writeSuccess(w, title, "Successfully signed out.", nil)
}

func (s *Server) refreshHandler(w http.ResponseWriter, r *http.Request) {
	const title = "auth.refresh"
	ctx, cancel := s.context(r)
	defer cancel()

	user, err := s.authenticate(ctx, r)
	if err != nil {
		writeError(w, title, err)
		return
	}
	token, err := s.users.IssueToken(ctx, user)
	if err != nil {
		writeError(w, title, err)
		return
	}
	s.setTokenCookie(w, token)
	writeSuccess(w, title, "Successfully refreshed the session.", map[string]string{"id": user.ID, "token": token})
}

// runHandler invokes an exchange method by name on the handle of the caller.
// Query parameters and the members of a JSON object body are named
// arguments, a body member "args" holds the positional ones.
func (s *Server) runHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	exchangeID := strings.ToLower(vars["exchangeId"])
	title := fmt.Sprintf("%s.%s", exchangeID, vars["method"])

	method, err := exchange.FindMethod(vars["method"])
	if err != nil {
		writeError(w, title, err)
		return
	}
	environment, envErr := exchange.ParseEnvironment(vars["exchangeEnvironment"])
	protocol, protocolErr := exchange.ParseProtocol(vars["exchangeProtocol"])
	if envErr != nil || protocolErr != nil {
		writeError(w, title, apperror.ErrExchangeNotAvailable)
		return
	}

	ctx, cancel := s.context(r)
	defer cancel()

	user, err := s.authenticate(ctx, r)
	if err != nil {
		writeError(w, title, err)
		return
	}
	if user.ExchangeID != exchangeID || user.ExchangeEnvironment != environment {
		writeError(w, title, apperror.ErrExchangeNotAvailable)
		return
	}
	target := *user
	target.ExchangeProtocol = protocol
	client, err := s.users.Client(ctx, &target)
	if err != nil {
		writeError(w, title, fmt.Errorf("%w: %v", apperror.ErrExchangeNotAvailable, err))
		return
	}

	args, err := readArgs(r)
	if err != nil {
		writeError(w, title, err)
		return
	}
	result, err := model.Dispatch(ctx, client, string(method), args)
	if err != nil {
		writeError(w, title, err)
		return
	}
	writeSuccess(w, fmt.Sprintf("%s.%s", exchangeID, method), fmt.Sprintf("Successfully executed %q.", title), result)
}

// authenticate resolves the caller from a session token, or else from the
// Telegram login session. Client supplied Telegram ids are never trusted.
func (s *Server) authenticate(ctx context.Context, r *http.Request) (*users.User, error) {
	var key users.IdentityKey
	if token := requestToken(r); token != "" {
		key = users.ByToken(token)
	} else {
		session, _ := s.sessionStore.Get(r, sessionName)
		telegramUser := getUser(session)
		if !telegramUser.IsAuthenticated || telegramUser.ID == "" {
			return nil, apperror.ErrUnauthorized
		}
		key = users.ByTelegramID(telegramUser.ID)
	}

	user, err := s.users.GetByKey(ctx, key)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.ErrUnauthorized
	}
	return user, err
}

// requestToken reads the session token from the cookie, a bearer
// Authorization header or the token query parameter, in that order.
func requestToken(r *http.Request) string {
	if cookie, err := r.Cookie(tokenCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if authorization := r.Header.Get("Authorization"); strings.HasPrefix(authorization, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authorization, "Bearer "))
	}
	return r.URL.Query().Get(tokenCookieName)
}

func readArgs(r *http.Request) (model.Args, error) {
	named := map[string]interface{}{}
	for key, values := range r.URL.Query() {
		if len(values) > 0 && key != tokenCookieName {
			named[key] = values[0]
		}
	}

	var positional []interface{}
	if r.Body != nil {
		raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
		if err != nil {
			return model.Args{}, err
		}
		if len(bytes.TrimSpace(raw)) > 0 {
			var body map[string]interface{}
			if err = json.Unmarshal(raw, &body); err != nil {
				return model.Args{}, apperror.NewValidationError("body", "must be a JSON object")
			}
			for key, value := range body {
				if key == "args" {
					if list, ok := value.([]interface{}); ok {
						positional = list
						continue
					}
				}
				named[key] = value
			}
		}
	}
	for _, ignored := range []string{"token", "userTelegramId", "exchangeId", "exchangeEnvironment", "exchangeProtocol"} {
		delete(named, ignored)
	}
	return model.NewArgs(positional, named), nil
}

// getQueryParams retrieves the given parameter list from the query
func getQueryParams(r *http.Request, keys []string) map[string]string {
	var params = make(map[string]string)
	for _, key := range keys {
		params[key] = r.URL.Query().Get(key)
	}

	return params
}
