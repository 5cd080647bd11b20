// Package server is the HTTP façade: sign-in and sign-out, the Telegram login
// widget and the invocation of exchange methods by name.
package server

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"github.com/robotter-ai/ccxt-telegram-api/internal/apperror"
	"github.com/robotter-ai/ccxt-telegram-api/internal/exchange"
	"github.com/robotter-ai/ccxt-telegram-api/internal/logger"
	"github.com/robotter-ai/ccxt-telegram-api/internal/users"
)

const (
	sessionName     = "ccxt-telegram-api"
	tokenCookieName = "token"
)

// Users is what the façade needs from the user registry.
type Users interface {
	GetByKey(ctx context.Context, key users.IdentityKey) (*users.User, error)
	CreateOrUpdate(ctx context.Context, credentials users.Credentials) (*users.User, error)
	IssueToken(ctx context.Context, user *users.User) (string, error)
	Delete(ctx context.Context, probe *users.User) error
	Client(ctx context.Context, user *users.User) (exchange.Client, error)
}

type Options struct {
	Users Users
	// Exchanges lists the supported exchange ids.
	Exchanges     func() []string
	TelegramToken string
	// SessionAuthKey and SessionEncryptionKey protect the login session
	// cookie. Random keys are generated when empty.
	SessionAuthKey       []byte
	SessionEncryptionKey []byte
	AllowedOrigins       []string
	TokenMaxAge          time.Duration
	Timeout              time.Duration
	// Notify receives admin notices like new Telegram logins.
	Notify func(text string)
}

type Server struct {
	users         Users
	exchanges     func() []string
	telegramToken string
	tokenMaxAge   time.Duration
	timeout       time.Duration
	notify        func(text string)
	sessionStore  *sessions.CookieStore
	handler       http.Handler
	now           func() time.Time
}

// TelegramUser is the identity confirmed by the Telegram login widget.
type TelegramUser struct {
	ID              string `json:"id"`
	Alias           string `json:"username"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	PhotoURL        string `json:"photoUrl"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// Response is the body of every reply.
type Response struct {
	Title   string      `json:"title"`
	Message string      `json:"message"`
	Status  string      `json:"status"`
	Result  interface{} `json:"result"`
}

func New(options Options) *Server {
	if options.SessionAuthKey == nil {
		options.SessionAuthKey = securecookie.GenerateRandomKey(64)
	}
	if options.SessionEncryptionKey == nil {
		options.SessionEncryptionKey = securecookie.GenerateRandomKey(32)
	}
	if options.TokenMaxAge <= 0 {
		options.TokenMaxAge = 30 * time.Minute
	}
	if options.Timeout <= 0 {
		options.Timeout = 30 * time.Second
	}
	if options.Exchanges == nil {
		options.Exchanges = func() []string { return nil }
	}
	if options.Notify == nil {
		options.Notify = func(string) {}
	}

	sessionStore := sessions.NewCookieStore(options.SessionAuthKey, options.SessionEncryptionKey)
	sessionStore.Options = &sessions.Options{
		MaxAge:   3600,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
	}
	// Register User for session storage
	gob.Register(TelegramUser{})

	s := &Server{
		users:         options.Users,
		exchanges:     options.Exchanges,
		telegramToken: options.TelegramToken,
		tokenMaxAge:   options.TokenMaxAge,
		timeout:       options.Timeout,
		notify:        options.Notify,
		sessionStore:  sessionStore,
		now:           time.Now,
	}

	origins := options.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.handler = cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	})(s.createRouter())
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

// createRouter creates the router with the necessary routes.
func (s *Server) createRouter() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	router.HandleFunc("/exchanges", s.exchangesHandler).Methods(http.MethodGet)
	router.HandleFunc("/login", s.loginHandler).Methods(http.MethodGet)
	router.HandleFunc("/logout", s.logoutHandler)
	router.HandleFunc("/auth/signIn", s.signInHandler).Methods(http.MethodPost)
	router.HandleFunc("/auth/signOut", s.signOutHandler).Methods(http.MethodPost)
	router.HandleFunc("/auth/refresh", s.refreshHandler).Methods(http.MethodPost)
	router.HandleFunc("/run/{exchangeId}/{exchangeEnvironment}/{exchangeProtocol}/{method}", s.runHandler).
		Methods(http.MethodGet, http.MethodPost)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "not found", apperror.ErrNotFound)
	})

	return router
}

func (s *Server) context(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.timeout)
}

func (s *Server) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.tokenMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

func clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}

// getUser returns the user of session s. On error returns an empty user.
func getUser(s *sessions.Session) TelegramUser {
	user, ok := s.Values["user"].(TelegramUser)
	if !ok {
		return TelegramUser{IsAuthenticated: false}
	}
	return user
}

/*************
 * responses *
 *************/

func writeJSON(w http.ResponseWriter, code int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	logger.LogErrorIfExists(json.NewEncoder(w).Encode(response))
}

func writeSuccess(w http.ResponseWriter, title, message string, result interface{}) {
	writeJSON(w, http.StatusOK, Response{Title: title, Message: message, Status: "success", Result: result})
}

func writeError(w http.ResponseWriter, title string, err error) {
	code := apperror.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		logger.LogError(err, title)
	}
	writeJSON(w, code, Response{
		Title:   title,
		Message: apperror.UserMessage(err),
		Status:  statusOf(err),
		Result:  nil,
	})
}

// statusOf names the error kind in the status field.
func statusOf(err error) string {
	var (
		validationErr   *apperror.ValidationError
		unrecognizedErr *apperror.UnrecognizedCommandError
		upstreamErr     *apperror.UpstreamExchangeError
	)
	switch {
	case errors.As(err, &validationErr):
		return "validation_error"
	case errors.As(err, &unrecognizedErr):
		return "attribute_not_available_error"
	case errors.As(err, &upstreamErr):
		return "method_execution_error"
	case errors.Is(err, apperror.ErrExchangeNotAvailable):
		return "exchange_not_available_error"
	case errors.Is(err, apperror.ErrUnauthorized), errors.Is(err, apperror.ErrForbidden):
		return "unauthorized_error"
	case errors.Is(err, apperror.ErrNotFound):
		return "not_found_error"
	case errors.Is(err, apperror.ErrUserAlreadyExists):
		return "conflict_error"
	case errors.Is(err, apperror.ErrMaxUsersReached):
		return "capacity_error"
	default:
		return "unknown_error"
	}
}
