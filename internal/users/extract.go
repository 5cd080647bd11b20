package users

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/robotter-ai/ccxt-telegram-api/internal/apperror"
	"github.com/robotter-ai/ccxt-telegram-api/internal/cypher"
	"github.com/robotter-ai/ccxt-telegram-api/internal/database"
	"github.com/robotter-ai/ccxt-telegram-api/internal/exchange"
)

const maxBodySize = 1 << 20

// IdentityHash derives the user id from the exchange account it signs in to.
func IdentityHash(exchangeID string, environment exchange.Environment, apiKey string) string {
	return cypher.GenerateHash(exchangeID + "|" + string(environment) + "|" + apiKey)
}

// Extract materializes a user from payload. Requests (*http.Request) only
// yield identity hints, credentials (Credentials or *Credentials) are
// normalized and validated, database rows (database.User,
// database.UserWithToken or pointers to them) are decrypted.
func (r *Registry) Extract(source Source, payload interface{}) (*User, error) {
	switch source {
	case SourceRequest:
		request, ok := payload.(*http.Request)
		if !ok {
			return nil, fmt.Errorf("request source expects *http.Request, got %T", payload)
		}
		return extractRequest(request)
	case SourceCredentials:
		switch credentials := payload.(type) {
		case Credentials:
			return r.extractCredentials(credentials)
		case *Credentials:
			return r.extractCredentials(*credentials)
		}
		return nil, fmt.Errorf("credentials source expects Credentials, got %T", payload)
	case SourceDatabase:
		switch row := payload.(type) {
		case database.User:
			return r.extractRow(row)
		case *database.User:
			return r.extractRow(*row)
		case database.UserWithToken:
			return r.extractRow(row.User)
		case *database.UserWithToken:
			return r.extractRow(row.User)
		}
		return nil, fmt.Errorf("database source expects database.User, got %T", payload)
	default:
		return nil, fmt.Errorf("unknown source %d", source)
	}
}

func (r *Registry) extractCredentials(credentials Credentials) (*User, error) {
	user := &User{
		ExchangeID:        strings.ToLower(strings.TrimSpace(credentials.ExchangeID)),
		TelegramID:        strings.TrimSpace(string(credentials.UserTelegramID)),
		ExchangeAPIKey:    strings.TrimSpace(credentials.ExchangeAPIKey),
		ExchangeAPISecret: strings.TrimSpace(credentials.ExchangeAPISecret),
		ExchangeOptions:   credentials.ExchangeOptions,
	}

	environment := exchange.Production
	if credentials.ExchangeEnvironment != "" {
		parsed, err := exchange.ParseEnvironment(credentials.ExchangeEnvironment)
		if err != nil {
			return nil, apperror.NewValidationError("exchangeEnvironment", err.Error())
		}
		environment = parsed
	}
	user.ExchangeEnvironment = environment

	protocol := exchange.REST
	if credentials.ExchangeProtocol != "" {
		parsed, err := exchange.ParseProtocol(credentials.ExchangeProtocol)
		if err != nil {
			return nil, apperror.NewValidationError("exchangeProtocol", err.Error())
		}
		protocol = parsed
	}
	user.ExchangeProtocol = protocol

	if err := r.validator.ValidateCredentials(user); err != nil {
		return nil, err
	}
	user.ID = IdentityHash(user.ExchangeID, user.ExchangeEnvironment, user.ExchangeAPIKey)

	return user, nil
}

func (r *Registry) extractRow(row database.User) (*User, error) {
	apiKey, err := r.cypher.Decrypt(row.ExchangeAPIKey)
	if err != nil {
		return nil, err
	}
	apiSecret, err := r.cypher.Decrypt(row.ExchangeAPISecret)
	if err != nil {
		return nil, err
	}
	telegramID, err := r.cypher.DecryptNullable(row.TelegramID)
	if err != nil {
		return nil, err
	}
	subAccountID, err := r.cypher.DecryptNullable(row.SubAccountID)
	if err != nil {
		return nil, err
	}
	rawData, err := r.cypher.DecryptNullable(row.Data)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:                  row.ID,
		ExchangeID:          row.ExchangeID,
		ExchangeEnvironment: exchange.Environment(row.ExchangeEnvironment),
		ExchangeProtocol:    exchange.REST,
		ExchangeAPIKey:      apiKey,
		ExchangeAPISecret:   apiSecret,
	}
	if telegramID != nil {
		user.TelegramID = *telegramID
	}

	if rawData != nil && *rawData != "" {
		var stored storedData
		if err = json.Unmarshal([]byte(*rawData), &stored); err != nil {
			return nil, fmt.Errorf("failed to parse data of user %s: %w", row.ID, err)
		}
		user.Data = stored.Data
		user.ExchangeOptions = stored.ExchangeOptions
		if stored.ExchangeProtocol != "" {
			user.ExchangeProtocol = stored.ExchangeProtocol
		}
	}

	if subAccountID != nil {
		id, err := strconv.ParseInt(*subAccountID, 10, 64)
		if err != nil {
			return nil, apperror.NewValidationError("exchangeOptions.subAccountId", "must be numeric")
		}
		user.ExchangeOptions.SubAccountID = &id
	}

	if err = r.validator.Validate(user); err != nil {
		return nil, err
	}
	return user, nil
}

// extractRequest merges headers, path variables, query, JSON body and
// cookies, later sources overriding earlier ones.
func extractRequest(request *http.Request) (*User, error) {
	values := map[string]string{}
	set := func(key, value string) {
		if value != "" {
			values[normalizeKey(key)] = value
		}
	}

	for name, header := range request.Header {
		if len(header) > 0 {
			set(name, header[0])
		}
	}
	for name, value := range mux.Vars(request) {
		set(name, value)
	}
	for name, query := range request.URL.Query() {
		if len(query) > 0 {
			set(name, query[0])
		}
	}
	body, err := readJSONBody(request)
	if err != nil {
		return nil, err
	}
	for name, value := range body {
		set(name, value)
	}
	for _, cookie := range request.Cookies() {
		set(cookie.Name, cookie.Value)
	}

	user := &User{
		ExchangeID: strings.ToLower(values["exchangeid"]),
		TelegramID: firstOf(values, "usertelegramid", "telegramid", "xtelegramid"),
	}
	if env, err := exchange.ParseEnvironment(values["exchangeenvironment"]); err == nil {
		user.ExchangeEnvironment = env
	}
	if protocol, err := exchange.ParseProtocol(values["exchangeprotocol"]); err == nil {
		user.ExchangeProtocol = protocol
	}
	if token := extractToken(values); token != "" {
		user.Tokens = []string{token}
	}

	return user, nil
}

func extractToken(values map[string]string) string {
	if token := values["token"]; token != "" {
		return token
	}
	if authorization := values["authorization"]; authorization != "" {
		return strings.TrimSpace(strings.TrimPrefix(authorization, "Bearer "))
	}
	if cookie := values["cookie"]; cookie != "" {
		for _, part := range strings.Split(cookie, ";") {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(part, "token=") {
				return strings.TrimPrefix(part, "token=")
			}
		}
	}
	return ""
}

// readJSONBody reads scalar members of a JSON object body and restores the
// body for later handlers.
func readJSONBody(request *http.Request) (map[string]string, error) {
	if request.Body == nil || !strings.Contains(request.Header.Get("Content-Type"), "json") {
		return nil, nil
	}
	raw, err := io.ReadAll(io.LimitReader(request.Body, maxBodySize))
	if err != nil {
		return nil, err
	}
	_ = request.Body.Close()
	request.Body = io.NopCloser(bytes.NewReader(raw))
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	var document map[string]interface{}
	if err = json.Unmarshal(raw, &document); err != nil {
		return nil, nil
	}
	result := make(map[string]string, len(document))
	for key, value := range document {
		switch v := value.(type) {
		case string:
			result[key] = v
		case float64:
			result[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			result[key] = strconv.FormatBool(v)
		}
	}
	return result, nil
}

func normalizeKey(key string) string {
	key = strings.ToLower(key)
	return strings.NewReplacer("-", "", "_", "").Replace(key)
}

func firstOf(values map[string]string, keys ...string) string {
	for _, key := range keys {
		if value := values[key]; value != "" {
			return value
		}
	}
	return ""
}
