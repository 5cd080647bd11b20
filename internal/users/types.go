// Package users resolves, creates, updates and deletes users, and connects a
// request identity to the live exchange client of that user.
package users

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/robotter-ai/ccxt-telegram-api/internal/exchange"
)

// Source tells Extract what kind of payload it receives.
type Source int

const (
	SourceRequest Source = iota
	SourceCredentials
	SourceDatabase
)

type KeyKind int

const (
	KeyID KeyKind = iota
	KeyTelegramID
	KeyToken
)

func (k KeyKind) String() string {
	switch k {
	case KeyID:
		return "id"
	case KeyTelegramID:
		return "telegramId"
	case KeyToken:
		return "token"
	default:
		return "unknown"
	}
}

// IdentityKey is one of the three ways a user can be looked up.
type IdentityKey struct {
	Kind  KeyKind
	Value string
}

func ByID(id string) IdentityKey {
	return IdentityKey{Kind: KeyID, Value: id}
}

func ByTelegramID(telegramID string) IdentityKey {
	return IdentityKey{Kind: KeyTelegramID, Value: telegramID}
}

func ByToken(token string) IdentityKey {
	return IdentityKey{Kind: KeyToken, Value: token}
}

// TelegramID accepts both JSON numbers and strings.
type TelegramID string

func (t *TelegramID) UnmarshalJSON(data []byte) error {
	var number json.Number
	if err := json.Unmarshal(data, &number); err == nil {
		*t = TelegramID(number.String())
		return nil
	}
	var text *string
	if err := json.Unmarshal(data, &text); err != nil {
		return fmt.Errorf("telegram id must be a number or a string: %w", err)
	}
	if text != nil {
		*t = TelegramID(*text)
	}
	return nil
}

// ExchangeOptions are vendor specific settings stored with the credentials.
type ExchangeOptions struct {
	SubAccountID *int64                 `json:"subAccountId,omitempty"`
	Passphrase   string                 `json:"passphrase,omitempty"`
	Params       map[string]interface{} `json:"params,omitempty"`
}

// Credentials is the sign-in payload.
type Credentials struct {
	ExchangeID          string          `json:"exchangeId"`
	ExchangeEnvironment string          `json:"exchangeEnvironment"`
	ExchangeProtocol    string          `json:"exchangeProtocol"`
	ExchangeAPIKey      string          `json:"exchangeApiKey"`
	ExchangeAPISecret   string          `json:"exchangeApiSecret"`
	ExchangeOptions     ExchangeOptions `json:"exchangeOptions"`
	UserTelegramID      TelegramID      `json:"userTelegramId"`
}

type Favorites struct {
	Markets []string `json:"markets,omitempty" validate:"dive,required"`
	Tokens  []string `json:"tokens,omitempty" validate:"dive,required"`
}

// Data holds user preferences.
type Data struct {
	Favorites Favorites `json:"favorites"`
}

// User is the in-memory view of a user row. Tokens lists the session tokens
// this process has seen for the user, newest last.
type User struct {
	ID                  string               `json:"id" validate:"omitempty,hexadecimal"`
	TelegramID          string               `json:"telegramId" validate:"omitempty,numeric"`
	Tokens              []string             `json:"jwtTokens" validate:"dive,required"`
	ExchangeID          string               `json:"exchangeId"`
	ExchangeEnvironment exchange.Environment `json:"exchangeEnvironment" validate:"omitempty,oneof=production staging development"`
	ExchangeProtocol    exchange.Protocol    `json:"exchangeProtocol" validate:"omitempty,oneof=rest websocket fix"`
	ExchangeAPIKey      string               `json:"exchangeApiKey" validate:"omitempty,exchange_api_key"`
	ExchangeAPISecret   string               `json:"exchangeApiSecret" validate:"omitempty,exchange_api_secret"`
	ExchangeOptions     ExchangeOptions      `json:"exchangeOptions"`
	Data                Data                 `json:"data"`
}

// LatestToken returns the newest session token or an empty string.
func (u *User) LatestToken() string {
	if len(u.Tokens) == 0 {
		return ""
	}
	return u.Tokens[len(u.Tokens)-1]
}

func (u *User) HasToken(token string) bool {
	for _, t := range u.Tokens {
		if t == token {
			return true
		}
	}
	return false
}

// TelegramChatID parses the telegram id, 0 when absent.
func (u *User) TelegramChatID() int64 {
	id, _ := strconv.ParseInt(u.TelegramID, 10, 64)
	return id
}

func (u *User) FavoriteMarkets() []string {
	return append([]string(nil), u.Data.Favorites.Markets...)
}

// AddFavoriteMarket returns false if market already was a favorite.
func (u *User) AddFavoriteMarket(market string) bool {
	market = strings.ToUpper(strings.TrimSpace(market))
	for _, m := range u.Data.Favorites.Markets {
		if m == market {
			return false
		}
	}
	u.Data.Favorites.Markets = append(u.Data.Favorites.Markets, market)
	return true
}

// RemoveFavoriteMarket returns false if market was not a favorite.
func (u *User) RemoveFavoriteMarket(market string) bool {
	market = strings.ToUpper(strings.TrimSpace(market))
	for i, m := range u.Data.Favorites.Markets {
		if m == market {
			u.Data.Favorites.Markets = append(u.Data.Favorites.Markets[:i], u.Data.Favorites.Markets[i+1:]...)
			return true
		}
	}
	return false
}

// HandlePath is where the live exchange client of the user is kept in the
// runtime state.
func (u *User) HandlePath() string {
	return fmt.Sprintf("users.%s.exchange.%s.%s.%s", u.ID, u.ExchangeID, u.ExchangeEnvironment, u.ExchangeProtocol)
}

func (u *User) clone() *User {
	c := *u
	c.Tokens = append([]string(nil), u.Tokens...)
	c.Data.Favorites.Markets = append([]string(nil), u.Data.Favorites.Markets...)
	c.Data.Favorites.Tokens = append([]string(nil), u.Data.Favorites.Tokens...)
	if u.ExchangeOptions.SubAccountID != nil {
		id := *u.ExchangeOptions.SubAccountID
		c.ExchangeOptions.SubAccountID = &id
	}
	if u.ExchangeOptions.Params != nil {
		c.ExchangeOptions.Params = make(map[string]interface{}, len(u.ExchangeOptions.Params))
		for k, v := range u.ExchangeOptions.Params {
			c.ExchangeOptions.Params[k] = v
		}
	}
	return &c
}

// storedData is the JSON document kept encrypted in the data column.
type storedData struct {
	Data
	ExchangeProtocol exchange.Protocol `json:"exchangeProtocol,omitempty"`
	ExchangeOptions  ExchangeOptions   `json:"exchangeOptions"`
}
