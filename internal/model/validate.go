// Package model validates and sanitizes command arguments, runs them against a
// user's exchange client and reduces the vendor responses to small, stable
// documents.
package model

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/robotter-ai/ccxt-telegram-api/internal/apperror"
	"github.com/robotter-ai/ccxt-telegram-api/internal/exchange"
)

var (
	exchangeIDPattern   = regexp.MustCompile(`^[a-zA-Z]+$`)
	subAccountIDPattern = regexp.MustCompile(`^[0-9]+$`)
	tokenIDPattern      = regexp.MustCompile(`(?i)^[A-Z]{2,5}$`)
	marketIDPattern     = regexp.MustCompile(`(?i)^([A-Z]{2,5})([/-])?([A-Z]{2,5})$`)
	quantityPattern     = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

/**************
 * validators *
 **************/

func ValidateTokenID(tokenID string) error {
	if !tokenIDPattern.MatchString(tokenID) {
		return apperror.NewValidationError("token", "must have 2 to 5 letters, like BTC")
	}
	return nil
}

func ValidateMarketID(marketID string) error {
	if !marketIDPattern.MatchString(marketID) {
		return apperror.NewValidationError("market", "must look like BTC/USDT")
	}
	return nil
}

func ValidateOrderType(orderType string) error {
	switch exchange.OrderType(strings.ToLower(orderType)) {
	case exchange.Limit, exchange.Market:
		return nil
	}
	return apperror.NewValidationError("type", "must be limit or market")
}

func ValidateOrderSide(side string) error {
	switch exchange.OrderSide(strings.ToLower(side)) {
	case exchange.Buy, exchange.Sell:
		return nil
	}
	return apperror.NewValidationError("side", "must be buy or sell")
}

// ValidateOrderAmount accepts positive decimal strings and positive numbers.
func ValidateOrderAmount(amount interface{}) error {
	if !isPositiveQuantity(amount) {
		return apperror.NewValidationError("amount", "must be a positive number")
	}
	return nil
}

func ValidateOrderPrice(price interface{}) error {
	if !isPositiveQuantity(price) {
		return apperror.NewValidationError("price", "must be a positive number")
	}
	return nil
}

func ValidateExchangeID(exchangeID string) error {
	if !exchangeIDPattern.MatchString(exchangeID) {
		return apperror.NewValidationError("exchangeId", "must contain letters only")
	}
	return nil
}

func ValidateSubAccountID(subAccountID interface{}) error {
	if subAccountID == nil || !subAccountIDPattern.MatchString(fmt.Sprint(subAccountID)) {
		return apperror.NewValidationError("subAccountId", "must be a non negative integer")
	}
	return nil
}

func ValidateGetBalance(tokenID string) error {
	return ValidateTokenID(tokenID)
}

func ValidateGetOpenOrders(marketID string) error {
	return ValidateMarketID(marketID)
}

func ValidateMarketOrder(marketID string, amount interface{}) error {
	if err := ValidateMarketID(marketID); err != nil {
		return err
	}
	return ValidateOrderAmount(amount)
}

func ValidateLimitOrder(marketID string, amount, price interface{}) error {
	if err := ValidateMarketOrder(marketID, amount); err != nil {
		return err
	}
	return ValidateOrderPrice(price)
}

// ValidatePlaceOrder requires a price for limit orders only.
func ValidatePlaceOrder(marketID, orderType, side string, amount, price interface{}) error {
	if err := ValidateMarketID(marketID); err != nil {
		return err
	}
	if err := ValidateOrderType(orderType); err != nil {
		return err
	}
	if err := ValidateOrderSide(side); err != nil {
		return err
	}
	if err := ValidateOrderAmount(amount); err != nil {
		return err
	}
	if exchange.OrderType(strings.ToLower(orderType)) == exchange.Limit {
		return ValidateOrderPrice(price)
	}
	return nil
}

func isPositiveQuantity(value interface{}) bool {
	switch v := value.(type) {
	case string:
		if !quantityPattern.MatchString(v) {
			return false
		}
		d, err := decimal.NewFromString(v)
		return err == nil && d.IsPositive()
	case decimal.Decimal:
		return v.IsPositive()
	case float64:
		return isFiniteQuantity(v)
	case float32:
		return isFiniteQuantity(float64(v))
	case int:
		return v > 0
	case int64:
		return v > 0
	default:
		return false
	}
}

// isFiniteQuantity rejects the infinities and NaN that overflowing chat
// arguments like "1e999" parse to.
func isFiniteQuantity(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

/**************
 * sanitizers *
 **************/

// Sanitizers assume the matching validator passed.

func SanitizeTokenID(tokenID string) string {
	return strings.ToUpper(strings.TrimSpace(tokenID))
}

func SanitizeMarketID(marketID string) string {
	return strings.ToUpper(strings.TrimSpace(marketID))
}

func SanitizeOrderType(orderType string) exchange.OrderType {
	return exchange.OrderType(strings.ToLower(strings.TrimSpace(orderType)))
}

func SanitizeOrderSide(side string) exchange.OrderSide {
	return exchange.OrderSide(strings.ToLower(strings.TrimSpace(side)))
}

func SanitizeOrderAmount(amount interface{}) decimal.Decimal {
	return toDecimal(amount)
}

func SanitizeOrderPrice(price interface{}) decimal.Decimal {
	return toDecimal(price)
}

func SanitizeExchangeID(exchangeID string) string {
	return strings.ToLower(strings.TrimSpace(exchangeID))
}

func SanitizeSubAccountID(subAccountID interface{}) int64 {
	id, _ := strconv.ParseInt(fmt.Sprint(subAccountID), 10, 64)
	return id
}

func toDecimal(value interface{}) decimal.Decimal {
	switch v := value.(type) {
	case string:
		d, _ := decimal.NewFromString(v)
		return d
	case decimal.Decimal:
		return v
	case float64:
		return decimal.NewFromFloat(v)
	case float32:
		return decimal.NewFromFloat(float64(v))
	case int:
		return decimal.New(int64(v), 0)
	case int64:
		return decimal.New(v, 0)
	default:
		return decimal.Zero
	}
}
