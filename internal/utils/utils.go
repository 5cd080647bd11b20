package utils

import (
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/robotter-ai/ccxt-telegram-api/internal/logger"
	"github.com/shopspring/decimal"
)

// HasError returns true if an error exists
func HasError(err error) bool {
	return err != nil
}

// PanicOnError panics if an error exists and does nothing otherwise
func PanicOnError(err error) {
	if HasError(err) {
		panic(err)
	}
}

// StringToDecimal converts a string into a Decimal value or 0 in case of an error
func StringToDecimal(number string) decimal.Decimal {
	if number == "" {
		return decimal.Zero
	}
	result, err := decimal.NewFromString(number)
	if err != nil {
		logger.LogError(err)
		return decimal.Zero
	}

	return result
}

// CheckEnvVars loads environment variables from a .env file if one exists and
// panics when one of the required variables is missing.
func CheckEnvVars(envVars ...string) {
	if err := godotenv.Load(); err == nil {
		logger.LogInfo(".env file found => using values from .env file in addition to OS env vars")
	}

	for _, ev := range envVars {
		if _, ok := os.LookupEnv(ev); !ok {
			panic(fmt.Sprintf("Required env var %s is missing", ev))
		}
	}
}

// SplitMessage cuts text into chunks of at most limit bytes without breaking
// a UTF-8 sequence.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 || len(text) <= limit {
		return []string{text}
	}
	var parts []string
	for len(text) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			cut = limit
		}
		parts = append(parts, text[:cut])
		text = text[cut:]
	}
	if text != "" {
		parts = append(parts, text)
	}

	return parts
}

// CamelToSnake converts fetchOpenOrders into fetch_open_orders.
func CamelToSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

// SnakeToCamel converts fetch_open_orders into fetchOpenOrders.
func SnakeToCamel(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] == "" {
			continue
		}
		parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
	}

	return strings.Join(parts, "")
}
