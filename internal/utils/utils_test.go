package utils

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestStringToDecimal(t *testing.T) {
	tests := map[string]string{
		"":        "0",
		"1.5":     "1.5",
		"garbage": "0",
		"0.00010": "0.0001",
	}
	for in, want := range tests {
		if got := StringToDecimal(in).String(); got != want {
			t.Errorf("StringToDecimal(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestSplitMessage(t *testing.T) {
	text := strings.Repeat("a", 10)
	parts := SplitMessage(text, 4)
	if len(parts) != 3 || parts[0] != "aaaa" || parts[2] != "aa" {
		t.Fatalf("SplitMessage() = %q", parts)
	}

	short := SplitMessage("hello", 4096)
	if len(short) != 1 || short[0] != "hello" {
		t.Fatalf("SplitMessage() = %q", short)
	}

	multi := strings.Repeat("é", 5)
	for _, part := range SplitMessage(multi, 3) {
		if !utf8.ValidString(part) {
			t.Errorf("part %q is not valid UTF-8", part)
		}
	}
	if strings.Join(SplitMessage(multi, 3), "") != multi {
		t.Error("joined parts differ from input")
	}
}

func TestCaseConversion(t *testing.T) {
	if got := CamelToSnake("fetchOpenOrders"); got != "fetch_open_orders" {
		t.Errorf("CamelToSnake() = %q", got)
	}
	if got := SnakeToCamel("fetch_open_orders"); got != "fetchOpenOrders" {
		t.Errorf("SnakeToCamel() = %q", got)
	}
	if got := CamelToSnake("balance"); got != "balance" {
		t.Errorf("CamelToSnake() = %q", got)
	}
}

func TestCheckEnvVarsPanicsOnMissing(t *testing.T) {
	t.Setenv("CCXT_PRESENT", "1")
	CheckEnvVars("CCXT_PRESENT")

	defer func() {
		if recover() == nil {
			t.Error("expected panic for missing variable")
		}
	}()
	CheckEnvVars("CCXT_SURELY_NOT_DEFINED_VARIABLE")
}
