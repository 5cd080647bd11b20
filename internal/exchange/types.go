package exchange

import (
	"fmt"
	"strings"
)

// Object is a unified, vendor independent response document.
type Object = map[string]interface{}

type Environment string

const (
	Production  Environment = "production"
	Staging     Environment = "staging"
	Development Environment = "development"
)

// ParseEnvironment matches case-insensitively.
func ParseEnvironment(value string) (Environment, error) {
	switch env := Environment(strings.ToLower(strings.TrimSpace(value))); env {
	case Production, Staging, Development:
		return env, nil
	default:
		return "", fmt.Errorf("unknown environment %q", value)
	}
}

type Protocol string

const (
	REST      Protocol = "rest"
	WebSocket Protocol = "websocket"
	FIX       Protocol = "fix"
)

// ParseProtocol matches case-insensitively.
func ParseProtocol(value string) (Protocol, error) {
	switch protocol := Protocol(strings.ToLower(strings.TrimSpace(value))); protocol {
	case REST, WebSocket, FIX:
		return protocol, nil
	default:
		return "", fmt.Errorf("unknown protocol %q", value)
	}
}

type OrderType string

const (
	Limit  OrderType = "limit"
	Market OrderType = "market"
)

type OrderSide string

const (
	Buy  OrderSide = "buy"
	Sell OrderSide = "sell"
)

// Order statuses of the unified order document.
const (
	StatusOpen     = "open"
	StatusClosed   = "closed"
	StatusCanceled = "canceled"
	StatusRejected = "rejected"
)
