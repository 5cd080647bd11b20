package coinbasepro

import (
	"fmt"
	"time"

	"github.com/preichenberger/go-coinbasepro/v2"
)

const (
	// Coinbase Pro channel types
	ChannelTypeUser = "user"

	// Coinbase Pro message types
	MessageTypeActivate      = "activate"
	MessageTypeChange        = "change"
	MessageTypeDone          = "done"
	MessageTypeError         = "error"
	MessageTypeMatch         = "match"
	MessageTypeOpen          = "open"
	MessageTypeReceived      = "received"
	MessageTypeStatus        = "status"
	MessageTypeSubscriptions = "subscriptions"
	MessageTypeSubscribe     = "subscribe"

	// Coinbase Pro order reasons
	OrderReasonFilled   = "filled"
	OrderReasonCanceled = "canceled"

	authenticationFailed = "Authentication Failed"
)

// OrderMessage is the part of a user channel message shown in the chat.
type OrderMessage struct {
	Type          string
	Time          time.Time
	ProductID     string
	OrderID       string
	Side          string
	OrderType     string
	Price         string
	RemainingSize string
	Reason        string
}

func newOrderMessage(message coinbasepro.Message) OrderMessage {
	return OrderMessage{
		Type:          message.Type,
		Time:          message.Time.Time(),
		ProductID:     message.ProductID,
		OrderID:       message.OrderID,
		Side:          message.Side,
		OrderType:     message.OrderType,
		Price:         message.Price,
		RemainingSize: message.RemainingSize,
		Reason:        message.Reason,
	}
}

// String renders the chat notification. Messages nobody needs to see, like
// received or match, render empty.
func (om OrderMessage) String() string {
	at := om.Time.Format(time.RFC822)
	symbol := toSymbol(om.ProductID)

	switch om.Type {
	case MessageTypeOpen:
		return fmt.Sprintf("Order was successfully placed!\nTime: %s\nSide: %s\nOrderID: %s\nOrderType: %s\nMarket: %s\nSize: %s\nPrice: %s", at, om.Side, om.OrderID, om.OrderType, symbol, om.RemainingSize, om.Price)
	case MessageTypeDone:
		switch om.Reason {
		case OrderReasonFilled:
			if om.RemainingSize == "" || om.RemainingSize == "0" || om.RemainingSize == "0.00000000" {
				return fmt.Sprintf("Order was filled!\nTime: %s\nSide: %s\nOrderID: %s\nOrderType: %s\nMarket: %s\nPrice: %s", at, om.Side, om.OrderID, om.OrderType, symbol, om.Price)
			}
			return fmt.Sprintf("Order was partially filled!\nTime: %s\nSide: %s\nOrderID: %s\nOrderType: %s\nMarket: %s\nRemaining Size: %s\nPrice: %s", at, om.Side, om.OrderID, om.OrderType, symbol, om.RemainingSize, om.Price)
		case OrderReasonCanceled:
			return fmt.Sprintf("Order was canceled!\nTime: %s\nSide: %s\nOrderID: %s\nMarket: %s\nSize: %s\nPrice: %s", at, om.Side, om.OrderID, symbol, om.RemainingSize, om.Price)
		}
	}
	return ""
}
