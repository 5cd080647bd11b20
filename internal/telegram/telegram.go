// Package telegram sends chat messages and runs the command bot.
package telegram

import (
	"fmt"
	"runtime/debug"

	"github.com/NicoNex/echotron/v3"

	"github.com/robotter-ai/ccxt-telegram-api/internal/logger"
	"github.com/robotter-ai/ccxt-telegram-api/internal/utils"
)

// MaxMessageLength is the Telegram limit for one message.
const MaxMessageLength = 4096

type sendFunc func(text string, chatID int64, opts *echotron.MessageOptions) error

type deleteFunc func(chatID int64, messageID int) error

// Sender delivers messages through the Bot API, splitting long texts.
type Sender struct {
	send        sendFunc
	delete      deleteFunc
	adminChatID int64
	maxLength   int
}

func NewSender(token string, adminChatID int64, maxLength int) *Sender {
	api := echotron.NewAPI(token)
	return newSender(
		func(text string, chatID int64, opts *echotron.MessageOptions) error {
			_, err := api.SendMessage(text, chatID, opts)
			return err
		},
		func(chatID int64, messageID int) error {
			_, err := api.DeleteMessage(chatID, messageID)
			return err
		},
		adminChatID,
		maxLength,
	)
}

func newSender(send sendFunc, del deleteFunc, adminChatID int64, maxLength int) *Sender {
	if maxLength <= 0 || maxLength > MaxMessageLength {
		maxLength = MaxMessageLength
	}
	return &Sender{send: send, delete: del, adminChatID: adminChatID, maxLength: maxLength}
}

// Send sends text to chatID. Empty texts are dropped.
func (s *Sender) Send(chatID int64, text string) error {
	return s.SendWithOptions(chatID, text, nil)
}

// SendWithOptions attaches opts, like a keyboard, to the last chunk of text.
func (s *Sender) SendWithOptions(chatID int64, text string, opts *echotron.MessageOptions) error {
	if text == "" {
		return nil
	}
	chunks := utils.SplitMessage(text, s.maxLength)
	for i, chunk := range chunks {
		var chunkOpts *echotron.MessageOptions
		if i == len(chunks)-1 {
			chunkOpts = opts
		}
		if err := s.send(chunk, chatID, chunkOpts); err != nil {
			return fmt.Errorf("failed to send message to chat %d: %w", chatID, err)
		}
	}
	return nil
}

func (s *Sender) Delete(chatID int64, messageID int) error {
	return s.delete(chatID, messageID)
}

// Notify sends text and only logs failures.
func (s *Sender) Notify(chatID int64, text string) {
	logger.LogErrorIfExists(s.Send(chatID, text), chatID)
}

// SendAdmin sends a message to the admin chat, if one is configured.
func (s *Sender) SendAdmin(text string) {
	if s.adminChatID == 0 {
		logger.LogWarn("Missing telegram.admin.chat_id -> Cannot send admin message")
		return
	}
	logger.LogErrorIfExists(s.Send(s.adminChatID, text), s.adminChatID)
}

// RecoverAndNotify reports a panic to the admin chat. Use it deferred.
func (s *Sender) RecoverAndNotify() {
	if err := recover(); err != nil {
		logger.LogWarnf("App panicked!\n%s", err)
		logger.LogWarn("Stack Trace:")
		debug.PrintStack()
		s.SendAdmin(fmt.Sprintf("App panicked!\n%s", err))
	}
}
