package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/NicoNex/echotron/v3"

	"github.com/robotter-ai/ccxt-telegram-api/internal/apperror"
	"github.com/robotter-ai/ccxt-telegram-api/internal/exchange"
	"github.com/robotter-ai/ccxt-telegram-api/internal/logger"
	"github.com/robotter-ai/ccxt-telegram-api/internal/model"
	"github.com/robotter-ai/ccxt-telegram-api/internal/users"
)

const (
	cmdStart          = "start"
	cmdHelp           = "help"
	cmdVersion        = "version"
	cmdSignIn         = "sign_in"
	cmdSignOut        = "sign_out"
	cmdBalance        = "balance"
	cmdBalances       = "balances"
	cmdOpenOrders     = "open_orders"
	cmdMarketBuy      = "place_market_buy_order"
	cmdMarketSell     = "place_market_sell_order"
	cmdLimitBuy       = "place_limit_buy_order"
	cmdLimitSell      = "place_limit_sell_order"
	cmdPlaceOrder     = "place_order"
	cmdFavorites      = "favorites"
	cmdFavoriteAdd    = "favorite_add"
	cmdFavoriteRemove = "favorite_remove"
	cmdUsers          = "users"
	cmdDeleteUser     = "delete_user"

	answerConfirm = "confirm"
	answerCancel  = "cancel"
)

const helpText = `Available commands:

/balance <token> - Show the balance of one token
/balances - Show all balances
/open_orders <market> - Show the open orders of a market
/place_market_buy_order <market> <amount> - Place a market buy order
/place_market_sell_order <market> <amount> - Place a market sell order
/place_limit_buy_order <market> <amount> <price> - Place a limit buy order
/place_limit_sell_order <market> <amount> <price> - Place a limit sell order
/place_order <type> <side> <market> <amount> [price] - Place any order
/favorites - Show your favorite markets
/favorite_add <market> - Add a favorite market
/favorite_remove <market> - Remove a favorite market
/sign_in - Connect your exchange account
/sign_out - Disconnect your exchange account
/version - Show the version

Any exchange method can be called by name as well, like:
/fetchTicker BTC/USD
/fetchOHLCV BTC/USD timeframe=1h limit=10`

// Users is what the bot needs from the user registry.
type Users interface {
	GetByKey(ctx context.Context, key users.IdentityKey) (*users.User, error)
	CreateOrUpdate(ctx context.Context, credentials users.Credentials) (*users.User, error)
	DeleteByKey(ctx context.Context, key users.IdentityKey) error
	SaveData(ctx context.Context, user *users.User) error
	Count(ctx context.Context) (int64, error)
	Client(ctx context.Context, user *users.User) (exchange.Client, error)
}

// Messenger delivers the replies of the bot.
type Messenger interface {
	Send(chatID int64, text string) error
	SendWithOptions(chatID int64, text string, opts *echotron.MessageOptions) error
	Delete(chatID int64, messageID int) error
	SendAdmin(text string)
}

type Config struct {
	ExchangeID          string
	ExchangeEnvironment exchange.Environment
	ExchangeProtocol    exchange.Protocol
	AdminChatID         int64
	// AdminUsernames may run the admin commands, next to AdminChatID.
	AdminUsernames []string
	// AllowedUsernames restricts the bot to these users when not empty.
	AllowedUsernames []string
	// LoginURL adds a web sign-in button to the start menu when set.
	LoginURL string
	Timeout  time.Duration
	Version  string
}

// Handler holds what all chats share and creates one bot per chat.
type Handler struct {
	users     Users
	messenger Messenger
	config    Config
	flowSet   map[string]flow
}

func NewHandler(registry Users, messenger Messenger, config Config) *Handler {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	h := &Handler{users: registry, messenger: messenger, config: config}
	h.flowSet = h.flows()
	return h
}

// NewBot is the echotron.NewBotFn of the dispatcher.
func (h *Handler) NewBot(chatID int64) echotron.Bot {
	return h.newBot(chatID)
}

func (h *Handler) newBot(chatID int64) *bot {
	return &bot{Handler: h, chatID: chatID}
}

// Poll receives updates until the Bot API connection fails.
func (h *Handler) Poll(token string) error {
	dispatcher := echotron.NewDispatcher(token, h.NewBot)
	logger.LogInfo("Telegram bot started polling")
	return dispatcher.Poll()
}

type bot struct {
	*Handler
	chatID int64

	mu          sync.Mutex
	lastCommand string
	values      map[string]string
	stepIndex   int
	confirming  bool
}

func (b *bot) Update(update *echotron.Update) {
	if recoverer, ok := b.messenger.(interface{ RecoverAndNotify() }); ok {
		defer recoverer.RecoverAndNotify()
	}
	if update.Message != nil {
		msg := update.Message
		logger.LogDebugf("[%s:%d] Message received", msg.Chat.FirstName, msg.Chat.ID)
		b.handleText(msg.Text, msg.ID, msg.Chat.Username)
	}
	if update.CallbackQuery != nil && update.CallbackQuery.Message != nil {
		msg := update.CallbackQuery.Message
		logger.LogDebugf("[%s:%d] Callback message received! Data: %s", msg.Chat.FirstName, msg.Chat.ID, update.CallbackQuery.Data)
		b.handleText("/"+update.CallbackQuery.Data, 0, msg.Chat.Username)
	}
}

// handleText runs a command or feeds a running flow. messageID is 0 for
// button presses.
func (b *bot) handleText(text string, messageID int, username string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.isAllowed(username) {
		logger.LogWarnf("[%d:%s] Unauthorized user", b.chatID, username)
		b.reply(apperror.UserMessage(apperror.ErrForbidden))
		return
	}

	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "/") {
		b.reset()
		b.handleCommand(ParseCommand(text), messageID, username)
		return
	}
	if b.lastCommand != "" {
		b.continueFlow(text, messageID)
		return
	}
	b.reply("Please use /start for the menu.")
}

func (b *bot) handleCommand(command Command, messageID int, username string) {
	logger.LogInfof("[%d] New Command: %s", b.chatID, command.Name)
	ctx, cancel := b.context()
	defer cancel()

	switch command.Name {
	case cmdStart:
		b.sendMenu()
	case cmdHelp:
		b.reply(helpText)
	case cmdVersion:
		b.reply(b.config.Version)
	case cmdBalances:
		b.respond(b.balances(ctx))
	case cmdFavorites:
		b.respond(b.favorites(ctx))
	case cmdUsers:
		if !b.isAdmin(username) {
			b.rejectAdminCommand(command.Name, username)
			return
		}
		count, err := b.users.Count(ctx)
		b.respond(fmt.Sprintf("Registered users: %d", count), err)
	case cmdDeleteUser:
		if !b.isAdmin(username) {
			b.rejectAdminCommand(command.Name, username)
			return
		}
		if len(command.Raw) != 1 {
			b.reply("Usage: /delete_user <telegramId>")
			return
		}
		err := b.users.DeleteByKey(ctx, users.ByTelegramID(command.Raw[0]))
		b.respond(fmt.Sprintf("User %s deleted.", command.Raw[0]), err)
	default:
		if f, ok := b.flowSet[command.Name]; ok {
			b.startFlow(command, f, messageID)
			return
		}
		b.respond(b.dispatch(ctx, command))
	}
}

func (b *bot) dispatch(ctx context.Context, command Command) (string, error) {
	method, err := exchange.FindMethod(command.Name)
	if err != nil {
		return "", err
	}
	client, err := b.client(ctx)
	if err != nil {
		return "", err
	}
	result, err := model.Dispatch(ctx, client, string(method), command.Args)
	if err != nil {
		return "", err
	}
	if method == exchange.SetSandboxMode {
		return "Sandbox mode updated.", nil
	}
	return Beautify(result), nil
}

func (b *bot) startFlow(command Command, f flow, messageID int) {
	b.lastCommand = command.Name
	b.values = map[string]string{}
	b.stepIndex = 0

	// Arguments given with the command fill the first steps.
	deleteMessage := false
	for _, arg := range command.Raw {
		b.skipSteps(f)
		if b.stepIndex >= len(f.steps) {
			break
		}
		s := f.steps[b.stepIndex]
		deleteMessage = deleteMessage || s.secret
		if err := s.check(arg); err != nil {
			b.reply(apperror.UserMessage(err))
			b.reset()
			return
		}
		b.values[s.field] = arg
		b.stepIndex++
	}
	if deleteMessage {
		b.deleteMessage(messageID)
	}

	// Fully given commands run without confirmation.
	if len(command.Raw) > 0 {
		b.skipSteps(f)
		if b.stepIndex >= len(f.steps) {
			b.finish(f)
			return
		}
	}
	b.advance(f)
}

func (b *bot) continueFlow(text string, messageID int) {
	f := b.flowSet[b.lastCommand]

	if b.confirming {
		switch strings.ToLower(text) {
		case answerConfirm:
			b.finish(f)
		case answerCancel:
			b.reset()
			b.reply(f.cancelled)
		default:
			b.reply(fmt.Sprintf("Please type %q or %q.", answerConfirm, answerCancel))
		}
		return
	}

	s := f.steps[b.stepIndex]
	if s.secret {
		b.deleteMessage(messageID)
	}
	if err := s.check(text); err != nil {
		b.reply(fmt.Sprintf("%s\n\n%s", apperror.UserMessage(err), s.prompt))
		return
	}
	b.values[s.field] = text
	b.stepIndex++
	b.advance(f)
}

// advance prompts for the next step, the confirmation, or runs the flow.
func (b *bot) advance(f flow) {
	b.skipSteps(f)
	if b.stepIndex < len(f.steps) {
		b.reply(f.steps[b.stepIndex].prompt)
		return
	}
	if f.confirm {
		b.confirming = true
		b.reply(b.confirmation(f))
		return
	}
	b.finish(f)
}

func (b *bot) skipSteps(f flow) {
	for b.stepIndex < len(f.steps) && f.steps[b.stepIndex].skip != nil && f.steps[b.stepIndex].skip(b.values) {
		b.stepIndex++
	}
}

func (b *bot) confirmation(f flow) string {
	review := map[string]string{}
	for _, s := range f.steps {
		if value, ok := b.values[s.field]; ok {
			if s.secret {
				value = "****"
			}
			review[s.field] = value
		}
	}
	prompt := fmt.Sprintf("Please type %q to proceed or %q to abort.", answerConfirm, answerCancel)
	if len(review) == 0 {
		return prompt
	}
	return Beautify(review) + "\n" + prompt
}

func (b *bot) finish(f flow) {
	values := b.values
	b.reset()
	ctx, cancel := b.context()
	defer cancel()
	b.respond(f.run(ctx, b, values))
}

func (b *bot) reset() {
	b.lastCommand = ""
	b.values = nil
	b.stepIndex = 0
	b.confirming = false
}

func (b *bot) balances(ctx context.Context) (string, error) {
	client, err := b.client(ctx)
	if err != nil {
		return "", err
	}
	balances, err := model.GetBalances(ctx, client)
	if err != nil {
		return "", err
	}
	return Beautify(balances), nil
}

func (b *bot) favorites(ctx context.Context) (string, error) {
	user, err := b.user(ctx)
	if err != nil {
		return "", err
	}
	markets := user.FavoriteMarkets()
	if len(markets) == 0 {
		return "You have no favorite markets yet. Use /favorite_add <market>.", nil
	}
	return Beautify(markets), nil
}

func (b *bot) updateFavorites(ctx context.Context, market string, add bool) (string, error) {
	user, err := b.user(ctx)
	if err != nil {
		return "", err
	}
	market = model.SanitizeMarketID(market)
	var changed bool
	if add {
		changed = user.AddFavoriteMarket(market)
	} else {
		changed = user.RemoveFavoriteMarket(market)
	}
	if !changed {
		if add {
			return fmt.Sprintf("%s already is a favorite.", market), nil
		}
		return fmt.Sprintf("%s is not a favorite.", market), nil
	}
	if err = b.users.SaveData(ctx, user); err != nil {
		return "", err
	}
	if add {
		return fmt.Sprintf("%s added to your favorites.", market), nil
	}
	return fmt.Sprintf("%s removed from your favorites.", market), nil
}

func (b *bot) user(ctx context.Context) (*users.User, error) {
	user, err := b.users.GetByKey(ctx, users.ByTelegramID(b.telegramID()))
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.ErrUnauthorized
	}
	return user, err
}

func (b *bot) client(ctx context.Context) (exchange.Client, error) {
	user, err := b.user(ctx)
	if err != nil {
		return nil, err
	}
	return b.users.Client(ctx, user)
}

func (b *bot) telegramID() string {
	return strconv.FormatInt(b.chatID, 10)
}

func (b *bot) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), b.config.Timeout)
}

func (b *bot) isAllowed(username string) bool {
	if len(b.config.AllowedUsernames) == 0 || b.isAdmin(username) {
		return true
	}
	return contains(b.config.AllowedUsernames, username)
}

func (b *bot) isAdmin(username string) bool {
	if b.config.AdminChatID != 0 && b.chatID == b.config.AdminChatID {
		return true
	}
	return username != "" && contains(b.config.AdminUsernames, username)
}

func (b *bot) rejectAdminCommand(command, username string) {
	logger.LogWarnf("[%s:%d] Non admin user tries to run command: %s", username, b.chatID, command)
	b.messenger.SendAdmin(fmt.Sprintf("[%s:%d] Non admin user tries to run command: %s", username, b.chatID, command))
	b.reply(apperror.UserMessage(apperror.ErrForbidden))
}

func contains(list []string, value string) bool {
	value = strings.TrimPrefix(value, "@")
	for _, item := range list {
		if strings.EqualFold(strings.TrimPrefix(item, "@"), value) {
			return true
		}
	}
	return false
}

// respond replies with text or with the user facing message of err.
func (b *bot) respond(text string, err error) {
	if err != nil {
		if apperror.HTTPStatus(err) >= 500 {
			logger.LogError(err, b.chatID)
		}
		b.reply(apperror.UserMessage(err))
		return
	}
	b.reply(text)
}

func (b *bot) reply(text string) {
	logger.LogErrorIfExists(b.messenger.Send(b.chatID, text), b.chatID)
}

func (b *bot) deleteMessage(messageID int) {
	if messageID == 0 {
		return
	}
	logger.LogErrorIfExists(b.messenger.Delete(b.chatID, messageID), b.chatID)
}

func (b *bot) sendMenu() {
	rows := [][]echotron.InlineKeyboardButton{
		{button("Balances", cmdBalances), button("Balance", cmdBalance)},
		{button("Open orders", cmdOpenOrders), button("Place order", cmdPlaceOrder)},
		{button("Market buy", cmdMarketBuy), button("Market sell", cmdMarketSell)},
		{button("Limit buy", cmdLimitBuy), button("Limit sell", cmdLimitSell)},
		{button("Favorites", cmdFavorites), button("Help", cmdHelp)},
		{button("Sign in", cmdSignIn), button("Sign out", cmdSignOut)},
	}
	if b.config.LoginURL != "" {
		rows = append(rows, []echotron.InlineKeyboardButton{{
			Text:     "Open web page",
			LoginURL: &echotron.LoginURL{URL: b.config.LoginURL},
		}})
	}
	err := b.messenger.SendWithOptions(b.chatID, "Welcome! Please choose an option:", &echotron.MessageOptions{
		ReplyMarkup: echotron.InlineKeyboardMarkup{InlineKeyboard: rows},
	})
	logger.LogErrorIfExists(err, b.chatID)
}

func button(text, command string) echotron.InlineKeyboardButton {
	return echotron.InlineKeyboardButton{Text: text, CallbackData: command}
}
