package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/robotter-ai/ccxt-telegram-api/internal/apperror"
	"github.com/robotter-ai/ccxt-telegram-api/internal/cypher"
	"github.com/robotter-ai/ccxt-telegram-api/internal/database"
	"github.com/robotter-ai/ccxt-telegram-api/internal/exchange"
	"github.com/robotter-ai/ccxt-telegram-api/internal/lock"
	"github.com/robotter-ai/ccxt-telegram-api/internal/logger"
	"github.com/robotter-ai/ccxt-telegram-api/internal/properties"
	"github.com/robotter-ai/ccxt-telegram-api/internal/tokens"
)

const (
	insertUser = `INSERT INTO user (id, exchange_id, exchange_environment, telegram_id, exchange_api_key, exchange_api_secret, sub_account_id, data)
		VALUES (@id, @exchange_id, @exchange_environment, @telegram_id, @exchange_api_key, @exchange_api_secret, @sub_account_id, @data)
		ON CONFLICT(id) DO NOTHING`
	updateUser = `UPDATE user SET telegram_id = @telegram_id, exchange_api_key = @exchange_api_key, exchange_api_secret = @exchange_api_secret,
		sub_account_id = @sub_account_id, data = @data WHERE id = @id`
	updateUserData  = `UPDATE user SET data = @data WHERE id = @id`
	deleteUser      = `DELETE FROM user WHERE id = @id`
	insertUserToken = `INSERT INTO user_token (token, user_id) VALUES (@token, @user_id)`
	deleteToken     = `DELETE FROM user_token WHERE token = @token`
	deleteTokens    = `DELETE FROM user_token WHERE user_id = @id`

	selectTokenDigests = `SELECT token FROM user_token`

	selectUserByID    = `SELECT * FROM user WHERE id = @id`
	selectUserByToken = `SELECT user.* FROM user LEFT JOIN user_token ON user.id = user_token.user_id WHERE user_token.token = @token LIMIT 1`
	selectTelegramIDs = `SELECT * FROM user WHERE telegram_id IS NOT NULL LIMIT @limit`
	countUsers        = `SELECT COUNT(*) FROM user`
	countUsersByID    = `SELECT COUNT(*) FROM user WHERE id = @id`
)

// Options wires the registry to its collaborators.
type Options struct {
	Database  *database.Database
	Cypher    *cypher.Cypher
	Tokens    *tokens.Service
	Factory   *exchange.Factory
	State     *properties.State
	Locker    lock.Locker
	Validator *Validator
	// MaxUsers refuses sign-ins of new users once reached. Zero means no limit.
	MaxUsers int
	// Notify delivers messages of exchange handles, like order updates, to the
	// chat of their user.
	Notify func(chatID int64, text string)
}

type tokenEntry struct {
	userID    string
	expiresAt time.Time
}

// Registry is the single source of truth connecting an identity to a user
// and the user to its exchange client.
type Registry struct {
	db        *database.Database
	cypher    *cypher.Cypher
	tokens    *tokens.Service
	factory   *exchange.Factory
	state     *properties.State
	locker    lock.Locker
	validator *Validator
	maxUsers  int
	notify    func(chatID int64, text string)
	now       func() time.Time

	mu           sync.RWMutex
	byID         map[string]*User
	byTelegramID map[string]string
	byToken      map[string]tokenEntry

	// inherited holds the token digests stored before this registry started.
	// They are all expired once inheritedExpiry has passed.
	inherited       []string
	inheritedExpiry time.Time
}

func NewRegistry(options Options) (*Registry, error) {
	if options.Database == nil || options.Cypher == nil || options.Tokens == nil || options.Factory == nil {
		return nil, errors.New("users registry needs a database, a cypher, a token service and an exchange factory")
	}
	if options.State == nil {
		options.State = properties.NewState()
	}
	if options.Locker == nil {
		options.Locker = lock.NewKeyedMutex()
	}
	if options.Validator == nil {
		validator, err := NewValidator("", "")
		if err != nil {
			return nil, err
		}
		options.Validator = validator
	}

	r := &Registry{
		db:           options.Database,
		cypher:       options.Cypher,
		tokens:       options.Tokens,
		factory:      options.Factory,
		state:        options.State,
		locker:       options.Locker,
		validator:    options.Validator,
		maxUsers:     options.MaxUsers,
		notify:       options.Notify,
		now:          time.Now,
		byID:         map[string]*User{},
		byTelegramID: map[string]string{},
		byToken:      map[string]tokenEntry{},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.db.Select(ctx, &r.inherited, selectTokenDigests); err != nil {
		return nil, fmt.Errorf("failed to read stored session tokens: %w", err)
	}
	r.inheritedExpiry = r.now().Add(r.tokens.Expiration())
	return r, nil
}

/**********
 * lookup *
 **********/

// Get resolves probe by id, telegram id and token, trying the caches for
// every key before the database.
func (r *Registry) Get(ctx context.Context, probe *User) (*User, error) {
	var (
		keys       []IdentityKey
		invalidErr error
	)
	if probe.ID != "" {
		keys = append(keys, ByID(probe.ID))
	}
	if probe.TelegramID != "" {
		keys = append(keys, ByTelegramID(probe.TelegramID))
	}
	if token := probe.LatestToken(); token != "" {
		if _, err := r.tokens.Verify(token); err != nil {
			invalidErr = fmt.Errorf("%w: %v", apperror.ErrUnauthorized, err)
			r.forgetToken(cypher.GenerateHash(token))
		} else {
			keys = append(keys, ByToken(token))
		}
	}

	for _, key := range keys {
		if user, ok := r.cached(key); ok && matches(probe, user) {
			return r.checked(user)
		}
	}
	for _, key := range keys {
		user, err := r.load(ctx, key)
		if errors.Is(err, apperror.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if matches(probe, user) {
			return r.checked(user)
		}
	}

	if invalidErr != nil {
		return nil, invalidErr
	}
	return nil, apperror.ErrUserNotFound
}

// GetByKey resolves a single identity key, cache first.
func (r *Registry) GetByKey(ctx context.Context, key IdentityKey) (*User, error) {
	if key.Value == "" {
		return nil, apperror.ErrUserNotFound
	}
	probe := &User{}
	switch key.Kind {
	case KeyID:
		probe.ID = key.Value
	case KeyTelegramID:
		probe.TelegramID = key.Value
	case KeyToken:
		probe.Tokens = []string{key.Value}
	}
	return r.Get(ctx, probe)
}

// GetByRequest resolves the session token of an HTTP request. Telegram ids
// and other hints the request carries are not proof of identity and are
// ignored.
func (r *Registry) GetByRequest(ctx context.Context, request *http.Request) (*User, error) {
	probe, err := r.Extract(SourceRequest, request)
	if err != nil {
		return nil, err
	}
	return r.GetByKey(ctx, ByToken(probe.LatestToken()))
}

// GetByCredentials resolves the user the credentials sign in as.
func (r *Registry) GetByCredentials(ctx context.Context, credentials Credentials) (*User, error) {
	probe, err := r.Extract(SourceCredentials, credentials)
	if err != nil {
		return nil, err
	}
	return r.GetByKey(ctx, ByID(probe.ID))
}

// matches rejects candidates of another exchange account than the probe names.
func matches(probe, user *User) bool {
	if probe.ExchangeID != "" && probe.ExchangeID != user.ExchangeID {
		return false
	}
	if probe.ExchangeEnvironment != "" && probe.ExchangeEnvironment != user.ExchangeEnvironment {
		return false
	}
	return true
}

func (r *Registry) checked(user *User) (*User, error) {
	if err := r.validator.Validate(user); err != nil {
		logger.LogWarnf("User %s failed validation: %v", user.ID, err)
		return nil, err
	}
	return user, nil
}

func (r *Registry) cached(key IdentityKey) (*User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id := key.Value
	switch key.Kind {
	case KeyTelegramID:
		id = r.byTelegramID[key.Value]
	case KeyToken:
		entry, ok := r.byToken[cypher.GenerateHash(key.Value)]
		if !ok {
			return nil, false
		}
		id = entry.userID
	}
	user, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	result := user.clone()
	if key.Kind == KeyToken && !result.HasToken(key.Value) {
		result.Tokens = append(result.Tokens, key.Value)
	}
	return result, true
}

func (r *Registry) load(ctx context.Context, key IdentityKey) (*User, error) {
	var row database.User
	switch key.Kind {
	case KeyID:
		if err := r.db.SelectSingle(ctx, &row, selectUserByID, database.Params{"id": key.Value}); err != nil {
			return nil, err
		}
	case KeyToken:
		if err := r.db.SelectSingle(ctx, &row, selectUserByToken, database.Params{"token": cypher.GenerateHash(key.Value)}); err != nil {
			return nil, err
		}
	case KeyTelegramID:
		found, err := r.scanTelegramID(ctx, key.Value)
		if err != nil {
			return nil, err
		}
		row = *found
	}

	user, err := r.Extract(SourceDatabase, row)
	if err != nil {
		logger.LogErrorf("Failed to load user %s by %s: %v", row.ID, key.Kind, err)
		return nil, err
	}

	if key.Kind == KeyToken {
		claims, err := r.tokens.Verify(key.Value)
		if err != nil || claims.Subject != user.ID {
			return nil, apperror.ErrNotFound
		}
		user.Tokens = append(user.Tokens, key.Value)
		r.rememberToken(user.ID, key.Value, claims.ExpiresAt.Time)
	}
	r.remember(user)
	return r.withCachedTokens(user), nil
}

// scanTelegramID decrypts candidate rows. Telegram ids are stored with
// randomized encryption and cannot be matched in SQL.
func (r *Registry) scanTelegramID(ctx context.Context, telegramID string) (*database.User, error) {
	limit := r.maxUsers
	if limit <= 0 {
		limit = -1
	}
	var rows []database.User
	if err := r.db.Select(ctx, &rows, selectTelegramIDs, database.Params{"limit": limit}); err != nil {
		return nil, err
	}
	for i := range rows {
		plain, err := r.cypher.DecryptNullable(rows[i].TelegramID)
		if err != nil {
			logger.LogErrorf("Failed to decrypt telegram id of user %s: %v", rows[i].ID, err)
			return nil, err
		}
		if plain != nil && *plain == telegramID {
			return &rows[i], nil
		}
	}
	return nil, apperror.ErrNotFound
}

/*************
 * lifecycle *
 *************/

// GetOrCreate returns the user the credentials sign in as, creating it on
// first use.
func (r *Registry) GetOrCreate(ctx context.Context, credentials Credentials) (*User, error) {
	user, err := r.GetByCredentials(ctx, credentials)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrUserNotFound) {
		return nil, err
	}
	user, err = r.Create(ctx, credentials)
	if errors.Is(err, apperror.ErrUserAlreadyExists) {
		return r.GetByCredentials(ctx, credentials)
	}
	return user, err
}

// Create inserts the user and its first session token in one transaction.
// A second create for the same account fails with ErrUserAlreadyExists.
func (r *Registry) Create(ctx context.Context, credentials Credentials) (*User, error) {
	user, err := r.Extract(SourceCredentials, credentials)
	if err != nil {
		return nil, err
	}

	unlock, err := r.locker.Lock(ctx, lockKey(user.ID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	params, err := r.encrypt(user)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := r.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}

	err = r.db.Transaction(ctx, func(tx *database.Tx) error {
		var existing int64
		if err := tx.Select(&existing, countUsersByID, database.Params{"id": user.ID}); err != nil {
			return err
		}
		if existing > 0 {
			return apperror.ErrUserAlreadyExists
		}
		if r.maxUsers > 0 {
			var count int64
			if err := tx.Select(&count, countUsers); err != nil {
				return err
			}
			if count >= int64(r.maxUsers) {
				return apperror.ErrMaxUsersReached
			}
		}

		affected, err := tx.Insert(insertUser, params)
		if err != nil {
			return err
		}
		if affected == 0 {
			return apperror.ErrUserAlreadyExists
		}
		_, err = tx.Insert(insertUserToken, database.Params{"token": cypher.GenerateHash(token), "user_id": user.ID})
		return err
	})
	if err != nil {
		return nil, err
	}

	user.Tokens = []string{token}
	r.remember(user)
	r.rememberToken(user.ID, token, expiresAt)
	logger.LogInfof("Created user %s for %s/%s", user.ID, user.ExchangeID, user.ExchangeEnvironment)

	return user.clone(), nil
}

// Update overwrites the mutable fields of an existing user. No token is issued.
func (r *Registry) Update(ctx context.Context, credentials Credentials) (*User, error) {
	incoming, err := r.Extract(SourceCredentials, credentials)
	if err != nil {
		return nil, err
	}

	unlock, err := r.locker.Lock(ctx, lockKey(incoming.ID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	existing, err := r.GetByKey(ctx, ByID(incoming.ID))
	if err != nil {
		return nil, err
	}

	updated := existing.clone()
	updated.ExchangeProtocol = incoming.ExchangeProtocol
	updated.ExchangeAPISecret = incoming.ExchangeAPISecret
	updated.ExchangeOptions = incoming.ExchangeOptions
	if incoming.TelegramID != "" {
		updated.TelegramID = incoming.TelegramID
	}
	if err = r.validator.Validate(updated); err != nil {
		return nil, err
	}

	params, err := r.encrypt(updated)
	if err != nil {
		return nil, err
	}
	affected, err := r.db.Update(ctx, updateUser, params)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, apperror.ErrUserNotFound
	}

	r.closeHandles(updated.ID)
	r.mu.Lock()
	if existing.TelegramID != updated.TelegramID {
		delete(r.byTelegramID, existing.TelegramID)
	}
	r.mu.Unlock()
	r.remember(updated)

	return r.withCachedTokens(updated), nil
}

// CreateOrUpdate signs in: an existing user gets its credentials updated and
// a new session token, a new user is created.
func (r *Registry) CreateOrUpdate(ctx context.Context, credentials Credentials) (*User, error) {
	_, err := r.GetByCredentials(ctx, credentials)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrUserNotFound):
		user, err := r.Create(ctx, credentials)
		if !errors.Is(err, apperror.ErrUserAlreadyExists) {
			return user, err
		}
	default:
		return nil, err
	}

	user, err := r.Update(ctx, credentials)
	if err != nil {
		return nil, err
	}
	if _, err = r.IssueToken(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// IssueToken stores a new session token for user and appends it to
// user.Tokens.
func (r *Registry) IssueToken(ctx context.Context, user *User) (string, error) {
	token, expiresAt, err := r.tokens.Issue(user.ID)
	if err != nil {
		return "", err
	}
	if _, err = r.db.Insert(ctx, insertUserToken, database.Params{"token": cypher.GenerateHash(token), "user_id": user.ID}); err != nil {
		return "", err
	}
	user.Tokens = append(user.Tokens, token)
	r.rememberToken(user.ID, token, expiresAt)
	return token, nil
}

// Delete removes the user matching probe with all of its tokens, cache
// entries and exchange handles.
func (r *Registry) Delete(ctx context.Context, probe *User) error {
	user, err := r.Get(ctx, probe)
	if err != nil {
		return err
	}

	unlock, err := r.locker.Lock(ctx, lockKey(user.ID))
	if err != nil {
		return err
	}
	defer unlock()

	err = r.db.Transaction(ctx, func(tx *database.Tx) error {
		if _, err := tx.Delete(deleteTokens, database.Params{"id": user.ID}); err != nil {
			return err
		}
		affected, err := tx.Delete(deleteUser, database.Params{"id": user.ID})
		if err != nil {
			return err
		}
		if affected == 0 {
			return apperror.ErrUserNotFound
		}
		return nil
	})

	r.forget(user.ID)
	r.closeHandles(user.ID)
	if err != nil {
		return err
	}
	logger.LogInfof("Deleted user %s", user.ID)
	return nil
}

// DeleteByKey resolves key and deletes the user.
func (r *Registry) DeleteByKey(ctx context.Context, key IdentityKey) error {
	user, err := r.GetByKey(ctx, key)
	if err != nil {
		return err
	}
	return r.Delete(ctx, &User{ID: user.ID})
}

// SaveData persists the preferences of user.
func (r *Registry) SaveData(ctx context.Context, user *User) error {
	if err := r.validator.Validate(user); err != nil {
		return err
	}
	unlock, err := r.locker.Lock(ctx, lockKey(user.ID))
	if err != nil {
		return err
	}
	defer unlock()

	data, err := r.encryptData(user)
	if err != nil {
		return err
	}
	affected, err := r.db.Update(ctx, updateUserData, database.Params{"id": user.ID, "data": data})
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperror.ErrUserNotFound
	}

	r.mu.Lock()
	if cached, ok := r.byID[user.ID]; ok {
		cached.Data = user.clone().Data
	}
	r.mu.Unlock()
	return nil
}

// PruneExpiredTokens drops expired session tokens from the caches and the
// database and returns how many were removed. Stored rows carry digests
// only, so rows issued before this registry started are dropped together
// once a full token lifetime has passed since.
func (r *Registry) PruneExpiredTokens(ctx context.Context) (int, error) {
	now := r.now()

	r.mu.Lock()
	var expired []database.Params
	pruned := map[string]bool{}
	for digest, entry := range r.byToken {
		if entry.expiresAt.IsZero() || entry.expiresAt.After(now) {
			continue
		}
		delete(r.byToken, digest)
		pruned[digest] = true
		expired = append(expired, database.Params{"token": digest})
		if user, ok := r.byID[entry.userID]; ok {
			kept := user.Tokens[:0]
			for _, token := range user.Tokens {
				if cypher.GenerateHash(token) != digest {
					kept = append(kept, token)
				}
			}
			user.Tokens = kept
		}
	}
	if len(r.inherited) > 0 && !now.Before(r.inheritedExpiry) {
		for _, digest := range r.inherited {
			if _, cached := r.byToken[digest]; cached || pruned[digest] {
				continue
			}
			pruned[digest] = true
			expired = append(expired, database.Params{"token": digest})
		}
		r.inherited = nil
	}
	r.mu.Unlock()

	if len(expired) == 0 {
		return 0, nil
	}
	if _, err := r.db.Delete(ctx, deleteToken, expired...); err != nil {
		return 0, err
	}
	logger.LogInfof("Pruned %d expired session tokens", len(expired))
	return len(expired), nil
}

func (r *Registry) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.SelectSingleValue(ctx, &count, countUsers)
	return count, err
}

/********************
 * exchange handles *
 ********************/

// Client returns the live exchange client of user, building it on first use.
func (r *Registry) Client(ctx context.Context, user *User) (exchange.Client, error) {
	path := user.HandlePath()
	if value, ok := r.state.Get(path); ok {
		if client, ok := value.(exchange.Client); ok {
			return client, nil
		}
	}

	options := exchange.Options{
		ExchangeID:   user.ExchangeID,
		APIKey:       user.ExchangeAPIKey,
		APISecret:    user.ExchangeAPISecret,
		Passphrase:   user.ExchangeOptions.Passphrase,
		Environment:  user.ExchangeEnvironment,
		Protocol:     user.ExchangeProtocol,
		SubAccountID: user.ExchangeOptions.SubAccountID,
		Params:       user.ExchangeOptions.Params,
	}
	if chatID := user.TelegramChatID(); chatID != 0 && r.notify != nil {
		options.Notify = func(text string) {
			r.notify(chatID, text)
		}
	}

	client, err := r.factory.New(ctx, options)
	if err != nil {
		return nil, err
	}
	stored, created := r.state.SetIfAbsent(path, client)
	if !created {
		closeHandle(client)
	}
	return stored.(exchange.Client), nil
}

func (r *Registry) closeHandles(userID string) {
	removed, ok := r.state.Delete("users." + userID)
	if !ok {
		return
	}
	for _, leaf := range properties.Leaves(removed) {
		closeHandle(leaf)
	}
}

// Close closes every live exchange client.
func (r *Registry) Close() {
	removed, ok := r.state.Delete("users")
	if !ok {
		return
	}
	for _, leaf := range properties.Leaves(removed) {
		closeHandle(leaf)
	}
}

func closeHandle(handle interface{}) {
	if closer, ok := handle.(io.Closer); ok {
		logger.LogErrorIfExists(closer.Close())
	}
}

/*********
 * cache *
 *********/

func (r *Registry) remember(user *User) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cached := user.clone()
	if previous, ok := r.byID[user.ID]; ok {
		for _, token := range previous.Tokens {
			if !cached.HasToken(token) {
				cached.Tokens = append(cached.Tokens, token)
			}
		}
	}
	r.byID[user.ID] = cached
	if user.TelegramID != "" {
		r.byTelegramID[user.TelegramID] = user.ID
	}
}

func (r *Registry) rememberToken(userID, token string, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byToken[cypher.GenerateHash(token)] = tokenEntry{userID: userID, expiresAt: expiresAt}
	if user, ok := r.byID[userID]; ok && !user.HasToken(token) {
		user.Tokens = append(user.Tokens, token)
	}
}

func (r *Registry) withCachedTokens(user *User) *User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cached, ok := r.byID[user.ID]; ok {
		result := user.clone()
		for _, token := range cached.Tokens {
			if !result.HasToken(token) {
				result.Tokens = append(result.Tokens, token)
			}
		}
		return result
	}
	return user
}

func (r *Registry) forget(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.byID[userID]; ok && user.TelegramID != "" {
		delete(r.byTelegramID, user.TelegramID)
	}
	delete(r.byID, userID)
	for telegramID, id := range r.byTelegramID {
		if id == userID {
			delete(r.byTelegramID, telegramID)
		}
	}
	for digest, entry := range r.byToken {
		if entry.userID == userID {
			delete(r.byToken, digest)
		}
	}
}

func (r *Registry) forgetToken(digest string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byToken, digest)
}

/***********
 * storage *
 ***********/

func (r *Registry) encrypt(user *User) (database.Params, error) {
	apiKey, err := r.cypher.Encrypt(user.ExchangeAPIKey)
	if err != nil {
		return nil, err
	}
	apiSecret, err := r.cypher.Encrypt(user.ExchangeAPISecret)
	if err != nil {
		return nil, err
	}

	var telegramID, subAccountID interface{}
	if user.TelegramID != "" {
		if telegramID, err = r.cypher.Encrypt(user.TelegramID); err != nil {
			return nil, err
		}
	}
	if user.ExchangeOptions.SubAccountID != nil {
		if subAccountID, err = r.cypher.Encrypt(strconv.FormatInt(*user.ExchangeOptions.SubAccountID, 10)); err != nil {
			return nil, err
		}
	}
	data, err := r.encryptData(user)
	if err != nil {
		return nil, err
	}

	return database.Params{
		"id":                   user.ID,
		"exchange_id":          user.ExchangeID,
		"exchange_environment": string(user.ExchangeEnvironment),
		"telegram_id":          telegramID,
		"exchange_api_key":     apiKey,
		"exchange_api_secret":  apiSecret,
		"sub_account_id":       subAccountID,
		"data":                 data,
	}, nil
}

// encryptData serializes preferences, protocol and exchange options. The sub
// account id has its own column.
func (r *Registry) encryptData(user *User) (string, error) {
	options := user.ExchangeOptions
	options.SubAccountID = nil
	raw, err := json.Marshal(storedData{
		Data:             user.Data,
		ExchangeProtocol: user.ExchangeProtocol,
		ExchangeOptions:  options,
	})
	if err != nil {
		return "", err
	}
	return r.cypher.Encrypt(string(raw))
}

func lockKey(userID string) string {
	return "users:" + userID
}
