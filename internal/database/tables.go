package database

// Schema of the two tables. It is applied verbatim so the file can be shared
// with other tools reading the same store.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS user (id TEXT PRIMARY KEY, exchange_id TEXT, exchange_environment TEXT, telegram_id INTEGER, exchange_api_key TEXT, exchange_api_secret TEXT, sub_account_id INTEGER, data TEXT)`,
	`CREATE TABLE IF NOT EXISTS user_token (token TEXT PRIMARY KEY, user_id TEXT)`,
}

// User is a row of the user table. Every column except id and the exchange
// identifiers holds ciphertext.
type User struct {
	ID                  string  `gorm:"column:id;primaryKey"`
	ExchangeID          string  `gorm:"column:exchange_id"`
	ExchangeEnvironment string  `gorm:"column:exchange_environment"`
	TelegramID          *string `gorm:"column:telegram_id"`
	ExchangeAPIKey      string  `gorm:"column:exchange_api_key"`
	ExchangeAPISecret   string  `gorm:"column:exchange_api_secret"`
	SubAccountID        *string `gorm:"column:sub_account_id"`
	Data                *string `gorm:"column:data"`
}

func (User) TableName() string {
	return "user"
}

// UserToken links a session token digest to a user id.
type UserToken struct {
	Token  string `gorm:"column:token;primaryKey"`
	UserID string `gorm:"column:user_id"`
}

func (UserToken) TableName() string {
	return "user_token"
}

// UserWithToken is the result row of a user LEFT JOIN user_token query.
type UserWithToken struct {
	User
	Token *string `gorm:"column:token"`
}
