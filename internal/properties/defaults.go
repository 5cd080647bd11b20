package properties

const (
	EnvironmentProduction  = "production"
	EnvironmentStaging     = "staging"
	EnvironmentDevelopment = "development"

	DefaultDirectory = "resources/configuration"
)

// Defaults is the lowest configuration layer.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"id":          "ccxt-telegram-bot",
		"environment": EnvironmentDevelopment,
		"logging": map[string]interface{}{
			"level": "info",
		},
		"database": map[string]interface{}{
			"path": "resources/database/database.sqlite3",
		},
		"server": map[string]interface{}{
			"address": ":8080",
			"authentication": map[string]interface{}{
				"require": map[string]interface{}{
					"token": true,
				},
			},
			"cors": map[string]interface{}{
				"origins": []interface{}{"*"},
			},
		},
		"authentication": map[string]interface{}{
			"jwt": map[string]interface{}{
				"algorithm": "HS256",
				"token": map[string]interface{}{
					"expiration": 1800,
				},
			},
			"cookie": map[string]interface{}{
				"name":     "token",
				"httpOnly": true,
				"secure":   true,
				"sameSite": "none",
				"maxAge":   1800,
				"path":     "/",
			},
		},
		"exchange": map[string]interface{}{
			"default": map[string]interface{}{
				"id":          "coinbasepro",
				"environment": EnvironmentProduction,
				"protocol":    "rest",
			},
			"timeout": 25,
		},
		"users": map[string]interface{}{
			"max": 100,
			"validation": map[string]interface{}{
				"exchange_api_key":    `^[a-zA-Z0-9-]{32}$`,
				"exchange_api_secret": `^[a-zA-Z0-9]{64}$`,
			},
		},
		"telegram": map[string]interface{}{
			"message": map[string]interface{}{
				"max_length": 4096,
			},
		},
	}
}
