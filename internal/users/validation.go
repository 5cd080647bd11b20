package users

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/robotter-ai/ccxt-telegram-api/internal/apperror"
)

const (
	DefaultAPIKeyPattern    = `^[a-zA-Z0-9-]{32}$`
	DefaultAPISecretPattern = `^[a-zA-Z0-9]{64}$`
)

// Validator checks every materialized user.
type Validator struct {
	validate *validator.Validate
}

// NewValidator compiles the credential patterns. Empty patterns fall back to
// the defaults.
func NewValidator(apiKeyPattern, apiSecretPattern string) (*Validator, error) {
	if apiKeyPattern == "" {
		apiKeyPattern = DefaultAPIKeyPattern
	}
	if apiSecretPattern == "" {
		apiSecretPattern = DefaultAPISecretPattern
	}
	keyPattern, err := regexp.Compile(apiKeyPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid api key pattern: %w", err)
	}
	secretPattern, err := regexp.Compile(apiSecretPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid api secret pattern: %w", err)
	}

	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	if err = validate.RegisterValidation("exchange_api_key", patternRule(keyPattern)); err != nil {
		return nil, err
	}
	if err = validate.RegisterValidation("exchange_api_secret", patternRule(secretPattern)); err != nil {
		return nil, err
	}

	return &Validator{validate: validate}, nil
}

func patternRule(pattern *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return pattern.MatchString(fl.Field().String())
	}
}

// Validate returns a *apperror.ValidationError naming the first offending field.
func (v *Validator) Validate(user *User) error {
	err := v.validate.Struct(user)
	if err == nil {
		return nil
	}

	var fieldErrors validator.ValidationErrors
	if errors.As(err, &fieldErrors) && len(fieldErrors) > 0 {
		first := fieldErrors[0]
		return apperror.NewValidationError(fieldPath(first.Namespace()), reason(first))
	}
	return err
}

// ValidateCredentials additionally requires the fields needed to sign in.
func (v *Validator) ValidateCredentials(user *User) error {
	required := []struct {
		field string
		value string
	}{
		{"exchangeId", user.ExchangeID},
		{"exchangeEnvironment", string(user.ExchangeEnvironment)},
		{"exchangeProtocol", string(user.ExchangeProtocol)},
		{"exchangeApiKey", user.ExchangeAPIKey},
		{"exchangeApiSecret", user.ExchangeAPISecret},
	}
	for _, r := range required {
		if r.value == "" {
			return apperror.NewValidationError(r.field, "is required")
		}
	}
	return v.Validate(user)
}

// fieldPath drops the struct name prefix of a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "numeric":
		return "must be numeric"
	case "hexadecimal":
		return "must be a hexadecimal string"
	case "oneof":
		return "must be one of " + fe.Param()
	case "exchange_api_key":
		return "is not a valid api key"
	case "exchange_api_secret":
		return "is not a valid api secret"
	default:
		return fe.Tag()
	}
}
