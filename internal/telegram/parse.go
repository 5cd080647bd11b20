package telegram

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/robotter-ai/ccxt-telegram-api/internal/model"
	"github.com/robotter-ai/ccxt-telegram-api/internal/utils"
)

// Command is a parsed chat command like "/fetchOHLCV BTC/USD timeframe=1h".
type Command struct {
	Name string
	// Raw holds the positional arguments as typed.
	Raw  []string
	Args model.Args
}

// ParseCommand splits text into the command name, in snake case without the
// leading slash or bot mention, and its arguments. key=value tokens become
// named arguments with snake case keys.
func ParseCommand(text string) Command {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return Command{}
	}
	name := strings.TrimPrefix(fields[0], "/")
	if i := strings.Index(name, "@"); i >= 0 {
		name = name[:i]
	}

	command := Command{Name: utils.CamelToSnake(name)}
	var (
		positional []interface{}
		named      = map[string]interface{}{}
	)
	for _, token := range fields[1:] {
		if key, value, ok := strings.Cut(token, "="); ok && key != "" {
			named[utils.CamelToSnake(key)] = ParseArgument(value)
			continue
		}
		command.Raw = append(command.Raw, token)
		positional = append(positional, ParseArgument(token))
	}
	command.Args = model.NewArgs(positional, named)
	return command
}

// ParseArgument tries JSON, then integer, then float, then boolean. Anything
// else stays text.
func ParseArgument(arg string) interface{} {
	decoder := json.NewDecoder(strings.NewReader(arg))
	decoder.UseNumber()
	var value interface{}
	if err := decoder.Decode(&value); err == nil && !decoder.More() {
		return fromJSON(value, arg)
	}
	if n, err := strconv.Atoi(arg); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(arg, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(strings.ToLower(arg)); err == nil && (strings.EqualFold(arg, "true") || strings.EqualFold(arg, "false")) {
		return b
	}
	return arg
}

func fromJSON(value interface{}, raw string) interface{} {
	switch v := value.(type) {
	case json.Number:
		if n, err := strconv.Atoi(v.String()); err == nil {
			return n
		}
		if isDigits(raw) {
			return raw
		}
		f, _ := v.Float64()
		return f
	case map[string]interface{}:
		for key, item := range v {
			v[key] = fromJSON(item, fmt.Sprint(item))
		}
		return v
	case []interface{}:
		for i, item := range v {
			v[i] = fromJSON(item, fmt.Sprint(item))
		}
		return v
	default:
		return v
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Beautify renders a result as an indented outline.
func Beautify(target interface{}) string {
	return beautify(normalize(target), 0)
}

// normalize reduces structs and typed collections to maps, slices and
// scalars.
func normalize(target interface{}) interface{} {
	raw, err := json.Marshal(target)
	if err != nil {
		return fmt.Sprint(target)
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var out interface{}
	if err = decoder.Decode(&out); err != nil {
		return fmt.Sprint(target)
	}
	return out
}

func beautify(target interface{}, indent int) string {
	pad := strings.Repeat("  ", indent)
	var b strings.Builder

	switch t := target.(type) {
	case nil:
		return pad + "<empty result>\n"
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for key := range t {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			b.WriteString(pad + key + ":")
			writeValue(&b, t[key], indent)
		}
		if b.Len() == 0 {
			return "<empty result>\n"
		}
	case []interface{}:
		for _, item := range t {
			b.WriteString(pad + "-")
			writeValue(&b, item, indent)
		}
		if b.Len() == 0 {
			return "<empty list>\n"
		}
	default:
		b.WriteString(pad + fmt.Sprint(t) + "\n")
	}
	return b.String()
}

func writeValue(b *strings.Builder, value interface{}, indent int) {
	switch value.(type) {
	case map[string]interface{}, []interface{}:
		b.WriteString("\n" + beautify(value, indent+1))
	case nil:
		b.WriteString(" None\n")
	default:
		b.WriteString(" " + fmt.Sprint(value) + "\n")
	}
}
