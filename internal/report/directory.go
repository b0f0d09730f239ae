package report

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// AgentPrefix prefixes every per-symbol agent name.
const AgentPrefix = "stockapi-agent-"

var (
	ErrInvalidSymbol = errors.New("invalid symbol")

	symbolPattern = regexp.MustCompile(`^[A-Za-z0-9.^=-]{1,15}$`)
)

// AgentNameFor maps a ticker to the name of its dedicated agent. The mapping
// is case-insensitive and needs no cache.
func AgentNameFor(symbol string) string {
	return AgentPrefix + strings.ToLower(strings.TrimSpace(symbol))
}

// DisplaySymbol is the form shown to users and embedded in prompts.
func DisplaySymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidateSymbol rejects empty or obviously malformed tickers before any
// upstream call is made.
func ValidateSymbol(symbol string) error {
	s := strings.TrimSpace(symbol)
	if s == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidSymbol)
	}
	if !symbolPattern.MatchString(s) {
		return fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return nil
}
