package domain

import (
	"fmt"
	"strings"
)

type RuleHandler func(match RuleMatch)

// ParseRule classifies device log lines. Name is the rule's identity.
type ParseRule struct {
	Name     string
	Pattern  string
	Platform Platform
	Handler  RuleHandler
}

func (r ParseRule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRule)
	}
	if r.Pattern == "" {
		return fmt.Errorf("%w: rule %q: pattern is required", ErrInvalidRule, r.Name)
	}
	if r.Handler == nil {
		return fmt.Errorf("%w: rule %q: handler is required", ErrInvalidRule, r.Name)
	}

	return nil
}

type RuleMatch struct {
	Rule     string
	Groups   []string
	DeviceID string
	Platform Platform
	Line     string
}

// Group returns the i-th capture group or "" when it does not exist.
func (m RuleMatch) Group(i int) string {
	if i < 0 || i >= len(m.Groups) {
		return ""
	}

	return m.Groups[i]
}

// RuleDefinition is a rule as stored in a rules file, without a handler.
type RuleDefinition struct {
	Name     string
	Pattern  string
	Platform Platform
}

func (d RuleDefinition) WithHandler(handler RuleHandler) ParseRule {
	return ParseRule{
		Name:     d.Name,
		Pattern:  d.Pattern,
		Platform: d.Platform,
		Handler:  handler,
	}
}
