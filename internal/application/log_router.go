package application

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bnema/livesync-cli/internal/domain"
	"github.com/bnema/livesync-cli/internal/ports"
	"github.com/dlclark/regexp2"
	"pkt.systems/pslog"
)

const defaultRuleMatchTimeout = 250 * time.Millisecond

type compiledRule struct {
	rule    domain.ParseRule
	pattern *regexp2.Regexp
}

// LogRouter splits device log messages into lines and hands every line to
// each registered rule that matches it. Rule handlers run on the goroutine
// that delivered the message and are not recovered.
type LogRouter struct {
	mu           sync.Mutex
	sources      []ports.LogSource
	unsubscribe  []func()
	subscribed   bool
	rules        []compiledRule
	names        map[string]struct{}
	matchTimeout time.Duration
	log          pslog.Logger
}

func NewLogRouter(logger pslog.Logger, sources ...ports.LogSource) *LogRouter {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}

	return &LogRouter{
		sources:      append([]ports.LogSource(nil), sources...),
		names:        make(map[string]struct{}),
		matchTimeout: defaultRuleMatchTimeout,
		log:          logger,
	}
}

// AddSource attaches another log source. It is subscribed right away when
// the router is already listening.
func (r *LogRouter) AddSource(source ports.LogSource) {
	r.mu.Lock()
	r.sources = append(r.sources, source)
	subscribed := r.subscribed
	r.mu.Unlock()

	if subscribed {
		r.subscribe(source)
	}
}

// AddRule registers rule. The first successful call subscribes the router to
// its sources.
func (r *LogRouter) AddRule(rule domain.ParseRule) error {
	if r.hasRule(rule.Name) {
		return fmt.Errorf("%w: %q", domain.ErrDuplicateRule, rule.Name)
	}
	if err := rule.Validate(); err != nil {
		return err
	}

	pattern, err := regexp2.Compile(rule.Pattern, regexp2.ECMAScript)
	if err != nil {
		return fmt.Errorf("%w: rule %q: compile pattern: %v", domain.ErrInvalidRule, rule.Name, err)
	}
	pattern.MatchTimeout = r.matchTimeout

	r.mu.Lock()
	if _, exists := r.names[rule.Name]; exists {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", domain.ErrDuplicateRule, rule.Name)
	}
	r.names[rule.Name] = struct{}{}
	r.rules = append(r.rules, compiledRule{rule: rule, pattern: pattern})

	var pending []ports.LogSource
	if !r.subscribed {
		r.subscribed = true
		pending = append(pending, r.sources...)
	}
	r.mu.Unlock()

	r.log.Debug("log rule registered", "rule", rule.Name, "platform", rule.Platform)
	for _, source := range pending {
		r.subscribe(source)
	}

	return nil
}

func (r *LogRouter) hasRule(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.names[name]
	return exists
}

func (r *LogRouter) RemoveRule(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.names[name]; !ok {
		return false
	}
	delete(r.names, name)

	kept := r.rules[:0:0]
	for _, compiled := range r.rules {
		if compiled.rule.Name != name {
			kept = append(kept, compiled)
		}
	}
	r.rules = kept

	return true
}

// Rules returns the registered rule names in registration order.
func (r *LogRouter) Rules() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.rules))
	for _, compiled := range r.rules {
		names = append(names, compiled.rule.Name)
	}

	return names
}

func (r *LogRouter) subscribe(source ports.LogSource) {
	unsubscribe := source.Subscribe(r.Route)

	r.mu.Lock()
	r.unsubscribe = append(r.unsubscribe, unsubscribe)
	r.mu.Unlock()
}

// Route processes one raw message. Every line, blank ones included, is
// tested against every rule; a trailing newline does not start a new line.
// Lines are not carried over between messages, so a line split across two
// messages never matches.
func (r *LogRouter) Route(msg ports.LogMessage) {
	r.mu.Lock()
	rules := make([]compiledRule, len(r.rules))
	copy(rules, r.rules)
	r.mu.Unlock()

	if len(rules) == 0 {
		return
	}

	for _, line := range splitLines(msg.Message) {
		for _, compiled := range rules {
			if !platformApplies(compiled.rule.Platform, msg.Platform) {
				continue
			}

			match, err := compiled.pattern.FindStringMatch(line)
			if err != nil {
				r.log.Warn("log rule match failed", "rule", compiled.rule.Name, "device", msg.DeviceID, "err", err)
				continue
			}
			if match == nil {
				continue
			}

			compiled.rule.Handler(domain.RuleMatch{
				Rule:     compiled.rule.Name,
				Groups:   matchGroups(match),
				DeviceID: msg.DeviceID,
				Platform: msg.Platform,
				Line:     line,
			})
		}
	}
}

func splitLines(message string) []string {
	message = strings.TrimSuffix(message, "\n")
	lines := strings.Split(message, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}

	return lines
}

// platformApplies is true unless both sides name a platform and they differ.
func platformApplies(filter, hint domain.Platform) bool {
	if filter == "" || hint == "" {
		return true
	}

	return filter.Matches(hint)
}

func matchGroups(match *regexp2.Match) []string {
	groups := match.Groups()
	out := make([]string, len(groups))
	for i, group := range groups {
		out[i] = group.String()
	}

	return out
}

// Close unsubscribes from every source. A later AddRule subscribes again.
func (r *LogRouter) Close() {
	r.mu.Lock()
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	r.subscribed = false
	r.mu.Unlock()

	for _, fn := range unsubscribe {
		fn()
	}
}
