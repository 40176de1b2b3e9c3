package application

import (
	"sync"
	"testing"
	"time"

	"github.com/bnema/livesync-cli/internal/domain"
	"github.com/bnema/livesync-cli/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLogSource struct {
	mu           sync.Mutex
	handlers     map[int]func(ports.LogMessage)
	next         int
	subscribes   int
	unsubscribes int
}

func newFakeLogSource() *fakeLogSource {
	return &fakeLogSource{handlers: map[int]func(ports.LogMessage){}}
}

func (s *fakeLogSource) Subscribe(handler func(ports.LogMessage)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++
	s.subscribes++
	s.handlers[id] = handler
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.unsubscribes++
		delete(s.handlers, id)
	}
}

func (s *fakeLogSource) emit(msg ports.LogMessage) {
	s.mu.Lock()
	handlers := make([]func(ports.LogMessage), 0, len(s.handlers))
	for _, handler := range s.handlers {
		handlers = append(handlers, handler)
	}
	s.mu.Unlock()

	for _, handler := range handlers {
		handler(msg)
	}
}

type matchRecorder struct {
	mu      sync.Mutex
	matches []domain.RuleMatch
}

func (r *matchRecorder) handle(match domain.RuleMatch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches = append(r.matches, match)
}

func (r *matchRecorder) rules() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.matches))
	for _, match := range r.matches {
		names = append(names, match.Rule)
	}
	return names
}

func TestLogRouterAddRuleRejectsDuplicateName(t *testing.T) {
	t.Parallel()

	router := NewLogRouter(nil)
	first := &matchRecorder{}
	second := &matchRecorder{}

	require.NoError(t, router.AddRule(domain.ParseRule{Name: "ready", Pattern: "ready", Handler: first.handle}))
	err := router.AddRule(domain.ParseRule{Name: "ready", Pattern: "other", Handler: second.handle})
	require.ErrorIs(t, err, domain.ErrDuplicateRule)

	router.Route(ports.LogMessage{Message: "app ready", DeviceID: "dev1"})
	router.Route(ports.LogMessage{Message: "other", DeviceID: "dev1"})

	assert.Equal(t, []string{"ready"}, first.rules())
	assert.Empty(t, second.rules())
	assert.Equal(t, []string{"ready"}, router.Rules())
}

func TestLogRouterDuplicateNameWinsOverInvalidPattern(t *testing.T) {
	t.Parallel()

	router := NewLogRouter(nil)
	noop := func(domain.RuleMatch) {}

	require.NoError(t, router.AddRule(domain.ParseRule{Name: "a", Pattern: "a", Handler: noop}))
	err := router.AddRule(domain.ParseRule{Name: "a", Pattern: "(", Handler: noop})
	require.ErrorIs(t, err, domain.ErrDuplicateRule)
	assert.NotErrorIs(t, err, domain.ErrInvalidRule)
}

func TestLogRouterRoutesBlankLines(t *testing.T) {
	t.Parallel()

	router := NewLogRouter(nil)
	recorder := &matchRecorder{}
	require.NoError(t, router.AddRule(domain.ParseRule{Name: "blank", Pattern: `^\s*$`, Handler: recorder.handle}))

	router.Route(ports.LogMessage{Message: "a\n\nb", DeviceID: "dev1"})
	router.Route(ports.LogMessage{Message: "c\r\n  \r\nd\n", DeviceID: "dev1"})

	require.Equal(t, []string{"blank", "blank"}, recorder.rules())
	assert.Equal(t, "", recorder.matches[0].Line)
	assert.Equal(t, "  ", recorder.matches[1].Line)
}

func TestLogRouterAddRuleRejectsInvalidRules(t *testing.T) {
	t.Parallel()

	router := NewLogRouter(nil)
	noop := func(domain.RuleMatch) {}

	assert.ErrorIs(t, router.AddRule(domain.ParseRule{Name: "broken", Pattern: "(", Handler: noop}), domain.ErrInvalidRule)
	assert.ErrorIs(t, router.AddRule(domain.ParseRule{Name: "nohandler", Pattern: "x"}), domain.ErrInvalidRule)
	assert.Empty(t, router.Rules())
}

func TestLogRouterSubscribesToSourcesOnce(t *testing.T) {
	t.Parallel()

	device := newFakeLogSource()
	preview := newFakeLogSource()
	router := NewLogRouter(nil, device, preview)
	noop := func(domain.RuleMatch) {}

	assert.Equal(t, 0, device.subscribes)

	require.NoError(t, router.AddRule(domain.ParseRule{Name: "a", Pattern: "a", Handler: noop}))
	require.NoError(t, router.AddRule(domain.ParseRule{Name: "b", Pattern: "b", Handler: noop}))
	require.Error(t, router.AddRule(domain.ParseRule{Name: "b", Pattern: "b", Handler: noop}))

	assert.Equal(t, 1, device.subscribes)
	assert.Equal(t, 1, preview.subscribes)
}

func TestLogRouterRoutesEveryLineToEveryMatchingRuleInOrder(t *testing.T) {
	t.Parallel()

	source := newFakeLogSource()
	router := NewLogRouter(nil, source)
	recorder := &matchRecorder{}

	require.NoError(t, router.AddRule(domain.ParseRule{Name: "port", Pattern: `port (\d+)`, Handler: recorder.handle}))
	require.NoError(t, router.AddRule(domain.ParseRule{Name: "any-digit", Pattern: `\d`, Handler: recorder.handle}))

	source.emit(ports.LogMessage{Message: "listening on port 9229\r\nno digits here\n\nline 2", DeviceID: "dev1"})

	assert.Equal(t, []string{"port", "any-digit", "any-digit"}, recorder.rules())
	first := recorder.matches[0]
	assert.Equal(t, []string{"port 9229", "9229"}, first.Groups)
	assert.Equal(t, "dev1", first.DeviceID)
	assert.Equal(t, "listening on port 9229", first.Line)
}

func TestLogRouterPlatformFilter(t *testing.T) {
	t.Parallel()

	router := NewLogRouter(nil)
	recorder := &matchRecorder{}

	require.NoError(t, router.AddRule(domain.ParseRule{Name: "ios", Pattern: "boot", Platform: domain.PlatformIOS, Handler: recorder.handle}))
	require.NoError(t, router.AddRule(domain.ParseRule{Name: "android", Pattern: "boot", Platform: domain.PlatformAndroid, Handler: recorder.handle}))

	router.Route(ports.LogMessage{Message: "boot", DeviceID: "preview-device"})
	assert.Equal(t, []string{"ios", "android"}, recorder.rules())

	recorder.matches = nil
	router.Route(ports.LogMessage{Message: "boot", DeviceID: "dev1", Platform: "iOS"})
	assert.Equal(t, []string{"ios"}, recorder.rules())

	recorder.matches = nil
	router.Route(ports.LogMessage{Message: "boot", DeviceID: "dev2", Platform: domain.PlatformAndroid})
	assert.Equal(t, []string{"android"}, recorder.rules())
}

func TestLogRouterDoesNotJoinLinesAcrossMessages(t *testing.T) {
	t.Parallel()

	router := NewLogRouter(nil)
	recorder := &matchRecorder{}
	require.NoError(t, router.AddRule(domain.ParseRule{Name: "ready", Pattern: "^app ready$", Handler: recorder.handle}))

	router.Route(ports.LogMessage{Message: "app re", DeviceID: "dev1"})
	router.Route(ports.LogMessage{Message: "ady", DeviceID: "dev1"})

	assert.Empty(t, recorder.rules())
}

func TestLogRouterKeepsProcessingAfterMatchError(t *testing.T) {
	t.Parallel()

	router := NewLogRouter(nil)
	router.matchTimeout = 50 * time.Millisecond
	recorder := &matchRecorder{}
	require.NoError(t, router.AddRule(domain.ParseRule{Name: "backtrack", Pattern: `^(a+)+$`, Handler: recorder.handle}))
	require.NoError(t, router.AddRule(domain.ParseRule{Name: "tail", Pattern: "tail", Handler: recorder.handle}))

	router.Route(ports.LogMessage{Message: "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaab\ntail", DeviceID: "dev1"})

	assert.Equal(t, []string{"tail"}, recorder.rules())
}

func TestLogRouterHandlerPanicPropagates(t *testing.T) {
	t.Parallel()

	router := NewLogRouter(nil)
	require.NoError(t, router.AddRule(domain.ParseRule{Name: "boom", Pattern: "boom", Handler: func(domain.RuleMatch) {
		panic("handler failed")
	}}))

	assert.PanicsWithValue(t, "handler failed", func() {
		router.Route(ports.LogMessage{Message: "boom"})
	})
}

func TestLogRouterRemoveRule(t *testing.T) {
	t.Parallel()

	router := NewLogRouter(nil)
	recorder := &matchRecorder{}
	require.NoError(t, router.AddRule(domain.ParseRule{Name: "a", Pattern: "x", Handler: recorder.handle}))

	assert.True(t, router.RemoveRule("a"))
	assert.False(t, router.RemoveRule("a"))
	router.Route(ports.LogMessage{Message: "x"})
	assert.Empty(t, recorder.rules())

	require.NoError(t, router.AddRule(domain.ParseRule{Name: "a", Pattern: "x", Handler: recorder.handle}))
}

func TestLogRouterCloseUnsubscribesAndAddSourceAfterWiring(t *testing.T) {
	t.Parallel()

	first := newFakeLogSource()
	router := NewLogRouter(nil, first)
	recorder := &matchRecorder{}
	require.NoError(t, router.AddRule(domain.ParseRule{Name: "x", Pattern: "x", Handler: recorder.handle}))

	late := newFakeLogSource()
	router.AddSource(late)
	assert.Equal(t, 1, late.subscribes)

	late.emit(ports.LogMessage{Message: "x"})
	assert.Equal(t, []string{"x"}, recorder.rules())

	router.Close()
	assert.Equal(t, 1, first.unsubscribes)
	assert.Equal(t, 1, late.unsubscribes)

	first.emit(ports.LogMessage{Message: "x"})
	assert.Equal(t, []string{"x"}, recorder.rules())
}
