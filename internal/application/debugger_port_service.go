package application

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/bnema/livesync-cli/internal/domain"
	"github.com/bnema/livesync-cli/internal/ports"
	"pkt.systems/pslog"
)

const (
	DebuggerPortRuleName = "ios-debugger-port"
	debuggerPortPattern  = `debugger has opened inspector socket on port (\d+) for (\S+?)\.?$`
)

type debuggerKey struct {
	deviceID string
	appID    string
}

// DebuggerPortService learns inspector ports from iOS device logs and lets
// the debug-attach path wait for them.
type DebuggerPortService struct {
	mu      sync.Mutex
	ports   map[debuggerKey]int
	waiters map[debuggerKey][]chan int
	clock   ports.Clock
	log     pslog.Logger
}

func NewDebuggerPortService(router *LogRouter, clock ports.Clock, logger pslog.Logger) (*DebuggerPortService, error) {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}

	s := &DebuggerPortService{
		ports:   make(map[debuggerKey]int),
		waiters: make(map[debuggerKey][]chan int),
		clock:   clock,
		log:     logger,
	}

	err := router.AddRule(domain.ParseRule{
		Name:     DebuggerPortRuleName,
		Pattern:  debuggerPortPattern,
		Platform: domain.PlatformIOS,
		Handler:  s.handleMatch,
	})
	if err != nil {
		return nil, fmt.Errorf("register debugger port rule: %w", err)
	}

	return s, nil
}

func (s *DebuggerPortService) handleMatch(match domain.RuleMatch) {
	port, err := strconv.Atoi(match.Group(1))
	if err != nil {
		s.log.Warn("ignoring malformed debugger port", "device", match.DeviceID, "line", match.Line)
		return
	}
	key := debuggerKey{deviceID: match.DeviceID, appID: match.Group(2)}

	s.mu.Lock()
	s.ports[key] = port
	waiters := s.waiters[key]
	delete(s.waiters, key)
	s.mu.Unlock()

	s.log.Debug("debugger port discovered", "device", key.deviceID, "app", key.appID, "port", port)
	for _, waiter := range waiters {
		waiter <- port
	}
}

func (s *DebuggerPortService) Port(deviceID, appID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	port, ok := s.ports[debuggerKey{deviceID: deviceID, appID: appID}]
	return port, ok
}

// GetPort returns the known port or waits up to query.Timeout for the device
// to report one.
func (s *DebuggerPortService) GetPort(ctx context.Context, query DebuggerPortQuery) (int, error) {
	key := debuggerKey{deviceID: query.DeviceID, appID: query.AppID}

	s.mu.Lock()
	if port, ok := s.ports[key]; ok {
		s.mu.Unlock()
		return port, nil
	}
	waiter := make(chan int, 1)
	s.waiters[key] = append(s.waiters[key], waiter)
	s.mu.Unlock()

	expired := make(chan struct{})
	timer := s.clock.AfterFunc(query.Timeout, func() { close(expired) })
	defer timer.Stop()

	select {
	case port := <-waiter:
		return port, nil
	case <-expired:
		s.dropWaiter(key, waiter)
		return 0, fmt.Errorf("%w: device %s app %s after %s", domain.ErrDebuggerPortTimeout, query.DeviceID, query.AppID, query.Timeout)
	case <-ctx.Done():
		s.dropWaiter(key, waiter)
		return 0, ctx.Err()
	}
}

func (s *DebuggerPortService) dropWaiter(key debuggerKey, waiter chan int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	waiters := s.waiters[key]
	for i, candidate := range waiters {
		if candidate == waiter {
			waiters = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
	if len(waiters) == 0 {
		delete(s.waiters, key)
		return
	}
	s.waiters[key] = waiters
}

// Forget drops every known port for deviceID, e.g. after the app restarted.
func (s *DebuggerPortService) Forget(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.ports {
		if key.deviceID == deviceID {
			delete(s.ports, key)
		}
	}
}
