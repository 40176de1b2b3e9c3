package application

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bnema/livesync-cli/internal/domain"
	"github.com/google/uuid"
	"pkt.systems/pslog"
)

type SyncInfo struct {
	SyncToPreviewApp bool
}

type liveSyncSession struct {
	id               string
	tail             *Action
	current          *Action
	stopped          bool
	syncToPreviewApp bool
	devices          []domain.DeviceDescriptor
}

// SessionRegistry tracks live-sync sessions by project directory. Actions
// enqueued for one project run strictly one after another; projects are
// independent of each other.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*liveSyncSession
	log      pslog.Logger
}

func NewSessionRegistry(logger pslog.Logger) *SessionRegistry {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}

	return &SessionRegistry{
		sessions: make(map[string]*liveSyncSession),
		log:      logger,
	}
}

// Persist creates the session for projectDir on first use and merges the
// descriptors into it. A descriptor replaces a stored one with the same
// identifier.
func (r *SessionRegistry) Persist(projectDir string, info SyncInfo, descriptors ...domain.DeviceDescriptor) SessionData {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[projectDir]
	if !ok {
		session = &liveSyncSession{
			id:   uuid.NewString(),
			tail: completedAction(),
		}
		r.sessions[projectDir] = session
		r.log.With("project", projectDir).Debug("live-sync session created", "session", session.id)
	}

	session.devices = mergeDescriptors(session.devices, descriptors)
	session.syncToPreviewApp = info.SyncToPreviewApp
	session.stopped = false
	session.current = session.tail

	return session.data(projectDir)
}

func mergeDescriptors(existing, incoming []domain.DeviceDescriptor) []domain.DeviceDescriptor {
	merged := make([]domain.DeviceDescriptor, len(existing), len(existing)+len(incoming))
	copy(merged, existing)

	index := make(map[string]int, len(merged))
	for i, descriptor := range merged {
		index[descriptor.Identifier] = i
	}

	for _, descriptor := range incoming {
		if i, ok := index[descriptor.Identifier]; ok {
			merged[i] = descriptor
			continue
		}
		index[descriptor.Identifier] = len(merged)
		merged = append(merged, descriptor)
	}

	return merged
}

// Restore recreates a session from a persisted snapshot. An existing
// in-memory session for the same project wins over the snapshot.
func (r *SessionRegistry) Restore(snapshot domain.SessionSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[snapshot.ProjectDir]; ok {
		return
	}

	id := snapshot.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	tail := completedAction()
	r.sessions[snapshot.ProjectDir] = &liveSyncSession{
		id:               id,
		tail:             tail,
		current:          tail,
		stopped:          snapshot.Stopped,
		syncToPreviewApp: snapshot.SyncToPreviewApp,
		devices:          mergeDescriptors(nil, snapshot.DeviceDescriptors),
	}
}

func (r *SessionRegistry) GetData(projectDir string) (SessionData, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[projectDir]
	if !ok {
		return SessionData{}, false
	}

	return session.data(projectDir), true
}

func (r *SessionRegistry) GetAllData() []SessionData {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]SessionData, 0, len(r.sessions))
	for projectDir, session := range r.sessions {
		all = append(all, session.data(projectDir))
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].ProjectDir < all[j].ProjectDir
	})

	return all
}

func (r *SessionRegistry) GetDeviceDescriptors(projectDir string) []domain.DeviceDescriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[projectDir]
	if !ok {
		return []domain.DeviceDescriptor{}
	}

	return cloneDescriptors(session.devices)
}

// HasDeviceDescriptors fails with domain.ErrSessionNotFound when Persist was
// never called for projectDir.
func (r *SessionRegistry) HasDeviceDescriptors(projectDir string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[projectDir]
	if !ok {
		return false, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, projectDir)
	}

	return len(session.devices) > 0, nil
}

func (r *SessionRegistry) RemoveDeviceDescriptors(projectDir string, identifiers ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[projectDir]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, projectDir)
	}

	drop := make(map[string]struct{}, len(identifiers))
	for _, id := range identifiers {
		drop[id] = struct{}{}
	}

	kept := session.devices[:0:0]
	for _, descriptor := range session.devices {
		if _, ok := drop[descriptor.Identifier]; ok {
			continue
		}
		kept = append(kept, descriptor)
	}
	session.devices = kept

	return nil
}

// Enqueue chains fn behind the project's current tail. fn starts only after
// every previously enqueued action for the same project has finished.
func (r *SessionRegistry) Enqueue(ctx context.Context, projectDir string, fn ActionFunc) (*Action, error) {
	r.mu.Lock()
	session, ok := r.sessions[projectDir]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, projectDir)
	}

	previous := session.tail
	action := newAction()
	session.tail = action
	session.current = action
	sessionID := session.id
	r.mu.Unlock()

	log := r.log.With("project", projectDir, "session", sessionID)
	go func() {
		<-previous.Done()
		log.Trace("live-sync action started")
		err := fn(ctx)
		if err != nil {
			log.Warn("live-sync action failed", "err", err)
		}
		action.finish(err)
	}()

	return action, nil
}

// Stop marks the session stopped. Running actions are not interrupted; they
// are expected to poll IsStopped.
func (r *SessionRegistry) Stop(projectDir string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[projectDir]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, projectDir)
	}
	session.stopped = true

	return nil
}

func (r *SessionRegistry) IsStopped(projectDir string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[projectDir]
	return ok && session.stopped
}

// Shutdown drops every session. Actions already running finish on their own.
func (r *SessionRegistry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions = make(map[string]*liveSyncSession)
}

func (s *liveSyncSession) data(projectDir string) SessionData {
	return SessionData{
		ProjectDir:        projectDir,
		SessionID:         s.id,
		Stopped:           s.stopped,
		SyncToPreviewApp:  s.syncToPreviewApp,
		DeviceDescriptors: cloneDescriptors(s.devices),
		CurrentAction:     s.current,
	}
}

func cloneDescriptors(descriptors []domain.DeviceDescriptor) []domain.DeviceDescriptor {
	out := make([]domain.DeviceDescriptor, len(descriptors))
	copy(out, descriptors)
	return out
}
