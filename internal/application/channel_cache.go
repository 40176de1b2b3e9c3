package application

import (
	"context"
	"sync"

	"github.com/bnema/livesync-cli/internal/ports"
	"pkt.systems/pslog"
)

// ChannelCache keeps at most one open channel per device identifier. An
// entry lives until its channel closes or the cache is cleared.
type ChannelCache struct {
	mu      sync.Mutex
	entries map[string]ports.DeviceChannel
	stop    chan struct{}
	log     pslog.Logger
}

func NewChannelCache(logger pslog.Logger) *ChannelCache {
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}

	return &ChannelCache{
		entries: make(map[string]ports.DeviceChannel),
		stop:    make(chan struct{}),
		log:     logger,
	}
}

func (c *ChannelCache) Get(deviceID string) (ports.DeviceChannel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel, ok := c.entries[deviceID]
	return channel, ok
}

// Add caches channel for deviceID and evicts it when the channel closes.
// Adding the instance that is already cached does nothing.
func (c *ChannelCache) Add(deviceID string, channel ports.DeviceChannel) {
	c.mu.Lock()
	if current, ok := c.entries[deviceID]; ok && current == channel {
		c.mu.Unlock()
		return
	}
	c.entries[deviceID] = channel
	stop := c.stop
	c.mu.Unlock()

	c.log.Debug("device channel cached", "device", deviceID)
	go c.watch(deviceID, channel, stop)
}

func (c *ChannelCache) watch(deviceID string, channel ports.DeviceChannel, stop <-chan struct{}) {
	select {
	case <-channel.Done():
	case <-stop:
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// A newer channel for the same device may have replaced this one.
	if current, ok := c.entries[deviceID]; ok && current == channel {
		delete(c.entries, deviceID)
		c.log.Debug("device channel evicted", "device", deviceID)
	}
}

func (c *ChannelCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// Clear drops every entry and stops all close watchers.
func (c *ChannelCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	close(c.stop)
	c.stop = make(chan struct{})
	c.entries = make(map[string]ports.DeviceChannel)
}
