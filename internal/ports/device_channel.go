package ports

// DeviceChannel is a live communication handle to one device. Done is closed
// exactly once, when the channel closes. Implementations must be comparable
// (pointer types) since caches key on the instance.
type DeviceChannel interface {
	Done() <-chan struct{}
}
