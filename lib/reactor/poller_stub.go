//go:build !linux

package reactor

// NewPoller is only implemented on Linux
func NewPoller() (Poller, error) {
	return nil, ErrUnsupported
}
