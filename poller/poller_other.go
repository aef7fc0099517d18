//go:build !linux

package poller

// New 在非 Linux 平台返回占位错误，保证编译通过
func New(maxEvents int) (Poller, error) {
	_ = maxEvents
	return nil, ErrPlatformNotSupported
}
