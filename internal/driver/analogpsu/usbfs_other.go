//go:build !linux

package analogpsu

func openUSBFS(path string, _ Config) (Bulk, error) {
	return nil, ErrUnsupportedPlatform
}
