//go:build !linux && !darwin

package portdetect

import "errors"

var errUnsupported = errors.New("socket table inspection not supported on this platform")

// listeningPort is a stub on platforms without a socket enumeration
// mechanism; the log probe remains the only detection path there.
func listeningPort(int) (int, error) {
	return 0, errUnsupported
}
