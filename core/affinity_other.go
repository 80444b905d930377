//go:build !linux

package core

import "errors"

var errPinUnsupported = errors.New("thread pinning is only supported on linux")

func pinThread(cpu int) (restore func(), err error) {
	return nil, errPinUnsupported
}
