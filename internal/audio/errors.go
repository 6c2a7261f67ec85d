// SPDX-License-Identifier: MIT
package audio

import "errors"

var (
	// ErrUnsupportedMedia is returned when a source cannot be analysed: an
	// unknown source type, a stream without channels, a sample rate that is
	// invalid or differs from the running context, or no usable input device.
	ErrUnsupportedMedia = errors.New("unsupported media")

	// ErrPermissionDenied is returned when the host refuses access to the
	// input device.
	ErrPermissionDenied = errors.New("microphone permission denied")

	// ErrClosed is returned by connect calls on a closed Bridge.
	ErrClosed = errors.New("bridge closed")
)
