// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package resource

import (
	"errors"
	"fmt"

	"github.com/gogpu/respool"
)

// Manager errors.
var (
	// ErrInvalidHandle is returned when an operation is given a handle that is
	// stale, invalid, or was never issued by this manager.
	ErrInvalidHandle = errors.New("resource: invalid handle")

	// ErrInvalidDescriptor is returned when a descriptor fails validation.
	// The backend is not called.
	ErrInvalidDescriptor = errors.New("resource: invalid descriptor")

	// ErrManagerClosed is returned when operating on a closed manager.
	ErrManagerClosed = errors.New("resource: manager closed")

	// ErrNilBackend is returned by New when no backend is given.
	ErrNilBackend = errors.New("resource: backend is nil")

	// ErrNilHALDevice is returned by NewHAL when the device is nil.
	ErrNilHALDevice = errors.New("resource: HAL device is nil")

	// ErrNilHALQueue is returned by NewHAL when the queue is nil.
	ErrNilHALQueue = errors.New("resource: HAL queue is nil")

	// ErrNoHALProvider is returned by NewFromProvider when the provider does
	// not expose a hal.Device and hal.Queue.
	ErrNoHALProvider = errors.New("resource: provider does not expose HAL types")
)

// invalidDesc returns an error wrapping ErrInvalidDescriptor.
func invalidDesc(kind, label, format string, args ...any) error {
	return fmt.Errorf("%w: %s %q: %s", ErrInvalidDescriptor, kind, label, fmt.Sprintf(format, args...))
}

// violation panics with an error wrapping respool.ErrProtocolViolation.
func violation(format string, args ...any) {
	panic(fmt.Errorf("%w: resource: %s", respool.ErrProtocolViolation, fmt.Sprintf(format, args...)))
}
