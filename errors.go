// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package respool

import (
	"errors"
	"fmt"
)

// ErrProtocolViolation is the error carried by panics raised when a Pool is
// driven in a way that would corrupt its slot or generation bookkeeping:
// deleting a slot that was never marked, shrinking through Grow, or creating a
// pool without capacity. These are bugs in the owning code and are not
// recoverable.
var ErrProtocolViolation = errors.New("respool: protocol violation")

// ErrPoolFull is the error carried by the panic raised when a Pool would need
// more slots than a 16-bit index can address.
var ErrPoolFull = errors.New("respool: pool index space exhausted")

// violation panics with an error wrapping ErrProtocolViolation.
func violation(format string, args ...any) {
	panic(fmt.Errorf("%w: "+format, append([]any{ErrProtocolViolation}, args...)...))
}
