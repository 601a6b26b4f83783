package channel

import (
	"errors"
	"fmt"
)

var (
	ErrUnverifiedCommitment = errors.New("channel commitment is not included in the verified MMR")
	ErrMessageSetMismatch   = errors.New("messages do not match the commitment")
	ErrNonceMismatch        = errors.New("unexpected message nonce")
	ErrDispatchHalted       = errors.New("dispatch halted by an earlier nonce gap")
	ErrInvalidSignature     = errors.New("invalid operator signature")
	ErrUnknownApplication   = errors.New("no application at target address")
	ErrApplicationPanic     = errors.New("application panicked")
	ErrUnauthorized         = errors.New("caller is not an authorized channel")
)

// NonceError carries the nonces of a rejected message.
type NonceError struct {
	Nonce    uint64
	Expected uint64
}

func (e NonceError) Error() string {
	return fmt.Sprintf("%v: got %d, expected %d", ErrNonceMismatch, e.Nonce, e.Expected)
}

func (e NonceError) Unwrap() error {
	return ErrNonceMismatch
}
