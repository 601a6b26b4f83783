package lightclient

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSignature       = errors.New("invalid signature")
	ErrInvalidMembershipProof = errors.New("invalid validator membership proof")
	ErrInsufficientSignatures = errors.New("insufficient signatures")
	ErrBitfieldMismatch       = errors.New("validator proof does not match the random bitfield")
	ErrUnknownCommitment      = errors.New("unknown commitment")
	ErrTooEarly               = errors.New("commitment is not mature yet")
	ErrExpired                = errors.New("commitment completion window has passed")
	ErrRejected               = errors.New("commitment validator set was rotated")
	ErrAlreadyCompleted       = errors.New("commitment already completed")
	ErrCommitmentMismatch     = errors.New("commitment does not match the initial submission")
	ErrStaleCommitment        = errors.New("commitment is not newer than the latest verified block")
	ErrMalformedProof         = errors.New("malformed validator proof")
	ErrInvalidMMRProof        = errors.New("invalid MMR leaf proof")
	ErrOutOfRange             = errors.New("position out of range")
	ErrDuplicatePosition      = errors.New("duplicate position")
	ErrMalformedBitfield      = errors.New("malformed validator bitfield")
)

// ValidatorError reports which entry of a validator proof failed.
type ValidatorError struct {
	Index    int
	Position uint64
	Err      error
}

func (e ValidatorError) Error() string {
	return fmt.Sprintf("validator proof entry %d (position %d): %v", e.Index, e.Position, e.Err)
}

func (e ValidatorError) Unwrap() error {
	return e.Err
}

// errorKind labels errors for metrics.
func errorKind(err error) string {
	for _, k := range []struct {
		err  error
		name string
	}{
		{ErrInvalidSignature, "invalid_signature"},
		{ErrInvalidMembershipProof, "invalid_membership_proof"},
		{ErrInsufficientSignatures, "insufficient_signatures"},
		{ErrBitfieldMismatch, "bitfield_mismatch"},
		{ErrUnknownCommitment, "unknown_commitment"},
		{ErrTooEarly, "too_early"},
		{ErrExpired, "expired"},
		{ErrRejected, "rejected"},
		{ErrAlreadyCompleted, "already_completed"},
		{ErrCommitmentMismatch, "commitment_mismatch"},
		{ErrStaleCommitment, "stale_commitment"},
		{ErrMalformedProof, "malformed_proof"},
		{ErrMalformedBitfield, "malformed_bitfield"},
		{ErrInvalidMMRProof, "invalid_mmr_proof"},
		{ErrOutOfRange, "out_of_range"},
		{ErrDuplicatePosition, "duplicate_position"},
	} {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "internal"
}
