package inter

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/centrifuge/go-substrate-rpc-client/v2/scale"
	"github.com/centrifuge/go-substrate-rpc-client/v2/types"
)

var (
	ErrMalformedEncoding    = errors.New("malformed encoding: structure invalid or truncated")
	ErrNonCanonicalEncoding = errors.New("non canonical encoding: unread trailing bytes")
)

// Source chain layouts. Fields are encoded in declaration order.
type (
	commitmentSCALE struct {
		Payload        types.H256
		BlockNumber    types.U64
		ValidatorSetID types.U64
	}

	mmrLeafSCALE struct {
		ParentNumber         types.U32
		ParentHash           types.H256
		ParachainHeadsRoot   types.H256
		NextAuthoritySetID   types.U64
		NextAuthoritySetLen  types.U32
		NextAuthoritySetRoot types.H256
	}

	channelLeafSCALE struct {
		SourceBlock types.U64
		Commitment  types.H256
	}
)

// encodeSCALE encodes one of the fixed layouts above, which cannot fail
// against an in-memory buffer.
func encodeSCALE(v interface{}) []byte {
	var buf bytes.Buffer
	if err := scale.NewEncoder(&buf).Encode(v); err != nil {
		panic(fmt.Sprintf("scale encoding of %T: %v", v, err))
	}
	return buf.Bytes()
}

// decodeSCALE decodes raw into v and requires every byte to be consumed.
func decodeSCALE(raw []byte, v interface{}) error {
	r := bytes.NewReader(raw)
	if err := scale.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}
	if r.Len() != 0 {
		return fmt.Errorf("%w: %d bytes", ErrNonCanonicalEncoding, r.Len())
	}
	return nil
}
