package ethapp

import (
	"bytes"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

var errUnexpectedLog = errors.New("unexpected log")

// UnlockPayload encodes an unlockETH call, the payload of inbound messages.
func UnlockPayload(recipient common.Address, amount *uint256.Int) ([]byte, error) {
	return contractABI.Pack("unlockETH", recipient, amount.ToBig())
}

// Mint is a decoded outbound mint call.
type Mint struct {
	Sender    common.Address
	Recipient []byte
	Amount    *uint256.Int
}

// ParseMint decodes the payload of an outbound message.
func ParseMint(payload []byte) (Mint, error) {
	if len(payload) < 4 || !bytes.Equal(payload[:4], mintMethodID) {
		return Mint{}, ErrUnknownMethod
	}
	vals, err := contractABI.Methods["mint"].Inputs.Unpack(payload[4:])
	if err != nil {
		return Mint{}, err
	}
	amount, overflow := uint256.FromBig(vals[2].(*big.Int))
	if overflow {
		return Mint{}, ErrAmountOverflow
	}
	return Mint{
		Sender:    vals[0].(common.Address),
		Recipient: vals[1].([]byte),
		Amount:    amount,
	}, nil
}

// Unlocked is a decoded Unlocked event.
type Unlocked struct {
	Recipient common.Address
	Amount    *uint256.Int
}

// ParseUnlocked decodes an Unlocked log.
func ParseUnlocked(l *types.Log) (Unlocked, error) {
	if len(l.Topics) == 0 || l.Topics[0] != UnlockedEventID {
		return Unlocked{}, errUnexpectedLog
	}
	vals, err := contractABI.Events["Unlocked"].Inputs.Unpack(l.Data)
	if err != nil {
		return Unlocked{}, err
	}
	amount, _ := uint256.FromBig(vals[1].(*big.Int))
	return Unlocked{
		Recipient: vals[0].(common.Address),
		Amount:    amount,
	}, nil
}

// Locked is a decoded Locked event.
type Locked struct {
	Sender    common.Address
	Recipient []byte
	Amount    *uint256.Int
}

// ParseLocked decodes a Locked log.
func ParseLocked(l *types.Log) (Locked, error) {
	if len(l.Topics) == 0 || l.Topics[0] != LockedEventID {
		return Locked{}, errUnexpectedLog
	}
	vals, err := contractABI.Events["Locked"].Inputs.Unpack(l.Data)
	if err != nil {
		return Locked{}, err
	}
	amount, _ := uint256.FromBig(vals[2].(*big.Int))
	return Locked{
		Sender:    vals[0].(common.Address),
		Recipient: vals[1].([]byte),
		Amount:    amount,
	}, nil
}
