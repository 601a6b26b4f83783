package channel

import (
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ContractABI declares the events emitted by the channels.
// None of the arguments is indexed, topic0 is the event id.
const ContractABI = `[
	{"anonymous":false,"inputs":[
		{"indexed":false,"internalType":"uint256","name":"nonce","type":"uint256"},
		{"indexed":false,"internalType":"address","name":"senderAddress","type":"address"},
		{"indexed":false,"internalType":"string","name":"targetApplicationId","type":"string"},
		{"indexed":false,"internalType":"bytes","name":"payload","type":"bytes"}],
	"name":"Message","type":"event"},
	{"anonymous":false,"inputs":[
		{"indexed":false,"internalType":"uint256","name":"nonce","type":"uint256"},
		{"indexed":false,"internalType":"bool","name":"result","type":"bool"}],
	"name":"MessageDelivered","type":"event"}
]`

var (
	contractABI abi.ABI

	// MessageEventID is topic0 of Message logs.
	MessageEventID common.Hash
	// MessageDeliveredEventID is topic0 of MessageDelivered logs.
	MessageDeliveredEventID common.Hash
)

var errUnexpectedLog = errors.New("unexpected log")

func init() {
	var err error
	contractABI, err = abi.JSON(strings.NewReader(ContractABI))
	if err != nil {
		panic(err)
	}
	for name, id := range map[string]*common.Hash{
		"Message":          &MessageEventID,
		"MessageDelivered": &MessageDeliveredEventID,
	} {
		ev, ok := contractABI.Events[name]
		if !ok {
			panic("unknown channel event " + name)
		}
		*id = ev.ID
	}
}

func newLog(address common.Address, event string, args ...interface{}) (*types.Log, error) {
	ev := contractABI.Events[event]
	data, err := ev.Inputs.Pack(args...)
	if err != nil {
		return nil, err
	}
	return &types.Log{
		Address: address,
		Topics:  []common.Hash{ev.ID},
		Data:    data,
	}, nil
}

func unpackLog(l *types.Log, event string) ([]interface{}, error) {
	ev := contractABI.Events[event]
	if len(l.Topics) == 0 || l.Topics[0] != ev.ID {
		return nil, errUnexpectedLog
	}
	return ev.Inputs.Unpack(l.Data)
}

// MessageEvent is the decoded Message log of an outbound channel.
type MessageEvent struct {
	Channel             common.Address
	Nonce               uint64
	SenderAddress       common.Address
	TargetApplicationID string
	Payload             []byte
}

// NewMessageLog encodes a Message event.
func NewMessageLog(channel common.Address, nonce uint64, sender common.Address, targetApplicationID string, payload []byte) (*types.Log, error) {
	return newLog(channel, "Message", new(big.Int).SetUint64(nonce), sender, targetApplicationID, payload)
}

// ParseMessageLog decodes a Message event.
func ParseMessageLog(l *types.Log) (MessageEvent, error) {
	vals, err := unpackLog(l, "Message")
	if err != nil {
		return MessageEvent{}, err
	}
	return MessageEvent{
		Channel:             l.Address,
		Nonce:               vals[0].(*big.Int).Uint64(),
		SenderAddress:       vals[1].(common.Address),
		TargetApplicationID: vals[2].(string),
		Payload:             vals[3].([]byte),
	}, nil
}

// DeliveredEvent is the decoded MessageDelivered log of an inbound channel.
type DeliveredEvent struct {
	Channel common.Address
	Nonce   uint64
	Result  bool
}

// NewMessageDeliveredLog encodes a MessageDelivered event.
func NewMessageDeliveredLog(channel common.Address, nonce uint64, result bool) (*types.Log, error) {
	return newLog(channel, "MessageDelivered", new(big.Int).SetUint64(nonce), result)
}

// ParseMessageDeliveredLog decodes a MessageDelivered event.
func ParseMessageDeliveredLog(l *types.Log) (DeliveredEvent, error) {
	vals, err := unpackLog(l, "MessageDelivered")
	if err != nil {
		return DeliveredEvent{}, err
	}
	return DeliveredEvent{
		Channel: l.Address,
		Nonce:   vals[0].(*big.Int).Uint64(),
		Result:  vals[1].(bool),
	}, nil
}
