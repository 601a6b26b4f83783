// Package ethapp implements the ETH application of the bridge.
//
// Overview:
//
//	SendETH locks value on this chain and asks the peer application on the
//	source chain, through an outbound channel, to mint the wrapped asset.
//	The reverse direction arrives as an unlockETH(address,uint256) message
//	delivered by an inbound channel, which releases locked value.
//
// Security Model:
//   - Only the configured inbound channels can deliver unlock messages
//   - Unlocks never exceed the locked total
//   - A failed unlock leaves no trace: its writes are undone through the
//     delivery journal
package ethapp

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/Fantom-foundation/lachesis-base/kvdb"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/rony4d/beefy-bridge/channel"
)

var (
	// ContractAddress is the default address of the application.
	ContractAddress = common.HexToAddress("0xe7a0000000000000000000000000000000000000")

	// ContractABI declares the messages and events of the application:
	//   - unlockETH(address _recipient, uint256 _amount): inbound message
	//   - mint(address _sender, bytes _recipient, uint256 _amount): outbound message
	//   - Locked(address _sender, bytes _recipient, uint256 _amount)
	//   - Unlocked(address _recipient, uint256 _amount)
	ContractABI = `[
		{"inputs":[{"internalType":"address","name":"_recipient","type":"address"},{"internalType":"uint256","name":"_amount","type":"uint256"}],"name":"unlockETH","outputs":[],"stateMutability":"nonpayable","type":"function"},
		{"inputs":[{"internalType":"address","name":"_sender","type":"address"},{"internalType":"bytes","name":"_recipient","type":"bytes"},{"internalType":"uint256","name":"_amount","type":"uint256"}],"name":"mint","outputs":[],"stateMutability":"nonpayable","type":"function"},
		{"anonymous":false,"inputs":[{"indexed":false,"internalType":"address","name":"_sender","type":"address"},{"indexed":false,"internalType":"bytes","name":"_recipient","type":"bytes"},{"indexed":false,"internalType":"uint256","name":"_amount","type":"uint256"}],"name":"Locked","type":"event"},
		{"anonymous":false,"inputs":[{"indexed":false,"internalType":"address","name":"_recipient","type":"address"},{"indexed":false,"internalType":"uint256","name":"_amount","type":"uint256"}],"name":"Unlocked","type":"event"}
	]`
)

var (
	ErrUnauthorizedChannel = errors.New("message not delivered by an authorized channel")
	ErrUnknownMethod       = errors.New("unknown method")
	ErrInsufficientLocked  = errors.New("amount exceeds locked value")
	ErrZeroAmount          = errors.New("zero amount")
	ErrAmountOverflow      = errors.New("amount overflows uint256")
)

var (
	contractABI abi.ABI

	unlockMethodID []byte // unlockETH(address,uint256)
	mintMethodID   []byte // mint(address,bytes,uint256)

	LockedEventID   common.Hash
	UnlockedEventID common.Hash
)

func init() {
	var err error
	contractABI, err = abi.JSON(strings.NewReader(ContractABI))
	if err != nil {
		panic(err)
	}
	for name, constID := range map[string]*[]byte{
		"unlockETH": &unlockMethodID,
		"mint":      &mintMethodID,
	} {
		method, exist := contractABI.Methods[name]
		if !exist {
			panic("unknown ETHApp method")
		}
		*constID = make([]byte, len(method.ID))
		copy(*constID, method.ID)
	}
	LockedEventID = contractABI.Events["Locked"].ID
	UnlockedEventID = contractABI.Events["Unlocked"].ID
}

type Config struct {
	Address common.Address
	// TargetApplicationID is the peer application on the source chain.
	TargetApplicationID string
	// Channels may deliver unlock messages.
	Channels []common.Address
}

// key layout of the application database:
//   "l"             -> locked total
//   "b" + recipient -> unlocked balance
var (
	lockedKey     = []byte("l")
	balancePrefix = []byte("b")
)

// App is the ETH application. It is safe for concurrent use.
type App struct {
	cfg          Config
	db           kvdb.Store
	channels     map[common.Address]bool
	basic        channel.Sender
	incentivized channel.Sender
	log          *logrus.Entry

	mu sync.Mutex
}

// New opens the application on db. basic and incentivized are the outbound
// channels SendETH may use.
func New(cfg Config, db kvdb.Store, basic, incentivized channel.Sender) *App {
	a := &App{
		cfg:          cfg,
		db:           db,
		channels:     make(map[common.Address]bool, len(cfg.Channels)),
		basic:        basic,
		incentivized: incentivized,
		log:          logrus.NewEntry(logrus.StandardLogger()).WithField("module", "ethapp"),
	}
	for _, c := range cfg.Channels {
		a.channels[c] = true
	}
	return a
}

// SetLogger replaces the application logger.
func (a *App) SetLogger(log *logrus.Entry) {
	a.log = log
}

// Address of the application.
func (a *App) Address() common.Address {
	return a.cfg.Address
}

func (a *App) getAmount(key []byte) (*uint256.Int, error) {
	raw, err := a.db.Get(key)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(raw), nil
}

func (a *App) putAmount(key []byte, v *uint256.Int) error {
	b := v.Bytes32()
	return a.db.Put(key, b[:])
}

func balanceKey(addr common.Address) []byte {
	return append(append([]byte(nil), balancePrefix...), addr.Bytes()...)
}

// Locked is the total value locked by SendETH and not unlocked yet.
func (a *App) Locked() (*uint256.Int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.getAmount(lockedKey)
}

// Balance is the value unlocked to addr.
func (a *App) Balance(addr common.Address) (*uint256.Int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.getAmount(balanceKey(addr))
}

// SendETH locks amount and sends a mint message for recipient on the
// source chain. It returns the Locked and Message logs.
func (a *App) SendETH(sender common.Address, recipient []byte, amount *uint256.Int, incentivized bool) ([]*types.Log, error) {
	if amount.IsZero() {
		return nil, ErrZeroAmount
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	locked, err := a.getAmount(lockedKey)
	if err != nil {
		return nil, err
	}
	next := new(uint256.Int).Add(locked, amount)
	if next.Lt(locked) {
		return nil, ErrAmountOverflow
	}

	payload, err := contractABI.Pack("mint", sender, recipient, amount.ToBig())
	if err != nil {
		return nil, err
	}
	out := a.basic
	if incentivized {
		out = a.incentivized
	}
	msgLog, err := out.Send(a.cfg.Address, a.cfg.TargetApplicationID, payload)
	if err != nil {
		return nil, fmt.Errorf("send mint message: %w", err)
	}
	if err := a.putAmount(lockedKey, next); err != nil {
		return nil, err
	}
	lockedLog, err := a.newLog("Locked", sender, recipient, amount.ToBig())
	if err != nil {
		return nil, err
	}
	a.log.WithFields(logrus.Fields{"sender": sender.Hex(), "amount": amount.ToBig().String(), "incentivized": incentivized}).Info("ETH locked")
	return []*types.Log{lockedLog, msgLog}, nil
}

// HandleMessage executes an inbound unlockETH message.
func (a *App) HandleMessage(origin common.Address, payload []byte, journal *channel.Journal) error {
	if !a.channels[origin] {
		return fmt.Errorf("%w: %s", ErrUnauthorizedChannel, origin.Hex())
	}
	if len(payload) < 4 || !bytes.Equal(payload[:4], unlockMethodID) {
		return ErrUnknownMethod
	}
	vals, err := contractABI.Methods["unlockETH"].Inputs.Unpack(payload[4:])
	if err != nil {
		return err
	}
	recipient := vals[0].(common.Address)
	amount, overflow := uint256.FromBig(vals[1].(*big.Int))
	if overflow {
		return ErrAmountOverflow
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	locked, err := a.getAmount(lockedKey)
	if err != nil {
		return err
	}
	if locked.Lt(amount) {
		return fmt.Errorf("%w: locked %s, amount %s", ErrInsufficientLocked, locked.ToBig().String(), amount.ToBig().String())
	}
	balance, err := a.getAmount(balanceKey(recipient))
	if err != nil {
		return err
	}
	newLocked := new(uint256.Int).Sub(locked, amount)
	newBalance := new(uint256.Int).Add(balance, amount)
	if newBalance.Lt(balance) {
		return ErrAmountOverflow
	}

	journal.OnRevert(func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		_ = a.putAmount(lockedKey, locked)
		_ = a.putAmount(balanceKey(recipient), balance)
	})
	if err := a.putAmount(lockedKey, newLocked); err != nil {
		return err
	}
	if err := a.putAmount(balanceKey(recipient), newBalance); err != nil {
		return err
	}
	l, err := a.newLog("Unlocked", recipient, amount.ToBig())
	if err != nil {
		return err
	}
	journal.AddLog(l)
	a.log.WithFields(logrus.Fields{"recipient": recipient.Hex(), "amount": amount.ToBig().String()}).Info("ETH unlocked")
	return nil
}

func (a *App) newLog(event string, args ...interface{}) (*types.Log, error) {
	ev := contractABI.Events[event]
	data, err := ev.Inputs.Pack(args...)
	if err != nil {
		return nil, err
	}
	return &types.Log{
		Address: a.cfg.Address,
		Topics:  []common.Hash{ev.ID},
		Data:    data,
	}, nil
}
