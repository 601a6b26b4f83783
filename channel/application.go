package channel

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

//go:generate go run github.com/golang/mock/mockgen -package=mock -destination=mock/application.go github.com/rony4d/beefy-bridge/channel Application

// Application receives the messages addressed to it.
//
// origin is the address of the delivering channel. Effects must be recorded
// in journal: a failed or panicking call is reverted.
type Application interface {
	HandleMessage(origin common.Address, payload []byte, journal *Journal) error
}

// Journal collects the effects of one application call.
type Journal struct {
	logs []*types.Log
	undo []func()
}

// AddLog emits l if the call succeeds.
func (j *Journal) AddLog(l *types.Log) {
	j.logs = append(j.logs, l)
}

// OnRevert registers fn to undo a state change if the call fails.
func (j *Journal) OnRevert(fn func()) {
	j.undo = append(j.undo, fn)
}

// Logs emitted so far.
func (j *Journal) Logs() []*types.Log {
	return j.logs
}

func (j *Journal) revert() {
	for i := len(j.undo) - 1; i >= 0; i-- {
		j.undo[i]()
	}
	j.undo = nil
	j.logs = nil
}
