package catalog

import "errors"

var ErrInvalidStateTransition = errors.New("catalog: invalid stock state transition")

type StockStatus string

const (
	StockAvailable StockStatus = "available"
	StockDepleted  StockStatus = "depleted"
)

// StockState implements the state pattern for an item's stock lifecycle.
// Purchases only move forward (Available -> Depleted); owner edits may move
// stock either way.
type StockState interface {
	Status() StockStatus
	OnPurchase(remaining int) (StockState, error)
	OnOwnerEdit(quantity int) StockState
}

func StateFor(quantity int) StockState {
	if quantity > 0 {
		return availableState{}
	}
	return depletedState{}
}

type availableState struct{}

func (availableState) Status() StockStatus { return StockAvailable }

func (availableState) OnPurchase(remaining int) (StockState, error) {
	if remaining < 0 {
		return nil, ErrInvalidStateTransition
	}
	return StateFor(remaining), nil
}

func (availableState) OnOwnerEdit(quantity int) StockState { return StateFor(quantity) }

type depletedState struct{}

func (depletedState) Status() StockStatus { return StockDepleted }

// A depleted item cannot satisfy any positive order.
func (depletedState) OnPurchase(int) (StockState, error) {
	return nil, ErrInvalidStateTransition
}

func (depletedState) OnOwnerEdit(quantity int) StockState { return StateFor(quantity) }
