package ledger

import "fmt"

// InsufficientEnergyError carries the deficit for a failed consume, mapped
// by the caller to huberrors.KindInsufficientEnergy with {required,current,deficit}.
type InsufficientEnergyError struct {
	Required int
	Current  int
}

func (e *InsufficientEnergyError) Error() string {
	return fmt.Sprintf("insufficient energy: required %d, current %d", e.Required, e.Current)
}

func (e *InsufficientEnergyError) Deficit() int { return e.Required - e.Current }
