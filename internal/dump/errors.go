package dump

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration   = errors.New("invalid deployment configuration")
	ErrUnknownContract = errors.New("unknown contract")
	ErrMissingBytecode = errors.New("missing bytecode")
	ErrMissingLayout   = errors.New("missing storage layout")
	ErrSlotCollision   = errors.New("storage slot collision")
)

// ContractError attributes a fault to the predeploy being processed.
type ContractError struct {
	Contract string
	Err      error
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("predeploy %s: %v", e.Contract, e.Err)
}

func (e *ContractError) Unwrap() error {
	return e.Err
}

func contractError(contract string, err error) error {
	return &ContractError{Contract: contract, Err: err}
}
