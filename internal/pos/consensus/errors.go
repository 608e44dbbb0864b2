package consensus

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a kind of consensus rule violation.
type ErrorCode int

const (
	// ErrDifficultyMismatch indicates the claimed bits differ from the required target.
	ErrDifficultyMismatch ErrorCode = iota

	// ErrTimeViolation indicates a coinstake older than the output it spends.
	ErrTimeViolation

	// ErrMinAgeViolation indicates a staked output younger than the minimum stake age.
	ErrMinAgeViolation

	// ErrMinConfirmationsViolation indicates a staked output with too few confirmations.
	ErrMinConfirmationsViolation

	// ErrWrongEra indicates a coinstake whose timestamp does not belong to the kernel era of its height.
	ErrWrongEra

	// ErrProofBelowTarget indicates a kernel hash above the weighted target.
	ErrProofBelowTarget

	// ErrKernelInputNotFound indicates the staked output is not in the unspent set.
	ErrKernelInputNotFound

	// ErrKernelModifierUnavailable indicates the chain does not yet hold the stake modifier the kernel
	// needs.
	ErrKernelModifierUnavailable
)

var errorCodeStrings = map[ErrorCode]string{
	ErrDifficultyMismatch:        "ErrDifficultyMismatch",
	ErrTimeViolation:             "ErrTimeViolation",
	ErrMinAgeViolation:           "ErrMinAgeViolation",
	ErrMinConfirmationsViolation: "ErrMinConfirmationsViolation",
	ErrWrongEra:                  "ErrWrongEra",
	ErrProofBelowTarget:          "ErrProofBelowTarget",
	ErrKernelInputNotFound:       "ErrKernelInputNotFound",
	ErrKernelModifierUnavailable: "ErrKernelModifierUnavailable",
}

func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// RuleError rejects a block. It never indicates a local failure.
type RuleError struct {
	ErrorCode   ErrorCode
	Description string
}

func (e RuleError) Error() string {
	return e.Description
}

// NewRuleError creates a RuleError.
func NewRuleError(c ErrorCode, format string, args ...any) RuleError {
	return RuleError{ErrorCode: c, Description: fmt.Sprintf(format, args...)}
}

// IsRuleError reports whether err carries a RuleError with code c.
func IsRuleError(err error, c ErrorCode) bool {
	var re RuleError
	return errors.As(err, &re) && re.ErrorCode == c
}

// DifficultyMismatchError carries both compact targets of a rejected header.
type DifficultyMismatchError struct {
	Calculated uint32
	Claimed    uint32
}

func (e *DifficultyMismatchError) Error() string {
	return fmt.Sprintf("difficulty bits %08x do not match calculated %08x", e.Claimed, e.Calculated)
}

func (e *DifficultyMismatchError) Unwrap() error {
	return RuleError{ErrorCode: ErrDifficultyMismatch, Description: e.Error()}
}
