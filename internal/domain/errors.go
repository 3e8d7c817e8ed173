// internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// Kind classifies a rejected operation so a caller can decide whether to retry,
// wait, adjust parameters or give up.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindPrecondition
	KindSlippage
	KindLedger
	KindAuthorization
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindPrecondition:
		return "precondition"
	case KindSlippage:
		return "slippage"
	case KindLedger:
		return "ledger"
	case KindAuthorization:
		return "authorization"
	default:
		return "unknown"
	}
}

// Code is a stable reason code surfaced to the presentation layer.
type Code string

const (
	// Validation
	CodeBadAddress      Code = "bad_address"
	CodeBadAmount       Code = "bad_amount"
	CodeBadName         Code = "bad_name"
	CodeBadSymbol       Code = "bad_symbol"
	CodeBadSupply       Code = "bad_supply"
	CodeBadTarget       Code = "bad_target"
	CodeBadVesting      Code = "bad_vesting_days"
	CodeBadParams       Code = "bad_params"
	CodeZeroOutput      Code = "zero_output"
	CodeUnknownLaunch   Code = "unknown_launch"
	CodeDuplicateLaunch Code = "duplicate_launch"

	// Precondition
	CodeWrongLaunchType        Code = "wrong_launch_type"
	CodeWrongState             Code = "wrong_state"
	CodeDeadlinePassed         Code = "deadline_passed"
	CodeDeadlineNotPassed      Code = "deadline_not_passed"
	CodeCooldownActive         Code = "cooldown_active"
	CodeAlreadyClaimed         Code = "already_claimed"
	CodeAlreadyGraduated       Code = "already_graduated"
	CodeNotGraduated           Code = "not_graduated"
	CodeNotEligible            Code = "not_eligible"
	CodeNothingToClaim         Code = "nothing_to_claim"
	CodeBelowMinimum           Code = "below_minimum"
	CodeAboveWalletCap         Code = "above_wallet_cap"
	CodeExceedsMax             Code = "exceeds_max"
	CodeInsufficientFunds      Code = "insufficient_funds"
	CodeInsufficientLiquidity  Code = "insufficient_liquidity"
	CodeMarketCapBelowStart    Code = "market_cap_below_start"
	CodeMarketCapBelowGraduate Code = "market_cap_below_graduation"
	CodeCommunityControl       Code = "community_control_active"
	CodeNoCommunityControl     Code = "community_control_inactive"
	CodeCheckTooEarly          Code = "check_too_early"
	CodeTradingDisabled        Code = "trading_disabled"
	CodeAlreadyBurned          Code = "already_burned"

	// Slippage
	CodeSlippageExceeded Code = "slippage_exceeded"

	// Ledger
	CodeLedgerUnavailable Code = "ledger_unavailable"
	CodeLedgerBusy        Code = "ledger_busy"
	CodeConfirmTimeout    Code = "confirmation_timeout"
	CodeOracleUnavailable Code = "oracle_unavailable"

	// Authorization
	CodeNotFounder       Code = "not_founder"
	CodeNotPlatformOwner Code = "not_platform_owner"
	CodeNotAuthorized    Code = "not_authorized"
)

// Error is the single error type returned for rejected launchpad operations.
type Error struct {
	Kind Kind
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Kind, e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Code, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on reason code so callers can write errors.Is(err, domain.ErrAlreadyClaimed).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Retryable reports whether re-submitting the same operation may succeed.
// Only ledger-class failures qualify: preconditions are re-checked at commit.
func (e *Error) Retryable() bool {
	return e.Kind == KindLedger
}

func newError(kind Kind, code Code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Msg: fmt.Sprintf(format, args...)}
}

func Validation(code Code, format string, args ...any) *Error {
	return newError(KindValidation, code, format, args...)
}

func Precondition(code Code, format string, args ...any) *Error {
	return newError(KindPrecondition, code, format, args...)
}

func Unauthorized(code Code, format string, args ...any) *Error {
	return newError(KindAuthorization, code, format, args...)
}

// Slippage reports a realized output worse than the caller's minimum.
func Slippage(got, minOut uint64) *Error {
	return newError(KindSlippage, CodeSlippageExceeded, "output %d below minimum %d", got, minOut)
}

// LedgerFailure wraps a transport or confirmation failure unrelated to business logic.
func LedgerFailure(code Code, err error) *Error {
	return &Error{Kind: KindLedger, Code: code, Msg: "ledger call failed", Err: err}
}

// Sentinels for errors.Is.
var (
	ErrUnknownLaunch     = &Error{Kind: KindValidation, Code: CodeUnknownLaunch}
	ErrWrongLaunchType   = &Error{Kind: KindPrecondition, Code: CodeWrongLaunchType}
	ErrWrongState        = &Error{Kind: KindPrecondition, Code: CodeWrongState}
	ErrDeadlinePassed    = &Error{Kind: KindPrecondition, Code: CodeDeadlinePassed}
	ErrCooldownActive    = &Error{Kind: KindPrecondition, Code: CodeCooldownActive}
	ErrAlreadyClaimed    = &Error{Kind: KindPrecondition, Code: CodeAlreadyClaimed}
	ErrAlreadyGraduated  = &Error{Kind: KindPrecondition, Code: CodeAlreadyGraduated}
	ErrNotEligible       = &Error{Kind: KindPrecondition, Code: CodeNotEligible}
	ErrNothingToClaim    = &Error{Kind: KindPrecondition, Code: CodeNothingToClaim}
	ErrExceedsMax        = &Error{Kind: KindPrecondition, Code: CodeExceedsMax}
	ErrCommunityControl  = &Error{Kind: KindPrecondition, Code: CodeCommunityControl}
	ErrSlippageExceeded  = &Error{Kind: KindSlippage, Code: CodeSlippageExceeded}
	ErrNotFounder        = &Error{Kind: KindAuthorization, Code: CodeNotFounder}
	ErrNotPlatformOwner  = &Error{Kind: KindAuthorization, Code: CodeNotPlatformOwner}
	ErrLedgerUnavailable = &Error{Kind: KindLedger, Code: CodeLedgerUnavailable}
)

// KindOf extracts the error kind, or 0 when err is not a launchpad error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// CodeOf extracts the reason code, or "" when err is not a launchpad error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsRetryable reports whether err is a ledger-class failure.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable()
}
