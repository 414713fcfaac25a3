package amm

import "fmt"

// Kind enumerates every recoverable pool failure.
type Kind uint8

const (
	KindZeroAmount Kind = iota + 1
	KindInsufficientBalance
	KindNonEquivalentValue
	KindThresholdNotReached
	KindZeroLiquidity
	KindInvalidShare
	KindInsufficientLiquidity
	KindSlippageExceeded
	KindInvalidState
	KindAmountOverflow
)

var kindNames = map[Kind]string{
	KindZeroAmount:            "ZeroAmount",
	KindInsufficientBalance:   "InsufficientBalance",
	KindNonEquivalentValue:    "NonEquivalentValue",
	KindThresholdNotReached:   "ThresholdNotReached",
	KindZeroLiquidity:         "ZeroLiquidity",
	KindInvalidShare:          "InvalidShare",
	KindInsufficientLiquidity: "InsufficientLiquidity",
	KindSlippageExceeded:      "SlippageExceeded",
	KindInvalidState:          "InvalidState",
	KindAmountOverflow:        "AmountOverflow",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Error is returned by every pool operation that rejects its input. A
// returned Error guarantees the pool was not modified.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return "amm: " + e.Kind.String()
	}
	return fmt.Sprintf("amm: %s: %s", e.Kind, e.Msg)
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrZeroAmount)
// works regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrZeroAmount            = &Error{Kind: KindZeroAmount}
	ErrInsufficientBalance   = &Error{Kind: KindInsufficientBalance}
	ErrNonEquivalentValue    = &Error{Kind: KindNonEquivalentValue}
	ErrThresholdNotReached   = &Error{Kind: KindThresholdNotReached}
	ErrZeroLiquidity         = &Error{Kind: KindZeroLiquidity}
	ErrInvalidShare          = &Error{Kind: KindInvalidShare}
	ErrInsufficientLiquidity = &Error{Kind: KindInsufficientLiquidity}
	ErrSlippageExceeded      = &Error{Kind: KindSlippageExceeded}
	ErrInvalidState          = &Error{Kind: KindInvalidState}
	ErrAmountOverflow        = &Error{Kind: KindAmountOverflow}
)

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
