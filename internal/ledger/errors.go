package ledger

import (
	"errors"
	"strings"
)

// Kind é a enumeração fechada de erros do ledger. Nenhum tipo de erro de driver
// de banco atravessa essa fronteira.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInsufficientFunds
	KindMarketClosed
	KindConflictingSide
	KindAlreadyResolved
	KindInvalidArgument
	KindAlreadyExists
	KindStoreUnavailable
)

var kindNames = map[Kind]string{
	KindUnknown:           "Unknown",
	KindNotFound:          "NotFound",
	KindInsufficientFunds: "InsufficientFunds",
	KindMarketClosed:      "MarketClosed",
	KindConflictingSide:   "ConflictingSide",
	KindAlreadyResolved:   "AlreadyResolved",
	KindInvalidArgument:   "InvalidArgument",
	KindAlreadyExists:     "AlreadyExists",
	KindStoreUnavailable:  "StoreUnavailable",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return kindNames[KindUnknown]
}

// Sentinelas para uso com errors.Is
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds}
	ErrMarketClosed      = &Error{Kind: KindMarketClosed}
	ErrConflictingSide   = &Error{Kind: KindConflictingSide}
	ErrAlreadyResolved   = &Error{Kind: KindAlreadyResolved}
	ErrInvalidArgument   = &Error{Kind: KindInvalidArgument}
	ErrAlreadyExists     = &Error{Kind: KindAlreadyExists}
	ErrStoreUnavailable  = &Error{Kind: KindStoreUnavailable}
)

// Error carrega o tipo do erro, a operação e uma mensagem para o cliente
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

// E cria um erro do ledger
func E(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Wrap cria um erro do ledger preservando a causa
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is compara pelo Kind quando o alvo é uma sentinela (sem Op, Msg nem causa)
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op != "" || t.Msg != "" || t.Err != nil {
		return e == t
	}
	return e.Kind == t.Kind
}

// Message retorna o texto destinado ao cliente
func (e *Error) Message() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

// KindOf extrai o Kind de qualquer erro da cadeia; KindUnknown se não houver
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is informa se err é do tipo kind
func Is(err error, kind Kind) bool { return KindOf(err) == kind }
