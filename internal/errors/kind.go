package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the chat layer can choose the user-facing reply.
type Kind string

const (
	KindParseFailure       Kind = "parse_failure"
	KindAmbiguousReference Kind = "ambiguous_reference"
	KindAmbiguousName      Kind = "ambiguous_name"
	KindNoMatch            Kind = "no_match"
	KindMissingParameter   Kind = "missing_parameter"
	KindStoreError         Kind = "store_error"
	KindLLMTransport       Kind = "llm_transport"
	KindInvalidInput       Kind = "invalid_input"
	KindRateLimited        Kind = "rate_limited"
	KindInternal           Kind = "internal"
)

// Error carries an operation, a failure kind and an optional safe message.
// Message is shown to the user verbatim when set; it must never contain SQL.
type Error struct {
	Kind    Kind   // Failure category
	Op      string // Operation being performed (e.g., "run_template", "detect_intent")
	Message string // User-safe detail, may be empty
	Cause   error  // Underlying error
}

func (e *Error) Error() string {
	switch {
	case e.Cause != nil && e.Message != "":
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("[%s:%s] %v", e.Kind, e.Op, e.Cause)
	default:
		return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error without an underlying cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap wraps err with a kind and operation.
// Returns nil if err is nil.
func Wrap(err error, kind Kind, op, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Message: message, Cause: err}
}

// KindOf returns the Kind of the first *Error in err's chain.
// Sentinels without an *Error wrapper are mapped to their natural kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrMissingParameter):
		return KindMissingParameter
	case errors.Is(err, ErrRateLimitExceeded):
		return KindRateLimited
	case errors.Is(err, ErrNoReference):
		return KindAmbiguousReference
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrEmptyUtterance):
		return KindInvalidInput
	case errors.Is(err, ErrNotFound):
		return KindNoMatch
	}
	return KindInternal
}

// UserMessage returns the Spanish text shown to the user for err.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return DefaultMessage(KindOf(err))
}

// DefaultMessage returns the canned Spanish reply for a failure kind.
func DefaultMessage(kind Kind) string {
	switch kind {
	case KindParseFailure:
		return "No logré entender tu solicitud. ¿Podrías reformularla?"
	case KindAmbiguousReference:
		return "No tengo claro a qué alumno te refieres. Indica su nombre completo o su CURP."
	case KindAmbiguousName:
		return "Encontré varios alumnos con ese nombre. Elige uno de la lista."
	case KindNoMatch:
		return "No encontré alumnos que coincidan con tu búsqueda."
	case KindMissingParameter:
		return "Falta información para realizar la consulta. ¿Puedes dar más detalles?"
	case KindStoreError:
		return "Ocurrió un problema al consultar la base de datos. Intenta de nuevo."
	case KindLLMTransport:
		return "Lo siento, no pude procesar tu mensaje en este momento. Intenta de nuevo en unos segundos."
	case KindInvalidInput:
		return "Escribe una consulta para poder ayudarte."
	case KindRateLimited:
		return "Has enviado demasiadas consultas seguidas. Espera un momento e intenta de nuevo."
	default:
		return "Ocurrió un error inesperado. Intenta de nuevo."
	}
}
