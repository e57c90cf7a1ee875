package apperr

import "errors"

// Kind классифицирует ошибку для маппинга в HTTP статус
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindGone
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindGone:
		return "gone"
	default:
		return "internal"
	}
}

// Error ошибка с видом и сообщением, пригодным для клиента.
// Err - сентинел пакета-источника, доступен через errors.Is.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New создаёт классифицированную ошибку поверх сентинела
func New(kind Kind, sentinel error, message string) error {
	return &Error{Kind: kind, Message: message, Err: sentinel}
}

func Validation(sentinel error, message string) error {
	return New(KindValidation, sentinel, message)
}

func Conflict(sentinel error, message string) error {
	return New(KindConflict, sentinel, message)
}

func NotFound(sentinel error, message string) error {
	return New(KindNotFound, sentinel, message)
}

func Gone(sentinel error, message string) error {
	return New(KindGone, sentinel, message)
}

// KindOf возвращает вид ошибки; всё неклассифицированное считается внутренней ошибкой
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf возвращает сообщение для клиента. Для внутренних ошибок - fallback,
// детали наружу не отдаются.
func MessageOf(err error, fallback string) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		return appErr.Error()
	}
	return fallback
}
