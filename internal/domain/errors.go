package domain

import "errors"

// Kind classifies failures so transports can map them without knowing every sentinel.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindValidation
	KindAuthorization
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Error is a classified failure with a human readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound builds a KindNotFound error.
func NotFound(msg string) error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Validation builds a KindValidation error.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Message: msg}
}

// Forbidden builds a KindAuthorization error.
func Forbidden(msg string) error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

// Upstream wraps a blob store or persistence failure.
func Upstream(msg string, err error) error {
	return &Error{Kind: KindUpstream, Message: msg, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the message that is safe to show to a caller.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

var (
	// ErrUserNotFound is returned when a user id does not resolve.
	ErrUserNotFound = NotFound("user not found")
	// ErrResourceNotFound is returned when a resource id does not resolve.
	ErrResourceNotFound = NotFound("resource not found")
	// ErrQuizNotFound is returned when a resource carries no quiz or the quiz is gone.
	ErrQuizNotFound = NotFound("quiz not found")
	// ErrNotificationNotFound is returned when a notification is absent or belongs to someone else.
	ErrNotificationNotFound = NotFound("notification not found")
	// ErrSubjectNotFound is returned when a subject id does not resolve.
	ErrSubjectNotFound = NotFound("subject not found")

	ErrUsernameTaken   = Validation("username is already taken")
	ErrEmailTaken      = Validation("a user with this email already exists")
	ErrWeakPassword    = Validation("password must be at least 5 characters and include a number")
	ErrLongPassword    = Validation("password must be at most 72 bytes")
	ErrBadCredentials  = Validation("invalid credentials")
	ErrWrongPassword   = Validation("current password is incorrect")
	ErrAlreadyApproved = Validation("resource is already approved")
	ErrQuizExists      = Validation("resource already has a quiz")
	ErrFileRequired    = Validation("file is required")
	ErrNotPDF          = Validation("only PDF files are allowed")
	ErrFileTooLarge    = Validation("file exceeds the upload size limit")

	ErrCannotBePublic = Forbidden("cannot make this resource public")
	ErrNotApprovedYet = Forbidden("resource must be approved before it can be public")
	ErrNotPublic      = Forbidden("only approved public resources can be liked or attempted")
	ErrTeacherOnly    = Forbidden("only teachers can perform this action")
	ErrNotOwner       = Forbidden("you are not authorized to modify this record")
	ErrUnauthorized   = Forbidden("authentication required")
)
