// Package gridterr defines the typed error kinds the core returns to its
// callers (spec §7). Every public controller operation either succeeds
// with its documented payload or fails with exactly one of these kinds.
package gridterr

import "errors"

// Kind identifies the category of failure. Callers compare against the
// package-level sentinels with errors.Is, never by inspecting Message.
type Kind int

const (
	// Internal is the catch-all for failures the caller cannot act on
	// (a non-transient database error, an unexpected nil, ...).
	Internal Kind = iota
	UserNotFound
	MovementNotFound
	SubscriptionNotFound
	AnnouncementNotFound
	UserIsNotCreator
	UserNotAdmin
	NotFollowing
	NotSubscribed
	BadCredentials
	Timeout
)

func (k Kind) String() string {
	switch k {
	case UserNotFound:
		return "user not found"
	case MovementNotFound:
		return "movement not found"
	case SubscriptionNotFound:
		return "subscription not found"
	case AnnouncementNotFound:
		return "announcement not found"
	case UserIsNotCreator:
		return "user is not the creator"
	case UserNotAdmin:
		return "user is not an admin"
	case NotFollowing:
		return "not following that leader"
	case NotSubscribed:
		return "not subscribed to movement"
	case BadCredentials:
		return "bad credentials"
	case Timeout:
		return "operation timed out"
	default:
		return "internal error"
	}
}

// Error is the concrete error type returned by core operations. Kind
// carries the machine-checkable category; Message is a human-readable
// description; Cause, when present, is the underlying error that was
// wrapped (a database driver error, a context deadline, ...).
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, gridterr.UserNotFound) work by comparing the
// target against the sentinel values below rather than by type alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New constructs an *Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error of the given kind, carrying cause for
// %w-style unwrapping while keeping Message as the caller-facing text.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// sentinel kind values, used as errors.Is targets: gridterr.Is(err,
// gridterr.KindUserNotFound). Each carries no message; it exists only
// for Kind comparison.
var (
	ErrUserNotFound         = &Error{Kind: UserNotFound}
	ErrMovementNotFound     = &Error{Kind: MovementNotFound}
	ErrSubscriptionNotFound = &Error{Kind: SubscriptionNotFound}
	ErrAnnouncementNotFound = &Error{Kind: AnnouncementNotFound}
	ErrUserIsNotCreator     = &Error{Kind: UserIsNotCreator}
	ErrUserNotAdmin         = &Error{Kind: UserNotAdmin}
	ErrNotFollowing         = &Error{Kind: NotFollowing}
	ErrNotSubscribed        = &Error{Kind: NotSubscribed}
	ErrBadCredentials       = &Error{Kind: BadCredentials}
	ErrTimeout              = &Error{Kind: Timeout}
)

// Is reports whether err (or anything it wraps) is a *Error of kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error, and
// Internal otherwise.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
