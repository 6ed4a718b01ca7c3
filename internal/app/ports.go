package app

import (
	"context"
	"io"

	"study-vault/internal/domain"
)

// Store is the persistent record store. Every multi-record effect runs inside RunInTx so
// that either all of its writes land or none do.
type Store interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of record operations available inside a transaction.
// Lookups return the domain NotFound sentinels when a record is absent.
type Tx interface {
	CreateUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, id string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
	// UsernameTaken reports whether another user (not excludeID) holds the username.
	UsernameTaken(ctx context.Context, username, excludeID string) (bool, error)
	ListUsersByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
	UpdateUser(ctx context.Context, user domain.User) error
	DeleteUser(ctx context.Context, id string) error
	// AddXP atomically increments a user's XP and returns the new total.
	AddXP(ctx context.Context, userID string, delta int) (int, error)
	// AddLike inserts into the liked set and reports whether it was absent.
	AddLike(ctx context.Context, userID, resourceID string) (bool, error)
	// RemoveLike removes from the liked set and reports whether it was present.
	RemoveLike(ctx context.Context, userID, resourceID string) (bool, error)

	CreateResource(ctx context.Context, res domain.Resource) error
	GetResource(ctx context.Context, id string) (domain.Resource, error)
	UpdateResource(ctx context.Context, res domain.Resource) error
	// DeleteResource removes the resource, its quiz and every like link to it.
	DeleteResource(ctx context.Context, id string) error
	ListResources(ctx context.Context, filter domain.ResourceFilter) ([]domain.Resource, error)
	// AdjustLikes atomically adds delta to the like counter, flooring at zero, and returns the result.
	AdjustLikes(ctx context.Context, resourceID string, delta int) (int, error)

	CreateQuiz(ctx context.Context, quiz domain.Quiz) error
	GetQuiz(ctx context.Context, id string) (domain.Quiz, error)
	CreateAttempt(ctx context.Context, attempt domain.QuizAttempt) error
	CountAttempts(ctx context.Context, userID string) (int, error)

	CreateNotification(ctx context.Context, n domain.Notification) error
	// ListNotifications returns the user's notifications newest first.
	ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error)
	// DeleteNotification removes a notification owned by userID.
	DeleteNotification(ctx context.Context, userID, id string) error

	CreateSubject(ctx context.Context, subject domain.Subject) error
	GetSubject(ctx context.Context, id string) (domain.Subject, error)
	ListSubjects(ctx context.Context) ([]domain.Subject, error)
	DeleteSubject(ctx context.Context, id string) error
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// BlobStore keeps uploaded documents and hands back a retrieval URL.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
}

// Publisher pushes an event to every live session of a user.
type Publisher interface {
	Publish(ctx context.Context, userID string, event domain.NotificationEvent) error
}

// PasswordHasher hashes and verifies credentials.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}
