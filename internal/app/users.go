package app

import (
	"context"
	"errors"
	"sort"
	"strings"
	"unicode"

	"study-vault/internal/domain"
)

// SignupInput is the account creation form.
type SignupInput struct {
	Username string      `json:"username" validate:"required,min=3,max=32"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required"`
	Role     domain.Role `json:"role" validate:"omitempty,oneof=student teacher"`
}

// UserService manages accounts, credentials and XP read models.
type UserService struct {
	store  Store
	hasher PasswordHasher
	blobs  BlobStore
}

func NewUserService(store Store, hasher PasswordHasher, blobs BlobStore) *UserService {
	return &UserService{store: store, hasher: hasher, blobs: blobs}
}

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// CheckPassword enforces the password policy: at least 5 characters including a digit, and no
// longer than bcrypt can hash.
func CheckPassword(password string) error {
	if len(password) < 5 || !strings.ContainsFunc(password, unicode.IsDigit) {
		return domain.ErrWeakPassword
	}
	if len(password) > MaxPasswordBytes {
		return domain.ErrLongPassword
	}
	return nil
}

// Signup creates an account. Username and email are unique; email is matched case-insensitively.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateInput(in); err != nil {
		return domain.User{}, err
	}
	if err := CheckPassword(in.Password); err != nil {
		return domain.User{}, err
	}
	if in.Role == "" {
		in.Role = domain.RoleStudent
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	user := domain.User{
		ID:           newID(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		Liked:        []string{},
		CreatedAt:    now(),
	}
	err = s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetUserByEmail(ctx, user.Email); err == nil {
			return domain.ErrEmailTaken
		} else if !errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		taken, err := tx.UsernameTaken(ctx, user.Username, "")
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrUsernameTaken
		}
		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Authenticate returns the user owning email when password matches.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	var user domain.User
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		user, err = tx.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.User{}, domain.ErrBadCredentials
		}
		return domain.User{}, err
	}
	if !s.hasher.Verify(user.PasswordHash, password) {
		return domain.User{}, domain.ErrBadCredentials
	}
	return user, nil
}

// Get loads a user with their liked set.
func (s *UserService) Get(ctx context.Context, userID string) (domain.User, error) {
	var user domain.User
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		user, err = tx.GetUser(ctx, userID)
		return err
	})
	return user, err
}

// UpdateUsername renames a user unless another account already holds the name.
func (s *UserService) UpdateUsername(ctx context.Context, userID, username string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if err := validate.Var(username, "required,min=3,max=32"); err != nil {
		return domain.User{}, domain.Validation("username must be between 3 and 32 characters")
	}
	var user domain.User
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		if user, err = tx.GetUser(ctx, userID); err != nil {
			return err
		}
		taken, err := tx.UsernameTaken(ctx, username, userID)
		if err != nil {
			return err
		}
		if taken {
			return domain.ErrUsernameTaken
		}
		user.Username = username
		return tx.UpdateUser(ctx, user)
	})
	return user, err
}

// ChangePassword replaces the credential after verifying the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if err := CheckPassword(next); err != nil {
		return err
	}
	return s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		user, err := tx.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if !s.hasher.Verify(user.PasswordHash, current) {
			return domain.ErrWrongPassword
		}
		if user.PasswordHash, err = s.hasher.Hash(next); err != nil {
			return err
		}
		return tx.UpdateUser(ctx, user)
	})
}

// Stats counts a user's shared resources and quiz attempts.
func (s *UserService) Stats(ctx context.Context, userID string) (domain.UserStats, error) {
	var stats domain.UserStats
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		resources, err := tx.ListResources(ctx, domain.ResourceFilter{AuthorID: userID})
		if err != nil {
			return err
		}
		for _, r := range resources {
			if r.Public() {
				stats.ResourcesShared++
			}
		}
		stats.QuizzesCompleted, err = tx.CountAttempts(ctx, userID)
		return err
	})
	return stats, err
}

// Leaderboard ranks students by XP, highest first; ties keep the older account ahead.
func (s *UserService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	students, err := s.students(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(students) > limit {
		students = students[:limit]
	}
	entries := make([]domain.LeaderboardEntry, 0, len(students))
	for _, u := range students {
		entries = append(entries, domain.LeaderboardEntry{UserID: u.ID, Username: u.Username, XP: u.XP})
	}
	return entries, nil
}

// ListStudents returns all students for a teacher, highest XP first.
func (s *UserService) ListStudents(ctx context.Context, teacherID string) ([]domain.User, error) {
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		_, err := requireTeacher(ctx, tx, teacherID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.students(ctx)
}

func (s *UserService) students(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		users, err = tx.ListUsersByRole(ctx, domain.RoleStudent)
		return err
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].XP != users[j].XP {
			return users[i].XP > users[j].XP
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

// DeleteStudent removes a student account and every resource they authored.
func (s *UserService) DeleteStudent(ctx context.Context, teacherID, studentID string) error {
	var keys []string
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := requireTeacher(ctx, tx, teacherID); err != nil {
			return err
		}
		student, err := tx.GetUser(ctx, studentID)
		if err != nil {
			return err
		}
		if student.Role != domain.RoleStudent {
			return domain.Forbidden("only student accounts can be deleted")
		}
		resources, err := tx.ListResources(ctx, domain.ResourceFilter{AuthorID: studentID})
		if err != nil {
			return err
		}
		for _, r := range resources {
			if err := tx.DeleteResource(ctx, r.ID); err != nil {
				return err
			}
			keys = append(keys, r.FileKey)
		}
		return tx.DeleteUser(ctx, studentID)
	})
	if err != nil {
		return err
	}
	for _, key := range keys {
		removeBlob(ctx, s.blobs, key)
	}
	return nil
}
