package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"study-vault/internal/app"
	"study-vault/internal/domain"
)

// Store is an in-memory implementation of app.Store. Transactions are serialized by a single
// mutex and roll back by restoring a snapshot taken when they began.
type Store struct {
	mu sync.Mutex
	st *state
}

type state struct {
	users         map[string]domain.User
	likes         map[string][]string
	resources     map[string]domain.Resource
	quizzes       map[string]domain.Quiz
	attempts      []domain.QuizAttempt
	notifications []domain.Notification
	subjects      map[string]domain.Subject
}

func NewStore() *Store {
	return &Store{st: &state{
		users:     make(map[string]domain.User),
		likes:     make(map[string][]string),
		resources: make(map[string]domain.Resource),
		quizzes:   make(map[string]domain.Quiz),
		subjects:  make(map[string]domain.Subject),
	}}
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx app.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(ctx, &txn{st: s.st}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (st *state) clone() *state {
	c := &state{
		users:         make(map[string]domain.User, len(st.users)),
		likes:         make(map[string][]string, len(st.likes)),
		resources:     make(map[string]domain.Resource, len(st.resources)),
		quizzes:       make(map[string]domain.Quiz, len(st.quizzes)),
		attempts:      append([]domain.QuizAttempt(nil), st.attempts...),
		notifications: append([]domain.Notification(nil), st.notifications...),
		subjects:      make(map[string]domain.Subject, len(st.subjects)),
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.likes {
		c.likes[k] = append([]string(nil), v...)
	}
	for k, v := range st.resources {
		c.resources[k] = v
	}
	for k, v := range st.quizzes {
		c.quizzes[k] = v
	}
	for k, v := range st.subjects {
		c.subjects[k] = v
	}
	return c
}

type txn struct {
	st *state
}

var _ app.Tx = (*txn)(nil)

func (t *txn) CreateUser(_ context.Context, user domain.User) error {
	for _, u := range t.st.users {
		if u.Email == user.Email {
			return domain.ErrEmailTaken
		}
		if strings.EqualFold(u.Username, user.Username) {
			return domain.ErrUsernameTaken
		}
	}
	user.Liked = nil
	t.st.users[user.ID] = user
	return nil
}

func (t *txn) GetUser(_ context.Context, id string) (domain.User, error) {
	user, ok := t.st.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return t.withLikes(user), nil
}

func (t *txn) withLikes(user domain.User) domain.User {
	user.Liked = append([]string{}, t.st.likes[user.ID]...)
	return user
}

func (t *txn) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	for _, u := range t.st.users {
		if u.Email == email {
			return t.withLikes(u), nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (t *txn) UsernameTaken(_ context.Context, username, excludeID string) (bool, error) {
	for _, u := range t.st.users {
		if u.ID != excludeID && strings.EqualFold(u.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (t *txn) ListUsersByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	out := make([]domain.User, 0)
	for _, u := range t.st.users {
		if u.Role == role {
			out = append(out, t.withLikes(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (t *txn) UpdateUser(_ context.Context, user domain.User) error {
	current, ok := t.st.users[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	// XP and likes have their own atomic writers.
	current.Username = user.Username
	current.Email = user.Email
	current.PasswordHash = user.PasswordHash
	current.Role = user.Role
	t.st.users[user.ID] = current
	return nil
}

func (t *txn) DeleteUser(ctx context.Context, id string) error {
	if _, ok := t.st.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	for _, resID := range t.st.likes[id] {
		if _, err := t.AdjustLikes(ctx, resID, -1); err != nil && !errors.Is(err, domain.ErrResourceNotFound) {
			return err
		}
	}
	delete(t.st.likes, id)
	delete(t.st.users, id)
	return nil
}

func (t *txn) AddXP(_ context.Context, userID string, delta int) (int, error) {
	user, ok := t.st.users[userID]
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	user.XP += delta
	if user.XP < 0 {
		user.XP = 0
	}
	t.st.users[userID] = user
	return user.XP, nil
}

func (t *txn) AddLike(_ context.Context, userID, resourceID string) (bool, error) {
	for _, id := range t.st.likes[userID] {
		if id == resourceID {
			return false, nil
		}
	}
	t.st.likes[userID] = append(t.st.likes[userID], resourceID)
	return true, nil
}

func (t *txn) RemoveLike(_ context.Context, userID, resourceID string) (bool, error) {
	liked := t.st.likes[userID]
	kept := liked[:0]
	removed := false
	for _, id := range liked {
		if id == resourceID {
			removed = true
			continue
		}
		kept = append(kept, id)
	}
	t.st.likes[userID] = kept
	return removed, nil
}

func (t *txn) CreateResource(_ context.Context, res domain.Resource) error {
	t.st.resources[res.ID] = res
	return nil
}

func (t *txn) GetResource(_ context.Context, id string) (domain.Resource, error) {
	res, ok := t.st.resources[id]
	if !ok {
		return domain.Resource{}, domain.ErrResourceNotFound
	}
	return res, nil
}

func (t *txn) UpdateResource(_ context.Context, res domain.Resource) error {
	current, ok := t.st.resources[res.ID]
	if !ok {
		return domain.ErrResourceNotFound
	}
	// The like counter is only written through AdjustLikes.
	res.Likes = current.Likes
	t.st.resources[res.ID] = res
	return nil
}

func (t *txn) DeleteResource(_ context.Context, id string) error {
	res, ok := t.st.resources[id]
	if !ok {
		return domain.ErrResourceNotFound
	}
	delete(t.st.resources, id)
	if res.QuizID != "" {
		delete(t.st.quizzes, res.QuizID)
	}
	for userID, liked := range t.st.likes {
		kept := liked[:0]
		for _, rid := range liked {
			if rid != id {
				kept = append(kept, rid)
			}
		}
		t.st.likes[userID] = kept
	}
	return nil
}

func (t *txn) ListResources(_ context.Context, filter domain.ResourceFilter) ([]domain.Resource, error) {
	out := make([]domain.Resource, 0)
	for _, r := range t.st.resources {
		if filter.Match(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (t *txn) AdjustLikes(_ context.Context, resourceID string, delta int) (int, error) {
	res, ok := t.st.resources[resourceID]
	if !ok {
		return 0, domain.ErrResourceNotFound
	}
	res.Likes += delta
	if res.Likes < 0 {
		res.Likes = 0
	}
	t.st.resources[resourceID] = res
	return res.Likes, nil
}

func (t *txn) CreateQuiz(_ context.Context, quiz domain.Quiz) error {
	t.st.quizzes[quiz.ID] = quiz
	return nil
}

func (t *txn) GetQuiz(_ context.Context, id string) (domain.Quiz, error) {
	quiz, ok := t.st.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (t *txn) CreateAttempt(_ context.Context, attempt domain.QuizAttempt) error {
	t.st.attempts = append(t.st.attempts, attempt)
	return nil
}

func (t *txn) CountAttempts(_ context.Context, userID string) (int, error) {
	n := 0
	for _, a := range t.st.attempts {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (t *txn) CreateNotification(_ context.Context, n domain.Notification) error {
	t.st.notifications = append(t.st.notifications, n)
	return nil
}

func (t *txn) ListNotifications(_ context.Context, userID string) ([]domain.Notification, error) {
	out := make([]domain.Notification, 0)
	for i := len(t.st.notifications) - 1; i >= 0; i-- {
		if n := t.st.notifications[i]; n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (t *txn) DeleteNotification(_ context.Context, userID, id string) error {
	for i, n := range t.st.notifications {
		if n.ID == id && n.UserID == userID {
			t.st.notifications = append(t.st.notifications[:i:i], t.st.notifications[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotificationNotFound
}

func (t *txn) CreateSubject(_ context.Context, subject domain.Subject) error {
	t.st.subjects[subject.ID] = subject
	return nil
}

func (t *txn) GetSubject(_ context.Context, id string) (domain.Subject, error) {
	subject, ok := t.st.subjects[id]
	if !ok {
		return domain.Subject{}, domain.ErrSubjectNotFound
	}
	return subject, nil
}

func (t *txn) ListSubjects(_ context.Context) ([]domain.Subject, error) {
	out := make([]domain.Subject, 0, len(t.st.subjects))
	for _, s := range t.st.subjects {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *txn) DeleteSubject(_ context.Context, id string) error {
	if _, ok := t.st.subjects[id]; !ok {
		return domain.ErrSubjectNotFound
	}
	delete(t.st.subjects, id)
	return nil
}
