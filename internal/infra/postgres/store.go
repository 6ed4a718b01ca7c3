package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"study-vault/internal/app"
	"study-vault/internal/domain"
)

const uniqueViolation = "23505"

// Store implements app.Store on Postgres through bun. Each RunInTx call maps to one
// database transaction.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx app.Tx) error) error {
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &txn{db: tx})
	})
}

type txn struct {
	db bun.IDB
}

var _ app.Tx = (*txn)(nil)

func (t *txn) CreateUser(ctx context.Context, user domain.User) error {
	if _, err := t.db.NewInsert().Model(newUserRow(user)).Exec(ctx); err != nil {
		if isUnique(err) {
			if constraintOf(err) == "users_email_key" {
				return domain.ErrEmailTaken
			}
			return domain.ErrUsernameTaken
		}
		return errors.Wrap(err, "insert user")
	}
	return nil
}

func (t *txn) GetUser(ctx context.Context, id string) (domain.User, error) {
	var row userRow
	err := t.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return domain.User{}, notFound(err, domain.ErrUserNotFound, "select user")
	}
	return t.withLikes(ctx, row)
}

func (t *txn) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var row userRow
	err := t.db.NewSelect().Model(&row).Where("lower(email) = lower(?)", email).Scan(ctx)
	if err != nil {
		return domain.User{}, notFound(err, domain.ErrUserNotFound, "select user by email")
	}
	return t.withLikes(ctx, row)
}

func (t *txn) withLikes(ctx context.Context, row userRow) (domain.User, error) {
	var liked []string
	err := t.db.NewSelect().
		Model((*likeRow)(nil)).
		Column("resource_id").
		Where("user_id = ?", row.ID).
		Order("liked_at ASC").
		Scan(ctx, &liked)
	if err != nil {
		return domain.User{}, errors.Wrap(err, "select likes")
	}
	return row.toDomain(liked), nil
}

func (t *txn) UsernameTaken(ctx context.Context, username, excludeID string) (bool, error) {
	q := t.db.NewSelect().Model((*userRow)(nil)).Where("lower(username) = lower(?)", username)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	taken, err := q.Exists(ctx)
	return taken, errors.Wrap(err, "check username")
}

func (t *txn) ListUsersByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	var rows []userRow
	err := t.db.NewSelect().Model(&rows).Where("role = ?", string(role)).Order("created_at ASC").Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list users")
	}
	out := make([]domain.User, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain(nil))
	}
	return out, nil
}

func (t *txn) UpdateUser(ctx context.Context, user domain.User) error {
	res, err := t.db.NewUpdate().
		Model(newUserRow(user)).
		Column("username", "email", "password_hash", "role").
		WherePK().
		Exec(ctx)
	if err != nil {
		if isUnique(err) {
			return domain.ErrUsernameTaken
		}
		return errors.Wrap(err, "update user")
	}
	return affected(res, domain.ErrUserNotFound)
}

func (t *txn) DeleteUser(ctx context.Context, id string) error {
	liked := t.db.NewSelect().Model((*likeRow)(nil)).Column("resource_id").Where("user_id = ?", id)
	_, err := t.db.NewUpdate().
		Model((*resourceRow)(nil)).
		Set("likes = GREATEST(likes - 1, 0)").
		Where("id IN (?)", liked).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "release likes")
	}
	res, err := t.db.NewDelete().Model((*userRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "delete user")
	}
	return affected(res, domain.ErrUserNotFound)
}

func (t *txn) AddXP(ctx context.Context, userID string, delta int) (int, error) {
	var xp int
	err := t.db.NewUpdate().
		Model((*userRow)(nil)).
		Set("xp = GREATEST(xp + ?, 0)", delta).
		Where("id = ?", userID).
		Returning("xp").
		Scan(ctx, &xp)
	if err != nil {
		return 0, notFound(err, domain.ErrUserNotFound, "add xp")
	}
	return xp, nil
}

func (t *txn) AddLike(ctx context.Context, userID, resourceID string) (bool, error) {
	res, err := t.db.NewInsert().
		Model(&likeRow{UserID: userID, ResourceID: resourceID, LikedAt: time.Now().UTC()}).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, errors.Wrap(err, "insert like")
	}
	n, err := res.RowsAffected()
	return n == 1, errors.Wrap(err, "insert like")
}

func (t *txn) RemoveLike(ctx context.Context, userID, resourceID string) (bool, error) {
	res, err := t.db.NewDelete().
		Model((*likeRow)(nil)).
		Where("user_id = ?", userID).
		Where("resource_id = ?", resourceID).
		Exec(ctx)
	if err != nil {
		return false, errors.Wrap(err, "delete like")
	}
	n, err := res.RowsAffected()
	return n == 1, errors.Wrap(err, "delete like")
}

func (t *txn) CreateResource(ctx context.Context, res domain.Resource) error {
	_, err := t.db.NewInsert().Model(newResourceRow(res)).Exec(ctx)
	return errors.Wrap(err, "insert resource")
}

func (t *txn) GetResource(ctx context.Context, id string) (domain.Resource, error) {
	var row resourceRow
	if err := t.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Resource{}, notFound(err, domain.ErrResourceNotFound, "select resource")
	}
	return row.toDomain(), nil
}

// UpdateResource writes everything but the like counter, which only AdjustLikes touches.
func (t *txn) UpdateResource(ctx context.Context, res domain.Resource) error {
	result, err := t.db.NewUpdate().
		Model(newResourceRow(res)).
		Column("title", "comment", "subject_id", "file_url", "file_key", "file_type",
			"quiz_id", "approved", "private", "can_be_public").
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "update resource")
	}
	return affected(result, domain.ErrResourceNotFound)
}

// DeleteResource relies on ON DELETE CASCADE for the quiz and like rows.
func (t *txn) DeleteResource(ctx context.Context, id string) error {
	res, err := t.db.NewDelete().Model((*resourceRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "delete resource")
	}
	return affected(res, domain.ErrResourceNotFound)
}

func (t *txn) ListResources(ctx context.Context, filter domain.ResourceFilter) ([]domain.Resource, error) {
	var rows []resourceRow
	q := t.db.NewSelect().Model(&rows)
	if filter.SubjectID != "" {
		q = q.Where("subject_id = ?", filter.SubjectID)
	}
	if filter.AuthorID != "" {
		q = q.Where("author_id = ?", filter.AuthorID)
	}
	if filter.Approved != nil {
		q = q.Where("approved = ?", *filter.Approved)
	}
	if filter.Viewer != "" {
		q = q.Where("approved").WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("NOT private").WhereOr("author_id = ?", filter.Viewer)
		})
	}
	if err := q.Order("created_at DESC", "id ASC").Scan(ctx); err != nil {
		return nil, errors.Wrap(err, "list resources")
	}
	out := make([]domain.Resource, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (t *txn) AdjustLikes(ctx context.Context, resourceID string, delta int) (int, error) {
	var likes int
	err := t.db.NewUpdate().
		Model((*resourceRow)(nil)).
		Set("likes = GREATEST(likes + ?, 0)", delta).
		Where("id = ?", resourceID).
		Returning("likes").
		Scan(ctx, &likes)
	if err != nil {
		return 0, notFound(err, domain.ErrResourceNotFound, "adjust likes")
	}
	return likes, nil
}

func (t *txn) CreateQuiz(ctx context.Context, quiz domain.Quiz) error {
	row := &quizRow{ID: quiz.ID, ResourceID: quiz.ResourceID, Questions: quiz.Questions, CreatedAt: quiz.CreatedAt}
	_, err := t.db.NewInsert().Model(row).Exec(ctx)
	return errors.Wrap(err, "insert quiz")
}

func (t *txn) GetQuiz(ctx context.Context, id string) (domain.Quiz, error) {
	var row quizRow
	if err := t.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Quiz{}, notFound(err, domain.ErrQuizNotFound, "select quiz")
	}
	return row.toDomain(), nil
}

func (t *txn) CreateAttempt(ctx context.Context, attempt domain.QuizAttempt) error {
	row := &attemptRow{
		ID:          attempt.ID,
		UserID:      attempt.UserID,
		QuizID:      attempt.QuizID,
		Score:       attempt.Score,
		AttemptedAt: attempt.AttemptedAt,
	}
	_, err := t.db.NewInsert().Model(row).Exec(ctx)
	return errors.Wrap(err, "insert attempt")
}

func (t *txn) CountAttempts(ctx context.Context, userID string) (int, error) {
	n, err := t.db.NewSelect().Model((*attemptRow)(nil)).Where("user_id = ?", userID).Count(ctx)
	return n, errors.Wrap(err, "count attempts")
}

func (t *txn) CreateNotification(ctx context.Context, n domain.Notification) error {
	row := &notificationRow{ID: n.ID, UserID: n.UserID, Message: n.Message, CreatedAt: n.CreatedAt}
	_, err := t.db.NewInsert().Model(row).Exec(ctx)
	return errors.Wrap(err, "insert notification")
}

func (t *txn) ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	var rows []notificationRow
	err := t.db.NewSelect().Model(&rows).Where("user_id = ?", userID).Order("created_at DESC", "id DESC").Scan(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list notifications")
	}
	out := make([]domain.Notification, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (t *txn) DeleteNotification(ctx context.Context, userID, id string) error {
	res, err := t.db.NewDelete().
		Model((*notificationRow)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "delete notification")
	}
	return affected(res, domain.ErrNotificationNotFound)
}

func (t *txn) CreateSubject(ctx context.Context, subject domain.Subject) error {
	row := &subjectRow{ID: subject.ID, Name: subject.Name, TeacherID: subject.TeacherID, CreatedAt: subject.CreatedAt}
	_, err := t.db.NewInsert().Model(row).Exec(ctx)
	return errors.Wrap(err, "insert subject")
}

func (t *txn) GetSubject(ctx context.Context, id string) (domain.Subject, error) {
	var row subjectRow
	if err := t.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx); err != nil {
		return domain.Subject{}, notFound(err, domain.ErrSubjectNotFound, "select subject")
	}
	return row.toDomain(), nil
}

func (t *txn) ListSubjects(ctx context.Context) ([]domain.Subject, error) {
	var rows []subjectRow
	if err := t.db.NewSelect().Model(&rows).Order("name ASC").Scan(ctx); err != nil {
		return nil, errors.Wrap(err, "list subjects")
	}
	out := make([]domain.Subject, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (t *txn) DeleteSubject(ctx context.Context, id string) error {
	res, err := t.db.NewDelete().Model((*subjectRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "delete subject")
	}
	return affected(res, domain.ErrSubjectNotFound)
}

func notFound(err, sentinel error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return sentinel
	}
	return errors.Wrap(err, op)
}

func affected(res sql.Result, sentinel error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return sentinel
	}
	return nil
}

func isUnique(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == uniqueViolation
}

func constraintOf(err error) string {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return strings.ToLower(pgErr.Field('n'))
	}
	return ""
}
