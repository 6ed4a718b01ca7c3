package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"study-vault/internal/domain"
)

// QuizService authors and grades quizzes attached to resources.
type QuizService struct {
	store   Store
	quizzes QuizRepository
}

func NewQuizService(store Store, quizzes QuizRepository) *QuizService {
	return &QuizService{store: store, quizzes: quizzes}
}

type questionInput struct {
	Question      string          `json:"question"`
	Options       []string        `json:"options"`
	CorrectAnswer json.RawMessage `json:"correctAnswer"`
}

// DecodeQuestions parses the serialized question array sent at upload or quiz creation
// and validates it. correctAnswer must be an integral JSON number.
func DecodeQuestions(data []byte) ([]domain.Question, error) {
	var inputs []questionInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		return nil, domain.Validation("questions must be a JSON array of {question, options, correctAnswer}")
	}
	questions := make([]domain.Question, 0, len(inputs))
	for i, in := range inputs {
		var idx float64
		if isNull(in.CorrectAnswer) || json.Unmarshal(in.CorrectAnswer, &idx) != nil || idx != math.Trunc(idx) {
			return nil, domain.Validation(fmt.Sprintf("question %d: correct answer must be an option index", i+1))
		}
		questions = append(questions, domain.Question{
			Prompt:        strings.TrimSpace(in.Question),
			Options:       in.Options,
			CorrectAnswer: int(idx),
		})
	}
	if err := ValidateQuestions(questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// ValidateQuestions applies the authoring rules: at least one question, a prompt, two or more
// options and a correct answer index inside the option range.
func ValidateQuestions(questions []domain.Question) error {
	if len(questions) == 0 {
		return domain.Validation("a quiz needs at least one question")
	}
	for i, q := range questions {
		if q.Prompt == "" {
			return domain.Validation(fmt.Sprintf("question %d: prompt is required", i+1))
		}
		if len(q.Options) < 2 {
			return domain.Validation(fmt.Sprintf("question %d: each question must have at least 2 options", i+1))
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return domain.Validation(fmt.Sprintf("question %d: correct answer index must be between 0 and %d", i+1, len(q.Options)-1))
		}
	}
	return nil
}

// ParseAnswers coerces submitted answer values to option indexes. Integral numbers and numeric
// strings are accepted; anything else (null, fractions, text) becomes a missing answer.
func ParseAnswers(raw []json.RawMessage) []*int {
	answers := make([]*int, len(raw))
	for i, r := range raw {
		answers[i] = coerceAnswer(r)
	}
	return answers
}

func coerceAnswer(raw json.RawMessage) *int {
	if isNull(raw) {
		return nil
	}
	var num float64
	if err := json.Unmarshal(raw, &num); err == nil {
		if num != math.Trunc(num) {
			return nil
		}
		v := int(num)
		return &v
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(str)); err == nil {
			return &v
		}
	}
	return nil
}

// isNull reports whether raw is absent or a JSON null, which json.Unmarshal accepts silently.
func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// Passed reports whether score is strictly more than half of questionCount.
func Passed(score, questionCount int) bool {
	return 2*score > questionCount
}

// Grade scores answers positionally against quiz. It is pure: the same inputs always give the
// same result.
func Grade(quiz domain.Quiz, answers []*int) domain.GradeResult {
	result := domain.GradeResult{Correctness: make([]domain.QuestionResult, 0, len(quiz.Questions))}
	for i, q := range quiz.Questions {
		var selected *int
		if i < len(answers) && answers[i] != nil {
			v := *answers[i]
			selected = &v
		}
		correct := selected != nil && *selected == q.CorrectAnswer
		if correct {
			result.Score++
		}
		result.Correctness = append(result.Correctness, domain.QuestionResult{
			QuestionIndex:       i,
			Correct:             correct,
			CorrectAnswerIndex:  q.CorrectAnswer,
			SelectedAnswerIndex: selected,
		})
	}
	if Passed(result.Score, len(quiz.Questions)) {
		result.XPAward = domain.QuizPassXP
	}
	return result
}

// CreateQuiz attaches a quiz to a resource that has none. Only the author may do this.
func (s *QuizService) CreateQuiz(ctx context.Context, actorID, resourceID string, questions []domain.Question) (domain.Quiz, error) {
	if err := ValidateQuestions(questions); err != nil {
		return domain.Quiz{}, err
	}
	var quiz domain.Quiz
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		res, err := tx.GetResource(ctx, resourceID)
		if err != nil {
			return err
		}
		if res.AuthorID != actorID {
			return domain.ErrNotOwner
		}
		if res.HasQuiz() {
			return domain.ErrQuizExists
		}
		quiz, err = attachQuiz(ctx, tx, &res, questions)
		return err
	})
	return quiz, err
}

// attachQuiz persists a quiz for res and links it. Caller owns the transaction.
func attachQuiz(ctx context.Context, tx Tx, res *domain.Resource, questions []domain.Question) (domain.Quiz, error) {
	quiz := domain.Quiz{
		ID:         newID(),
		ResourceID: res.ID,
		Questions:  questions,
		CreatedAt:  now(),
	}
	if err := tx.CreateQuiz(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	res.QuizID = quiz.ID
	if err := tx.UpdateResource(ctx, *res); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// Submit grades a submission for the quiz linked to resourceID, records the attempt and awards
// XP on a pass. Only quizzes on public resources can be attempted. Every call records a new attempt.
func (s *QuizService) Submit(ctx context.Context, userID, resourceID string, answers []*int) (domain.GradeResult, error) {
	var quizID string
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		res, err := tx.GetResource(ctx, resourceID)
		if err != nil {
			return err
		}
		if err := requirePublic(res, userID); err != nil {
			return err
		}
		if !res.HasQuiz() {
			return domain.ErrQuizNotFound
		}
		quizID = res.QuizID
		return nil
	})
	if err != nil {
		return domain.GradeResult{}, err
	}

	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.GradeResult{}, err
	}
	result := Grade(quiz, answers)

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.GetUser(ctx, userID); err != nil {
			return err
		}
		if result.XPAward > 0 {
			if _, err := tx.AddXP(ctx, userID, result.XPAward); err != nil {
				return err
			}
		}
		return tx.CreateAttempt(ctx, domain.QuizAttempt{
			ID:          newID(),
			UserID:      userID,
			QuizID:      quiz.ID,
			Score:       result.Score,
			AttemptedAt: now(),
		})
	})
	if err != nil {
		return domain.GradeResult{}, err
	}
	return result, nil
}

// StoreQuizLoader reads quizzes straight from the record store; caches sit in front of it.
type StoreQuizLoader struct {
	store Store
}

func NewStoreQuizLoader(store Store) *StoreQuizLoader {
	return &StoreQuizLoader{store: store}
}

func (l *StoreQuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var quiz domain.Quiz
	err := l.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		quiz, err = tx.GetQuiz(ctx, quizID)
		return err
	})
	return quiz, err
}
