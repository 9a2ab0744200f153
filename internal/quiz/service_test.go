package quiz

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQuizStore struct {
	quizzes map[uuid.UUID]Quiz
}

func newStubQuizStore() *stubQuizStore {
	return &stubQuizStore{quizzes: make(map[uuid.UUID]Quiz)}
}

func (s *stubQuizStore) Create(_ context.Context, qz Quiz) (Quiz, error) {
	qz.ID = uuid.New()
	qz.CreatedAt = time.Now()
	qz.UpdatedAt = qz.CreatedAt
	s.quizzes[qz.ID] = qz
	return qz, nil
}

func (s *stubQuizStore) GetByID(_ context.Context, quizID uuid.UUID) (Quiz, error) {
	qz, ok := s.quizzes[quizID]
	if !ok {
		return Quiz{}, ErrNotFound
	}
	return qz, nil
}

func (s *stubQuizStore) ListAll(_ context.Context) ([]Quiz, error) {
	out := make([]Quiz, 0, len(s.quizzes))
	for _, qz := range s.quizzes {
		out = append(out, qz)
	}
	return out, nil
}

func (s *stubQuizStore) ListPublished(_ context.Context) ([]Quiz, error) {
	var out []Quiz
	for _, qz := range s.quizzes {
		if qz.Published {
			out = append(out, qz)
		}
	}
	return out, nil
}

func (s *stubQuizStore) Update(_ context.Context, qz Quiz) error {
	if _, ok := s.quizzes[qz.ID]; !ok {
		return ErrNotFound
	}
	qz.UpdatedAt = time.Now()
	s.quizzes[qz.ID] = qz
	return nil
}

func (s *stubQuizStore) SetPublished(_ context.Context, quizID uuid.UUID, published bool) error {
	qz, ok := s.quizzes[quizID]
	if !ok {
		return ErrNotFound
	}
	qz.Published = published
	s.quizzes[quizID] = qz
	return nil
}

func (s *stubQuizStore) Delete(_ context.Context, quizID uuid.UUID) error {
	if _, ok := s.quizzes[quizID]; !ok {
		return ErrNotFound
	}
	delete(s.quizzes, quizID)
	return nil
}

func validQuiz() Quiz {
	return Quiz{
		Title: "Capitals",
		Questions: []Question{
			{
				ID:             "q1",
				Type:           TypeMultipleChoice,
				Prompt:         "Capital of France?",
				Options:        []string{"Paris", "Lyon"},
				CorrectAnswers: []string{"Paris"},
			},
		},
	}
}

func newTestService(t *testing.T) (*Service, *stubQuizStore) {
	t.Helper()
	store := newStubQuizStore()
	return NewService(store, zerolog.Nop()), store
}

func TestCreateStartsUnpublished(t *testing.T) {
	svc, store := newTestService(t)

	in := validQuiz()
	in.Published = true // callers cannot publish on create

	created, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, created.Published)
	assert.False(t, store.quizzes[created.ID].Published)
}

func TestCreateRejectsInvalidQuiz(t *testing.T) {
	svc, _ := newTestService(t)

	bad := validQuiz()
	bad.Questions[0].CorrectAnswers = nil

	_, err := svc.Create(context.Background(), bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoCorrectAnswers)
}

func TestGetPublishedHidesUnpublished(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.Create(context.Background(), validQuiz())
	require.NoError(t, err)

	_, err = svc.GetPublished(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrQuizNotPublished)

	require.NoError(t, svc.SetPublished(context.Background(), created.ID, true))

	got, err := svc.GetPublished(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
}

func TestGetUnknownQuiz(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrQuizNotFound)
}

func TestListPublishedFiltersCatalog(t *testing.T) {
	svc, _ := newTestService(t)

	a, err := svc.Create(context.Background(), validQuiz())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), validQuiz())
	require.NoError(t, err)

	require.NoError(t, svc.SetPublished(context.Background(), a.ID, true))

	published, err := svc.ListPublished(context.Background())
	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, a.ID, published[0].ID)

	all, err := svc.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestUpdatePreservesPublishState(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.Create(context.Background(), validQuiz())
	require.NoError(t, err)
	require.NoError(t, svc.SetPublished(context.Background(), created.ID, true))

	edited := created
	edited.Title = "Capitals, revised"
	edited.Published = false // ignored, SetPublished is the only toggle

	updated, err := svc.Update(context.Background(), edited)
	require.NoError(t, err)
	assert.Equal(t, "Capitals, revised", updated.Title)
	assert.True(t, updated.Published)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
}

func TestUpdateUnknownQuiz(t *testing.T) {
	svc, _ := newTestService(t)

	ghost := validQuiz()
	ghost.ID = uuid.New()

	_, err := svc.Update(context.Background(), ghost)
	assert.ErrorIs(t, err, ErrQuizNotFound)
}

func TestDeleteRemovesQuiz(t *testing.T) {
	svc, store := newTestService(t)

	created, err := svc.Create(context.Background(), validQuiz())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	assert.Empty(t, store.quizzes)

	err = svc.Delete(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrQuizNotFound)
}

func TestValidateQuestionInvariants(t *testing.T) {
	t.Run("choice answer outside options", func(t *testing.T) {
		q := Question{
			ID:             "q1",
			Type:           TypeMultipleChoice,
			Options:        []string{"a", "b"},
			CorrectAnswers: []string{"c"},
		}
		assert.ErrorIs(t, q.Validate(), ErrAnswerNotInOptions)
	})

	t.Run("short text needs no options", func(t *testing.T) {
		q := Question{
			ID:             "q1",
			Type:           TypeShortText,
			CorrectAnswers: []string{"42"},
		}
		assert.NoError(t, q.Validate())
	})

	t.Run("unknown type", func(t *testing.T) {
		q := Question{
			ID:             "q1",
			Type:           QuestionType("essay"),
			CorrectAnswers: []string{"x"},
		}
		assert.ErrorIs(t, q.Validate(), ErrUnknownQuestionType)
	})
}
