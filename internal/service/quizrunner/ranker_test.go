package quizrunner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/livequiz-api/internal/domain/entity"
)

// ============================================================================
// Моки для Ranker
// ============================================================================

// MockLeaderboardRepoForRanker реализует repository.LeaderboardRepository
type MockLeaderboardRepoForRanker struct {
	mock.Mock
}

func (m *MockLeaderboardRepoForRanker) AddScore(quizID, userID uint, username string, delta int) error {
	args := m.Called(quizID, userID, username, delta)
	return args.Error(0)
}

func (m *MockLeaderboardRepoForRanker) ListByQuiz(quizID uint) ([]entity.LeaderboardEntry, error) {
	args := m.Called(quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.LeaderboardEntry), args.Error(1)
}

func (m *MockLeaderboardRepoForRanker) TopN(quizID uint, n int) ([]entity.LeaderboardEntry, error) {
	args := m.Called(quizID, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.LeaderboardEntry), args.Error(1)
}

func (m *MockLeaderboardRepoForRanker) UpdateRanks(entries []entity.LeaderboardEntry) error {
	args := m.Called(entries)
	return args.Error(0)
}

func (m *MockLeaderboardRepoForRanker) GetByUser(quizID, userID uint) (*entity.LeaderboardEntry, error) {
	args := m.Called(quizID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.LeaderboardEntry), args.Error(1)
}

// ============================================================================
// Тесты плотного ранжирования
// ============================================================================

func TestAssignDenseRanks_NoTies(t *testing.T) {
	// Arrange: список уже отсортирован по убыванию счета
	entries := []entity.LeaderboardEntry{
		{UserID: 1, TotalScore: 30},
		{UserID: 2, TotalScore: 20},
		{UserID: 3, TotalScore: 10},
	}

	// Act
	AssignDenseRanks(entries)

	// Assert
	assert.Equal(t, []int{1, 2, 3}, ranksOf(entries))
}

func TestAssignDenseRanks_TiesShareRank(t *testing.T) {
	// Arrange: два участника делят первое место
	entries := []entity.LeaderboardEntry{
		{UserID: 1, TotalScore: 30},
		{UserID: 2, TotalScore: 30},
		{UserID: 3, TotalScore: 20},
		{UserID: 4, TotalScore: 20},
		{UserID: 5, TotalScore: 10},
	}

	// Act
	AssignDenseRanks(entries)

	// Assert: плотные ранги без пропусков — 1,1,2,2,3
	assert.Equal(t, []int{1, 1, 2, 2, 3}, ranksOf(entries),
		"Равный счет делит ранг, следующий счет получает следующий номер без пропуска")
}

func TestAssignDenseRanks_AllTied(t *testing.T) {
	// Arrange
	entries := []entity.LeaderboardEntry{
		{UserID: 1, TotalScore: 15},
		{UserID: 2, TotalScore: 15},
		{UserID: 3, TotalScore: 15},
	}

	// Act
	AssignDenseRanks(entries)

	// Assert
	assert.Equal(t, []int{1, 1, 1}, ranksOf(entries))
}

func TestAssignDenseRanks_Idempotent(t *testing.T) {
	// Arrange
	entries := []entity.LeaderboardEntry{
		{UserID: 1, TotalScore: 30},
		{UserID: 2, TotalScore: 30},
		{UserID: 3, TotalScore: 10},
	}

	// Act: повторный прогон на неизменных данных
	AssignDenseRanks(entries)
	first := ranksOf(entries)
	AssignDenseRanks(entries)
	second := ranksOf(entries)

	// Assert
	assert.Equal(t, first, second, "Повторный пересчет не должен менять ранги")
}

func TestAssignDenseRanks_Empty(t *testing.T) {
	// Act: пустой список не должен вызывать панику
	AssignDenseRanks(nil)
	AssignDenseRanks([]entity.LeaderboardEntry{})
}

func TestRanker_RecomputeRanks_PersistsDenseRanks(t *testing.T) {
	// Arrange
	mockRepo := new(MockLeaderboardRepoForRanker)
	entries := []entity.LeaderboardEntry{
		{QuizID: 1, UserID: 10, TotalScore: 25},
		{QuizID: 1, UserID: 11, TotalScore: 25},
		{QuizID: 1, UserID: 12, TotalScore: 5},
	}
	mockRepo.On("ListByQuiz", uint(1)).Return(entries, nil)
	mockRepo.On("UpdateRanks", mock.MatchedBy(func(updated []entity.LeaderboardEntry) bool {
		return len(updated) == 3 &&
			updated[0].Rank == 1 && updated[1].Rank == 1 && updated[2].Rank == 2
	})).Return(nil)

	ranker := NewRanker(mockRepo)

	// Act
	err := ranker.RecomputeRanks(context.Background(), 1)

	// Assert
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestRanker_RecomputeRanks_EmptyBoard(t *testing.T) {
	// Arrange: в викторине еще никто не отвечал
	mockRepo := new(MockLeaderboardRepoForRanker)
	mockRepo.On("ListByQuiz", uint(1)).Return([]entity.LeaderboardEntry{}, nil)

	ranker := NewRanker(mockRepo)

	// Act
	err := ranker.RecomputeRanks(context.Background(), 1)

	// Assert: пустая таблица не требует записи
	require.NoError(t, err)
	mockRepo.AssertNotCalled(t, "UpdateRanks")
}

// ranksOf собирает ранги списка для компактных проверок
func ranksOf(entries []entity.LeaderboardEntry) []int {
	ranks := make([]int, len(entries))
	for i := range entries {
		ranks[i] = entries[i].Rank
	}
	return ranks
}
