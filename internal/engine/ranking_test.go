package engine_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"learnworld-service/internal/domain"
	"learnworld-service/internal/engine"
)

func threeUsers() []domain.LeaderboardEntry {
	return []domain.LeaderboardEntry{
		{UserID: "user1", TotalScore: 100, Coins: 5},
		{UserID: "user2", TotalScore: 100, Coins: 10},
		{UserID: "user3", TotalScore: 80, Coins: 50},
	}
}

func TestSortOrdersByScoreThenCoins(t *testing.T) {
	sorted := engine.Sort(threeUsers())

	got := []string{sorted[0].UserID, sorted[1].UserID, sorted[2].UserID}
	assert.Equal(t, []string{"user2", "user1", "user3"}, got)
	assert.Equal(t, []int{1, 2, 3}, []int{sorted[0].Rank, sorted[1].Rank, sorted[2].Rank})
}

func TestSortBreaksFullTiesByUserID(t *testing.T) {
	entries := []domain.LeaderboardEntry{
		{UserID: "c", TotalScore: 10, Coins: 1},
		{UserID: "a", TotalScore: 10, Coins: 1},
		{UserID: "b", TotalScore: 10, Coins: 1},
	}
	sorted := engine.Sort(entries)
	assert.Equal(t, "a", sorted[0].UserID)
	assert.Equal(t, "b", sorted[1].UserID)
	assert.Equal(t, "c", sorted[2].UserID)
}

func TestRankOfMatchesExample(t *testing.T) {
	entries := threeUsers()
	want := map[string]int{"user2": 1, "user1": 2, "user3": 3}
	for id, rank := range want {
		r, ok := engine.RankOf(entries, id)
		require.True(t, ok)
		assert.Equal(t, rank, r.Rank, id)
	}

	r, _ := engine.RankOf(entries, "user3")
	assert.Equal(t, 33, r.Percentile)
	r, _ = engine.RankOf(entries, "user2")
	assert.Equal(t, 100, r.Percentile)
	assert.Equal(t, 3, r.TotalEntries)
}

func TestRankOfUndefinedWhenEmptyOrMissing(t *testing.T) {
	_, ok := engine.RankOf(nil, "user1")
	assert.False(t, ok)
	_, ok = engine.RankOf(threeUsers(), "ghost")
	assert.False(t, ok)
}

func TestRanksFormPermutation(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	entries := make([]domain.LeaderboardEntry, 200)
	for i := range entries {
		entries[i] = domain.LeaderboardEntry{
			UserID:     fmt.Sprintf("u%03d", i),
			TotalScore: rnd.Intn(5) * 10,
			Coins:      rnd.Intn(3),
		}
	}

	seen := make(map[int]bool, len(entries))
	for _, e := range entries {
		r, ok := engine.RankOf(entries, e.UserID)
		require.True(t, ok)
		if seen[r.Rank] {
			t.Fatalf("rank %d assigned twice", r.Rank)
		}
		seen[r.Rank] = true
	}
	for rank := 1; rank <= len(entries); rank++ {
		if !seen[rank] {
			t.Fatalf("rank %d missing", rank)
		}
	}

	sorted := engine.Sort(entries)
	for i := range sorted {
		r, _ := engine.RankOf(entries, sorted[i].UserID)
		assert.Equal(t, sorted[i].Rank, r.Rank)
		for j := range sorted {
			if i != j && engine.Less(sorted[i], sorted[j]) == engine.Less(sorted[j], sorted[i]) {
				t.Fatalf("order not antisymmetric for %s and %s", sorted[i].UserID, sorted[j].UserID)
			}
		}
	}
}

func TestSortIsIndependentOfInputOrder(t *testing.T) {
	entries := threeUsers()
	reversed := []domain.LeaderboardEntry{entries[2], entries[1], entries[0]}
	assert.Equal(t, engine.Sort(entries), engine.Sort(reversed))
}

func TestPaginate(t *testing.T) {
	entries := make([]domain.LeaderboardEntry, 5)
	for i := range entries {
		entries[i] = domain.LeaderboardEntry{UserID: fmt.Sprintf("u%d", i), TotalScore: 100 - i}
	}
	sorted := engine.Sort(entries)

	page, err := engine.Paginate(sorted, 2, 0)
	require.NoError(t, err)
	assert.Len(t, page.Entries, 2)
	assert.True(t, page.HasNext)
	assert.False(t, page.HasPrev)
	assert.Equal(t, 3, page.TotalPages)

	page, err = engine.Paginate(sorted, 2, 2)
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "u4", page.Entries[0].UserID)
	assert.Equal(t, 5, page.Entries[0].Rank)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrev)

	page, err = engine.Paginate(sorted, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Entries)
	assert.False(t, page.HasNext)

	_, err = engine.Paginate(sorted, 0, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidPagination)
	_, err = engine.Paginate(sorted, 2, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidPagination)
}

func TestEntriesScopesByWorldAndSkipsInactive(t *testing.T) {
	math := domain.NewProgression()
	math.Completed = []domain.CompletedLesson{{LessonID: "m1", World: domain.Math}}
	math.Levels[domain.Math] = 3
	science := domain.NewProgression()
	science.Completed = []domain.CompletedLesson{{LessonID: "s1", World: domain.Science}}

	users := []domain.User{
		{ID: "a", Name: "Asha", Active: true, Progression: math},
		{ID: "b", Name: "Ben", Active: true, Progression: science},
		{ID: "c", Name: "Chen", Active: false, Progression: math},
	}

	global := engine.Entries(users, nil)
	require.Len(t, global, 2)
	assert.Equal(t, 3, global[0].Level)

	world := domain.Math
	scoped := engine.Entries(users, &world)
	require.Len(t, scoped, 1)
	assert.Equal(t, "a", scoped[0].UserID)
	assert.Equal(t, 3, scoped[0].Level)
}
