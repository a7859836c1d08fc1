package engine

import (
	"time"

	"learnworld-service/internal/domain"
)

// CoinsPerLevel is the coin step between levels.
const CoinsPerLevel = 100

// LevelForCoins is the level a coin total qualifies for.
func LevelForCoins(coins int) int {
	if coins < 0 {
		coins = 0
	}
	return coins/CoinsPerLevel + 1
}

// ApplyCompletion credits lesson to state and returns the new state. state is
// never modified. A lesson already in state.Completed yields ErrDuplicateCompletion.
//
// The level rule reads the global coin total, so coins earned in one world can
// raise another world's level.
func ApplyCompletion(state domain.Progression, lesson domain.Lesson, scoring domain.ScoringResult, at time.Time) (domain.Progression, domain.CompletionSummary, error) {
	if state.HasCompleted(lesson.ID) {
		return state, domain.CompletionSummary{}, domain.ErrDuplicateCompletion
	}

	next := state.Clone()
	reward := lesson.CoinsReward
	if reward < 0 {
		reward = 0
	}
	score := scoring.TotalScore
	if score < 0 {
		score = 0
	}
	next.Coins += reward
	next.TotalScore += score
	next.Completed = append(next.Completed, domain.CompletedLesson{
		LessonID:    lesson.ID,
		World:       lesson.World,
		Score:       score,
		CompletedAt: at,
	})
	leveledUp, level := levelUp(next.Levels, lesson.World, next.Coins)

	return next, domain.CompletionSummary{
		LessonID:     lesson.ID,
		PointsEarned: score,
		CoinsEarned:  reward,
		TotalScore:   next.TotalScore,
		Coins:        next.Coins,
		LeveledUp:    leveledUp,
		NewLevel:     level,
		Levels:       next.Levels.Clone(),
		Results:      scoring.PerQuestion,
	}, nil
}

// GrantCoins adds a direct coin grant outside the lesson flow. The amount is
// credited to both coins and total score; when world is non-nil, that world's
// level follows the same threshold rule as lesson completion.
func GrantCoins(state domain.Progression, amount int, world *domain.World) (domain.Progression, domain.GrantSummary, error) {
	if amount <= 0 {
		return state, domain.GrantSummary{}, domain.ErrInvalidCoinAmount
	}
	if world != nil && !world.Valid() {
		return state, domain.GrantSummary{}, domain.ErrUnknownWorld
	}

	next := state.Clone()
	next.Coins += amount
	next.TotalScore += amount

	summary := domain.GrantSummary{Coins: next.Coins}
	if world != nil {
		summary.LeveledUp, summary.NewLevel = levelUp(next.Levels, *world, next.Coins)
	}
	summary.Levels = next.Levels.Clone()
	return next, summary, nil
}

// levelUp raises levels[w] in place when coins qualify for a higher level.
// Levels never decrease.
func levelUp(levels domain.Levels, w domain.World, coins int) (bool, int) {
	current := levels.Of(w)
	candidate := LevelForCoins(coins)
	if candidate > current {
		levels[w] = candidate
		return true, candidate
	}
	levels[w] = current
	return false, current
}

// Progress reports level and completion counts per world.
func Progress(state domain.Progression) map[domain.World]domain.WorldProgress {
	counts := make(map[domain.World]int, len(domain.Worlds))
	for _, c := range state.Completed {
		counts[c.World]++
	}
	out := make(map[domain.World]domain.WorldProgress, len(domain.Worlds))
	for _, w := range domain.Worlds {
		out[w] = domain.WorldProgress{
			Level:            state.Levels.Of(w),
			CompletedLessons: counts[w],
			Coins:            state.Coins,
		}
	}
	return out
}
