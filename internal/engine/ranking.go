package engine

import (
	"math"
	"sort"

	"learnworld-service/internal/domain"
)

// Less reports whether a ranks ahead of b: higher total score first, then
// more coins, then the smaller user ID so that no two entries tie.
func Less(a, b domain.LeaderboardEntry) bool {
	if a.TotalScore != b.TotalScore {
		return a.TotalScore > b.TotalScore
	}
	if a.Coins != b.Coins {
		return a.Coins > b.Coins
	}
	return a.UserID < b.UserID
}

// Sort returns a sorted copy of entries with Rank filled in (1-based).
func Sort(entries []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	sorted := append([]domain.LeaderboardEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool {
		return Less(sorted[i], sorted[j])
	})
	for i := range sorted {
		sorted[i].Rank = i + 1
	}
	return sorted
}

// RankOf returns the standing of userID among entries. ok is false when the
// entry set is empty or does not contain the user.
func RankOf(entries []domain.LeaderboardEntry, userID string) (domain.UserRank, bool) {
	var subject *domain.LeaderboardEntry
	for i := range entries {
		if entries[i].UserID == userID {
			subject = &entries[i]
			break
		}
	}
	if subject == nil {
		return domain.UserRank{}, false
	}

	ahead := 0
	for _, e := range entries {
		if Less(e, *subject) {
			ahead++
		}
	}
	rank := ahead + 1
	return domain.UserRank{
		UserID:       userID,
		Rank:         rank,
		TotalScore:   subject.TotalScore,
		Coins:        subject.Coins,
		Percentile:   Percentile(rank, len(entries)),
		TotalEntries: len(entries),
	}, true
}

// Percentile is round(100 * (1 - (rank-1)/total)). total must be positive.
func Percentile(rank, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * (1 - float64(rank-1)/float64(total))))
}

// Paginate slices an already sorted leaderboard.
func Paginate(sorted []domain.LeaderboardEntry, pageSize, pageIndex int) (domain.Page, error) {
	if pageSize <= 0 || pageIndex < 0 {
		return domain.Page{}, domain.ErrInvalidPagination
	}
	total := len(sorted)
	start := pageIndex * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return domain.Page{
		Entries:      append([]domain.LeaderboardEntry{}, sorted[start:end]...),
		PageIndex:    pageIndex,
		PageSize:     pageSize,
		TotalEntries: total,
		TotalPages:   (total + pageSize - 1) / pageSize,
		HasNext:      end < total,
		HasPrev:      pageIndex > 0,
	}, nil
}

// Entries projects active users onto leaderboard entries. With world nil the
// entry level is the user's highest level; otherwise only users with at least
// one completion in that world are kept and the level is that world's.
func Entries(users []domain.User, world *domain.World) []domain.LeaderboardEntry {
	out := make([]domain.LeaderboardEntry, 0, len(users))
	for _, u := range users {
		if !u.Active {
			continue
		}
		p := u.Progression
		level := 0
		if world == nil {
			for _, w := range domain.Worlds {
				if lvl := p.Levels.Of(w); lvl > level {
					level = lvl
				}
			}
		} else {
			if !p.HasCompletedIn(*world) {
				continue
			}
			level = p.Levels.Of(*world)
		}
		out = append(out, domain.LeaderboardEntry{
			UserID:     u.ID,
			Name:       u.Name,
			Coins:      p.Coins,
			TotalScore: p.TotalScore,
			Level:      level,
		})
	}
	return out
}
