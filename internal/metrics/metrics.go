package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"learnworld-service/internal/domain"
)

// Recorder counts progression events. A nil *Recorder is valid and records nothing.
type Recorder struct {
	completions *prometheus.CounterVec
	duplicates  prometheus.Counter
	levelUps    *prometheus.CounterVec
	coins       *prometheus.CounterVec
	points      prometheus.Counter
}

// New registers the progression collectors on reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "learnworld",
			Name:      "lesson_completions_total",
			Help:      "Lessons credited, by world.",
		}, []string{"world"}),
		duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "learnworld",
			Name:      "duplicate_completions_total",
			Help:      "Submissions rejected because the lesson was already credited.",
		}),
		levelUps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "learnworld",
			Name:      "level_ups_total",
			Help:      "World level increases.",
		}, []string{"world"}),
		coins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "learnworld",
			Name:      "coins_awarded_total",
			Help:      "Coins awarded, by source.",
		}, []string{"source"}),
		points: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "learnworld",
			Name:      "points_awarded_total",
			Help:      "Lesson points awarded.",
		}),
	}
	reg.MustRegister(r.completions, r.duplicates, r.levelUps, r.coins, r.points)
	return r
}

// Completion records a credited lesson.
func (r *Recorder) Completion(world domain.World, summary domain.CompletionSummary) {
	if r == nil {
		return
	}
	r.completions.WithLabelValues(world.Key()).Inc()
	r.coins.WithLabelValues("lesson").Add(float64(summary.CoinsEarned))
	r.points.Add(float64(summary.PointsEarned))
	if summary.LeveledUp {
		r.levelUps.WithLabelValues(world.Key()).Inc()
	}
}

// Duplicate records a rejected resubmission.
func (r *Recorder) Duplicate() {
	if r == nil {
		return
	}
	r.duplicates.Inc()
}

// Grant records a direct coin grant.
func (r *Recorder) Grant(amount int, world *domain.World, leveledUp bool) {
	if r == nil {
		return
	}
	r.coins.WithLabelValues("grant").Add(float64(amount))
	if leveledUp && world != nil {
		r.levelUps.WithLabelValues(world.Key()).Inc()
	}
}
