package domain

import "time"

// NoAnswer marks an unanswered slot in an AnswerSubmission.
const NoAnswer = -1

// Question models an MCQ question with exactly one correct option.
type Question struct {
	Prompt       string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctAnswer"`
	Points       int      `json:"points"` // defaults to DefaultQuestionPoints if zero
	Explanation  string   `json:"explanation,omitempty"`
}

const (
	DefaultQuestionPoints = 10
	DefaultLessonMinutes  = 10
)

// Lesson is read-only lesson content, including the answer key.
type Lesson struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	World            World      `json:"world"`
	Level            int        `json:"level"`
	Content          string     `json:"content,omitempty"`
	Questions        []Question `json:"questions"`
	CoinsReward      int        `json:"coinsReward"`
	EstimatedMinutes int        `json:"estimatedTime"`
	Active           bool       `json:"isActive"`
}

// WithDefaults fills zero-valued fields the way lessons are authored.
func (l Lesson) WithDefaults() Lesson {
	if l.CoinsReward < 0 {
		l.CoinsReward = 0
	}
	if l.EstimatedMinutes == 0 {
		l.EstimatedMinutes = DefaultLessonMinutes
	}
	qs := make([]Question, len(l.Questions))
	for i, q := range l.Questions {
		if q.Points <= 0 {
			q.Points = DefaultQuestionPoints
		}
		qs[i] = q
	}
	l.Questions = qs
	return l
}

// AnswerSubmission holds one option index per question, aligned positionally.
// Negative values mean the question was not answered.
type AnswerSubmission []int

// QuestionResult is the verdict for one question.
type QuestionResult struct {
	Prompt       string `json:"question"`
	Answer       int    `json:"userAnswer"`
	CorrectIndex int    `json:"correctAnswer"`
	Correct      bool   `json:"isCorrect"`
	Awarded      int    `json:"pointsAwarded"`
	Explanation  string `json:"explanation,omitempty"`
}

// ScoringResult is the outcome of evaluating a submission.
type ScoringResult struct {
	PerQuestion []QuestionResult `json:"results"`
	TotalScore  int              `json:"score"`
}

// CompletedLesson records a credited lesson.
type CompletedLesson struct {
	LessonID    string    `json:"lessonId"`
	World       World     `json:"world"`
	Score       int       `json:"score"`
	CompletedAt time.Time `json:"completedAt"`
}

// Progression is a user's coins, score, levels and completion record.
type Progression struct {
	Coins      int               `json:"coins"`
	TotalScore int               `json:"totalScore"`
	Levels     Levels            `json:"level"`
	Completed  []CompletedLesson `json:"completedLessons"`
}

// NewProgression is the state of a freshly registered user.
func NewProgression() Progression {
	return Progression{
		Levels:    InitialLevels(),
		Completed: []CompletedLesson{},
	}
}

// HasCompleted reports whether lessonID was already credited.
func (p Progression) HasCompleted(lessonID string) bool {
	for _, c := range p.Completed {
		if c.LessonID == lessonID {
			return true
		}
	}
	return false
}

// HasCompletedIn reports whether at least one credited lesson belongs to w.
func (p Progression) HasCompletedIn(w World) bool {
	for _, c := range p.Completed {
		if c.World == w {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so callers can derive new states without aliasing.
func (p Progression) Clone() Progression {
	out := p
	out.Levels = p.Levels.Clone()
	out.Completed = append(make([]CompletedLesson, 0, len(p.Completed)+1), p.Completed...)
	return out
}

// User is the persisted record: identity plus progression.
type User struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Active      bool        `json:"isActive"`
	CreatedAt   time.Time   `json:"createdAt"`
	Progression Progression `json:"progression"`

	// AreaOfInterest is a world key or InterestAll.
	AreaOfInterest  string `json:"areaOfInterest"`
	ParentEmail     string `json:"parentEmail,omitempty"`
	ScreenTimeLimit int    `json:"screenTimeLimit"` // minutes
}

// CompletionSummary is relayed to the caller after a successful submission.
type CompletionSummary struct {
	LessonID     string           `json:"lessonId"`
	PointsEarned int              `json:"score"`
	CoinsEarned  int              `json:"coinsEarned"`
	TotalScore   int              `json:"totalScore"`
	Coins        int              `json:"newCoins"`
	LeveledUp    bool             `json:"levelUp"`
	NewLevel     int              `json:"newLevel"`
	Levels       Levels           `json:"levels"`
	Results      []QuestionResult `json:"results"`
}

// GrantSummary describes a direct coin grant.
type GrantSummary struct {
	Coins     int    `json:"newCoins"`
	LeveledUp bool   `json:"levelUp"`
	NewLevel  int    `json:"newLevel,omitempty"`
	Levels    Levels `json:"levels"`
}

// LeaderboardEntry is a snapshot-friendly projection of a user.
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	UserID     string `json:"userId"`
	Name       string `json:"name"`
	Coins      int    `json:"coins"`
	TotalScore int    `json:"totalScore"`
	Level      int    `json:"level"`
}

// Page is one slice of a sorted leaderboard.
type Page struct {
	Entries      []LeaderboardEntry `json:"leaderboard"`
	PageIndex    int                `json:"pageIndex"`
	PageSize     int                `json:"pageSize"`
	TotalEntries int                `json:"totalUsers"`
	TotalPages   int                `json:"totalPages"`
	HasNext      bool               `json:"hasNext"`
	HasPrev      bool               `json:"hasPrev"`
}

// UserRank is a single user's standing.
type UserRank struct {
	UserID       string `json:"userId"`
	Rank         int    `json:"rank"`
	TotalScore   int    `json:"userScore"`
	Coins        int    `json:"userCoins"`
	Percentile   int    `json:"percentile"`
	TotalEntries int    `json:"totalUsers"`
}

// Leaderboard is what live subscribers receive.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// WorldProgress is the per-world progress report.
type WorldProgress struct {
	Level            int `json:"level"`
	CompletedLessons int `json:"completedLessons"`
	Coins            int `json:"coins"`
}

// LessonSummary is a lesson listing row with the caller's completion flag.
type LessonSummary struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	CoinsReward      int    `json:"coinsReward"`
	EstimatedMinutes int    `json:"estimatedTime"`
	IsCompleted      bool   `json:"isCompleted"`
}

// QuestionView is a question without its answer key.
type QuestionView struct {
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
	Points  int      `json:"points"`
}

// LessonView is lesson content safe to send before submission.
type LessonView struct {
	ID               string         `json:"id"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	World            World          `json:"world"`
	Level            int            `json:"level"`
	Content          string         `json:"content"`
	Questions        []QuestionView `json:"questions"`
	CoinsReward      int            `json:"coinsReward"`
	EstimatedMinutes int            `json:"estimatedTime"`
}

// View strips the answer key and explanations.
func (l Lesson) View() LessonView {
	qs := make([]QuestionView, len(l.Questions))
	for i, q := range l.Questions {
		qs[i] = QuestionView{Prompt: q.Prompt, Options: q.Options, Points: q.Points}
	}
	return LessonView{
		ID:               l.ID,
		Title:            l.Title,
		Description:      l.Description,
		World:            l.World,
		Level:            l.Level,
		Content:          l.Content,
		Questions:        qs,
		CoinsReward:      l.CoinsReward,
		EstimatedMinutes: l.EstimatedMinutes,
	}
}
