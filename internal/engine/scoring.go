package engine

import "learnworld-service/internal/domain"

// Evaluate scores answers against questions. Missing, extra, negative or
// out-of-range answers count as incorrect and never produce an error.
func Evaluate(questions []domain.Question, answers domain.AnswerSubmission) domain.ScoringResult {
	result := domain.ScoringResult{
		PerQuestion: make([]domain.QuestionResult, len(questions)),
	}
	for i, q := range questions {
		answer := domain.NoAnswer
		if i < len(answers) && answers[i] >= 0 && answers[i] < len(q.Options) {
			answer = answers[i]
		}
		correct := answer != domain.NoAnswer && answer == q.CorrectIndex
		awarded := 0
		if correct {
			awarded = q.Points
		}
		result.PerQuestion[i] = domain.QuestionResult{
			Prompt:       q.Prompt,
			Answer:       answer,
			CorrectIndex: q.CorrectIndex,
			Correct:      correct,
			Awarded:      awarded,
			Explanation:  q.Explanation,
		}
		result.TotalScore += awarded
	}
	return result
}

// MaxScore is the best achievable score for questions.
func MaxScore(questions []domain.Question) int {
	total := 0
	for _, q := range questions {
		total += q.Points
	}
	return total
}
