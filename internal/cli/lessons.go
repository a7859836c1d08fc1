package cli

import "learnworld-service/internal/domain"

// sampleLessons seeds the static loader when no postgres is configured.
func sampleLessons() map[string]domain.Lesson {
	lessons := []domain.Lesson{
		{
			ID:          "science-plants-1",
			Title:       "How Plants Grow",
			Description: "Sunlight, water and soil.",
			World:       domain.Science,
			Level:       1,
			Content:     "Plants make their own food using sunlight. This is called photosynthesis.",
			Questions: []domain.Question{
				{Prompt: "What do plants use to make food?", Options: []string{"Moonlight", "Sunlight", "Music"}, CorrectIndex: 1, Explanation: "Photosynthesis needs sunlight."},
				{Prompt: "Which part of a plant drinks water?", Options: []string{"Roots", "Petals", "Seeds"}, CorrectIndex: 0},
			},
			CoinsReward: 20,
			Active:      true,
		},
		{
			ID:          "math-addition-1",
			Title:       "Adding Small Numbers",
			Description: "Count and add up to 20.",
			World:       domain.Math,
			Level:       1,
			Questions: []domain.Question{
				{Prompt: "What is 7 + 5?", Options: []string{"11", "12", "13"}, CorrectIndex: 1},
				{Prompt: "What is 9 + 9?", Options: []string{"18", "19", "17"}, CorrectIndex: 0, Points: 15},
			},
			CoinsReward: 25,
			Active:      true,
		},
		{
			ID:          "history-indus-1",
			Title:       "The Indus Valley",
			Description: "One of the oldest cities in the world.",
			World:       domain.History,
			Level:       1,
			Questions: []domain.Question{
				{Prompt: "Which river gave the Indus Valley its name?", Options: []string{"Ganga", "Indus", "Yamuna"}, CorrectIndex: 1},
			},
			CoinsReward: 30,
			Active:      true,
		},
		{
			ID:          "life-money-1",
			Title:       "Saving Money",
			Description: "Why we keep a little aside.",
			World:       domain.LifeSkills,
			Level:       1,
			Questions: []domain.Question{
				{Prompt: "Where is a safe place to keep savings?", Options: []string{"A bank", "Under a rock"}, CorrectIndex: 0, Explanation: "Banks keep money safe."},
			},
			CoinsReward: 15,
			Active:      true,
		},
	}
	out := make(map[string]domain.Lesson, len(lessons))
	for _, l := range lessons {
		out[l.ID] = l
	}
	return out
}
