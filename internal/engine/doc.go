// Package engine holds the progression rules: scoring a lesson submission,
// crediting a user exactly once per lesson, level thresholds and leaderboard
// ordering. Everything here is pure; stores own persistence and atomicity.
package engine
