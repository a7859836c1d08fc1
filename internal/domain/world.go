package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// World is a subject track with its own level counter.
type World int

const (
	Science World = iota + 1
	Math
	History
	LifeSkills
)

// Worlds lists every world in display order.
var Worlds = []World{Science, Math, History, LifeSkills}

type worldInfo struct {
	key         string
	display     string
	title       string
	description string
	icon        string
	color       string
}

var worldTable = map[World]worldInfo{
	Science:    {key: "science", display: "Science", title: "Science World", description: "Explore the wonders of science!", icon: "🔬", color: "#4CAF50"},
	Math:       {key: "math", display: "Math", title: "Math World", description: "Master numbers and calculations!", icon: "🧮", color: "#2196F3"},
	History:    {key: "history", display: "History", title: "Indian History World", description: "Discover India's rich heritage!", icon: "🏛️", color: "#FF9800"},
	LifeSkills: {key: "lifeSkills", display: "Life Skills", title: "Life Skills World", description: "Learn essential life skills!", icon: "🌟", color: "#9C27B0"},
}

// worldAliases maps normalized spellings (lower case, no spaces/dashes/underscores) to worlds.
var worldAliases = map[string]World{
	"science":    Science,
	"math":       Math,
	"maths":      Math,
	"history":    History,
	"lifeskills": LifeSkills,
}

// ParseWorld accepts a key ("lifeSkills"), a display name ("Life Skills") or a URL slug ("life-skills").
func ParseWorld(raw string) (World, error) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	norm = strings.NewReplacer(" ", "", "-", "", "_", "").Replace(norm)
	if w, ok := worldAliases[norm]; ok {
		return w, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownWorld, raw)
}

// Valid reports whether w is one of the enumerated worlds.
func (w World) Valid() bool {
	_, ok := worldTable[w]
	return ok
}

// Key is the stable storage key, e.g. "lifeSkills".
func (w World) Key() string {
	return worldTable[w].key
}

// String returns the display name, e.g. "Life Skills".
func (w World) String() string {
	if info, ok := worldTable[w]; ok {
		return info.display
	}
	return fmt.Sprintf("World(%d)", int(w))
}

func (w World) MarshalText() ([]byte, error) {
	if !w.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownWorld, int(w))
	}
	return []byte(w.Key()), nil
}

func (w *World) UnmarshalText(text []byte) error {
	parsed, err := ParseWorld(string(text))
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// WorldInfo is the catalogue view of a world.
type WorldInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
}

// Catalogue returns presentation details for every world.
func Catalogue() []WorldInfo {
	out := make([]WorldInfo, 0, len(Worlds))
	for _, w := range Worlds {
		info := worldTable[w]
		out = append(out, WorldInfo{
			ID:          info.key,
			Name:        info.title,
			Description: info.description,
			Icon:        info.icon,
			Color:       info.color,
		})
	}
	return out
}

// Levels maps each world to its level. Missing worlds are level 1.
type Levels map[World]int

// Of returns the level for w, defaulting to 1.
func (l Levels) Of(w World) int {
	if lvl, ok := l[w]; ok && lvl > 0 {
		return lvl
	}
	return 1
}

func (l Levels) MarshalJSON() ([]byte, error) {
	out := make(map[string]int, len(Worlds))
	for _, w := range Worlds {
		out[w.Key()] = l.Of(w)
	}
	return json.Marshal(out)
}

func (l *Levels) UnmarshalJSON(data []byte) error {
	var raw map[string]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Levels, len(raw))
	for k, v := range raw {
		w, err := ParseWorld(k)
		if err != nil {
			return err
		}
		out[w] = v
	}
	*l = out
	return nil
}

// Clone returns an independent copy of l.
func (l Levels) Clone() Levels {
	out := make(Levels, len(l))
	for w, lvl := range l {
		out[w] = lvl
	}
	return out
}

// InitialLevels returns level 1 for every world.
func InitialLevels() Levels {
	out := make(Levels, len(Worlds))
	for _, w := range Worlds {
		out[w] = 1
	}
	return out
}
