package domain

import (
	"fmt"
	"strings"
)

const (
	// InterestAll marks a user interested in every world.
	InterestAll = "all"
	// DefaultScreenTimeLimit is the daily limit in minutes for new users.
	DefaultScreenTimeLimit = 20
)

// ProfileUpdate carries the editable profile fields. Zero values leave the
// current value untouched.
type ProfileUpdate struct {
	Name            string `json:"name"`
	AreaOfInterest  string `json:"areaOfInterest"`
	ParentEmail     string `json:"parentEmail"`
	ScreenTimeLimit int    `json:"screenTimeLimit"`
}

// ParseInterest normalizes an area of interest to a world key or InterestAll.
func ParseInterest(raw string) (string, error) {
	if strings.EqualFold(strings.TrimSpace(raw), InterestAll) {
		return InterestAll, nil
	}
	w, err := ParseWorld(raw)
	if err != nil {
		return "", fmt.Errorf("%w: area of interest %q", ErrInvalidProfile, raw)
	}
	return w.Key(), nil
}

// ApplyProfile returns u with the non-zero fields of p applied.
func (u User) ApplyProfile(p ProfileUpdate) (User, error) {
	if name := strings.TrimSpace(p.Name); name != "" {
		u.Name = name
	}
	if p.AreaOfInterest != "" {
		interest, err := ParseInterest(p.AreaOfInterest)
		if err != nil {
			return u, err
		}
		u.AreaOfInterest = interest
	}
	if email := strings.ToLower(strings.TrimSpace(p.ParentEmail)); email != "" {
		if !strings.Contains(email, "@") {
			return u, fmt.Errorf("%w: parent email", ErrInvalidProfile)
		}
		u.ParentEmail = email
	}
	switch {
	case p.ScreenTimeLimit < 0:
		return u, fmt.Errorf("%w: screen time limit must be positive", ErrInvalidProfile)
	case p.ScreenTimeLimit > 0:
		u.ScreenTimeLimit = p.ScreenTimeLimit
	}
	return u, nil
}
