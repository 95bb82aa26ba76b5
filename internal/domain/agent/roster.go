// Package agent defines the review panel (Profile, Roster) and the typed
// results returned by the agent capability.
package agent

import (
	"errors"
	"fmt"
)

// Profile is one panel member.
type Profile struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Model   string `json:"model" yaml:"model"`
	Persona string `json:"persona" yaml:"persona"`
}

// Roster is the configured panel, in configuration order.
type Roster []Profile

// Validate checks that the roster is non-empty, every member has an id and a
// model, and no id appears twice.
func (r Roster) Validate() error {
	if len(r) == 0 {
		return errors.New("roster has no agents")
	}
	seen := make(map[string]bool, len(r))
	for i := range r {
		p := &r[i]
		if p.ID == "" {
			return fmt.Errorf("roster[%d]: id is required", i)
		}
		if p.Model == "" {
			return fmt.Errorf("roster[%d] %s: model is required", i, p.ID)
		}
		if seen[p.ID] {
			return fmt.Errorf("roster: duplicate agent %s", p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// Get returns the profile with the given id.
func (r Roster) Get(id string) (Profile, bool) {
	for i := range r {
		if r[i].ID == id {
			return r[i], true
		}
	}
	return Profile{}, false
}

// Except returns every member other than authorID, preserving order.
func (r Roster) Except(authorID string) Roster {
	out := make(Roster, 0, len(r))
	for i := range r {
		if r[i].ID != authorID {
			out = append(out, r[i])
		}
	}
	return out
}

// IDs lists member ids in roster order.
func (r Roster) IDs() []string {
	ids := make([]string, len(r))
	for i := range r {
		ids[i] = r[i].ID
	}
	return ids
}
