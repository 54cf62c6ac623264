// SPDX-License-Identifier: MIT

// Package team serves the crew roster embedded in the binary.
package team

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed roster.yaml
var rosterYAML []byte

// Avatar is a member portrait.
type Avatar struct {
	Src string `yaml:"src" json:"src" validate:"required"`
	Alt string `yaml:"alt" json:"alt" validate:"required"`
}

// SocialLink points to a member profile elsewhere.
type SocialLink struct {
	Platform string `yaml:"platform" json:"platform" validate:"oneof=twitter youtube discord twitch website"`
	URL      string `yaml:"url" json:"url" validate:"required,url"`
	Label    string `yaml:"label,omitempty" json:"label,omitempty"`
}

// Member is one crew member.
type Member struct {
	ID      string       `yaml:"id" json:"id" validate:"required"`
	Name    string       `yaml:"name" json:"name" validate:"required"`
	Handle  string       `yaml:"handle" json:"handle" validate:"required"`
	Role    string       `yaml:"role" json:"role" validate:"required"`
	Group   string       `yaml:"group" json:"group" validate:"required"`
	Bio     string       `yaml:"bio" json:"bio" validate:"required"`
	Avatar  Avatar       `yaml:"avatar" json:"avatar"`
	Socials []SocialLink `yaml:"socials" json:"socials" validate:"dive"`
}

// Group is a section of the roster.
type Group struct {
	ID      string   `yaml:"id" json:"id" validate:"required"`
	Title   string   `yaml:"title" json:"title" validate:"required"`
	Summary string   `yaml:"summary" json:"summary" validate:"required"`
	Members []Member `yaml:"members" json:"members" validate:"dive"`
}

var (
	loadOnce sync.Once
	groups   []Group
	loadErr  error
)

// Parse decodes and validates a roster document. Unknown keys are rejected.
func Parse(data []byte) ([]Group, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var out []Group
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("team: decode roster: %w", err)
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	seen := make(map[string]string)
	for i := range out {
		g := &out[i]
		if err := v.Struct(g); err != nil {
			return nil, fmt.Errorf("team: group %q: %w", g.ID, err)
		}
		for j := range g.Members {
			m := &g.Members[j]
			if m.Socials == nil {
				m.Socials = []SocialLink{}
			}
			if prev, dup := seen[m.ID]; dup {
				return nil, fmt.Errorf("team: member %q listed in both %q and %q", m.ID, prev, g.ID)
			}
			seen[m.ID] = g.ID
		}
	}
	return out, nil
}

func load() {
	loadOnce.Do(func() {
		groups, loadErr = Parse(rosterYAML)
	})
}

// Load validates the embedded roster. Call it at startup to fail fast.
func Load() error {
	load()
	return loadErr
}

// Groups returns the roster grouped by section, in display order.
func Groups() []Group {
	load()
	out := make([]Group, len(groups))
	for i, g := range groups {
		out[i] = g
		out[i].Members = append([]Member(nil), g.Members...)
	}
	return out
}

// Roster returns every member across all groups, in display order.
func Roster() []Member {
	load()
	var out []Member
	for _, g := range groups {
		out = append(out, g.Members...)
	}
	return out
}
