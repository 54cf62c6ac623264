// SPDX-License-Identifier: MIT

package team

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedRosterIsValid(t *testing.T) {
	require.NoError(t, Load())

	gs := Groups()
	require.Len(t, gs, 3)
	assert.Equal(t, []string{"leadership", "animation", "fx-sound"}, []string{gs[0].ID, gs[1].ID, gs[2].ID})
	assert.Equal(t, "Sound & FX Lab", gs[2].Title)

	roster := Roster()
	require.Len(t, roster, 6)
	ids := make([]string, len(roster))
	for i, m := range roster {
		ids[i] = m.ID
		assert.NotEmpty(t, m.Avatar.Src, m.ID)
	}
	assert.Equal(t, []string{"jiwoo-song", "mina-park", "kai-nguyen", "lila-burns", "oscar-velez", "nova-chen"}, ids)
	assert.Equal(t, "@shadowdial", roster[0].Handle)
	assert.Equal(t, "Join Mina on Discord", roster[1].Socials[1].Label)
}

func TestGroupsReturnsCopy(t *testing.T) {
	gs := Groups()
	gs[0].Members[0].Name = "changed"
	assert.Equal(t, "Jiwoo Song", Groups()[0].Members[0].Name)
}

func TestParse_Rejects(t *testing.T) {
	tests := map[string]string{
		"unknown platform": `
- id: g
  title: T
  summary: S
  members:
    - {id: a, name: A, handle: "@a", role: R, group: G, bio: B, avatar: {src: /a.svg, alt: A}, socials: [{platform: myspace, url: "https://x.test"}]}
`,
		"bad url": `
- id: g
  title: T
  summary: S
  members:
    - {id: a, name: A, handle: "@a", role: R, group: G, bio: B, avatar: {src: /a.svg, alt: A}, socials: [{platform: website, url: "nope"}]}
`,
		"missing bio": `
- id: g
  title: T
  summary: S
  members:
    - {id: a, name: A, handle: "@a", role: R, group: G, avatar: {src: /a.svg, alt: A}}
`,
		"unknown key": `
- id: g
  title: T
  summary: S
  tagline: extra
  members: []
`,
		"duplicate member": `
- id: g
  title: T
  summary: S
  members:
    - {id: a, name: A, handle: "@a", role: R, group: G, bio: B, avatar: {src: /a.svg, alt: A}}
- id: h
  title: T
  summary: S
  members:
    - {id: a, name: A, handle: "@a", role: R, group: G, bio: B, avatar: {src: /a.svg, alt: A}}
`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_DefaultsSocials(t *testing.T) {
	gs, err := Parse([]byte(`
- id: g
  title: T
  summary: S
  members:
    - {id: a, name: A, handle: "@a", role: R, group: G, bio: B, avatar: {src: /a.svg, alt: A}}
`))
	require.NoError(t, err)
	assert.NotNil(t, gs[0].Members[0].Socials)
	assert.Empty(t, gs[0].Members[0].Socials)
}
