package coldstart

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"athena-feed/internal/domain"
)

func TestEveryPersonaHasDefaults(t *testing.T) {
	for _, p := range domain.Personas {
		d := DefaultsFor(p)
		assert.Len(t, d.RecommendedSkills, 4, p)
		assert.NotEmpty(t, d.Interests, p)
		assert.NotEmpty(t, d.ContentTypes, p)
	}
	assert.Equal(t, DefaultsFor(domain.PersonaEarlyCareer), DefaultsFor(""))
	assert.Equal(t, DefaultPersona, EffectivePersona("ASTRONAUT"))
}

func TestIsColdStart(t *testing.T) {
	warm := &domain.User{Persona: domain.PersonaCreator, Skills: []string{"a", "b", "c"}}

	assert.False(t, IsColdStart(warm, domain.UserStats{Likes: 10}))
	assert.True(t, IsColdStart(warm, domain.UserStats{Likes: 9}), "few likes")
	assert.True(t, IsColdStart(&domain.User{Skills: warm.Skills}, domain.UserStats{Likes: 50}), "no persona")
	assert.True(t, IsColdStart(&domain.User{Persona: domain.PersonaCreator, Skills: []string{"a"}}, domain.UserStats{Likes: 50}), "few skills")
	assert.True(t, IsColdStart(nil, domain.UserStats{}))
}

func TestScore(t *testing.T) {
	assert.Equal(t, 100, Score(nil, domain.UserStats{}))
	assert.Equal(t, 100, Score(&domain.User{}, domain.UserStats{}))

	complete := &domain.User{
		Persona:         domain.PersonaMentor,
		CurrentJobTitle: "Staff Engineer",
		Bio:             "hi",
		Skills:          []string{"a", "b", "c", "d", "e"},
	}
	active := domain.UserStats{Likes: 20, Posts: 1, Comments: 5, Following: 5}
	assert.Equal(t, 0, Score(complete, active))

	partial := &domain.User{Persona: domain.PersonaMentor, Skills: []string{"a", "b", "c"}}
	assert.Equal(t, 100-15-15-10, Score(partial, domain.UserStats{Likes: 7}))
}

func TestMissingSkills(t *testing.T) {
	missing := MissingSkills(domain.PersonaCreator, []string{"video production", " STORYTELLING "})
	assert.Equal(t, []string{"Content Strategy", "Social Media"}, missing)
}

func TestJobFilterFor(t *testing.T) {
	early := JobFilterFor(domain.PersonaEarlyCareer, "Nairobi")
	assert.Equal(t, []string{"FULL_TIME", "INTERNSHIP", "APPRENTICESHIP"}, early.Types)
	assert.Equal(t, []string{"ENTRY", "JUNIOR"}, early.ExperienceLevels)
	assert.Equal(t, "Nairobi", early.Location)

	mid := JobFilterFor(domain.PersonaMidCareer, "")
	assert.Empty(t, mid.Types)
	assert.Empty(t, mid.ExperienceLevels)
}

func TestGroupCategories(t *testing.T) {
	assert.Equal(t, []string{"startup", "business", "funding"}, GroupCategories(domain.PersonaEntrepreneur))
	assert.Equal(t, []string{"general"}, GroupCategories(domain.PersonaRealEstate))
}

func TestAssemble(t *testing.T) {
	src := Sources{
		Posts:   []domain.Post{{ID: "p1", Content: strings.Repeat("x", 150)}, {ID: "p2"}},
		Courses: []domain.Course{{ID: "c1", Title: "Intro to Go"}},
		Jobs:    []domain.Job{{ID: "j1", Title: "Intern"}},
		Mentors: []domain.MentorProfile{{UserID: "m1", User: domain.AuthorSummary{DisplayName: "Ada"}}},
		Users:   []domain.AuthorSummary{{ID: "u1", DisplayName: "Grace"}},
		Groups:  []domain.Group{{ID: "g1", Name: "Startup founders"}},
	}

	recs := Assemble(domain.PersonaRealEstate, "Lagos", src, 0)
	require.Len(t, recs, 7)

	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
		if i > 0 {
			assert.GreaterOrEqual(t, recs[i-1].Score, r.Score)
		}
	}
	assert.Equal(t, []string{"c1", "p1", "p2", "j1", "m1", "u1", "g1"}, ids)

	assert.Len(t, recs[1].Title, 100)
	assert.Equal(t, "Popular post", recs[2].Title)
	assert.Equal(t, "Popular in the real estate community", recs[1].Reason)
	assert.Equal(t, "Jobs near Lagos", recs[3].Reason)
	assert.Equal(t, "Ada", recs[4].Title)
	assert.Equal(t, "Popular real estate community", recs[6].Reason)
}

func TestAssemble_TruncatesAndDefaultsPersona(t *testing.T) {
	src := Sources{
		Posts: []domain.Post{{ID: "p1"}, {ID: "p2"}},
		Jobs:  []domain.Job{{ID: "j1"}},
	}
	recs := Assemble("", "", src, 2)
	require.Len(t, recs, 2)
	assert.Equal(t, "Popular in the early career community", recs[0].Reason)
	assert.Equal(t, RecommendPost, recs[1].Type)

	all := Assemble("", "", src, 10)
	assert.Equal(t, "Recommended for your profile", all[2].Reason)
}

func TestOnboarding(t *testing.T) {
	steps := Onboarding(&domain.User{}, domain.UserStats{})
	require.Len(t, steps, 6)
	for i, s := range steps {
		assert.Equal(t, i+1, s.Priority)
	}
	assert.Equal(t, "Select your persona", steps[0].Step)
	assert.Equal(t, "/compose", steps[5].Action)

	done := &domain.User{
		Persona: domain.PersonaCreator,
		Bio:     "bio",
		Avatar:  "https://cdn/a.png",
		Skills:  []string{"a", "b", "c"},
	}
	assert.Empty(t, Onboarding(done, domain.UserStats{Following: 5, Posts: 2}))
	assert.Nil(t, Onboarding(nil, domain.UserStats{}))
}
