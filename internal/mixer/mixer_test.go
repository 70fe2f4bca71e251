package mixer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"athena-feed/internal/domain"
)

func candidates(prefix string, n int) []Candidate {
	out := make([]Candidate, n)
	for i := range out {
		out[i] = Candidate{Post: domain.FeedPost{Post: domain.Post{ID: fmt.Sprintf("%s-%d", prefix, i)}}}
	}
	return out
}

func campaigns(n int) []domain.SponsoredCampaign {
	out := make([]domain.SponsoredCampaign, n)
	for i := range out {
		out[i] = domain.SponsoredCampaign{ID: fmt.Sprintf("ad-%d", i), IsActive: true}
	}
	return out
}

func jobs(n int) []Opportunity {
	out := make([]Opportunity, n)
	for i := range out {
		out[i] = Opportunity{Job: &domain.Job{ID: fmt.Sprintf("job-%d", i)}, MatchScore: 70}
	}
	return out
}

func newTestMixer(t *testing.T) *Mixer {
	t.Helper()
	m, err := New(DefaultConfig())
	require.NoError(t, err)
	return m
}

func TestMix_PlacementRules(t *testing.T) {
	m := newTestMixer(t)
	out := m.Mix(Input{
		Viewer:        &Viewer{ID: "viewer"},
		Organic:       candidates("org", 30),
		Discovery:     candidates("disc", 30),
		Sponsored:     campaigns(10),
		Opportunities: jobs(10),
		Limit:         20,
	})

	require.Len(t, out.Items, 20)
	assert.True(t, out.HasMore)

	var sponsoredAt, opportunityAt []int
	for i, item := range out.Items {
		switch item.Kind {
		case KindSponsored:
			sponsoredAt = append(sponsoredAt, i+1)
		case KindOpportunity:
			opportunityAt = append(opportunityAt, i+1)
		}
	}
	// sponsored quota is floor(20*0.10)=2, opportunity quota floor(20*0.15)=3
	assert.Equal(t, []int{3, 7}, sponsoredAt)
	assert.Equal(t, []int{6, 12, 18}, opportunityAt)
	assert.Equal(t, 2, out.Meta.SponsoredCount)
	assert.Equal(t, 3, out.Meta.OpportunityCount)
	assert.Equal(t, 20, out.Meta.OrganicCount+out.Meta.DiscoveryCount+out.Meta.SponsoredCount+out.Meta.OpportunityCount)
}

func TestMix_SponsoredInvariants(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SponsoredRatio = 0.4
	cfg.OrganicRatio = 0.3
	cfg.DiscoveryRatio = 0.2
	cfg.OpportunityRatio = 0.1
	cfg.MaxSponsoredPerSession = 5
	m, err := New(cfg)
	require.NoError(t, err)

	for _, limit := range []int{1, 5, 13, 40, 100} {
		out := m.Mix(Input{
			Organic:   candidates("org", 50),
			Discovery: candidates("disc", 50),
			Sponsored: campaigns(50),
			Limit:     limit,
		})
		assert.LessOrEqual(t, len(out.Items), limit)

		last := -1
		count := 0
		for i, item := range out.Items {
			if item.Kind != KindSponsored {
				continue
			}
			pos := i + 1
			count++
			assert.GreaterOrEqual(t, pos, cfg.SponsoredStartPosition)
			if last > 0 {
				assert.GreaterOrEqual(t, pos-last, cfg.MinPostsBetweenSponsored)
			}
			last = pos
		}
		assert.LessOrEqual(t, count, cfg.MaxSponsoredPerSession)
		assert.Equal(t, count, out.Meta.SponsoredCount)
	}
}

func TestMix_MaxConsecutiveSponsored(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinPostsBetweenSponsored = 0
	cfg.SponsoredStartPosition = 1
	cfg.SponsoredRatio = 0.5
	cfg.OrganicRatio = 0.5
	cfg.DiscoveryRatio = 0
	cfg.OpportunityRatio = 0
	m, err := New(cfg)
	require.NoError(t, err)

	out := m.Mix(Input{Organic: candidates("org", 10), Sponsored: campaigns(10), Limit: 10})
	for i := 1; i < len(out.Items); i++ {
		bothSponsored := out.Items[i].Kind == KindSponsored && out.Items[i-1].Kind == KindSponsored
		assert.False(t, bothSponsored, "consecutive sponsored at %d", i)
	}
	assert.Equal(t, 5, out.Meta.SponsoredCount)
}

func TestMix_StopsWhenPoolsRunDry(t *testing.T) {
	m := newTestMixer(t)
	out := m.Mix(Input{
		Organic:       candidates("org", 2),
		Discovery:     candidates("disc", 1),
		Opportunities: jobs(2),
		Limit:         20,
	})

	require.Len(t, out.Items, 5)
	assert.False(t, out.HasMore)
	assert.Equal(t, 2, out.Meta.OrganicCount)
	assert.Equal(t, 1, out.Meta.DiscoveryCount)
	assert.Equal(t, 2, out.Meta.OpportunityCount)
}

func TestMix_EmptyLimit(t *testing.T) {
	m := newTestMixer(t)
	out := m.Mix(Input{Organic: candidates("org", 3), Limit: 0})
	assert.Empty(t, out.Items)
	assert.True(t, out.HasMore)
}

func TestMix_NormalisedScoresAndReasons(t *testing.T) {
	m := newTestMixer(t)
	organic := candidates("org", 2)
	organic[0].Post.DecayedScore = 42
	organic[0].AuthorFollowed = true
	discovery := candidates("disc", 3)
	discovery[0].Trending = true
	discovery[1].SimilarInterests = true
	discovery[1].Score = 7

	out := m.Mix(Input{Organic: organic, Discovery: discovery, Limit: 5})
	byID := make(map[string]Item)
	for _, item := range out.Items {
		byID[item.ID] = item
	}

	assert.Equal(t, 42.0, byID["org-0"].Score)
	assert.Equal(t, ReasonFollowed, byID["org-0"].Reason)
	assert.Equal(t, 999.0, byID["org-1"].Score)
	assert.Equal(t, ReasonNetwork, byID["org-1"].Reason)
	assert.Equal(t, ReasonTrending, byID["disc-0"].Reason)
	assert.Equal(t, 7.0, byID["disc-1"].Score)
	assert.Equal(t, ReasonInterests, byID["disc-1"].Reason)
	assert.Equal(t, ReasonSuggested, byID["disc-2"].Reason)
	assert.Equal(t, ContentPost, byID["disc-2"].ContentType)
}

func TestMix_SponsoredTargeting(t *testing.T) {
	m := newTestMixer(t)
	ads := []domain.SponsoredCampaign{
		{ID: "generic", BaseScore: 100},
		{ID: "persona", BaseScore: 100, TargetPersonas: []domain.Persona{domain.PersonaCreator}},
		{ID: "everything", BaseScore: 100,
			TargetPersonas:  []domain.Persona{domain.PersonaCreator},
			TargetLocations: []string{"lagos"},
			TargetInterests: []string{"Go", "SQL"},
		},
	}
	viewer := &Viewer{ID: "v", Persona: domain.PersonaCreator, Location: "Lagos", Skills: []string{"go", "sql", "rust"}}

	items := m.rankSponsored(ads, viewer)
	require.Len(t, items, 3)
	assert.Equal(t, "everything", items[0].ID)
	assert.InDelta(t, 100*1.5*1.3*1.2, items[0].Score, 1e-9)
	assert.Equal(t, "persona", items[1].ID)
	assert.InDelta(t, 150.0, items[1].Score, 1e-9)
	assert.Equal(t, "generic", items[2].ID)
	assert.Equal(t, ContentAd, items[2].ContentType)
	assert.Equal(t, ReasonSponsored, items[2].Reason)
}

func TestMix_OpportunityPersonalisation(t *testing.T) {
	m := newTestMixer(t)
	opps := []Opportunity{
		{Job: &domain.Job{ID: "job", RequiredSkills: []string{"Go", "Kubernetes"}}, MatchScore: 70},
		{Job: &domain.Job{ID: "great"}, MatchScore: 85},
		{Course: &domain.Course{ID: "course", SkillsTaught: []string{"go", "rust", "zig"}}, MatchScore: 60},
	}
	viewer := &Viewer{ID: "v", Skills: []string{"go"}}

	items := m.rankOpportunities(opps, viewer)
	require.Len(t, items, 3)
	assert.Equal(t, "job", items[0].ID)
	assert.InDelta(t, 90.0, items[0].Score, 1e-9)
	assert.Equal(t, ReasonJob, items[0].Reason)
	assert.Equal(t, "course", items[1].ID)
	assert.InDelta(t, 90.0, items[1].Score, 1e-9)
	assert.Equal(t, ReasonSkillGap, items[1].Reason)
	assert.Equal(t, ContentCourse, items[1].ContentType)
	assert.Equal(t, "great", items[2].ID)
	assert.Equal(t, ReasonGreatMatch, items[2].Reason)

	anon := m.rankOpportunities(opps, nil)
	assert.Equal(t, ReasonJob, anon[0].Reason)
	assert.Equal(t, ReasonLearning, anon[2].Reason)
	assert.Equal(t, 60.0, anon[2].Score)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"negative ratio", func(c *Config) { c.SponsoredRatio = -0.1 }},
		{"ratios above one", func(c *Config) { c.OrganicRatio = 0.9 }},
		{"zero insert interval", func(c *Config) { c.OpportunityInsertEvery = 0 }},
		{"negative gap", func(c *Config) { c.MinPostsBetweenSponsored = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			assert.ErrorIs(t, err, ErrInvalidConfig)

			_, err = New(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
