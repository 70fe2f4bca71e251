package ranking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestHeavyRank_FeatureBreakdown(t *testing.T) {
	s := newTestScorer()
	c := Candidate{
		ID:          "job-1",
		ContentType: "job",
		AuthorID:    "org-1",
		CreatedAt:   fixedNow.Add(-48 * time.Hour),
		Likes:       100,
		Comments:    50,
		Shares:      0,
		Quality:     ptr(0.8),
		Tags:        []string{"Go", "Backend", "unrelated"},
	}
	profile := Profile{
		UserID:                "viewer",
		Interests:             []string{"go", "backend"},
		FollowedOrganizations: []string{"org-1"},
		PreferredContentTypes: []string{"JOB"},
	}

	ranked := s.HeavyRank([]Candidate{c}, profile)
	require.Len(t, ranked, 1)
	item := ranked[0]

	assert.InDelta(t, 24.0, item.Breakdown["quality"], 1e-9)
	assert.InDelta(t, 20.0, item.Breakdown["social"], 1e-9)
	assert.InDelta(t, 10.0, item.Breakdown["interests"], 1e-9)
	assert.InDelta(t, 2.0, item.Breakdown["engagement"], 1e-9)
	assert.InDelta(t, 8.0, item.Breakdown["freshness"], 1e-9)
	assert.InDelta(t, 5.0, item.Breakdown["preferred_type"], 1e-9)
	assert.InDelta(t, 69.0, item.Score, 1e-9)
	assert.Equal(t, 1, item.Rank)
	assert.Equal(t, "From an organization you follow", item.Explanation)
}

func TestHeavyRank_ScoreIsCapped(t *testing.T) {
	s := newTestScorer()
	c := Candidate{
		ID:          "p",
		ContentType: "post",
		AuthorID:    "friend",
		CreatedAt:   fixedNow,
		Likes:       1_000_000,
		Quality:     ptr(1),
		Tags:        []string{"a", "b", "c", "d", "e"},
	}
	profile := Profile{
		FollowedUsers:         []string{"friend"},
		FollowedOrganizations: []string{"friend"},
		Interests:             []string{"a", "b", "c", "d", "e"},
		PreferredContentTypes: []string{"post"},
	}

	ranked := s.HeavyRank([]Candidate{c}, profile)
	assert.Equal(t, 100.0, ranked[0].Score)
	assert.Equal(t, "From someone you follow", ranked[0].Explanation)
}

func TestHeavyRank_IsDeterministic(t *testing.T) {
	s := newTestScorer()
	cands := []Candidate{
		{ID: "a", ContentType: "post", CreatedAt: fixedNow.Add(-time.Hour), Likes: 10},
		{ID: "b", ContentType: "post", CreatedAt: fixedNow.Add(-time.Hour), Likes: 10},
		{ID: "c", ContentType: "video", CreatedAt: fixedNow.Add(-2 * time.Hour), Likes: 400},
	}

	first := s.HeavyRank(cands, Profile{})
	second := s.HeavyRank(cands, Profile{})
	assert.Equal(t, first, second)
	assert.Equal(t, "c", first[0].ID)
	assert.Equal(t, "a", first[1].ID)
	assert.Equal(t, "b", first[2].ID)
}

func TestHeavyRank_EqualCandidatesKeepTieBreak(t *testing.T) {
	s := newTestScorer()
	cands := []Candidate{
		{ID: "b", ContentType: "post", CreatedAt: fixedNow.Add(-time.Hour), Likes: 10, Tags: []string{"go"}},
		{ID: "a", ContentType: "post", CreatedAt: fixedNow.Add(-time.Hour), Likes: 10, Tags: []string{"go"}},
	}
	profile := Profile{Interests: []string{"go"}, PreferredContentTypes: []string{"post"}}

	want := s.HeavyRank(cands, profile)
	require.Len(t, want, 2)
	require.Equal(t, "a", want[0].ID)
	for i := 0; i < 300; i++ {
		got := s.HeavyRank(cands, profile)
		require.Equal(t, want[0].Score, got[0].Score)
		require.Equal(t, want[0].Score, got[1].Score)
		require.Equal(t, "a", got[0].ID, "run %d", i)
	}
}

func TestLightRank_UsesEngagementModel(t *testing.T) {
	s := newTestScorer()
	cands := []Candidate{
		{ID: "text", ContentType: "post", CreatedAt: fixedNow.Add(-2 * time.Hour), Likes: 10},
		{ID: "video", ContentType: "video", CreatedAt: fixedNow.Add(-2 * time.Hour), Likes: 10},
		{ID: "sponsored", ContentType: "post", CreatedAt: fixedNow.Add(-2 * time.Hour), Sponsored: true},
	}

	ranked := s.LightRank(cands, Profile{})
	require.Len(t, ranked, 3)
	assert.Equal(t, "video", ranked[0].ID)
	assert.Equal(t, "text", ranked[1].ID)
	assert.Equal(t, "Sponsored", ranked[2].Explanation)
	assert.InDelta(t, 30.0, ranked[0].Breakdown["engagement"], 1e-9)
}

func TestTwoStage_HeavyHeadLightTail(t *testing.T) {
	s := newTestScorer()
	cands := []Candidate{
		{ID: "hot", ContentType: "post", CreatedAt: fixedNow.Add(-20 * time.Hour), Likes: 500},
		{ID: "warm", ContentType: "post", CreatedAt: fixedNow.Add(-2 * time.Hour), Likes: 50, Tags: []string{"go"}},
		{ID: "cold", ContentType: "post", CreatedAt: fixedNow.Add(-2 * time.Hour), Likes: 1},
	}
	profile := Profile{Interests: []string{"go"}}

	ranked := s.TwoStage(cands, profile, 2)
	require.Len(t, ranked, 3)
	assert.Equal(t, "warm", ranked[0].ID, "interest match wins the heavy stage")
	assert.Equal(t, "hot", ranked[1].ID)
	assert.Equal(t, "cold", ranked[2].ID)
	for i, item := range ranked {
		assert.Equal(t, i+1, item.Rank)
	}
}
