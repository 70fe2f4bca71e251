package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"athena-feed/internal/domain"
	"athena-feed/internal/mixer"
	"athena-feed/internal/ranking"
)

func seedMixedFeed(t *testing.T, env *testEnv) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		author := fmt.Sprintf("author-%d", i)
		env.user(t, author, withPersona(domain.PersonaCreator))
		for j := 0; j < 4; j++ {
			env.post(t, fmt.Sprintf("%s-post-%d", author, j), author,
				time.Duration(i*4+j+1)*time.Hour, withLikes(int64(10*(j+1))))
		}
	}
	require.NoError(t, env.store.Jobs.Create(ctx, &domain.Job{
		ID: "job-1", Title: "Go Engineer", Status: domain.JobStatusActive, RequiredSkills: []string{"go"}, CreatedAt: baseTime,
	}))
	require.NoError(t, env.store.Courses.Create(ctx, &domain.Course{
		ID: "course-1", Title: "Storytelling", Status: domain.CourseStatusPublished, IsActive: true, CreatedAt: baseTime,
	}))
	require.NoError(t, env.store.Campaigns.Create(ctx, &domain.SponsoredCampaign{
		ID: "ad-1", Advertiser: "Acme", Content: "Buy", StartsAt: baseTime.Add(-time.Hour), IsActive: true, CreatedAt: baseTime,
	}))
}

func TestMixService_Mixed(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	seedMixedFeed(t, env)
	env.user(t, "viewer", withPersona(domain.PersonaCreator))
	env.user(t, "premium", func(u *domain.User) { u.SubscriptionTier = domain.SubscriptionPremium })
	env.follow(t, "viewer", "author-0")
	svc := env.mix(t)

	out, err := svc.Mixed(ctx, "viewer", 1, 10)
	require.NoError(t, err)
	require.Len(t, out.Items, 10)

	seen := map[string]bool{}
	kinds := map[mixer.Kind]int{}
	for i, item := range out.Items {
		assert.False(t, seen[item.ID], "duplicate item %s", item.ID)
		seen[item.ID] = true
		kinds[item.Kind]++
		if item.Kind == mixer.KindSponsored {
			assert.GreaterOrEqual(t, i+1, mixer.DefaultConfig().SponsoredStartPosition)
		}
	}
	assert.Equal(t, 1, out.Meta.SponsoredCount)
	assert.Equal(t, 1, out.Meta.OpportunityCount)
	assert.Equal(t, kinds[mixer.KindOrganic], out.Meta.OrganicCount)
	assert.Equal(t, kinds[mixer.KindDiscovery], out.Meta.DiscoveryCount)
	assert.True(t, out.HasMore)

	out, err = svc.Mixed(ctx, "premium", 1, 10)
	require.NoError(t, err)
	assert.Zero(t, out.Meta.SponsoredCount)

	out, err = svc.Mixed(ctx, "", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Meta.SponsoredCount)
}

func TestMixService_Rank(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	env.user(t, "viewer", withPersona(domain.PersonaCreator), func(u *domain.User) { u.Skills = []string{"video production"} })
	env.user(t, "star")
	env.follow(t, "viewer", "star")
	svc := env.mix(t)

	quality := 0.9
	candidates := []ranking.Candidate{
		{ID: "plain", ContentType: "TEXT", AuthorID: "someone", CreatedAt: baseTime.Add(-48 * time.Hour)},
		{ID: "followed", ContentType: "VIDEO", AuthorID: "star", CreatedAt: baseTime.Add(-time.Hour), Likes: 40, Quality: &quality},
	}

	for _, mode := range []RankMode{RankLight, RankHeavy, RankTwoStage, ""} {
		t.Run(string(mode), func(t *testing.T) {
			items, err := svc.Rank(ctx, RankInput{ViewerID: "viewer", Mode: mode, Candidates: candidates})
			require.NoError(t, err)
			require.Len(t, items, 2)
			assert.Equal(t, "followed", items[0].ID)
			assert.Equal(t, 1, items[0].Rank)
			assert.Equal(t, 2, items[1].Rank)
		})
	}

	_, err := svc.Rank(ctx, RankInput{Mode: "deep", Candidates: candidates})
	assert.ErrorIs(t, err, ErrValidation)

	items, err := svc.Rank(ctx, RankInput{Mode: RankHeavy})
	require.NoError(t, err)
	assert.Empty(t, items)

	items, err = svc.Rank(ctx, RankInput{Mode: RankLight, Candidates: candidates})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
