package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"athena-feed/internal/coldstart"
	"athena-feed/internal/domain"
)

func newColdStartService(env *testEnv) *coldStartService {
	s := NewColdStartService(ColdStartDeps{
		Users:   env.store.Users,
		Posts:   env.store.Posts,
		Jobs:    env.store.Jobs,
		Courses: env.store.Courses,
		Mentors: env.store.Mentors,
		Groups:  env.store.Groups,
	}).(*coldStartService)
	s.now = fixedClock
	return s
}

func TestColdStartService_Status(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newColdStartService(env)

	status, err := svc.Status(ctx, "ghost")
	require.NoError(t, err)
	assert.True(t, status.IsColdStart)
	assert.Equal(t, 100, status.Score)

	env.user(t, "newbie", withPersona(domain.PersonaCreator), func(u *domain.User) {
		u.Bio = "hello"
		u.Skills = []string{"a", "b", "c"}
	})
	status, err = svc.Status(ctx, "newbie")
	require.NoError(t, err)
	assert.True(t, status.IsColdStart)
	assert.Equal(t, 100-15-10-15, status.Score)
}

func TestColdStartService_Recommendations(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newColdStartService(env)

	env.user(t, "newbie", withPersona(domain.PersonaEarlyCareer), func(u *domain.User) {
		u.City = "Lagos"
		u.Skills = []string{"communication"}
	})
	env.user(t, "peer", withPersona(domain.PersonaEarlyCareer))
	env.user(t, "mentor", withPersona(domain.PersonaEarlyCareer))
	env.post(t, "peer-post", "peer", 2*time.Hour, withLikes(12))
	env.post(t, "stale", "peer", 10*24*time.Hour, withLikes(400))
	env.post(t, "own", "newbie", time.Hour)

	require.NoError(t, env.store.Courses.Create(ctx, &domain.Course{
		ID: "c1", Title: "Intro to Teamwork", Status: domain.CourseStatusPublished, IsActive: true, CreatedAt: baseTime,
	}))
	require.NoError(t, env.store.Courses.Create(ctx, &domain.Course{
		ID: "c2", Title: "Communication 101", Status: domain.CourseStatusPublished, IsActive: true, CreatedAt: baseTime,
	}))
	require.NoError(t, env.store.Jobs.Create(ctx, &domain.Job{
		ID: "j1", Title: "Intern", Status: domain.JobStatusActive, Type: "INTERNSHIP", ExperienceLevel: "ENTRY", Location: "Lagos, NG", CreatedAt: baseTime,
	}))
	require.NoError(t, env.store.Jobs.Create(ctx, &domain.Job{
		ID: "j2", Title: "Director", Status: domain.JobStatusActive, Type: "FULL_TIME", ExperienceLevel: "SENIOR", Location: "Lagos", CreatedAt: baseTime,
	}))
	require.NoError(t, env.store.Mentors.Upsert(ctx, &domain.MentorProfile{UserID: "mentor", IsAvailable: true, Rating: 5}))
	require.NoError(t, env.store.Groups.Create(ctx, &domain.Group{ID: "g1", Name: "Career Starters", Privacy: domain.GroupPublic, CreatedAt: baseTime}))

	recs, err := svc.Recommendations(ctx, "newbie", 0)
	require.NoError(t, err)

	byType := map[coldstart.RecommendationType][]string{}
	for i, r := range recs {
		byType[r.Type] = append(byType[r.Type], r.ID)
		if i > 0 {
			assert.GreaterOrEqual(t, recs[i-1].Score, r.Score)
		}
	}
	assert.Equal(t, []string{"c1"}, byType[coldstart.RecommendCourse])
	assert.Equal(t, []string{"peer-post"}, byType[coldstart.RecommendPost])
	assert.Equal(t, []string{"j1"}, byType[coldstart.RecommendJob])
	assert.Equal(t, []string{"mentor"}, byType[coldstart.RecommendMentor])
	assert.Equal(t, []string{"g1"}, byType[coldstart.RecommendGroup])
	assert.Equal(t, []string{"peer"}, byType[coldstart.RecommendUser])
	assert.Equal(t, coldstart.RecommendCourse, recs[0].Type)

	limited, err := svc.Recommendations(ctx, "newbie", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := svc.Recommendations(ctx, "ghost", 5)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestColdStartService_Onboarding(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := newColdStartService(env)
	env.user(t, "newbie")

	steps, err := svc.Onboarding(ctx, "newbie")
	require.NoError(t, err)
	require.Len(t, steps, 6)
	assert.Equal(t, "Select your persona", steps[0].Step)

	steps, err = svc.Onboarding(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, steps)
}
