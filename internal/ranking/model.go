package ranking

import (
	"math"
	"sort"
	"strings"
	"time"

	"athena-feed/internal/domain"
)

// Candidate is a generic rankable item (post, video, job, course, ...).
type Candidate struct {
	ID          string
	ContentType string
	AuthorID    string
	CreatedAt   time.Time

	Views    int64
	Likes    int64
	Comments int64
	Shares   int64

	// Quality is an upstream content quality estimate in [0,1]; nil means 0.5.
	Quality *float64
	Tags    []string

	Sponsored bool
}

// Profile is what the heavy ranker knows about the viewer.
type Profile struct {
	UserID                string
	Persona               domain.Persona
	Interests             []string
	FollowedUsers         []string
	FollowedOrganizations []string
	PreferredContentTypes []string
}

// RankedItem is a ranked candidate with its score breakdown.
type RankedItem struct {
	ID          string
	ContentType string
	Score       float64
	Rank        int
	Breakdown   map[string]float64
	Explanation string

	createdAt time.Time
}

const (
	heavyQualityWeight   = 30.0
	heavyFollowedUser    = 25.0
	heavyFollowedOrg     = 20.0
	heavyInterestPerTag  = 5.0
	heavyInterestCap     = 20.0
	heavyEngagementCap   = 15.0
	heavyFreshnessDays   = 10.0
	heavyPreferredType   = 5.0
	heavyScoreCap        = 100.0
	defaultQualityPrior  = 0.5
	engagementNormaliser = 100.0
)

// LightRank is the cheap first stage: the engagement/decay model applied to
// generic candidates.
func (s *Scorer) LightRank(candidates []Candidate, profile Profile) []RankedItem {
	ctx := NewContext(profile.UserID, profile.FollowedUsers, profile.Persona, "")
	items := make([]RankedItem, len(candidates))
	for i, c := range candidates {
		post := domain.Post{
			ID:           c.ID,
			AuthorID:     c.AuthorID,
			Type:         postTypeFor(c.ContentType),
			LikeCount:    c.Likes,
			CommentCount: c.Comments,
			ShareCount:   c.Shares,
			ViewCount:    c.Views,
			CreatedAt:    c.CreatedAt,
		}
		score := s.Score(&post, ctx)
		items[i] = RankedItem{
			ID:          c.ID,
			ContentType: c.ContentType,
			Score:       score.Final,
			Breakdown: map[string]float64{
				"engagement": score.Engagement,
				"final":      score.Final,
			},
			Explanation: explain(c, profile),
			createdAt:   c.CreatedAt,
		}
	}
	sortRanked(items)
	return items
}

// HeavyRank is the feature based second stage. Scores are bounded to
// [0,100] and fully deterministic for a given clock.
func (s *Scorer) HeavyRank(candidates []Candidate, profile Profile) []RankedItem {
	followedUsers := toSet(profile.FollowedUsers, false)
	followedOrgs := toSet(profile.FollowedOrganizations, false)
	interests := toSet(profile.Interests, true)
	preferred := toSet(profile.PreferredContentTypes, true)

	items := make([]RankedItem, len(candidates))
	for i, c := range candidates {
		quality := defaultQualityPrior
		if c.Quality != nil {
			quality = math.Max(0, math.Min(1, *c.Quality))
		}
		quality *= heavyQualityWeight

		social := 0.0
		if _, ok := followedUsers[c.AuthorID]; ok {
			social += heavyFollowedUser
		}
		if _, ok := followedOrgs[c.AuthorID]; ok {
			social += heavyFollowedOrg
		}

		overlap := 0
		for _, tag := range c.Tags {
			if _, ok := interests[strings.ToLower(tag)]; ok {
				overlap++
			}
		}
		interest := math.Min(heavyInterestCap, float64(overlap)*heavyInterestPerTag)

		engagement := float64(nonNegative(c.Likes)) + 2*float64(nonNegative(c.Comments)) + 3*float64(nonNegative(c.Shares))
		engagement = math.Min(heavyEngagementCap, engagement/engagementNormaliser)

		ageDays := s.age(c.CreatedAt).Hours() / 24
		freshness := math.Max(0, heavyFreshnessDays-ageDays)

		preferredType := 0.0
		if _, ok := preferred[strings.ToLower(c.ContentType)]; ok {
			preferredType = heavyPreferredType
		}

		// summed in a fixed order so equal inputs give bit-identical scores
		total := quality + social + interest + engagement + freshness + preferredType

		breakdown := map[string]float64{
			"quality":    quality,
			"social":     social,
			"interests":  interest,
			"engagement": engagement,
			"freshness":  freshness,
		}
		if preferredType > 0 {
			breakdown["preferred_type"] = preferredType
		}
		items[i] = RankedItem{
			ID:          c.ID,
			ContentType: c.ContentType,
			Score:       math.Min(heavyScoreCap, total),
			Breakdown:   breakdown,
			Explanation: explain(c, profile),
			createdAt:   c.CreatedAt,
		}
	}
	sortRanked(items)
	return items
}

// TwoStage light-ranks every candidate and re-ranks the best k with the
// heavy model. The heavy-ranked head is followed by the light-ranked tail.
func (s *Scorer) TwoStage(candidates []Candidate, profile Profile, k int) []RankedItem {
	light := s.LightRank(candidates, profile)
	if k <= 0 || len(light) == 0 {
		return light
	}
	if k > len(light) {
		k = len(light)
	}

	byID := make(map[string]Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}
	head := make([]Candidate, 0, k)
	for _, item := range light[:k] {
		head = append(head, byID[item.ID])
	}

	out := append(s.HeavyRank(head, profile), light[k:]...)
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

func sortRanked(items []RankedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.createdAt.Equal(b.createdAt) {
			return a.createdAt.After(b.createdAt)
		}
		return a.ID < b.ID
	})
	for i := range items {
		items[i].Rank = i + 1
	}
}

func explain(c Candidate, profile Profile) string {
	if c.Sponsored {
		return "Sponsored"
	}
	for _, id := range profile.FollowedUsers {
		if id == c.AuthorID {
			return "From someone you follow"
		}
	}
	for _, id := range profile.FollowedOrganizations {
		if id == c.AuthorID {
			return "From an organization you follow"
		}
	}
	interests := toSet(profile.Interests, true)
	for _, tag := range c.Tags {
		if _, ok := interests[strings.ToLower(tag)]; ok {
			return "Based on your interests"
		}
	}
	return "Recommended for you"
}

func postTypeFor(contentType string) domain.PostType {
	if t, ok := domain.ParsePostType(contentType); ok {
		return t
	}
	return domain.PostTypeText
}

func toSet(values []string, lower bool) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if lower {
			v = strings.ToLower(strings.TrimSpace(v))
		}
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}
