// Package ranking scores posts by engagement and recency and orders them
// for the feed. Everything in here is pure: callers supply posts and the
// viewer context, the package never touches storage.
package ranking

import (
	"math"
	"sort"
	"strings"
	"time"

	"athena-feed/internal/domain"
)

// Weights configures the engagement model.
type Weights struct {
	TypeMultipliers map[domain.PostType]float64

	Like    float64
	Comment float64
	Share   float64
	View    float64

	DecayHalfLife time.Duration

	Following    float64
	SamePersona  float64
	SameIndustry float64

	FreshnessBonus  float64
	FreshnessWindow time.Duration

	CreatorTiers map[domain.CreatorTier]float64
}

// DefaultWeights is the video-first model used by every feed.
func DefaultWeights() Weights {
	return Weights{
		TypeMultipliers: map[domain.PostType]float64{
			domain.PostTypeVideo:   3.0,
			domain.PostTypeImage:   1.5,
			domain.PostTypeText:    1.0,
			domain.PostTypeArticle: 1.2,
		},
		Like:            1.0,
		Comment:         3.0,
		Share:           5.0,
		View:            0.1,
		DecayHalfLife:   24 * time.Hour,
		Following:       2.0,
		SamePersona:     1.3,
		SameIndustry:    1.2,
		FreshnessBonus:  1.5,
		FreshnessWindow: time.Hour,
		CreatorTiers: map[domain.CreatorTier]float64{
			domain.CreatorTierEmerging:    1.0,
			domain.CreatorTierRising:      1.2,
			domain.CreatorTierEstablished: 1.4,
			domain.CreatorTierPartner:     1.6,
		},
	}
}

// Context is the viewer side of a scoring call. The zero value scores
// posts without any relationship boosts.
type Context struct {
	ViewerID  string
	Following map[string]struct{}
	Persona   domain.Persona
	Industry  string
}

// NewContext builds a scoring context; following may include the viewer.
func NewContext(viewerID string, following []string, persona domain.Persona, industry string) Context {
	set := make(map[string]struct{}, len(following))
	for _, id := range following {
		set[id] = struct{}{}
	}
	return Context{
		ViewerID:  viewerID,
		Following: set,
		Persona:   persona,
		Industry:  industry,
	}
}

func (c Context) follows(authorID string) bool {
	_, ok := c.Following[authorID]
	return ok
}

// Score holds the raw engagement value and the value after decay.
type Score struct {
	Engagement float64
	Final      float64
}

// Scorer applies Weights at a given clock.
type Scorer struct {
	weights Weights
	now     func() time.Time
}

func NewScorer(weights Weights, now func() time.Time) *Scorer {
	if now == nil {
		now = time.Now
	}
	if weights.DecayHalfLife <= 0 {
		weights.DecayHalfLife = DefaultWeights().DecayHalfLife
	}
	return &Scorer{weights: weights, now: now}
}

func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score computes the engagement and decayed score of a single post.
func (s *Scorer) Score(p *domain.Post, ctx Context) Score {
	w := s.weights

	engagement := float64(nonNegative(p.LikeCount))*w.Like +
		float64(nonNegative(p.CommentCount))*w.Comment +
		float64(nonNegative(p.ShareCount))*w.Share +
		float64(nonNegative(p.ViewCount))*w.View

	if m, ok := w.TypeMultipliers[p.Type]; ok {
		engagement *= m
	}
	if ctx.follows(p.AuthorID) {
		engagement *= w.Following
	}
	if ctx.Persona != "" && p.Author.Persona == ctx.Persona {
		engagement *= w.SamePersona
	}
	if ctx.Industry != "" && strings.EqualFold(p.Author.Industry, ctx.Industry) {
		engagement *= w.SameIndustry
	}
	if bonus, ok := w.CreatorTiers[p.Author.CreatorTier]; ok {
		engagement *= bonus
	}

	age := s.age(p.CreatedAt)
	decay := math.Pow(0.5, age.Hours()/w.DecayHalfLife.Hours())

	freshness := 1.0
	if age < w.FreshnessWindow {
		freshness = w.FreshnessBonus
	}

	return Score{
		Engagement: finite(engagement),
		Final:      finite(engagement * decay * freshness),
	}
}

// age clamps future timestamps (clock skew between writers) to zero.
func (s *Scorer) age(createdAt time.Time) time.Duration {
	age := s.now().Sub(createdAt)
	if age < 0 {
		return 0
	}
	return age
}

// Rank scores the posts for the given context and returns them ordered by
// decayed score.
func (s *Scorer) Rank(posts []domain.Post, ctx Context) []domain.FeedPost {
	out := make([]domain.FeedPost, len(posts))
	for i := range posts {
		score := s.Score(&posts[i], ctx)
		out[i] = domain.FeedPost{
			Post:            posts[i],
			EngagementScore: score.Engagement,
			DecayedScore:    score.Final,
		}
	}
	SortByScore(out)
	return out
}

// SortByScore orders by decayed score, newest first on ties, then by id so
// that equal posts always come back in the same order.
func SortByScore(items []domain.FeedPost) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.DecayedScore != b.DecayedScore {
			return a.DecayedScore > b.DecayedScore
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// EnforceCreatorDiversity keeps at most maxPerAuthor items per author while
// preserving order. A non-positive limit disables the cap.
func EnforceCreatorDiversity(items []domain.FeedPost, maxPerAuthor int) []domain.FeedPost {
	if maxPerAuthor <= 0 {
		return items
	}
	counts := make(map[string]int)
	out := make([]domain.FeedPost, 0, len(items))
	for _, item := range items {
		if counts[item.AuthorID] >= maxPerAuthor {
			continue
		}
		counts[item.AuthorID]++
		out = append(out, item)
	}
	return out
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
