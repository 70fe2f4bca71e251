// Package mixer interleaves organic posts, discovery posts, sponsored
// campaigns and opportunities into a single feed page under ratio and
// placement constraints.
package mixer

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"athena-feed/internal/domain"
)

type Kind string

const (
	KindOrganic     Kind = "organic"
	KindDiscovery   Kind = "discovery"
	KindSponsored   Kind = "sponsored"
	KindOpportunity Kind = "opportunity"
)

type ContentType string

const (
	ContentPost   ContentType = "POST"
	ContentJob    ContentType = "JOB"
	ContentCourse ContentType = "COURSE"
	ContentEvent  ContentType = "EVENT"
	ContentAd     ContentType = "AD"
)

const (
	ReasonFollowed      = "From someone you follow"
	ReasonNetwork       = "Popular in your network"
	ReasonTrending      = "Trending now"
	ReasonInterests     = "Based on your interests"
	ReasonSuggested     = "Suggested for you"
	ReasonSponsored     = "Sponsored"
	ReasonJob           = "Job opportunity"
	ReasonLearning      = "Recommended learning"
	ReasonSkillGap      = "Fill your skill gap"
	ReasonGreatMatch    = "Great match for you"
	greatMatchThreshold = 80.0
)

// Config holds the distribution ratios and placement rules.
type Config struct {
	OrganicRatio     float64 `mapstructure:"organicratio"`
	DiscoveryRatio   float64 `mapstructure:"discoveryratio"`
	SponsoredRatio   float64 `mapstructure:"sponsoredratio"`
	OpportunityRatio float64 `mapstructure:"opportunityratio"`

	MaxConsecutiveSponsored  int `mapstructure:"maxconsecutivesponsored"`
	MinPostsBetweenSponsored int `mapstructure:"minpostsbetweensponsored"`
	MaxSponsoredPerSession   int `mapstructure:"maxsponsoredpersession"`

	SponsoredStartPosition int `mapstructure:"sponsoredstartposition"`
	OpportunityInsertEvery int `mapstructure:"opportunityinsertevery"`
}

func DefaultConfig() Config {
	return Config{
		OrganicRatio:             0.45,
		DiscoveryRatio:           0.30,
		SponsoredRatio:           0.10,
		OpportunityRatio:         0.15,
		MaxConsecutiveSponsored:  1,
		MinPostsBetweenSponsored: 4,
		MaxSponsoredPerSession:   10,
		SponsoredStartPosition:   3,
		OpportunityInsertEvery:   6,
	}
}

var ErrInvalidConfig = errors.New("invalid mixer config")

// Validate rejects negative ratios, ratios summing above one and
// placement rules that cannot be applied.
func (c Config) Validate() error {
	ratios := map[string]float64{
		"organic":     c.OrganicRatio,
		"discovery":   c.DiscoveryRatio,
		"sponsored":   c.SponsoredRatio,
		"opportunity": c.OpportunityRatio,
	}
	sum := 0.0
	for name, r := range ratios {
		if r < 0 || math.IsNaN(r) || math.IsInf(r, 0) {
			return fmt.Errorf("%w: %s ratio %v", ErrInvalidConfig, name, r)
		}
		sum += r
	}
	if sum > 1+1e-9 {
		return fmt.Errorf("%w: ratios sum to %.2f", ErrInvalidConfig, sum)
	}
	if c.OpportunityInsertEvery <= 0 {
		return fmt.Errorf("%w: opportunity insert interval must be positive", ErrInvalidConfig)
	}
	if c.MaxConsecutiveSponsored < 0 || c.MinPostsBetweenSponsored < 0 ||
		c.MaxSponsoredPerSession < 0 || c.SponsoredStartPosition < 0 {
		return fmt.Errorf("%w: placement rules must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Viewer is the targeting context of the person the feed is built for.
type Viewer struct {
	ID       string
	Persona  domain.Persona
	Location string
	Skills   []string
}

// Candidate is a ranked post offered to the mixer.
type Candidate struct {
	Post  domain.FeedPost
	Score float64

	AuthorFollowed   bool
	Trending         bool
	SimilarInterests bool
}

// Opportunity is either a job or a course with an upstream match score.
type Opportunity struct {
	Job        *domain.Job
	Course     *domain.Course
	MatchScore float64
}

func (o Opportunity) id() string {
	if o.Course != nil {
		return o.Course.ID
	}
	if o.Job != nil {
		return o.Job.ID
	}
	return ""
}

type Input struct {
	// Viewer is nil for anonymous requests; targeting is skipped then.
	Viewer        *Viewer
	Organic       []Candidate
	Discovery     []Candidate
	Sponsored     []domain.SponsoredCampaign
	Opportunities []Opportunity
	Limit         int
}

// Item is a single slot of the mixed feed. Exactly one payload is set.
type Item struct {
	ID          string
	Kind        Kind
	ContentType ContentType
	Score       float64
	Reason      string

	Post     *domain.FeedPost
	Job      *domain.Job
	Course   *domain.Course
	Campaign *domain.SponsoredCampaign
}

type Meta struct {
	OrganicCount     int `json:"organicCount"`
	DiscoveryCount   int `json:"discoveryCount"`
	SponsoredCount   int `json:"sponsoredCount"`
	OpportunityCount int `json:"opportunityCount"`
}

func (m *Meta) count(k Kind) {
	switch k {
	case KindOrganic:
		m.OrganicCount++
	case KindDiscovery:
		m.DiscoveryCount++
	case KindSponsored:
		m.SponsoredCount++
	case KindOpportunity:
		m.OpportunityCount++
	}
}

type Output struct {
	Items   []Item
	HasMore bool
	Meta    Meta
}

type Mixer struct {
	cfg Config
}

func New(cfg Config) (*Mixer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Mixer{cfg: cfg}, nil
}

func (m *Mixer) Config() Config {
	return m.cfg
}

type targets struct {
	organic, discovery, sponsored, opportunity int
}

// Mix fills at most in.Limit slots walking positions from 1. At each
// position a sponsored item is placed when the quota, start position, gap
// and consecutive rules allow it, then an opportunity on every
// OpportunityInsertEvery-th position, otherwise organic or discovery
// content depending on which has more quota left.
func (m *Mixer) Mix(in Input) Output {
	organic := normalize(in.Organic, KindOrganic)
	discovery := normalize(in.Discovery, KindDiscovery)
	sponsored := m.rankSponsored(in.Sponsored, in.Viewer)
	opportunities := m.rankOpportunities(in.Opportunities, in.Viewer)

	limit := in.Limit
	if limit < 0 {
		limit = 0
	}
	t := targets{
		organic:     int(math.Floor(float64(limit) * m.cfg.OrganicRatio)),
		discovery:   int(math.Floor(float64(limit) * m.cfg.DiscoveryRatio)),
		sponsored:   min(int(math.Floor(float64(limit)*m.cfg.SponsoredRatio)), m.cfg.MaxSponsoredPerSession),
		opportunity: int(math.Floor(float64(limit) * m.cfg.OpportunityRatio)),
	}

	out := Output{Items: make([]Item, 0, limit)}
	lastSponsored := math.MinInt32
	consecutive := 0

	pop := func(pool *[]Item) Item {
		item := (*pool)[0]
		*pool = (*pool)[1:]
		return item
	}
	push := func(item Item) {
		out.Items = append(out.Items, item)
		out.Meta.count(item.Kind)
		if item.Kind == KindSponsored {
			consecutive++
		} else {
			consecutive = 0
		}
	}

	for position := 1; len(out.Items) < limit; position++ {
		if len(sponsored) > 0 &&
			out.Meta.SponsoredCount < t.sponsored &&
			position >= m.cfg.SponsoredStartPosition &&
			position-lastSponsored >= m.cfg.MinPostsBetweenSponsored &&
			consecutive < m.cfg.MaxConsecutiveSponsored {
			push(pop(&sponsored))
			lastSponsored = position
			continue
		}

		if len(opportunities) > 0 &&
			out.Meta.OpportunityCount < t.opportunity &&
			position%m.cfg.OpportunityInsertEvery == 0 {
			push(pop(&opportunities))
			continue
		}

		organicLeft := t.organic - out.Meta.OrganicCount
		discoveryLeft := t.discovery - out.Meta.DiscoveryCount
		if len(organic) > 0 && (organicLeft >= discoveryLeft || len(discovery) == 0) {
			push(pop(&organic))
			continue
		}
		if len(discovery) > 0 {
			push(pop(&discovery))
			continue
		}
		if len(opportunities) > 0 {
			push(pop(&opportunities))
			continue
		}
		break
	}

	out.HasMore = len(organic) > 0 || len(discovery) > 0
	return out
}

func normalize(cands []Candidate, kind Kind) []Item {
	items := make([]Item, len(cands))
	for i := range cands {
		c := cands[i]
		score := c.Post.DecayedScore
		if score == 0 {
			score = c.Score
		}
		if score == 0 {
			score = float64(1000 - i)
		}
		post := c.Post
		items[i] = Item{
			ID:          c.Post.ID,
			Kind:        kind,
			ContentType: ContentPost,
			Score:       score,
			Reason:      candidateReason(c, kind),
			Post:        &post,
		}
	}
	return items
}

func candidateReason(c Candidate, kind Kind) string {
	if kind == KindOrganic {
		if c.AuthorFollowed {
			return ReasonFollowed
		}
		return ReasonNetwork
	}
	switch {
	case c.Trending:
		return ReasonTrending
	case c.SimilarInterests:
		return ReasonInterests
	default:
		return ReasonSuggested
	}
}

const defaultSponsoredScore = 100.0

// rankSponsored scores campaigns by how well their targeting matches the
// viewer. Anonymous viewers get campaigns in the supplied order.
func (m *Mixer) rankSponsored(campaigns []domain.SponsoredCampaign, viewer *Viewer) []Item {
	items := make([]Item, len(campaigns))
	for i := range campaigns {
		c := campaigns[i]
		score := c.BaseScore
		if score <= 0 {
			score = defaultSponsoredScore
		}
		if viewer != nil {
			score *= sponsoredBoost(c, viewer)
		}
		items[i] = Item{
			ID:          c.ID,
			Kind:        KindSponsored,
			ContentType: ContentAd,
			Score:       score,
			Reason:      ReasonSponsored,
			Campaign:    &c,
		}
	}
	if viewer != nil {
		sortItems(items)
	}
	return items
}

func sponsoredBoost(c domain.SponsoredCampaign, viewer *Viewer) float64 {
	boost := 1.0
	if viewer.Persona != "" {
		for _, p := range c.TargetPersonas {
			if p == viewer.Persona {
				boost *= 1.5
				break
			}
		}
	}
	if viewer.Location != "" {
		for _, loc := range c.TargetLocations {
			if strings.EqualFold(loc, viewer.Location) {
				boost *= 1.3
				break
			}
		}
	}
	if overlap := countOverlap(viewer.Skills, c.TargetInterests); overlap > 0 {
		boost *= 1 + float64(overlap)*0.1
	}
	return boost
}

const (
	defaultMatchScore   = 50.0
	anonymousMatchScore = 100.0
	jobSkillMatchBonus  = 20.0
	courseSkillGapBonus = 15.0
)

// rankOpportunities scores jobs by skill match and courses by the skills
// the viewer does not have yet.
func (m *Mixer) rankOpportunities(opps []Opportunity, viewer *Viewer) []Item {
	items := make([]Item, 0, len(opps))
	for _, o := range opps {
		if o.Job == nil && o.Course == nil {
			continue
		}
		item := Item{ID: o.id(), Kind: KindOpportunity, Job: o.Job, Course: o.Course}
		if o.Course != nil {
			item.ContentType = ContentCourse
			item.Job = nil
		} else {
			item.ContentType = ContentJob
		}

		if viewer == nil {
			item.Score = o.MatchScore
			if item.Score == 0 {
				item.Score = anonymousMatchScore
			}
			item.Reason = ReasonJob
			if item.ContentType == ContentCourse {
				item.Reason = ReasonLearning
			}
			items = append(items, item)
			continue
		}

		score := o.MatchScore
		if score == 0 {
			score = defaultMatchScore
		}
		switch item.ContentType {
		case ContentJob:
			score += float64(countOverlap(viewer.Skills, o.Job.RequiredSkills)) * jobSkillMatchBonus
			item.Reason = ReasonJob
			if o.MatchScore > greatMatchThreshold {
				item.Reason = ReasonGreatMatch
			}
		case ContentCourse:
			missing := len(o.Course.SkillsTaught) - countOverlap(viewer.Skills, o.Course.SkillsTaught)
			score += float64(missing) * courseSkillGapBonus
			item.Reason = ReasonSkillGap
		}
		item.Score = score
		items = append(items, item)
	}
	if viewer != nil {
		sortItems(items)
	}
	return items
}

// countOverlap counts entries of candidates present in have, ignoring case.
func countOverlap(have, candidates []string) int {
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	n := 0
	for _, c := range candidates {
		if _, ok := set[strings.ToLower(strings.TrimSpace(c))]; ok {
			n++
		}
	}
	return n
}

func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
}
