// Package coldstart provides demographic fallbacks for users without enough
// history for the engagement model: persona defaults, cold-start detection
// and scoring, recommendation assembly and onboarding steps.
package coldstart

import (
	"fmt"
	"sort"
	"strings"

	"athena-feed/internal/domain"
)

// Defaults is the demographic profile of a persona.
type Defaults struct {
	Interests         []string
	RecommendedSkills []string
	ContentTypes      []string
}

var personaDefaults = map[domain.Persona]Defaults{
	domain.PersonaEarlyCareer: {
		Interests:         []string{"career development", "networking", "skill building", "interview tips"},
		RecommendedSkills: []string{"Communication", "Problem Solving", "Time Management", "Teamwork"},
		ContentTypes:      []string{"educational", "career_tips", "success_stories"},
	},
	domain.PersonaMidCareer: {
		Interests:         []string{"leadership", "work-life balance", "salary negotiation", "career transition"},
		RecommendedSkills: []string{"Leadership", "Project Management", "Strategic Thinking", "Mentoring"},
		ContentTypes:      []string{"industry_insights", "leadership", "professional_development"},
	},
	domain.PersonaEntrepreneur: {
		Interests:         []string{"startup", "funding", "business growth", "networking"},
		RecommendedSkills: []string{"Business Development", "Financial Management", "Marketing", "Sales"},
		ContentTypes:      []string{"entrepreneurship", "funding", "business_tips"},
	},
	domain.PersonaCreator: {
		Interests:         []string{"content creation", "personal branding", "monetization", "audience growth"},
		RecommendedSkills: []string{"Content Strategy", "Video Production", "Social Media", "Storytelling"},
		ContentTypes:      []string{"creator_tips", "monetization", "platform_growth"},
	},
	domain.PersonaMentor: {
		Interests:         []string{"coaching", "leadership", "giving back", "professional development"},
		RecommendedSkills: []string{"Coaching", "Active Listening", "Goal Setting", "Feedback"},
		ContentTypes:      []string{"mentorship", "coaching", "leadership"},
	},
	domain.PersonaEducationProvider: {
		Interests:         []string{"curriculum design", "online learning", "student engagement", "EdTech"},
		RecommendedSkills: []string{"Instructional Design", "Assessment", "E-learning", "Facilitation"},
		ContentTypes:      []string{"education", "teaching", "EdTech"},
	},
	domain.PersonaEmployer: {
		Interests:         []string{"talent acquisition", "employer branding", "diversity hiring", "retention"},
		RecommendedSkills: []string{"Recruiting", "Employer Branding", "Interview Skills", "DEI"},
		ContentTypes:      []string{"recruiting", "talent", "workplace_culture"},
	},
	domain.PersonaRealEstate: {
		Interests:         []string{"property investment", "market trends", "housing", "commercial real estate"},
		RecommendedSkills: []string{"Market Analysis", "Negotiation", "Property Management", "Investment"},
		ContentTypes:      []string{"real_estate", "investment", "market_trends"},
	},
	domain.PersonaGovernmentNGO: {
		Interests:         []string{"social impact", "policy", "community development", "nonprofit management"},
		RecommendedSkills: []string{"Grant Writing", "Policy Analysis", "Community Engagement", "Program Management"},
		ContentTypes:      []string{"social_impact", "policy", "community"},
	},
}

var groupCategories = map[domain.Persona][]string{
	domain.PersonaEarlyCareer:  {"career", "networking", "skills"},
	domain.PersonaEntrepreneur: {"startup", "business", "funding"},
	domain.PersonaCreator:      {"content", "creator", "social media"},
}

// DefaultPersona is assumed for users who never picked one.
const DefaultPersona = domain.PersonaEarlyCareer

// EffectivePersona returns p, or DefaultPersona when p is unset or unknown.
func EffectivePersona(p domain.Persona) domain.Persona {
	if _, ok := personaDefaults[p]; ok {
		return p
	}
	return DefaultPersona
}

// DefaultsFor returns the demographic profile of the persona.
func DefaultsFor(p domain.Persona) Defaults {
	return personaDefaults[EffectivePersona(p)]
}

// GroupCategories returns the name fragments used to find groups for a
// persona.
func GroupCategories(p domain.Persona) []string {
	if cats, ok := groupCategories[p]; ok {
		return cats
	}
	return []string{"general"}
}

// MissingSkills lists the persona's recommended skills the user lacks.
func MissingSkills(p domain.Persona, have []string) []string {
	owned := make(map[string]struct{}, len(have))
	for _, s := range have {
		owned[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	var missing []string
	for _, s := range DefaultsFor(p).RecommendedSkills {
		if _, ok := owned[strings.ToLower(s)]; !ok {
			missing = append(missing, s)
		}
	}
	return missing
}

// JobFilter narrows job suggestions for a persona.
type JobFilter struct {
	Types            []string
	ExperienceLevels []string
	Location         string
}

func JobFilterFor(p domain.Persona, location string) JobFilter {
	f := JobFilter{Location: location}
	if p == domain.PersonaEarlyCareer {
		f.Types = []string{"FULL_TIME", "INTERNSHIP", "APPRENTICESHIP"}
		f.ExperienceLevels = []string{"ENTRY", "JUNIOR"}
	}
	return f
}

const (
	coldStartLikes  = 10
	coldStartSkills = 3
)

// IsColdStart reports whether the user lacks the history or profile data
// the engagement model needs.
func IsColdStart(u *domain.User, stats domain.UserStats) bool {
	if u == nil {
		return true
	}
	return stats.Likes < coldStartLikes || u.Persona == "" || len(u.Skills) < coldStartSkills
}

// Score rates how cold a user is, from 0 (warm) to 100 (no signal at all).
func Score(u *domain.User, stats domain.UserStats) int {
	if u == nil {
		return 100
	}
	score := 100
	deduct := func(cond bool, points int) {
		if cond {
			score -= points
		}
	}
	deduct(u.Persona != "", 15)
	deduct(u.CurrentJobTitle != "", 10)
	deduct(u.Bio != "", 10)
	deduct(len(u.Skills) >= 3, 15)
	deduct(len(u.Skills) >= 5, 10)
	deduct(stats.Likes >= 5, 10)
	deduct(stats.Likes >= 20, 10)
	deduct(stats.Posts >= 1, 5)
	deduct(stats.Comments >= 5, 5)
	deduct(stats.Following >= 5, 10)
	return max(0, score)
}

type RecommendationType string

const (
	RecommendPost   RecommendationType = "POST"
	RecommendCourse RecommendationType = "COURSE"
	RecommendJob    RecommendationType = "JOB"
	RecommendMentor RecommendationType = "MENTOR"
	RecommendUser   RecommendationType = "USER"
	RecommendGroup  RecommendationType = "GROUP"
)

// Recommendation is a single cold-start suggestion. Data holds the
// domain value it was built from.
type Recommendation struct {
	Type   RecommendationType
	ID     string
	Title  string
	Reason string
	Score  float64
	Data   any
}

// Fetch sizes per recommendation source.
const (
	PopularPostLimit   = 5
	CourseLimit        = 3
	JobLimit           = 4
	MentorLimit        = 3
	SuggestedUserLimit = 5
	GroupLimit         = 3

	DefaultRecommendationLimit = 20
)

// Sources carries the candidates fetched for a cold-start user.
type Sources struct {
	Posts   []domain.Post
	Courses []domain.Course
	Jobs    []domain.Job
	Mentors []domain.MentorProfile
	Users   []domain.AuthorSummary
	Groups  []domain.Group
}

const postTitleLength = 100

// Assemble turns fetched sources into recommendations sorted by score and
// cut to limit. Within the same score the source order is kept.
func Assemble(persona domain.Persona, location string, src Sources, limit int) []Recommendation {
	persona = EffectivePersona(persona)
	label := persona.Label()

	recs := make([]Recommendation, 0,
		len(src.Posts)+len(src.Courses)+len(src.Jobs)+len(src.Mentors)+len(src.Users)+len(src.Groups))

	for _, p := range src.Posts {
		title := truncate(p.Content, postTitleLength)
		if title == "" {
			title = "Popular post"
		}
		recs = append(recs, Recommendation{
			Type:   RecommendPost,
			ID:     p.ID,
			Title:  title,
			Reason: fmt.Sprintf("Popular in the %s community", label),
			Score:  80,
			Data:   p,
		})
	}
	for _, c := range src.Courses {
		recs = append(recs, Recommendation{
			Type:   RecommendCourse,
			ID:     c.ID,
			Title:  c.Title,
			Reason: "Build essential skills for your career",
			Score:  85,
			Data:   c,
		})
	}
	jobReason := "Recommended for your profile"
	if location != "" {
		jobReason = "Jobs near " + location
	}
	for _, j := range src.Jobs {
		recs = append(recs, Recommendation{
			Type:   RecommendJob,
			ID:     j.ID,
			Title:  j.Title,
			Reason: jobReason,
			Score:  75,
			Data:   j,
		})
	}
	for _, m := range src.Mentors {
		recs = append(recs, Recommendation{
			Type:   RecommendMentor,
			ID:     m.UserID,
			Title:  m.User.DisplayName,
			Reason: "Mentor in your field",
			Score:  70,
			Data:   m,
		})
	}
	for _, u := range src.Users {
		recs = append(recs, Recommendation{
			Type:   RecommendUser,
			ID:     u.ID,
			Title:  u.DisplayName,
			Reason: "Active member in your community",
			Score:  65,
			Data:   u,
		})
	}
	for _, g := range src.Groups {
		recs = append(recs, Recommendation{
			Type:   RecommendGroup,
			ID:     g.ID,
			Title:  g.Name,
			Reason: fmt.Sprintf("Popular %s community", label),
			Score:  60,
			Data:   g,
		})
	}

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Score > recs[j].Score
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs
}

func truncate(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n])
}

// Step is a single onboarding suggestion.
type Step struct {
	Step     string
	Action   string
	Priority int
}

// Onboarding lists the profile and social steps the user still has to take,
// most important first.
func Onboarding(u *domain.User, stats domain.UserStats) []Step {
	if u == nil {
		return nil
	}
	var steps []Step
	add := func(cond bool, step, action string, priority int) {
		if cond {
			steps = append(steps, Step{Step: step, Action: action, Priority: priority})
		}
	}
	add(u.Persona == "", "Select your persona", "/onboarding/persona", 1)
	add(u.Bio == "", "Add a bio", "/settings/profile", 2)
	add(len(u.Skills) < 3, "Add your skills", "/settings/skills", 3)
	add(u.Avatar == "", "Upload a profile photo", "/settings/profile", 4)
	add(stats.Following < 5, "Follow 5 people in your field", "/discover/people", 5)
	add(stats.Posts == 0, "Create your first post", "/compose", 6)

	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Priority < steps[j].Priority
	})
	return steps
}
