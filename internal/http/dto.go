package http

import (
	"time"

	"athena-feed/internal/coldstart"
	"athena-feed/internal/domain"
	"athena-feed/internal/mixer"
	"athena-feed/internal/ranking"
	"athena-feed/internal/service"
	"athena-feed/internal/storage"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	v := formatTime(*t)
	return &v
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

type UserResponse struct {
	ID               string   `json:"id"`
	Email            string   `json:"email"`
	DisplayName      string   `json:"displayName"`
	Avatar           string   `json:"avatar,omitempty"`
	Headline         string   `json:"headline,omitempty"`
	Bio              string   `json:"bio,omitempty"`
	Persona          string   `json:"persona,omitempty"`
	CurrentJobTitle  string   `json:"currentJobTitle,omitempty"`
	Industry         string   `json:"industry,omitempty"`
	City             string   `json:"city,omitempty"`
	Country          string   `json:"country,omitempty"`
	CreatorTier      string   `json:"creatorTier,omitempty"`
	SubscriptionTier string   `json:"subscriptionTier,omitempty"`
	Role             string   `json:"role"`
	Skills           []string `json:"skills"`
	LastLoginAt      *string  `json:"lastLoginAt,omitempty"`
	CreatedAt        string   `json:"createdAt"`
}

func userToResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:               u.ID,
		Email:            u.Email,
		DisplayName:      u.DisplayName,
		Avatar:           u.Avatar,
		Headline:         u.Headline,
		Bio:              u.Bio,
		Persona:          string(u.Persona),
		CurrentJobTitle:  u.CurrentJobTitle,
		Industry:         u.Industry,
		City:             u.City,
		Country:          u.Country,
		CreatorTier:      string(u.CreatorTier),
		SubscriptionTier: string(u.SubscriptionTier),
		Role:             string(u.Role),
		Skills:           nonNilStrings(u.Skills),
		LastLoginAt:      formatTimePtr(u.LastLoginAt),
		CreatedAt:        formatTime(u.CreatedAt),
	}
}

type StatsResponse struct {
	Likes     int `json:"likes"`
	Posts     int `json:"posts"`
	Comments  int `json:"comments"`
	Following int `json:"following"`
	Followers int `json:"followers"`
}

type AuthorResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Avatar      string `json:"avatar,omitempty"`
	Headline    string `json:"headline,omitempty"`
	Persona     string `json:"persona,omitempty"`
	Industry    string `json:"industry,omitempty"`
	CreatorTier string `json:"creatorTier,omitempty"`
}

func authorToResponse(a domain.AuthorSummary) AuthorResponse {
	return AuthorResponse{
		ID:          a.ID,
		DisplayName: a.DisplayName,
		Avatar:      a.Avatar,
		Headline:    a.Headline,
		Persona:     string(a.Persona),
		Industry:    a.Industry,
		CreatorTier: string(a.CreatorTier),
	}
}

type PostResponse struct {
	ID              string         `json:"id"`
	AuthorID        string         `json:"authorId"`
	Type            string         `json:"type"`
	Content         string         `json:"content"`
	MediaURLs       []string       `json:"mediaUrls"`
	Tags            []string       `json:"tags"`
	IsPublic        bool           `json:"isPublic"`
	LikeCount       int64          `json:"likeCount"`
	CommentCount    int64          `json:"commentCount"`
	ShareCount      int64          `json:"shareCount"`
	ViewCount       int64          `json:"viewCount"`
	IsLiked         bool           `json:"isLiked"`
	EngagementScore float64        `json:"engagementScore,omitempty"`
	DecayedScore    float64        `json:"decayedScore,omitempty"`
	Author          AuthorResponse `json:"author"`
	CreatedAt       string         `json:"createdAt"`
	UpdatedAt       string         `json:"updatedAt"`
}

func postToResponse(p *domain.FeedPost) PostResponse {
	return PostResponse{
		ID:              p.ID,
		AuthorID:        p.AuthorID,
		Type:            string(p.Type),
		Content:         p.Content,
		MediaURLs:       nonNilStrings(p.MediaURLs),
		Tags:            nonNilStrings(p.Tags),
		IsPublic:        p.IsPublic,
		LikeCount:       p.LikeCount,
		CommentCount:    p.CommentCount,
		ShareCount:      p.ShareCount,
		ViewCount:       p.ViewCount,
		IsLiked:         p.IsLiked,
		EngagementScore: p.EngagementScore,
		DecayedScore:    p.DecayedScore,
		Author:          authorToResponse(p.Author),
		CreatedAt:       formatTime(p.CreatedAt),
		UpdatedAt:       formatTime(p.UpdatedAt),
	}
}

func postsToResponse(posts []domain.FeedPost) []PostResponse {
	resp := make([]PostResponse, len(posts))
	for i := range posts {
		resp[i] = postToResponse(&posts[i])
	}
	return resp
}

type CommentResponse struct {
	ID        string `json:"id"`
	PostID    string `json:"postId"`
	AuthorID  string `json:"authorId"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

func commentToResponse(cm *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        cm.ID,
		PostID:    cm.PostID,
		AuthorID:  cm.AuthorID,
		Content:   cm.Content,
		CreatedAt: formatTime(cm.CreatedAt),
	}
}

type JobResponse struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Organization    string   `json:"organization,omitempty"`
	Status          string   `json:"status"`
	Type            string   `json:"type,omitempty"`
	ExperienceLevel string   `json:"experienceLevel,omitempty"`
	Location        string   `json:"location,omitempty"`
	RequiredSkills  []string `json:"requiredSkills"`
	CreatedAt       string   `json:"createdAt"`
}

func jobToResponse(j *domain.Job) JobResponse {
	return JobResponse{
		ID:              j.ID,
		Title:           j.Title,
		Organization:    j.Organization,
		Status:          string(j.Status),
		Type:            j.Type,
		ExperienceLevel: j.ExperienceLevel,
		Location:        j.Location,
		RequiredSkills:  nonNilStrings(j.RequiredSkills),
		CreatedAt:       formatTime(j.CreatedAt),
	}
}

type CourseResponse struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Provider        string   `json:"provider,omitempty"`
	Status          string   `json:"status"`
	SkillsTaught    []string `json:"skillsTaught"`
	EnrollmentCount int64    `json:"enrollmentCount"`
	CreatedAt       string   `json:"createdAt"`
}

func courseToResponse(cr *domain.Course) CourseResponse {
	return CourseResponse{
		ID:              cr.ID,
		Title:           cr.Title,
		Provider:        cr.Provider,
		Status:          string(cr.Status),
		SkillsTaught:    nonNilStrings(cr.SkillsTaught),
		EnrollmentCount: cr.EnrollmentCount,
		CreatedAt:       formatTime(cr.CreatedAt),
	}
}

type CampaignResponse struct {
	ID              string   `json:"id"`
	Advertiser      string   `json:"advertiser"`
	Content         string   `json:"content"`
	BaseScore       float64  `json:"baseScore"`
	TargetPersonas  []string `json:"targetPersonas"`
	TargetLocations []string `json:"targetLocations"`
	TargetInterests []string `json:"targetInterests"`
	StartsAt        string   `json:"startsAt"`
	EndsAt          *string  `json:"endsAt,omitempty"`
	IsActive        bool     `json:"isActive"`
}

func campaignToResponse(sc *domain.SponsoredCampaign) CampaignResponse {
	personas := make([]string, len(sc.TargetPersonas))
	for i, p := range sc.TargetPersonas {
		personas[i] = string(p)
	}
	return CampaignResponse{
		ID:              sc.ID,
		Advertiser:      sc.Advertiser,
		Content:         sc.Content,
		BaseScore:       sc.BaseScore,
		TargetPersonas:  personas,
		TargetLocations: nonNilStrings(sc.TargetLocations),
		TargetInterests: nonNilStrings(sc.TargetInterests),
		StartsAt:        formatTime(sc.StartsAt),
		EndsAt:          formatTimePtr(sc.EndsAt),
		IsActive:        sc.IsActive,
	}
}

type MentorResponse struct {
	UserID          string         `json:"userId"`
	IsAvailable     bool           `json:"isAvailable"`
	Rating          float64        `json:"rating"`
	SessionCount    int64          `json:"sessionCount"`
	Specializations []string       `json:"specializations"`
	User            AuthorResponse `json:"user"`
}

func mentorToResponse(m *domain.MentorProfile) MentorResponse {
	return MentorResponse{
		UserID:          m.UserID,
		IsAvailable:     m.IsAvailable,
		Rating:          m.Rating,
		SessionCount:    m.SessionCount,
		Specializations: nonNilStrings(m.Specializations),
		User:            authorToResponse(m.User),
	}
}

type GroupResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Privacy     string `json:"privacy"`
	MemberCount int64  `json:"memberCount"`
	CreatedAt   string `json:"createdAt"`
}

func groupToResponse(g *domain.Group) GroupResponse {
	return GroupResponse{
		ID:          g.ID,
		Name:        g.Name,
		Description: g.Description,
		Privacy:     string(g.Privacy),
		MemberCount: g.MemberCount,
		CreatedAt:   formatTime(g.CreatedAt),
	}
}

type MixedItemResponse struct {
	ID          string            `json:"id"`
	Kind        string            `json:"kind"`
	ContentType string            `json:"contentType"`
	Score       float64           `json:"score"`
	Reason      string            `json:"reason"`
	Post        *PostResponse     `json:"post,omitempty"`
	Job         *JobResponse      `json:"job,omitempty"`
	Course      *CourseResponse   `json:"course,omitempty"`
	Campaign    *CampaignResponse `json:"campaign,omitempty"`
}

type MixedFeedResponse struct {
	Items []MixedItemResponse `json:"items"`
	Meta  mixer.Meta          `json:"meta"`
}

func mixedToResponse(out mixer.Output) MixedFeedResponse {
	items := make([]MixedItemResponse, len(out.Items))
	for i, it := range out.Items {
		item := MixedItemResponse{
			ID:          it.ID,
			Kind:        string(it.Kind),
			ContentType: string(it.ContentType),
			Score:       it.Score,
			Reason:      it.Reason,
		}
		switch {
		case it.Post != nil:
			p := postToResponse(it.Post)
			item.Post = &p
		case it.Job != nil:
			j := jobToResponse(it.Job)
			item.Job = &j
		case it.Course != nil:
			cr := courseToResponse(it.Course)
			item.Course = &cr
		case it.Campaign != nil:
			sc := campaignToResponse(it.Campaign)
			item.Campaign = &sc
		}
		items[i] = item
	}
	return MixedFeedResponse{Items: items, Meta: out.Meta}
}

type RecommendationResponse struct {
	Type   string  `json:"type"`
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Reason string  `json:"reason"`
	Score  float64 `json:"score"`
	Data   any     `json:"data,omitempty"`
}

func recommendationsToResponse(recs []coldstart.Recommendation) []RecommendationResponse {
	resp := make([]RecommendationResponse, len(recs))
	for i, r := range recs {
		resp[i] = RecommendationResponse{
			Type:   string(r.Type),
			ID:     r.ID,
			Title:  r.Title,
			Reason: r.Reason,
			Score:  r.Score,
			Data:   recommendationData(r.Data),
		}
	}
	return resp
}

func recommendationData(data any) any {
	switch v := data.(type) {
	case domain.Post:
		return postToResponse(&domain.FeedPost{Post: v})
	case domain.Course:
		return courseToResponse(&v)
	case domain.Job:
		return jobToResponse(&v)
	case domain.MentorProfile:
		return mentorToResponse(&v)
	case domain.AuthorSummary:
		return authorToResponse(v)
	case domain.Group:
		return groupToResponse(&v)
	default:
		return nil
	}
}

type ColdStartResponse struct {
	IsColdStart     bool                     `json:"isColdStart"`
	ColdStartScore  int                      `json:"coldStartScore"`
	Recommendations []RecommendationResponse `json:"recommendations"`
}

type OnboardingStepResponse struct {
	Step     string `json:"step"`
	Action   string `json:"action"`
	Priority int    `json:"priority"`
}

func stepsToResponse(steps []coldstart.Step) []OnboardingStepResponse {
	resp := make([]OnboardingStepResponse, len(steps))
	for i, s := range steps {
		resp[i] = OnboardingStepResponse{Step: s.Step, Action: s.Action, Priority: s.Priority}
	}
	return resp
}

type RankedItemResponse struct {
	ID          string             `json:"id"`
	ContentType string             `json:"contentType"`
	Score       float64            `json:"score"`
	Rank        int                `json:"rank"`
	Breakdown   map[string]float64 `json:"breakdown,omitempty"`
	Explanation string             `json:"explanation,omitempty"`
}

func rankedToResponse(items []ranking.RankedItem) []RankedItemResponse {
	resp := make([]RankedItemResponse, len(items))
	for i, it := range items {
		resp[i] = RankedItemResponse{
			ID:          it.ID,
			ContentType: it.ContentType,
			Score:       it.Score,
			Rank:        it.Rank,
			Breakdown:   it.Breakdown,
			Explanation: it.Explanation,
		}
	}
	return resp
}

type MediaResponse struct {
	ID           string  `json:"id"`
	Status       string  `json:"status"`
	FileName     string  `json:"fileName"`
	ContentType  string  `json:"contentType,omitempty"`
	Size         int64   `json:"size"`
	URL          string  `json:"url,omitempty"`
	DownloadURL  string  `json:"downloadUrl,omitempty"`
	ErrorMessage string  `json:"errorMessage,omitempty"`
	CreatedAt    string  `json:"createdAt"`
	UploadedAt   *string `json:"uploadedAt,omitempty"`
}

func mediaToResponse(m *domain.MediaUpload, downloadURL string) MediaResponse {
	return MediaResponse{
		ID:           m.ID,
		Status:       string(m.Status),
		FileName:     m.FileName,
		ContentType:  m.ContentType,
		Size:         m.Size,
		URL:          m.URL,
		DownloadURL:  downloadURL,
		ErrorMessage: m.ErrorMessage,
		CreatedAt:    formatTime(m.CreatedAt),
		UploadedAt:   formatTimePtr(m.UploadedAt),
	}
}

type StorageObjectResponse struct {
	Key          string  `json:"key"`
	Size         int64   `json:"size"`
	LastModified *string `json:"lastModified,omitempty"`
}

func objectsToResponse(objects []storage.ObjectInfo) []StorageObjectResponse {
	out := make([]StorageObjectResponse, 0, len(objects))
	for _, o := range objects {
		out = append(out, StorageObjectResponse{Key: o.Key, Size: o.Size, LastModified: formatTimePtr(o.LastModified)})
	}
	return out
}

type DeleteMediaResponse struct {
	Deleted  bool     `json:"deleted"`
	Warnings []string `json:"warnings,omitempty"`
}

func feedPagination(page, limit int, res service.FeedResult) pagination {
	total := res.Total
	return pagination{Page: page, Limit: limit, HasMore: res.HasMore, Total: &total}
}
