package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"athena-feed/internal/repository"
	"athena-feed/internal/service"
)

type jobRequest struct {
	Title           string   `json:"title"`
	Organization    string   `json:"organization"`
	Type            string   `json:"type"`
	ExperienceLevel string   `json:"experienceLevel"`
	Location        string   `json:"location"`
	RequiredSkills  []string `json:"requiredSkills"`
}

type courseRequest struct {
	Title        string   `json:"title"`
	Provider     string   `json:"provider"`
	Draft        bool     `json:"draft"`
	SkillsTaught []string `json:"skillsTaught"`
}

type campaignRequest struct {
	Advertiser      string     `json:"advertiser"`
	Content         string     `json:"content"`
	BaseScore       float64    `json:"baseScore"`
	TargetPersonas  []string   `json:"targetPersonas"`
	TargetLocations []string   `json:"targetLocations"`
	TargetInterests []string   `json:"targetInterests"`
	StartsAt        *time.Time `json:"startsAt"`
	EndsAt          *time.Time `json:"endsAt"`
}

type mentorRequest struct {
	IsAvailable     *bool    `json:"isAvailable"`
	Specializations []string `json:"specializations"`
}

type groupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
}

// splitQuery reads a comma separated query parameter.
func splitQuery(c *gin.Context, key string) []string {
	var out []string
	for _, v := range strings.Split(c.Query(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (h *Handler) listJobs(c *gin.Context) {
	jobs, err := h.opportunities.ListJobs(c.Request.Context(), repository.JobQuery{
		Types:            splitQuery(c, "type"),
		ExperienceLevels: splitQuery(c, "experienceLevel"),
		Location:         strings.TrimSpace(c.Query("location")),
		Limit:            queryInt(c, "limit", service.DefaultLimit),
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := make([]JobResponse, len(jobs))
	for i := range jobs {
		resp[i] = jobToResponse(&jobs[i])
	}
	respond(c, http.StatusOK, resp)
}

func (h *Handler) createJob(c *gin.Context) {
	var req jobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	job, err := h.opportunities.CreateJob(c.Request.Context(), service.JobInput{
		Title:           req.Title,
		Organization:    req.Organization,
		Type:            req.Type,
		ExperienceLevel: req.ExperienceLevel,
		Location:        req.Location,
		RequiredSkills:  req.RequiredSkills,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, jobToResponse(job))
}

func (h *Handler) listCourses(c *gin.Context) {
	courses, err := h.opportunities.ListCourses(c.Request.Context(), queryInt(c, "limit", service.DefaultLimit))
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := make([]CourseResponse, len(courses))
	for i := range courses {
		resp[i] = courseToResponse(&courses[i])
	}
	respond(c, http.StatusOK, resp)
}

func (h *Handler) createCourse(c *gin.Context) {
	var req courseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	course, err := h.opportunities.CreateCourse(c.Request.Context(), service.CourseInput{
		Title:        req.Title,
		Provider:     req.Provider,
		Draft:        req.Draft,
		SkillsTaught: req.SkillsTaught,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, courseToResponse(course))
}

func (h *Handler) listCampaigns(c *gin.Context) {
	campaigns, err := h.opportunities.ListCampaigns(c.Request.Context(), currentRole(c), queryInt(c, "limit", service.DefaultLimit))
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := make([]CampaignResponse, len(campaigns))
	for i := range campaigns {
		resp[i] = campaignToResponse(&campaigns[i])
	}
	respond(c, http.StatusOK, resp)
}

func (h *Handler) createCampaign(c *gin.Context) {
	var req campaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	campaign, err := h.opportunities.CreateCampaign(c.Request.Context(), currentRole(c), service.CampaignInput{
		Advertiser:      req.Advertiser,
		Content:         req.Content,
		BaseScore:       req.BaseScore,
		TargetPersonas:  req.TargetPersonas,
		TargetLocations: req.TargetLocations,
		TargetInterests: req.TargetInterests,
		StartsAt:        req.StartsAt,
		EndsAt:          req.EndsAt,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, campaignToResponse(campaign))
}

func (h *Handler) upsertMentor(c *gin.Context) {
	var req mentorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}
	profile, err := h.opportunities.UpsertMentor(c.Request.Context(), currentUserID(c), service.MentorInput{
		IsAvailable:     available,
		Specializations: req.Specializations,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusOK, mentorToResponse(profile))
}

func (h *Handler) listGroups(c *gin.Context) {
	groups, err := h.opportunities.ListGroups(c.Request.Context(), c.Query("q"), queryInt(c, "limit", service.DefaultLimit))
	if err != nil {
		h.writeError(c, err)
		return
	}
	resp := make([]GroupResponse, len(groups))
	for i := range groups {
		resp[i] = groupToResponse(&groups[i])
	}
	respond(c, http.StatusOK, resp)
}

func (h *Handler) createGroup(c *gin.Context) {
	var req groupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}
	group, err := h.opportunities.CreateGroup(c.Request.Context(), service.GroupInput{
		Name:        req.Name,
		Description: req.Description,
		Private:     req.Private,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond(c, http.StatusCreated, groupToResponse(group))
}
