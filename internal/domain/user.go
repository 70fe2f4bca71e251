package domain

import (
	"strings"
	"time"
)

// Persona is the role category that drives dashboards and cold-start defaults.
type Persona string

const (
	PersonaEarlyCareer       Persona = "EARLY_CAREER"
	PersonaMidCareer         Persona = "MID_CAREER"
	PersonaEntrepreneur      Persona = "ENTREPRENEUR"
	PersonaCreator           Persona = "CREATOR"
	PersonaMentor            Persona = "MENTOR"
	PersonaEducationProvider Persona = "EDUCATION_PROVIDER"
	PersonaEmployer          Persona = "EMPLOYER"
	PersonaRealEstate        Persona = "REAL_ESTATE"
	PersonaGovernmentNGO     Persona = "GOVERNMENT_NGO"
)

// Personas lists every supported persona in display order.
var Personas = []Persona{
	PersonaEarlyCareer,
	PersonaMidCareer,
	PersonaEntrepreneur,
	PersonaCreator,
	PersonaMentor,
	PersonaEducationProvider,
	PersonaEmployer,
	PersonaRealEstate,
	PersonaGovernmentNGO,
}

// ParsePersona normalises user input; ok is false for unknown values.
func ParsePersona(raw string) (Persona, bool) {
	p := Persona(strings.ToUpper(strings.TrimSpace(raw)))
	for _, known := range Personas {
		if p == known {
			return p, true
		}
	}
	return "", false
}

// Label renders the persona the way it is shown in recommendation reasons.
func (p Persona) Label() string {
	return strings.ReplaceAll(strings.ToLower(string(p)), "_", " ")
}

// CreatorTier ranks creators for feed boosts.
type CreatorTier string

const (
	CreatorTierNone        CreatorTier = ""
	CreatorTierEmerging    CreatorTier = "EMERGING"
	CreatorTierRising      CreatorTier = "RISING"
	CreatorTierEstablished CreatorTier = "ESTABLISHED"
	CreatorTierPartner     CreatorTier = "PARTNER"
)

type SubscriptionTier string

const (
	SubscriptionFree       SubscriptionTier = "FREE"
	SubscriptionPremium    SubscriptionTier = "PREMIUM"
	SubscriptionEnterprise SubscriptionTier = "ENTERPRISE"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User represents an account of the platform together with the profile
// fields the feed engine personalises on.
type User struct {
	ID               string
	Email            string
	PasswordHash     string
	DisplayName      string
	Avatar           string
	Headline         string
	Bio              string
	Persona          Persona
	CurrentJobTitle  string
	Industry         string
	City             string
	Country          string
	CreatorTier      CreatorTier
	SubscriptionTier SubscriptionTier
	Role             Role
	IsActive         bool
	Skills           []string
	LastLoginAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Location returns the most specific location known for the user.
func (u *User) Location() string {
	if u.City != "" {
		return u.City
	}
	return u.Country
}

// UserStats aggregates the activity counters used by cold-start detection.
type UserStats struct {
	Likes     int
	Posts     int
	Comments  int
	Following int
	Followers int
}

// AuthorSummary is the author projection embedded in feed items.
type AuthorSummary struct {
	ID          string
	DisplayName string
	Avatar      string
	Headline    string
	Persona     Persona
	Industry    string
	CreatorTier CreatorTier
}

// ProfileUpdate carries optional profile changes; nil fields are left untouched.
type ProfileUpdate struct {
	DisplayName     *string
	Avatar          *string
	Headline        *string
	Bio             *string
	Persona         *Persona
	CurrentJobTitle *string
	Industry        *string
	City            *string
	Country         *string
	Skills          []string
}
