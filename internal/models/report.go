package models

import (
	"encoding/json"
	"fmt"
)

// Level is the Low/Medium/High scale the generator uses for visibility,
// engagement and conversion intent.
type Level string

const (
	LevelLow    Level = "Low"
	LevelMedium Level = "Medium"
	LevelHigh   Level = "High"
)

// ReachReport is the structured result of one analysis run.
//
//	{
//	  "persona":   {...},
//	  "platforms": [{...}],
//	  "advanced":  {...}
//	}
//
// Lists are never nil once a report has gone through ParseReport or Normalize.
type ReachReport struct {
	Persona   Persona    `json:"persona"`
	Platforms []Platform `json:"platforms"`
	Advanced  Advanced   `json:"advanced"`
}

type Persona struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	JobRoles       []string `json:"jobRoles"`
	UserType       string   `json:"userType"`
	TechnicalLevel string   `json:"technicalLevel"`
	Industry       string   `json:"industry"`
	PainPoints     []string `json:"painPoints"`
}

type Platform struct {
	Name             string      `json:"name"`
	Communities      []Community `json:"communities"`
	Importance       string      `json:"importance"`
	BestPostTypes    []string    `json:"bestPostTypes,omitempty"`
	Frequency        string      `json:"frequency,omitempty"`
	Visibility       Level       `json:"visibility,omitempty"`
	Engagement       Level       `json:"engagement,omitempty"`
	ConversionIntent Level       `json:"conversionIntent"`
}

// Community is a named group on a platform. The generator emits either a bare
// string ("r/startups") or an object; bare strings are written back as strings.
type Community struct {
	Name        string `json:"name"`
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`

	bare bool
}

// NamedCommunity returns a community that serialises as a plain string.
func NamedCommunity(name string) Community {
	return Community{Name: name, bare: true}
}

func (c *Community) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*c = Community{Name: name, bare: true}
		return nil
	}

	type community Community
	var obj community
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("community must be a string or an object: %w", err)
	}
	*c = Community(obj)
	return nil
}

func (c Community) MarshalJSON() ([]byte, error) {
	if c.bare {
		return json.Marshal(c.Name)
	}
	type community Community
	return json.Marshal(community(c))
}

type Advanced struct {
	CompetitorPresence      string           `json:"competitorPresence"`
	Gaps                    []string         `json:"gaps"`
	KeywordClusters         []string         `json:"keywordClusters"`
	WhatToSayExamples       []WhatToSay      `json:"whatToSayExamples"`
	WhoIsLookingForSolution *SolutionSeekers `json:"whoIsLookingForSolution"`
}

type WhatToSay struct {
	Platform   string `json:"platform"`
	Example    string `json:"example"`
	WhyItWorks string `json:"whyItWorks"`
}

// SolutionSeekers describes the people actively searching for a product like
// the one analysed.
type SolutionSeekers struct {
	Summary          string   `json:"summary"`
	SearchPhrases    []string `json:"searchPhrases"`
	WhereTheyAsk     []string `json:"whereTheyAsk"`
	JobTitlesOrRoles []string `json:"jobTitlesOrRoles"`
}

// Normalize replaces every nil list with an empty one.
func (r *ReachReport) Normalize() {
	r.Persona.JobRoles = orEmpty(r.Persona.JobRoles)
	r.Persona.PainPoints = orEmpty(r.Persona.PainPoints)

	if r.Platforms == nil {
		r.Platforms = []Platform{}
	}
	for i := range r.Platforms {
		if r.Platforms[i].Communities == nil {
			r.Platforms[i].Communities = []Community{}
		}
	}

	r.Advanced.Gaps = orEmpty(r.Advanced.Gaps)
	r.Advanced.KeywordClusters = orEmpty(r.Advanced.KeywordClusters)
	if r.Advanced.WhatToSayExamples == nil {
		r.Advanced.WhatToSayExamples = []WhatToSay{}
	}
	if s := r.Advanced.WhoIsLookingForSolution; s != nil {
		s.SearchPhrases = orEmpty(s.SearchPhrases)
		s.WhereTheyAsk = orEmpty(s.WhereTheyAsk)
		s.JobTitlesOrRoles = orEmpty(s.JobTitlesOrRoles)
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
