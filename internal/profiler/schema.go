package profiler

import "github.com/google/generative-ai-go/genai"

func str() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }

func strList() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: str()}
}

func level() *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Enum: []string{"Low", "Medium", "High"}}
}

// ReportSchema is the response schema the model is constrained to. It mirrors
// models.ReachReport; communities are always requested as objects.
func ReportSchema() *genai.Schema {
	persona := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":          str(),
			"description":    str(),
			"jobRoles":       strList(),
			"userType":       {Type: genai.TypeString, Enum: []string{"B2B", "B2C", "Both"}},
			"technicalLevel": {Type: genai.TypeString, Enum: []string{"Non-technical", "Semi-technical", "Technical"}},
			"industry":       str(),
			"painPoints":     strList(),
		},
		Required: []string{"title", "description", "jobRoles", "userType", "technicalLevel", "industry", "painPoints"},
	}

	community := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":        str(),
			"url":         str(),
			"description": str(),
		},
		Required: []string{"name"},
	}

	platform := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":             str(),
			"communities":      {Type: genai.TypeArray, Items: community},
			"importance":       str(),
			"bestPostTypes":    strList(),
			"frequency":        str(),
			"visibility":       level(),
			"engagement":       level(),
			"conversionIntent": level(),
		},
		Required: []string{"name", "communities", "importance", "conversionIntent"},
	}

	whatToSay := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"platform":   str(),
			"example":    str(),
			"whyItWorks": str(),
		},
		Required: []string{"platform", "example", "whyItWorks"},
	}

	seekers := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"summary":          str(),
			"searchPhrases":    strList(),
			"whereTheyAsk":     strList(),
			"jobTitlesOrRoles": strList(),
		},
		Required: []string{"summary", "searchPhrases", "whereTheyAsk", "jobTitlesOrRoles"},
	}

	advanced := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"competitorPresence":      str(),
			"gaps":                    strList(),
			"keywordClusters":         strList(),
			"whatToSayExamples":       {Type: genai.TypeArray, Items: whatToSay},
			"whoIsLookingForSolution": seekers,
		},
		Required: []string{"competitorPresence", "gaps", "keywordClusters", "whatToSayExamples", "whoIsLookingForSolution"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"persona":   persona,
			"platforms": {Type: genai.TypeArray, Items: platform},
			"advanced":  advanced,
		},
		Required: []string{"persona", "platforms", "advanced"},
	}
}
