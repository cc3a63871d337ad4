package profiler

import (
	"fmt"
	"strings"

	"github.com/BerylCAtieno/getreach/internal/models"
	"github.com/BerylCAtieno/getreach/internal/research"
)

const systemInstruction = `You are an expert customer-discovery researcher for early-stage founders.
You find exactly where a product's ideal customers gather online and how to talk to them.
Only name communities that really exist. Prefer specific subreddits, Slack and Discord groups,
forums, newsletters and hashtags over generic platform names.`

// BuildPrompt renders the generation prompt for one analysis.
func BuildPrompt(in models.AnalysisInput, brief research.Brief) string {
	var sb strings.Builder

	sb.WriteString("Analyze this product and produce a customer discovery report.\n\n")
	fmt.Fprintf(&sb, "Product URL: %s\n", in.URL)
	if d := strings.TrimSpace(in.Description); d != "" {
		fmt.Fprintf(&sb, "Description: %s\n", d)
	}
	region := strings.TrimSpace(in.Region)
	if region == "" {
		region = "Global"
	}
	fmt.Fprintf(&sb, "Target region: %s\n", region)
	language := strings.TrimSpace(in.Language)
	if language == "" {
		language = "English"
	}
	fmt.Fprintf(&sb, "Write every text field in: %s\n", language)

	if !brief.Empty() {
		sb.WriteString("\nWeb research gathered for this product:\n")
		if brief.PageTitle != "" {
			fmt.Fprintf(&sb, "Page title: %s\n", brief.PageTitle)
		}
		if brief.PageExcerpt != "" {
			fmt.Fprintf(&sb, "Page text: %s\n", brief.PageExcerpt)
		}
		for i, f := range brief.Findings {
			fmt.Fprintf(&sb, "[%d] %s (%s): %s\n", i+1, f.Title, f.URL, f.Snippet)
		}
	}

	sb.WriteString(`
Requirements:
- persona: who buys this. userType is one of B2B, B2C, Both. technicalLevel is one of Non-technical, Semi-technical, Technical.
- platforms: 4 to 6 platforms ranked by importance, most important first. For each give 3 to 5 named communities,
  why it matters (importance), best post types, posting frequency, and visibility, engagement and conversionIntent as Low, Medium or High.
- advanced: competitor presence, gaps competitors leave open, 10 to 15 keyword clusters, one whatToSay example per platform
  and who is actively looking for a solution (search phrases, where they ask, job titles).
Respond with JSON only, matching the response schema.
`)
	return sb.String()
}
