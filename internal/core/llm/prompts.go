package llm

import (
	"fmt"
	"strings"
)

const queryPlanPromptTemplate = `You are an event discovery planner. The user is interested in: %s.
Generate 5 English web search keywords that find concrete events happening in %d.
Cover these angles, one keyword each where possible:
1. Financial and corporate events (earnings calls, shareholder meetings).
2. Product and technology launches, release events.
3. Community and detail events (webinars, workshops, developer days, community hours).
4. Large events (conferences, summits, expos).
Return JSON: {"queries": ["keyword 1", "keyword 2", ...]}`

const extractPromptTemplate = `Extract every event that takes place in %[1]d from the text below.
Rules:
- Use the date format YYYY-MM-DD. If only the year is known, use "%[1]d-01-00".
- Ignore events in %[2]d or earlier.
- Keep each description under 50 characters.
Return JSON: {"events": [{"title": "...", "date": "YYYY-MM-DD", "description": "..."}]}
If there are no events return {"events": []}.

Text:
%[3]s`

const localExtractPromptTemplate = `Extract all %[1]d events from the following text.
Return JSON: {"events": [{"title": "...", "date": "YYYY-MM-DD or %[1]d-01-00", "description": "..."}]}

Text:
%[2]s`

const refinePromptTemplate = `Find the specific %[1]d date of the event "%[2]s" in the content below.
Return JSON: {"title": "%[2]s", "date": "YYYY-MM-DD", "description": "..."}
If the exact day cannot be found, use "%[1]d-01-00" as the date.

Content:
%[3]s`

const verifyPromptTemplate = `You are a fact checker for an event catalog. Check the events below:
1. Keep only events that take place in %[1]d.
2. Remove events that look invented or not real.
3. Make sure every date is formatted as YYYY-MM-DD (use "%[1]d-01-00" when only the year is known) and fix errors.
Do not add events that are not in the input.
Return JSON: {"events": [{"title": "...", "date": "YYYY-MM-DD", "description": "...", "link": "..."}]}

Events:
%[2]s`

const categoryCheckPromptTemplate = `User interests: %s
Event title: %s
Event description: %s

Does this event match the user's interests?
Return JSON: {"is_match": true or false, "reason": "short explanation"}`

const keywordsPromptTemplate = `You are an expert event researcher. Based on the following list of already searched keywords, generate 10 NEW and specific search keywords for technology, AI, finance, or global events happening in %d. Focus on niche conferences, product releases, or earnings.
History: %s
Return JSON: {"keywords": ["keyword 1", "keyword 2", ...]}`

// QueryPlanPrompt asks for diversified search queries for an interest string.
func QueryPlanPrompt(interests string, year int) string {
	return fmt.Sprintf(queryPlanPromptTemplate, interests, year)
}

// ExtractPrompt asks for the target-year events found in page text.
func ExtractPrompt(text string, year int) string {
	return fmt.Sprintf(extractPromptTemplate, year, year-1, text)
}

// LocalExtractPrompt is the shorter extraction prompt used with local models.
func LocalExtractPrompt(text string, year int) string {
	return fmt.Sprintf(localExtractPromptTemplate, year, text)
}

// RefinePrompt asks for the concrete date of one named event.
func RefinePrompt(title, content string, year int) string {
	return fmt.Sprintf(refinePromptTemplate, year, title, content)
}

// VerifyPrompt asks the model to filter and fix a batch of events given as JSON.
func VerifyPrompt(eventsJSON string, year int) string {
	return fmt.Sprintf(verifyPromptTemplate, year, eventsJSON)
}

// CategoryCheckPrompt asks whether an event matches the interests.
func CategoryCheckPrompt(interests, title, description string) string {
	return fmt.Sprintf(categoryCheckPromptTemplate, interests, title, description)
}

// KeywordsPrompt asks for new search keywords given recent history.
func KeywordsPrompt(history []string, year int) string {
	quoted := make([]string, len(history))
	for i, h := range history {
		quoted[i] = fmt.Sprintf("%q", h)
	}

	return fmt.Sprintf(keywordsPromptTemplate, year, "["+strings.Join(quoted, ", ")+"]")
}
