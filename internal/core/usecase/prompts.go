package usecase

import "strings"

const locationPromptTemplate = `Extract the city and state from the following real estate query:
---
**Query**: {query}

Return only the city and state in the format: "City, State" (e.g., "San Francisco, CA").`

const zipCodesPromptTemplate = `Provide exactly **2 ZIP codes** for the given city and state.
---
**City & State**: {city_state}

**Return a valid JSON list, exactly like this:**
["94102", "94103"]`

const searchParamsPromptTemplate = `Extract structured real estate search parameters from the query.
---
**User Query**: {query}
**Extracted City & State**: {city_state}

Return a JSON object with:
- price_min (int)
- price_max (int)
- bedrooms (int)
- amenities (list of strings)
Omit a field when the query does not mention it.`

// renderPrompt подставляет значения в плейсхолдеры вида {name}
func renderPrompt(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}
