package report

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"real-estate-search-service/internal/core/domain"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const markdownTemplate = `# 🏡 AI Real Estate Search Report

## 📍 Search Details
- **Query:** ` + "`{{ .Query }}`" + `
{{- if .CityState }}
- **Location:** {{ .CityState }}
{{- end }}
{{- if .ZipCodes }}
- **ZIP codes:** {{ join .ZipCodes ", " }}
{{- end }}
- **Status:** {{ .Status }}

## 🔍 Results
{{- if .Error }}

**Search aborted:** {{ .Error }}
{{- else if not .Listings }}

**No properties found matching your criteria.**
{{- else }}
{{ range .Listings }}
### 🏠 {{ .StatusText }}
- **📍 Address:** [{{ .Address }}]({{ .DetailURL }})
- **💰 Price:** {{ .Price }}
- **🛏 Bedrooms:** {{ .Beds }}
- **🛁 Bathrooms:** {{ .Baths }}
- **📏 Area:** {{ .Area }} sq ft
- **📅 Days on Zillow:** {{ .DaysOnSource }}
- **🖼 Image:** ![Listing Image]({{ .ImageURL }})
---
{{ end }}
{{- end }}

---
📌 *This report was generated automatically. Please verify details before making decisions.*
`

const notAvailable = "N/A"

type listingView struct {
	StatusText   string
	Address      string
	DetailURL    string
	Price        string
	Beds         string
	Baths        string
	Area         string
	DaysOnSource string
	ImageURL     string
}

type reportView struct {
	Query     string
	CityState string
	ZipCodes  []string
	Status    string
	Error     string
	Listings  []listingView
}

// MarkdownRenderer реализует port.ReportRendererPort
type MarkdownRenderer struct {
	tmpl *template.Template
}

func NewMarkdownRenderer() *MarkdownRenderer {
	tmpl := template.Must(template.New("report.md").
		Funcs(template.FuncMap{"join": strings.Join}).
		Parse(markdownTemplate))

	return &MarkdownRenderer{tmpl: tmpl}
}

// Render строит отчет по итоговому состоянию; в отчет попадают первые 5 объявлений
func (r *MarkdownRenderer) Render(state *domain.QueryState) (string, error) {
	if state == nil {
		return "", fmt.Errorf("report: state is nil")
	}

	view := reportView{
		Query:    state.Query,
		ZipCodes: state.ZipCodes,
		Status:   stageLabel(state.Stage),
		Error:    state.Error,
	}
	if view.Query == "" {
		view.Query = notAvailable
	}
	if state.CityState != nil {
		view.CityState = *state.CityState
	}
	for _, l := range state.TopListings(domain.ReportListingLimit) {
		view.Listings = append(view.Listings, newListingView(l))
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("report: failed to render: %w", err)
	}
	return buf.String(), nil
}

// stageLabel: LISTINGS_FETCHED -> Listings Fetched.
// Caser хранит состояние, поэтому создается на каждый вызов.
func stageLabel(stage domain.Stage) string {
	return cases.Title(language.English).String(strings.ReplaceAll(strings.ToLower(string(stage)), "_", " "))
}

func newListingView(l domain.ListingRecord) listingView {
	return listingView{
		StatusText:   l.String("statusText", "Property for Sale/Rent"),
		Address:      l.String("address", notAvailable),
		DetailURL:    l.String("detailUrl", "#"),
		Price:        l.String("price", notAvailable),
		Beds:         l.String("beds", notAvailable),
		Baths:        l.String("baths", notAvailable),
		Area:         l.String("area", notAvailable),
		DaysOnSource: l.Nested("variableData").String("text", notAvailable),
		ImageURL:     l.String("imgSrc", "#"),
	}
}
