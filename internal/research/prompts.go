// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/pdiddy/research-service/pkg/types"
)

// planPromptTmpl asks the planner for independent search angles on a fresh
// query.
var planPromptTmpl = template.Must(template.New("plan").Parse(`Write {{.Breadth}} focused Google search queries to research the following topic from multiple angles. Each query should explore a different aspect.

Topic: "{{.Query}}"
Current date: {{.Date}}

Respond with ONLY a JSON array of strings, e.g. ["query 1", "query 2"].
`))

// followUpPromptTmpl asks the planner for queries that fill gaps in what
// earlier levels found.
var followUpPromptTmpl = template.Must(template.New("follow-up").Parse(`Based on the following research findings, generate {{.Breadth}} follow-up search queries that explore gaps, unanswered questions, or deeper aspects of the topic.

Original query: "{{.Query}}"
Current date: {{.Date}}

Findings so far:
{{.Context}}

Respond with ONLY a JSON array of strings.
`))

var reportPromptTmpl = template.Must(template.New("report").Parse(`Information:
"""{{.Context}}"""

Using the above information, write a detailed research report answering: "{{.Query}}"

Requirements:
- At least {{.MinWords}} words, well-structured with markdown
- Use ## for major sections and ### for subsections
- Include facts, numbers, and statistics where available
- Use APA in-text citations as markdown hyperlinks: ([Author, Year](url))
- Add a references section at the end with full URLs
- Determine your own concrete opinion based on the evidence
- Prioritize reliable, recent sources
- Use markdown tables for comparisons or structured data
- Current date: {{.Date}}
- Language: English
`))

var detailedReportPromptTmpl = template.Must(template.New("detailed-report").Parse(`Using the following hierarchically researched information and citations:

"""{{.Context}}"""

Write a comprehensive, in-depth research report answering: "{{.Query}}"

Requirements:
- At least {{.MinWords}} words with thorough analysis
- Synthesize information from multiple levels of research depth
- Present a coherent narrative from foundational to advanced insights
- Use ## for major sections and ### for subsections
- Use APA in-text citations as markdown hyperlinks: ([Author, Year](url))
- Add a references section at the end with full URLs
- Include markdown tables for comparisons and structured data
- Highlight connections between different research branches
- Include statistics, data, and concrete examples
- Current date: {{.Date}}
- Language: English
`))

type promptData struct {
	Query    string
	Breadth  int
	Context  string
	MinWords int
	Date     string
}

// planPrompt renders the level planning prompt. Prior context selects the
// follow-up variant.
func planPrompt(query string, breadth int, prior string, now time.Time) (string, error) {
	tmpl := planPromptTmpl
	if prior != "" {
		tmpl = followUpPromptTmpl
	}
	return render(tmpl, promptData{Query: query, Breadth: breadth, Context: prior, Date: isoDate(now)})
}

// reportPrompt renders the synthesis prompt for reportType.
func reportPrompt(query, context string, reportType types.ReportType, minWords int, now time.Time) (string, error) {
	tmpl := reportPromptTmpl
	if reportType == types.ReportDetailed {
		tmpl = detailedReportPromptTmpl
	}
	return render(tmpl, promptData{Query: query, Context: context, MinWords: minWords, Date: isoDate(now)})
}

func render(tmpl *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing %s template: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

func isoDate(t time.Time) string { return t.Format("2006-01-02") }
