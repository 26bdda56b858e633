// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var promptDate = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func TestPlanPrompt(t *testing.T) {
	p, err := planPrompt("quantum sensors", 3, "", promptDate)
	require.NoError(t, err)
	assert.Contains(t, p, "Write 3 focused Google search queries")
	assert.Contains(t, p, `Topic: "quantum sensors"`)
	assert.Contains(t, p, "Current date: 2026-05-04")
	assert.NotContains(t, p, "Findings so far")
	assert.NotContains(t, p, "prior research")

	p, err = planPrompt("quantum sensors", 2, "earlier passages", promptDate)
	require.NoError(t, err)
	assert.Contains(t, p, "generate 2 follow-up search queries")
	assert.Contains(t, p, "Findings so far:\nearlier passages")
	assert.NotContains(t, p, "focused Google search queries")
}

func TestReportPrompt(t *testing.T) {
	p, err := reportPrompt("q", "ctx", ReportResearch, 1000, promptDate)
	require.NoError(t, err)
	assert.Contains(t, p, "Information:\n\"\"\"ctx\"\"\"")
	assert.Contains(t, p, "At least 1000 words")
	assert.NotContains(t, p, "hierarchically")

	p, err = reportPrompt("q", "ctx", ReportDetailed, 2000, promptDate)
	require.NoError(t, err)
	assert.Contains(t, p, "hierarchically researched")
	assert.Contains(t, p, "At least 2000 words")
	assert.Contains(t, p, "Current date: 2026-05-04")
}
