// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/research-service/pkg/types"
)

func intp(v int) *int { return &v }

func defaultSet(t *testing.T, maxTier string) *TierSet {
	t.Helper()
	ts, err := NewTierSet(DefaultTiers(), maxTier)
	require.NoError(t, err)
	return ts
}

func TestResolveParams(t *testing.T) {
	ts := defaultSet(t, "")

	tests := []struct {
		name       string
		tier       string
		depth      *int
		breadth    *int
		reportType string
		want       Params
	}{
		{"defaults", "", nil, nil, "", Params{ReportResearch, 2, 4}},
		{"quick tier", "quick", nil, nil, "", Params{ReportResearch, 1, 2}},
		{"deep tier", "deep", nil, nil, "", Params{ReportDetailed, 3, 6}},
		{"tier wins over explicit", "quick", intp(5), intp(9), "detailed_report", Params{ReportResearch, 1, 2}},
		{"explicit values", "", intp(3), intp(5), "detailed_report", Params{ReportDetailed, 3, 5}},
		{"zero explicit takes default", "", intp(0), intp(0), "", Params{ReportResearch, 2, 4}},
		{"partial explicit", "", nil, intp(7), "", Params{ReportResearch, 2, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ts.ResolveParams(tt.tier, tt.depth, tt.breadth, tt.reportType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

const (
	ReportResearch = types.ReportResearch
	ReportDetailed = types.ReportDetailed
)

func TestResolveParams_UnknownTier(t *testing.T) {
	_, err := defaultSet(t, "").ResolveParams("extreme", nil, nil, "")
	assert.ErrorIs(t, err, ErrUnknownTier)
}

func TestResolveParams_ClampsToMaxTier(t *testing.T) {
	ts := defaultSet(t, "standard")

	got, err := ts.ResolveParams("deep", nil, nil, "")
	require.NoError(t, err)
	assert.Equal(t, Params{ReportResearch, 2, 4}, got)

	got, err = ts.ResolveParams("quick", nil, nil, "")
	require.NoError(t, err)
	assert.Equal(t, Params{ReportResearch, 1, 2}, got)
}

func TestNewTierSet_UnknownMaxTier(t *testing.T) {
	_, err := NewTierSet(DefaultTiers(), "bogus")
	assert.ErrorIs(t, err, ErrUnknownTier)
}

func TestTierSet_AllSortedShallowestFirst(t *testing.T) {
	tiers := []Tier{
		{Name: "deep", ReportType: ReportDetailed, Depth: 3, Breadth: 6},
		{Name: "quick", ReportType: ReportResearch, Depth: 1, Breadth: 2},
		{Name: "wide", ReportType: ReportResearch, Depth: 1, Breadth: 8},
	}
	ts, err := NewTierSet(tiers, "")
	require.NoError(t, err)

	var names []string
	for _, tr := range ts.All() {
		names = append(names, tr.Name)
	}
	assert.Equal(t, []string{"quick", "wide", "deep"}, names)
}

func TestMinWords(t *testing.T) {
	ts := defaultSet(t, "")
	assert.Equal(t, 500, ts.MinWords(Params{ReportResearch, 1, 2}))
	assert.Equal(t, 1000, ts.MinWords(Params{ReportResearch, 2, 4}))
	assert.Equal(t, 2000, ts.MinWords(Params{ReportDetailed, 3, 6}))
	assert.Equal(t, 1000, ts.MinWords(Params{ReportResearch, 4, 4}))
	assert.Equal(t, 2000, ts.MinWords(Params{ReportDetailed, 1, 1}))
}

func TestLoadTiers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`tiers:
  - name: quick
    report_type: research_report
    depth: 1
    breadth: 3
    min_words: 600
  - name: exhaustive
    report_type: detailed_report
    depth: 4
    breadth: 8
    min_words: 4000
`), 0o644))

	tiers, err := LoadTiers(path)
	require.NoError(t, err)
	require.Len(t, tiers, 4)
	assert.Equal(t, Tier{Name: "quick", ReportType: ReportResearch, Depth: 1, Breadth: 3, MinWords: 600}, tiers[0])
	assert.Equal(t, "exhaustive", tiers[3].Name)

	ts, err := NewTierSet(tiers, "")
	require.NoError(t, err)
	assert.Equal(t, 4000, ts.MinWords(Params{ReportDetailed, 4, 8}))
}

func TestLoadTiers_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "tiers: [\n"},
		{"missing name", "tiers:\n  - depth: 1\n    breadth: 1\n    report_type: research_report\n"},
		{"bad depth", "tiers:\n  - name: x\n    depth: 0\n    breadth: 1\n    report_type: research_report\n"},
		{"bad report type", "tiers:\n  - name: x\n    depth: 1\n    breadth: 1\n    report_type: essay\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tiers.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0o644))
			_, err := LoadTiers(path)
			assert.Error(t, err)
		})
	}

	_, err := LoadTiers(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadTiers_EmptyPath(t *testing.T) {
	tiers, err := LoadTiers("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTiers(), tiers)
}

func TestValidReportType(t *testing.T) {
	assert.True(t, ValidReportType("research_report"))
	assert.True(t, ValidReportType("detailed_report"))
	assert.False(t, ValidReportType("summary"))
	assert.False(t, ValidReportType(""))
}
