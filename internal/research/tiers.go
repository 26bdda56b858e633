// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-service/pkg/types"
)

// Parameter defaults used when a request names no tier.
const (
	DefaultDepth      = 2
	DefaultBreadth    = 4
	DefaultReportType = types.ReportResearch
)

// ErrUnknownTier is returned when a request names a tier that is not configured.
var ErrUnknownTier = errors.New("unknown depth tier")

// Tier is a named depth/breadth/report-type preset.
type Tier struct {
	Name       string           `json:"name" yaml:"name"`
	ReportType types.ReportType `json:"report_type" yaml:"report_type"`
	Depth      int              `json:"depth" yaml:"depth"`
	Breadth    int              `json:"breadth" yaml:"breadth"`
	MinWords   int              `json:"min_words" yaml:"min_words"`
}

// DefaultTiers returns the built-in presets, shallowest first.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "quick", ReportType: types.ReportResearch, Depth: 1, Breadth: 2, MinWords: 500},
		{Name: "standard", ReportType: types.ReportResearch, Depth: 2, Breadth: 4, MinWords: 1000},
		{Name: "deep", ReportType: types.ReportDetailed, Depth: 3, Breadth: 6, MinWords: 2000},
	}
}

// tiersFile is the layout of a tier override file.
type tiersFile struct {
	Tiers []Tier `yaml:"tiers"`
}

// LoadTiers reads a YAML override file. Entries replace built-ins with the
// same name; new names are added. An empty path returns the built-ins.
func LoadTiers(path string) ([]Tier, error) {
	tiers := DefaultTiers()
	if path == "" {
		return tiers, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tiers file: %w", err)
	}
	var f tiersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing tiers file %s: %w", path, err)
	}

	for _, t := range f.Tiers {
		if err := t.validate(); err != nil {
			return nil, fmt.Errorf("tiers file %s: %w", path, err)
		}
		replaced := false
		for i := range tiers {
			if tiers[i].Name == t.Name {
				tiers[i] = t
				replaced = true
				break
			}
		}
		if !replaced {
			tiers = append(tiers, t)
		}
	}
	return tiers, nil
}

func (t Tier) validate() error {
	switch {
	case t.Name == "":
		return errors.New("tier without a name")
	case t.Depth < 1:
		return fmt.Errorf("tier %q: depth must be at least 1", t.Name)
	case t.Breadth < 1:
		return fmt.Errorf("tier %q: breadth must be at least 1", t.Name)
	case t.MinWords < 0:
		return fmt.Errorf("tier %q: min_words must not be negative", t.Name)
	case !ValidReportType(t.ReportType):
		return fmt.Errorf("tier %q: unknown report type %q", t.Name, t.ReportType)
	}
	return nil
}

// deeper reports whether t runs more levels, or as many levels with more
// sub-queries, than o.
func (t Tier) deeper(o Tier) bool {
	if t.Depth != o.Depth {
		return t.Depth > o.Depth
	}
	return t.Breadth > o.Breadth
}

// ValidReportType reports whether rt names a synthesis template.
func ValidReportType(rt types.ReportType) bool {
	return rt == types.ReportResearch || rt == types.ReportDetailed
}

// TierSet resolves request parameters against configured tiers.
type TierSet struct {
	tiers []Tier
	limit *Tier
}

// NewTierSet builds a TierSet. maxTier, when set, must name one of tiers;
// requests for deeper tiers are clamped to it.
func NewTierSet(tiers []Tier, maxTier string) (*TierSet, error) {
	ts := &TierSet{tiers: append([]Tier(nil), tiers...)}
	sort.SliceStable(ts.tiers, func(i, j int) bool { return ts.tiers[j].deeper(ts.tiers[i]) })

	if maxTier != "" {
		t, ok := ts.Lookup(maxTier)
		if !ok {
			return nil, fmt.Errorf("max depth tier: %w: %q", ErrUnknownTier, maxTier)
		}
		ts.limit = &t
	}
	return ts, nil
}

// All returns the tiers, shallowest first.
func (ts *TierSet) All() []Tier { return append([]Tier(nil), ts.tiers...) }

// Lookup returns the tier called name.
func (ts *TierSet) Lookup(name string) (Tier, bool) {
	for _, t := range ts.tiers {
		if t.Name == name {
			return t, true
		}
	}
	return Tier{}, false
}

// Find returns the tier matching all three parameters.
func (ts *TierSet) Find(reportType types.ReportType, depth, breadth int) (Tier, bool) {
	for _, t := range ts.tiers {
		if t.ReportType == reportType && t.Depth == depth && t.Breadth == breadth {
			return t, true
		}
	}
	return Tier{}, false
}

// Params are the resolved pipeline parameters for one run.
type Params struct {
	ReportType types.ReportType
	Depth      int
	Breadth    int
}

// ResolveParams turns request fields into pipeline parameters. A named tier
// takes precedence over explicit values; unset or zero explicit values take
// the defaults.
func (ts *TierSet) ResolveParams(tier string, depth, breadth *int, reportType string) (Params, error) {
	if tier != "" {
		t, ok := ts.Lookup(tier)
		if !ok {
			return Params{}, fmt.Errorf("%w: %q", ErrUnknownTier, tier)
		}
		if ts.limit != nil && t.deeper(*ts.limit) {
			t = *ts.limit
		}
		return Params{ReportType: t.ReportType, Depth: t.Depth, Breadth: t.Breadth}, nil
	}

	p := Params{ReportType: DefaultReportType, Depth: DefaultDepth, Breadth: DefaultBreadth}
	if reportType != "" {
		p.ReportType = types.ReportType(reportType)
	}
	if depth != nil && *depth != 0 {
		p.Depth = *depth
	}
	if breadth != nil && *breadth != 0 {
		p.Breadth = *breadth
	}
	return p, nil
}

// MinWords returns the report length target for p: the matching tier's, or
// 2000 for detailed reports and 1000 otherwise.
func (ts *TierSet) MinWords(p Params) int {
	if t, ok := ts.Find(p.ReportType, p.Depth, p.Breadth); ok {
		return t.MinWords
	}
	if p.ReportType == types.ReportDetailed {
		return 2000
	}
	return 1000
}
