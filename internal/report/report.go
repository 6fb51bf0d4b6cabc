package report

import (
	"sort"
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/agentstation/rirstats/pkg/merger"
	"github.com/agentstation/rirstats/pkg/records"
)

// Align is a column alignment.
type Align int

// Column alignments.
const (
	AlignDefault Align = iota
	AlignLeft
	AlignRight
)

// Data is one table.
type Data struct {
	Headers   []string
	Rows      [][]string
	Alignment []Align
}

// Section is a titled table.
type Section struct {
	Heading string
	Data    Data
}

// Report is something to print. Table and markdown output use the
// title, notes and sections; JSON and YAML output encode Value.
type Report struct {
	Title    string
	Notes    []string
	Sections []Section
	Value    any
}

var (
	titleCase = cases.Title(language.English)
	upperCase = cases.Upper(language.Und)
)

// RegistryName returns the display form of a registry identifier.
func RegistryName(registry string) string {
	return titleCase.String(registry)
}

// MergeSummary is the structured form of a merge report.
type MergeSummary struct {
	Identifier string                    `json:"identifier" yaml:"identifier"`
	Sources    []string                  `json:"sources" yaml:"sources"`
	Records    merger.Statistics         `json:"records" yaml:"records"`
	Registries map[string]map[string]int `json:"registries" yaml:"registries"`
	Duration   string                    `json:"duration" yaml:"duration"`
}

// Merge builds the report of a merge.
func Merge(res *merger.Result) *Report {
	st := res.Metadata.Stats
	byRegistry := make(map[string]map[string]int)
	for _, kind := range records.Kinds {
		for _, r := range res.Stats.Records(kind) {
			if byRegistry[r.Registry] == nil {
				byRegistry[r.Registry] = make(map[string]int, len(records.Kinds))
			}
			byRegistry[r.Registry][kind.String()]++
		}
	}

	kinds := Data{
		Headers:   []string{"Kind", "In", "Out"},
		Alignment: []Align{AlignLeft, AlignRight, AlignRight},
	}
	for _, kind := range records.Kinds {
		kinds.Rows = append(kinds.Rows, []string{kind.String(), strconv.Itoa(st.In[kind]), strconv.Itoa(st.Out[kind])})
	}
	kinds.Rows = append(kinds.Rows, []string{"total", strconv.Itoa(st.TotalIn()), strconv.Itoa(st.TotalOut())})

	registries := Data{
		Headers:   []string{"Registry", "ASN", "IPv4", "IPv6"},
		Alignment: []Align{AlignLeft, AlignRight, AlignRight, AlignRight},
	}
	for _, name := range sortedKeys(byRegistry) {
		counts := byRegistry[name]
		registries.Rows = append(registries.Rows, []string{
			RegistryName(name),
			strconv.Itoa(counts[records.KindASN.String()]),
			strconv.Itoa(counts[records.KindIPv4.String()]),
			strconv.Itoa(counts[records.KindIPv6.String()]),
		})
	}

	return &Report{
		Title: "Merge of " + res.Stats.Identifier,
		Notes: []string{res.Summary()},
		Sections: []Section{
			{Heading: "Records", Data: kinds},
			{Heading: "Registries", Data: registries},
		},
		Value: MergeSummary{
			Identifier: res.Stats.Identifier,
			Sources:    res.Metadata.Sources,
			Records:    st,
			Registries: byRegistry,
			Duration:   res.Metadata.Duration.String(),
		},
	}
}

// ChangeView is one change in structured output.
type ChangeView struct {
	Type     merger.ChangeType `json:"type" yaml:"type"`
	Kind     records.Kind      `json:"kind" yaml:"kind"`
	Current  string            `json:"current,omitempty" yaml:"current,omitempty"`
	Previous string            `json:"previous,omitempty" yaml:"previous,omitempty"`
}

// ChangesetView is the structured form of a changeset report.
type ChangesetView struct {
	Summary merger.ChangesetSummary `json:"summary" yaml:"summary"`
	Changes []ChangeView            `json:"changes" yaml:"changes"`
}

// Changeset builds the report of a diff.
func Changeset(cs *merger.Changeset) *Report {
	view := ChangesetView{Summary: cs.Summary, Changes: make([]ChangeView, 0, len(cs.Changes))}
	data := Data{Headers: []string{"Change", "Kind", "Registry", "Range", "Previous"}}
	for _, c := range cs.Changes {
		v := ChangeView{Type: c.Type(), Kind: c.Kind}
		row := []string{string(c.Type()), c.Kind.String(), "", "", ""}
		if c.Delta.Current != nil {
			v.Current = c.Delta.Current.String()
			row[2] = RegistryName(c.Delta.Current.Registry)
			row[3] = c.Kind.FormatRange(c.Delta.Current.Range())
		}
		if c.Delta.Previous != nil {
			v.Previous = c.Delta.Previous.String()
			row[4] = RegistryName(c.Delta.Previous.Registry)
			if c.Delta.Current == nil {
				row[3] = c.Kind.FormatRange(c.Delta.Previous.Range())
			}
		}
		view.Changes = append(view.Changes, v)
		data.Rows = append(data.Rows, row)
	}

	return &Report{
		Title:    "Changes",
		Notes:    []string{cs.String()},
		Sections: []Section{{Data: data}},
		Value:    view,
	}
}

// Answer is the result of one lookup.
type Answer struct {
	Query       string `json:"query" yaml:"query"`
	Found       bool   `json:"found" yaml:"found"`
	Registry    string `json:"registry,omitempty" yaml:"registry,omitempty"`
	CountryCode string `json:"country_code,omitempty" yaml:"country_code,omitempty"`
	Kind        string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Range       string `json:"range,omitempty" yaml:"range,omitempty"`
	Status      string `json:"status,omitempty" yaml:"status,omitempty"`
	Date        string `json:"date,omitempty" yaml:"date,omitempty"`
	Source      string `json:"source,omitempty" yaml:"source,omitempty"`
}

// NewAnswer describes the record found for query, or a miss when r is nil.
func NewAnswer(query string, r *records.Record) Answer {
	if r == nil {
		return Answer{Query: query}
	}
	return Answer{
		Query:       query,
		Found:       true,
		Registry:    r.Registry,
		CountryCode: upperCase.String(r.CountryCode),
		Kind:        r.Kind.String(),
		Range:       r.Kind.FormatRange(r.Range()),
		Status:      r.Status,
		Date:        r.Date,
		Source:      r.Source.String(),
	}
}

// Lookup builds the report of lookup answers.
func Lookup(answers []Answer) *Report {
	data := Data{Headers: []string{"Query", "Registry", "Country", "Range", "Status", "Date", "Source"}}
	for _, a := range answers {
		if !a.Found {
			data.Rows = append(data.Rows, []string{a.Query, "-", "", "", "not found", "", ""})
			continue
		}
		data.Rows = append(data.Rows, []string{a.Query, RegistryName(a.Registry), a.CountryCode, a.Range, a.Status, a.Date, a.Source})
	}
	return &Report{
		Title:    "Lookup",
		Sections: []Section{{Data: data}},
		Value:    answers,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
