package records

import (
	"strconv"
	"strings"
)

// DefaultVersion is the delegated stats format version written in headers.
const DefaultVersion = "2.3"

// Header is the version line of a delegated stats file.
type Header struct {
	Version   string
	Registry  string
	Serial    string
	Records   string
	StartDate string
	EndDate   string
	UTCOffset string
}

// IsHeader reports whether the fields of a line describe a header.
func IsHeader(fields []string) bool {
	return len(fields) == 7 && (fields[0] == "2" || fields[0] == DefaultVersion)
}

// HeaderFromFields builds a Header from a line already checked with IsHeader.
func HeaderFromFields(fields []string) Header {
	return Header{
		Version:   fields[0],
		Registry:  fields[1],
		Serial:    fields[2],
		Records:   fields[3],
		StartDate: fields[4],
		EndDate:   fields[5],
		UTCOffset: fields[6],
	}
}

func (h Header) String() string {
	return strings.Join([]string{h.Version, h.Registry, h.Serial, h.Records, h.StartDate, h.EndDate, h.UTCOffset}, "|")
}

// Summary is a per-kind record count line.
type Summary struct {
	Registry string
	Kind     Kind
	Count    int
}

// IsSummary reports whether the fields of a line describe a summary.
func IsSummary(fields []string) bool {
	return len(fields) == 6 && fields[5] == "summary"
}

// SummaryFromFields builds a Summary from a line already checked with IsSummary.
func SummaryFromFields(fields []string) (Summary, error) {
	count, err := strconv.Atoi(fields[4])
	if err != nil {
		return Summary{}, err
	}
	return Summary{Registry: fields[0], Kind: Kind(fields[2]), Count: count}, nil
}

func (s Summary) String() string {
	return strings.Join([]string{s.Registry, "*", string(s.Kind), "*", strconv.Itoa(s.Count), "summary"}, "|")
}
