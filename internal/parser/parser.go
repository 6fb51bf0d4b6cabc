// Package parser reads delegated stats files and swap lists into datasets.
package parser

import (
	"bufio"
	"context"
	"encoding/csv"
	stderrors "errors"
	"io"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/agentstation/rirstats/pkg/errors"
	"github.com/agentstation/rirstats/pkg/logging"
	"github.com/agentstation/rirstats/pkg/records"
)

const (
	dateLayout = "20060102"

	formatStats = "delegated"
	formatSwaps = "swap"
)

// Parser turns source files into records. Lines without a date are
// stamped with today's date from the clock.
type Parser struct {
	clock clock.Clock
}

// Option configures a Parser.
type Option func(*Parser)

// WithClock sets the time source for default dates.
func WithClock(c clock.Clock) Option {
	return func(p *Parser) { p.clock = c }
}

// New creates a Parser.
func New(opts ...Option) *Parser {
	p := &Parser{clock: clock.New()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parser) today() string {
	return p.clock.Now().Format(dateLayout)
}

// ParseStats reads a delegated stats file. Every record gets provenance src.
// Malformed lines and invalid records are logged and skipped.
func (p *Parser) ParseStats(ctx context.Context, r io.Reader, src records.Source, name string) (*records.Stats, error) {
	return p.parseDelimited(ctx, r, name, func([]string) records.Source { return src }, func(fields []string) []string { return fields })
}

// ParseMerged reads a file written by this tool, whose last column holds
// each record's provenance.
func (p *Parser) ParseMerged(ctx context.Context, r io.Reader, name string) (*records.Stats, error) {
	sourceOf := func(fields []string) records.Source {
		if s, ok := records.ParseSource(fields[len(fields)-1]); ok && len(fields) > 8 {
			return s
		}
		return records.SourceStats
	}
	trim := func(fields []string) []string {
		if _, ok := records.ParseSource(fields[len(fields)-1]); ok && len(fields) > 8 {
			return fields[:len(fields)-1]
		}
		return fields
	}
	return p.parseDelimited(ctx, r, name, sourceOf, trim)
}

func (p *Parser) parseDelimited(ctx context.Context, r io.Reader, name string, sourceOf func([]string) records.Source, recordFields func([]string) []string) (*records.Stats, error) {
	logger := logging.FromContext(logging.WithSource(ctx, name))
	today := p.today()

	cr := csv.NewReader(r)
	cr.Comma = '|'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	stats := records.NewStats(name)
	skipped := 0
	for {
		raw, err := cr.Read()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var csvErr *csv.ParseError
			if stderrors.As(err, &csvErr) {
				return nil, &errors.ParseError{Format: formatStats, File: name, Line: csvErr.Line, Column: csvErr.Column, Message: csvErr.Err.Error(), Err: err}
			}
			return nil, errors.WrapParse(formatStats, name, err)
		}
		line, _ := cr.FieldPos(0)

		fields := make([]string, len(raw))
		for i, f := range raw {
			fields[i] = strings.TrimSpace(f)
		}

		switch {
		case records.IsHeader(fields):
			stats.Headers = append(stats.Headers, records.HeaderFromFields(fields))
		case records.IsSummary(fields):
			sum, err := records.SummaryFromFields(fields)
			if err != nil {
				malformed(logger, line, fields, err)
				skipped++
				continue
			}
			stats.Summaries = append(stats.Summaries, sum)
		case isRecord(fields):
			rec, err := newRecord(sourceOf(fields), recordFields(fields), today)
			if err != nil {
				malformed(logger, line, fields, err)
				skipped++
				continue
			}
			stats.Add(rec)
		default:
			malformed(logger, line, fields, nil)
			skipped++
		}
	}

	logger.Debug().
		Int("records", stats.Len()).
		Int("skipped", skipped).
		Msg("Parsed delegated stats")
	return stats, nil
}

// ParseSwaps reads a whitespace separated swap list:
// start address, end address, size, date and registry per line.
func (p *Parser) ParseSwaps(ctx context.Context, r io.Reader, name string) (*records.Stats, error) {
	logger := logging.FromContext(logging.WithSource(ctx, name))
	today := p.today()

	stats := records.NewStats(name)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 5 {
			malformed(logger, line, fields, nil)
			continue
		}
		rec, err := records.New(records.SourceSwap, fields[4], records.DefaultCountryCode, records.KindIPv4,
			fields[0], fields[2], today, "available", "")
		if err != nil {
			malformed(logger, line, fields, err)
			continue
		}
		stats.Add(rec)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.WrapParse(formatSwaps, name, err)
	}

	logger.Debug().Int("records", stats.Len()).Msg("Parsed swaps")
	return stats, nil
}

func isRecord(fields []string) bool {
	if len(fields) <= 6 {
		return false
	}
	_, ok := records.ParseKind(fields[2])
	return ok
}

func newRecord(src records.Source, fields []string, today string) (*records.Record, error) {
	registry := fields[0]
	date := fields[5]
	if date == "" {
		date = today
	}
	var regID string
	var ext []string
	if len(fields) > 7 {
		regID = fields[7]
		ext = append(ext, fields[8:]...)
	}
	kind, _ := records.ParseKind(fields[2])
	return records.New(src, registry, fields[1], kind, fields[3], fields[4], date,
		NormalizeStatus(registry, fields[6]), regID, ext...)
}

// NormalizeStatus maps registry specific status spellings onto the merged vocabulary.
func NormalizeStatus(registry, status string) string {
	switch strings.ToLower(status) {
	case "allocated", "assigned", "legacy":
		return "assigned"
	case "available":
		if registry == "iana" {
			return "ianapool"
		}
		return "available"
	case "reserved":
		if registry == "iana" {
			return "ietf"
		}
		return "reserved"
	}
	return status
}

func malformed(logger *zerolog.Logger, line int, fields []string, err error) {
	ev := logger.Warn().Int("line", line).Str("content", strings.Join(fields, "|"))
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("Malformed line")
}
