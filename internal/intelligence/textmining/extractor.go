// Package textmining derives structured synthesis information from raw page
// text: the experimental section, compound identifiers, physical property
// snippets, and short per-compound context descriptions.
package textmining

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemRoute-Intelligence/pkg/types/route"
)

// Caps bound the extractor's output sizes.
type Caps struct {
	MaxFallbackLines        int
	MaxPhysicalProps        int
	MaxCompoundDescriptions int
	DescriptionMaxChars     int
}

// sectionMatcher is one heading-anchored strategy for locating the
// experimental section.  Matchers are tried in order; the first hit wins.
type sectionMatcher struct {
	name    string
	pattern *regexp.Regexp
}

// The capture runs from the heading to the next blank-line paragraph break
// that starts a capitalized line, or to the end of the corpus.
var sectionMatchers = []sectionMatcher{
	{"experimental", regexp.MustCompile(`(?is)(?:Experimental|Materials and Methods|Methods)(.*?)(?:\n\n[A-Z]|\z)`)},
	{"synthesis", regexp.MustCompile(`(?is)(?:Synthesis|Preparation)(.*?)(?:\n\n[A-Z]|\z)`)},
	{"procedures", regexp.MustCompile(`(?is)(?:General Procedures)(.*?)(?:\n\n[A-Z]|\z)`)},
}

var fallbackKeywords = regexp.MustCompile(`(?i)(synthesized|prepared|compound|reaction|procedure|method|synthesis)`)

var compoundPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)compound\s+(\d+|[A-Z]\d*)`),
	regexp.MustCompile(`(?i)Compounds?\s+(\d+|[A-Z]\d*)`),
	regexp.MustCompile(`(?i)(\d+|[A-Z]\d*)\s*\([^)]+\)`),
	regexp.MustCompile(`(?i)([A-Z]+-\d+)`),
}

// Property cues capture from the cue word to the next blank line or
// capitalized line start.
var propertyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)(m\.p\.:.*?)(?:\n\n|\n[A-Z])`),
	regexp.MustCompile(`(?is)(Tdec.*?)(?:\n\n|\n[A-Z])`),
	regexp.MustCompile(`(?is)(Tpeak.*?)(?:\n\n|\n[A-Z])`),
	regexp.MustCompile(`(?is)(IR.*?)(?:\n\n|\n[A-Z])`),
	regexp.MustCompile(`(?is)(1H NMR.*?)(?:\n\n|\n[A-Z])`),
	regexp.MustCompile(`(?is)(13C NMR.*?)(?:\n\n|\n[A-Z])`),
	regexp.MustCompile(`(?is)(HRMS.*?)(?:\n\n|\n[A-Z])`),
}

// Extractor mines ExtractedTextInfo out of a PageCorpus.
type Extractor struct {
	caps   Caps
	logger logging.Logger
}

// NewExtractor returns an Extractor with the given output caps.
func NewExtractor(caps Caps, logger logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Extractor{caps: caps, logger: logger.Named("textmining")}
}

// Extract never fails: any fault inside the mining logic is captured in the
// returned info's Error field with all other fields left at their defaults.
func (e *Extractor) Extract(corpus *route.PageCorpus) (info *route.ExtractedTextInfo) {
	info = &route.ExtractedTextInfo{
		Compounds:            []string{},
		PhysicalProps:        []string{},
		CompoundDescriptions: map[string]string{},
	}
	if corpus != nil {
		info.SourcePDF = corpus.SourcePDF
		info.TotalPages = corpus.TotalPages
		info.PagesProcessed = corpus.PagesProcessed
	}

	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("text mining failed", logging.Any("panic", rec))
			*info = route.ExtractedTextInfo{
				Compounds:            []string{},
				PhysicalProps:        []string{},
				CompoundDescriptions: map[string]string{},
				SourcePDF:            info.SourcePDF,
				Error:                fmt.Sprintf("text mining failed: %v", rec),
			}
		}
	}()

	if corpus == nil || len(corpus.Pages) == 0 {
		return info
	}

	text := norm.NFC.String(strings.Join(corpus.Pages, "\n\n"))

	info.ExperimentalText = e.findExperimentalText(text)
	info.Compounds = e.findCompounds(text)
	info.PhysicalProps = e.findPhysicalProps(text)
	info.CompoundDescriptions = e.findDescriptions(text, info.Compounds)

	e.logger.Debug("text mining complete",
		logging.Int("compounds", len(info.Compounds)),
		logging.Int("physical_props", len(info.PhysicalProps)),
		logging.Int("experimental_chars", len(info.ExperimentalText)))
	return info
}

func (e *Extractor) findExperimentalText(text string) string {
	for _, m := range sectionMatchers {
		if groups := m.pattern.FindStringSubmatch(text); groups != nil {
			e.logger.Debug("experimental section found", logging.String("matcher", m.name))
			return strings.TrimSpace(groups[1])
		}
	}

	// No heading matched; fall back to collecting keyword-bearing lines so
	// keyword evidence is never lost entirely.
	var hits []string
	for _, line := range strings.Split(text, "\n") {
		if fallbackKeywords.MatchString(line) {
			hits = append(hits, strings.TrimSpace(line))
		}
	}
	if len(hits) == 0 {
		return ""
	}
	e.logger.Debug("using keyword fallback", logging.Int("lines", len(hits)))
	if len(hits) > e.caps.MaxFallbackLines {
		hits = hits[:e.caps.MaxFallbackLines]
	}
	return strings.Join(hits, "\n")
}

func (e *Extractor) findCompounds(text string) []string {
	seen := map[string]struct{}{}
	for _, pattern := range compoundPatterns {
		for _, groups := range pattern.FindAllStringSubmatch(text, -1) {
			id := groups[1]
			// Single-character non-numeric fragments are noise from stray
			// letters in prose.
			if len(id) > 1 || isNumeric(id) {
				seen[id] = struct{}{}
			}
		}
	}

	compounds := make([]string, 0, len(seen))
	for id := range seen {
		compounds = append(compounds, id)
	}
	sortCompounds(compounds)
	return compounds
}

// sortCompounds orders purely numeric identifiers first, by value, then the
// rest lexicographically.
func sortCompounds(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		ni, iNum := parseNumeric(ids[i])
		nj, jNum := parseNumeric(ids[j])
		switch {
		case iNum && jNum:
			if ni != nj {
				return ni < nj
			}
			return ids[i] < ids[j]
		case iNum:
			return true
		case jNum:
			return false
		default:
			return ids[i] < ids[j]
		}
	})
}

func isNumeric(s string) bool {
	_, ok := parseNumeric(s)
	return ok
}

func parseNumeric(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || strings.HasPrefix(s, "-") {
		return 0, false
	}
	return n, true
}

func (e *Extractor) findPhysicalProps(text string) []string {
	var props []string
	for _, pattern := range propertyPatterns {
		// Scan manually and resume at the terminator's start rather than
		// past it: the capital letter ending one snippet may be the cue of
		// the next, and consuming it would drop that snippet.
		pos := 0
		for pos < len(text) {
			m := pattern.FindStringSubmatchIndex(text[pos:])
			if m == nil {
				break
			}
			props = append(props, text[pos+m[2]:pos+m[3]])
			pos += m[3]
		}
	}
	if len(props) > e.caps.MaxPhysicalProps {
		props = props[:e.caps.MaxPhysicalProps]
	}
	if props == nil {
		props = []string{}
	}
	return props
}

// findDescriptions captures the first context window after each identifier's
// first occurrence.  Identifiers are visited in sorted order so repeated runs
// select the same subset.
func (e *Extractor) findDescriptions(text string, compounds []string) map[string]string {
	descriptions := map[string]string{}
	for _, id := range compounds {
		if len(descriptions) >= e.caps.MaxCompoundDescriptions {
			break
		}
		pattern, err := regexp.Compile(`(?is)(` + regexp.QuoteMeta(id) + `.*?)(?:\n\n|\n[A-Z]|\.\s)`)
		if err != nil {
			continue
		}
		groups := pattern.FindStringSubmatch(text)
		if groups == nil {
			continue
		}
		descriptions[id] = truncateRunes(groups[1], e.caps.DescriptionMaxChars)
	}
	return descriptions
}

// truncateRunes bounds s to max characters without splitting a multibyte
// character at the boundary.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
