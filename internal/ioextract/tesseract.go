package ioextract

import (
	"context"
	"regexp"
	"strings"

	"github.com/openherbaria/herbdb/pkg/dwc"
	"github.com/openherbaria/herbdb/pkg/herbdb"
	"github.com/otiai10/gosseract/v2"
)

// tesseract runs local OCR via the Tesseract C library and maps
// labeled lines of the recognized text to Darwin Core terms.
type tesseract struct{}

// NewTesseract creates the Tesseract-backed extractor.
func NewTesseract() herbdb.Extractor {
	return &tesseract{}
}

func (t *tesseract) Name() string { return "tesseract" }

func (t *tesseract) Extract(
	ctx context.Context,
	image []byte,
	params herbdb.ExtractionParams,
) (*herbdb.ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	langs := params.Languages
	if langs == "" {
		langs = "eng"
	}
	if err := client.SetLanguage(strings.Split(langs, "+")...); err != nil {
		return nil, EngineError(t.Name(), err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return nil, EngineError(t.Name(), err)
	}

	// gosseract has no context hook; check cancellation around the
	// blocking call so a timed-out run is at least reported as such.
	text, err := client.Text()
	if err != nil {
		return nil, EngineError(t.Name(), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &herbdb.ExtractionResult{Fields: mapLabelText(text)}, nil
}

// labelPatterns maps label prefixes found on herbarium sheets to
// Darwin Core terms. Matching is case-insensitive on the line prefix.
var labelPatterns = []struct {
	re   *regexp.Regexp
	term dwc.Term
}{
	{regexp.MustCompile(`(?i)^(?:catalog(?:ue)?|accession)\s*(?:no|number|#)?[.:]?\s*(.+)$`), dwc.CatalogNumber},
	{regexp.MustCompile(`(?i)^(?:scientific\s+name|species|det)[.:]?\s*(.+)$`), dwc.ScientificName},
	{regexp.MustCompile(`(?i)^(?:collector|leg|coll)[.:]?\s*(.+)$`), dwc.RecordedBy},
	{regexp.MustCompile(`(?i)^(?:date|collected)[.:]?\s*(.+)$`), dwc.EventDate},
	{regexp.MustCompile(`(?i)^(?:locality|loc)[.:]?\s*(.+)$`), dwc.Locality},
	{regexp.MustCompile(`(?i)^habitat[.:]?\s*(.+)$`), dwc.Habitat},
	{regexp.MustCompile(`(?i)^(?:elevation|alt(?:itude)?)[.:]?\s*(.+)$`), dwc.MinimumElevation},
	{regexp.MustCompile(`(?i)^country[.:]?\s*(.+)$`), dwc.Country},
	{regexp.MustCompile(`(?i)^(?:state|province)[.:]?\s*(.+)$`), dwc.StateProvince},
	{regexp.MustCompile(`(?i)^county[.:]?\s*(.+)$`), dwc.County},
	{regexp.MustCompile(`(?i)^(?:no|number|field\s*no)[.:]?\s*(.+)$`), dwc.RecordNumber},
}

// OCR text carries no per-field confidence; labeled lines get a fixed
// medium confidence, everything else lands in occurrenceRemarks with a
// low one.
const (
	labeledConfidence   = 0.6
	unlabeledConfidence = 0.2
)

func mapLabelText(text string) dwc.FieldMap {
	fields := make(dwc.FieldMap)
	var remarks []string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		term, value := matchLabel(line)
		if term == "" {
			remarks = append(remarks, line)
			continue
		}
		// First labeled occurrence wins; repeats join the remarks.
		if _, ok := fields[term]; ok {
			remarks = append(remarks, line)
			continue
		}
		conf := labeledConfidence
		fields[term] = dwc.Candidate{Value: value, Confidence: &conf}
	}

	if len(remarks) > 0 {
		conf := unlabeledConfidence
		fields[dwc.OccurrenceRemarks] = dwc.Candidate{
			Value:      strings.Join(remarks, " | "),
			Confidence: &conf,
		}
	}
	return fields
}

func matchLabel(line string) (dwc.Term, string) {
	for _, p := range labelPatterns {
		if m := p.re.FindStringSubmatch(line); m != nil {
			value := strings.TrimSpace(m[1])
			if value != "" {
				return p.term, value
			}
		}
	}
	return "", ""
}
