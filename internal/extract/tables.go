package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/signum/internal/common"
	"github.com/ternarybob/signum/internal/models"
)

// Maximum confidence a table-derived metric can carry. Table structure
// inference is never certain enough for 1.0.
const maxTableConfidence = 0.95

// valueFormat is one recognized numeric cell format, tried in order.
type valueFormat struct {
	name  string
	re    *regexp.Regexp
	boost float64
}

// Ordered: the most specific formats first so "$26.97B" is read as
// billions, not as a bare currency amount.
var valueFormats = []valueFormat{
	{"billions", regexp.MustCompile(`^([+-]?)\s*\$?([\d,]+(?:\.\d+)?)\s*[Bb](?:illion|n)?$`), 0.2},
	{"millions", regexp.MustCompile(`^([+-]?)\s*\$?([\d,]+(?:\.\d+)?)\s*[Mm](?:illion|n)?$`), 0.2},
	{"percentage", regexp.MustCompile(`^([+-]?)\s*([\d,]+(?:\.\d+)?)\s*%$`), 0.2},
	{"percentage_points", regexp.MustCompile(`^([+-]?)\s*([\d,]+(?:\.\d+)?)\s*(?:pp|pts|bps)$`), 0.2},
	{"currency", regexp.MustCompile(`^([+-]?)\s*[\$€£]([\d,]+(?:\.\d+)?)$`), 0.2},
	{"number", regexp.MustCompile(`^([+-]?)\s*([\d,]+(?:\.\d+)?)$`), 0.15},
}

// Cell shapes that count as numeric during column-role detection. Wider
// than valueFormats on purpose: "N/A"-free numeric-ish cells should
// vote for a value column even when parsing later fails.
var numericCell = regexp.MustCompile(`^[+-]?\s*[\$€£]?[\d,]+(?:\.\d+)?\s*(?:%|pp|pts|bps|[MmBbKk](?:illion|n)?)?$`)

// Metric names that raise row confidence when recognized.
var knownMetricKeywords = []string{
	"revenue", "margin", "eps", "earnings", "income", "profit",
	"ebitda", "cash flow", "growth", "debt", "capex", "guidance",
	"sales", "operating", "gross", "net",
}

var (
	comparisonPeriods = map[string]string{"yoy": "YoY", "qoq": "QoQ", "mom": "MoM"}
	quarterPeriodRe   = regexp.MustCompile(`(?i)\bQ([1-4])\s*(20\d{2})?\b`)
	fiscalYearRe      = regexp.MustCompile(`(?i)\bFY\s?(20\d{2})\b`)
	bareYearRe        = regexp.MustCompile(`\b(20\d{2})\b`)
)

// TableExtractor derives financial metric entities from attachment
// tables via structural column-role inference.
type TableExtractor struct {
	cfg    common.ExtractionConfig
	logger arbor.ILogger
}

// NewTableExtractor creates a table extractor.
func NewTableExtractor(cfg common.ExtractionConfig, logger arbor.ILogger) *TableExtractor {
	if cfg.ColumnSampleSize <= 0 {
		cfg.ColumnSampleSize = 10
	}
	if cfg.MinRowConfidence <= 0 {
		cfg.MinRowConfidence = 0.5
	}
	return &TableExtractor{cfg: cfg, logger: logger}
}

// ExtractAttachment runs extraction over every table of one attachment
// result. Tables whose structure cannot be inferred contribute nothing;
// their siblings are unaffected.
func (e *TableExtractor) ExtractAttachment(att models.AttachmentResult) models.ExtractionResult {
	var result models.ExtractionResult

	for i, table := range att.ExtractedData.Tables {
		if table.Error != "" {
			continue
		}
		metrics, confidence, err := e.ExtractTable(i, table)
		if err != nil {
			e.logger.Debug().
				Str("attachment", att.Filename).
				Int("table", i).
				Err(err).
				Msg("Skipping table: structure detection failed")
			continue
		}
		result.Metrics = append(result.Metrics, metrics...)
		if confidence > result.Confidence {
			result.Confidence = confidence
		}
	}

	return result
}

// ExtractTable extracts metrics from one table. Returns the kept
// metrics and the table confidence (mean of kept row confidences).
func (e *TableExtractor) ExtractTable(tableIndex int, table models.Table) ([]models.FinancialMetric, float64, error) {
	metricCol, valueCols, err := e.DetectColumns(table)
	if err != nil {
		return nil, 0, err
	}

	var metrics []models.FinancialMetric
	var confidenceSum float64

	for rowIndex, row := range table.Data {
		name := strings.TrimSpace(row[metricCol])
		if name == "" {
			continue
		}

		for _, col := range valueCols {
			value, format, ok := parseMetricValue(row[col])
			if !ok {
				continue
			}

			confidence := scoreRow(name, format, value)
			if confidence < e.cfg.MinRowConfidence {
				continue
			}

			metrics = append(metrics, models.FinancialMetric{
				MetricType:  classifyMetricName(name),
				MetricValue: value,
				Period:      DerivePeriod(col),
				TableIndex:  tableIndex,
				RowIndex:    rowIndex,
				Evidence: models.Evidence{
					Confidence: confidence,
					Context:    name + " " + col,
				},
			})
			confidenceSum += confidence
		}
	}

	if len(metrics) == 0 {
		return nil, 0, nil
	}
	return metrics, confidenceSum / float64(len(metrics)), nil
}

// DetectColumns infers column roles structurally: the first column whose
// sampled cells are mostly non-numeric text is the metric column; every
// other mostly-numeric column is a value column.
func (e *TableExtractor) DetectColumns(table models.Table) (string, []string, error) {
	if len(table.Data) == 0 {
		return "", nil, fmt.Errorf("table has no rows")
	}

	columns := tableColumns(table)
	sample := len(table.Data)
	if sample > e.cfg.ColumnSampleSize {
		sample = e.cfg.ColumnSampleSize
	}

	metricCol := ""
	var valueCols []string

	for _, col := range columns {
		textCells, numericCells, total := 0, 0, 0
		for _, row := range table.Data[:sample] {
			cell := strings.TrimSpace(row[col])
			if cell == "" {
				continue
			}
			total++
			if numericCell.MatchString(cell) {
				numericCells++
			} else {
				textCells++
			}
		}
		if total == 0 {
			continue
		}

		if metricCol == "" && textCells*2 > total {
			metricCol = col
			continue
		}
		if numericCells*2 > total {
			valueCols = append(valueCols, col)
		}
	}

	if metricCol == "" {
		return "", nil, fmt.Errorf("no text metric column found")
	}
	if len(valueCols) == 0 {
		return "", nil, fmt.Errorf("no numeric value columns found")
	}
	return metricCol, valueCols, nil
}

// tableColumns returns column headers in declared order, falling back
// to sorted first-row keys when the producer did not record order.
func tableColumns(table models.Table) []string {
	if len(table.Columns) > 0 {
		return table.Columns
	}
	columns := make([]string, 0, len(table.Data[0]))
	for col := range table.Data[0] {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}

// parseMetricValue parses one cell against the ordered format set,
// preserving the original sign and unit in the returned string.
func parseMetricValue(raw string) (string, string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", false
	}
	for _, f := range valueFormats {
		if f.re.MatchString(raw) {
			return raw, f.name, true
		}
	}
	return "", "", false
}

// scoreRow computes the row confidence: 0.5 base, +0.2 known metric
// keyword, +0.2 (or +0.15 plain number) recognized format, +0.05
// non-empty value, capped at 0.95.
func scoreRow(name, format, value string) float64 {
	confidence := 0.5

	lower := strings.ToLower(name)
	for _, kw := range knownMetricKeywords {
		if strings.Contains(lower, kw) {
			confidence += 0.2
			break
		}
	}

	for _, f := range valueFormats {
		if f.name == format {
			confidence += f.boost
			break
		}
	}

	if value != "" {
		confidence += 0.05
	}

	if confidence > maxTableConfidence {
		confidence = maxTableConfidence
	}
	return confidence
}

// classifyMetricName normalizes a row label into a metric type. Names
// containing "margin" become title-cased margin metrics, everything
// else passes through cleaned.
func classifyMetricName(name string) string {
	cleaned := strings.Join(strings.Fields(name), " ")
	if strings.Contains(strings.ToLower(cleaned), "margin") {
		return titleCase(cleaned)
	}
	return cleaned
}

// DerivePeriod reads a reporting period out of a value-column header.
// Comparison keywords win, then quarters, then fiscal years, then bare
// years; anything else is "Unknown".
func DerivePeriod(header string) string {
	lower := strings.ToLower(header)
	for kw, canonical := range comparisonPeriods {
		if strings.Contains(lower, kw) {
			return canonical
		}
	}

	if m := quarterPeriodRe.FindStringSubmatch(header); m != nil {
		if m[2] != "" {
			return "Q" + m[1] + " " + m[2]
		}
		return "Q" + m[1]
	}

	if m := fiscalYearRe.FindStringSubmatch(header); m != nil {
		return "FY" + m[1]
	}

	if m := bareYearRe.FindStringSubmatch(header); m != nil {
		return m[1]
	}

	return "Unknown"
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
