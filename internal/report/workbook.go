package report

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	apperrors "churnlab/internal/errors"
)

// IndexSheet lists every chart in the workbook
const IndexSheet = "Charts"

const maxSheetName = 31

// Workbook is a Reporter that renders each chart as a worksheet holding the
// chart data plus a native Excel chart drawn from it
type Workbook struct {
	mu     sync.Mutex
	file   *excelize.File
	sheets map[string]bool
	next   int
	logger *slog.Logger
}

// NewWorkbook creates an empty diagnostics workbook
func NewWorkbook(logger *slog.Logger) (*Workbook, error) {
	if logger == nil {
		logger = slog.Default()
	}
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", IndexSheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetSheetRow(IndexSheet, "A1", &[]interface{}{"Sheet", "Title", "Kind"}); err != nil {
		f.Close()
		return nil, err
	}
	return &Workbook{
		file:   f,
		sheets: map[string]bool{IndexSheet: true},
		next:   2,
		logger: logger,
	}, nil
}

// Record writes spec to its own sheet and draws it
func (w *Workbook) Record(ctx context.Context, spec ChartSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	sheet := w.sheetName(spec.Name)
	if _, err := w.file.NewSheet(sheet); err != nil {
		return fmt.Errorf("chart %s: %w", spec.Name, err)
	}
	w.sheets[sheet] = true

	if err := w.writeData(sheet, spec); err != nil {
		return fmt.Errorf("chart %s: %w", spec.Name, err)
	}
	chart, err := buildChart(sheet, spec)
	if err != nil {
		return fmt.Errorf("chart %s: %w", spec.Name, err)
	}
	anchor, _ := excelize.CoordinatesToCellName(len(spec.Series)+3, 2)
	if err := w.file.AddChart(sheet, anchor, chart); err != nil {
		return fmt.Errorf("chart %s: %w", spec.Name, err)
	}

	cell, _ := excelize.CoordinatesToCellName(1, w.next)
	if err := w.file.SetSheetRow(IndexSheet, cell, &[]interface{}{sheet, spec.Title, string(spec.Kind)}); err != nil {
		return fmt.Errorf("chart %s: %w", spec.Name, err)
	}
	w.next++

	w.logger.DebugContext(ctx, "chart recorded",
		slog.String("chart", spec.Name),
		slog.String("sheet", sheet),
		slog.Int("categories", len(spec.Categories)))
	return nil
}

// Len returns the number of charts recorded
func (w *Workbook) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.next - 2
}

// Save writes the workbook to path, creating parent directories
func (w *Workbook) Save(path string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return apperrors.NewStorageError("failed to create report directory", err).WithContext("path", path)
	}
	if err := w.file.SaveAs(path); err != nil {
		return apperrors.NewStorageError("failed to save diagnostics workbook", err).WithContext("path", path)
	}
	return nil
}

// Close releases the workbook
func (w *Workbook) Close() error {
	return w.file.Close()
}

func (w *Workbook) writeData(sheet string, spec ChartSpec) error {
	label := spec.CategoryLabel
	if label == "" {
		label = "category"
	}
	header := make([]interface{}, 0, len(spec.Series)+1)
	header = append(header, label)
	for _, s := range spec.Series {
		header = append(header, s.Name)
	}
	if err := w.file.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i, category := range spec.Categories {
		row := make([]interface{}, 0, len(spec.Series)+1)
		row = append(row, category)
		for _, s := range spec.Series {
			if v := s.Values[i]; math.IsNaN(v) || math.IsInf(v, 0) {
				row = append(row, nil)
			} else {
				row = append(row, v)
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := w.file.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func buildChart(sheet string, spec ChartSpec) (*excelize.Chart, error) {
	last := len(spec.Categories) + 1
	ref := func(col, fromRow, toRow int) (string, error) {
		from, err := excelize.CoordinatesToCellName(col, fromRow, true)
		if err != nil {
			return "", err
		}
		if fromRow == toRow {
			return fmt.Sprintf("'%s'!%s", sheet, from), nil
		}
		to, err := excelize.CoordinatesToCellName(col, toRow, true)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("'%s'!%s:%s", sheet, from, to), nil
	}

	categories, err := ref(1, 2, last)
	if err != nil {
		return nil, err
	}
	series := make([]excelize.ChartSeries, len(spec.Series))
	for j := range spec.Series {
		name, err := ref(j+2, 1, 1)
		if err != nil {
			return nil, err
		}
		values, err := ref(j+2, 2, last)
		if err != nil {
			return nil, err
		}
		series[j] = excelize.ChartSeries{Name: name, Categories: categories, Values: values}
	}

	return &excelize.Chart{
		Type:      chartType(spec.Kind),
		Series:    series,
		Title:     []excelize.RichTextRun{{Text: spec.Title}},
		Legend:    excelize.ChartLegend{Position: "bottom"},
		Dimension: excelize.ChartDimension{Width: 720, Height: 420},
		XAxis:     excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: spec.CategoryLabel}}},
		YAxis: excelize.ChartAxis{
			MajorGridLines: true,
			Title:          []excelize.RichTextRun{{Text: spec.ValueLabel}},
		},
	}, nil
}

func chartType(kind ChartKind) excelize.ChartType {
	switch kind {
	case StackedBar:
		return excelize.BarStacked
	case Column:
		return excelize.Col
	case Bar:
		return excelize.Bar
	default:
		return excelize.ColStacked
	}
}

// sheetName derives a unique, Excel-safe sheet name from a chart name
func (w *Workbook) sheetName(name string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']', '\'':
			return '_'
		}
		return r
	}, name)
	clean = truncateRunes(clean, maxSheetName)

	candidate := clean
	for i := 2; w.sheets[candidate]; i++ {
		suffix := fmt.Sprintf("~%d", i)
		candidate = truncateRunes(clean, maxSheetName-len(suffix)) + suffix
	}
	return candidate
}

// truncateRunes cuts s to at most n runes, never inside a multi-byte rune
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
