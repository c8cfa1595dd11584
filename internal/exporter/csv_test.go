package exporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churnlab/internal/classifier"
	"churnlab/internal/config"
	"churnlab/internal/features"
)

func setupTestEnv(t *testing.T) (*CSVWriter, string) {
	t.Helper()

	tempDir := t.TempDir()
	writer := NewCSVWriter(&config.Paths{
		BaseDir:    tempDir,
		DataDir:    filepath.Join(tempDir, "data"),
		ReportsDir: filepath.Join(tempDir, "reports"),
	})
	return writer, tempDir
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(content)), "\n")
}

func TestNewCSVWriter(t *testing.T) {
	paths := &config.Paths{}
	writer := NewCSVWriter(paths)

	assert.NotNil(t, writer)
	assert.Equal(t, paths, writer.paths)
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	tests := []struct {
		name     string
		filePath string
		options  WriteOptions
		validate func(t *testing.T, filePath string)
	}{
		{
			name:     "basic write with headers",
			filePath: "test_basic.csv",
			options: WriteOptions{
				Headers: []string{"id", "churn"},
				Records: [][]string{{"a1", "0"}, {"b2", "1"}},
			},
			validate: func(t *testing.T, filePath string) {
				lines := readLines(t, filePath)
				assert.Equal(t, []string{"id,churn", "a1,0", "b2,1"}, lines)
			},
		},
		{
			name:     "write with BOM prefix",
			filePath: "test_bom.csv",
			options: WriteOptions{
				Headers:   []string{"feature", "importance"},
				Records:   [][]string{{"margin_net_pow_ele", "0.25"}},
				BOMPrefix: true,
			},
			validate: func(t *testing.T, filePath string) {
				content, err := os.ReadFile(filePath)
				require.NoError(t, err)
				assert.True(t, bytes.HasPrefix(content, utf8BOM))
				assert.Equal(t, "feature,importance\nmargin_net_pow_ele,0.25\n", string(content[3:]))
			},
		},
		{
			name:     "quoted fields",
			filePath: "test_quotes.csv",
			options: WriteOptions{
				Headers: []string{"channel"},
				Records: [][]string{{"a, \"b\""}},
			},
			validate: func(t *testing.T, filePath string) {
				f, err := os.Open(filePath)
				require.NoError(t, err)
				defer f.Close()
				records, err := csv.NewReader(f).ReadAll()
				require.NoError(t, err)
				assert.Equal(t, `a, "b"`, records[1][0])
			},
		},
		{
			name:     "empty records",
			filePath: "test_empty.csv",
			options:  WriteOptions{Headers: []string{"Col1", "Col2"}},
			validate: func(t *testing.T, filePath string) {
				assert.Equal(t, []string{"Col1,Col2"}, readLines(t, filePath))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, writer.WriteCSV(tt.filePath, tt.options))
			tt.validate(t, filepath.Join(tempDir, "reports", tt.filePath))
		})
	}
}

func TestCSVWriter_AppendToCSV(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	require.NoError(t, writer.WriteSimpleCSV("runs.csv", []string{"run", "accuracy"}, [][]string{{"1", "0.9"}}))
	require.NoError(t, writer.AppendToCSV("runs.csv", [][]string{{"2", "0.8"}}))

	lines := readLines(t, filepath.Join(tempDir, "reports", "runs.csv"))
	assert.Equal(t, []string{"run,accuracy", "1,0.9", "2,0.8"}, lines)
}

func TestCSVWriter_ResolvePath(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	tests := []struct {
		in   string
		want string
	}{
		{"importance.csv", filepath.Join(tempDir, "reports", "importance.csv")},
		{"data/transformed.csv", filepath.Join(tempDir, "data", "transformed.csv")},
		{"nested/out.csv", filepath.Join(tempDir, "reports", "nested", "out.csv")},
		{filepath.Join(tempDir, "abs.csv"), filepath.Join(tempDir, "abs.csv")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, writer.resolvePath(tt.in))
		})
	}
}

func TestCSVWriter_WriteMatrix(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	m := &features.Matrix{
		IDs:     []string{"c1", "c2"},
		Columns: []string{"cons_12m", "has_gas", features.LabelColumn},
		Rows: [][]float64{
			{4.25, 1, 0},
			{math.NaN(), 0, 1},
		},
	}
	require.NoError(t, writer.WriteMatrix("data/transformed.csv", m))

	lines := readLines(t, filepath.Join(tempDir, "data", "transformed.csv"))
	assert.Equal(t, []string{
		"id,cons_12m,has_gas,churn",
		"c1,4.25,1,0",
		"c2,,0,1",
	}, lines)
}

func TestStreamWriter(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	stream, err := writer.CreateStreamWriter("stream.csv", []string{"a", "b"}, true)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		require.NoError(t, stream.WriteRecord([]string{formatInt(i), formatInt(i * i)}))
	}
	assert.Equal(t, 100, stream.Rows())
	require.NoError(t, stream.Close())

	content, err := os.ReadFile(filepath.Join(tempDir, "reports", "stream.csv"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(content, utf8BOM))
	lines := strings.Split(strings.TrimSpace(string(content[3:])), "\n")
	assert.Len(t, lines, 101)
	assert.Equal(t, "99,9801", lines[100])
}

func TestCSVWriter_WriteImportance(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	ranking := []classifier.FeatureScore{
		{Name: "has_gas", Score: 0.1},
		{Name: "tenure", Score: 0.3},
		{Name: "margin_net_pow_ele", Score: 0.6},
	}
	require.NoError(t, writer.WriteImportance("importance.csv", ranking))

	lines := readLines(t, filepath.Join(tempDir, "reports", "importance.csv"))
	assert.Equal(t, []string{
		"rank,feature,importance",
		"1,margin_net_pow_ele,0.600000",
		"2,tenure,0.300000",
		"3,has_gas,0.100000",
	}, lines)

	top := TopFeatures(ranking, 2)
	assert.Equal(t, []string{"margin_net_pow_ele", "tenure"}, []string{top[0].Name, top[1].Name})
	assert.Len(t, TopFeatures(ranking, 10), 3)
}

func TestCSVWriter_WriteSummary(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	summary := &RunSummary{
		RunID:     "run-1",
		Customers: 20,
		Trees:     10,
		Evaluation: &classifier.Evaluation{
			Confusion: classifier.Confusion{TP: 7, FP: 3, FN: 2, TN: 8},
			Accuracy:  0.75,
			Precision: 0.7,
			Recall:    7.0 / 9.0,
		},
	}
	require.NoError(t, writer.WriteSummary("evaluation.json", summary))

	data, err := os.ReadFile(filepath.Join(tempDir, "reports", "evaluation.json"))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	eval := decoded["evaluation"].(map[string]interface{})
	assert.Equal(t, 0.75, eval["accuracy"])
	confusion := eval["confusion"].(map[string]interface{})
	assert.Equal(t, 7.0, confusion["true_positives"])
	assert.NotContains(t, decoded, "workbook_path")
}

func TestCSVWriter_ErrorScenarios(t *testing.T) {
	writer, tempDir := setupTestEnv(t)

	blocker := filepath.Join(tempDir, "reports")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0644))

	assert.Error(t, writer.WriteSimpleCSV("x.csv", []string{"a"}, nil))
	_, err := writer.CreateStreamWriter("x.csv", nil, false)
	assert.Error(t, err)
	assert.Error(t, writer.WriteSummary("x.json", &RunSummary{}))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "0.123457", formatScore(0.1234567))
	assert.Equal(t, "", formatScore(math.NaN()))
	assert.Equal(t, "42", formatInt(42))
}
