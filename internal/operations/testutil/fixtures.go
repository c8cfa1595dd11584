package testutil

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"churnlab/internal/dataset"
)

// CustomerHeader returns the customer table header
func CustomerHeader() []string {
	header := []string{
		dataset.ColID, dataset.ColChannelSales, dataset.ColHasGas, dataset.ColOriginUp, dataset.ColChurn,
		dataset.ColDateActiv, dataset.ColDateEnd, dataset.ColDateModifProd, dataset.ColDateRenewal,
	}
	return append(header, dataset.NumericColumns()...)
}

// CustomerRows returns n customers alternating between retained and
// churned. Every numeric column separates the two groups.
func CustomerRows(n int) [][]string {
	numeric := len(dataset.NumericColumns())
	rows := make([][]string, n)
	for i := range rows {
		churn := i % 2
		gas := "f"
		if i%3 == 0 {
			gas = "t"
		}
		row := []string{
			CustomerID(i),
			"foosdfpfkusacimwkcsosbicdxkicaua",
			gas,
			"kamkkxfxxuwbdslkwifmmcsiusiuosws",
			fmt.Sprint(churn),
			"2012-03-01", "2016-09-01", "2014-03-01", "2015-09-01",
		}
		for j := 0; j < numeric; j++ {
			v := 10 + float64(i%5) + float64(churn)*200
			row = append(row, fmt.Sprintf("%g", v))
		}
		rows[i] = row
	}
	return rows
}

// CustomerID names the i-th fixture customer
func CustomerID(i int) string {
	return fmt.Sprintf("cust%03d", i)
}

// PriceHeader returns the price table header
func PriceHeader() []string {
	return append([]string{dataset.ColID, dataset.ColPriceDate}, dataset.PriceComponents...)
}

// PriceRows returns a monthly 2015 price history for each id
func PriceRows(ids ...string) [][]string {
	var rows [][]string
	for k, id := range ids {
		for m := 1; m <= 12; m++ {
			row := []string{id, fmt.Sprintf("2015-%02d-01", m)}
			for c := range dataset.PriceComponents {
				v := 0.1 + float64(c)*0.01 + float64(m)*0.001 + float64(k%2)*0.05
				row = append(row, fmt.Sprintf("%g", v))
			}
			rows = append(rows, row)
		}
	}
	return rows
}

// WriteCSV writes a table to path, creating parent directories
func WriteCSV(t *testing.T, path string, header []string, rows [][]string) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	require.NoError(t, w.Write(header))
	require.NoError(t, w.WriteAll(rows))
	return path
}

// ChurnTables writes n customers with price histories, plus one customer
// without any, under dataDir. It returns the customer and price table paths.
func ChurnTables(t *testing.T, dataDir, customerFile, priceFile string, n int) (string, string) {
	t.Helper()

	customers := CustomerRows(n)
	ids := make([]string, n)
	for i := range ids {
		ids[i] = CustomerID(i)
	}
	orphan := CustomerRows(1)[0]
	orphan[0] = "no-prices"
	customers = append(customers, orphan)

	return WriteCSV(t, filepath.Join(dataDir, customerFile), CustomerHeader(), customers),
		WriteCSV(t, filepath.Join(dataDir, priceFile), PriceHeader(), PriceRows(ids...))
}
