package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "churnlab/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// LoadCustomers reads the customer table from a CSV file
func LoadCustomers(csvPath string) ([]CustomerRecord, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, apperrors.NewInputFormatError("open customer table", err).
			WithContext("path", csvPath)
	}
	defer file.Close()

	return ReadCustomers(file)
}

// LoadPrices reads the price table from a CSV file
func LoadPrices(csvPath string) ([]PriceObservation, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, apperrors.NewInputFormatError("open price table", err).
			WithContext("path", csvPath)
	}
	defer file.Close()

	return ReadPrices(file)
}

// ReadCustomers parses a customer table. Columns are addressed by header
// name; unknown columns are ignored. Any unparseable cell aborts the read.
func ReadCustomers(r io.Reader) ([]CustomerRecord, error) {
	reader, header, err := openTable(r)
	if err != nil {
		return nil, err
	}

	required := []string{
		ColID, ColChannelSales, ColHasGas, ColOriginUp, ColChurn,
		ColDateActiv, ColDateEnd, ColDateModifProd, ColDateRenewal,
	}
	required = append(required, NumericColumns()...)
	if err := header.require(required...); err != nil {
		return nil, err
	}

	var customers []CustomerRecord
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewInputFormatError("read customer table", err).
				WithRecord(lineRef(line))
		}

		c, err := parseCustomer(header, record, line)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}

	slog.Debug("customer table loaded", slog.Int("records", len(customers)))
	return customers, nil
}

func parseCustomer(h columnIndex, record []string, line int) (CustomerRecord, error) {
	c := CustomerRecord{
		ID:           strings.TrimSpace(h.get(record, ColID)),
		ChannelSales: strings.TrimSpace(h.get(record, ColChannelSales)),
		HasGas:       strings.TrimSpace(h.get(record, ColHasGas)),
		OriginUp:     strings.TrimSpace(h.get(record, ColOriginUp)),
	}
	if c.ID == "" {
		return c, apperrors.NewInputFormatError("empty customer id", nil).
			WithRecord(lineRef(line)).WithColumn(ColID)
	}

	churn := strings.TrimSpace(h.get(record, ColChurn))
	switch churn {
	case "0":
		c.Churn = 0
	case "1":
		c.Churn = 1
	default:
		return c, apperrors.NewInputFormatError(fmt.Sprintf("churn label %q is not 0 or 1", churn), nil).
			WithRecord(c.ID).WithColumn(ColChurn)
	}

	dates := []struct {
		col string
		dst *time.Time
	}{
		{ColDateActiv, &c.DateActiv},
		{ColDateEnd, &c.DateEnd},
		{ColDateModifProd, &c.DateModifProd},
		{ColDateRenewal, &c.DateRenewal},
	}
	for _, d := range dates {
		raw := strings.TrimSpace(h.get(record, d.col))
		if raw == "" {
			continue
		}
		t, err := parseDate(raw)
		if err != nil {
			return c, apperrors.NewInputFormatError("unparseable date", err).
				WithRecord(c.ID).WithColumn(d.col)
		}
		*d.dst = t
	}

	for _, f := range c.NumericFields() {
		v, err := parseFloat(h.get(record, f.Name))
		if err != nil {
			return c, apperrors.NewInputFormatError("unparseable number", err).
				WithRecord(c.ID).WithColumn(f.Name)
		}
		*f.Value = v
	}

	return c, nil
}

// ReadPrices parses a price table. Every row must carry an id and a date;
// empty price cells are kept as NaN.
func ReadPrices(r io.Reader) ([]PriceObservation, error) {
	reader, header, err := openTable(r)
	if err != nil {
		return nil, err
	}

	required := append([]string{ColID, ColPriceDate}, PriceComponents...)
	if err := header.require(required...); err != nil {
		return nil, err
	}

	var observations []PriceObservation
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.NewInputFormatError("read price table", err).
				WithRecord(lineRef(line))
		}

		obs := PriceObservation{ID: strings.TrimSpace(header.get(record, ColID))}
		if obs.ID == "" {
			return nil, apperrors.NewInputFormatError("empty customer id", nil).
				WithRecord(lineRef(line)).WithColumn(ColID)
		}

		obs.Date, err = parseDate(strings.TrimSpace(header.get(record, ColPriceDate)))
		if err != nil {
			return nil, apperrors.NewInputFormatError("unparseable date", err).
				WithRecord(obs.ID).WithColumn(ColPriceDate).WithContext("line", line)
		}

		for i, col := range PriceComponents {
			v, err := parseFloat(header.get(record, col))
			if err != nil {
				return nil, apperrors.NewInputFormatError("unparseable number", err).
					WithRecord(obs.ID).WithColumn(col).WithContext("line", line)
			}
			obs.Prices[i] = v
		}

		observations = append(observations, obs)
	}

	slog.Debug("price table loaded", slog.Int("observations", len(observations)))
	return observations, nil
}

// columnIndex maps header names to record positions
type columnIndex map[string]int

func openTable(r io.Reader) (*csv.Reader, columnIndex, error) {
	// FieldsPerRecord stays 0, so every row must match the header width
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, apperrors.NewInputFormatError("empty CSV file", nil)
	}
	if err != nil {
		return nil, nil, apperrors.NewInputFormatError("read header", err)
	}

	idx := make(columnIndex, len(header))
	for i, col := range header {
		if i == 0 {
			col = string(bytes.TrimPrefix([]byte(col), utf8BOM))
		}
		idx[strings.TrimSpace(col)] = i
	}
	return reader, idx, nil
}

func (h columnIndex) require(cols ...string) error {
	for _, col := range cols {
		if _, ok := h[col]; !ok {
			return apperrors.NewInputFormatError("missing required column", nil).WithColumn(col)
		}
	}
	return nil
}

// get returns the cell for col, or "" when the table has no such column
func (h columnIndex) get(record []string, col string) string {
	i, ok := h[col]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

func parseDate(s string) (time.Time, error) {
	// Some exports carry a time component
	if len(s) > len(DateLayout) && (s[len(DateLayout)] == ' ' || s[len(DateLayout)] == 'T') {
		s = s[:len(DateLayout)]
	}
	return time.Parse(DateLayout, s)
}

func parseFloat(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func lineRef(line int) string {
	return fmt.Sprintf("line %d", line)
}
