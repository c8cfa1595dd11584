// Package report turns pipeline data into chart specifications and renders
// them. Producers build plain ChartSpec values; a Reporter decides what to do
// with them. Workbook draws each chart natively in an .xlsx file, Collector
// keeps them in memory and Nop discards them for headless runs.
package report
