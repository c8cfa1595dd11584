package report

import (
	"context"
	"fmt"
	"sync"
)

// ChartKind selects how a ChartSpec is drawn
type ChartKind string

const (
	StackedColumn ChartKind = "stacked_column"
	StackedBar    ChartKind = "stacked_bar"
	Column        ChartKind = "column"
	Bar           ChartKind = "bar"
)

// Series is one named run of values, aligned with ChartSpec.Categories
type Series struct {
	Name   string
	Values []float64
}

// ChartSpec describes a chart as plain data. Rendering is left entirely to
// the Reporter.
type ChartSpec struct {
	// Name identifies the chart and must be unique within a run
	Name          string
	Title         string
	Kind          ChartKind
	CategoryLabel string
	ValueLabel    string
	Categories    []string
	Series        []Series
}

// Validate checks that every series lines up with the categories
func (c ChartSpec) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("chart has no name")
	}
	switch c.Kind {
	case StackedColumn, StackedBar, Column, Bar:
	default:
		return fmt.Errorf("chart %s: unknown kind %q", c.Name, c.Kind)
	}
	if len(c.Categories) == 0 {
		return fmt.Errorf("chart %s: no categories", c.Name)
	}
	if len(c.Series) == 0 {
		return fmt.Errorf("chart %s: no series", c.Name)
	}
	for _, s := range c.Series {
		if len(s.Values) != len(c.Categories) {
			return fmt.Errorf("chart %s: series %q has %d values for %d categories",
				c.Name, s.Name, len(s.Values), len(c.Categories))
		}
	}
	return nil
}

// Reporter receives chart specs produced by the pipeline
type Reporter interface {
	Record(ctx context.Context, spec ChartSpec) error
}

// Nop discards every chart
type Nop struct{}

func (Nop) Record(context.Context, ChartSpec) error { return nil }

// Collector keeps recorded charts in memory
type Collector struct {
	mu    sync.Mutex
	specs []ChartSpec
}

// Record validates and stores spec
func (c *Collector) Record(_ context.Context, spec ChartSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.specs = append(c.specs, spec)
	return nil
}

// Specs returns the charts recorded so far
func (c *Collector) Specs() []ChartSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]ChartSpec(nil), c.specs...)
}

// Find returns the chart recorded under name
func (c *Collector) Find(name string) (ChartSpec, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.specs {
		if s.Name == name {
			return s, true
		}
	}
	return ChartSpec{}, false
}
