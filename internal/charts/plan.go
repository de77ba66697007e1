// Package charts walks the dashboard's fixed chart sequence over a Table and renders
// each chart to SVG.
package charts

import (
	"github.com/KaramelBytes/ecomdash/internal/analysis"
)

// Kind names a chart type.
type Kind string

const (
	KindHistogram  Kind = "histogram"
	KindScatter    Kind = "scatter"
	KindBox        Kind = "boxplot"
	KindGroupedBox Kind = "grouped_boxplot"
	KindHeatmap    Kind = "heatmap"
	KindPairplot   Kind = "pairplot"
	KindBar        Kind = "bar"
)

// Column names the dashboard expects in product data.
const (
	ColRating      = "Rating"
	ColReviewCount = "ReviewCount"
	ColBrand       = "Brand"
	ColCategories  = "Cleaned_Categories"
)

// Spec is one entry of the chart sequence.
type Spec struct {
	Kind    Kind     `json:"kind"`
	Title   string   `json:"title"`
	Columns []string `json:"columns"`
	Bins    int      `json:"bins,omitempty"`
	GroupBy string   `json:"group_by,omitempty"`
	// Limit caps groups (top brands) or bars (top categories).
	Limit int `json:"limit,omitempty"`
}

// Plan returns the chart sequence for t:
//
//  1. Rating histogram, ReviewCount histogram, ReviewCount vs Rating scatter,
//     Rating boxplots for the ten most frequent brands
//  2. a histogram for every numeric column, then a boxplot for every numeric column
//  3. correlation heatmap, pairplot of the first three numeric columns
//  4. the top-20 category bar chart when Cleaned_Categories is present
func Plan(t *analysis.Table) []Spec {
	specs := []Spec{
		{Kind: KindHistogram, Title: "Rating Distribution", Columns: []string{ColRating}, Bins: 20},
		{Kind: KindHistogram, Title: "Review Count Distribution", Columns: []string{ColReviewCount}, Bins: 20},
		{Kind: KindScatter, Title: "Review Count vs Rating", Columns: []string{ColReviewCount, ColRating}},
		{Kind: KindGroupedBox, Title: "Rating by Top 10 Brands", Columns: []string{ColRating}, GroupBy: ColBrand, Limit: 10},
	}
	numeric := t.NumericColumns()
	for _, col := range numeric {
		specs = append(specs, Spec{Kind: KindHistogram, Title: "Histogram of " + col, Columns: []string{col}, Bins: 30})
	}
	for _, col := range numeric {
		specs = append(specs, Spec{Kind: KindBox, Title: "Boxplot of " + col, Columns: []string{col}})
	}
	specs = append(specs, Spec{Kind: KindHeatmap, Title: "Correlation Heatmap", Columns: numeric})
	pair := numeric
	if len(pair) > 3 {
		pair = pair[:3]
	}
	specs = append(specs, Spec{Kind: KindPairplot, Title: "Pairplot of Sample Numeric Columns", Columns: pair})
	if t.HasColumn(ColCategories) {
		specs = append(specs, Spec{Kind: KindBar, Title: "Top 20 Categories by Count", Columns: []string{ColCategories}, Limit: 20})
	}
	return specs
}
