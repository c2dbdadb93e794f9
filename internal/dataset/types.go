package dataset

import "strconv"

// DataType is the column type understood by push datasets.
type DataType string

const (
	Int64    DataType = "Int64"
	Double   DataType = "Double"
	Boolean  DataType = "Boolean"
	DateTime DataType = "DateTime"
	String   DataType = "String"
	Decimal  DataType = "Decimal"
	Variant  DataType = "Variant"
)

// Valid reports whether t is one of the known data types.
func (t DataType) Valid() bool {
	switch t {
	case Int64, Double, Boolean, DateTime, String, Decimal, Variant:
		return true
	}
	return false
}

// InferDataType guesses a column type from a sample cell value.
// Anything that parses as a number is Decimal, everything else is String.
func InferDataType(sample string) DataType {
	if sample == "" {
		return String
	}
	if _, err := strconv.ParseFloat(sample, 64); err == nil {
		return Decimal
	}
	return String
}

// SummarizeBy is the default aggregation of a column. The zero value means unset.
type SummarizeBy string

const (
	SummarizeDefault       SummarizeBy = "default"
	SummarizeNone          SummarizeBy = "none"
	SummarizeSum           SummarizeBy = "sum"
	SummarizeMin           SummarizeBy = "min"
	SummarizeMax           SummarizeBy = "max"
	SummarizeCount         SummarizeBy = "count"
	SummarizeAverage       SummarizeBy = "average"
	SummarizeDistinctCount SummarizeBy = "distinctCount"
)

// Valid reports whether s is a known aggregation. The zero value is valid.
func (s SummarizeBy) Valid() bool {
	switch s {
	case "", SummarizeDefault, SummarizeNone, SummarizeSum, SummarizeMin,
		SummarizeMax, SummarizeCount, SummarizeAverage, SummarizeDistinctCount:
		return true
	}
	return false
}

// DataSourceType identifies the kind of a dataset data source.
type DataSourceType string

const (
	SourceAnalysisServices DataSourceType = "AnalysisServices"
	SourceSQL              DataSourceType = "Sql"
	SourceFile             DataSourceType = "File"
	SourceOData            DataSourceType = "OData"
	SourceOracle           DataSourceType = "Oracle"
	SourceSAPHana          DataSourceType = "SAPHana"
	SourceSharePointList   DataSourceType = "SharePointList"
	SourceWeb              DataSourceType = "Web"
	SourceGoogleSheets     DataSourceType = "GoogleSheets"
)

// DefaultMode is the dataset mode sent on creation.
type DefaultMode string

const (
	ModeAsAzure       DefaultMode = "AsAzure"
	ModeAsOnPrem      DefaultMode = "AsOnPrem"
	ModePush          DefaultMode = "Push"
	ModePushStreaming DefaultMode = "PushStreaming"
	ModeStreaming     DefaultMode = "Streaming"
)
