// Package dataset holds the push-dataset entities produced by a transfer run
// and their canonical JSON form.
//
// Entities are plain values assembled through builders. Each one serializes
// itself into an ordered Object; Dataset.Canonical applies Compact to the
// whole tree before it is sent to a store.
package dataset

import (
	"encoding/json"
	"sort"
)

// DataSource describes where a dataset's data came from. DataSourceID and
// GatewayID are assigned by the store.
type DataSource struct {
	Type              DataSourceType
	ConnectionDetails map[string]string
	DataSourceID      string
	GatewayID         string
}

// Serialize implements Serializer. Connection details are written in key order.
func (d DataSource) Serialize() *Object {
	details := NewObject()
	keys := make([]string, 0, len(d.ConnectionDetails))
	for k := range d.ConnectionDetails {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		details.Set(k, d.ConnectionDetails[k])
	}

	obj := NewObject()
	obj.Set("datasourceType", string(d.Type))
	obj.Set("connectionDetails", details)
	obj.Set("dataSourceId", d.DataSourceID)
	obj.Set("gatewayId", d.GatewayID)
	return obj
}

// Dataset is the top-level container handed to a sink.
type Dataset struct {
	Name        string
	Tables      []Table
	DataSources []DataSource
	DefaultMode DefaultMode
}

// RowCount returns the number of rows over all tables.
func (d Dataset) RowCount() int {
	n := 0
	for _, t := range d.Tables {
		n += len(t.Rows)
	}
	return n
}

// Serialize implements Serializer. The result is not compacted.
func (d Dataset) Serialize() *Object {
	tables := make([]any, len(d.Tables))
	for i, t := range d.Tables {
		tables[i] = t.Serialize()
	}
	sources := make([]any, len(d.DataSources))
	for i, s := range d.DataSources {
		sources[i] = s.Serialize()
	}

	obj := NewObject()
	obj.Set("name", d.Name)
	obj.Set("tables", tables)
	obj.Set("datasources", sources)
	obj.Set("defaultMode", string(d.DefaultMode))
	return obj
}

// Canonical returns the compacted serialized form.
func (d Dataset) Canonical() *Object {
	return Canonical(d)
}

// MarshalJSON encodes the canonical form.
func (d Dataset) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Canonical())
}

// Schema returns a copy of d without rows, as sent when creating the dataset.
func (d Dataset) Schema() Dataset {
	out := d
	out.Tables = make([]Table, len(d.Tables))
	for i, t := range d.Tables {
		t.Rows = nil
		out.Tables[i] = t
	}
	return out
}

// Builder assembles a Dataset.
type Builder struct {
	name    string
	tables  []Table
	sources []DataSource
}

// NewBuilder starts a dataset called name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// AddTable appends a table.
func (b *Builder) AddTable(t Table) *Builder {
	b.tables = append(b.tables, t)
	return b
}

// AddDataSource appends a data source descriptor.
func (b *Builder) AddDataSource(ds DataSource) *Builder {
	b.sources = append(b.sources, ds)
	return b
}

// Build returns the dataset in Push mode.
func (b *Builder) Build() Dataset {
	return Dataset{
		Name:        b.name,
		Tables:      append([]Table(nil), b.tables...),
		DataSources: append([]DataSource(nil), b.sources...),
		DefaultMode: ModePush,
	}
}
