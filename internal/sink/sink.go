// Package sink defines the stores a transfer writes datasets into.
//
// Backends register a Factory under a kind name from their init function;
// New builds the backend selected by Config.Kind. Import the backend
// packages for their side effects:
//
//	import _ "github.com/JonMunkholm/sheetbridge/internal/sink/powerbi"
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/sheetbridge/internal/dataset"
)

// Sink creates datasets and appends rows to their tables.
type Sink interface {
	// CreateDataset creates the dataset described by ds (rows are ignored)
	// and returns the identifier assigned by the store.
	CreateDataset(ctx context.Context, ds dataset.Dataset) (string, error)
	// AppendRows appends rows to a table of an existing dataset.
	AppendRows(ctx context.Context, datasetID, table string, rows []dataset.Row) error
}

// Truncater is implemented by sinks that can delete all rows of a table.
type Truncater interface {
	DeleteRows(ctx context.Context, datasetID, table string) error
}

// Push operations.
const (
	OpCreate = "create dataset"
	OpAppend = "append rows"
	OpDelete = "delete rows"
)

// PushError is a write rejected by the store.
type PushError struct {
	Op        string
	DatasetID string
	Table     string
	Status    int // HTTP status when the store speaks HTTP, otherwise 0
	Err       error
}

func (e *PushError) Error() string {
	msg := e.Op
	if e.DatasetID != "" {
		msg += " " + e.DatasetID
	}
	if e.Table != "" {
		msg += "/" + e.Table
	}
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	return msg + ": " + e.Err.Error()
}

func (e *PushError) Unwrap() error {
	return e.Err
}

// PowerBIConfig holds the settings of the Power BI backend.
type PowerBIConfig struct {
	APIURL            string
	AuthURL           string
	ClientID          string
	ClientSecret      string
	Scopes            []string
	Group             string
	RetentionPolicy   string
	RowsPerRequest    int
	RequestsPerMinute int
	MaxRetries        int
	RetryBase         time.Duration
}

// Config selects and configures a backend.
type Config struct {
	Kind     string
	DSN      string // postgres URL or sqlite file
	PowerBI  PowerBIConfig
	Logger   *slog.Logger
	MaxConns int32 // postgres pool size, 0 for the driver default
}

// Factory builds a backend.
type Factory func(ctx context.Context, cfg Config) (Sink, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// Register makes a backend available under kind.
// Panics on an empty kind, a nil factory or a duplicate kind.
func Register(kind string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()

	if kind == "" {
		panic("sink: Register called with empty kind")
	}
	if f == nil {
		panic("sink: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("sink: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// Kinds returns the registered backend kinds, sorted.
func Kinds() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// New builds the backend registered under cfg.Kind.
func New(ctx context.Context, cfg Config) (Sink, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("sink: missing kind")
	}

	factoriesMu.RLock()
	f := factories[cfg.Kind]
	factoriesMu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported sink kind=%s (registered: %v)", cfg.Kind, Kinds())
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return f(ctx, cfg)
}
