package sqlite

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
)

// Params holds SQLite-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// JournalMode: "wal" (default), "delete", "truncate", "memory"
	JournalMode string `mapstructure:"journal_mode"`

	// Synchronous: "normal" (default), "full", "off"
	Synchronous string `mapstructure:"synchronous"`

	// BusyTimeout is how long the driver waits on a locked file before
	// reporting SQLITE_BUSY.
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`

	// ForeignKeys enforces REFERENCES clauses (default true)
	ForeignKeys *bool `mapstructure:"foreign_keys"`

	// CacheSize in pages, or KiB when negative (0 keeps the driver default)
	CacheSize int `mapstructure:"cache_size"`

	// Pragmas are applied verbatim on every new connection.
	Pragmas map[string]string `mapstructure:"pragmas"`
}

// DefaultBusyTimeout is used when Params.BusyTimeout is unset.
const DefaultBusyTimeout = 5 * time.Second

// ParseParams decodes raw adapter params. Durations accept Go syntax
// ("250ms") or a bare number of milliseconds.
func ParseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if len(raw) == 0 {
		return p, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			millisHook,
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build params decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid sqlite params: %w", err)
	}
	return p, nil
}

var durationType = reflect.TypeOf(time.Duration(0))

// millisHook turns numeric durations into milliseconds.
func millisHook(_, to reflect.Type, data any) (any, error) {
	if to != durationType {
		return data, nil
	}
	switch v := data.(type) {
	case int:
		return time.Duration(v) * time.Millisecond, nil
	case int64:
		return time.Duration(v) * time.Millisecond, nil
	case float64:
		return time.Duration(v * float64(time.Millisecond)), nil
	}
	return data, nil
}

// pragmas returns the ordered pragma list applied to each connection.
func (p *Params) pragmas() []string {
	journal := strings.ToUpper(p.JournalMode)
	if journal == "" {
		journal = "WAL"
	}
	sync := strings.ToUpper(p.Synchronous)
	if sync == "" {
		sync = "NORMAL"
	}
	busy := p.BusyTimeout
	if busy <= 0 {
		busy = DefaultBusyTimeout
	}
	fk := 1
	if p.ForeignKeys != nil && !*p.ForeignKeys {
		fk = 0
	}

	out := []string{
		fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()),
		fmt.Sprintf("foreign_keys(%d)", fk),
		fmt.Sprintf("journal_mode(%s)", journal),
		fmt.Sprintf("synchronous(%s)", sync),
	}
	if p.CacheSize != 0 {
		out = append(out, fmt.Sprintf("cache_size(%d)", p.CacheSize))
	}

	names := make([]string, 0, len(p.Pragmas))
	for name := range p.Pragmas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out = append(out, fmt.Sprintf("%s(%s)", name, p.Pragmas[name]))
	}
	return out
}

// buildDSN renders a modernc.org/sqlite DSN for path.
func buildDSN(path string, p *Params, options map[string]string) string {
	q := url.Values{}
	for _, pragma := range p.pragmas() {
		q.Add("_pragma", pragma)
	}
	for k, v := range options {
		q.Set(k, v)
	}
	return path + "?" + q.Encode()
}
