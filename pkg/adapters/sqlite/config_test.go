package sqlite

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	off := false

	tests := []struct {
		name    string
		input   map[string]any
		want    *Params
		wantErr bool
	}{
		{
			name:  "nil params returns empty struct",
			input: nil,
			want:  &Params{},
		},
		{
			name:  "journal and sync modes",
			input: map[string]any{"journal_mode": "delete", "synchronous": "full"},
			want:  &Params{JournalMode: "delete", Synchronous: "full"},
		},
		{
			name:  "busy timeout as duration string",
			input: map[string]any{"busy_timeout": "250ms"},
			want:  &Params{BusyTimeout: 250 * time.Millisecond},
		},
		{
			name:  "busy timeout as milliseconds",
			input: map[string]any{"busy_timeout": 1500},
			want:  &Params{BusyTimeout: 1500 * time.Millisecond},
		},
		{
			name:  "foreign keys disabled",
			input: map[string]any{"foreign_keys": false},
			want:  &Params{ForeignKeys: &off},
		},
		{
			name: "extra pragmas",
			input: map[string]any{
				"pragmas": map[string]any{"temp_store": "memory"},
			},
			want: &Params{Pragmas: map[string]string{"temp_store": "memory"}},
		},
		{
			name:    "unknown key rejected",
			input:   map[string]any{"jornal_mode": "wal"},
			wantErr: true,
		},
		{
			name:    "bad duration rejected",
			input:   map[string]any{"busy_timeout": "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseParams(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParams_Pragmas(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		got := (&Params{}).pragmas()
		assert.Equal(t, []string{
			"busy_timeout(5000)",
			"foreign_keys(1)",
			"journal_mode(WAL)",
			"synchronous(NORMAL)",
		}, got)
	})

	t.Run("overrides and extras sorted", func(t *testing.T) {
		off := false
		p := &Params{
			JournalMode: "delete",
			BusyTimeout: time.Second,
			ForeignKeys: &off,
			CacheSize:   -4000,
			Pragmas:     map[string]string{"temp_store": "memory", "mmap_size": "0"},
		}
		assert.Equal(t, []string{
			"busy_timeout(1000)",
			"foreign_keys(0)",
			"journal_mode(DELETE)",
			"synchronous(NORMAL)",
			"cache_size(-4000)",
			"mmap_size(0)",
			"temp_store(memory)",
		}, p.pragmas())
	})
}

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN("/tmp/x.db", &Params{}, map[string]string{"_txlock": "immediate"})

	path, query, ok := strings.Cut(dsn, "?")
	require.True(t, ok)
	assert.Equal(t, "/tmp/x.db", path)

	q, err := url.ParseQuery(query)
	require.NoError(t, err)
	assert.Len(t, q["_pragma"], 4)
	assert.Contains(t, q["_pragma"], "journal_mode(WAL)")
	assert.Equal(t, "immediate", q.Get("_txlock"))
}
