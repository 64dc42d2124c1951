package core

import (
	"encoding/json"
	"time"
)

// Row maps column names to typed scalars.
type Row map[string]any

// Envelope shapes decide which optional fields a Result serializes.
type shape uint8

const (
	shapeNone shape = iota
	shapeRows
	shapeInsert
	shapeAffected
	shapeMessage
)

// Result is the uniform envelope returned by every execution.
type Result struct {
	Success       bool
	Type          string
	ExecutionTime float64 // seconds
	Rows          []Row
	Columns       []string
	Count         int
	RowsAffected  int64
	LastRowID     int64
	Message       string
	Error         string
	Timestamp     time.Time // not serialized

	shape shape
}

// RowsResult builds a select-shaped envelope {rows, columns, count}.
func RowsResult(kind string, columns []string, rows []Row) *Result {
	if rows == nil {
		rows = []Row{}
	}
	if columns == nil {
		columns = []string{}
	}
	return &Result{Success: true, Type: kind, Columns: columns, Rows: rows, Count: len(rows), shape: shapeRows}
}

// InsertResult builds an insert-shaped envelope {lastrowid, rows_affected}.
func InsertResult(lastRowID, affected int64) *Result {
	return &Result{Success: true, Type: string(KindInsert), LastRowID: lastRowID, RowsAffected: affected, shape: shapeInsert}
}

// AffectedResult builds an envelope carrying {rows_affected}.
func AffectedResult(kind string, affected int64) *Result {
	return &Result{Success: true, Type: kind, RowsAffected: affected, shape: shapeAffected}
}

// MessageResult builds an envelope carrying {message}.
func MessageResult(kind, message string) *Result {
	return &Result{Success: true, Type: kind, Message: message, shape: shapeMessage}
}

// ErrorResult builds a failed envelope carrying {error}.
func ErrorResult(kind string, err error) *Result {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &Result{Success: false, Type: kind, Error: msg}
}

// HasRows reports whether the envelope is select-shaped.
func (r *Result) HasRows() bool { return r.shape == shapeRows }

// Stamp records the elapsed time since start and the completion timestamp.
func (r *Result) Stamp(start time.Time) *Result {
	now := time.Now()
	r.ExecutionTime = now.Sub(start).Seconds()
	r.Timestamp = now.UTC()
	return r
}

type envelopeJSON struct {
	Success       bool      `json:"success"`
	Type          string    `json:"type"`
	ExecutionTime float64   `json:"execution_time"`
	Rows          *[]Row    `json:"rows,omitempty"`
	Columns       *[]string `json:"columns,omitempty"`
	Count         *int      `json:"count,omitempty"`
	RowsAffected  *int64    `json:"rows_affected,omitempty"`
	LastRowID     *int64    `json:"lastrowid,omitempty"`
	Message       string    `json:"message,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// MarshalJSON emits only the fields that belong to the envelope's shape.
func (r *Result) MarshalJSON() ([]byte, error) {
	out := envelopeJSON{
		Success:       r.Success,
		Type:          r.Type,
		ExecutionTime: r.ExecutionTime,
		Message:       r.Message,
		Error:         r.Error,
	}
	switch r.shape {
	case shapeRows:
		out.Rows, out.Columns = &r.Rows, &r.Columns
		out.Count = &r.Count
	case shapeInsert:
		out.LastRowID, out.RowsAffected = &r.LastRowID, &r.RowsAffected
	case shapeAffected:
		out.RowsAffected = &r.RowsAffected
	}
	return json.Marshal(out)
}

// TableColumns are the columns of a SHOW TABLES listing.
var TableColumns = []string{"table_name", "row_count", "columns"}

// TablesResult builds the SHOW TABLES envelope.
func TablesResult(tables []TableInfo) *Result {
	rows := make([]Row, len(tables))
	for i, t := range tables {
		rows[i] = Row{"table_name": t.Name, "row_count": t.RowCount, "columns": int64(t.Columns)}
	}
	return RowsResult(string(KindShowTables), TableColumns, rows)
}
