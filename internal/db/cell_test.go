package db

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestNewCell(t *testing.T) {
	loc := time.FixedZone("CET", 3600)

	tests := []struct {
		name string
		in   any
		kind CellKind
		text string
	}{
		{"nil", nil, KindNull, "NULL"},
		{"string", "hello", KindText, "hello"},
		{"empty string", "", KindText, ""},
		{"bytes as text", []byte("abc"), KindText, "abc"},
		{"int64", int64(-42), KindInt, "-42"},
		{"int", 7, KindInt, "7"},
		{"uint64", uint64(18446744073709551615), KindInt, "18446744073709551615"},
		{"float64", 3.5, KindFloat, "3.5"},
		{"float64 integral", float64(10), KindFloat, "10"},
		{"bool true", true, KindBool, "true"},
		{"bool false", false, KindBool, "false"},
		{"time in utc", time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC), KindTime, "2024-03-01T12:30:00Z"},
		{"time normalized to utc", time.Date(2024, 3, 1, 13, 30, 0, 0, loc), KindTime, "2024-03-01T12:30:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCell(tt.in)
			if c.Kind != tt.kind {
				t.Errorf("kind = %v, want %v", c.Kind, tt.kind)
			}
			if c.String() != tt.text {
				t.Errorf("String() = %q, want %q", c.String(), tt.text)
			}
		})
	}
}

func TestNullDistinctFromEmpty(t *testing.T) {
	null := NewCell(nil)
	empty := NewCell("")

	if !null.IsNull() {
		t.Error("nil value should be null")
	}
	if empty.IsNull() {
		t.Error("empty string must not be null")
	}
	if null.String() == empty.String() {
		t.Errorf("null and empty render identically: %q", null.String())
	}
	if null.String() != "NULL" {
		t.Errorf("null renders as %q, want NULL", null.String())
	}
}

func TestBytesCell(t *testing.T) {
	c := BytesCell([]byte{0xde, 0xad, 0xbe, 0xef})
	if c.Kind != KindBytes {
		t.Errorf("kind = %v, want KindBytes", c.Kind)
	}
	if c.String() != "0xdeadbeef" {
		t.Errorf("String() = %q, want 0xdeadbeef", c.String())
	}

	if !BytesCell(nil).IsNull() {
		t.Error("nil blob should be null")
	}
}

// Engines hand the same logical value to the scanner in different wire
// shapes; normalization must erase the difference.
func TestNormalizationParity(t *testing.T) {
	tests := []struct {
		name string
		a, b any
	}{
		{"text vs bytes", "widget", []byte("widget")},
		{"int vs int64", 42, int64(42)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ca, cb := NewCell(tt.a), NewCell(tt.b)
			if ca.String() != cb.String() {
				t.Errorf("%q != %q", ca.String(), cb.String())
			}
		})
	}
}

func TestSignature(t *testing.T) {
	base := RecordsQuery{Database: "main", Table: "users", Offset: 0, Limit: 50}

	page2 := base
	page2.Offset = 50
	page2.Limit = 25
	if base.Signature() != page2.Signature() {
		t.Error("offset and limit must not change the signature")
	}

	filtered := base
	filtered.Filter = "age > 3"
	if base.Signature() == filtered.Signature() {
		t.Error("filter must change the signature")
	}

	sorted := base
	sorted.Sort = SortSpec{Column: "name"}
	if base.Signature() == sorted.Signature() {
		t.Error("sort column must change the signature")
	}

	desc := sorted
	desc.Sort.Desc = true
	if sorted.Signature() == desc.Signature() {
		t.Error("sort direction must change the signature")
	}

	otherTable := base
	otherTable.Table = "orders"
	if base.Signature() == otherTable.Signature() {
		t.Error("table must change the signature")
	}
}

func TestClassify(t *testing.T) {
	if !IsConnectivity(classify(driver.ErrBadConn)) {
		t.Error("ErrBadConn should classify as connectivity")
	}
	if IsConnectivity(classify(errors.New("no such table: users"))) {
		t.Error("plain statement error should classify as query error")
	}

	// Already classified errors pass through unchanged.
	qe := &QueryError{Err: errors.New("x")}
	if classify(qe) != error(qe) {
		t.Error("classified error should pass through")
	}
	ce := &ConnectivityError{Err: errors.New("x")}
	if classify(fmt.Errorf("wrap: %w", ce)) == nil || !IsConnectivity(classify(ce)) {
		t.Error("connectivity error should stay connectivity")
	}
}

func TestBuildSelect(t *testing.T) {
	tests := []struct {
		name string
		q    RecordsQuery
		want string
	}{
		{
			"plain",
			RecordsQuery{Table: "users", Limit: 50},
			`SELECT * FROM "users" LIMIT 50`,
		},
		{
			"qualified with offset",
			RecordsQuery{Database: "app", Table: "users", Offset: 100, Limit: 50},
			`SELECT * FROM "app"."users" LIMIT 50 OFFSET 100`,
		},
		{
			"filter and sort",
			RecordsQuery{Table: "users", Limit: 10, Filter: "age > 3", Sort: SortSpec{Column: "name", Desc: true}},
			`SELECT * FROM "users" WHERE age > 3 ORDER BY "name" DESC LIMIT 10`,
		},
		{
			"quote escaping",
			RecordsQuery{Table: `we"ird`, Limit: 1},
			`SELECT * FROM "we""ird" LIMIT 1`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildSelect(quoteIdent, tt.q); got != tt.want {
				t.Errorf("got  %s\nwant %s", got, tt.want)
			}
		})
	}
}

func TestBuildCount(t *testing.T) {
	q := RecordsQuery{Table: "users", Offset: 100, Limit: 50, Filter: "active = 1", Sort: SortSpec{Column: "name"}}
	want := `SELECT COUNT(*) FROM "users" WHERE active = 1`
	if got := buildCount(quoteIdent, q); got != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}
