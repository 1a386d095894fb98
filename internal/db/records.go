package db

import "strings"

// SortSpec names a sort column and direction.
type SortSpec struct {
	Column string
	Desc   bool
}

// IsZero reports whether no sort is requested.
func (s SortSpec) IsZero() bool { return s.Column == "" }

// RecordsQuery identifies one page of a table browse: table identity,
// paging window, optional WHERE fragment, optional sort.
type RecordsQuery struct {
	Database string
	Table    string
	Offset   int
	Limit    int
	Filter   string
	Sort     SortSpec
}

// Signature identifies the logical request a page belongs to. Two
// queries with the same signature differ only in offset, so their pages
// may be appended to one buffer; any other difference makes an old
// in-flight result stale.
func (q RecordsQuery) Signature() string {
	dir := "asc"
	if q.Sort.Desc {
		dir = "desc"
	}
	return strings.Join([]string{q.Database, q.Table, q.Filter, q.Sort.Column, dir}, "\x1f")
}
