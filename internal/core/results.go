package core

import (
	"bytes"
	"encoding/json"
)

// Row is one scanned database row keyed by column name.
type Row map[string]interface{}

// ResultSet keeps the column order the database returned alongside the rows.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// Without removes a column from the result set in place.
func (rs *ResultSet) Without(column string) {
	cols := rs.Columns[:0]
	for _, c := range rs.Columns {
		if c != column {
			cols = append(cols, c)
		}
	}
	rs.Columns = cols
	for _, row := range rs.Rows {
		delete(row, column)
	}
}

// OrderedRows encodes the rows of a ResultSet as a JSON array of objects whose
// keys follow the column order.
type OrderedRows ResultSet

func (o OrderedRows) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range o.Rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		first := true
		for _, col := range o.Columns {
			val, ok := row[col]
			if !ok {
				continue
			}
			if !first {
				buf.WriteByte(',')
			}
			first = false
			key, err := json.Marshal(col)
			if err != nil {
				return nil, err
			}
			v, err := json.Marshal(val)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(v)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
