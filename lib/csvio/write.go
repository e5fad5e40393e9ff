package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"

	"eventbrite-cetd/lib/attendee"
	"eventbrite-cetd/lib/osutil"
)

// RowIterator is consumed once by WriteFile.
type RowIterator interface {
	Next() bool
	Row() attendee.Row
	Err() error
}

type sliceRows struct {
	rows []attendee.Row
	row  attendee.Row
}

// SliceRows iterates over rows already in memory.
func SliceRows(rows ...attendee.Row) RowIterator {
	return &sliceRows{rows: rows}
}

func (s *sliceRows) Next() bool {
	if len(s.rows) == 0 {
		return false
	}
	s.row = s.rows[0]
	s.rows = s.rows[1:]
	return true
}

func (s *sliceRows) Row() attendee.Row { return s.row }
func (s *sliceRows) Err() error        { return nil }

type WriteOptions struct {
	// EmptyHeader is written when there are no rows, nil leaves the file empty.
	EmptyHeader []string
}

// WriteFile writes every row to a CSV file at path and returns the number
// of rows written. On any error, including one from rows, an existing file
// at path is left as it was.
func WriteFile(path string, rows RowIterator, opts WriteOptions) (int, error) {
	count := 0
	err := osutil.WriteFileAtomic(path, 0644, func(out io.Writer) error {
		w := csv.NewWriter(out)
		var header []string
		for rows.Next() {
			row := rows.Row()
			if header == nil {
				header = row.Names()
				if err := w.Write(header); err != nil {
					return err
				}
			} else if !slices.Equal(header, row.Names()) {
				return fmt.Errorf("row %d: columns %v do not match header %v", count+1, row.Names(), header)
			}
			if err := w.Write(row.Values()); err != nil {
				return err
			}
			count++
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if header == nil && len(opts.EmptyHeader) > 0 {
			if err := w.Write(opts.EmptyHeader); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
