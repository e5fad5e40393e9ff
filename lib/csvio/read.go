package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"slices"
)

// ErrFileNotFound is returned by ReadFile when the input does not exist.
var ErrFileNotFound = errors.New("file not found")

// Table is a CSV file read fully into memory, all values are strings.
type Table struct {
	Header  []string
	Records [][]string
}

// Index returns the position of column in the header or -1.
func (t *Table) Index(column string) int {
	return slices.Index(t.Header, column)
}

// Column returns every value of column, in file order.
func (t *Table) Column(column string) ([]string, bool) {
	i := t.Index(column)
	if i < 0 {
		return nil, false
	}
	values := make([]string, len(t.Records))
	for r, record := range t.Records {
		values[r] = record[i]
	}
	return values, true
}

func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return &Table{}, nil
	}
	return &Table{Header: records[0], Records: records[1:]}, nil
}
