package scorestats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const iterationColumn = "ITERATION"

// ReadFile parses a scorestats.txt file.
func ReadFile(path string) (*History, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}

// Parse reads the tab-separated score table. The first row is the header;
// columns are matched by label so their order does not matter and unknown
// columns are skipped.
func Parse(r io.Reader) (*History, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("empty score table")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	iterCol := -1
	cols := make(map[int]Item)
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == iterationColumn {
			iterCol = i
			continue
		}
		if item, err := ParseItem(name); err == nil {
			cols[i] = item
		}
	}
	if iterCol < 0 {
		return nil, fmt.Errorf("missing %s column", iterationColumn)
	}

	h := NewHistory()
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		if iterCol >= len(rec) {
			return nil, fmt.Errorf("line %d: missing iteration", line)
		}
		it, err := strconv.Atoi(strings.TrimSpace(rec[iterCol]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid iteration %q", line, rec[iterCol])
		}
		for col, item := range cols {
			if col >= len(rec) {
				return nil, fmt.Errorf("line %d: missing %s value", line, item.Label())
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[col]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid %s value %q", line, item.Label(), rec[col])
			}
			h.Set(item, it, v)
		}
	}
	return h, nil
}

// Write emits the history in scorestats.txt layout.
func (h *History) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	header := []string{iterationColumn}
	var items []Item
	for _, item := range Items {
		if _, ok := h.series[item]; ok {
			header = append(header, item.Label())
			items = append(items, item)
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, it := range h.Iterations() {
		row := []string{strconv.Itoa(it)}
		for _, item := range items {
			v, _ := h.Value(item, it)
			row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
