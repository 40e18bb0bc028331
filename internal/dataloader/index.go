package dataloader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Index column names.
const (
	ColumnImageFile       = "image_files"
	ColumnAngularVelocity = "angular_velocity"
)

// ErrMissingColumn is returned when the index header lacks a required column.
var ErrMissingColumn = errors.New("missing index column")

// Entry is one row of the sample index.
type Entry struct {
	ImageFile       string  // Path relative to the images directory.
	AngularVelocity float64 // Regression target; 0 when the cell is empty.
}

// LoadIndex reads a CSV index with a header row naming at least the
// image_files and angular_velocity columns, in any order.
func LoadIndex(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty index", ErrMissingColumn)
		}
		return nil, fmt.Errorf("failed to read index header: %w", err)
	}
	fileCol, velCol := -1, -1
	for i, name := range header {
		switch strings.TrimSpace(name) {
		case ColumnImageFile:
			fileCol = i
		case ColumnAngularVelocity:
			velCol = i
		}
	}
	if fileCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnImageFile)
	}
	if velCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnAngularVelocity)
	}

	var entries []Entry
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return entries, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read index: %w", err)
		}
		line, _ := cr.FieldPos(0)

		e := Entry{ImageFile: rec[fileCol]}
		if cell := strings.TrimSpace(rec[velCol]); cell != "" {
			e.AngularVelocity, err = strconv.ParseFloat(cell, 64)
			if err != nil {
				return nil, fmt.Errorf("index line %d: invalid %s %q: %w", line, ColumnAngularVelocity, cell, err)
			}
		}
		entries = append(entries, e)
	}
}

// LoadIndexFile reads the index at path.
func LoadIndexFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	defer f.Close()
	return LoadIndex(f)
}
