package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

var ErrEmptyFile = errors.New("data: csv has no header row")

// Frame is a delimited file held as raw strings; typing happens during schema reduction.
type Frame struct {
	Header []string
	Rows   [][]string
}

func (f *Frame) Len() int { return len(f.Rows) }

func ReadCSV(path string) (*Frame, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer fh.Close()
	fr, err := ReadFrame(fh)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return fr, nil
}

func ReadFrame(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, err
	}
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	return &Frame{Header: header, Rows: rows}, nil
}
