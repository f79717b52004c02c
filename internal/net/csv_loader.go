package net

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// LoadSequencesCSV loads examples from a CSV file. Every row is one step:
// a sequence id, inputSize input values and the target values. Consecutive
// rows with the same id form one sequence. A row whose target columns are
// all empty has a nil target. hasHeader skips the first line if true.
func LoadSequencesCSV(filename string, inputSize int, hasHeader bool) ([]Example, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open file")
	}
	defer file.Close()
	return ReadSequencesCSV(file, inputSize, hasHeader)
}

// ReadSequencesCSV reads examples from r. See LoadSequencesCSV.
func ReadSequencesCSV(r io.Reader, inputSize int, hasHeader bool) ([]Example, error) {
	if inputSize <= 0 {
		return nil, errors.Errorf("input size %d", inputSize)
	}
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read csv")
	}

	startRow := 0
	if hasHeader {
		startRow = 1
	}
	if len(records) <= startRow {
		return nil, errors.New("csv file has no data rows")
	}

	numCols := len(records[startRow])
	targetSize := numCols - 1 - inputSize
	if targetSize < 0 {
		return nil, errors.Errorf("%d columns cannot hold an id and %d inputs", numCols, inputSize)
	}

	var examples []Example
	lastID := ""
	for i := startRow; i < len(records); i++ {
		record := records[i]
		if len(record) != numCols {
			return nil, errors.Errorf("inconsistent number of columns at row %d", i)
		}

		x, err := parseRow(record[1:1+inputSize], i, 1)
		if err != nil {
			return nil, err
		}
		var y *mat.VecDense
		if targetSize > 0 && !allEmpty(record[1+inputSize:]) {
			y, err = parseRow(record[1+inputSize:], i, 1+inputSize)
			if err != nil {
				return nil, err
			}
		}

		id := strings.TrimSpace(record[0])
		if len(examples) == 0 || id != lastID {
			examples = append(examples, Example{})
			lastID = id
		}
		ex := &examples[len(examples)-1]
		ex.Inputs = append(ex.Inputs, x)
		ex.Targets = append(ex.Targets, y)
	}
	return examples, nil
}

func parseRow(fields []string, row, offset int) (*mat.VecDense, error) {
	v := make([]float64, len(fields))
	for j, s := range fields {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse value at row %d, col %d", row, j+offset)
		}
		v[j] = f
	}
	return mat.NewVecDense(len(v), v), nil
}

func allEmpty(fields []string) bool {
	for _, s := range fields {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

// Split splits the examples into two based on the given ratio (0.0 to 1.0).
// Returns (train, test).
func Split(data []Example, ratio float64) ([]Example, []Example) {
	if ratio <= 0 {
		return nil, data
	}
	if ratio >= 1 {
		return data, nil
	}
	splitIdx := int(float64(len(data)) * ratio)
	return data[:splitIdx], data[splitIdx:]
}
