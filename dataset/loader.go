package dataset

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
	"gonum.org/v1/gonum/mat"

	"github.com/tisono/diabrisk/pkg/errors"
)

// Survey outcome codes before recoding. Code 1 (prediabetes) is dropped so
// the outcome becomes a binary category.
const (
	codeNo          = 0
	codePrediabetes = 1
	codeYes         = 2
)

// Load reads the survey table from an .xlsx or .csv file and recodes the
// three-valued target column into the binary outcome: rows coded 1 are
// removed, 0 becomes No and 2 becomes Yes. Any other code, a missing target
// column or a malformed cell fails the load outright.
func Load(path, target string) (*Table, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.Wrapf(err, "dataset: input file %s", path)
	}
	var (
		header  []string
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		header, records, err = readXLSX(path)
	case ".csv":
		header, records, err = readCSV(path)
	default:
		return nil, errors.Newf("dataset: unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}
	return buildTable(header, records, target)
}

func readXLSX(path string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "dataset: open xlsx")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "dataset: read sheet %s", sheet)
	}
	if len(rows) < 2 {
		return nil, nil, errors.New("dataset: sheet has no data rows")
	}
	return rows[0], rows[1:], nil
}

func readCSV(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "dataset: open csv")
	}
	defer f.Close()

	df := dataframe.ReadCSV(f)
	if df.Err != nil {
		return nil, nil, errors.Wrap(df.Err, "dataset: parse csv")
	}
	if df.Nrow() == 0 {
		return nil, nil, errors.New("dataset: csv has no data rows")
	}
	return df.Names(), df.Records()[1:], nil
}

func buildTable(header []string, records [][]string, target string) (*Table, error) {
	targetIdx := -1
	features := make([]string, 0, len(header))
	for i, name := range header {
		if name == target {
			targetIdx = i
			continue
		}
		features = append(features, name)
	}
	if targetIdx < 0 {
		return nil, errors.Newf("dataset: target column %q not found", target)
	}
	if len(features) == 0 {
		return nil, errors.New("dataset: no predictor columns")
	}

	values := make([]float64, 0, len(records)*len(features))
	outcome := make([]string, 0, len(records))
	for r, rec := range records {
		if len(rec) != len(header) {
			return nil, errors.Newf("dataset: row %d has %d cells, want %d", r+2, len(rec), len(header))
		}
		code, err := strconv.ParseFloat(strings.TrimSpace(rec[targetIdx]), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "dataset: row %d: target cell %q", r+2, rec[targetIdx])
		}
		var cat string
		switch code {
		case codeNo:
			cat = OutcomeNo
		case codeYes:
			cat = OutcomeYes
		case codePrediabetes:
			continue
		default:
			return nil, errors.Newf("dataset: row %d: unexpected outcome code %v", r+2, code)
		}
		for i, cell := range rec {
			if i == targetIdx {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, errors.Wrapf(err, "dataset: row %d column %q: cell %q", r+2, header[i], cell)
			}
			values = append(values, v)
		}
		outcome = append(outcome, cat)
	}
	if len(outcome) == 0 {
		return nil, errors.New("dataset: no rows left after outcome recoding")
	}
	return &Table{
		Features: features,
		X:        mat.NewDense(len(outcome), len(features), values),
		Outcome:  outcome,
	}, nil
}
