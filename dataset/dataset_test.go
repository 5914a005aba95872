package dataset

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "survey.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadRecodesOutcome(t *testing.T) {
	path := writeTempCSV(t, "HighBP,BMI,Diabetes_012\n"+
		"1,30,0\n"+
		"0,22,1\n"+
		"1,35,2\n"+
		"0,25,2\n")

	tbl, err := Load(path, "Diabetes_012")
	require.NoError(t, err)

	// The prediabetes row is dropped, remaining codes become categories.
	assert.Equal(t, 3, tbl.NumRows())
	assert.Equal(t, []string{"HighBP", "BMI"}, tbl.Features)
	assert.Equal(t, []string{OutcomeNo, OutcomeYes, OutcomeYes}, tbl.Outcome)

	bmi, err := tbl.FeatureColumn("BMI")
	require.NoError(t, err)
	assert.Equal(t, []float64{30, 35, 25}, bmi)
}

func TestLoadFailsFast(t *testing.T) {
	tests := []struct {
		name    string
		content string
		target  string
	}{
		{
			name:    "missing target column",
			content: "A,B\n1,2\n",
			target:  "Diabetes_012",
		},
		{
			name:    "unexpected outcome code",
			content: "A,Diabetes_012\n1,7\n",
			target:  "Diabetes_012",
		},
		{
			name:    "fractional outcome code below one",
			content: "A,Diabetes_012\n1,0.9\n",
			target:  "Diabetes_012",
		},
		{
			name:    "fractional outcome code between codes",
			content: "A,Diabetes_012\n1,1.5\n2,0\n",
			target:  "Diabetes_012",
		},
		{
			name:    "malformed predictor cell",
			content: "A,Diabetes_012\nxyz,0\n",
			target:  "Diabetes_012",
		},
		{
			name:    "only prediabetes rows",
			content: "A,Diabetes_012\n1,1\n2,1\n",
			target:  "Diabetes_012",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTempCSV(t, tt.content)
			_, err := Load(path, tt.target)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"), "Diabetes_012")
	assert.Error(t, err)
}

func toyTable() *Table {
	// Five rows coded {0,0,2,2,2} with one trivial predictor.
	tbl, _ := buildTable(
		[]string{"P", "Diabetes_012"},
		[][]string{
			{"1", "0"},
			{"0", "0"},
			{"1", "2"},
			{"0", "2"},
			{"1", "2"},
		},
		"Diabetes_012",
	)
	return tbl
}

func TestBalanceEqualCounts(t *testing.T) {
	tbl := toyTable()

	for _, seed := range []int64{1, 7, 42, 1234} {
		balanced, err := Balance(tbl, seed)
		require.NoError(t, err)

		counts := balanced.CountByOutcome()
		assert.Equal(t, 2, counts[OutcomeNo], "seed %d", seed)
		assert.Equal(t, 2, counts[OutcomeYes], "seed %d", seed)
		assert.Equal(t, 4, balanced.NumRows(), "seed %d", seed)
	}
}

func TestBalanceDeterministic(t *testing.T) {
	tbl := toyTable()
	a, err := Balance(tbl, 42)
	require.NoError(t, err)
	b, err := Balance(tbl, 42)
	require.NoError(t, err)
	assert.Equal(t, a.Outcome, b.Outcome)
	assert.Equal(t, a.X.RawMatrix().Data, b.X.RawMatrix().Data)
}

func TestBalanceEmptyCategory(t *testing.T) {
	tbl, err := buildTable(
		[]string{"P", "Diabetes_012"},
		[][]string{{"1", "2"}, {"0", "2"}},
		"Diabetes_012",
	)
	require.NoError(t, err)

	_, err = Balance(tbl, 1)
	assert.Error(t, err, "balancing without both categories must fail loudly")
}

func TestTrainTestSplitStratified(t *testing.T) {
	// 40 No + 40 Yes rows.
	records := make([][]string, 0, 80)
	for i := 0; i < 40; i++ {
		records = append(records, []string{"1", "0"}, []string{"0", "2"})
	}
	tbl, err := buildTable([]string{"P", "Diabetes_012"}, records, "Diabetes_012")
	require.NoError(t, err)

	train, test, err := TrainTestSplit(tbl, 0.25, 99)
	require.NoError(t, err)

	assert.Equal(t, tbl.NumRows(), train.NumRows()+test.NumRows())
	assert.Equal(t, 10, test.CountByOutcome()[OutcomeNo])
	assert.Equal(t, 10, test.CountByOutcome()[OutcomeYes])
	assert.Equal(t, 30, train.CountByOutcome()[OutcomeNo])
	assert.Equal(t, 30, train.CountByOutcome()[OutcomeYes])
}

func TestTrainTestSplitValidatesFraction(t *testing.T) {
	tbl := toyTable()
	for _, f := range []float64{0, 1, -0.5, 1.5} {
		_, _, err := TrainTestSplit(tbl, f, 1)
		assert.Error(t, err, "fraction %v", f)
	}
}

func TestDropFeature(t *testing.T) {
	tbl, err := buildTable(
		[]string{"A", "B", "C", "Diabetes_012"},
		[][]string{
			{"1", "2", "3", "0"},
			{"4", "5", "6", "2"},
		},
		"Diabetes_012",
	)
	require.NoError(t, err)

	dropped, err := tbl.DropFeature("B")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "C"}, dropped.Features)

	a, err := dropped.FeatureColumn("A")
	require.NoError(t, err)
	c, err := dropped.FeatureColumn("C")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 4}, a)
	assert.Equal(t, []float64{3, 6}, c)

	_, err = dropped.FeatureIndex("B")
	assert.Error(t, err)
}

func TestDropFeatureKeepsAtLeastOnePredictor(t *testing.T) {
	tbl := toyTable()
	require.Equal(t, 1, tbl.NumFeatures())

	_, err := tbl.DropFeature("P")
	assert.Error(t, err)
}

func TestSubsampleKeepsClassShares(t *testing.T) {
	header := []string{"A", "Diabetes_012"}
	records := make([][]string, 0, 100)
	for i := 0; i < 100; i++ {
		code := "0"
		if i < 30 {
			code = "2"
		}
		records = append(records, []string{strconv.Itoa(i), code})
	}
	tbl, err := buildTable(header, records, "Diabetes_012")
	require.NoError(t, err)

	sub, err := Subsample(tbl, 50, 42)
	require.NoError(t, err)
	require.Equal(t, 50, sub.NumRows())

	counts := sub.CountByOutcome()
	assert.Equal(t, 35, counts[OutcomeNo])
	assert.Equal(t, 15, counts[OutcomeYes])
}

func TestSubsampleDeterminismAndBounds(t *testing.T) {
	header := []string{"A", "Diabetes_012"}
	records := make([][]string, 0, 40)
	for i := 0; i < 40; i++ {
		code := "0"
		if i%2 == 0 {
			code = "2"
		}
		records = append(records, []string{strconv.Itoa(i), code})
	}
	tbl, err := buildTable(header, records, "Diabetes_012")
	require.NoError(t, err)

	a, err := Subsample(tbl, 20, 7)
	require.NoError(t, err)
	b, err := Subsample(tbl, 20, 7)
	require.NoError(t, err)
	colA, err := a.FeatureColumn("A")
	require.NoError(t, err)
	colB, err := b.FeatureColumn("A")
	require.NoError(t, err)
	assert.Equal(t, colA, colB)

	// Asking for at least the full table returns it untouched.
	full, err := Subsample(tbl, 40, 7)
	require.NoError(t, err)
	assert.Equal(t, tbl, full)

	_, err = Subsample(tbl, 0, 7)
	assert.Error(t, err)
}
