package export

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/qubic/go-producer-census/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockSink struct {
	files       map[string][]byte
	shouldError bool
}

func (m *MockSink) Write(name string, data []byte) error {
	if m.shouldError {
		return errors.New("mock error")
	}
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.files[name] = data
	return nil
}

func TestArtifacts_WriteArtifacts(t *testing.T) {
	sink := &MockSink{}
	artifacts := NewArtifacts(sink)

	err := artifacts.WriteArtifacts("polygon", map[string]uint64{"0xbbb": 7, "0xaaa": 7, "0xccc": 12})
	require.NoError(t, err)

	assert.Equal(t, "NodeID,BlockCount\n0xccc,12\n0xaaa,7\n0xbbb,7\n", string(sink.files["polygon.csv"]))
	assert.JSONEq(t, `{"0xaaa":7,"0xbbb":7,"0xccc":12}`, string(sink.files["polygon.json"]))
}

func TestArtifacts_EmptyTally(t *testing.T) {
	sink := &MockSink{}
	require.NoError(t, NewArtifacts(sink).WriteArtifacts("solana", nil))

	assert.Equal(t, "NodeID,BlockCount\n", string(sink.files["solana.csv"]))
	assert.JSONEq(t, `{}`, string(sink.files["solana.json"]))
}

func TestArtifacts_SinkError(t *testing.T) {
	err := NewArtifacts(&MockSink{shouldError: true}).WriteArtifacts("cardano", map[string]uint64{"pool1": 1})
	assert.Error(t, err)
}

func TestFileSink_Write(t *testing.T) {
	dir, err := os.MkdirTemp("", "census-export-test")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	sink, err := NewFileSink(filepath.Join(dir, "out"))
	require.NoError(t, err)

	require.NoError(t, sink.Write("avalanche.csv", []byte("first")))
	require.NoError(t, sink.Write("avalanche.csv", []byte("second")))

	data, err := os.ReadFile(sink.Path("avalanche.csv"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files left behind")

	assert.Error(t, sink.Write("../escape.csv", []byte("x")))
	assert.Error(t, sink.Write("", []byte("x")))
}

func TestPrintReport(t *testing.T) {
	superminority := 2
	report := &entities.Report{
		ScanID:          "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		Ledger:          "solana",
		TotalBlocks:     100,
		UniqueProducers: 3,
		Threshold:       33,
		Superminority:   &superminority,
		Distribution: []entities.DistributionBucket{
			{Label: "1-10", Min: 1, Max: 10, Validators: 1, Blocks: 10, BlockShare: 10},
			{Label: "11-50", Min: 11, Max: 50, Validators: 2, Blocks: 90, BlockShare: 90},
		},
		ActiveValidators: 4,
		Participation:    75,
	}

	var out bytes.Buffer
	require.NoError(t, PrintReport(&out, report))

	text := out.String()
	assert.Contains(t, text, "solana")
	assert.Contains(t, text, "Superminority (33.00%):  2")
	assert.Contains(t, text, "75.00% of 4 active validators")
	assert.Contains(t, text, "11-50")
	assert.Contains(t, text, "90.00%")
}
