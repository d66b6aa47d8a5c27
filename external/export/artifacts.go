package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/domain"
)

type Sink interface {
	Write(name string, data []byte) error
}

// Artifacts renders a tally as <name>.json and <name>.csv.
type Artifacts struct {
	sink Sink
}

func NewArtifacts(sink Sink) *Artifacts {
	return &Artifacts{sink: sink}
}

func (a *Artifacts) WriteArtifacts(name string, tally map[string]uint64) error {
	data, err := TallyJSON(tally)
	if err != nil {
		return err
	}
	err = a.sink.Write(name+".json", data)
	if err != nil {
		return errors.Wrap(err, "writing json tally")
	}

	data, err = TallyCSV(tally)
	if err != nil {
		return err
	}
	err = a.sink.Write(name+".csv", data)
	if err != nil {
		return errors.Wrap(err, "writing csv tally")
	}
	return nil
}

func TallyJSON(tally map[string]uint64) ([]byte, error) {
	if tally == nil {
		tally = map[string]uint64{}
	}
	data, err := json.MarshalIndent(tally, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "marshalling tally")
	}
	return data, nil
}

// TallyCSV lists producers by descending block count, ties by producer.
func TallyCSV(tally map[string]uint64) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	err := w.Write([]string{"NodeID", "BlockCount"})
	if err != nil {
		return nil, errors.Wrap(err, "writing csv header")
	}
	for _, row := range domain.NewAggregatorFrom(tally).Ranking() {
		err = w.Write([]string{row.Producer, strconv.FormatUint(row.Blocks, 10)})
		if err != nil {
			return nil, errors.Wrapf(err, "writing csv row [%s]", row.Producer)
		}
	}
	w.Flush()
	if err = w.Error(); err != nil {
		return nil, errors.Wrap(err, "flushing csv")
	}
	return buf.Bytes(), nil
}
