package kafka

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/domain"
	"github.com/qubic/go-producer-census/entities"
	"github.com/twmb/franz-go/pkg/kgo"
)

type KafkaClient interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

type Client struct {
	kcl KafkaClient
}

func NewClient(kafkaClient KafkaClient) *Client {
	return &Client{
		kcl: kafkaClient,
	}
}

// CensusRecord is the record value of a finished scan.
type CensusRecord struct {
	*entities.Report
	Producers []entities.ProducerCount `json:"producers"`
}

func (kc *Client) PublishReport(ctx context.Context, report *entities.Report, tally map[string]uint64) error {
	record, err := createReportRecord(report, tally)
	if err != nil {
		return errors.Wrap(err, "creating report record")
	}

	err = kc.kcl.ProduceSync(ctx, record).FirstErr()
	if err != nil {
		return errors.Wrapf(err, "producing report record for ledger [%s]", report.Ledger)
	}
	return nil
}

func createReportRecord(report *entities.Report, tally map[string]uint64) (*kgo.Record, error) {
	payload, err := json.Marshal(CensusRecord{Report: report, Producers: domain.NewAggregatorFrom(tally).Ranking()})
	if err != nil {
		return nil, errors.Wrap(err, "marshalling report to json")
	}

	return &kgo.Record{
		Key:   []byte(report.Ledger),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "scanId", Value: []byte(report.ScanID)},
		},
	}, nil
}
