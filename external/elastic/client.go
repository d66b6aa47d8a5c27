package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/pkg/errors"
	"github.com/qubic/go-producer-census/domain"
	"github.com/qubic/go-producer-census/entities"
)

type Client struct {
	index    string
	esClient *elasticsearch.Client
}

type Config struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
	Timeout   time.Duration
}

func NewClient(config Config) (*Client, error) {
	cfg := elasticsearch.Config{
		Addresses: config.Addresses,
		Username:  config.Username,
		Password:  config.Password,
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: config.Timeout,
		},
	}

	esClient, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "creating elasticsearch client")
	}

	return &Client{
		index:    config.Index,
		esClient: esClient,
	}, nil
}

// ProducerDocument holds the block count of one producer in one scan.
type ProducerDocument struct {
	DocType   string    `json:"docType"`
	ScanID    string    `json:"scanId"`
	Ledger    string    `json:"ledger"`
	Producer  string    `json:"producer"`
	Blocks    uint64    `json:"blocks"`
	Share     float64   `json:"share"`
	Rank      int       `json:"rank"`
	Timestamp time.Time `json:"timestamp"`
}

// SummaryDocument is the report of a scan without its producer list.
type SummaryDocument struct {
	DocType string `json:"docType"`
	*entities.Report
}

func (es *Client) PublishReport(ctx context.Context, report *entities.Report, tally map[string]uint64) error {
	payload, err := es.bulkPayload(report, tally)
	if err != nil {
		return errors.Wrap(err, "creating bulk payload")
	}

	res, err := es.esClient.Bulk(bytes.NewReader(payload), es.esClient.Bulk.WithContext(ctx), es.esClient.Bulk.WithRefresh("true"))
	if err != nil {
		return errors.Wrap(err, "bulk request failed")
	}
	defer res.Body.Close()

	if res.IsError() {
		return errors.Errorf("bulk request error: %s", res.String())
	}

	var bulkResponse struct {
		Errors bool `json:"errors"`
	}
	err = json.NewDecoder(res.Body).Decode(&bulkResponse)
	if err != nil {
		return errors.Wrap(err, "decoding bulk response")
	}
	if bulkResponse.Errors {
		return errors.Errorf("bulk request for scan [%s] had item errors", report.ScanID)
	}
	return nil
}

func (es *Client) bulkPayload(report *entities.Report, tally map[string]uint64) ([]byte, error) {
	var buf bytes.Buffer

	write := func(id string, document any) error {
		// Metadata line for each document
		meta := fmt.Sprintf(`{ "index": { "_index": "%s", "_id": "%s" } }%s`, es.index, id, "\n")
		buf.WriteString(meta)

		data, err := json.Marshal(document)
		if err != nil {
			return errors.Wrapf(err, "serializing document [%s]", id)
		}
		buf.Write(data)
		buf.WriteByte('\n')
		return nil
	}

	err := write(report.ScanID, SummaryDocument{DocType: "summary", Report: report})
	if err != nil {
		return nil, err
	}

	for i, row := range domain.NewAggregatorFrom(tally).Ranking() {
		var share float64
		if report.TotalBlocks > 0 {
			share = float64(row.Blocks) * 100 / float64(report.TotalBlocks)
		}
		document := ProducerDocument{
			DocType:   "producer",
			ScanID:    report.ScanID,
			Ledger:    report.Ledger,
			Producer:  row.Producer,
			Blocks:    row.Blocks,
			Share:     share,
			Rank:      i + 1,
			Timestamp: report.UpdatedAt,
		}
		err = write(report.ScanID+"-"+row.Producer, document)
		if err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
