package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/qubic/go-producer-census/api"
	"github.com/qubic/go-producer-census/domain"
	"github.com/qubic/go-producer-census/entities"
	"github.com/qubic/go-producer-census/external/elastic"
	"github.com/qubic/go-producer-census/external/export"
	"github.com/qubic/go-producer-census/external/kafka"
	"github.com/qubic/go-producer-census/infrastructure/store/pebbledb"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kprom"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const envPrefix = "QUBIC_PRODUCER_CENSUS"

type config struct {
	Scan struct {
		Ledger      string `conf:"default:polygon"`
		StartHeight uint64 `conf:"optional,help:upper height or first slot (chain head if unset)"`
		EndHeight   uint64 `conf:"optional,help:lower height or last slot"`
		StartHash   string `conf:"optional"`
		NotBefore   string `conf:"optional,help:RFC3339 or YYYY-MM-DD"`
		From        string `conf:"optional,help:RFC3339 or YYYY-MM-DD"`
		Till        string `conf:"optional,help:RFC3339 or YYYY-MM-DD"`
		SlotBatch   uint64 `conf:"default:1000"`
		PageSize    uint64 `conf:"default:1000"`
		Resume      bool   `conf:"default:true"`
	}
	Fetch struct {
		BatchUnits      int           `conf:"default:50"`
		Concurrency     int           `conf:"default:10"`
		RequestInterval time.Duration `conf:"default:100ms"`
		RequestTimeout  time.Duration `conf:"default:15s"`
		MaxAttempts     int           `conf:"default:3"`
		BackoffBase     time.Duration `conf:"default:300ms"`
		BackoffMax      time.Duration `conf:"default:10s"`
		MaxIterations   int           `conf:"default:0"`
		MaxStalls       int           `conf:"default:10"`
	}
	Report struct {
		Buckets        string        `conf:"optional,help:semicolon separated ranges like 1-10;11-50;51+"`
		Threshold      float64       `conf:"default:33"`
		OutputFolder   string        `conf:"default:output"`
		PublishTimeout time.Duration `conf:"default:30s"`
	}
	Checkpoint struct {
		Interval    uint64 `conf:"default:1000"`
		StoreFolder string `conf:"default:store"`
	}
	Provider struct {
		BaseURL     string   `conf:"optional"`
		APIKeys     []string `conf:"optional,mask"`
		BearerToken string   `conf:"optional,mask"`
	}
	Archiver struct {
		GrpcHost string `conf:"default:localhost:8010"`
	}
	Kafka struct {
		Enabled          bool     `conf:"default:false"`
		BootstrapServers []string `conf:"default:localhost:9092"`
		ProduceTopic     string   `conf:"default:qubic-producer-census"`
	}
	Elastic struct {
		Enabled   bool          `conf:"default:false"`
		Addresses []string      `conf:"default:http://localhost:9200"`
		Username  string        `conf:"optional"`
		Password  string        `conf:"optional,mask"`
		Index     string        `conf:"default:qubic-producer-census"`
		Timeout   time.Duration `conf:"default:30s"`
	}
	Server struct {
		ListenAddr       string `conf:"default:0.0.0.0:8000"`
		MetricsAddr      string `conf:"default:0.0.0.0:9999"`
		MetricsNamespace string `conf:"default:qubic_producer_census"`
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("main: exited with error: %s", err.Error())
	}
}

func run() error {
	zapConfig := zap.NewProductionConfig()
	// this is just for sugar, to display a readable date instead of an epoch time
	zapConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.DateTime)

	logger, err := zapConfig.Build()
	if err != nil {
		return fmt.Errorf("creating logger: %v", err)
	}
	defer logger.Sync()
	sLogger := logger.Sugar()

	var cfg config
	help, err := conf.Parse(envPrefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher, ledger, err := newFetcher(ctx, cfg)
	if err != nil {
		return fmt.Errorf("creating fetcher: %w", err)
	}
	if closer, ok := fetcher.(io.Closer); ok {
		defer closer.Close()
	}

	scanConfig, err := buildScanConfig(ctx, cfg, ledger, fetcher)
	if err != nil {
		return fmt.Errorf("building scan config: %w", err)
	}

	store, err := pebbledb.NewCheckpointStore(cfg.Checkpoint.StoreFolder)
	if err != nil {
		return fmt.Errorf("creating checkpoint store: %w", err)
	}
	defer store.Close()

	sink, err := export.NewFileSink(cfg.Report.OutputFolder)
	if err != nil {
		return fmt.Errorf("creating output sink: %w", err)
	}

	publishers, closePublishers, err := newPublishers(cfg)
	if err != nil {
		return fmt.Errorf("creating report publishers: %w", err)
	}
	defer closePublishers()

	metrics := domain.NewMetrics(cfg.Server.MetricsNamespace)
	runner, err := domain.NewRunner(scanConfig, fetcher, store, export.NewArtifacts(sink), publishers, metrics, sLogger)
	if err != nil {
		return fmt.Errorf("creating runner: %w", err)
	}

	// status endpoint
	apiError := make(chan error, 1)
	go func() {
		handler := api.NewHandler(runner, store, sLogger)
		server := &http.Server{Addr: cfg.Server.ListenAddr, Handler: handler.Router(), ReadHeaderTimeout: 10 * time.Second}
		log.Printf("main: Starting status server on [%s].", cfg.Server.ListenAddr)
		apiError <- server.ListenAndServe()
	}()

	metricsError := make(chan error, 1)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.Printf("main: Starting metrics server on [%s].", cfg.Server.MetricsAddr)
		metricsError <- http.ListenAndServe(cfg.Server.MetricsAddr, mux)
	}()

	type result struct {
		report *entities.Report
		err    error
	}
	scanResult := make(chan result, 1)
	go func() {
		report, err := runner.Run(ctx)
		scanResult <- result{report: report, err: err}
	}()

	sLogger.Infow("Scan started", "ledger", scanConfig.Ledger, "cursor", scanConfig.Cursor.Kind)

	for {
		select {
		case res := <-scanResult:
			if res.report != nil {
				if printErr := export.PrintReport(os.Stdout, res.report); printErr != nil {
					sLogger.Warnw("Printing report failed", "error", printErr)
				}
			}
			if errors.Is(res.err, entities.ErrScanInterrupted) {
				log.Println("main: Scan interrupted, progress is checkpointed.")
				return nil
			}
			if res.err != nil {
				return fmt.Errorf("scan: %w", res.err)
			}
			log.Println("main: Scan finished.")
			return nil
		case err := <-metricsError:
			return fmt.Errorf("[ERROR] starting metrics server: %v", err)
		case err := <-apiError:
			return fmt.Errorf("[ERROR] starting api server: %v", err)
		}
	}
}

func newPublishers(cfg config) ([]domain.ReportPublisher, func(), error) {
	var publishers []domain.ReportPublisher
	closers := []func(){}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.Kafka.Enabled {
		m := kprom.NewMetrics(cfg.Server.MetricsNamespace,
			kprom.Registerer(prometheus.DefaultRegisterer),
			kprom.Gatherer(prometheus.DefaultGatherer))
		kcl, err := kgo.NewClient(
			kgo.WithHooks(m),
			kgo.SeedBrokers(cfg.Kafka.BootstrapServers...),
			kgo.DefaultProduceTopic(cfg.Kafka.ProduceTopic),
			kgo.ProducerBatchCompression(kgo.ZstdCompression()),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("creating kafka client: %w", err)
		}
		closers = append(closers, kcl.Close)
		publishers = append(publishers, kafka.NewClient(kcl))
	}

	if cfg.Elastic.Enabled {
		esClient, err := elastic.NewClient(elastic.Config{
			Addresses: cfg.Elastic.Addresses,
			Username:  cfg.Elastic.Username,
			Password:  cfg.Elastic.Password,
			Index:     cfg.Elastic.Index,
			Timeout:   cfg.Elastic.Timeout,
		})
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("creating elastic client: %w", err)
		}
		publishers = append(publishers, esClient)
	}

	return publishers, closeAll, nil
}
