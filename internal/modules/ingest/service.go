// Package ingest loads advisory datasets into the stub judge from an
// uploaded zip archive. Only mounted when the engine runs against the
// canned signal source.
package ingest

import (
	"archive/zip"
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/robo-trader/internal/events"
	"github.com/aristath/robo-trader/internal/judge"
)

// requiredFiles must all be present in the uploaded archive
var requiredFiles = []string{
	"clients.csv",
	"holdings.csv",
	"index.csv",
	"prices.csv",
	"sentiment.jsonl",
}

// Result describes one ingest outcome
type Result struct {
	DatasetVersion string   `json:"dataset_version"`
	Checksum       string   `json:"checksum"`
	ReceivedFiles  []string `json:"received_files"`
	Idempotent     bool     `json:"idempotent"`
}

// Service parses uploaded archives and swaps them into the stub dataset
type Service struct {
	stub   *judge.Stub
	events *events.Manager
	log    zerolog.Logger

	// Replay guard: same payload (or same Idempotency-Key) loads once
	mu       sync.Mutex
	versions map[string]string
}

// NewService creates an ingest service
func NewService(stub *judge.Stub, eventManager *events.Manager, log zerolog.Logger) *Service {
	return &Service{
		stub:     stub,
		events:   eventManager,
		log:      log.With().Str("service", "ingest").Logger(),
		versions: make(map[string]string),
	}
}

// Ingest parses the zip archive and replaces the stub dataset. The checksum
// of the payload doubles as the idempotency key when the caller supplies
// none.
func (s *Service) Ingest(blob []byte, idempotencyKey string) (*Result, error) {
	sum := sha256.Sum256(blob)
	checksum := "sha256:" + hex.EncodeToString(sum[:])

	key := idempotencyKey
	if key == "" {
		key = checksum
	}

	s.mu.Lock()
	if version, ok := s.versions[key]; ok {
		s.mu.Unlock()
		return &Result{
			DatasetVersion: version,
			Checksum:       checksum,
			Idempotent:     true,
		}, nil
	}
	s.mu.Unlock()

	reader, err := zip.NewReader(bytes.NewReader(blob), int64(len(blob)))
	if err != nil {
		return nil, fmt.Errorf("payload is not a zip archive: %w", err)
	}

	names := make(map[string]*zip.File, len(reader.File))
	var received []string
	for _, f := range reader.File {
		names[f.Name] = f
		received = append(received, f.Name)
	}
	sort.Strings(received)

	for _, name := range requiredFiles {
		if _, ok := names[name]; !ok {
			return nil, fmt.Errorf("archive is missing %s (found: %s)", name, strings.Join(received, ", "))
		}
	}

	dataset, err := parseDataset(names)
	if err != nil {
		return nil, err
	}

	s.stub.Load(dataset)

	version := "v" + time.Now().UTC().Format("20060102-150405")
	s.mu.Lock()
	s.versions[key] = version
	s.mu.Unlock()

	s.events.Emit(events.DatasetIngested, "ingest", map[string]interface{}{
		"dataset_version": version,
		"checksum":        checksum,
	})

	return &Result{
		DatasetVersion: version,
		Checksum:       checksum,
		ReceivedFiles:  received,
	}, nil
}

// parseDataset reads every required file into a judge dataset
func parseDataset(files map[string]*zip.File) (judge.Dataset, error) {
	var dataset judge.Dataset

	clients, err := readCSV(files["clients.csv"])
	if err != nil {
		return dataset, err
	}
	for _, row := range clients {
		dataset.Clients = append(dataset.Clients, judge.Client{
			ID:          pick(row, "client_id", "clientId"),
			Segment:     pickDefault(row, "retail", "segment"),
			RiskProfile: pickDefault(row, "balanced", "risk_profile", "riskProfile"),
			Cash:        pickFloat(row, "cash"),
		})
	}

	holdings, err := readCSV(files["holdings.csv"])
	if err != nil {
		return dataset, err
	}
	for _, row := range holdings {
		dataset.Holdings = append(dataset.Holdings, judge.Holding{
			AccountID: pick(row, "client_id", "account_id", "accountId"),
			Ticker:    pick(row, "ticker"),
			Quantity:  pickFloat(row, "qty", "quantity"),
		})
	}

	index, err := readCSV(files["index.csv"])
	if err != nil {
		return dataset, err
	}
	for _, row := range index {
		dataset.Index = append(dataset.Index, judge.Constituent{
			Ticker: pick(row, "ticker"),
			Weight: pickFloat(row, "weight", "target_weight"),
			Sector: pickDefault(row, "Unknown", "sector"),
		})
	}

	prices, err := readCSV(files["prices.csv"])
	if err != nil {
		return dataset, err
	}
	for _, row := range prices {
		dataset.Prices = append(dataset.Prices, judge.PriceBar{
			Date:   pick(row, "date"),
			Ticker: pick(row, "ticker"),
			Close:  pickFloat(row, "close"),
			ADV:    pickFloat(row, "adv"),
		})
	}

	sentiment, err := readSentiment(files["sentiment.jsonl"])
	if err != nil {
		return dataset, err
	}
	dataset.Sentiment = sentiment

	return dataset, nil
}

// readCSV reads a csv file into header-keyed rows
func readCSV(file *zip.File) ([]map[string]string, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file.Name, err)
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", file.Name, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := records[0]
	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(map[string]string, len(header))
		for i, key := range header {
			if i < len(record) {
				row[strings.TrimSpace(key)] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// readSentiment reads the jsonl sentiment file
func readSentiment(file *zip.File) ([]judge.SentimentRecord, error) {
	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", file.Name, err)
	}
	defer rc.Close()

	var records []judge.SentimentRecord
	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec struct {
			Date   string  `json:"date"`
			Ticker string  `json:"ticker"`
			Label  string  `json:"label"`
			Score  float64 `json:"score"`
			Source string  `json:"source"`
		}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("failed to parse sentiment line: %w", err)
		}

		records = append(records, judge.SentimentRecord{
			Date:   rec.Date,
			Ticker: rec.Ticker,
			Label:  rec.Label,
			Score:  rec.Score,
			Source: rec.Source,
		})
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read sentiment file: %w", err)
	}

	return records, nil
}

// Row helpers: csv exports vary in header naming, accept the known aliases

func pick(row map[string]string, keys ...string) string {
	for _, key := range keys {
		if v := row[key]; v != "" {
			return v
		}
	}
	return ""
}

func pickDefault(row map[string]string, fallback string, keys ...string) string {
	if v := pick(row, keys...); v != "" {
		return v
	}
	return fallback
}

func pickFloat(row map[string]string, keys ...string) float64 {
	v := pick(row, keys...)
	if v == "" {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}
