package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/robo-trader/internal/events"
	"github.com/aristath/robo-trader/internal/judge"
)

func buildArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func validArchive(t *testing.T) []byte {
	return buildArchive(t, map[string]string{
		"clients.csv": "client_id,segment,risk_profile,cash\nC900,retail,balanced,50000\n",
		"holdings.csv": "client_id,ticker,qty\nC900,ACME,10\n",
		"index.csv":    "ticker,weight,sector\nACME,1.0,Industrials\n",
		"prices.csv":   "date,ticker,close,adv\n2025-08-25,ACME,42.50,100000\n",
		"sentiment.jsonl": `{"date":"2025-08-25","ticker":"ACME","label":"pos","score":0.9,"source":"https://news.example/x"}` + "\n",
	})
}

func newTestService() (*Service, *judge.Stub) {
	log := zerolog.Nop()
	stub := judge.NewStub(judge.DefaultDataset(), log)
	return NewService(stub, events.NewManager(log), log), stub
}

func TestIngestReplacesStubDataset(t *testing.T) {
	svc, stub := newTestService()

	result, err := svc.Ingest(validArchive(t), "")
	require.NoError(t, err)
	assert.False(t, result.Idempotent)
	assert.NotEmpty(t, result.DatasetVersion)
	assert.Contains(t, result.Checksum, "sha256:")
	assert.Len(t, result.ReceivedFiles, 5)

	securities, err := stub.Securities(context.Background())
	require.NoError(t, err)
	require.Len(t, securities, 1)
	assert.Equal(t, "ACME", securities[0].ID)
	assert.Equal(t, 42.50, securities[0].Price)

	accounts, err := stub.Accounts(context.Background(), []string{"C900"})
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, 50000.0, accounts[0].Cash)
}

func TestIngestIsIdempotentByChecksum(t *testing.T) {
	svc, _ := newTestService()
	blob := validArchive(t)

	first, err := svc.Ingest(blob, "")
	require.NoError(t, err)

	second, err := svc.Ingest(blob, "")
	require.NoError(t, err)
	assert.True(t, second.Idempotent)
	assert.Equal(t, first.DatasetVersion, second.DatasetVersion)
}

func TestIngestIsIdempotentByKey(t *testing.T) {
	svc, _ := newTestService()

	first, err := svc.Ingest(validArchive(t), "upload-1")
	require.NoError(t, err)

	second, err := svc.Ingest(validArchive(t), "upload-1")
	require.NoError(t, err)
	assert.True(t, second.Idempotent)
	assert.Equal(t, first.DatasetVersion, second.DatasetVersion)
}

func TestIngestRejectsMissingFiles(t *testing.T) {
	svc, _ := newTestService()

	blob := buildArchive(t, map[string]string{
		"clients.csv": "client_id\nC900\n",
	})

	_, err := svc.Ingest(blob, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestIngestRejectsNonZipPayload(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Ingest([]byte("definitely not a zip"), "")
	assert.Error(t, err)
}

func TestIngestAcceptsHeaderAliases(t *testing.T) {
	svc, stub := newTestService()

	blob := buildArchive(t, map[string]string{
		"clients.csv":  "clientId,cash\nC901,1000\n",
		"holdings.csv": "accountId,ticker,quantity\nC901,ACME,5\n",
		"index.csv":    "ticker,target_weight,sector\nACME,1.0,Industrials\n",
		"prices.csv":   "date,ticker,close,adv\n2025-08-25,ACME,10,1000\n",
		"sentiment.jsonl": "\n",
	})

	_, err := svc.Ingest(blob, "")
	require.NoError(t, err)

	accounts, err := stub.Accounts(context.Background(), []string{"C901"})
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	require.Len(t, accounts[0].Positions, 1)
	assert.Equal(t, 5.0, accounts[0].Positions[0].Quantity)
}
