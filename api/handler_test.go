package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/qubic/go-producer-census/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type FakeStatus struct {
	report *entities.Report
}

func (f *FakeStatus) Status() *entities.Report {
	return f.report
}

type FakeCheckpoints struct {
	checkpoints map[string]entities.Checkpoint
	corrupt     string
	shouldError bool
}

func (f *FakeCheckpoints) ListCheckpoints() ([]entities.Checkpoint, error) {
	if f.shouldError {
		return nil, errors.New("mock error")
	}
	var list []entities.Checkpoint
	for _, ledger := range []string{"polygon", "solana"} {
		if checkpoint, ok := f.checkpoints[ledger]; ok {
			list = append(list, checkpoint)
		}
	}
	return list, nil
}

func (f *FakeCheckpoints) LoadCheckpoint(ledger string) (entities.Checkpoint, error) {
	if f.shouldError {
		return entities.Checkpoint{}, errors.New("mock error")
	}
	if ledger == f.corrupt {
		return entities.Checkpoint{}, entities.ErrCorruptCheckpoint
	}
	checkpoint, ok := f.checkpoints[ledger]
	if !ok {
		return entities.Checkpoint{}, entities.ErrStoreEntityNotFound
	}
	return checkpoint, nil
}

var polygonCheckpoint = entities.Checkpoint{
	ScanID:         "3f1c2d4e-5a6b-4c7d-8e9f-0a1b2c3d4e5f",
	Ledger:         "polygon",
	Cursor:         entities.CursorState{Kind: entities.CursorHeight, Current: 72000000, Lower: 71000000},
	Tally:          map[string]uint64{"0xaaa": 600, "0xbbb": 400},
	TotalBlocks:    1000,
	ProcessedUnits: 1000,
	Timestamp:      time.Date(2025, 3, 26, 12, 0, 0, 0, time.UTC),
}

func serve(t *testing.T, handler *Handler, path string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, path, nil)
	handler.Router().ServeHTTP(recorder, request)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))
	return recorder
}

func TestHandler_GetHealth(t *testing.T) {
	handler := NewHandler(&FakeStatus{}, &FakeCheckpoints{}, zap.NewNop().Sugar())

	recorder := serve(t, handler, "/health")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"status":"UP"}`, recorder.Body.String())
}

func TestHandler_GetStatus(t *testing.T) {
	status := &FakeStatus{}
	handler := NewHandler(status, &FakeCheckpoints{}, zap.NewNop().Sugar())

	recorder := serve(t, handler, "/v1/status")
	assert.Equal(t, http.StatusServiceUnavailable, recorder.Code)

	status.report = &entities.Report{ScanID: "abc", Ledger: "solana", TotalBlocks: 40, ProcessedUnits: 10}
	recorder = serve(t, handler, "/v1/status")
	require.Equal(t, http.StatusOK, recorder.Code)

	var report entities.Report
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &report))
	assert.Equal(t, "solana", report.Ledger)
	assert.Equal(t, uint64(40), report.TotalBlocks)
}

func TestHandler_GetCheckpoints(t *testing.T) {
	checkpoints := &FakeCheckpoints{checkpoints: map[string]entities.Checkpoint{"polygon": polygonCheckpoint}}
	handler := NewHandler(&FakeStatus{}, checkpoints, zap.NewNop().Sugar())

	recorder := serve(t, handler, "/v1/checkpoints")
	require.Equal(t, http.StatusOK, recorder.Code)

	var summaries []CheckpointSummary
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, CheckpointSummary{
		Ledger:         "polygon",
		ScanID:         polygonCheckpoint.ScanID,
		Cursor:         polygonCheckpoint.Cursor,
		Producers:      2,
		TotalBlocks:    1000,
		ProcessedUnits: 1000,
		Timestamp:      polygonCheckpoint.Timestamp,
	}, summaries[0])

	checkpoints.shouldError = true
	recorder = serve(t, handler, "/v1/checkpoints")
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}

func TestHandler_GetCheckpoints_Empty(t *testing.T) {
	handler := NewHandler(&FakeStatus{}, &FakeCheckpoints{}, zap.NewNop().Sugar())

	recorder := serve(t, handler, "/v1/checkpoints")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `[]`, recorder.Body.String())
}

func TestHandler_GetCheckpoint(t *testing.T) {
	checkpoints := &FakeCheckpoints{checkpoints: map[string]entities.Checkpoint{"polygon": polygonCheckpoint}, corrupt: "cardano"}
	handler := NewHandler(&FakeStatus{}, checkpoints, zap.NewNop().Sugar())

	testData := []struct {
		name         string
		path         string
		expectedCode int
	}{
		{name: "found", path: "/v1/checkpoints/polygon", expectedCode: http.StatusOK},
		{name: "not found", path: "/v1/checkpoints/solana", expectedCode: http.StatusNotFound},
		{name: "corrupt", path: "/v1/checkpoints/cardano", expectedCode: http.StatusConflict},
	}

	for _, data := range testData {
		t.Run(data.name, func(t *testing.T) {
			recorder := serve(t, handler, data.path)
			assert.Equal(t, data.expectedCode, recorder.Code)
		})
	}
}
