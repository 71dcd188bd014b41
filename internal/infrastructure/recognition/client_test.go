package recognition

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/ChemRoute-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/ChemRoute-Intelligence/pkg/errors"
)

const sampleResponse = `[
	{
		"page": 0,
		"reactions": [
			{
				"reactants": [{"smiles": "CCO", "category": "mol"}],
				"products": [{"smiles": "CC=O", "category": "mol"}],
				"confidence": 0.93
			}
		]
	},
	{
		"page": 2,
		"reactions": []
	}
]`

func writeTempPDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 fake"), 0o644))
	return path
}

func newTestClient(baseURL string, retries int) Recognizer {
	return NewClient(Config{
		BaseURL:    baseURL,
		Timeout:    5 * time.Second,
		MaxRetries: retries,
		MolScribe:  true,
	}, logging.NewNopLogger())
}

func TestExtractReactions(t *testing.T) {
	var gotNumPages, gotMolScribe string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/reactions/extract", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotNumPages = r.FormValue("num_pages")
		gotMolScribe = r.FormValue("molscribe")

		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "input.pdf", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	results, err := newTestClient(srv.URL, 0).ExtractReactions(context.Background(), writeTempPDF(t), 5)
	require.NoError(t, err)

	assert.Equal(t, "5", gotNumPages)
	assert.Equal(t, "true", gotMolScribe)

	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].Page)
	require.Len(t, results[0].Reactions, 1)

	rxn := results[0].Reactions[0]
	assert.Equal(t, "CCO", rxn.Reactants[0].SMILES)
	assert.Equal(t, "CC=O", rxn.Products[0].SMILES)

	// fields this package does not model survive in the raw copy
	var raw map[string]any
	require.NoError(t, json.Unmarshal(rxn.Raw, &raw))
	assert.Equal(t, 0.93, raw["confidence"])

	assert.Equal(t, 2, results[1].Page)
	assert.Empty(t, results[1].Reactions)
}

func TestExtractReactionsRetriesOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	results, err := newTestClient(srv.URL, 2).ExtractReactions(context.Background(), writeTempPDF(t), 3)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, int32(2), calls.Load())
}

func TestExtractReactionsRejectionIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail": "not a pdf"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).ExtractReactions(context.Background(), writeTempPDF(t), 3)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeRecognitionFailed, apperrors.GetCode(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestExtractReactionsExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 1).ExtractReactions(context.Background(), writeTempPDF(t), 3)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeRecognitionUnavailable, apperrors.GetCode(err))
	assert.Equal(t, int32(2), calls.Load())
}

func TestExtractReactionsBadResponseBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not": "a list"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 0).ExtractReactions(context.Background(), writeTempPDF(t), 3)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeRecognitionBadResponse, apperrors.GetCode(err))
}

func TestExtractReactionsMissingFile(t *testing.T) {
	_, err := newTestClient("http://127.0.0.1:1", 0).
		ExtractReactions(context.Background(), filepath.Join(t.TempDir(), "gone.pdf"), 3)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodePDFOpenFailed, apperrors.GetCode(err))
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.NoError(t, newTestClient(srv.URL, 0).Health(context.Background()))
}

func TestHealthUnreachable(t *testing.T) {
	err := newTestClient("http://127.0.0.1:1", 0).Health(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeRecognitionUnavailable, apperrors.GetCode(err))
}
