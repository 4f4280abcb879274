package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ticker struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

func TestJSONDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ticker/ethusdt", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ticker{Symbol: "ETHUSDT", Price: "2000.15"})
	}))
	defer srv.Close()

	fetch := JSON[ticker](New(srv.URL, time.Second))

	got, err := fetch(context.Background(), "/api/ticker/ethusdt")
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDT", got.Symbol)
	assert.Equal(t, "2000.15", got.Price)
}

func TestJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	fetch := JSON[ticker](New(srv.URL, time.Second))

	_, err := fetch(context.Background(), "/api/ticker/ethusdt")
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadGateway, se.Code)
	assert.Contains(t, se.Error(), "502")
}

func TestJSONContextCancelled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	fetch := JSON[ticker](New(srv.URL, 10*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := fetch(ctx, "/hang")
	require.Error(t, err)
}

func TestJSONWithQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ticker{Symbol: "ETHUSDT", Price: "1999.9"})
	}))
	defer srv.Close()

	fetch := JSONWithQuery[ticker](New(srv.URL, time.Second), map[string]string{"symbol": "ETHUSDT"})

	got, err := fetch(context.Background(), "/api/ticker")
	require.NoError(t, err)
	assert.Equal(t, "1999.9", got.Price)
}
