package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDemandStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"time_muestra": "14:05", "DemHoy": 21450, "Predespacho": 22000}`))
	}))
	defer server.Close()

	provider := &DemandProvider{URL: server.URL}

	assert.Equal(t, "Demanda 14:05 | Hoy:21450MW | Est:22000MW", provider.Status(context.Background()))
}

func TestDemandStatusMissingFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	provider := &DemandProvider{URL: server.URL}

	assert.Equal(t, "Demanda ?? | Hoy:?MW | Est:?MW", provider.Status(context.Background()))
}

func TestDemandStatusServerDown(t *testing.T) {
	provider := &DemandProvider{URL: "http://127.0.0.1:1/nothing"}

	assert.Equal(t, "Error leyendo demanda", provider.Status(context.Background()))
}
