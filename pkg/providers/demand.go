package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DemandProvider queries the grid demand service for the latest sample.
type DemandProvider struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

// Status renders "Demanda <t> | Hoy:<x>MW | Est:<y>MW" or a fallback line.
func (p *DemandProvider) Status(ctx context.Context) string {
	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return "Error leyendo demanda"
	}

	response, err := p.client().Do(req)
	if err != nil {
		return "Error leyendo demanda"
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "Error leyendo demanda"
	}

	var sample map[string]any
	if err := json.NewDecoder(response.Body).Decode(&sample); err != nil {
		return "Error leyendo demanda"
	}

	line := fmt.Sprintf("Demanda %s | Hoy:%sMW | Est:%sMW",
		field(sample, "time_muestra", "??"),
		field(sample, "DemHoy", "?"),
		field(sample, "Predespacho", "?"),
	)

	return bound(line, maxMessageLength)
}

// field renders a JSON value as a compact string, integers without the
// trailing decimals json decoding introduces.
func field(sample map[string]any, key string, fallback string) string {
	value, ok := sample[key]
	if !ok || value == nil {
		return fallback
	}

	if num, ok := value.(float64); ok && num == float64(int64(num)) {
		return fmt.Sprintf("%d", int64(num))
	}

	return fmt.Sprintf("%v", value)
}

func (p *DemandProvider) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return http.DefaultClient
}

func (p *DemandProvider) timeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return 3 * time.Second
}
