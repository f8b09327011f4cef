package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// companyAbbreviations shortens the distribution company names to keep the
// per-company summaries inside the message bound.
var companyAbbreviations = map[string]string{
	"Edenor": "EN",
	"Edesur": "ES",
}

// OutageProvider queries the outage aggregation service and renders one
// summary line per distribution company.
type OutageProvider struct {
	URL     string
	Client  *http.Client
	Timeout time.Duration
}

type outageResponse struct {
	Resultados []outageEntry `json:"resultados"`
}

type outageEntry struct {
	Empresa               string  `json:"empresa"`
	Localidad             string  `json:"localidad"`
	TotalAfectados        float64 `json:"total_afectados"`
	NormalizacionEstimada string  `json:"normalizacion_estimada"`
}

// Messages returns one string per company, each bounded to 200 characters,
// or a single fallback line when the service is unreachable or reports
// nothing.
func (p *OutageProvider) Messages(ctx context.Context) []string {
	entries, err := p.fetch(ctx)
	if err != nil {
		return []string{bound(fmt.Sprintf("Error cortes: %v", err), maxMessageLength)}
	}
	if len(entries) == 0 {
		return []string{"Sin cortes reportados"}
	}

	return formatOutages(entries)
}

func (p *OutageProvider) fetch(ctx context.Context) ([]outageEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return nil, err
	}

	response, err := p.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status code %d", response.StatusCode)
	}

	var body outageResponse
	if err := json.NewDecoder(response.Body).Decode(&body); err != nil {
		return nil, err
	}

	return body.Resultados, nil
}

// formatOutages groups the entries by company, first appearance order, and
// renders "EN | <loc> <affected>@<hh:mm>, ..." per company.
func formatOutages(entries []outageEntry) []string {
	var companies []string
	items := make(map[string][]string)

	for _, entry := range entries {
		hour := "??"
		if t, err := time.Parse("2006-01-02 15:04", entry.NormalizacionEstimada); err == nil {
			hour = t.Format("15:04")
		}

		location := entry.Localidad
		if location == "" {
			location = "Unk"
		}

		if _, seen := items[entry.Empresa]; !seen {
			companies = append(companies, entry.Empresa)
		}
		items[entry.Empresa] = append(items[entry.Empresa],
			fmt.Sprintf("%s %d@%s", location, int(entry.TotalAfectados), hour))
	}

	messages := make([]string, 0, len(companies))
	for _, company := range companies {
		prefix := company
		if abbr, ok := companyAbbreviations[company]; ok {
			prefix = abbr
		}

		line := fmt.Sprintf("%s | %s", prefix, strings.Join(items[company], ", "))
		messages = append(messages, bound(line, maxMessageLength))
	}

	return messages
}

func (p *OutageProvider) client() *http.Client {
	if p.Client != nil {
		return p.Client
	}
	return http.DefaultClient
}

func (p *OutageProvider) timeout() time.Duration {
	if p.Timeout > 0 {
		return p.Timeout
	}
	return 3 * time.Second
}
