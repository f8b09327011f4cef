package providers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// latestStatusQuery fetches the most recent status row per subway line.
const latestStatusQuery = `
	SELECT s1.linea, s1.estado, s1.fecha_registro
	FROM estado_subte s1
	INNER JOIN (
		SELECT linea, MAX(fecha_registro) as max_fecha
		FROM estado_subte
		GROUP BY linea
	) s2 ON s1.linea = s2.linea AND s1.fecha_registro = s2.max_fecha
	ORDER BY s1.linea ASC
`

// SubteProvider reads the latest subway line statuses from the shared
// database and compacts them into a single message.
type SubteProvider struct {
	db      *sql.DB
	timeout time.Duration
}

func NewSubteProvider(dsn string, timeout time.Duration) (*SubteProvider, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(time.Minute)

	return &SubteProvider{db: db, timeout: timeout}, nil
}

type subteRow struct {
	line     string
	status   string
	recorded time.Time
}

// Status renders "🚇hh:mm | A:OK B:DEMORA ..." or a fallback line.
func (p *SubteProvider) Status(ctx context.Context) string {
	rows, err := p.fetch(ctx)
	if err != nil {
		return bound(fmt.Sprintf("Error Subte: %v", err), maxMessageLength)
	}
	if len(rows) == 0 {
		return "❌ Sin datos de subte"
	}

	return formatSubteStatus(rows)
}

func (p *SubteProvider) fetch(ctx context.Context) ([]subteRow, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	result, err := p.db.QueryContext(ctx, latestStatusQuery)
	if err != nil {
		return nil, err
	}
	defer result.Close()

	var rows []subteRow
	for result.Next() {
		var row subteRow
		var recorded string
		if err := result.Scan(&row.line, &row.status, &recorded); err != nil {
			return nil, err
		}

		row.recorded, _ = time.Parse("2006-01-02 15:04:05", recorded)
		rows = append(rows, row)
	}

	return rows, result.Err()
}

func formatSubteStatus(rows []subteRow) string {
	summary := make([]string, 0, len(rows))

	for _, row := range rows {
		line := strings.TrimSpace(strings.ReplaceAll(row.line, "Linea ", ""))
		summary = append(summary, fmt.Sprintf("%s:%s", line, summarizeStatus(row.status)))
	}

	message := fmt.Sprintf("🚇%s | %s", rows[0].recorded.Format("15:04"), strings.Join(summary, " "))

	return bound(message, maxMessageLength)
}

// summarizeStatus compresses the operator's free-form status text into a
// short tag.
func summarizeStatus(status string) string {
	upper := strings.ToUpper(status)

	switch {
	case strings.Contains(upper, "NORMAL"):
		return "OK"
	case strings.Contains(upper, "OBRAS"), strings.Contains(upper, "RENOVACION"):
		return "OBRAS"
	case strings.Contains(upper, "INTERRUMPID"), strings.Contains(upper, "SUSPENDID"):
		return "CORTE"
	case strings.Contains(upper, "DEMORA"):
		return "DEMORA"
	case strings.Contains(upper, "LIMITADO"):
		return "LIMIT"
	default:
		return strings.TrimSpace(bound(status, 10))
	}
}

func (p *SubteProvider) Close() error {
	return p.db.Close()
}
