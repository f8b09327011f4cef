package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

const insertEventQuery = `
	INSERT INTO eventos (tipo_paquete, emisor_id, emisor_name, receptor_id, data_json)
	VALUES (?, ?, ?, ?, ?)
`

// MySQLSink writes events into the "eventos" table.
type MySQLSink struct {
	db      *sql.DB
	timeout time.Duration
}

// NewMySQLSink opens a connection pool for the given DSN. The database is
// not contacted until the first write; an unavailable server degrades writes,
// not startup.
func NewMySQLSink(dsn string, timeout time.Duration) (*MySQLSink, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(2)
	db.SetConnMaxIdleTime(time.Minute)

	return &MySQLSink{db: db, timeout: timeout}, nil
}

func (s *MySQLSink) Write(ctx context.Context, event Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx, insertEventQuery,
		event.Type,
		event.SenderID,
		event.SenderLabel,
		event.DestID,
		event.PayloadJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

func (s *MySQLSink) Close() error {
	return s.db.Close()
}
