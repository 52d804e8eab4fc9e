package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"
)

// Options describe the connection. Empty fields fall back to the libpq
// environment variables (PGHOST, PGPORT, ...) and then to local defaults.
type Options struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	PanelID  string
}

// Client stores panel preferences in Postgres.
type Client struct {
	db      *sql.DB
	panelID string
}

// DSN builds the key/value connection string for lib/pq.
func (o Options) DSN() string {
	host := firstNonEmpty(o.Host, os.Getenv("PGHOST"), "127.0.0.1")
	port := firstNonEmpty(portString(o.Port), os.Getenv("PGPORT"), "5432")
	user := firstNonEmpty(o.User, os.Getenv("PGUSER"), "panel")
	dbname := firstNonEmpty(o.Database, os.Getenv("PGDATABASE"), "panel")
	sslmode := firstNonEmpty(o.SSLMode, "disable")
	password := firstNonEmpty(o.Password, os.Getenv("PGPASSWORD"))

	if password != "" {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			host, port, user, password, dbname, sslmode)
	}
	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s",
		host, port, user, dbname, sslmode)
}

// New connects, pings and creates the preferences table if needed.
func New(ctx context.Context, opts Options) (*Client, error) {
	db, err := sql.Open("postgres", opts.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	client := &Client{
		db:      db,
		panelID: firstNonEmpty(opts.PanelID, "panel"),
	}

	if err := client.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create preferences table: %w", err)
	}

	return client, nil
}

func (c *Client) createTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS panel_preferences (
			panel_id   TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (panel_id, key)
		);
	`
	_, err := c.db.ExecContext(ctx, query)
	return err
}

// Get returns the value of key for this panel.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := c.db.QueryRowContext(ctx,
		`SELECT value FROM panel_preferences WHERE panel_id = $1 AND key = $2`,
		c.panelID, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set upserts key for this panel.
func (c *Client) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO panel_preferences (panel_id, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (panel_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`
	_, err := c.db.ExecContext(ctx, query, c.panelID, key, value)
	return err
}

// Ping checks the connection, for readiness probes.
func (c *Client) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the database connection.
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func portString(p int) string {
	if p == 0 {
		return ""
	}
	return strconv.Itoa(p)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
