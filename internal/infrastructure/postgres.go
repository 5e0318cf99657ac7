package infrastructure

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool}

	if err := client.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

// schema is applied in order; every statement is idempotent.
var schema = []struct {
	name string
	sql  string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(80) UNIQUE NOT NULL,
			email VARCHAR(120) UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			name VARCHAR(100) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'basic',
			avatar_url VARCHAR(255),
			bio TEXT,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_login TIMESTAMPTZ,
			telegram_chat_id BIGINT UNIQUE
		);
	`},
	{"chat_sessions", `
		CREATE TABLE IF NOT EXISTS chat_sessions (
			id SERIAL PRIMARY KEY,
			user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title VARCHAR(200),
			model_used VARCHAR(100) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		);
	`},
	{"chat_sessions index", `CREATE INDEX IF NOT EXISTS idx_chat_sessions_user ON chat_sessions (user_id, is_active);`},
	{"messages", `
		CREATE TABLE IF NOT EXISTS messages (
			id SERIAL PRIMARY KEY,
			session_id INT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			role VARCHAR(20) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			tokens_used INT,
			response_time DOUBLE PRECISION
		);
	`},
	{"messages index", `CREATE INDEX IF NOT EXISTS idx_messages_session ON messages (session_id, created_at);`},
	{"system_settings", `
		CREATE TABLE IF NOT EXISTS system_settings (
			id SERIAL PRIMARY KEY,
			key VARCHAR(100) UNIQUE NOT NULL,
			value TEXT NOT NULL,
			description TEXT,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`},
	{"message_usage", `
		CREATE TABLE IF NOT EXISTS message_usage (
			user_id INT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			date DATE NOT NULL,
			messages_sent INT NOT NULL DEFAULT 0,
			messages_received INT NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, date)
		);
	`},
}

func (p *PostgresClient) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := p.Pool.Exec(ctx, stmt.sql); err != nil {
			return fmt.Errorf("create %s: %w", stmt.name, err)
		}
	}
	log.Println("Database schema is up to date.")
	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
