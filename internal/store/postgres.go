package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists scenarios and game sessions in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func initSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scenarios (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			character_name TEXT NOT NULL,
			character_gender TEXT NOT NULL,
			personality_prompt TEXT NOT NULL,
			initial_dialogue TEXT NOT NULL,
			is_custom BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);`,
		`CREATE TABLE IF NOT EXISTS game_sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			scenario_id TEXT NOT NULL REFERENCES scenarios (id),
			status TEXT NOT NULL,
			conversation_history JSONB NOT NULL DEFAULT '[]'::jsonb,
			final_score INT,
			final_justification TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			ended_at TIMESTAMPTZ
		);`,
		`CREATE INDEX IF NOT EXISTS idx_game_sessions_user_created ON game_sessions (user_id, created_at);`,
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *PostgresStore) CreateScenario(ctx context.Context, sc Scenario) (*Scenario, error) {
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO scenarios (id, title, character_name, character_gender, personality_prompt, initial_dialogue, is_custom, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sc.ID, sc.Title, sc.CharacterName, sc.CharacterGender, sc.PersonalityPrompt, sc.InitialDialogue, sc.IsCustom, sc.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create scenario: %w", err)
	}
	return &sc, nil
}

func (s *PostgresStore) GetScenario(ctx context.Context, id string) (*Scenario, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, title, character_name, character_gender, personality_prompt, initial_dialogue, is_custom, created_at
		 FROM scenarios WHERE id=$1`, id)

	var sc Scenario
	err := row.Scan(&sc.ID, &sc.Title, &sc.CharacterName, &sc.CharacterGender, &sc.PersonalityPrompt, &sc.InitialDialogue, &sc.IsCustom, &sc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get scenario: %w", err)
	}
	return &sc, nil
}

func (s *PostgresStore) ListScenarios(ctx context.Context) ([]Scenario, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, character_name, character_gender, personality_prompt, initial_dialogue, is_custom, created_at
		 FROM scenarios ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	defer rows.Close()

	var out []Scenario
	for rows.Next() {
		var sc Scenario
		if err := rows.Scan(&sc.ID, &sc.Title, &sc.CharacterName, &sc.CharacterGender, &sc.PersonalityPrompt, &sc.InitialDialogue, &sc.IsCustom, &sc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan scenario row: %w", err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenario rows: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, userID string, sc *Scenario) (*Session, error) {
	now := time.Now().UTC()
	sess := &Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		ScenarioID: sc.ID,
		Status:     SessionActive,
		History: []ConversationEntry{
			{Role: RoleAI, Message: sc.InitialDialogue, Timestamp: now},
		},
		CreatedAt: now,
	}

	history, err := json.Marshal(sess.History)
	if err != nil {
		return nil, fmt.Errorf("encode history: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO game_sessions (id, user_id, scenario_id, status, conversation_history, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		sess.ID, sess.UserID, sess.ScenarioID, sess.Status, history, sess.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

func (s *PostgresStore) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, scenario_id, status, conversation_history, final_score, final_justification, created_at, ended_at
		 FROM game_sessions WHERE id=$1`, id)

	var (
		sess    Session
		history []byte
	)
	err := row.Scan(&sess.ID, &sess.UserID, &sess.ScenarioID, &sess.Status, &history, &sess.FinalScore, &sess.FinalJustification, &sess.CreatedAt, &sess.EndedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if err := json.Unmarshal(history, &sess.History); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return &sess, nil
}

func (s *PostgresStore) FinishSession(ctx context.Context, id string, score int, justification string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE game_sessions
		 SET status=$2, final_score=$3, final_justification=$4, ended_at=$5
		 WHERE id=$1`,
		id, SessionFinished, score, justification, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
