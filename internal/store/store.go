package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/podforge/podforge/internal/job"
	"github.com/podforge/podforge/internal/models"
)

// Store is the Postgres episode archive. Finished episodes are written here
// so they outlive the in-memory job table.
type Store struct {
	*sql.DB
}

// Episode is one archived generation result.
type Episode struct {
	JobID                uuid.UUID
	Title                string
	Mode                 models.Mode
	TargetDurationSec    int
	EstimatedDurationSec float64
	ScriptYAML           []byte
	Audio                []byte
	CreatedAt            time.Time
}

func New(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	return &Store{DB: db}, nil
}

// SaveEpisode implements job.Archiver.
func (s *Store) SaveEpisode(ctx context.Context, ep job.ArchivedEpisode) error {
	query := `
		INSERT INTO episodes (
			job_id, title, mode, target_duration_seconds,
			estimated_duration_seconds, script_yaml, audio
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (job_id) DO UPDATE SET
			title = EXCLUDED.title,
			script_yaml = EXCLUDED.script_yaml,
			audio = EXCLUDED.audio
	`

	_, err := s.ExecContext(
		ctx, query,
		ep.JobID, ep.Title, string(ep.Mode), ep.TargetDurationSec,
		ep.EstimatedDurationSec, ep.ScriptYAML, ep.Audio,
	)
	if err != nil {
		return fmt.Errorf("failed to save episode: %w", err)
	}
	return nil
}

func (s *Store) GetEpisode(ctx context.Context, jobID uuid.UUID) (*Episode, error) {
	query := `
		SELECT
			job_id, title, mode, target_duration_seconds,
			estimated_duration_seconds, script_yaml, audio, created_at
		FROM episodes
		WHERE job_id = $1
	`

	ep := &Episode{}
	var mode string
	err := s.QueryRowContext(ctx, query, jobID).Scan(
		&ep.JobID, &ep.Title, &mode, &ep.TargetDurationSec,
		&ep.EstimatedDurationSec, &ep.ScriptYAML, &ep.Audio, &ep.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, models.NewError(models.ErrNotFound, "episode %s not found", jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get episode: %w", err)
	}
	ep.Mode = models.Mode(mode)

	return ep, nil
}

// ListEpisodes returns archived episodes newest first, without audio blobs.
func (s *Store) ListEpisodes(ctx context.Context, limit int) ([]Episode, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT
			job_id, title, mode, target_duration_seconds,
			estimated_duration_seconds, created_at
		FROM episodes
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query episodes: %w", err)
	}
	defer rows.Close()

	var episodes []Episode
	for rows.Next() {
		var ep Episode
		var mode string
		err := rows.Scan(
			&ep.JobID, &ep.Title, &mode, &ep.TargetDurationSec,
			&ep.EstimatedDurationSec, &ep.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan episode: %w", err)
		}
		ep.Mode = models.Mode(mode)
		episodes = append(episodes, ep)
	}

	return episodes, rows.Err()
}
