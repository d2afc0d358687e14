package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/polyplayer/internal/models"
	"github.com/desertthunder/polyplayer/internal/shared"
)

const resolutionColumns = `id, sequence, service, source_id, video_id, query, created_at, updated_at, deleted_at`

// ResolutionRepository implements models.Repository[*models.Resolution].
//
// Rows are unique per (service, source_id).
type ResolutionRepository struct {
	db *sql.DB
}

// NewResolutionRepository creates a new ResolutionRepository with the given database connection
func NewResolutionRepository(db *sql.DB) *ResolutionRepository {
	return &ResolutionRepository{db: db}
}

// Create inserts a new [models.Resolution] with a generated ID and sequence
func (r *ResolutionRepository) Create(res *models.Resolution) error {
	sequence, err := NextSequence(r.db, "resolutions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	res.SetID(shared.GenerateID())
	res.SetSequence(sequence)

	if err := res.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO resolutions (id, sequence, service, source_id, video_id, query, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, res.ID(), sequence, res.Service(), res.SourceID(), res.VideoID(), res.Query(), res.CreatedAt(), res.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert resolution: %w", err)
	}
	return nil
}

// Get retrieves a resolution by ID, excluding soft-deleted rows
func (r *ResolutionRepository) Get(id string) (*models.Resolution, error) {
	query := `SELECT ` + resolutionColumns + ` FROM resolutions WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// GetBySource retrieves the resolution for a service-specific track id
func (r *ResolutionRepository) GetBySource(service, sourceID string) (*models.Resolution, error) {
	query := `SELECT ` + resolutionColumns + ` FROM resolutions WHERE service = ? AND source_id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, service, sourceID))
}

// Update replaces the matched video of an existing resolution
func (r *ResolutionRepository) Update(res *models.Resolution) error {
	if err := res.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	res.SetUpdatedAt(now)

	query := `
		UPDATE resolutions
		SET video_id = ?, query = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, res.VideoID(), res.Query(), now, res.ID())
	if err != nil {
		return fmt.Errorf("failed to update resolution: %w", err)
	}
	return expectOne(result, "resolution", res.ID())
}

// Delete soft-deletes a resolution by ID
func (r *ResolutionRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE resolutions SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete resolution: %w", err)
	}
	return expectOne(result, "resolution", id)
}

// List retrieves resolutions in insertion order. Supported criteria: "service" and "video_id".
func (r *ResolutionRepository) List(criteria map[string]any) ([]*models.Resolution, error) {
	query := `SELECT ` + resolutionColumns + ` FROM resolutions WHERE deleted_at IS NULL`
	args := []any{}

	if service, ok := criteria["service"].(string); ok && service != "" {
		query += " AND service = ?"
		args = append(args, service)
	}

	if videoID, ok := criteria["video_id"].(string); ok && videoID != "" {
		query += " AND video_id = ?"
		args = append(args, videoID)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolutions: %w", err)
	}
	defer rows.Close()

	var out []*models.Resolution
	for rows.Next() {
		res, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

func (r *ResolutionRepository) scan(row scanner) (*models.Resolution, error) {
	var (
		id        string
		sequence  int
		service   string
		sourceID  string
		videoID   string
		query     string
		createdAt time.Time
		updatedAt time.Time
		deletedAt sql.NullTime
	)

	err := row.Scan(&id, &sequence, &service, &sourceID, &videoID, &query, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: resolution", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan resolution: %w", err)
	}

	res := models.NewResolution(sequence, service, sourceID, videoID, query)
	res.SetID(id)
	res.SetCreatedAt(createdAt)
	res.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		res.SetDeletedAt(&deletedAt.Time)
	}
	return res, nil
}
