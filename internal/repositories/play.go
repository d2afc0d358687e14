package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/polyplayer/internal/models"
	"github.com/desertthunder/polyplayer/internal/shared"
)

const playColumns = `id, sequence, guild_id, channel_id, requested_by, video_id, title, author, length_seconds, input, created_at, updated_at, deleted_at`

// PlayRepository implements models.Repository[*models.PlayRecord].
type PlayRepository struct {
	db *sql.DB
}

// NewPlayRepository creates a new PlayRepository with the given database connection
func NewPlayRepository(db *sql.DB) *PlayRepository {
	return &PlayRepository{db: db}
}

// Create inserts a new [models.PlayRecord] with a generated ID and sequence
func (r *PlayRepository) Create(play *models.PlayRecord) error {
	sequence, err := NextSequence(r.db, "plays")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	play.SetID(shared.GenerateID())
	play.SetSequence(sequence)

	if err := play.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO plays (id, sequence, guild_id, channel_id, requested_by, video_id, title, author, length_seconds, input, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		play.ID(),
		sequence,
		int64(play.GuildID()),
		int64(play.ChannelID()),
		int64(play.RequestedBy()),
		play.VideoID(),
		play.Title(),
		play.Author(),
		play.LengthSeconds(),
		play.Input(),
		play.CreatedAt(),
		play.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert play: %w", err)
	}

	return nil
}

// Get retrieves a play by ID, excluding soft-deleted rows
func (r *PlayRepository) Get(id string) (*models.PlayRecord, error) {
	query := `SELECT ` + playColumns + ` FROM plays WHERE id = ? AND deleted_at IS NULL`
	return r.scan(r.db.QueryRow(query, id))
}

// Update modifies the descriptive fields of an existing play
func (r *PlayRepository) Update(play *models.PlayRecord) error {
	if err := play.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	play.SetUpdatedAt(now)

	query := `
		UPDATE plays
		SET title = ?, author = ?, length_seconds = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, play.Title(), play.Author(), play.LengthSeconds(), now, play.ID())
	if err != nil {
		return fmt.Errorf("failed to update play: %w", err)
	}
	return expectOne(result, "play", play.ID())
}

// Delete soft-deletes a play by ID
func (r *PlayRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE plays SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete play: %w", err)
	}
	return expectOne(result, "play", id)
}

// List retrieves plays newest first.
//
// Supported criteria: "guild_id" and "channel_id" (uint64), "video_id" (string), "limit" (int).
func (r *PlayRepository) List(criteria map[string]any) ([]*models.PlayRecord, error) {
	query := `SELECT ` + playColumns + ` FROM plays WHERE deleted_at IS NULL`
	args := []any{}

	if guildID, ok := criteria["guild_id"].(uint64); ok && guildID != 0 {
		query += " AND guild_id = ?"
		args = append(args, int64(guildID))
	}

	if channelID, ok := criteria["channel_id"].(uint64); ok && channelID != 0 {
		query += " AND channel_id = ?"
		args = append(args, int64(channelID))
	}

	if videoID, ok := criteria["video_id"].(string); ok && videoID != "" {
		query += " AND video_id = ?"
		args = append(args, videoID)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer rows.Close()

	var plays []*models.PlayRecord
	for rows.Next() {
		play, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		plays = append(plays, play)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return plays, nil
}

func (r *PlayRepository) scan(row scanner) (*models.PlayRecord, error) {
	var (
		id            string
		sequence      int
		guildID       int64
		channelID     int64
		requestedBy   int64
		videoID       string
		title         string
		author        string
		lengthSeconds int
		input         string
		createdAt     time.Time
		updatedAt     time.Time
		deletedAt     sql.NullTime
	)

	err := row.Scan(&id, &sequence, &guildID, &channelID, &requestedBy, &videoID, &title, &author, &lengthSeconds, &input, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: play", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan play: %w", err)
	}

	play := models.NewPlayRecord(sequence, uint64(guildID), uint64(channelID), uint64(requestedBy), videoID, title, input)
	play.SetID(id)
	play.SetDetails(author, lengthSeconds)
	play.SetCreatedAt(createdAt)
	play.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		play.SetDeletedAt(&deletedAt.Time)
	}

	return play, nil
}
