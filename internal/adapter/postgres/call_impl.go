package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/scrapex-service/internal/entity"
	"github.com/user/scrapex-service/internal/repository"
)

const callColumns = `id, user_id, call_id, provider, facility_name, phone_number, status, outcome, duration, notes, script, transcript, recording_url, created_at, started_at, ended_at, updated_at`

// CallRepoImpl implements repository.CallRepository on PostgreSQL.
type CallRepoImpl struct {
	db *pgxpool.Pool
}

func NewCallRepo(db *pgxpool.Pool) *CallRepoImpl {
	return &CallRepoImpl{db: db}
}

func (r *CallRepoImpl) Create(ctx context.Context, c *entity.CallRecord) error {
	query := `
		INSERT INTO call_records (` + callColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17);
	`
	_, err := r.db.Exec(ctx, query,
		c.ID, c.UserID, c.CallID, c.Provider, c.FacilityName, c.PhoneNumber,
		c.Status, c.Outcome, c.DurationSeconds, jsonParam(c.Notes), c.Script,
		c.Transcript, c.RecordingURL, c.CreatedAt, c.StartedAt, c.EndedAt, c.UpdatedAt,
	)
	return err
}

// Update overwrites every mutable column of the record.
func (r *CallRepoImpl) Update(ctx context.Context, c *entity.CallRecord) error {
	query := `
		UPDATE call_records SET
			call_id = $2, status = $3, outcome = $4, duration = $5, notes = $6,
			transcript = $7, recording_url = $8, started_at = $9, ended_at = $10, updated_at = $11
		WHERE id = $1;
	`
	tag, err := r.db.Exec(ctx, query,
		c.ID, c.CallID, c.Status, c.Outcome, c.DurationSeconds, jsonParam(c.Notes),
		c.Transcript, c.RecordingURL, c.StartedAt, c.EndedAt, c.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *CallRepoImpl) GetByCallID(ctx context.Context, callID string) (*entity.CallRecord, error) {
	if callID == "" {
		return nil, repository.ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT `+callColumns+` FROM call_records WHERE call_id = $1;`, callID)
	return scanCall(row)
}

func (r *CallRepoImpl) List(ctx context.Context, userID, facilityName string) ([]*entity.CallRecord, error) {
	query := `
		SELECT ` + callColumns + `
		FROM call_records
		WHERE user_id = $1 AND ($2 = '' OR facility_name = $2)
		ORDER BY created_at DESC;
	`
	rows, err := r.db.Query(ctx, query, userID, facilityName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	calls := []*entity.CallRecord{}
	for rows.Next() {
		c, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

func scanCall(row rowScanner) (*entity.CallRecord, error) {
	var c entity.CallRecord
	var notes []byte
	err := row.Scan(
		&c.ID, &c.UserID, &c.CallID, &c.Provider, &c.FacilityName, &c.PhoneNumber,
		&c.Status, &c.Outcome, &c.DurationSeconds, &notes, &c.Script,
		&c.Transcript, &c.RecordingURL, &c.CreatedAt, &c.StartedAt, &c.EndedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	if len(notes) > 0 {
		c.Notes = json.RawMessage(notes)
	}
	return &c, nil
}
