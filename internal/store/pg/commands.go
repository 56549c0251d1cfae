package pg

import (
	"context"
	"time"

	"trackersms/internal/domain"
	"trackersms/internal/store"
)

const commandSelect = `
	SELECT c.id, c.model_id, m.name, c.command_text, COALESCE(c.description,''), c.created_at, c.updated_at
	FROM commands c
	JOIN device_models m ON m.id = c.model_id`

func scanCommand(row rowScanner) (domain.Command, error) {
	var c domain.Command
	err := row.Scan(&c.ID, &c.ModelID, &c.ModelName, &c.CommandText, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) listCommands(ctx context.Context, sql string, args ...any) ([]domain.Command, error) {
	rows, err := s.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Command{}
	for rows.Next() {
		c, err := scanCommand(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ListCommands(ctx context.Context) ([]domain.Command, error) {
	return s.listCommands(ctx, commandSelect+`
		ORDER BY m.name, c.command_text`)
}

func (s *Store) ListCommandsByModel(ctx context.Context, modelID int64) ([]domain.Command, error) {
	return s.listCommands(ctx, commandSelect+`
		WHERE c.model_id = $1
		ORDER BY c.command_text`, modelID)
}

func (s *Store) GetCommand(ctx context.Context, id int64) (domain.Command, error) {
	c, err := scanCommand(s.DB.QueryRow(ctx, commandSelect+`
		WHERE c.id = $1`, id))
	if err != nil {
		return domain.Command{}, mapErr(err)
	}
	return c, nil
}

func (s *Store) CreateCommand(ctx context.Context, in domain.CommandInput, now time.Time) (domain.Command, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
		INSERT INTO commands (model_id, command_text, description, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$4)
		RETURNING id
	`, in.ModelID, in.CommandText, nullIfEmpty(in.Description), now).Scan(&id)
	if err != nil {
		return domain.Command{}, mapErr(err)
	}
	return s.GetCommand(ctx, id)
}

func (s *Store) UpdateCommand(ctx context.Context, id int64, in domain.CommandInput, now time.Time) (domain.Command, error) {
	ct, err := s.DB.Exec(ctx, `
		UPDATE commands SET command_text=$2, description=$3, updated_at=$4 WHERE id=$1
	`, id, in.CommandText, nullIfEmpty(in.Description), now)
	if err != nil {
		return domain.Command{}, mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return domain.Command{}, store.ErrNotFound
	}
	return s.GetCommand(ctx, id)
}

func (s *Store) DeleteCommand(ctx context.Context, id int64) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM commands WHERE id=$1`, id)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
