package pg

import (
	"context"
	"time"

	"trackersms/internal/domain"
	"trackersms/internal/store"
)

const modelSelect = `
	SELECT m.id, m.name, COALESCE(m.description,''), m.created_at, m.updated_at, COUNT(c.id)
	FROM device_models m
	LEFT JOIN commands c ON c.model_id = m.id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanModel(row rowScanner) (domain.DeviceModel, error) {
	var m domain.DeviceModel
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.CreatedAt, &m.UpdatedAt, &m.CommandCount)
	return m, err
}

func (s *Store) ListModels(ctx context.Context) ([]domain.DeviceModel, error) {
	rows, err := s.DB.Query(ctx, modelSelect+`
		GROUP BY m.id
		ORDER BY m.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.DeviceModel{}
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) GetModel(ctx context.Context, id int64) (domain.DeviceModel, error) {
	m, err := scanModel(s.DB.QueryRow(ctx, modelSelect+`
		WHERE m.id = $1
		GROUP BY m.id`, id))
	if err != nil {
		return domain.DeviceModel{}, mapErr(err)
	}
	return m, nil
}

func (s *Store) CreateModel(ctx context.Context, in domain.ModelInput, now time.Time) (domain.DeviceModel, error) {
	m := domain.DeviceModel{Name: in.Name, Description: in.Description, CreatedAt: now, UpdatedAt: now}
	err := s.DB.QueryRow(ctx, `
		INSERT INTO device_models (name, description, created_at, updated_at)
		VALUES ($1,$2,$3,$3)
		RETURNING id
	`, in.Name, nullIfEmpty(in.Description), now).Scan(&m.ID)
	if err != nil {
		return domain.DeviceModel{}, mapErr(err)
	}
	return m, nil
}

func (s *Store) UpdateModel(ctx context.Context, id int64, in domain.ModelInput, now time.Time) (domain.DeviceModel, error) {
	ct, err := s.DB.Exec(ctx, `
		UPDATE device_models SET name=$2, description=$3, updated_at=$4 WHERE id=$1
	`, id, in.Name, nullIfEmpty(in.Description), now)
	if err != nil {
		return domain.DeviceModel{}, mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return domain.DeviceModel{}, store.ErrNotFound
	}
	return s.GetModel(ctx, id)
}

func (s *Store) DeleteModel(ctx context.Context, id int64) error {
	ct, err := s.DB.Exec(ctx, `DELETE FROM device_models WHERE id=$1`, id)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CountCommands(ctx context.Context, modelID int64) (int, error) {
	var n int
	err := s.DB.QueryRow(ctx, `SELECT COUNT(*) FROM commands WHERE model_id=$1`, modelID).Scan(&n)
	return n, err
}
