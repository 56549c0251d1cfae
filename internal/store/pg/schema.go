package pg

import (
	"context"
	"fmt"
	"log/slog"
)

// schema is applied at every startup; all statements are idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS device_models (
    id          SERIAL PRIMARY KEY,
    name        VARCHAR(100) NOT NULL UNIQUE,
    description TEXT,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS commands (
    id           SERIAL PRIMARY KEY,
    model_id     INTEGER NOT NULL REFERENCES device_models(id) ON DELETE CASCADE,
    command_text VARCHAR(500) NOT NULL,
    description  TEXT,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (model_id, command_text)
);
CREATE INDEX IF NOT EXISTS idx_commands_model_id ON commands(model_id);

-- model_id is deliberately not a foreign key: history rows outlive their model.
CREATE TABLE IF NOT EXISTS sms_history (
    id            SERIAL PRIMARY KEY,
    phone_number  VARCHAR(20) NOT NULL,
    model_id      INTEGER,
    command_text  VARCHAR(500) NOT NULL,
    status        VARCHAR(20) NOT NULL DEFAULT 'pending',
    sent_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    details       TEXT,
    notes         TEXT,
    response_data JSONB
);
CREATE INDEX IF NOT EXISTS idx_sms_history_sent_at ON sms_history(sent_at DESC);
CREATE INDEX IF NOT EXISTS idx_sms_history_status ON sms_history(status);
CREATE INDEX IF NOT EXISTS idx_sms_history_model_id ON sms_history(model_id);
CREATE INDEX IF NOT EXISTS idx_sms_history_phone ON sms_history(phone_number);

CREATE TABLE IF NOT EXISTS sms_messages (
    id         SERIAL PRIMARY KEY,
    phone      VARCHAR(20) NOT NULL,
    message    TEXT NOT NULL,
    sender     VARCHAR(100),
    status     VARCHAR(20) NOT NULL DEFAULT 'pending',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

type seedModel struct {
	Name        string
	Description string
	Commands    [][2]string
}

var demoModels = []seedModel{
	{
		Name:        "TK103",
		Description: "Coban TK103 vehicle tracker",
		Commands: [][2]string{
			{"RESET123456", "Restart the tracker"},
			{"STATUS123456", "Report device status"},
			{"fix030s***n123456", "Report position every 30 seconds"},
			{"nofix123456", "Stop periodic reporting"},
		},
	},
	{
		Name:        "GT06",
		Description: "Concox GT06 GPS tracker",
		Commands: [][2]string{
			{"RESET#", "Restart the tracker"},
			{"STATUS#", "Report device status"},
			{"WHERE#", "Report current position"},
		},
	},
	{
		Name:        "TK102",
		Description: "Xexun TK102 personal tracker",
		Commands: [][2]string{
			{"begin123456", "Reset to factory defaults"},
			{"check123456", "Report device status"},
		},
	},
	{
		Name:        "ST901",
		Description: "SinoTrack ST-901 motorcycle tracker",
		Commands: [][2]string{
			{"RESET", "Restart the tracker"},
			{"8040000", "Query device parameters"},
		},
	},
}

// EnsureSchema creates the tables and, when seed is set, the demo models and commands.
func (s *Store) EnsureSchema(ctx context.Context, seed bool) error {
	if _, err := s.DB.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if !seed {
		return nil
	}
	for _, m := range demoModels {
		var modelID int64
		err := s.DB.QueryRow(ctx, `
			INSERT INTO device_models (name, description) VALUES ($1, $2)
			ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
			RETURNING id
		`, m.Name, m.Description).Scan(&modelID)
		if err != nil {
			return fmt.Errorf("seed model %s: %w", m.Name, err)
		}
		for _, c := range m.Commands {
			if _, err := s.DB.Exec(ctx, `
				INSERT INTO commands (model_id, command_text, description) VALUES ($1, $2, $3)
				ON CONFLICT (model_id, command_text) DO NOTHING
			`, modelID, c[0], c[1]); err != nil {
				return fmt.Errorf("seed command %s/%s: %w", m.Name, c[0], err)
			}
		}
	}
	slog.Info("demo data ensured", "models", len(demoModels))
	return nil
}
