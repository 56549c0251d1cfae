package domain

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

type HistoryStatus string

const (
	StatusSent    HistoryStatus = "sent"
	StatusFailed  HistoryStatus = "failed"
	StatusPending HistoryStatus = "pending"
)

const (
	MaxModelNameLen   = 100
	MaxCommandTextLen = 500
)

type DeviceModel struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	CommandCount int       `json:"command_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Command struct {
	ID          int64     `json:"id"`
	ModelID     int64     `json:"model_id"`
	ModelName   string    `json:"model_name,omitempty"`
	CommandText string    `json:"command_text"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SmsHistory is one immutable audit row per attempted transmission.
type SmsHistory struct {
	ID           int64           `json:"id"`
	PhoneNumber  string          `json:"phone_number"`
	ModelID      *int64          `json:"model_id"`
	ModelName    string          `json:"model_name,omitempty"`
	CommandText  string          `json:"command_text"`
	Status       string          `json:"status"`
	SentAt       time.Time       `json:"sent_at"`
	Details      string          `json:"details"`
	Notes        string          `json:"notes"`
	ResponseData json.RawMessage `json:"response_data,omitempty"`
}

type ModelInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (in ModelInput) Normalize() (ModelInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return in, Validation("Model name is required", nil)
	}
	if utf8.RuneCountInString(in.Name) > MaxModelNameLen {
		return in, Validation("Model name is too long", map[string]int{"max": MaxModelNameLen})
	}
	return in, nil
}

type CommandInput struct {
	ModelID     int64  `json:"model_id"`
	CommandText string `json:"command_text"`
	Description string `json:"description"`
}

// Normalize validates the text fields only; ModelID is checked by callers
// that create commands, since updates address the command by its own id.
func (in CommandInput) Normalize() (CommandInput, error) {
	in.CommandText = strings.TrimSpace(in.CommandText)
	in.Description = strings.TrimSpace(in.Description)
	if in.CommandText == "" {
		return in, Validation("Command text is required", nil)
	}
	if utf8.RuneCountInString(in.CommandText) > MaxCommandTextLen {
		return in, Validation("Command text is too long", map[string]int{"max": MaxCommandTextLen})
	}
	return in, nil
}

type SendRequest struct {
	PhoneNumbers []string `json:"phoneNumbers"`
	ModelID      int64    `json:"modelId"`
	CommandText  string   `json:"commandText"`
	Notes        string   `json:"notes,omitempty"`
}

// UnmarshalJSON accepts modelId as a JSON number or a numeric string.
func (r *SendRequest) UnmarshalJSON(b []byte) error {
	type plain SendRequest
	aux := struct {
		*plain
		ModelID json.RawMessage `json:"modelId"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	id, ok := parseFlexibleID(aux.ModelID)
	if !ok {
		value := "number"
		if strings.HasPrefix(strings.TrimSpace(string(aux.ModelID)), `"`) {
			value = "string"
		}
		return &json.UnmarshalTypeError{Value: value, Type: reflect.TypeOf(int64(0)), Field: "modelId"}
	}
	r.ModelID = id
	return nil
}

// parseFlexibleID reads an absent, null or empty id as 0.
func parseFlexibleID(raw json.RawMessage) (int64, bool) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, true
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		if s = strings.TrimSpace(s); s == "" {
			return 0, true
		}
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

type SendResult struct {
	PhoneNumber string `json:"phoneNumber"`
	Status      string `json:"status"`
	MessageID   string `json:"messageId,omitempty"`
	Details     string `json:"details"`
	HistoryID   int64  `json:"historyId"`
}

type SendError struct {
	PhoneNumber string `json:"phoneNumber"`
	Error       string `json:"error"`
}

type SendSummary struct {
	Total  int `json:"total"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

type SendResponse struct {
	Results []SendResult `json:"results"`
	Errors  []SendError  `json:"errors,omitempty"`
	Summary SendSummary  `json:"summary"`
}
