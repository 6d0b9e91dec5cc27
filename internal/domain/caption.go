package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// CaptionSource indicates how a caption set was produced.
// Values are CaptionSourceModel and CaptionSourceTemplate.
type CaptionSource string

const (
	CaptionSourceModel    CaptionSource = "model"
	CaptionSourceTemplate CaptionSource = "template"
)

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the slice.
//   - error: non-nil if marshaling fails.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// Caption represents one caption-generation request and its result.
// Each row is also a quota ledger entry: a user's daily usage is derived by
// counting rows in the day window, never from a separate counter.
type Caption struct {
	ID         string        `gorm:"type:text;primaryKey" json:"id"`
	UserID     string        `gorm:"type:text;not null;index:idx_captions_user_created" json:"user_id"`
	Username   string        `gorm:"type:text" json:"username,omitempty"`
	ImageURL   string        `gorm:"type:text;not null" json:"image_url"`
	ImageName  string        `gorm:"type:text" json:"image_name"`
	ImageID    string        `gorm:"type:text;uniqueIndex:idx_captions_image_id" json:"image_id,omitempty"`
	StorageKey string        `gorm:"type:text" json:"storage_key,omitempty"`
	Mood       string        `gorm:"type:text;not null;index:idx_captions_mood" json:"mood"`
	Captions   StringArray   `gorm:"type:text;not null" json:"captions"`
	Source     CaptionSource `gorm:"type:text;default:model" json:"source"`
	CreatedAt  time.Time     `gorm:"index:idx_captions_user_created" json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// TableName returns the database table name for Caption.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Caption) TableName() string {
	return "captions"
}

// CaptionResult is the outcome of one generation: exactly three captions and
// the source they came from.
type CaptionResult struct {
	ID       string        `json:"id"`
	ImageID  string        `json:"image_id"`
	Captions []string      `json:"captions"`
	Mood     string        `json:"mood"`
	Source   CaptionSource `json:"source"`
}

// QuotaDecision is the answer to "may this user make a request right now".
type QuotaDecision struct {
	Allowed     bool      `json:"allowed"`
	Remaining   int       `json:"remaining"`
	Limit       int       `json:"limit"`
	Used        int       `json:"used"`
	ResetAt     time.Time `json:"reset_at"`
	Whitelisted bool      `json:"whitelisted"`
}

// QuotaStatus is an introspection snapshot of a user's daily usage.
type QuotaStatus struct {
	UserID         string    `json:"user_id"`
	Used           int       `json:"used"`
	Remaining      int       `json:"remaining"`
	Limit          int       `json:"limit"`
	ResetAt        time.Time `json:"reset_at"`
	PercentageUsed int       `json:"percentage_used"`
	IsLimited      bool      `json:"is_limited"`
	Whitelisted    bool      `json:"whitelisted"`
}

// DailyCount is one day of a user's request history.
type DailyCount struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// MoodCount is a per-mood record count for usage reporting.
type MoodCount struct {
	Mood  string `json:"mood"`
	Total int    `json:"total"`
}

// UserCount is a per-user record count for an aggregation window.
type UserCount struct {
	UserID string `json:"user_id"`
	Total  int    `json:"total"`
}

// GlobalStats aggregates today's usage across all users.
type GlobalStats struct {
	TotalUsers             int     `json:"total_users"`
	TotalRequests          int     `json:"total_requests"`
	AverageRequestsPerUser float64 `json:"average_requests_per_user"`
	MaxRequestsByUser      int     `json:"max_requests_by_user"`
	UsersAtLimit           int     `json:"users_at_limit"`
}
