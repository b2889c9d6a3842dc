package api

import (
	"encoding/json"
	"strings"
	"time"
)

// timestampLayouts covers the naive and zoned forms the backend emits.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

// ParseTimestamp parses a backend timestamp. Naive values are read as UTC.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// User mirrors the backend profile record.
type User struct {
	ID           int64   `json:"id"`
	Username     string  `json:"username"`
	Email        string  `json:"email"`
	DouyinUserID *string `json:"douyin_user_id"`
	IsActive     bool    `json:"is_active"`
	CreatedAt    string  `json:"created_at"`
}

// DouyinLinked reports whether the account has completed the OAuth handoff.
func (u *User) DouyinLinked() bool {
	return u != nil && u.DouyinUserID != nil && strings.TrimSpace(*u.DouyinUserID) != ""
}

// Credentials are the username and password exchanged for a bearer token.
type Credentials struct {
	Username string
	Password string
}

// TokenResponse is returned by the token exchange.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Registration is the profile submitted when creating an account.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Video is a locally managed work.
type Video struct {
	ID            int64   `json:"id"`
	Title         string  `json:"title"`
	Description   *string `json:"description"`
	Status        string  `json:"status"`
	PublishStatus *string `json:"publish_status"`
	DouyinURL     *string `json:"douyin_url"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// UploadedVideo is returned after a successful upload.
type UploadedVideo struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	FilePath string `json:"file_path"`
}

// UpdatedVideo is returned after an update.
type UpdatedVideo struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
}

// VideoUpdate carries the optional fields of an update. Nil fields are left
// unchanged by the backend.
type VideoUpdate struct {
	Title       *string
	Description *string
}

// Message is the generic acknowledgement body.
type Message struct {
	Message string `json:"message"`
}

// Generation is the result of an AI generation call.
type Generation struct {
	Success  bool            `json:"success"`
	Result   string          `json:"result,omitempty"`
	Model    string          `json:"model,omitempty"`
	FilePath string          `json:"file_path,omitempty"`
	Prompt   string          `json:"prompt,omitempty"`
	Error    string          `json:"error,omitempty"`
	Usage    json.RawMessage `json:"usage,omitempty"`
}

// DouyinAuth carries the OAuth authorization URL.
type DouyinAuth struct {
	AuthURL string `json:"auth_url"`
}

// DouyinLink is returned once the OAuth callback has been exchanged.
type DouyinLink struct {
	Message  string          `json:"message"`
	UserInfo json.RawMessage `json:"user_info,omitempty"`
}

// PublishTask acknowledges a publish request.
type PublishTask struct {
	Message string `json:"message"`
	TaskID  string `json:"task_id"`
}

// Document is an upstream Douyin response kept verbatim. The backend passes
// these through without a schema.
type Document struct {
	Raw json.RawMessage
}

// UnmarshalJSON keeps the upstream document verbatim.
func (d *Document) UnmarshalJSON(data []byte) error {
	d.Raw = append(d.Raw[:0], data...)
	return nil
}

// MarshalJSON emits the upstream document verbatim.
func (d Document) MarshalJSON() ([]byte, error) {
	if len(d.Raw) == 0 {
		return []byte("null"), nil
	}
	return d.Raw, nil
}

// Status extracts data.status when present.
func (d Document) Status() string {
	var doc struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(d.Raw, &doc); err != nil {
		return ""
	}
	return doc.Data.Status
}

// Health is the backend liveness body.
type Health struct {
	Status string `json:"status"`
}
