package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// UserID is the backend's user identifier. The backend keys users by an
// integer but the id round-trips through string storage, so it is kept as text
// and written back as a JSON number whenever it is one.
type UserID string

func (id UserID) String() string { return string(id) }

// IsZero reports whether no id is set
func (id UserID) IsZero() bool { return id == "" }

func (id UserID) MarshalJSON() ([]byte, error) {
	s := string(id)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && strconv.FormatInt(n, 10) == s {
		return []byte(s), nil
	}
	return json.Marshal(s)
}

func (id *UserID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("user_id must be a string or number: %w", err)
	}
	*id = UserID(n.String())
	return nil
}

// User is the profile returned by /backend/users/get
type User struct {
	ID    UserID `json:"user_id,omitempty"`
	Email string `json:"email"`
}

type savedImageRecord struct {
	Path string `json:"sd_image_path"`
}

type userRequest struct {
	UserID UserID `json:"user_id"`
}

type savedImageRequest struct {
	UserID UserID `json:"user_id"`
	Path   string `json:"sd_image_path"`
}

type generatedImageRequest struct {
	UserID UserID `json:"user_id"`
	Path   string `json:"g_image_path"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type userIDResponse struct {
	UserID UserID `json:"user_id"`
}

type searchRequest struct {
	Query string `json:"query"`
}
