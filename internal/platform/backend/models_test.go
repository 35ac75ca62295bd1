package backend

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserIDMarshal(t *testing.T) {
	tests := []struct {
		id   UserID
		want string
	}{
		{"42", `42`},
		{"-3", `-3`},
		{"007", `"007"`},
		{"abc", `"abc"`},
		{"", `""`},
	}

	for _, tt := range tests {
		t.Run(string(tt.id), func(t *testing.T) {
			b, err := json.Marshal(userRequest{UserID: tt.id})
			require.NoError(t, err)
			assert.JSONEq(t, `{"user_id":`+tt.want+`}`, string(b))
		})
	}
}

func TestUserIDUnmarshal(t *testing.T) {
	tests := []struct {
		body    string
		want    UserID
		wantErr bool
	}{
		{`{"user_id":42}`, "42", false},
		{`{"user_id":"42"}`, "42", false},
		{`{"user_id":"u-9"}`, "u-9", false},
		{`{"user_id":null}`, "", false},
		{`{}`, "", false},
		{`{"user_id":true}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			var resp userIDResponse
			err := json.Unmarshal([]byte(tt.body), &resp)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.UserID)
		})
	}
}
