package email_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/notifyhub/pkg/email"
)

func TestSendEmailParams_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		params  email.SendEmailParams
		wantErr bool
	}{
		{
			name: "valid",
			params: email.SendEmailParams{
				SendTo:   "user@example.com",
				Subject:  "New follower",
				BodyHTML: "<p>U3 followed you</p>",
			},
		},
		{
			name: "missing recipient",
			params: email.SendEmailParams{
				Subject:  "New follower",
				BodyHTML: "<p>hi</p>",
			},
			wantErr: true,
		},
		{
			name: "malformed recipient",
			params: email.SendEmailParams{
				SendTo:   "not-an-email",
				Subject:  "New follower",
				BodyHTML: "<p>hi</p>",
			},
			wantErr: true,
		},
		{
			name: "missing subject",
			params: email.SendEmailParams{
				SendTo:   "user@example.com",
				BodyHTML: "<p>hi</p>",
			},
			wantErr: true,
		},
		{
			name: "missing body",
			params: email.SendEmailParams{
				SendTo:  "user@example.com",
				Subject: "New follower",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.params.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, email.ErrInvalidParams)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
