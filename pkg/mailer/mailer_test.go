package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

func TestMessageValidate(t *testing.T) {
	assert.Error(t, Message{Subject: "Lesson Reminder"}.Validate())
	assert.Error(t, Message{To: "student@example.com"}.Validate())
	assert.NoError(t, Message{To: "student@example.com", Subject: "Lesson Reminder"}.Validate())
}

func TestBuildMsg(t *testing.T) {
	m, err := buildMsg("no-reply@yourdrivingapp.com", Message{To: "student@example.com", Subject: "Lesson Reminder", Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Lesson Reminder"}, m.GetGenHeader(mail.HeaderSubject))
}

func TestBuildMsgRejectsBadRecipient(t *testing.T) {
	_, err := buildMsg("no-reply@yourdrivingapp.com", Message{To: "not an address", Subject: "Lesson Reminder"})
	require.Error(t, err)
}
