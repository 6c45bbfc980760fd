package mail

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/hieplh/ata-sample-webapp/config"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	f.sent = append(f.sent, m...)
	return f.err
}

func TestSendActivation(t *testing.T) {
	d := &fakeDialer{}
	m := NewMailerWithDialer(d, &config.MailConfig{From: "noreply@example.com", Subject: "Activate"}, "http://localhost:8000/", zap.NewNop())

	require.NoError(t, m.SendActivation(context.Background(), "alice@example.com", "alice", 1234))
	require.Len(t, d.sent, 1)

	msg := d.sent[0]
	assert.Equal(t, []string{"alice@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"Activate"}, msg.GetHeader("Subject"))

	assert.Equal(t, "http://localhost:8000/active_user/alice/1234", m.ActivationLink("alice", 1234))
}

func TestRenderActivation(t *testing.T) {
	body, err := renderActivation("alice@example.com", "http://h/active_user/alice/1234")
	require.NoError(t, err)
	assert.Contains(t, body, `href="http://h/active_user/alice/1234"`)
	assert.Contains(t, body, "alice@example.com")
}

func TestSendActivation_ReceiverOverride(t *testing.T) {
	d := &fakeDialer{}
	m := NewMailerWithDialer(d, &config.MailConfig{ReceiverOverride: "qa@example.com"}, "http://h", zap.NewNop())

	require.NoError(t, m.SendActivation(context.Background(), "alice@example.com", "alice", 1000))
	assert.Equal(t, []string{"qa@example.com"}, d.sent[0].GetHeader("To"))
}

func TestSendActivation_DialError(t *testing.T) {
	d := &fakeDialer{err: errors.New("smtp down")}
	m := NewMailerWithDialer(d, &config.MailConfig{}, "http://h", zap.NewNop())

	assert.Error(t, m.SendActivation(context.Background(), "a@b.c", "a", 1000))
}
