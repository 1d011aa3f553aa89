package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{MessageID: len(f.sent)}, f.err
}

func TestPublishSummarySendsToChat(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	n := NewNotifier(sender, 42)

	require.NoError(t, n.PublishSummary(context.Background(), "Camera updates: 2 found\n"))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, int64(42), sender.sent[0].ChatID)
	assert.Equal(t, "Camera updates: 2 found", sender.sent[0].Text)
	assert.True(t, sender.sent[0].DisableWebPagePreview)
}

func TestPublishSummaryClipsLongText(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	n := NewNotifier(sender, 1)

	require.NoError(t, n.PublishSummary(context.Background(), strings.Repeat("ж", MaxMessageRunes+50)))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, MaxMessageRunes, utf8.RuneCountInString(sender.sent[0].Text))
	assert.True(t, strings.HasSuffix(sender.sent[0].Text, "..."))
}

func TestPublishSummaryErrors(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, NewNotifier(nil, 1).PublishSummary(context.Background(), "x"), ErrMisconfigured)

	failing := NewNotifier(&fakeSender{err: errors.New("forbidden")}, 1)
	err := failing.PublishSummary(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sender := &fakeSender{}
	assert.ErrorIs(t, NewNotifier(sender, 1).PublishSummary(ctx, "x"), context.Canceled)
	assert.Empty(t, sender.sent)
}

func TestDialValidatesSettings(t *testing.T) {
	t.Parallel()

	_, err := Dial("", "1")
	assert.ErrorIs(t, err, ErrMisconfigured)

	_, err = Dial("token", "not-a-number")
	assert.Error(t, err)
}
