package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteBuildsMessages(t *testing.T) {
	var seen []Message
	m := Func(func(_ context.Context, msgs []Message) (Message, error) {
		seen = msgs
		return Message{Role: RoleAssistant, Content: "  ok \n"}, nil
	})

	out, err := Complete(context.Background(), m, "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "prompt"}}, seen)

	_, err = Complete(context.Background(), m, " ", "prompt")
	require.NoError(t, err)
	assert.Len(t, seen, 1)
}

func TestCompleteErrors(t *testing.T) {
	_, err := Complete(context.Background(), nil, "", "p")
	assert.Error(t, err)

	boom := errors.New("boom")
	_, err = Complete(context.Background(), Func(func(context.Context, []Message) (Message, error) {
		return Message{}, boom
	}), "", "p")
	assert.True(t, errors.Is(err, boom))

	_, err = Complete(context.Background(), Func(func(context.Context, []Message) (Message, error) {
		return Message{Content: "   "}, nil
	}), "", "p")
	assert.True(t, errors.Is(err, ErrEmptyResponse))
}

func TestSplitSystem(t *testing.T) {
	system, rest := SplitSystem([]Message{
		{Role: RoleSystem, Content: "a"},
		{Role: RoleUser, Content: "u"},
		{Role: RoleSystem, Content: "b"},
		{Role: RoleAssistant, Content: "x"},
	})
	assert.Equal(t, "a\n\nb", system)
	assert.Equal(t, []Message{{Role: RoleUser, Content: "u"}, {Role: RoleAssistant, Content: "x"}}, rest)
}
