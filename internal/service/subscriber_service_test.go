package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSubscriberService_Link(t *testing.T) {
	f := newFixture(t)
	subscribers := NewSubscriberService(f.store.Subscribers(), "RU", zap.NewNop())
	ctx := context.Background()

	first, err := subscribers.Link(ctx, "+7 999 123-45-67", 1001, "anna", "Anna")
	require.NoError(t, err)
	assert.Equal(t, "79991234567", first.Phone)

	owns, err := subscribers.OwnsPhone(ctx, "79991234567", 1001)
	require.NoError(t, err)
	assert.True(t, owns)

	// Телефон перепривязан к другому чату
	second, err := subscribers.Link(ctx, "79991234567", 2002, "anna", "Anna")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	owns, err = subscribers.OwnsPhone(ctx, "79991234567", 1001)
	require.NoError(t, err)
	assert.False(t, owns)

	_, err = subscribers.Link(ctx, "not a phone", 1, "", "")
	assert.True(t, IsValidation(err))
}
