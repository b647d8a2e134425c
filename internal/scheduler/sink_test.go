package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
)

func TestFanOutDeliversToEverySink(t *testing.T) {
	boom := errors.New("boom")
	var first, second []string

	sink := FanOut(
		SinkFunc(func(_ context.Context, e models.RunEvent) error {
			first = append(first, e.ID)
			return boom
		}),
		nil,
		SinkFunc(func(_ context.Context, e models.RunEvent) error {
			second = append(second, e.ID)
			return nil
		}),
	)

	err := sink.Emit(context.Background(), models.RunEvent{ID: "ev-1"})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"ev-1"}, first)
	assert.Equal(t, []string{"ev-1"}, second)

	assert.NoError(t, FanOut().Emit(context.Background(), models.RunEvent{}))
}
