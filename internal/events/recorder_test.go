package events

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpheneDev/VenuePlus-sub000/internal/cooldown"
	"github.com/SpheneDev/VenuePlus-sub000/internal/db"
	"github.com/SpheneDev/VenuePlus-sub000/internal/dispatch"
	"github.com/SpheneDev/VenuePlus-sub000/internal/models"
	"github.com/SpheneDev/VenuePlus-sub000/internal/scheduler"
)

type fakeRunStore struct {
	created   []*models.Run
	completed []*models.Run
}

func (s *fakeRunStore) Create(ctx context.Context, run *models.Run) error {
	s.created = append(s.created, run)
	return nil
}

func (s *fakeRunStore) Complete(ctx context.Context, run *models.Run) error {
	s.completed = append(s.completed, run)
	return nil
}

type fakeEventStore struct {
	events []*models.RunEvent
}

func (s *fakeEventStore) Create(ctx context.Context, event *models.RunEvent) error {
	s.events = append(s.events, event)
	return nil
}

func TestRecorderRejectsMissingPayload(t *testing.T) {
	rec := NewRecorder(&fakeRunStore{}, &fakeEventStore{})
	err := rec.Emit(context.Background(), models.RunEvent{RunID: "r1", Type: models.EventTypeRunSubmitted})
	require.Error(t, err)
}

func TestRecorderPersistsRunnerHistory(t *testing.T) {
	ctx := context.Background()
	database, err := db.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	_, err = database.MigrateUp(ctx)
	require.NoError(t, err)

	runs := db.NewRunRepository(database)
	eventRepo := db.NewEventRepository(database)
	recorder := NewRecorder(runs, eventRepo)

	runner := scheduler.New(scheduler.DefaultConfig(), cooldown.NewGate(), dispatch.Discard,
		scheduler.WithEventSink(recorder),
		scheduler.WithLogger(zerolog.Nop()),
	)

	now := time.Date(2026, 4, 3, 21, 0, 0, 0, time.UTC)
	first := runner.SubmitRun(scheduler.Submission{
		Steps:   []models.Step{models.Send("/em waves"), models.Wait(5), models.Send("/em bows")},
		Source:  "text",
		Channel: models.ChannelEmote,
	}, now)
	runner.Tick(ctx, now)

	second := runner.Submit([]models.Step{models.Send("/em cheers")}, now.Add(time.Second))
	runner.Tick(ctx, now.Add(time.Second))

	replaced, err := runs.Get(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeReplaced, replaced.Outcome)
	assert.Equal(t, 1, replaced.Sent)
	assert.Equal(t, "emote", replaced.Channel)
	require.NotNil(t, replaced.CompletedAt)

	done, err := runs.Get(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAllSent, done.Outcome)
	assert.Equal(t, 1, done.SendCount)

	firstEvents, err := eventRepo.ListByRun(ctx, first, 0)
	require.NoError(t, err)
	var types []models.EventType
	for _, e := range firstEvents {
		types = append(types, e.Type)
	}
	assert.Equal(t, []models.EventType{
		models.EventTypeRunSubmitted,
		models.EventTypeStepDispatched,
		models.EventTypeStepWaited,
		models.EventTypeRunReplaced,
	}, types)

	list, err := runs.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestRecorderFakeStores(t *testing.T) {
	runs := &fakeRunStore{}
	store := &fakeEventStore{}
	rec := NewRecorder(runs, store)

	runner := scheduler.New(scheduler.DefaultConfig(), nil, nil,
		scheduler.WithEventSink(rec),
		scheduler.WithLogger(zerolog.Nop()),
	)
	now := time.Date(2026, 4, 3, 21, 0, 0, 0, time.UTC)
	runner.Submit(nil, now)
	runner.Tick(context.Background(), now)

	require.Len(t, runs.created, 1)
	require.Len(t, runs.completed, 1)
	assert.Equal(t, models.OutcomeFailed, runs.completed[0].Outcome)
	assert.Len(t, store.events, 2)
}
