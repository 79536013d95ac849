package events

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewNATSPublisherWithoutConnectionIsNop(t *testing.T) {
	publisher := NewNATSPublisher(nil, "coursereg", zerolog.Nop())
	require.IsType(t, Nop{}, publisher)
	require.NoError(t, publisher.Publish(context.Background(), Event{Type: RegistrationPaid}))
}

func TestRecorderKeepsOrder(t *testing.T) {
	recorder := &Recorder{}
	ctx := context.Background()
	now := time.Date(2025, 1, 5, 8, 0, 0, 0, time.UTC)

	require.NoError(t, recorder.Publish(ctx, Event{Type: ClassMemberAdded, RegistrationID: 1, CourseID: 2, OccurredAt: now}))
	require.NoError(t, recorder.Publish(ctx, Event{Type: RegistrationSaved, RegistrationID: 1, Tuition: 100, OccurredAt: now}))

	require.Equal(t, []string{ClassMemberAdded, RegistrationSaved}, recorder.Types())
	require.Equal(t, uint(2), recorder.Events()[0].CourseID)
}
