package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/crm/backend/internal/domain/document"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/cache"
	"github.com/crm/backend/internal/infrastructure/event"
	"github.com/crm/backend/internal/testutil"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 1, hour, minute, 0, 0, time.UTC)
}

type fixture struct {
	svc     *Service
	store   document.Store
	markers *cache.InMemoryReadMarkerStore
	clock   time.Time
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		store:   testutil.NewDocumentStore(t),
		markers: cache.NewInMemoryReadMarkerStore(),
		clock:   at(12, 30),
	}
	f.svc = NewService(f.store, f.markers, "", nil, zap.NewNop())
	f.svc.now = func() time.Time { return f.clock }
	testutil.Seed(t, f.store, document.CollectionNotifications, map[string]document.Fields{
		"a": {"title": "Low one", "priority": "low", "time": at(10, 0).Format(time.RFC3339)},
		"b": {"title": "Urgent", "priority": "Very High", "time": at(12, 0).Format(time.RFC3339)},
		"c": {"title": "Medium one", "priority": "medium", "time": at(11, 0).Format(time.RFC3339)},
	})
	return f
}

func ids(view *PanelView) []string {
	out := make([]string, 0, len(view.Notifications))
	for _, n := range view.Notifications {
		out = append(out, n.ID)
	}
	return out
}

func TestService_UnreadCountWithoutMarker(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.UnreadCount(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, res.UnreadCount)
	assert.Nil(t, res.LastReadTime)
}

func TestService_OpenRendersNewestFirst(t *testing.T) {
	f := newFixture(t)

	view, err := f.svc.OpenPanel(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, view.Open)
	assert.Equal(t, []string{"b", "c", "a"}, ids(view))
	assert.Equal(t, 3, view.UnreadCount)
	assert.Equal(t, "very low", view.MinPriority)
	assert.Len(t, view.Options, 5)
	assert.Equal(t, "red", view.Notifications[0].Style.Color)
	assert.True(t, view.Notifications[0].Unread)
}

func TestService_CloseMarksEverythingRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.OpenPanel(ctx, "u1")
	require.NoError(t, err)
	f.clock = at(13, 0)

	res, err := f.svc.ClosePanel(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, res.UnreadCount)
	require.NotNil(t, res.LastReadTime)
	assert.True(t, at(13, 0).Equal(*res.LastReadTime))

	badge, err := f.svc.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, badge.UnreadCount)
}

func TestService_ArrivalAfterCloseCountsAsUnread(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.OpenPanel(ctx, "u1")
	require.NoError(t, err)
	_, err = f.svc.ClosePanel(ctx, "u1")
	require.NoError(t, err)

	arrival := at(14, 0)
	_, err = f.svc.Publish(ctx, PublishInput{Title: "New lead", Priority: "high", Time: &arrival})
	require.NoError(t, err)

	badge, err := f.svc.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, badge.UnreadCount)
}

func TestService_FilterDoesNotChangeUnreadCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.markers.Set(ctx, "u1", at(10, 30)))

	_, err := f.svc.OpenPanel(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, f.svc.SetFilter(ctx, "u1", "very high"))

	view, err := f.svc.PanelView(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(view))
	assert.Equal(t, 2, view.UnreadCount)

	view, err = f.svc.PanelView(ctx, "u1", "medium")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids(view))
	assert.Equal(t, 2, view.UnreadCount)
	assert.True(t, view.Notifications[1].Unread)
}

func TestService_CloseWithFutureNotificationUsesNewestTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.Seed(t, f.store, document.CollectionNotifications, map[string]document.Fields{
		"future": {"title": "Clock skew", "priority": "low", "time": at(18, 0).Format(time.RFC3339)},
	})

	_, err := f.svc.OpenPanel(ctx, "u1")
	require.NoError(t, err)
	res, err := f.svc.ClosePanel(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, at(18, 0).Equal(*res.LastReadTime))

	badge, err := f.svc.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, badge.UnreadCount)
}

func TestService_CloseNeverMovesMarkerBackwards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.markers.Set(ctx, "u1", at(20, 0)))

	_, err := f.svc.OpenPanel(ctx, "u1")
	require.NoError(t, err)
	res, err := f.svc.ClosePanel(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, at(20, 0).Equal(*res.LastReadTime))
}

func TestService_CloseWhenNotOpenIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.ClosePanel(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, res.UnreadCount)

	m, err := f.markers.Get(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, m.IsSet())
}

func TestService_PanelViewRequiresOpenPanel(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.PanelView(context.Background(), "u1", "")
	assert.ErrorIs(t, err, ErrPanelNotOpen)
	assert.ErrorIs(t, f.svc.SetFilter(context.Background(), "u1", "high"), ErrPanelNotOpen)
}

func TestService_SignOutDropsPanel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bus := event.NewInMemoryEventBus(zap.NewNop())
	f.svc.RegisterHandlers(bus)

	_, err := f.svc.OpenPanel(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, bus.Publish(ctx, identity.NewSignedOutEvent("u1")))

	_, err = f.svc.PanelView(ctx, "u1", "")
	assert.ErrorIs(t, err, ErrPanelNotOpen)
}

// flakyMarkers fails the next Set when failNext is set
type flakyMarkers struct {
	*cache.InMemoryReadMarkerStore
	failNext bool
}

func (m *flakyMarkers) Set(ctx context.Context, userID string, lastRead time.Time) error {
	if m.failNext {
		m.failNext = false
		return errors.New("redis down")
	}
	return m.InMemoryReadMarkerStore.Set(ctx, userID, lastRead)
}

func TestService_FailedCloseKeepsPanelOpenForRetry(t *testing.T) {
	f := newFixture(t)
	markers := &flakyMarkers{InMemoryReadMarkerStore: f.markers, failNext: true}
	f.svc.markers = markers
	ctx := context.Background()

	_, err := f.svc.OpenPanel(ctx, "u1")
	require.NoError(t, err)
	f.clock = at(13, 0)

	_, err = f.svc.ClosePanel(ctx, "u1")
	require.Error(t, err)
	de, ok := shared.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, "INTERNAL_ERROR", de.Code)

	view, err := f.svc.PanelView(ctx, "u1", "")
	require.NoError(t, err)
	assert.True(t, view.Open)
	assert.Equal(t, 3, view.UnreadCount)

	res, err := f.svc.ClosePanel(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, res.UnreadCount)
	require.NotNil(t, res.LastReadTime)
	assert.True(t, at(13, 0).Equal(*res.LastReadTime))

	badge, err := f.svc.UnreadCount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, badge.UnreadCount)
	_, err = f.svc.PanelView(ctx, "u1", "")
	assert.ErrorIs(t, err, ErrPanelNotOpen)
}

func TestService_FetchFailure(t *testing.T) {
	store := new(testutil.MockDocumentStore)
	store.On("List", mock.Anything, document.CollectionNotifications).Return(nil, errors.New("connection reset"))
	svc := NewService(store, cache.NewInMemoryReadMarkerStore(), "", nil, zap.NewNop())

	_, err := svc.OpenPanel(context.Background(), "u1")
	require.Error(t, err)
	de, ok := shared.AsDomainError(err)
	require.True(t, ok)
	assert.Equal(t, "INTERNAL_ERROR", de.Code)

	_, err = svc.UnreadCount(context.Background(), "u1")
	assert.Error(t, err)
	store.AssertExpectations(t)
}

func TestService_PublishValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Publish(ctx, PublishInput{Title: "x", Priority: "asap"})
	assert.ErrorIs(t, err, ErrUnknownPriority)

	_, err = f.svc.Publish(ctx, PublishInput{Title: "  ", Priority: "low"})
	assert.Error(t, err)

	created, err := f.svc.Publish(ctx, PublishInput{Title: "Deal", Body: "Acme signed", Priority: "Very High"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "very high", created.Priority)
	assert.True(t, f.clock.Equal(*created.Time))
}
