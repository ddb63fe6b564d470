package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/techagentng/clubhub/db"
	apiError "github.com/techagentng/clubhub/errors"
	"github.com/techagentng/clubhub/models"
	"go.uber.org/zap"
)

func TestMarkReadIsIdempotent(t *testing.T) {
	e := newEnv(t)
	f := e.club
	ctx := context.Background()

	_, err := e.threads.Send(ctx, f.Carla, models.DirectThread(f.Sara.ID), "Well played")
	require.NoError(t, err)

	require.NoError(t, e.unread.MarkRead(ctx, f.Sara, f.Carla.ID, 0))
	require.NoError(t, e.unread.MarkRead(ctx, f.Sara, f.Carla.ID, 0))

	unread, err := e.unread.UnreadMap(ctx, f.Sara)
	require.NoError(t, err)
	assert.Empty(t, unread)
	assert.Len(t, e.notifier.read, 1)
}

func TestMarkReadUpToLeavesNewerUnread(t *testing.T) {
	e := newEnv(t)
	f := e.club
	ctx := context.Background()

	first, err := e.threads.Send(ctx, f.Ada, models.DirectThread(f.Paul.ID), "one")
	require.NoError(t, err)
	_, err = e.threads.Send(ctx, f.Ada, models.DirectThread(f.Paul.ID), "two")
	require.NoError(t, err)

	require.NoError(t, e.unread.MarkRead(ctx, f.Paul, f.Ada.ID, first.ID))
	unread, err := e.unread.UnreadMap(ctx, f.Paul)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int64{f.Ada.ID: 1}, unread)
}

func TestBroadcastUnreadFollowsReadMarkers(t *testing.T) {
	e := newEnv(t)
	f := e.club
	ctx := context.Background()
	category := models.CategoryThread(f.U13.ID)
	team := models.TeamThread(f.U13A.ID)

	_, err := e.threads.Send(ctx, f.Carla, category, "Match on Sunday")
	require.NoError(t, err)
	_, err = e.threads.Send(ctx, f.Carla, team, "Bring both kits")
	require.NoError(t, err)
	_, err = e.threads.Send(ctx, f.Ada, team, "Photos tomorrow")
	require.NoError(t, err)

	got, err := e.unread.BroadcastUnread(ctx, f.Sam)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int64{f.U13.ID: 1}, got.Categories)
	assert.Equal(t, map[uint]int64{f.U13A.ID: 2}, got.Teams)

	_, err = e.threads.Read(ctx, f.Sam, team, 0, 0)
	require.NoError(t, err)

	got, err = e.unread.BroadcastUnread(ctx, f.Sam)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int64{f.U13.ID: 1}, got.Categories)
	assert.Empty(t, got.Teams)

	// own posts never count as unread
	got, err = e.unread.BroadcastUnread(ctx, f.Carla)
	require.NoError(t, err)
	assert.Empty(t, got.Categories)
	assert.Equal(t, map[uint]int64{f.U13A.ID: 1}, got.Teams)

	// broadcasts stay out of the direct sidebar
	direct, err := e.unread.UnreadMap(ctx, f.Sam)
	require.NoError(t, err)
	assert.Empty(t, direct)
}

func TestUnreadClearsAfterSenderLeavesContacts(t *testing.T) {
	e := newEnv(t)
	f := e.club
	ctx := context.Background()

	_, err := e.threads.Send(ctx, f.Carla, models.DirectThread(f.Sam.ID), "See you Wednesday")
	require.NoError(t, err)

	require.NoError(t, e.db.DB.Model(&models.User{}).Where("id = ?", f.Sam.ID).
		Updates(map[string]interface{}{"category_id": f.U15.ID, "team_id": f.U15A.ID}).Error)
	sam, err := db.NewDirectoryRepo(e.db, zap.NewNop()).FindUserByID(ctx, f.Sam.ID)
	require.NoError(t, err)

	contacts, err := e.contacts.Resolve(ctx, sam)
	require.NoError(t, err)
	require.False(t, contacts.HasUser(f.Carla.ID))

	unread, err := e.unread.UnreadMap(ctx, sam)
	require.NoError(t, err)
	assert.Equal(t, map[uint]int64{f.Carla.ID: 1}, unread)

	messages, err := e.threads.Read(ctx, sam, models.DirectThread(f.Carla.ID), 0, 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)

	unread, err = e.unread.UnreadMap(ctx, sam)
	require.NoError(t, err)
	assert.Empty(t, unread)

	conversations, err := e.threads.Conversations(ctx, sam)
	require.NoError(t, err)
	require.Len(t, conversations, 1)
	assert.Equal(t, f.Carla.ID, conversations[0].Counterpart.ID)
	assert.Zero(t, conversations[0].UnreadCount)

	// history keeps the thread readable, not writable
	_, err = e.threads.Send(ctx, sam, models.DirectThread(f.Carla.ID), "Thanks coach")
	assert.ErrorIs(t, err, apiError.ErrForbidden)
}

func TestDirectThreadWithoutHistoryStaysForbidden(t *testing.T) {
	e := newEnv(t)
	f := e.club

	_, err := e.threads.Read(context.Background(), f.Sam, models.DirectThread(f.Paul.ID), 0, 0)
	assert.ErrorIs(t, err, apiError.ErrForbidden)
}
