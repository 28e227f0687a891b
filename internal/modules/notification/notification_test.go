package notification

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/social-agent/core/internal/models"
	"github.com/social-agent/core/internal/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.NotificationModel{}))
	return NewService(db), db
}

func seed(t *testing.T, db *gorm.DB, userID string, read bool) *models.NotificationModel {
	t.Helper()
	n := &models.NotificationModel{
		UserID: userID,
		Type:   models.NotifyDesignReview,
		Title:  "Design ready for review",
		Read:   read,
	}
	require.NoError(t, db.Create(n).Error)
	return n
}

func TestListScopedToUser(t *testing.T) {
	svc, db := newTestService(t)
	seed(t, db, "u1", false)
	seed(t, db, "u2", false)

	rows, pag, err := svc.List("u1", pagination.Query{Page: 1, Size: 20}, false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "u1", rows[0].UserID)
	assert.EqualValues(t, 1, pag.Total)
}

func TestListUnreadOnly(t *testing.T) {
	svc, db := newTestService(t)
	seed(t, db, "u1", true)
	unread := seed(t, db, "u1", false)

	rows, _, err := svc.List("u1", pagination.Query{Page: 1, Size: 20}, true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, unread.ID, rows[0].ID)
}

func TestUnreadCount(t *testing.T) {
	svc, db := newTestService(t)
	seed(t, db, "u1", false)
	seed(t, db, "u1", false)
	seed(t, db, "u1", true)

	count, err := svc.UnreadCount("u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)
}

func TestMarkReadOwnershipEnforced(t *testing.T) {
	svc, db := newTestService(t)
	n := seed(t, db, "u1", false)

	assert.ErrorIs(t, svc.MarkRead("u2", n.ID), ErrNotFound)
	require.NoError(t, svc.MarkRead("u1", n.ID))

	count, err := svc.UnreadCount("u1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMarkAllRead(t *testing.T) {
	svc, db := newTestService(t)
	seed(t, db, "u1", false)
	seed(t, db, "u1", false)
	seed(t, db, "u2", false)

	marked, err := svc.MarkAllRead("u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, marked)

	other, err := svc.UnreadCount("u2")
	require.NoError(t, err)
	assert.EqualValues(t, 1, other, "other users untouched")
}
