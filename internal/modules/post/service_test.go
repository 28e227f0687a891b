package post

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/social-agent/core/internal/models"
	"github.com/social-agent/core/internal/pkg/keylock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2025, 7, 15, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.ClientModel{},
		&models.UserModel{},
		&models.PostModel{},
		&models.PostCommentModel{},
		&models.WorkflowHistoryModel{},
		&models.PublishLogModel{},
		&models.NotificationModel{},
		&models.TaskModel{},
	))

	client := models.ClientModel{Name: "Acme"}
	client.ID = "client-1"
	require.NoError(t, db.Create(&client).Error)

	svc := NewService(db, keylock.New())
	svc.now = func() time.Time { return testNow }
	return svc, db
}

func seedPost(t *testing.T, db *gorm.DB, mutate func(*models.PostModel)) *models.PostModel {
	t.Helper()
	post := &models.PostModel{
		ClientID:      "client-1",
		Topic:         "Summer campaign",
		PostType:      models.PostTypePost,
		Priority:      "normal",
		WorkflowState: models.StateDraft,
		PublishState:  models.PublishPending,
		CreatedByID:   "creator-1",
	}
	if mutate != nil {
		mutate(post)
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

func TestCreateDefaults(t *testing.T) {
	svc, _ := newTestService(t)

	post, err := svc.Create("client-1", &CreatePostDTO{Topic: "Hello"}, "creator-1")
	require.NoError(t, err)

	assert.Equal(t, models.StateDraft, post.WorkflowState)
	assert.Equal(t, models.PublishPending, post.PublishState)
	assert.Equal(t, models.PostTypePost, post.PostType)
	assert.Equal(t, "1080x1080", post.ImageSize)
	assert.Equal(t, "normal", post.Priority)
	assert.Equal(t, "creator-1", post.CreatedByID)
}

func TestCreateRejectsUnknownState(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create("client-1", &CreatePostDTO{Topic: "Hello", WorkflowState: "shipped"}, "creator-1")
	assert.Error(t, err)
}

func TestCreateInDesignWithDesignerSpawnsEffects(t *testing.T) {
	svc, db := newTestService(t)
	designer := "designer-1"

	post, err := svc.Create("client-1", &CreatePostDTO{
		Topic:         "Ramadan visual",
		WorkflowState: models.StateInDesign,
		DesignerID:    &designer,
	}, "creator-1")
	require.NoError(t, err)

	var history []models.WorkflowHistoryModel
	require.NoError(t, db.Where("post_id = ?", post.ID).Find(&history).Error)
	require.Len(t, history, 1)
	assert.Equal(t, models.StateInDesign, history[0].ToState)

	var notif models.NotificationModel
	require.NoError(t, db.First(&notif, "user_id = ?", designer).Error)
	assert.Equal(t, models.NotifyDesignRequest, notif.Type)
	assert.Equal(t, post.ID, notif.RefID)

	var task models.TaskModel
	require.NoError(t, db.First(&task, "assignee_id = ?", designer).Error)
	assert.Equal(t, "Design: Ramadan visual", task.Title)
	require.NotNil(t, task.PostID)
	assert.Equal(t, post.ID, *task.PostID)
}

func TestCreateDraftWritesNoHistory(t *testing.T) {
	svc, db := newTestService(t)

	_, err := svc.Create("client-1", &CreatePostDTO{Topic: "Quiet start"}, "creator-1")
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.WorkflowHistoryModel{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestUpdateChangesOnlySuppliedFields(t *testing.T) {
	svc, db := newTestService(t)
	post := seedPost(t, db, func(p *models.PostModel) {
		p.Caption = "original"
		p.BriefNotes = "keep me"
	})

	caption := "rewritten"
	updated, err := svc.Update(post.ID, &UpdatePostDTO{Caption: &caption})
	require.NoError(t, err)

	assert.Equal(t, "rewritten", updated.Caption)
	assert.Equal(t, "keep me", updated.BriefNotes)
}

func TestDeleteCascades(t *testing.T) {
	svc, db := newTestService(t)
	post := seedPost(t, db, nil)

	require.NoError(t, db.Create(&models.PostCommentModel{
		PostID: post.ID, UserID: "u1", Content: "nice", CommentType: models.CommentTypeComment,
	}).Error)
	require.NoError(t, db.Create(&models.WorkflowHistoryModel{
		PostID: post.ID, ActorID: "u1", FromState: models.StateDraft, ToState: models.StateInDesign,
	}).Error)
	require.NoError(t, db.Create(&models.PublishLogModel{
		PostID: post.ID, Platform: "instagram", Outcome: models.OutcomeSuccess,
	}).Error)

	require.NoError(t, svc.Delete(post.ID))

	for _, probe := range []struct {
		name  string
		model interface{}
	}{
		{"comments", &models.PostCommentModel{}},
		{"history", &models.WorkflowHistoryModel{}},
		{"publish logs", &models.PublishLogModel{}},
		{"post", &models.PostModel{}},
	} {
		var count int64
		require.NoError(t, db.Model(probe.model).Count(&count).Error)
		assert.Zero(t, count, "%s should be gone", probe.name)
	}
}

func TestDeleteNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	assert.ErrorIs(t, svc.Delete("missing"), ErrNotFound)
}

func TestBulkCreateSkipsFailures(t *testing.T) {
	svc, db := newTestService(t)

	created, err := svc.BulkCreate([]BulkItemDTO{
		{ClientID: "client-1", Topic: "one"},
		{ClientID: "client-1", Topic: "two"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	var count int64
	require.NoError(t, db.Model(&models.PostModel{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestPipelineBuckets(t *testing.T) {
	svc, db := newTestService(t)
	seedPost(t, db, nil)
	seedPost(t, db, func(p *models.PostModel) { p.WorkflowState = models.StateInDesign })
	seedPost(t, db, func(p *models.PostModel) { p.WorkflowState = models.StateDesignReview })
	seedPost(t, db, func(p *models.PostModel) { p.WorkflowState = models.StatePosted })

	board, err := svc.Pipeline("", "")
	require.NoError(t, err)

	assert.Len(t, board[models.StateDraft], 1)
	assert.Len(t, board[models.StateInDesign], 1)
	assert.Len(t, board[models.StateDesignReview], 1)
	assert.Empty(t, board[models.StateApproved])
	_, hasPosted := board[models.StatePosted]
	assert.False(t, hasPosted, "posted items stay off the board")
}

func TestPipelineFiltersByAssignee(t *testing.T) {
	svc, db := newTestService(t)
	designer := "designer-1"
	seedPost(t, db, func(p *models.PostModel) {
		p.WorkflowState = models.StateInDesign
		p.DesignerID = &designer
	})
	seedPost(t, db, func(p *models.PostModel) { p.WorkflowState = models.StateInDesign })

	board, err := svc.Pipeline("", designer)
	require.NoError(t, err)
	assert.Len(t, board[models.StateInDesign], 1)
}

func TestCalendarGroupsByDate(t *testing.T) {
	svc, db := newTestService(t)

	inMonth := time.Date(2025, 7, 10, 9, 0, 0, 0, time.UTC)
	alsoInMonth := time.Date(2025, 7, 10, 18, 0, 0, 0, time.UTC)
	nextMonth := time.Date(2025, 8, 2, 9, 0, 0, 0, time.UTC)
	seedPost(t, db, func(p *models.PostModel) { p.ScheduledAt = &inMonth })
	seedPost(t, db, func(p *models.PostModel) { p.ScheduledAt = &alsoInMonth })
	seedPost(t, db, func(p *models.PostModel) { p.ScheduledAt = &nextMonth })

	view, err := svc.Calendar(7, 2025, "", false)
	require.NoError(t, err)

	assert.Equal(t, 7, view.Month)
	assert.Len(t, view.Posts, 2)
	assert.Len(t, view.ByDate["2025-07-10"], 2)
}

func TestCalendarDefaultsToCurrentMonth(t *testing.T) {
	svc, db := newTestService(t)
	at := time.Date(2025, 7, 20, 9, 0, 0, 0, time.UTC)
	seedPost(t, db, func(p *models.PostModel) { p.ScheduledAt = &at })

	view, err := svc.Calendar(0, 0, "", false)
	require.NoError(t, err)
	assert.Equal(t, 7, view.Month)
	assert.Equal(t, 2025, view.Year)
	assert.Len(t, view.Posts, 1)
}

func TestRescheduleScheduledPost(t *testing.T) {
	svc, db := newTestService(t)
	old := testNow.Add(time.Hour)
	post := seedPost(t, db, func(p *models.PostModel) {
		p.WorkflowState = models.StateScheduled
		p.ScheduledAt = &old
	})

	target := testNow.Add(48 * time.Hour)
	updated, err := svc.Reschedule(post.ID, target)
	require.NoError(t, err)

	require.NotNil(t, updated.ScheduledAt)
	assert.True(t, updated.ScheduledAt.Equal(target))
	assert.Equal(t, models.StateScheduled, updated.WorkflowState)
}

func TestRescheduleApprovedFlipsToScheduled(t *testing.T) {
	svc, db := newTestService(t)
	post := seedPost(t, db, func(p *models.PostModel) {
		p.WorkflowState = models.StateApproved
		p.PublishState = models.PublishFailed
	})

	target := testNow.Add(24 * time.Hour)
	updated, err := svc.Reschedule(post.ID, target)
	require.NoError(t, err)

	assert.Equal(t, models.StateScheduled, updated.WorkflowState)
	assert.Equal(t, models.PublishPending, updated.PublishState)
}

func TestRescheduleRejectsDraft(t *testing.T) {
	svc, db := newTestService(t)
	post := seedPost(t, db, nil)

	_, err := svc.Reschedule(post.ID, testNow.Add(time.Hour))
	assert.ErrorIs(t, err, ErrNotReschedulable)
}

func TestMyWorkDesignerOrdersReturnedFirst(t *testing.T) {
	svc, db := newTestService(t)
	designer := "designer-1"

	seedPost(t, db, func(p *models.PostModel) {
		p.WorkflowState = models.StateInDesign
		p.DesignerID = &designer
	})
	seedPost(t, db, func(p *models.PostModel) {
		p.WorkflowState = models.StateInDesign
		p.DesignerID = &designer
		p.RevisionCount = 2
	})

	items, err := svc.MyWork(designer, models.RoleDesigner)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "returned_for_edits", items[0].Action)
	assert.Equal(t, "needs_design", items[1].Action)
}

func TestMyWorkCopywriter(t *testing.T) {
	svc, db := newTestService(t)
	writer := "writer-1"
	seedPost(t, db, func(p *models.PostModel) { p.WriterID = &writer })
	seedPost(t, db, func(p *models.PostModel) {
		p.WriterID = &writer
		p.WorkflowState = models.StateInDesign
	})

	items, err := svc.MyWork(writer, models.RoleCopywriter)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "needs_content", items[0].Action)
}

func TestMyWorkManagerSeesUnassignedReviews(t *testing.T) {
	svc, db := newTestService(t)
	manager := "manager-1"
	other := "manager-2"

	seedPost(t, db, func(p *models.PostModel) { p.WorkflowState = models.StateDesignReview })
	seedPost(t, db, func(p *models.PostModel) {
		p.WorkflowState = models.StateDesignReview
		p.ManagerID = &other
	})
	seedPost(t, db, func(p *models.PostModel) { p.WorkflowState = models.StateApproved })

	items, err := svc.MyWork(manager, models.RoleManager)
	require.NoError(t, err)

	actions := map[string]int{}
	for _, it := range items {
		actions[it.Action]++
	}
	assert.Equal(t, 1, actions["needs_review"], "reviews claimed by another manager are excluded")
	assert.Equal(t, 1, actions["ready_to_schedule"])
}

func TestMyWorkAdminOverdue(t *testing.T) {
	svc, db := newTestService(t)
	past := testNow.Add(-2 * time.Hour)
	seedPost(t, db, func(p *models.PostModel) {
		p.WorkflowState = models.StateScheduled
		p.ScheduledAt = &past
		p.DesignerID = strPtr("d1")
	})

	items, err := svc.MyWork("admin-1", models.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "overdue", items[0].Action)
}

func strPtr(s string) *string { return &s }

func TestMyWorkUnknownRoleEmpty(t *testing.T) {
	svc, db := newTestService(t)
	seedPost(t, db, nil)

	items, err := svc.MyWork("u1", "intern")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCommentsRoundTrip(t *testing.T) {
	svc, db := newTestService(t)
	post := seedPost(t, db, nil)

	_, err := svc.AddComment(post.ID, "u1", &CommentDTO{Content: "first"})
	require.NoError(t, err)
	_, err = svc.AddComment(post.ID, "u1", &CommentDTO{
		Content: "needs brighter colors", CommentType: models.CommentTypeRevision,
	})
	require.NoError(t, err)

	rows, err := svc.Comments(post.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "first", rows[0].Content)
	assert.Equal(t, models.CommentTypeRevision, rows[1].CommentType)
}

func TestAddCommentUnknownPost(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.AddComment("missing", "u1", &CommentDTO{Content: "hi"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordDesignOutputsAppends(t *testing.T) {
	svc, db := newTestService(t)
	post := seedPost(t, db, func(p *models.PostModel) {
		p.DesignOutputURLs = models.StringArray{"https://cdn.example.com/v1.png"}
	})

	updated, err := svc.RecordDesignOutputs(post.ID, []string{"https://cdn.example.com/v2.png"})
	require.NoError(t, err)
	assert.Equal(t, models.StringArray{
		"https://cdn.example.com/v1.png",
		"https://cdn.example.com/v2.png",
	}, updated.DesignOutputURLs)
}
