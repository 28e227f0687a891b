package workflow

import (
	"testing"
	"time"

	"github.com/social-agent/core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strptr(s string) *string { return &s }

func testPost(state string) *models.PostModel {
	p := &models.PostModel{
		ClientID:      "client-1",
		Topic:         "Summer campaign",
		WorkflowState: state,
		CreatedByID:   "creator-1",
	}
	p.ID = "post-1"
	return p
}

func TestBuildPlanRejectsUnknownState(t *testing.T) {
	_, err := BuildPlan(testPost(models.StateDraft), TransitionInput{Target: "published"}, time.Now())
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestBuildPlanRejectsNonAdjacentEdge(t *testing.T) {
	_, err := BuildPlan(testPost(models.StateDraft), TransitionInput{Target: models.StateApproved}, time.Now())

	var illegal *IllegalTransitionError
	require.ErrorAs(t, err, &illegal)
	assert.Equal(t, models.StateDraft, illegal.From)
	assert.Equal(t, models.StateApproved, illegal.Target)
	assert.Equal(t, []string{models.StateInDesign}, illegal.Allowed)
}

func TestBuildPlanRejectionIsRepeatable(t *testing.T) {
	post := testPost(models.StateDraft)
	in := TransitionInput{Target: models.StateScheduled}

	_, err1 := BuildPlan(post, in, time.Now())
	_, err2 := BuildPlan(post, in, time.Now())

	assert.Equal(t, err1.Error(), err2.Error())
	assert.Equal(t, models.StateDraft, post.WorkflowState, "post must not be mutated")
}

func TestInDesignRequiresDesigner(t *testing.T) {
	post := testPost(models.StateDraft)

	_, err := BuildPlan(post, TransitionInput{Target: models.StateInDesign}, time.Now())
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Contains(t, pre.Reason, "designer")

	post.DesignerID = strptr("designer-1")
	plan, err := BuildPlan(post, TransitionInput{Target: models.StateInDesign, ActorID: "mgr-1"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.StateInDesign, plan.Updates["workflow_state"])
}

func TestDesignReviewRequiresOutputURL(t *testing.T) {
	post := testPost(models.StateInDesign)
	post.DesignerID = strptr("designer-1")

	_, err := BuildPlan(post, TransitionInput{Target: models.StateDesignReview}, time.Now())
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)

	post.DesignOutputURLs = models.StringArray{"https://cdn.example.com/v1.png"}
	_, err = BuildPlan(post, TransitionInput{Target: models.StateDesignReview}, time.Now())
	assert.NoError(t, err)
}

func TestBackwardFromReviewRequiresComment(t *testing.T) {
	post := testPost(models.StateDesignReview)
	post.DesignerID = strptr("designer-1")
	post.RevisionCount = 2

	_, err := BuildPlan(post, TransitionInput{Target: models.StateInDesign}, time.Now())
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Contains(t, pre.Reason, "comment")

	plan, err := BuildPlan(post, TransitionInput{
		Target:  models.StateInDesign,
		ActorID: "mgr-1",
		Comment: "logo too small",
	}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, 3, plan.Updates["revision_count"], "revision counter increments by exactly one")
	require.NotNil(t, plan.Feedback)
	assert.Equal(t, models.CommentTypeRevision, plan.Feedback.CommentType)
	assert.Equal(t, "logo too small", plan.Feedback.Content)
}

func TestScheduledRequiresResolvableTimestamp(t *testing.T) {
	post := testPost(models.StateApproved)

	_, err := BuildPlan(post, TransitionInput{Target: models.StateScheduled}, time.Now())
	var pre *PreconditionError
	require.ErrorAs(t, err, &pre)

	// Supplied in the request.
	at := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	plan, err := BuildPlan(post, TransitionInput{Target: models.StateScheduled, ScheduledAt: &at}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, at, plan.Updates["scheduled_at"])
	assert.Equal(t, models.PublishPending, plan.Updates["publish_state"])

	// Already stored on the item.
	post.ScheduledAt = &at
	plan, err = BuildPlan(post, TransitionInput{Target: models.StateScheduled}, time.Now())
	require.NoError(t, err)
	_, hasScheduledAt := plan.Updates["scheduled_at"]
	assert.False(t, hasScheduledAt, "stored timestamp is kept, not rewritten")
}

func TestApprovedStampsApprover(t *testing.T) {
	post := testPost(models.StateDesignReview)
	post.DesignOutputURLs = models.StringArray{"https://cdn.example.com/v1.png"}
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

	plan, err := BuildPlan(post, TransitionInput{Target: models.StateApproved, ActorID: "mgr-1"}, now)
	require.NoError(t, err)
	assert.Equal(t, "mgr-1", plan.Updates["approved_by_id"])
	assert.Equal(t, now, plan.Updates["approved_at"])
}

func TestHistoryRecordsFromAndTo(t *testing.T) {
	post := testPost(models.StateDraft)
	post.DesignerID = strptr("designer-1")

	plan, err := BuildPlan(post, TransitionInput{Target: models.StateInDesign, ActorID: "mgr-1"}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.StateDraft, plan.History.FromState)
	assert.Equal(t, models.StateInDesign, plan.History.ToState)
	assert.Equal(t, "mgr-1", plan.History.ActorID)
}

func TestNotificationsPerTarget(t *testing.T) {
	post := testPost(models.StateDraft)
	post.DesignerID = strptr("designer-1")
	post.MotionID = strptr("motion-1")
	post.ManagerID = strptr("mgr-1")
	post.SchedulerID = strptr("sched-1")

	// in_design notifies designer and motion editor.
	plan, err := BuildPlan(post, TransitionInput{Target: models.StateInDesign}, time.Now())
	require.NoError(t, err)
	require.Len(t, plan.Notifications, 2)
	assert.Equal(t, "designer-1", plan.Notifications[0].UserID)
	assert.Equal(t, models.NotifyDesignRequest, plan.Notifications[0].Type)
	assert.Equal(t, "motion-1", plan.Notifications[1].UserID)

	// Backward arrival into in_design carries the returned type.
	post.WorkflowState = models.StateDesignReview
	plan, err = BuildPlan(post, TransitionInput{Target: models.StateInDesign, Comment: "fix colors"}, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, plan.Notifications)
	assert.Equal(t, models.NotifyDesignReturned, plan.Notifications[0].Type)

	// design_review notifies the reviewing manager.
	post.WorkflowState = models.StateInDesign
	post.DesignOutputURLs = models.StringArray{"https://cdn.example.com/v1.png"}
	plan, err = BuildPlan(post, TransitionInput{Target: models.StateDesignReview}, time.Now())
	require.NoError(t, err)
	require.Len(t, plan.Notifications, 1)
	assert.Equal(t, "mgr-1", plan.Notifications[0].UserID)

	// approved notifies the scheduler.
	post.WorkflowState = models.StateDesignReview
	plan, err = BuildPlan(post, TransitionInput{Target: models.StateApproved, ActorID: "mgr-1"}, time.Now())
	require.NoError(t, err)
	require.Len(t, plan.Notifications, 1)
	assert.Equal(t, "sched-1", plan.Notifications[0].UserID)

	// scheduled notifies the creator.
	post.WorkflowState = models.StateApproved
	at := time.Now().Add(time.Hour)
	plan, err = BuildPlan(post, TransitionInput{Target: models.StateScheduled, ScheduledAt: &at}, time.Now())
	require.NoError(t, err)
	require.Len(t, plan.Notifications, 1)
	assert.Equal(t, "creator-1", plan.Notifications[0].UserID)
}

func TestAutoTasksPerTarget(t *testing.T) {
	post := testPost(models.StateDraft)
	post.DesignerID = strptr("designer-1")
	post.ManagerID = strptr("mgr-1")
	post.SchedulerID = strptr("sched-1")
	post.Priority = "high"

	plan, err := BuildPlan(post, TransitionInput{Target: models.StateInDesign, ActorID: "creator-1"}, time.Now())
	require.NoError(t, err)
	require.Len(t, plan.Tasks, 1)
	task := plan.Tasks[0]
	assert.Equal(t, "designer-1", *task.AssigneeID)
	assert.Equal(t, "design", task.Category)
	assert.Equal(t, "high", task.Priority)
	assert.Equal(t, "post-1", *task.PostID)

	post.WorkflowState = models.StateInDesign
	post.DesignOutputURLs = models.StringArray{"https://cdn.example.com/v1.png"}
	plan, err = BuildPlan(post, TransitionInput{Target: models.StateDesignReview}, time.Now())
	require.NoError(t, err)
	require.Len(t, plan.Tasks, 1)
	assert.Equal(t, "review", plan.Tasks[0].Category)

	post.WorkflowState = models.StateDesignReview
	plan, err = BuildPlan(post, TransitionInput{Target: models.StateApproved}, time.Now())
	require.NoError(t, err)
	require.Len(t, plan.Tasks, 1)
	assert.Equal(t, "scheduling", plan.Tasks[0].Category)
}

func TestNoTaskWhenAssigneeMissing(t *testing.T) {
	post := testPost(models.StateInDesign)
	post.DesignerID = strptr("designer-1")
	post.DesignOutputURLs = models.StringArray{"https://cdn.example.com/v1.png"}

	// No manager assigned: review task and notification are skipped.
	plan, err := BuildPlan(post, TransitionInput{Target: models.StateDesignReview}, time.Now())
	require.NoError(t, err)
	assert.Empty(t, plan.Tasks)
	assert.Empty(t, plan.Notifications)
}

func TestAuthorizeRoleGate(t *testing.T) {
	// Admin and manager pass everywhere.
	assert.NoError(t, Authorize(models.RoleAdmin, models.StateDesignReview, models.StateApproved))
	assert.NoError(t, Authorize(models.RoleManager, models.StateDesignReview, models.StateApproved))

	// Designer may submit for review but not approve.
	assert.NoError(t, Authorize(models.RoleDesigner, models.StateInDesign, models.StateDesignReview))
	assert.ErrorIs(t, Authorize(models.RoleDesigner, models.StateDesignReview, models.StateApproved), ErrRoleNotAllowed)

	// Scheduler owns the approved/scheduled edges.
	assert.NoError(t, Authorize(models.RoleScheduler, models.StateApproved, models.StateScheduled))
	assert.ErrorIs(t, Authorize(models.RoleCopywriter, models.StateApproved, models.StateScheduled), ErrRoleNotAllowed)

	// Unknown edges fall through to the state machine.
	assert.NoError(t, Authorize(models.RoleDesigner, models.StateDraft, models.StateApproved))
}
