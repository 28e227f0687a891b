package workflow

import (
	"time"

	"github.com/social-agent/core/internal/models"
)

// transitions is the adjacency table. Any edge not listed is rejected.
var transitions = map[string][]string{
	models.StateDraft:        {models.StateInDesign},
	models.StateInDesign:     {models.StateDesignReview, models.StateDraft},
	models.StateDesignReview: {models.StateApproved, models.StateInDesign, models.StateDraft},
	models.StateApproved:     {models.StateScheduled},
	models.StateScheduled:    {models.StatePosted, models.StateApproved},
	models.StatePosted:       {},
}

// AllowedTargets returns the adjacency set for a state.
func AllowedTargets(from string) []string {
	return transitions[from]
}

// TransitionInput carries everything a transition request may supply.
// Unknown request fields are dropped at the binding layer, never persisted.
type TransitionInput struct {
	Target      string
	ActorID     string
	ActorRole   string
	Comment     string
	ScheduledAt *time.Time
}

// Plan is the full outcome of an accepted transition decision: the column
// updates plus the side effects to emit. Building a Plan performs no I/O;
// the service commits it in one transaction.
type Plan struct {
	From string
	To   string

	Updates       map[string]interface{}
	History       models.WorkflowHistoryModel
	Feedback      *models.PostCommentModel
	Notifications []models.NotificationModel
	Tasks         []models.TaskModel
}

// BuildPlan validates a transition against the adjacency table and the
// per-edge preconditions, and on acceptance returns the Plan describing
// every write the transition implies. The post itself is not mutated.
func BuildPlan(post *models.PostModel, in TransitionInput, now time.Time) (*Plan, error) {
	if !models.IsWorkflowState(in.Target) {
		return nil, ErrInvalidState
	}

	from := post.WorkflowState
	if from == "" {
		from = models.StateDraft
	}

	if !contains(transitions[from], in.Target) {
		return nil, &IllegalTransitionError{From: from, Target: in.Target, Allowed: transitions[from]}
	}

	backward := from == models.StateDesignReview &&
		(in.Target == models.StateInDesign || in.Target == models.StateDraft)

	// Preconditions.
	if in.Target == models.StateInDesign && post.DesignerID == nil {
		return nil, &PreconditionError{Reason: "designer must be assigned before moving to design"}
	}
	if in.Target == models.StateDesignReview && !hasNonEmpty(post.DesignOutputURLs) {
		return nil, &PreconditionError{Reason: "design must be uploaded before submitting for review"}
	}
	if backward && in.Comment == "" {
		return nil, &PreconditionError{Reason: "feedback comment is required when returning for revision"}
	}
	if in.Target == models.StateScheduled && in.ScheduledAt == nil && post.ScheduledAt == nil {
		return nil, &PreconditionError{Reason: "schedule date/time required"}
	}

	plan := &Plan{
		From: from,
		To:   in.Target,
		Updates: map[string]interface{}{
			"workflow_state": in.Target,
			"updated_at":     now,
		},
		History: models.WorkflowHistoryModel{
			PostID:    post.ID,
			ActorID:   in.ActorID,
			FromState: from,
			ToState:   in.Target,
			Comment:   in.Comment,
		},
	}

	if in.Target == models.StateApproved {
		plan.Updates["approved_by_id"] = in.ActorID
		plan.Updates["approved_at"] = now
	}
	if in.Target == models.StateScheduled && in.ScheduledAt != nil {
		plan.Updates["scheduled_at"] = *in.ScheduledAt
		plan.Updates["publish_state"] = models.PublishPending
	}
	if backward {
		plan.Updates["revision_count"] = post.RevisionCount + 1
		if in.Comment != "" {
			plan.Feedback = &models.PostCommentModel{
				PostID:      post.ID,
				UserID:      in.ActorID,
				Content:     in.Comment,
				CommentType: models.CommentTypeRevision,
			}
		}
	}

	plan.Notifications = buildNotifications(post, from, in.Target)
	plan.Tasks = buildTasks(post, in)

	return plan, nil
}

func buildNotifications(post *models.PostModel, from, to string) []models.NotificationModel {
	var out []models.NotificationModel
	notify := func(userID *string, typ, title, message string) {
		if userID == nil || *userID == "" {
			return
		}
		out = append(out, models.NotificationModel{
			UserID:  *userID,
			Type:    typ,
			Title:   title,
			Message: message,
			RefType: "post",
			RefID:   post.ID,
		})
	}

	topic := post.Topic

	switch to {
	case models.StateInDesign:
		typ, title, msg := models.NotifyDesignRequest, "New design request", "You were assigned to design: "+topic
		if from == models.StateDesignReview {
			typ, title, msg = models.NotifyDesignReturned, "Design returned", "Design was returned for revision: "+topic
		}
		notify(post.DesignerID, typ, title, msg)
		notify(post.MotionID, typ, title, msg)
	case models.StateDesignReview:
		notify(post.ManagerID, models.NotifyDesignReview, "Design ready for review", "Design is ready for review: "+topic)
	case models.StateApproved:
		notify(post.SchedulerID, models.NotifyPostApproved, "Post approved", "Post approved and ready for scheduling: "+topic)
	case models.StateScheduled:
		creator := post.CreatedByID
		notify(&creator, models.NotifyPostScheduled, "Post scheduled", "Post has been scheduled: "+topic)
	case models.StateDraft:
		if from == models.StateDesignReview {
			creator := post.CreatedByID
			notify(&creator, models.NotifyPostRejected, "Post rejected", "Post was sent back to draft: "+topic)
		}
	}

	return out
}

func buildTasks(post *models.PostModel, in TransitionInput) []models.TaskModel {
	var out []models.TaskModel
	spawn := func(assignee *string, title, description, category string) {
		if assignee == nil || *assignee == "" {
			return
		}
		priority := post.Priority
		if priority == "" {
			priority = "normal"
		}
		clientID := post.ClientID
		postID := post.ID
		out = append(out, models.TaskModel{
			Title:       title,
			Description: description,
			ClientID:    &clientID,
			AssigneeID:  assignee,
			CreatorID:   in.ActorID,
			Status:      models.TaskTodo,
			Priority:    priority,
			Category:    category,
			PostID:      &postID,
		})
	}

	topic := post.Topic
	switch in.Target {
	case models.StateInDesign:
		spawn(post.DesignerID, "Design: "+topic, "Create design for post: "+topic, "design")
	case models.StateDesignReview:
		spawn(post.ManagerID, "Review: "+topic, "Review design for post: "+topic, "review")
	case models.StateApproved:
		spawn(post.SchedulerID, "Schedule: "+topic, "Schedule approved post: "+topic, "scheduling")
	}
	return out
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func hasNonEmpty(urls models.StringArray) bool {
	for _, u := range urls {
		if u != "" {
			return true
		}
	}
	return false
}
