package workflow

import "github.com/social-agent/core/internal/models"

type edge struct{ from, to string }

// edgeRoles maps each transition edge to the roles allowed to invoke it.
// Admin and manager pass everywhere. The check runs before the state
// machine so the machine itself stays role-agnostic.
var edgeRoles = map[edge][]string{
	{models.StateDraft, models.StateInDesign}:        {models.RoleCopywriter, models.RoleScheduler},
	{models.StateInDesign, models.StateDesignReview}: {models.RoleDesigner, models.RoleMotionEditor},
	{models.StateInDesign, models.StateDraft}:        {models.RoleDesigner, models.RoleScheduler},
	{models.StateDesignReview, models.StateApproved}: {},
	{models.StateDesignReview, models.StateInDesign}: {},
	{models.StateDesignReview, models.StateDraft}:    {},
	{models.StateApproved, models.StateScheduled}:    {models.RoleScheduler},
	{models.StateScheduled, models.StateApproved}:    {models.RoleScheduler},
	{models.StateScheduled, models.StatePosted}:      {},
}

// Authorize reports whether role may request the from→to edge. Unknown
// edges are left to the state machine to reject with the full allowed set.
func Authorize(role, from, to string) error {
	if role == models.RoleAdmin || role == models.RoleManager {
		return nil
	}
	roles, ok := edgeRoles[edge{from, to}]
	if !ok {
		return nil
	}
	for _, r := range roles {
		if r == role {
			return nil
		}
	}
	return ErrRoleNotAllowed
}
