package domain

// SessionUpdate is the closed set of fields a client may patch on a
// session, paired with the explicit field mask the server expects.
// Unset pointers are omitted from both body and mask.
type SessionUpdate struct {
	Title               *string
	RequirePlanApproval *bool
}

func (u SessionUpdate) Mask() []string {
	mask := make([]string, 0, 2)
	if u.Title != nil {
		mask = append(mask, "title")
	}
	if u.RequirePlanApproval != nil {
		mask = append(mask, "requirePlanApproval")
	}
	return mask
}

func (u SessionUpdate) Empty() bool {
	return u.Title == nil && u.RequirePlanApproval == nil
}
