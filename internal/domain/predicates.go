package domain

// IsPubliclyVisible holds for approved, online, non-deleted listings only.
func IsPubliclyVisible(l Listing) bool {
	return l.AuditStatus == AuditApproved && l.OnlineStatus == Online && l.DeletedAt == nil
}

func IsOwnedBy(l Listing, callerID string) bool {
	return callerID != "" && l.OwnerID == callerID
}

func IsDeleted(l Listing) bool { return l.DeletedAt != nil }
