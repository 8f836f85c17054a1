package domain

// Member represents a chat member (value object)
type Member struct {
	UserID string
	Name   string
}

// FindMemberName looks up a member name by user ID
func FindMemberName(members []Member, userID string) string {
	for _, m := range members {
		if m.UserID == userID {
			return m.Name
		}
	}
	return ""
}
