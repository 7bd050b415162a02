package groupchat

import (
	"github.com/samber/lo"
)

// Member is one user account's membership in a group chat.
type Member struct {
	ID            MemberID
	UserAccountID UserAccountID
	Role          Role
}

// IsAdministrator reports whether the member holds the admin role.
func (m Member) IsAdministrator() bool { return m.Role == RoleAdmin }

// Members is an ordered, copy-on-write member list. The zero value is empty.
type Members struct {
	items []Member
}

// NewMembers returns the initial member list with admin as its only entry.
func NewMembers(admin UserAccountID) Members {
	return Members{items: []Member{{ID: NewMemberID(), UserAccountID: admin, Role: RoleAdmin}}}
}

// MembersOf copies items into a member list.
func MembersOf(items ...Member) Members {
	return Members{items: append([]Member(nil), items...)}
}

// All returns a copy of the members in insertion order.
func (m Members) All() []Member {
	return append([]Member(nil), m.items...)
}

// Len returns the member count.
func (m Members) Len() int { return len(m.items) }

// Find returns the member for userAccountID.
func (m Members) Find(userAccountID UserAccountID) (Member, bool) {
	return lo.Find(m.items, func(item Member) bool { return item.UserAccountID == userAccountID })
}

// IsMember reports whether userAccountID belongs to the chat.
func (m Members) IsMember(userAccountID UserAccountID) bool {
	_, ok := m.Find(userAccountID)
	return ok
}

// IsAdministrator reports whether userAccountID is an admin member.
func (m Members) IsAdministrator(userAccountID UserAccountID) bool {
	member, ok := m.Find(userAccountID)
	return ok && member.IsAdministrator()
}

// Administrator returns the first admin member.
func (m Members) Administrator() (Member, bool) {
	return lo.Find(m.items, Member.IsAdministrator)
}

func (m Members) with(member Member) Members {
	items := make([]Member, 0, len(m.items)+1)
	items = append(items, m.items...)
	return Members{items: append(items, member)}
}

func (m Members) without(userAccountID UserAccountID) Members {
	return Members{items: lo.Reject(m.items, func(item Member, _ int) bool {
		return item.UserAccountID == userAccountID
	})}
}
