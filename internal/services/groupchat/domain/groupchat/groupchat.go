package groupchat

import (
	"github.com/louisbranch/groupchat/internal/platform/id"
	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/event"
)

// GroupChat is the aggregate state. Values are immutable; commands return a
// new GroupChat and leave the receiver untouched.
type GroupChat struct {
	id       ID
	name     Name
	members  Members
	messages Messages
	seqNr    uint64
	version  uint64
	deleted  bool
}

// Empty returns the base state replay starts from.
func Empty() GroupChat { return GroupChat{} }

// Restore rebuilds a GroupChat from persisted fields, such as a snapshot.
func Restore(chatID ID, name Name, members Members, messages Messages, seqNr, version uint64, deleted bool) GroupChat {
	return GroupChat{
		id:       chatID,
		name:     name,
		members:  MembersOf(members.items...),
		messages: MessagesOf(messages.items...),
		seqNr:    seqNr,
		version:  version,
		deleted:  deleted,
	}
}

func (g GroupChat) ID() ID             { return g.id }
func (g GroupChat) Name() Name         { return g.name }
func (g GroupChat) Members() Members   { return g.members }
func (g GroupChat) Messages() Messages { return g.messages }
func (g GroupChat) SeqNr() uint64      { return g.seqNr }
func (g GroupChat) Version() uint64    { return g.version }
func (g GroupChat) Deleted() bool      { return g.deleted }

// IsEmpty reports whether no event has been applied.
func (g GroupChat) IsEmpty() bool { return g.seqNr == 0 }

// WithVersion returns a copy carrying the store-assigned version.
func (g GroupChat) WithVersion(version uint64) GroupChat {
	g.version = version
	return g
}

// Create starts a new group chat administered by executor.
func Create(name Name, executor UserAccountID) (GroupChat, event.Event, error) {
	return CreateWithID(NewID(), name, executor)
}

// CreateWithID is Create with a caller-chosen id.
func CreateWithID(chatID ID, name Name, executor UserAccountID) (GroupChat, event.Event, error) {
	if chatID == "" || executor == "" {
		return GroupChat{}, event.Event{}, ErrIDEmpty
	}
	if name.IsZero() {
		return GroupChat{}, event.Event{}, ErrNameInvalid
	}
	payload := Created{Name: name, Members: NewMembers(executor)}
	next, err := GroupChat{id: chatID}.transition(payload)
	if err != nil {
		return GroupChat{}, event.Event{}, err
	}
	next.version = 1
	return next, next.newEvent(payload, executor), nil
}

// Rename changes the chat name. Only administrators may rename.
func (g GroupChat) Rename(name Name, executor UserAccountID) (GroupChat, event.Event, error) {
	if g.deleted {
		return g, event.Event{}, ErrAlreadyDeleted
	}
	if !g.members.IsMember(executor) {
		return g, event.Event{}, ErrNotMember
	}
	if !g.members.IsAdministrator(executor) {
		return g, event.Event{}, ErrNotAdministrator
	}
	if name.IsZero() {
		return g, event.Event{}, ErrNameInvalid
	}
	if g.name == name {
		return g, event.Event{}, ErrAlreadyExistsName
	}
	return g.emit(Renamed{Name: name}, executor)
}

// AddMember adds userAccountID with role. Only administrators may add.
func (g GroupChat) AddMember(memberID MemberID, userAccountID UserAccountID, role Role, executor UserAccountID) (GroupChat, event.Event, error) {
	if memberID == "" || userAccountID == "" {
		return g, event.Event{}, ErrIDEmpty
	}
	if role != RoleAdmin && role != RoleMember {
		return g, event.Event{}, ErrMemberRoleUnknown
	}
	if g.deleted {
		return g, event.Event{}, ErrAlreadyDeleted
	}
	if g.members.IsMember(userAccountID) {
		return g, event.Event{}, ErrAlreadyMember
	}
	if !g.members.IsAdministrator(executor) {
		return g, event.Event{}, ErrNotAdministrator
	}
	member := Member{ID: memberID, UserAccountID: userAccountID, Role: role}
	return g.emit(MemberAdded{Member: member}, executor)
}

// RemoveMemberByUserAccountID removes the member for userAccountID. Only
// administrators may remove.
func (g GroupChat) RemoveMemberByUserAccountID(userAccountID UserAccountID, executor UserAccountID) (GroupChat, event.Event, error) {
	if g.deleted {
		return g, event.Event{}, ErrAlreadyDeleted
	}
	member, ok := g.members.Find(userAccountID)
	if !ok {
		return g, event.Event{}, ErrNotMember
	}
	if !g.members.IsAdministrator(executor) {
		return g, event.Event{}, ErrNotAdministrator
	}
	return g.emit(MemberRemoved{Member: member}, executor)
}

// PostMessage appends message. The executor must be the sender and a member.
func (g GroupChat) PostMessage(message Message, executor UserAccountID) (GroupChat, event.Event, error) {
	if err := g.checkSender(message, executor); err != nil {
		return g, event.Event{}, err
	}
	if _, exists := g.messages.Find(message.ID); exists {
		return g, event.Event{}, ErrMessageAlreadyExists
	}
	return g.emit(MessagePosted{Message: message}, executor)
}

// EditMessage replaces an existing message. The stored message keeps its id
// and creation time. Any member may edit as themselves; ownership is not
// checked.
func (g GroupChat) EditMessage(message Message, executor UserAccountID) (GroupChat, event.Event, error) {
	if err := g.checkSender(message, executor); err != nil {
		return g, event.Event{}, err
	}
	current, ok := g.messages.Find(message.ID)
	if !ok {
		return g, event.Event{}, ErrMessageNotFound
	}
	message.CreatedAt = current.CreatedAt
	return g.emit(MessageEdited{Message: message}, executor)
}

// DeleteMessage removes a message. Only its sender may delete it.
func (g GroupChat) DeleteMessage(messageID MessageID, executor UserAccountID) (GroupChat, event.Event, error) {
	if g.deleted {
		return g, event.Event{}, ErrAlreadyDeleted
	}
	if !g.members.IsMember(executor) {
		return g, event.Event{}, ErrNotMember
	}
	current, ok := g.messages.Find(messageID)
	if !ok {
		return g, event.Event{}, ErrMessageNotFound
	}
	if current.SenderID != executor {
		return g, event.Event{}, ErrNotMessageSender
	}
	return g.emit(MessageDeleted{MessageID: messageID}, executor)
}

// Delete marks the chat deleted. Deletion is terminal.
func (g GroupChat) Delete(executor UserAccountID) (GroupChat, event.Event, error) {
	if g.deleted {
		return g, event.Event{}, ErrAlreadyDeleted
	}
	if !g.members.IsMember(executor) {
		return g, event.Event{}, ErrNotMember
	}
	if !g.members.IsAdministrator(executor) {
		return g, event.Event{}, ErrNotAdministrator
	}
	return g.emit(Deleted{}, executor)
}

func (g GroupChat) checkSender(message Message, executor UserAccountID) error {
	if g.deleted {
		return ErrAlreadyDeleted
	}
	if message.ID == "" || message.SenderID == "" {
		return ErrIDEmpty
	}
	if !g.members.IsMember(message.SenderID) {
		return ErrNotMember
	}
	if !g.members.IsMember(executor) {
		return ErrNotMember
	}
	if message.SenderID != executor {
		return ErrMismatchedUserAccount
	}
	return nil
}

// emit applies payload through the same transition replay uses and returns
// the resulting state and event.
func (g GroupChat) emit(payload Payload, executor UserAccountID) (GroupChat, event.Event, error) {
	next, err := g.transition(payload)
	if err != nil {
		return g, event.Event{}, err
	}
	return next, next.newEvent(payload, executor), nil
}

func (g GroupChat) newEvent(payload Payload, executor UserAccountID) event.Event {
	return event.Event{
		ID:          id.MustNewID(),
		AggregateID: g.id.AggregateID(),
		SeqNr:       g.seqNr,
		OccurredAt:  event.Now(),
		ActorID:     string(executor),
		Payload:     payload,
	}
}

// Equal reports whether two states hold the same fields.
func (g GroupChat) Equal(other GroupChat) bool {
	if g.id != other.id || g.name != other.name || g.seqNr != other.seqNr ||
		g.version != other.version || g.deleted != other.deleted {
		return false
	}
	if g.members.Len() != other.members.Len() || g.messages.Len() != other.messages.Len() {
		return false
	}
	for i, m := range g.members.items {
		if m != other.members.items[i] {
			return false
		}
	}
	for i, m := range g.messages.items {
		o := other.messages.items[i]
		if m.ID != o.ID || m.SenderID != o.SenderID || m.Text != o.Text ||
			!m.CreatedAt.Equal(o.CreatedAt) || !m.UpdatedAt.Equal(o.UpdatedAt) {
			return false
		}
	}
	return true
}
