package repository

import (
	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/event"
	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/groupchat"
)

// Command is an aggregate command Execute can run. The set is closed.
type Command interface {
	apply(chat groupchat.GroupChat, executor groupchat.UserAccountID) (groupchat.GroupChat, event.Event, error)
}

// Rename renames the chat.
type Rename struct {
	Name groupchat.Name
}

// AddMember adds a user to the chat.
type AddMember struct {
	MemberID      groupchat.MemberID
	UserAccountID groupchat.UserAccountID
	Role          groupchat.Role
}

// RemoveMember removes a user from the chat.
type RemoveMember struct {
	UserAccountID groupchat.UserAccountID
}

// PostMessage posts a new message.
type PostMessage struct {
	Message groupchat.Message
}

// EditMessage replaces the text of an existing message.
type EditMessage struct {
	Message groupchat.Message
}

// DeleteMessage removes a message.
type DeleteMessage struct {
	MessageID groupchat.MessageID
}

// Delete deletes the chat.
type Delete struct{}

func (c Rename) apply(chat groupchat.GroupChat, executor groupchat.UserAccountID) (groupchat.GroupChat, event.Event, error) {
	return chat.Rename(c.Name, executor)
}

func (c AddMember) apply(chat groupchat.GroupChat, executor groupchat.UserAccountID) (groupchat.GroupChat, event.Event, error) {
	memberID := c.MemberID
	if memberID == "" {
		memberID = groupchat.NewMemberID()
	}
	return chat.AddMember(memberID, c.UserAccountID, c.Role, executor)
}

func (c RemoveMember) apply(chat groupchat.GroupChat, executor groupchat.UserAccountID) (groupchat.GroupChat, event.Event, error) {
	return chat.RemoveMemberByUserAccountID(c.UserAccountID, executor)
}

func (c PostMessage) apply(chat groupchat.GroupChat, executor groupchat.UserAccountID) (groupchat.GroupChat, event.Event, error) {
	return chat.PostMessage(c.Message, executor)
}

func (c EditMessage) apply(chat groupchat.GroupChat, executor groupchat.UserAccountID) (groupchat.GroupChat, event.Event, error) {
	return chat.EditMessage(c.Message, executor)
}

func (c DeleteMessage) apply(chat groupchat.GroupChat, executor groupchat.UserAccountID) (groupchat.GroupChat, event.Event, error) {
	return chat.DeleteMessage(c.MessageID, executor)
}

func (Delete) apply(chat groupchat.GroupChat, executor groupchat.UserAccountID) (groupchat.GroupChat, event.Event, error) {
	return chat.Delete(executor)
}
