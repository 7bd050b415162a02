package groupchat

import (
	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/event"
)

// Event type tags.
const (
	EventTypeCreated        event.Type = "GroupChatCreated"
	EventTypeRenamed        event.Type = "GroupChatRenamed"
	EventTypeMemberAdded    event.Type = "GroupChatMemberAdded"
	EventTypeMemberRemoved  event.Type = "GroupChatMemberRemoved"
	EventTypeMessagePosted  event.Type = "GroupChatMessagePosted"
	EventTypeMessageEdited  event.Type = "GroupChatMessageEdited"
	EventTypeMessageDeleted event.Type = "GroupChatMessageDeleted"
	EventTypeDeleted        event.Type = "GroupChatDeleted"
)

// Payload is the closed set of group chat event bodies.
type Payload interface {
	event.Payload
	// Accept dispatches to the Visitor method for the concrete variant.
	Accept(Visitor) error
	sealed()
}

// Visitor handles every payload variant. Implementations must cover all
// cases; a new variant is a compile error until each visitor handles it.
type Visitor interface {
	Created(Created) error
	Renamed(Renamed) error
	MemberAdded(MemberAdded) error
	MemberRemoved(MemberRemoved) error
	MessagePosted(MessagePosted) error
	MessageEdited(MessageEdited) error
	MessageDeleted(MessageDeleted) error
	Deleted(Deleted) error
}

// Created records a new group chat with its initial members.
type Created struct {
	Name    Name
	Members Members
}

// Renamed records a name change.
type Renamed struct {
	Name Name
}

// MemberAdded records a new member.
type MemberAdded struct {
	Member Member
}

// MemberRemoved records the removed member as it was before removal.
type MemberRemoved struct {
	Member Member
}

// MessagePosted records a new message.
type MessagePosted struct {
	Message Message
}

// MessageEdited records the message after the edit.
type MessageEdited struct {
	Message Message
}

// MessageDeleted records a message removal.
type MessageDeleted struct {
	MessageID MessageID
}

// Deleted records the terminal deletion of a group chat.
type Deleted struct{}

func (Created) EventType() event.Type        { return EventTypeCreated }
func (Renamed) EventType() event.Type        { return EventTypeRenamed }
func (MemberAdded) EventType() event.Type    { return EventTypeMemberAdded }
func (MemberRemoved) EventType() event.Type  { return EventTypeMemberRemoved }
func (MessagePosted) EventType() event.Type  { return EventTypeMessagePosted }
func (MessageEdited) EventType() event.Type  { return EventTypeMessageEdited }
func (MessageDeleted) EventType() event.Type { return EventTypeMessageDeleted }
func (Deleted) EventType() event.Type        { return EventTypeDeleted }

func (p Created) Accept(v Visitor) error        { return v.Created(p) }
func (p Renamed) Accept(v Visitor) error        { return v.Renamed(p) }
func (p MemberAdded) Accept(v Visitor) error    { return v.MemberAdded(p) }
func (p MemberRemoved) Accept(v Visitor) error  { return v.MemberRemoved(p) }
func (p MessagePosted) Accept(v Visitor) error  { return v.MessagePosted(p) }
func (p MessageEdited) Accept(v Visitor) error  { return v.MessageEdited(p) }
func (p MessageDeleted) Accept(v Visitor) error { return v.MessageDeleted(p) }
func (p Deleted) Accept(v Visitor) error        { return v.Deleted(p) }

func (Created) sealed()        {}
func (Renamed) sealed()        {}
func (MemberAdded) sealed()    {}
func (MemberRemoved) sealed()  {}
func (MessagePosted) sealed()  {}
func (MessageEdited) sealed()  {}
func (MessageDeleted) sealed() {}
func (Deleted) sealed()        {}

// PayloadOf returns the group chat payload carried by evt.
func PayloadOf(evt event.Event) (Payload, bool) {
	p, ok := evt.Payload.(Payload)
	return p, ok
}

// Dispatch sends the payload of evt to v.
func Dispatch(evt event.Event, v Visitor) error {
	p, ok := PayloadOf(evt)
	if !ok {
		return event.Malformed(evt.Type(), errNotGroupChatPayload)
	}
	return p.Accept(v)
}
