package groupchat

import (
	"fmt"

	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/event"
)

// NewCodec returns a codec with every group chat event registered.
func NewCodec() *event.Codec {
	codec := event.NewCodec()
	if err := RegisterCodec(codec); err != nil {
		panic(fmt.Sprintf("register group chat codec: %v", err))
	}
	return codec
}

// RegisterCodec adds the group chat event types to codec.
func RegisterCodec(codec *event.Codec) error {
	registrations := []func(*event.Codec) error{
		func(c *event.Codec) error {
			return event.RegisterPayload(c, EventTypeCreated,
				func(p Created) event.Fields {
					return event.Fields{"name": p.Name.String(), "members": encodeMembers(p.Members)}
				},
				func(f event.Fields) (Created, error) {
					name, err := decodeName(f)
					if err != nil {
						return Created{}, err
					}
					items, err := f.Maps("members")
					if err != nil {
						return Created{}, err
					}
					members := make([]Member, 0, len(items))
					for _, item := range items {
						m, err := decodeMember(item)
						if err != nil {
							return Created{}, err
						}
						members = append(members, m)
					}
					return Created{Name: name, Members: MembersOf(members...)}, nil
				},
			)
		},
		func(c *event.Codec) error {
			return event.RegisterPayload(c, EventTypeRenamed,
				func(p Renamed) event.Fields { return event.Fields{"name": p.Name.String()} },
				func(f event.Fields) (Renamed, error) {
					name, err := decodeName(f)
					return Renamed{Name: name}, err
				},
			)
		},
		func(c *event.Codec) error {
			return event.RegisterPayload(c, EventTypeMemberAdded,
				func(p MemberAdded) event.Fields { return event.Fields{"member": encodeMember(p.Member)} },
				func(f event.Fields) (MemberAdded, error) {
					m, err := decodeNestedMember(f)
					return MemberAdded{Member: m}, err
				},
			)
		},
		func(c *event.Codec) error {
			return event.RegisterPayload(c, EventTypeMemberRemoved,
				func(p MemberRemoved) event.Fields { return event.Fields{"member": encodeMember(p.Member)} },
				func(f event.Fields) (MemberRemoved, error) {
					m, err := decodeNestedMember(f)
					return MemberRemoved{Member: m}, err
				},
			)
		},
		func(c *event.Codec) error {
			return event.RegisterPayload(c, EventTypeMessagePosted,
				func(p MessagePosted) event.Fields { return event.Fields{"message": encodeMessage(p.Message)} },
				func(f event.Fields) (MessagePosted, error) {
					m, err := decodeNestedMessage(f)
					return MessagePosted{Message: m}, err
				},
			)
		},
		func(c *event.Codec) error {
			return event.RegisterPayload(c, EventTypeMessageEdited,
				func(p MessageEdited) event.Fields { return event.Fields{"message": encodeMessage(p.Message)} },
				func(f event.Fields) (MessageEdited, error) {
					m, err := decodeNestedMessage(f)
					return MessageEdited{Message: m}, err
				},
			)
		},
		func(c *event.Codec) error {
			return event.RegisterPayload(c, EventTypeMessageDeleted,
				func(p MessageDeleted) event.Fields { return event.Fields{"messageId": string(p.MessageID)} },
				func(f event.Fields) (MessageDeleted, error) {
					raw, err := f.String("messageId")
					if err != nil {
						return MessageDeleted{}, err
					}
					messageID, err := ParseMessageID(raw)
					return MessageDeleted{MessageID: messageID}, err
				},
			)
		},
		func(c *event.Codec) error {
			return event.RegisterPayload(c, EventTypeDeleted,
				func(Deleted) event.Fields { return event.Fields{} },
				func(event.Fields) (Deleted, error) { return Deleted{}, nil },
			)
		},
	}
	for _, register := range registrations {
		if err := register(codec); err != nil {
			return err
		}
	}
	return nil
}

func decodeName(f event.Fields) (Name, error) {
	raw, err := f.String("name")
	if err != nil {
		return Name{}, err
	}
	return NewName(raw)
}

func encodeMembers(members Members) []event.Fields {
	out := make([]event.Fields, 0, members.Len())
	for _, m := range members.items {
		out = append(out, encodeMember(m))
	}
	return out
}

func encodeMember(m Member) event.Fields {
	return event.Fields{
		"id":            string(m.ID),
		"userAccountId": string(m.UserAccountID),
		"role":          m.Role.String(),
	}
}

func decodeNestedMember(f event.Fields) (Member, error) {
	nested, err := f.Map("member")
	if err != nil {
		return Member{}, err
	}
	return decodeMember(nested)
}

func decodeMember(f event.Fields) (Member, error) {
	rawID, err := f.String("id")
	if err != nil {
		return Member{}, err
	}
	rawAccount, err := f.String("userAccountId")
	if err != nil {
		return Member{}, err
	}
	rawRole, err := f.String("role")
	if err != nil {
		return Member{}, err
	}
	role, err := ParseRole(rawRole)
	if err != nil {
		return Member{}, err
	}
	return Member{ID: MemberID(rawID), UserAccountID: UserAccountID(rawAccount), Role: role}, nil
}

func encodeMessage(m Message) event.Fields {
	return event.Fields{
		"id":        string(m.ID),
		"senderId":  string(m.SenderID),
		"text":      m.Text,
		"createdAt": event.ToMillis(m.CreatedAt),
		"updatedAt": event.ToMillis(m.UpdatedAt),
	}
}

func decodeNestedMessage(f event.Fields) (Message, error) {
	nested, err := f.Map("message")
	if err != nil {
		return Message{}, err
	}
	rawID, err := nested.String("id")
	if err != nil {
		return Message{}, err
	}
	rawSender, err := nested.String("senderId")
	if err != nil {
		return Message{}, err
	}
	text, err := nested.String("text")
	if err != nil {
		return Message{}, err
	}
	createdAt, err := nested.Time("createdAt")
	if err != nil {
		return Message{}, err
	}
	updatedAt, err := nested.Time("updatedAt")
	if err != nil {
		return Message{}, err
	}
	return RestoreMessage(MessageID(rawID), UserAccountID(rawSender), text, createdAt, updatedAt)
}
