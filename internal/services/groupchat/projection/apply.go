package projection

import (
	"context"

	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/event"
	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/groupchat"
	"github.com/louisbranch/groupchat/internal/services/groupchat/storage"
)

// applier maps one group chat event onto read model mutations.
type applier struct {
	ctx context.Context
	tx  storage.ReadModelTx
	evt event.Event
}

func (a applier) chatID() string {
	return a.evt.AggregateID.Value
}

func (a applier) Created(p groupchat.Created) error {
	owner, _ := p.Members.Administrator()
	if err := a.tx.InsertGroupChat(a.ctx, storage.GroupChatRecord{
		ID:        a.chatID(),
		Name:      p.Name.String(),
		OwnerID:   string(owner.UserAccountID),
		CreatedAt: a.evt.OccurredAt,
		UpdatedAt: a.evt.OccurredAt,
	}); err != nil {
		return err
	}
	for _, member := range p.Members.All() {
		if err := a.tx.InsertMember(a.ctx, a.memberRecord(member)); err != nil {
			return err
		}
	}
	return nil
}

func (a applier) Renamed(p groupchat.Renamed) error {
	return a.tx.RenameGroupChat(a.ctx, a.chatID(), p.Name.String(), a.evt.OccurredAt)
}

func (a applier) MemberAdded(p groupchat.MemberAdded) error {
	return a.tx.InsertMember(a.ctx, a.memberRecord(p.Member))
}

func (a applier) MemberRemoved(p groupchat.MemberRemoved) error {
	return a.tx.DeleteMember(a.ctx, a.chatID(), string(p.Member.UserAccountID), a.evt.OccurredAt)
}

func (a applier) MessagePosted(p groupchat.MessagePosted) error {
	return a.tx.InsertMessage(a.ctx, storage.MessageRecord{
		ID:          string(p.Message.ID),
		GroupChatID: a.chatID(),
		SenderID:    string(p.Message.SenderID),
		Text:        p.Message.Text,
		CreatedAt:   p.Message.CreatedAt,
		UpdatedAt:   p.Message.UpdatedAt,
	})
}

func (a applier) MessageEdited(p groupchat.MessageEdited) error {
	return a.tx.UpdateMessage(a.ctx, a.chatID(), string(p.Message.ID), p.Message.Text, p.Message.UpdatedAt)
}

func (a applier) MessageDeleted(p groupchat.MessageDeleted) error {
	return a.tx.MarkMessageDeleted(a.ctx, a.chatID(), string(p.MessageID), a.evt.OccurredAt)
}

func (a applier) Deleted(groupchat.Deleted) error {
	return a.tx.MarkGroupChatDeleted(a.ctx, a.chatID(), a.evt.OccurredAt)
}

func (a applier) memberRecord(member groupchat.Member) storage.MemberRecord {
	return storage.MemberRecord{
		ID:            string(member.ID),
		GroupChatID:   a.chatID(),
		UserAccountID: string(member.UserAccountID),
		Role:          member.Role.String(),
		JoinedAt:      a.evt.OccurredAt,
	}
}
