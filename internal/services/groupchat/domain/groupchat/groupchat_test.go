package groupchat

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/event"
)

const (
	alice UserAccountID = "user-alice"
	bob   UserAccountID = "user-bob"
	carol UserAccountID = "user-carol"
	dave  UserAccountID = "user-dave"
)

var fixedTime = time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

func mustCreate(t *testing.T) (GroupChat, event.Event) {
	t.Helper()
	chat, evt, err := Create(MustName("Team"), alice)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return chat, evt
}

func mustMessage(t *testing.T, id MessageID, sender UserAccountID, text string) Message {
	t.Helper()
	msg, err := NewMessage(id, sender, text, fixedTime)
	if err != nil {
		t.Fatalf("new message: %v", err)
	}
	return msg
}

// teamWithMembers returns a chat with alice (admin), bob and carol (members).
func teamWithMembers(t *testing.T) GroupChat {
	t.Helper()
	chat, _ := mustCreate(t)
	var err error
	if chat, _, err = chat.AddMember("m-bob", bob, RoleMember, alice); err != nil {
		t.Fatalf("add bob: %v", err)
	}
	if chat, _, err = chat.AddMember("m-carol", carol, RoleMember, alice); err != nil {
		t.Fatalf("add carol: %v", err)
	}
	return chat
}

func TestCreate(t *testing.T) {
	chat, evt := mustCreate(t)

	if chat.SeqNr() != 1 || chat.Version() != 1 {
		t.Fatalf("seqNr/version = %d/%d, want 1/1", chat.SeqNr(), chat.Version())
	}
	if chat.Deleted() {
		t.Fatal("new chat must not be deleted")
	}
	if chat.Name().String() != "Team" {
		t.Fatalf("name = %q", chat.Name())
	}
	members := chat.Members().All()
	if len(members) != 1 || members[0].UserAccountID != alice || members[0].Role != RoleAdmin {
		t.Fatalf("members = %+v, want alice as admin", members)
	}
	if evt.Type() != EventTypeCreated || evt.SeqNr != 1 || evt.ActorID != string(alice) {
		t.Fatalf("event = %+v", evt)
	}
	if evt.AggregateID != chat.ID().AggregateID() {
		t.Fatalf("event aggregate = %v, want %v", evt.AggregateID, chat.ID().AggregateID())
	}
	if evt.ID == "" {
		t.Fatal("expected event id")
	}
}

func TestCreateRequiresExecutor(t *testing.T) {
	if _, _, err := Create(MustName("Team"), ""); !errors.Is(err, ErrIDEmpty) {
		t.Fatalf("expected ErrIDEmpty, got %v", err)
	}
}

func TestAddMember(t *testing.T) {
	chat, _ := mustCreate(t)

	next, evt, err := chat.AddMember("m-bob", bob, RoleMember, alice)
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	if next.SeqNr() != 2 {
		t.Fatalf("seqNr = %d, want 2", next.SeqNr())
	}
	if !next.Members().IsMember(alice) || !next.Members().IsMember(bob) || next.Members().Len() != 2 {
		t.Fatalf("members = %+v", next.Members().All())
	}
	added, ok := evt.Payload.(MemberAdded)
	if !ok || added.Member.UserAccountID != bob || added.Member.ID != "m-bob" {
		t.Fatalf("payload = %#v", evt.Payload)
	}
	if chat.Members().Len() != 1 || chat.SeqNr() != 1 {
		t.Fatal("receiver must not change")
	}
}

func TestAddMemberFailures(t *testing.T) {
	chat := teamWithMembers(t)

	tests := []struct {
		name     string
		user     UserAccountID
		role     Role
		executor UserAccountID
		want     error
	}{
		{name: "already member", user: bob, role: RoleMember, executor: alice, want: ErrAlreadyMember},
		{name: "executor not admin", user: dave, role: RoleMember, executor: bob, want: ErrNotAdministrator},
		{name: "executor not member", user: dave, role: RoleMember, executor: "user-eve", want: ErrNotAdministrator},
		{name: "unknown role", user: dave, role: Role(9), executor: alice, want: ErrMemberRoleUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := chat.AddMember("m-x", tt.user, tt.role, tt.executor)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !got.Equal(chat) {
				t.Fatal("failed command must return unchanged state")
			}
		})
	}
}

func TestAddExistingMemberStillMatchesNotMember(t *testing.T) {
	chat := teamWithMembers(t)
	_, _, err := chat.AddMember("m-x", bob, RoleMember, alice)
	if !errors.Is(err, ErrNotMember) {
		t.Fatalf("expected duplicate add to match ErrNotMember, got %v", err)
	}
}

func TestRemoveMember(t *testing.T) {
	chat := teamWithMembers(t)

	next, evt, err := chat.RemoveMemberByUserAccountID(bob, alice)
	if err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if next.Members().IsMember(bob) || next.Members().Len() != 2 {
		t.Fatalf("members = %+v", next.Members().All())
	}
	removed, ok := evt.Payload.(MemberRemoved)
	if !ok || removed.Member.ID != "m-bob" {
		t.Fatalf("payload = %#v", evt.Payload)
	}
	if next.SeqNr() != chat.SeqNr()+1 {
		t.Fatalf("seqNr = %d, want %d", next.SeqNr(), chat.SeqNr()+1)
	}
}

func TestRemoveMemberFailures(t *testing.T) {
	chat := teamWithMembers(t)

	if _, _, err := chat.RemoveMemberByUserAccountID(alice, carol); !errors.Is(err, ErrNotAdministrator) {
		t.Fatalf("non-admin remove: expected ErrNotAdministrator, got %v", err)
	}
	if _, _, err := chat.RemoveMemberByUserAccountID(dave, alice); !errors.Is(err, ErrNotMember) {
		t.Fatalf("remove non-member: expected ErrNotMember, got %v", err)
	}
}

func TestRename(t *testing.T) {
	chat := teamWithMembers(t)

	next, evt, err := chat.Rename(MustName("Core Team"), alice)
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if next.Name().String() != "Core Team" {
		t.Fatalf("name = %q", next.Name())
	}
	if p, ok := evt.Payload.(Renamed); !ok || p.Name.String() != "Core Team" {
		t.Fatalf("payload = %#v", evt.Payload)
	}

	if _, _, err := chat.Rename(MustName("Team"), alice); !errors.Is(err, ErrAlreadyExistsName) {
		t.Fatalf("same name: expected ErrAlreadyExistsName, got %v", err)
	}
	if _, _, err := chat.Rename(MustName("Other"), bob); !errors.Is(err, ErrNotAdministrator) {
		t.Fatalf("member rename: expected ErrNotAdministrator, got %v", err)
	}
	if _, _, err := chat.Rename(MustName("Other"), dave); !errors.Is(err, ErrNotMember) {
		t.Fatalf("outsider rename: expected ErrNotMember, got %v", err)
	}
}

func TestPostMessage(t *testing.T) {
	chat := teamWithMembers(t)
	msg := mustMessage(t, "msg-1", bob, "  hello  ")

	next, evt, err := chat.PostMessage(msg, bob)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	got, ok := next.Messages().Find("msg-1")
	if !ok || got.Text != "hello" {
		t.Fatalf("message = %+v, %v", got, ok)
	}
	if p, ok := evt.Payload.(MessagePosted); !ok || p.Message.ID != "msg-1" {
		t.Fatalf("payload = %#v", evt.Payload)
	}

	if _, _, err := next.PostMessage(msg, bob); !errors.Is(err, ErrMessageAlreadyExists) {
		t.Fatalf("duplicate: expected ErrMessageAlreadyExists, got %v", err)
	}
}

func TestPostMessageFailures(t *testing.T) {
	chat := teamWithMembers(t)

	tests := []struct {
		name     string
		sender   UserAccountID
		executor UserAccountID
		want     error
	}{
		{name: "sender not member", sender: dave, executor: bob, want: ErrNotMember},
		{name: "executor not member", sender: bob, executor: dave, want: ErrNotMember},
		{name: "sender differs from executor", sender: bob, executor: carol, want: ErrMismatchedUserAccount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := mustMessage(t, "msg-1", tt.sender, "hi")
			if _, _, err := chat.PostMessage(msg, tt.executor); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestMessageTextLimits(t *testing.T) {
	if _, err := NewMessage("msg-1", bob, strings.Repeat("a", 1001), fixedTime); !errors.Is(err, ErrMessageInvalid) {
		t.Fatalf("1001 chars: expected ErrMessageInvalid, got %v", err)
	}
	if _, err := NewMessage("msg-1", bob, strings.Repeat("é", 1000), fixedTime); err != nil {
		t.Fatalf("1000 runes: %v", err)
	}
	if _, err := NewMessage("msg-1", bob, "   ", fixedTime); !errors.Is(err, ErrMessageInvalid) {
		t.Fatalf("blank: expected ErrMessageInvalid, got %v", err)
	}
}

func TestEditMessage(t *testing.T) {
	chat := teamWithMembers(t)
	original := mustMessage(t, "msg-1", bob, "hello")
	chat, _, err := chat.PostMessage(original, bob)
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	edited, err := original.Edit("hello there", fixedTime.Add(time.Minute))
	if err != nil {
		t.Fatalf("edit value: %v", err)
	}
	next, evt, err := chat.EditMessage(edited, bob)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	got, _ := next.Messages().Find("msg-1")
	if got.Text != "hello there" || !got.CreatedAt.Equal(fixedTime) || !got.UpdatedAt.Equal(fixedTime.Add(time.Minute)) {
		t.Fatalf("edited message = %+v", got)
	}
	if _, ok := evt.Payload.(MessageEdited); !ok {
		t.Fatalf("payload = %#v", evt.Payload)
	}

	missing := mustMessage(t, "msg-404", bob, "nope")
	if _, _, err := chat.EditMessage(missing, bob); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("missing: expected ErrMessageNotFound, got %v", err)
	}
	mismatched := mustMessage(t, "msg-1", carol, "mine now")
	if _, _, err := chat.EditMessage(mismatched, bob); !errors.Is(err, ErrMismatchedUserAccount) {
		t.Fatalf("sender mismatch: expected ErrMismatchedUserAccount, got %v", err)
	}
}

func TestEditMessageByAnotherMember(t *testing.T) {
	chat := teamWithMembers(t)
	chat, _, err := chat.PostMessage(mustMessage(t, "msg-1", bob, "hello"), bob)
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	replacement := mustMessage(t, "msg-1", carol, "rewritten")
	next, evt, err := chat.EditMessage(replacement, carol)
	if err != nil {
		t.Fatalf("edit by carol: %v", err)
	}
	got, _ := next.Messages().Find("msg-1")
	if got.Text != "rewritten" || got.SenderID != carol || !got.CreatedAt.Equal(fixedTime) {
		t.Fatalf("edited message = %+v", got)
	}
	if next.SeqNr() != chat.SeqNr()+1 {
		t.Fatalf("seqNr = %d, want %d", next.SeqNr(), chat.SeqNr()+1)
	}
	replayed, err := Replay([]event.Event{evt}, chat)
	if err != nil {
		t.Fatalf("replay edit: %v", err)
	}
	if replayed = replayed.WithVersion(next.Version()); !replayed.Equal(next) {
		t.Fatalf("replayed state differs:\n got %+v\nwant %+v", replayed, next)
	}
}

func TestDeleteMessage(t *testing.T) {
	chat := teamWithMembers(t)
	chat, _, err := chat.PostMessage(mustMessage(t, "msg-1", bob, "hello"), bob)
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	if _, _, err := chat.DeleteMessage("msg-1", carol); !errors.Is(err, ErrNotMessageSender) {
		t.Fatalf("non-sender: expected ErrNotMessageSender, got %v", err)
	}
	if _, _, err := chat.DeleteMessage("msg-1", dave); !errors.Is(err, ErrNotMember) {
		t.Fatalf("outsider: expected ErrNotMember, got %v", err)
	}
	if _, _, err := chat.DeleteMessage("msg-404", bob); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("missing: expected ErrMessageNotFound, got %v", err)
	}

	next, evt, err := chat.DeleteMessage("msg-1", bob)
	if err != nil {
		t.Fatalf("delete message: %v", err)
	}
	if next.Messages().Len() != 0 {
		t.Fatalf("messages = %+v", next.Messages().All())
	}
	if p, ok := evt.Payload.(MessageDeleted); !ok || p.MessageID != "msg-1" {
		t.Fatalf("payload = %#v", evt.Payload)
	}
}

func TestDeleteIsTerminal(t *testing.T) {
	chat := teamWithMembers(t)
	chat, _, err := chat.PostMessage(mustMessage(t, "msg-1", bob, "hello"), bob)
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	if _, _, err := chat.Delete(bob); !errors.Is(err, ErrNotAdministrator) {
		t.Fatalf("member delete: expected ErrNotAdministrator, got %v", err)
	}
	deleted, _, err := chat.Delete(alice)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted.Deleted() {
		t.Fatal("expected deleted state")
	}

	commands := map[string]func() error{
		"rename": func() error { _, _, err := deleted.Rename(MustName("Again"), alice); return err },
		"add member": func() error {
			_, _, err := deleted.AddMember("m-dave", dave, RoleMember, alice)
			return err
		},
		"remove member": func() error { _, _, err := deleted.RemoveMemberByUserAccountID(bob, alice); return err },
		"post": func() error {
			_, _, err := deleted.PostMessage(mustMessage(t, "msg-2", bob, "late"), bob)
			return err
		},
		"edit": func() error {
			_, _, err := deleted.EditMessage(mustMessage(t, "msg-1", bob, "late"), bob)
			return err
		},
		"delete message": func() error { _, _, err := deleted.DeleteMessage("msg-1", bob); return err },
		"delete":         func() error { _, _, err := deleted.Delete(alice); return err },
	}
	for name, run := range commands {
		if err := run(); !errors.Is(err, ErrAlreadyDeleted) {
			t.Fatalf("%s after delete: expected ErrAlreadyDeleted, got %v", name, err)
		}
	}
}

func TestSeqNrIncreasesByOnePerCommand(t *testing.T) {
	chat, evt := mustCreate(t)
	events := []event.Event{evt}

	steps := []func(GroupChat) (GroupChat, event.Event, error){
		func(g GroupChat) (GroupChat, event.Event, error) { return g.AddMember("m-bob", bob, RoleMember, alice) },
		func(g GroupChat) (GroupChat, event.Event, error) { return g.Rename(MustName("Renamed"), alice) },
		func(g GroupChat) (GroupChat, event.Event, error) {
			return g.PostMessage(mustMessage(t, "msg-1", bob, "hi"), bob)
		},
		func(g GroupChat) (GroupChat, event.Event, error) { return g.DeleteMessage("msg-1", bob) },
		func(g GroupChat) (GroupChat, event.Event, error) { return g.RemoveMemberByUserAccountID(bob, alice) },
		func(g GroupChat) (GroupChat, event.Event, error) { return g.Delete(alice) },
	}
	for i, step := range steps {
		before := chat.SeqNr()
		next, evt, err := step(chat)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if next.SeqNr() != before+1 || evt.SeqNr != next.SeqNr() {
			t.Fatalf("step %d: seqNr %d -> %d (event %d)", i, before, next.SeqNr(), evt.SeqNr)
		}
		chat = next
		events = append(events, evt)
	}
	if len(events) != 7 {
		t.Fatalf("expected 7 events, got %d", len(events))
	}
}
