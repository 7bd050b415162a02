package groupchat

import (
	"errors"
	"fmt"

	apperrors "github.com/louisbranch/groupchat/internal/platform/errors"
	"github.com/louisbranch/groupchat/internal/services/groupchat/domain/event"
)

// transition applies payload to g and advances seqNr by one. It enforces only
// the structural consistency of the state (no duplicate members, no missing
// messages, nothing after deletion); authorization rules belong to commands.
func (g GroupChat) transition(payload Payload) (GroupChat, error) {
	a := &applier{state: g}
	if err := payload.Accept(a); err != nil {
		return g, err
	}
	a.state.seqNr = g.seqNr + 1
	return a.state, nil
}

type applier struct {
	state GroupChat
}

func (a *applier) live() error {
	if a.state.deleted {
		return ErrAlreadyDeleted
	}
	return nil
}

func (a *applier) Created(p Created) error {
	if !a.state.IsEmpty() {
		return errors.New("group chat already created")
	}
	if p.Name.IsZero() {
		return ErrNameInvalid
	}
	if _, ok := p.Members.Administrator(); !ok {
		return errors.New("group chat created without administrator")
	}
	a.state.name = p.Name
	a.state.members = MembersOf(p.Members.items...)
	a.state.messages = Messages{}
	return nil
}

func (a *applier) Renamed(p Renamed) error {
	if err := a.live(); err != nil {
		return err
	}
	if p.Name.IsZero() {
		return ErrNameInvalid
	}
	a.state.name = p.Name
	return nil
}

func (a *applier) MemberAdded(p MemberAdded) error {
	if err := a.live(); err != nil {
		return err
	}
	if a.state.members.IsMember(p.Member.UserAccountID) {
		return ErrAlreadyMember
	}
	a.state.members = a.state.members.with(p.Member)
	return nil
}

func (a *applier) MemberRemoved(p MemberRemoved) error {
	if err := a.live(); err != nil {
		return err
	}
	if !a.state.members.IsMember(p.Member.UserAccountID) {
		return ErrNotMember
	}
	a.state.members = a.state.members.without(p.Member.UserAccountID)
	return nil
}

func (a *applier) MessagePosted(p MessagePosted) error {
	if err := a.live(); err != nil {
		return err
	}
	messages, err := a.state.messages.add(p.Message)
	if err != nil {
		return err
	}
	a.state.messages = messages
	return nil
}

func (a *applier) MessageEdited(p MessageEdited) error {
	if err := a.live(); err != nil {
		return err
	}
	messages, err := a.state.messages.replace(p.Message)
	if err != nil {
		return err
	}
	a.state.messages = messages
	return nil
}

func (a *applier) MessageDeleted(p MessageDeleted) error {
	if err := a.live(); err != nil {
		return err
	}
	messages, err := a.state.messages.remove(p.MessageID)
	if err != nil {
		return err
	}
	a.state.messages = messages
	return nil
}

func (a *applier) Deleted(Deleted) error {
	if err := a.live(); err != nil {
		return err
	}
	a.state.deleted = true
	return nil
}

// Apply folds a single event onto g. The event must be the next one in the
// stream: same aggregate and seqNr exactly one past the current state.
func (g GroupChat) Apply(evt event.Event) (GroupChat, error) {
	expected := g.seqNr + 1
	if evt.SeqNr != expected {
		return g, fmt.Errorf("event sequence gap: expected %d got %d", expected, evt.SeqNr)
	}
	payload, ok := PayloadOf(evt)
	if !ok {
		return g, fmt.Errorf("event %s has no group chat payload", evt.ID)
	}
	if evt.AggregateID.Kind != AggregateKind {
		return g, fmt.Errorf("event %s: aggregate kind %q", evt.ID, evt.AggregateID.Kind)
	}

	base := g
	if _, created := payload.(Created); created {
		if !g.IsEmpty() {
			return g, fmt.Errorf("event %s: %s on existing group chat", evt.ID, EventTypeCreated)
		}
		base.id = ID(evt.AggregateID.Value)
	} else {
		if g.IsEmpty() {
			return g, fmt.Errorf("event %s: %s before %s", evt.ID, evt.Type(), EventTypeCreated)
		}
		if evt.AggregateID != g.id.AggregateID() {
			return g, fmt.Errorf("event %s: aggregate %s does not match %s", evt.ID, evt.AggregateID, g.id.AggregateID())
		}
	}
	return base.transition(payload)
}

// Replay folds events onto base. The events must be ordered, gap-free and
// belong to one aggregate. Any event that cannot be applied means the log is
// inconsistent with the state machine: Replay then returns the zero state and
// an error matching ErrReplayInvariant.
func Replay(events []event.Event, base GroupChat) (GroupChat, error) {
	state := base
	for _, evt := range events {
		next, err := state.Apply(evt)
		if err != nil {
			return GroupChat{}, apperrors.Wrap(
				apperrors.CodeReplayInvariantViolation,
				fmt.Sprintf("replay %s seq %d: %v", evt.Type(), evt.SeqNr, err),
				err,
			)
		}
		state = next
	}
	return state, nil
}
