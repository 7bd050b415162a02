package groupchat

import (
	apperrors "github.com/louisbranch/groupchat/internal/platform/errors"
)

// Validation failures raised by value constructors.
var (
	ErrIDEmpty           = apperrors.New(apperrors.CodeIDEmpty, "id is required")
	ErrNameInvalid       = apperrors.New(apperrors.CodeGroupChatNameInvalid, "group chat name must be 1 to 100 characters")
	ErrMessageInvalid    = apperrors.New(apperrors.CodeMessageTextInvalid, "message text must be 1 to 1000 characters")
	ErrMemberRoleUnknown = apperrors.New(apperrors.CodeMemberRoleInvalid, "member role is not recognized")
)

// Command failures. They never reach the journal.
var (
	ErrAlreadyDeleted        = apperrors.New(apperrors.CodeGroupChatAlreadyDeleted, "group chat is deleted")
	ErrNotMember             = apperrors.New(apperrors.CodeGroupChatNotMember, "user account is not a member")
	ErrNotAdministrator      = apperrors.New(apperrors.CodeGroupChatNotAdministrator, "executor is not an administrator")
	ErrAlreadyExistsName     = apperrors.New(apperrors.CodeGroupChatAlreadyExistsName, "group chat already has this name")
	ErrMismatchedUserAccount = apperrors.New(apperrors.CodeGroupChatMismatchedAccount, "executor and sender differ")
	ErrMessageAlreadyExists  = apperrors.New(apperrors.CodeGroupChatMessageExists, "message already exists")
	ErrMessageNotFound       = apperrors.New(apperrors.CodeGroupChatMessageNotFound, "message not found")
	ErrNotMessageSender      = apperrors.New(apperrors.CodeGroupChatNotMessageSender, "executor is not the message sender")

	// ErrAlreadyMember carries ErrNotMember as its cause so callers that
	// matched the historical NotMember failure for duplicate adds keep working.
	ErrAlreadyMember = apperrors.Wrap(apperrors.CodeGroupChatAlreadyMember, "user account is already a member", ErrNotMember)
)

// ErrReplayInvariant reports an event history the state machine cannot fold.
// It always indicates a corrupted or incompatible journal.
var ErrReplayInvariant = apperrors.New(apperrors.CodeReplayInvariantViolation, "replay invariant violation")

var errNotGroupChatPayload = apperrors.New(apperrors.CodeMalformedPayload, "payload is not a group chat event")
