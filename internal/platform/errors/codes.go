// Package errors provides structured error handling for the group chat service.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Validation errors
	CodeIDEmpty              Code = "ID_EMPTY"
	CodeGroupChatNameInvalid Code = "GROUP_CHAT_NAME_INVALID"
	CodeMessageTextInvalid   Code = "MESSAGE_TEXT_INVALID"
	CodeMemberRoleInvalid    Code = "MEMBER_ROLE_INVALID"

	// Group chat rule violations
	CodeGroupChatAlreadyDeleted    Code = "GROUP_CHAT_ALREADY_DELETED"
	CodeGroupChatNotMember         Code = "GROUP_CHAT_NOT_MEMBER"
	CodeGroupChatAlreadyMember     Code = "GROUP_CHAT_ALREADY_MEMBER"
	CodeGroupChatNotAdministrator  Code = "GROUP_CHAT_NOT_ADMINISTRATOR"
	CodeGroupChatAlreadyExistsName Code = "GROUP_CHAT_ALREADY_EXISTS_NAME"
	CodeGroupChatMismatchedAccount Code = "GROUP_CHAT_MISMATCHED_USER_ACCOUNT"
	CodeGroupChatMessageExists     Code = "GROUP_CHAT_MESSAGE_ALREADY_EXISTS"
	CodeGroupChatMessageNotFound   Code = "GROUP_CHAT_MESSAGE_NOT_FOUND"
	CodeGroupChatNotMessageSender  Code = "GROUP_CHAT_NOT_MESSAGE_SENDER"
	CodeReplayInvariantViolation   Code = "REPLAY_INVARIANT_VIOLATION"
	CodeOptimisticLockConflict     Code = "OPTIMISTIC_LOCK_CONFLICT"
	CodeUnknownEventType           Code = "UNKNOWN_EVENT_TYPE"
	CodeMalformedPayload           Code = "MALFORMED_PAYLOAD"
	CodeJournalAggregateMismatch   Code = "JOURNAL_AGGREGATE_MISMATCH"
	CodeJournalDuplicateEventID    Code = "JOURNAL_DUPLICATE_EVENT_ID"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeIDEmpty,
		CodeGroupChatNameInvalid,
		CodeMessageTextInvalid,
		CodeMemberRoleInvalid,
		CodeGroupChatMismatchedAccount:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeGroupChatAlreadyDeleted,
		CodeGroupChatNotMember,
		CodeGroupChatAlreadyExistsName:
		return codes.FailedPrecondition

	// PermissionDenied - executor lacks the administrator or sender right
	case CodeGroupChatNotAdministrator,
		CodeGroupChatNotMessageSender:
		return codes.PermissionDenied

	// Aborted - caller should reload and retry
	case CodeOptimisticLockConflict:
		return codes.Aborted

	// NotFound - resource doesn't exist
	case CodeNotFound,
		CodeGroupChatMessageNotFound:
		return codes.NotFound

	// AlreadyExists - unique resource constraint
	case CodeGroupChatAlreadyMember,
		CodeGroupChatMessageExists,
		CodeJournalDuplicateEventID:
		return codes.AlreadyExists

	// DataLoss - the journal cannot be folded or decoded
	case CodeReplayInvariantViolation,
		CodeUnknownEventType,
		CodeMalformedPayload:
		return codes.DataLoss

	default:
		return codes.Internal
	}
}
