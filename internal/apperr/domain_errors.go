package apperr

var (
	// Identity registry
	ErrInvalidUsername = Validation("username must be 3-20 characters and contain only letters, numbers, and underscores")
	ErrInvalidPassword = Validation("password needs to be at least 8 characters")
	ErrUsernameTaken   = Conflict("username not available, try another one")
	ErrUserNotFound    = NotFound("user not found")
	ErrWrongPassword   = InvalidCredential("wrong password")
	ErrSelfFriend      = Validation("cant add yourself as friend")
	ErrAlreadyFriends  = Conflict("already friends with this user")
	ErrRequestPending  = Conflict("friend request already sent")
	ErrRequestNotFound = NotFound("request not found")

	// Conversation registry
	ErrSelfChat         = Validation("cant chat with yourself")
	ErrInvalidGroupName = Validation("group name must be 2-30 characters")
	ErrGroupNotFound    = NotFound("group not found")
	ErrNotGroupMember   = Permission("you are not a member of this group")
	ErrNotInGroup       = Conflict("you are not a member of this group")
	ErrCreatorLeave     = Permission("group creator cannot leave the group, delete the group instead")
	ErrNotCreator       = Permission("only the group creator can delete the group")
	ErrChatNotFound     = NotFound("chat not found")
	ErrEmptyMessage     = Validation("either text or encrypted data required")
)
