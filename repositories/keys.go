package repositories

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Key layout. Timestamps are zero-padded to 19 digits so lexicographic
// order matches chronological order within a prefix.
const (
	prefixMessage      = "msg:"
	prefixMessageIndex = "msgid:"
	prefixStatus       = "status:"
	prefixPresence     = "presence:"
	prefixNotification = "notif:"
	prefixRoom         = "room:"
	prefixMember       = "member:"
	prefixUser         = "user:"
	prefixUsername     = "username:"
)

func messageKey(roomID string, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s", prefixMessage, roomID, at.UnixNano(), id))
}

func messageIndexKey(id uuid.UUID) []byte {
	return []byte(prefixMessageIndex + id.String())
}

func statusKey(messageID uuid.UUID, userID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixStatus, messageID, userID))
}

func presenceKey(userID string) []byte {
	return []byte(prefixPresence + userID)
}

func notificationKey(userID string, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%s:%019d:%s", prefixNotification, userID, at.UnixNano(), id))
}

func roomKey(roomID string) []byte {
	return []byte(prefixRoom + roomID)
}

func memberKey(roomID, userID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", prefixMember, roomID, userID))
}

func userKey(id string) []byte {
	return []byte(prefixUser + id)
}

func usernameKey(username string) []byte {
	return []byte(prefixUsername + username)
}
