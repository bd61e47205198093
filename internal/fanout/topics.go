package fanout

import (
	"strings"

	"github.com/ariefcatur/go-marketplace.git/internal/market"
)

const (
	TopicAdmin = "admin"

	prefixUser   = "user:"
	prefixSeller = "seller:"
)

func TopicUser(userID string) string     { return prefixUser + userID }
func TopicSeller(sellerID string) string { return prefixSeller + sellerID }

// Identity is the already-authenticated (user id, role) pair supplied by the
// excluded identity collaborator. No credential checks happen here.
type Identity struct {
	UserID string
	Role   market.Role
}

// CanSubscribe is the capability check the transport layer enforces at
// connection time. Admins may bind to any topic; everyone else only to their
// own user topic, and sellers additionally to their own seller topic.
func CanSubscribe(id Identity, topic string) bool {
	if id.Role == market.RoleAdmin {
		return true
	}
	switch {
	case strings.HasPrefix(topic, prefixUser):
		return id.UserID != "" && strings.TrimPrefix(topic, prefixUser) == id.UserID
	case strings.HasPrefix(topic, prefixSeller):
		return id.Role == market.RoleSeller && strings.TrimPrefix(topic, prefixSeller) == id.UserID
	}
	return false
}
