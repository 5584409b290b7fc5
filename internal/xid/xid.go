package xid

import "github.com/google/uuid"

// New returns prefix-<uuid v4>.
func New(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
