package store

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Hasher derives the dedup key of a notification.
type Hasher struct {
	algorithm string
}

func NewHasher(algorithm string) *Hasher {
	return &Hasher{algorithm: algorithm}
}

// Key hashes kind, title and text. The timestamp is never part of the key.
// Fields are length-prefixed so that separators inside a title cannot
// collide with another field split.
func (h *Hasher) Key(n Notification) string {
	var builder strings.Builder
	for _, field := range []string{n.Kind.Code(), n.Title, n.Text} {
		builder.WriteString(strconv.Itoa(len(field)))
		builder.WriteByte(':')
		builder.WriteString(field)
		builder.WriteByte('|')
	}

	input := []byte(builder.String())
	switch h.algorithm {
	case "md5":
		sum := md5.Sum(input)
		return hex.EncodeToString(sum[:])
	default:
		sum := sha256.Sum256(input)
		return hex.EncodeToString(sum[:])
	}
}
