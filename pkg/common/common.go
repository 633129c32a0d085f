package common

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

var idNode *snowflake.Node

func init() {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	idNode = node
}

// NewID returns a short, sortable base58 identifier
func NewID() string {
	return idNode.Generate().Base58()
}

// UUID returns a random uuid string
func UUID() string {
	return uuid.NewString()
}

// ShortUUID returns the first n hex characters of a random uuid
func ShortUUID(n int) string {
	s := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n <= 0 || n > len(s) {
		return s
	}
	return s[:n]
}

// IfEmptyStr returns def when src is blank
func IfEmptyStr(src string, def string) string {
	if strings.TrimSpace(src) == "" {
		return def
	}
	return src
}

// Digits keeps only ASCII digits
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// LastN returns the last n characters of s, or s when shorter
func LastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
