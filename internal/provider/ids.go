package provider

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// hostIDNamespace scopes snapcast host ids so they never collide with ids
// derived from the same name elsewhere.
var hostIDNamespace = uuid.MustParse("5b0e7d5c-3f5e-4b8a-9c61-1d2f6a0e9b47")

// MACFromName derives a locally administered unicast MAC from name.
func MACFromName(name string) string {
	sum := md5.Sum([]byte(name))
	b := sum[:6]
	b[0] = (b[0] | 0x02) & 0xFE
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", b[0], b[1], b[2], b[3], b[4], b[5])
}

// ClientIDFromName derives a sendspin client id: a readable prefix of the
// name plus a short hash for uniqueness.
func ClientIDFromName(name string) string {
	sum := md5.Sum([]byte(name))
	safe := strings.ReplaceAll(strings.ToLower(name), " ", "-")
	if r := []rune(safe); len(r) > 20 {
		safe = string(r[:20])
	}
	return "sendspin-" + safe + "-" + hex.EncodeToString(sum[:])[:8]
}

// HostIDFromName derives a snapcast host id (a name-based UUID).
func HostIDFromName(name string) string {
	return uuid.NewSHA1(hostIDNamespace, []byte(name)).String()
}
