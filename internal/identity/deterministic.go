// Package identity maps external string ids (actor ids, idempotency keys) onto UUIDs
// that are stable across processes.
package identity

import (
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// Namespace prefixes the hashed key so the same input yields different ids per kind.
type Namespace string

const (
	NamespaceActor       Namespace = "go-publishing:actor"
	NamespaceIdempotency Namespace = "go-publishing:idempotency"
)

// Derive hashes ns and key with SHA-256 into a UUID. A blank key maps to uuid.Nil.
func Derive(ns Namespace, key string) uuid.UUID {
	key = strings.TrimSpace(key)
	if key == "" {
		return uuid.Nil
	}
	name := string(ns) + ":" + key
	id, err := hashid.NewUUID(name, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err == nil && id != uuid.Nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name))
}

// IdempotencyUUID maps a client idempotency key onto a fixed-size store key.
func IdempotencyUUID(key string) uuid.UUID {
	return Derive(NamespaceIdempotency, key)
}

// ActorUUID keeps actor ids that already parse as UUIDs.
func ActorUUID(actorID string) uuid.UUID {
	if parsed, err := uuid.Parse(strings.TrimSpace(actorID)); err == nil {
		return parsed
	}
	return Derive(NamespaceActor, actorID)
}
