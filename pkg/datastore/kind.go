// Package datastore defines the SimplePush datastore capability, the closed
// set of backend kinds that can provide it, and the classifier that maps a
// configuration discriminator to a kind.
package datastore

import (
	"errors"
	"fmt"

	"github.com/marmos91/pushstore/pkg/service"
)

// Kind identifies a datastore backend variant.
type Kind int

const (
	// KindJPA stores data through an ORM over an externally managed datasource.
	KindJPA Kind = iota + 1
	// KindRedis stores data in a Redis server.
	KindRedis
	// KindDocumentStore stores data in a CouchDB database.
	KindDocumentStore
	// KindInMemory keeps data in process memory.
	KindInMemory
)

// Discriminator tokens, matched case-sensitively.
const (
	TokenJPA           = "jpa"
	TokenRedis         = "redis"
	TokenDocumentStore = "couchdb"
	TokenInMemory      = "in-memory"
)

// Kinds lists every backend kind in declaration order.
var Kinds = []Kind{KindJPA, KindRedis, KindDocumentStore, KindInMemory}

// ServiceNamePrefix is the parent of every datastore service name.
var ServiceNamePrefix = service.NewName("simplepush", "datastore")

// ServiceName returns the datastore service name for a server instance.
func ServiceName(serverInstanceID string) service.Name {
	return ServiceNamePrefix.Append(serverInstanceID)
}

// ErrUnknownKind is matched by errors returned for unrecognised discriminators.
var ErrUnknownKind = errors.New("unknown datastore kind")

// UnknownKindError reports a discriminator outside the known set.
type UnknownKindError struct {
	Discriminator string
}

func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("%v: %q", ErrUnknownKind, e.Discriminator)
}

func (e *UnknownKindError) Unwrap() error { return ErrUnknownKind }

// ParseKind classifies a discriminator. Only the exact tokens are accepted;
// there is no default kind.
func ParseKind(discriminator string) (Kind, error) {
	switch discriminator {
	case TokenJPA:
		return KindJPA, nil
	case TokenRedis:
		return KindRedis, nil
	case TokenDocumentStore:
		return KindDocumentStore, nil
	case TokenInMemory:
		return KindInMemory, nil
	default:
		return 0, &UnknownKindError{Discriminator: discriminator}
	}
}

// String returns the discriminator token of k.
func (k Kind) String() string {
	switch k {
	case KindJPA:
		return TokenJPA
	case KindRedis:
		return TokenRedis
	case KindDocumentStore:
		return TokenDocumentStore
	case KindInMemory:
		return TokenInMemory
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	return k >= KindJPA && k <= KindInMemory
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid datastore kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
