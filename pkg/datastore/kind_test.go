package datastore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		token string
		want  Kind
	}{
		{"jpa", KindJPA},
		{"redis", KindRedis},
		{"couchdb", KindDocumentStore},
		{"in-memory", KindInMemory},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			t.Parallel()
			got, err := ParseKind(tt.token)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.token, got.String())
		})
	}
}

func TestParseKind_Unknown(t *testing.T) {
	t.Parallel()

	for _, token := range []string{"", "JPA", "Redis", "mongodb", "in_memory", " jpa"} {
		_, err := ParseKind(token)
		require.Error(t, err, token)
		assert.ErrorIs(t, err, ErrUnknownKind)

		var uke *UnknownKindError
		require.True(t, errors.As(err, &uke))
		assert.Equal(t, token, uke.Discriminator)
	}
}

func TestKindsAreDistinct(t *testing.T) {
	t.Parallel()

	seen := map[string]Kind{}
	for _, k := range Kinds {
		assert.True(t, k.Valid())
		_, dup := seen[k.String()]
		assert.False(t, dup, k.String())
		seen[k.String()] = k
	}
	assert.Len(t, seen, 4)
	assert.False(t, Kind(0).Valid())
	assert.Equal(t, "Kind(0)", Kind(0).String())
}

func TestKindText(t *testing.T) {
	t.Parallel()

	var k Kind
	require.NoError(t, k.UnmarshalText([]byte("couchdb")))
	assert.Equal(t, KindDocumentStore, k)

	text, err := k.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "couchdb", string(text))

	assert.ErrorIs(t, k.UnmarshalText([]byte("mongo")), ErrUnknownKind)
	_, err = Kind(99).MarshalText()
	assert.Error(t, err)
}

func TestServiceName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "simplepush.datastore.default", ServiceName("default").String())
	assert.True(t, ServiceNamePrefix.IsParentOf(ServiceName("other")))
}

func TestSortAcks(t *testing.T) {
	t.Parallel()
	acks := []Ack{{"b", 1}, {"a", 2}, {"a", 1}}
	SortAcks(acks)
	assert.Equal(t, []Ack{{"a", 1}, {"a", 2}, {"b", 1}}, acks)
}
