package provision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	t.Parallel()

	addr, err := ParseAddress("/subsystem=simplepush/server=default/datastore=jpa")
	require.NoError(t, err)
	assert.Equal(t, DatastoreAddress("default", "jpa"), addr)
	assert.Equal(t, "/subsystem=simplepush/server=default/datastore=jpa", addr.String())

	id, err := addr.ServerInstanceID()
	require.NoError(t, err)
	assert.Equal(t, "default", id)

	disc, err := addr.Discriminator()
	require.NoError(t, err)
	assert.Equal(t, "jpa", disc)
}

func TestParseAddressErrors(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "/", "/subsystem", "/subsystem=", "/=x", "/a=b//c=d"} {
		_, err := ParseAddress(s)
		assert.ErrorIs(t, err, ErrInvalidAddress, "address %q", s)
	}
}

func TestAddressRequiresServerAndDatastore(t *testing.T) {
	t.Parallel()

	short := Address{{SubsystemKey, SubsystemName}}
	_, err := short.ServerInstanceID()
	assert.ErrorIs(t, err, ErrInvalidAddress)
	_, err = short.Discriminator()
	assert.ErrorIs(t, err, ErrInvalidAddress)

	_, err = DatastoreAddress("", "redis").ServerInstanceID()
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestAddressTwoElements(t *testing.T) {
	t.Parallel()

	// The server is element 1 and the discriminator is the last element,
	// which may be the same element.
	addr := Address{{SubsystemKey, SubsystemName}, {ServerKey, "in-memory"}}
	id, err := addr.ServerInstanceID()
	require.NoError(t, err)
	disc, err := addr.Discriminator()
	require.NoError(t, err)
	assert.Equal(t, id, disc)
}
