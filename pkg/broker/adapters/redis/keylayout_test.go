package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLayoutBuilders(t *testing.T) {
	k := newKeyLayout("bull")

	assert.Equal(t, "bull:emails:meta", k.Meta("emails"))
	assert.Equal(t, "bull:emails:wait", k.Wait("emails"))
	assert.Equal(t, "bull:emails:active", k.Active("emails"))
	assert.Equal(t, "bull:emails:completed", k.Completed("emails"))
	assert.Equal(t, "bull:emails:failed", k.Failed("emails"))
	assert.Equal(t, "bull:emails:delayed", k.Delayed("emails"))
	assert.Equal(t, "bull:emails:42", k.Job("emails", "42"))
}

func TestKeyLayoutDefaultsPrefix(t *testing.T) {
	k := newKeyLayout("")
	assert.Equal(t, "bull:emails:meta", k.Meta("emails"))
}

func TestKeyLayoutMetaPattern(t *testing.T) {
	k := newKeyLayout("bull")
	assert.Equal(t, "bull:*:meta", k.MetaPattern())
}

func TestKeyLayoutKeyspacePattern(t *testing.T) {
	k := newKeyLayout("bull")
	assert.Equal(t, "__keyspace@0__:bull:*", k.KeyspacePattern(0))
	assert.Equal(t, "__keyspace@3__:bull:*", k.KeyspacePattern(3))
}

func TestParseMetaKeyAcceptsWellFormedKey(t *testing.T) {
	k := newKeyLayout("bull")

	queue, ok := k.ParseMetaKey("bull:emails:meta")
	assert.True(t, ok)
	assert.Equal(t, "emails", queue)
}

func TestParseMetaKeyPreservesColonsInQueueName(t *testing.T) {
	k := newKeyLayout("bull")

	queue, ok := k.ParseMetaKey("bull:team:emails:meta")
	assert.True(t, ok)
	assert.Equal(t, "team:emails", queue)
}

func TestParseMetaKeyRejectsWrongPrefix(t *testing.T) {
	k := newKeyLayout("bull")

	_, ok := k.ParseMetaKey("other:emails:meta")
	assert.False(t, ok)
}

func TestParseMetaKeyRejectsNonMetaSuffix(t *testing.T) {
	k := newKeyLayout("bull")

	_, ok := k.ParseMetaKey("bull:emails:wait")
	assert.False(t, ok)
}

func TestParseMetaKeyRejectsShortKey(t *testing.T) {
	k := newKeyLayout("bull")

	_, ok := k.ParseMetaKey("bull:meta")
	assert.False(t, ok)
}

func TestParseMetaKeyRejectsReservedQueueName(t *testing.T) {
	k := newKeyLayout("bull")

	for _, reserved := range []string{"wait", "active", "completed", "failed", "delayed", "meta"} {
		_, ok := k.ParseMetaKey("bull:" + reserved + ":meta")
		assert.Falsef(t, ok, "queue name %q should collide with a reserved suffix", reserved)
	}
}
