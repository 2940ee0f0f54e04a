package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPasswordHashing(t *testing.T) {
	t.Run("matching password verifies", func(t *testing.T) {
		hash, err := HashPassword("hunter2")
		assert.NoError(t, err)
		assert.Contains(t, hash, "$argon2id$")

		match, err := ComparePassword("hunter2", hash)
		assert.NoError(t, err)
		assert.True(t, match)
	})

	t.Run("wrong password does not verify", func(t *testing.T) {
		hash, err := HashPassword("hunter2")
		assert.NoError(t, err)

		match, err := ComparePassword("hunter3", hash)
		assert.NoError(t, err)
		assert.False(t, match)
	})

	t.Run("hashes are salted", func(t *testing.T) {
		first, err := HashPassword("hunter2")
		assert.NoError(t, err)

		second, err := HashPassword("hunter2")
		assert.NoError(t, err)

		assert.NotEqual(t, first, second)
	})

	t.Run("malformed hash is an error", func(t *testing.T) {
		_, err := ComparePassword("hunter2", "not-a-hash")
		assert.Error(t, err)
	})

	t.Run("six-part hash with garbage parameters is an error", func(t *testing.T) {
		_, err := ComparePassword("hunter2", "$argon2id$v=19$bogus$AAAA$AAAA")
		assert.Error(t, err)
	})

	t.Run("wrong algorithm is an error", func(t *testing.T) {
		hash, err := HashPassword("hunter2")
		assert.NoError(t, err)

		_, err = ComparePassword("hunter2", strings.Replace(hash, "argon2id", "argon2i", 1))
		assert.Error(t, err)
	})

	t.Run("unknown version is an error", func(t *testing.T) {
		hash, err := HashPassword("hunter2")
		assert.NoError(t, err)

		_, err = ComparePassword("hunter2", strings.Replace(hash, "v=19", "v=99", 1))
		assert.Error(t, err)
	})
}
