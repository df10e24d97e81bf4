package constants

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedisKeyFormats(t *testing.T) {
	assert.Equal(t, "app:generation:result:abc123",
		fmt.Sprintf(KeyGenerationResult, "abc123"))
	assert.Equal(t, "app:file:dedup_set", KeyFileMD5Set)
	assert.Equal(t, "app:job:status:req-1",
		fmt.Sprintf(KeyJobStatus, "req-1"))
}
