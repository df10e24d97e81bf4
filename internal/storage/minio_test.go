package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectKeyLayout(t *testing.T) {
	// 同一请求的全部产物落在同一个对象前缀下
	uuid := "0192f3a0-0000-7000-8000-000000000001"

	assert.Equal(t, "optimize/"+uuid+"/original.pdf", originalObjectKey(uuid))
	assert.Equal(t, "optimize/"+uuid+"/parsed_text.txt", parsedObjectKey(uuid))
	assert.Equal(t, "optimize/"+uuid+"/result.json", resultObjectKey(uuid))
}
