package knowledge

import (
	"testing"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMilvusDistance(t *testing.T) {
	cases := map[string]string{
		"dot":           "IP",
		"IP":            "IP",
		"inner_product": "IP",
		"l2":            "L2",
		"euclidean":     "L2",
		"cosine":        "COSINE",
		"":              "COSINE",
		"unknown":       "COSINE",
	}
	for input, want := range cases {
		assert.Equal(t, want, formatMilvusDistance(input), "input %q", input)
	}
}

func TestMilvusIndexConstructors(t *testing.T) {
	// 主索引HNSW，参数非法时回退IVF_FLAT，两者都要能装进同一个接口
	var index entity.Index
	index, err := entity.NewIndexHNSW(entity.COSINE, 8, 64)
	require.NoError(t, err)
	assert.NotNil(t, index)

	index, err = entity.NewIndexIvfFlat(entity.COSINE, 128)
	require.NoError(t, err)
	assert.NotNil(t, index)
}
