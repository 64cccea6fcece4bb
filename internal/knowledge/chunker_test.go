package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunker_Split_Empty(t *testing.T) {
	chunker := NewChunker(500, 50)

	assert.Nil(t, chunker.Split(""))
	assert.Nil(t, chunker.Split("   \n\n\t  "))
}

func TestChunker_Split_ShortText(t *testing.T) {
	chunker := NewChunker(500, 50)

	chunks := chunker.Split("The library is open from 8am to 10pm.")
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "The library is open from 8am to 10pm.", chunks[0].Text)
}

func TestChunker_Split_ChunksWithinLimit(t *testing.T) {
	chunker := NewChunker(100, 20)

	// 长句叠加overlap尾巴容易顶破预算，这里的句子接近chunkSize
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		sb.WriteString("The financial aid office reviews every scholarship application before the spring deadline. ")
	}

	chunks := chunker.Split(sb.String())
	require.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		// overlap尾巴计入预算，任何块都不超过chunkSize
		assert.LessOrEqual(t, len([]rune(chunk.Text)), 100,
			"chunk %d too large: %q", chunk.Index, chunk.Text)
	}
}

func TestChunker_Split_SequentialIndexes(t *testing.T) {
	chunker := NewChunker(50, 10)

	chunks := chunker.Split(strings.Repeat("Exams are held in June. ", 20))
	require.Greater(t, len(chunks), 1)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
	}
}

func TestChunker_Split_PrefersParagraphBoundaries(t *testing.T) {
	chunker := NewChunker(60, 0)

	text := "First paragraph about enrollment.\n\nSecond paragraph about housing.\n\nThird paragraph about tuition fees."
	chunks := chunker.Split(text)
	require.Greater(t, len(chunks), 1)

	// 段落作为整体进入块，不会被从中间切开
	for _, chunk := range chunks {
		assert.Contains(t, text, strings.TrimSpace(chunk.Text))
	}
	assert.Contains(t, chunks[0].Text, "First paragraph")
}

func TestChunker_Split_Overlap(t *testing.T) {
	chunker := NewChunker(50, 15)

	chunks := chunker.Split(strings.Repeat("Deadlines matter. ", 20))
	require.Greater(t, len(chunks), 1)

	// 后一块以前一块的尾部开始
	for i := 1; i < len(chunks); i++ {
		prev := []rune(chunks[i-1].Text)
		overlap := 15
		if len(prev) < overlap {
			overlap = len(prev)
		}
		tail := string(prev[len(prev)-overlap:])
		assert.True(t, strings.HasPrefix(chunks[i].Text, tail),
			"chunk %d does not start with tail of chunk %d", i, i-1)
	}
}

func TestChunker_Split_ReconstructsOriginalText(t *testing.T) {
	chunker := NewChunker(80, 16)

	text := "Orientation week starts on Monday. Dorm keys are issued at the front desk. " +
		"The cafeteria serves breakfast from seven. Lab access requires a signed waiver. " +
		"Parking permits are sold out until October. The gym closes early on holidays."

	chunks := chunker.Split(text)
	require.Greater(t, len(chunks), 2)

	// 去掉每块与前一块重叠的前缀后拼接，应还原原文
	var sb strings.Builder
	sb.WriteString(chunks[0].Text)
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1].Text
		cur := []rune(chunks[i].Text)

		skip := 16
		if skip > len(cur) {
			skip = len(cur)
		}
		for skip > 0 && !strings.HasSuffix(prev, string(cur[:skip])) {
			skip--
		}
		sb.WriteString(string(cur[skip:]))
	}
	assert.Equal(t, text, sb.String())
}

func TestChunker_Split_NoSeparators(t *testing.T) {
	chunker := NewChunker(10, 0)

	// 没有任何分隔符时按字符硬切
	chunks := chunker.Split(strings.Repeat("a", 35))
	require.Len(t, chunks, 4)
	assert.Equal(t, 10, len(chunks[0].Text))
	assert.Equal(t, 5, len(chunks[3].Text))
}

func TestNewChunker_Defaults(t *testing.T) {
	chunker := NewChunker(0, -1)
	assert.Equal(t, 500, chunker.chunkSize)
	assert.Equal(t, 0, chunker.chunkOverlap)

	// overlap不允许吃掉整个块
	chunker = NewChunker(100, 200)
	assert.Equal(t, 25, chunker.chunkOverlap)
}
