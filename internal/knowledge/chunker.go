package knowledge

import (
	"strings"
)

// Chunk 表示分块后的文本结构
type Chunk struct {
	Index int
	Text  string
}

// defaultSeparators 从粗到细的分隔符级联
var defaultSeparators = []string{"\n\n", "\n", ".", "!", "?", " "}

// Chunker 递归文本分块器。优先使用粗粒度分隔符切分，
// 切出的片段仍超过预算时逐级降到更细的分隔符，最终退化为按字符切片。
// 相邻块之间共享 chunkOverlap 个字符的上下文。
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewChunker 创建分块器
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: overlap,
		separators:   defaultSeparators,
	}
}

// Split 将文本切分为多个chunk，空输入返回nil
func (c *Chunker) Split(text string) []Chunk {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}

	pieces := c.splitRecursive(clean, c.separators)
	merged := c.mergePieces(pieces)

	chunks := make([]Chunk, 0, len(merged))
	for _, m := range merged {
		if strings.TrimSpace(m) == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Text:  m,
		})
	}
	return chunks
}

// splitRecursive 在分隔符级联上递归切分，保证每个片段不超过chunkSize
func (c *Chunker) splitRecursive(text string, separators []string) []string {
	if runeLen(text) <= c.chunkSize {
		return []string{text}
	}
	if len(separators) == 0 {
		return c.sliceRunes(text)
	}

	sep := separators[0]
	rest := separators[1:]

	// 保留分隔符在片段尾部，保证块拼接后仍还原原文
	parts := strings.SplitAfter(text, sep)
	if len(parts) == 1 {
		return c.splitRecursive(text, rest)
	}

	var out []string
	for _, part := range parts {
		if part == "" {
			continue
		}
		if runeLen(part) <= c.chunkSize {
			out = append(out, part)
			continue
		}
		out = append(out, c.splitRecursive(part, rest)...)
	}
	return out
}

// sliceRunes 没有可用分隔符时按字符硬切
func (c *Chunker) sliceRunes(text string) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += c.chunkSize {
		end := start + c.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// mergePieces 将片段聚合为不超过chunkSize的块，块之间携带overlap的尾部上下文
func (c *Chunker) mergePieces(pieces []string) []string {
	var chunks []string
	var cur strings.Builder
	curLen := 0
	appended := false

	for _, piece := range pieces {
		pl := runeLen(piece)
		if curLen+pl > c.chunkSize {
			if appended {
				chunk := cur.String()
				chunks = append(chunks, chunk)

				tail := overlapTail(chunk, c.chunkOverlap)
				cur.Reset()
				cur.WriteString(tail)
				curLen = runeLen(tail)
				appended = false
			}
			// overlap尾巴同样计入预算，放不下时裁短，块永不超过chunkSize
			if curLen+pl > c.chunkSize {
				tail := overlapTail(cur.String(), c.chunkSize-pl)
				cur.Reset()
				cur.WriteString(tail)
				curLen = runeLen(tail)
			}
		}
		cur.WriteString(piece)
		curLen += pl
		appended = true
	}

	// 只有overlap尾巴而没有新片段时不重复输出
	if appended && cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

// overlapTail 返回块尾部的overlap个字符
func overlapTail(s string, overlap int) string {
	if overlap <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= overlap {
		return s
	}
	return string(runes[len(runes)-overlap:])
}

func runeLen(s string) int {
	return len([]rune(s))
}
