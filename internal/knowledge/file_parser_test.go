package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileParserManager_Supports(t *testing.T) {
	manager := NewFileParserManager()

	tests := []struct {
		filename string
		want     bool
	}{
		{"handbook.pdf", true},
		{"syllabus.docx", true},
		{"notes.txt", true},
		{"REPORT.PDF", true},
		{"slides.pptx", false},
		{"legacy.doc", false},
		{"image.png", false},
		{"noextension", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, manager.Supports(tt.filename), tt.filename)
	}
}

func TestFileParserManager_ParseFile_Text(t *testing.T) {
	manager := NewFileParserManager()

	text, err := manager.ParseFile(strings.NewReader("Campus map\r\nand directions.\n\n\n\nSecond section."), "map.txt")
	require.NoError(t, err)
	assert.Equal(t, "Campus map\nand directions.\n\nSecond section.", text)
}

func TestFileParserManager_ParseFile_InvalidUTF8(t *testing.T) {
	manager := NewFileParserManager()

	// 非法字节被丢弃，其余内容保留
	text, err := manager.ParseFile(strings.NewReader("hello \xff\xfe world"), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello  world", text)
}

func TestFileParserManager_ParseFile_Unsupported(t *testing.T) {
	manager := NewFileParserManager()

	_, err := manager.ParseFile(strings.NewReader("data"), "report.csv")
	assert.Error(t, err)
}

func TestFileParserManager_SupportedFormats(t *testing.T) {
	manager := NewFileParserManager()
	assert.ElementsMatch(t, []string{".pdf", ".docx", ".txt"}, manager.SupportedFormats())
}
