package controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedExtension(t *testing.T) {
	allowed := []string{".pdf", ".docx", ".txt"}

	tests := []struct {
		filename string
		want     bool
	}{
		{"handbook.pdf", true},
		{"Handbook.PDF", true},
		{"notes.txt", true},
		{"syllabus.docx", true},
		{"archive.zip", false},
		{"noext", false},
		{".hidden", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, allowedExtension(tt.filename, allowed), tt.filename)
	}
}

func TestAllowedExtension_BareNames(t *testing.T) {
	// 配置里写成不带点的扩展名也能匹配
	assert.True(t, allowedExtension("a.pdf", []string{"pdf"}))
	assert.False(t, allowedExtension("a.exe", []string{"pdf"}))
}
