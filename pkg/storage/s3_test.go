package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateBriefFileType(t *testing.T) {
	assert.True(t, ValidateBriefFileType("application/pdf", "brief.bin"))
	assert.True(t, ValidateBriefFileType("", "Brief.PDF"))
	assert.True(t, ValidateBriefFileType("application/octet-stream", "deck.pptx"))
	assert.False(t, ValidateBriefFileType("video/mp4", "clip.mp4"))
	assert.False(t, ValidateBriefFileType("", "noext"))
}

func TestBriefKey(t *testing.T) {
	key := BriefKey("c1", "../../etc/Brief.PDF")
	assert.True(t, strings.HasPrefix(key, "briefs/c1/"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))
	assert.NotContains(t, key, "..")
	assert.True(t, IsBriefKey(key))
	assert.False(t, IsBriefKey("https://example.com/brief.pdf"))

	assert.NotEqual(t, key, BriefKey("c1", "Brief.PDF"), "same-name uploads get distinct keys")
}

func TestContentTypeForFilename(t *testing.T) {
	assert.Equal(t, "application/pdf", ContentTypeForFilename("a.pdf"))
	assert.Equal(t, "application/octet-stream", ContentTypeForFilename("a.exe"))
}
