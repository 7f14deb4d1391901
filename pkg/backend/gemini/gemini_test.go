package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adntgv/gptree/pkg/backend"
	"github.com/adntgv/gptree/pkg/models"
)

func TestBuildContentsRoleMapping(t *testing.T) {
	history := []backend.Turn{
		{Role: models.AuthorUser, Text: "question"},
		{Role: models.AuthorAssistant, Text: "answer"},
		{Role: models.AuthorUser, Text: "follow-up"},
	}
	contents, system := BuildContents(history)

	assert.Empty(t, system)
	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)
	assert.Equal(t, "user", contents[2].Role)
	assert.Equal(t, "answer", contents[1].Parts[0].Text)
}

func TestBuildContentsFoldsSystemTurns(t *testing.T) {
	history := []backend.Turn{
		{Role: models.AuthorSystem, Text: "be brief"},
		{Role: models.AuthorUser, Text: "hello"},
		{Role: models.AuthorSystem, Text: "be kind"},
	}
	contents, system := BuildContents(history)

	assert.Equal(t, "be brief\nbe kind", system)
	require.Len(t, contents, 1)
	assert.Equal(t, "user", contents[0].Role)
}

func TestTranscriptFormat(t *testing.T) {
	msgs := []models.Message{
		{Author: models.AuthorUser, Text: "hi"},
		{Author: models.AuthorAssistant, Text: "hello"},
	}
	assert.Equal(t, "USER: hi\nASSISTANT: hello", transcript(msgs))
}
