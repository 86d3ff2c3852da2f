package chatarchive

import (
	"context"
	"testing"

	"research_platform_backend/models"

	"github.com/stretchr/testify/assert"
)

func TestDisabledArchiveReportsStatus(t *testing.T) {
	archive := NewArchive("")

	assert.False(t, archive.Enabled())

	status := archive.ConnectionStatus()
	assert.Equal(t, false, status["uri_set"])
	assert.Equal(t, false, status["connected"])
	assert.Contains(t, status["error"], "MONGODB_URI")
}

func TestDisabledArchiveWritesAndCloseAreNoOps(t *testing.T) {
	archive := NewArchive("")

	thread := &models.ChatThread{ThreadKey: "thr-1", OwnerRole: "investor", OwnerID: 7}
	err := archive.ArchiveThread(context.Background(), thread, []models.ChatMessage{
		{Role: "user", Content: "what moved the index today"},
	})
	assert.NoError(t, err)

	assert.NoError(t, archive.Close())
	assert.NoError(t, archive.Close(), "repeated close must stay safe")
}
