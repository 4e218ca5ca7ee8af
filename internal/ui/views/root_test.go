package views

import (
	"testing"
	"time"

	"github.com/hewenyu/OperationKernel/internal/tool/service/process"
	"github.com/hewenyu/OperationKernel/internal/ui/models"
	"github.com/stretchr/testify/assert"
)

func TestRenderRoot_NormalState(t *testing.T) {
	messages := []models.Message{{Role: models.RoleUser, Content: "Hi"}}

	vp := createTestViewport()
	vp.SetContent(FormatChatContent(messages, "", 76, &MockMarkdownRenderer{}))

	state := models.State{
		Width:       80,
		Height:      24,
		Messages:    messages,
		Input:       createTestTextInput("typing..."),
		StatusPhase: models.PhaseReady,
		Viewport:    vp,
	}

	result := RenderRoot(state)

	assert.Contains(t, result, "Hi")
	assert.Contains(t, result, "typing...")
	assert.Contains(t, result, "Ready")
}

func TestRenderRoot_WithJobsPopup(t *testing.T) {
	state := models.State{
		Width:    80,
		Height:   24,
		ShowJobs: true,
		Jobs: []process.Summary{
			{JobID: 1, Command: "npm run dev", SpawnedAt: time.Now(), Status: process.Status{State: process.Running}},
			{JobID: 2, Command: "make", SpawnedAt: time.Now(), Status: process.Status{State: process.Exited}},
		},
		Input:    createTestTextInput(""),
		Viewport: createTestViewport(),
	}

	result := RenderRoot(state)

	assert.Contains(t, result, "Background jobs")
	assert.Contains(t, result, "npm run dev")
	assert.Contains(t, result, "Exited(0)")
}

func TestRenderJobsPopup_Empty(t *testing.T) {
	assert.Empty(t, RenderJobsPopup(models.State{}, time.Now()))
	assert.Contains(t, RenderJobsPopup(models.State{ShowJobs: true}, time.Now()), "none")
}
