package render

import (
	"bytes"
	"errors"
	"testing"

	"github.com/SaiNageswarS/doqq/controller"
	"github.com/SaiNageswarS/doqq/llm"
	"github.com/SaiNageswarS/doqq/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrinter_PlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	assert.False(t, p.styled)
	assert.Nil(t, p.markdown)
}

func TestPrinter_Transcript(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Transcript([]controller.Line{
		{Role: llm.RoleUser, Content: "Prime the agent", IsQuery: true, Status: true},
		{Role: llm.RoleUser, Content: "what does main do?", IsQuery: true},
		{Role: llm.RoleAssistant, Content: "It **starts** the server."},
	})

	assert.Equal(t,
		"* Prime the agent\n"+
			"you: what does main do?\n"+
			"doqq: It **starts** the server.\n",
		buf.String())
}

func TestPrinter_StyledRendersMarkdown(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, true)
	require.NotNil(t, p.markdown)

	p.Line(controller.Line{Role: llm.RoleAssistant, Content: "# Title\n\nbody"})
	assert.Contains(t, buf.String(), "Title")
	assert.Contains(t, buf.String(), "body")
}

func TestPrinter_Sessions(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Sessions(nil)
	assert.Equal(t, "No sessions yet\n", buf.String())

	buf.Reset()
	p.Sessions([]memory.Conversation{
		{ID: 1, Name: "repo", ModelName: "llama3", History: []llm.Message{
			llm.ControlMessage("prime"),
			{Role: llm.RoleAssistant, Content: "ok"},
		}},
		{ID: 0},
	})
	out := buf.String()
	assert.Contains(t, out, "Sessions")
	assert.Contains(t, out, "repo")
	assert.Contains(t, out, "1 messages")
	assert.Contains(t, out, "(empty)")
}

func TestPrinter_Models(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Models([]llm.ModelInfo{
		{Name: "llama3", Details: llm.ModelDetails{ParameterSize: "8B", QuantizationLevel: "Q4_0"}},
		{Name: "codellama:13b"},
	}, "llama3")

	assert.Contains(t, buf.String(), "* llama3")
	assert.Contains(t, buf.String(), "8B Q4_0")
	assert.Contains(t, buf.String(), "  codellama:13b")
}

func TestPrinter_Error(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.Error(nil)
	assert.Empty(t, buf.String())

	p.Error(errors.New("connection refused"))
	assert.Equal(t, "error: connection refused\n", buf.String())
}

func TestReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewReporter(NewPrinter(&buf), true)

	r.Send(controller.NewLine(0, controller.Line{Role: llm.RoleUser, Content: "Primed 1 files", Status: true}))
	r.Send(controller.NewFilePrimed(0, "a.txt", nil))
	r.Send(controller.NewFilePrimed(0, "b.txt", errors.New("boom")))
	r.Send(controller.NewPhaseChange(controller.PhaseReady, nil))
	r.Send(controller.NewPhaseChange(controller.PhaseLoadFailed, errors.New("walk aborted")))

	assert.Equal(t,
		"* Primed 1 files\n"+
			"* sent a.txt\n"+
			"error: boom\n"+
			"error: load_failed: walk aborted\n",
		buf.String())
}
