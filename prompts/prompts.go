package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"strings"
	"text/template"
)

//go:embed templates/*
var templatesFS embed.FS

// EndSignal tells a primed model that every file has been sent.
const EndSignal = "END_CHUNK_SEND"

// FilePayload is one file sent to the model while priming.
type FilePayload struct {
	FileName     string `json:"file_name"`
	RelativePath string `json:"relative_path"`
	Content      string `json:"content"`
}

// Encode returns the JSON form of the payload.
func (p FilePayload) Encode() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// RenderPrimePrompt renders the instruction that puts the model into its
// waiting mode until EndSignal arrives.
func RenderPrimePrompt() (string, error) {
	return render("templates/prime_agent.md", struct{ EndSignal string }{EndSignal: EndSignal})
}

// RenderFileChunk renders the message carrying one file; index is 1-based.
func RenderFileChunk(index int, payload FilePayload) (string, error) {
	encoded, err := payload.Encode()
	if err != nil {
		return "", err
	}

	data := struct {
		Index   int
		Payload string
	}{
		Index:   index,
		Payload: encoded,
	}
	return render("templates/file_chunk.md", data)
}

func render(name string, data any) (string, error) {
	content, err := templatesFS.ReadFile(name)
	if err != nil {
		return "", err
	}

	tmpl, err := template.New(name).Parse(string(content))
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
