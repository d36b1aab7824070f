// File: internal/services/ai/openai_provider.go
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/template"

	openai "github.com/sashabaranov/go-openai"
	"github.com/yuin/goldmark"
)

const systemPrompt = "Você é a assessoria de comunicação de uma subprefeitura municipal. " +
	"Escreva em português do Brasil, em tom institucional, usando Markdown."

type promptSpec struct {
	tmpl     *template.Template
	required []string
}

// Prompt templates keyed by function name. Fields come from the invocation payload.
var promptTemplates = map[string]promptSpec{
	"generate-official-note": {required: []string{"tema"}, tmpl: template.Must(template.New("generate-official-note").Parse(
		`Redija uma nota oficial sobre o tema "{{.tema}}".
{{with .veiculo}}Veículo solicitante: {{.}}.
{{end}}{{with .perguntas}}Perguntas recebidas:
{{.}}
{{end}}{{with .respostas}}Informações das áreas técnicas:
{{.}}
{{end}}`))},
	"draft-demand-response": {required: []string{"titulo"}, tmpl: template.Must(template.New("draft-demand-response").Parse(
		`Prepare uma resposta à demanda de imprensa "{{.titulo}}".
{{with .detalhes}}Detalhes da demanda:
{{.}}
{{end}}{{with .prazo}}Prazo de resposta: {{.}}.
{{end}}`))},
	"summarize-esic-request": {required: []string{"texto"}, tmpl: template.Must(template.New("summarize-esic-request").Parse(
		`Resuma o pedido e-SIC abaixo em até cinco tópicos, indicando o órgão responsável quando possível.
{{with .protocolo}}Protocolo: {{.}}.
{{end}}{{.texto}}`))},
}

// GeneratedDraft is the result returned to the portal by the completion backend.
type GeneratedDraft struct {
	Content string `json:"content"`
	HTML    string `json:"html"`
}

// OpenAIFunctionInvoker serves named functions with a chat completion instead of an edge function.
type OpenAIFunctionInvoker struct {
	config   *Config
	client   *openai.Client
	markdown goldmark.Markdown
}

func NewOpenAIFunctionInvoker(config *Config) *OpenAIFunctionInvoker {
	llmConfig := openai.DefaultConfig(config.LLMKey)
	if config.LLMBaseURL != "" {
		llmConfig.BaseURL = config.LLMBaseURL
	}
	return &OpenAIFunctionInvoker{
		config:   config,
		client:   openai.NewClientWithConfig(llmConfig),
		markdown: goldmark.New(),
	}
}

// Functions lists the function names this invoker can serve.
func (p *OpenAIFunctionInvoker) Functions() []string {
	names := make([]string, 0, len(promptTemplates))
	for name := range promptTemplates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *OpenAIFunctionInvoker) InvokeFunction(ctx context.Context, name string, payload json.RawMessage) (json.RawMessage, error) {
	prompt, err := buildPrompt(name, payload)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: p.config.Temperature,
		TopP:        p.config.TopP,
	})
	if err != nil {
		return nil, NewRemoteError(name, completionMessage(err), 0, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, NewRemoteError(name, "empty completion response", 0, nil)
	}

	content := resp.Choices[0].Message.Content
	var html bytes.Buffer
	if err := p.markdown.Convert([]byte(content), &html); err != nil {
		return nil, NewRemoteError(name, "failed to render completion", 0, err)
	}
	return json.Marshal(GeneratedDraft{Content: content, HTML: html.String()})
}

func buildPrompt(name string, payload json.RawMessage) (string, error) {
	spec, ok := promptTemplates[name]
	if !ok {
		return "", NewRemoteError(name, "unknown function", 404, nil)
	}
	fields := map[string]interface{}{}
	if len(bytes.TrimSpace(payload)) > 0 {
		if err := json.Unmarshal(payload, &fields); err != nil {
			return "", NewRemoteError(name, "payload must be a JSON object", 400, err)
		}
	}
	for _, key := range spec.required {
		if v, ok := fields[key]; !ok || v == nil || v == "" {
			return "", NewRemoteError(name, fmt.Sprintf("payload field %q is required", key), 400, nil)
		}
	}
	var sb strings.Builder
	if err := spec.tmpl.Execute(&sb, fields); err != nil {
		return "", NewRemoteError(name, "failed to build prompt", 0, err)
	}
	return strings.TrimSpace(sb.String()), nil
}

func completionMessage(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "failed to create completion"
}
