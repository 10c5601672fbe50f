package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/rmkendall/croft/errors"
	"github.com/rmkendall/croft/session"
	"github.com/rmkendall/croft/tools"
	"google.golang.org/api/option"
)

// GeminiClient is a client for the Google Gemini API.
type GeminiClient struct {
	model *genai.GenerativeModel
}

// NewGeminiClient creates a new GeminiClient.
// It requires the GEMINI_API_KEY environment variable to be set.
func NewGeminiClient(ctx context.Context, modelName string) (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create genai client")
	}

	return &GeminiClient{model: client.GenerativeModel(modelName)}, nil
}

// Chat sends a chat request to the Gemini API.
func (g *GeminiClient) Chat(ctx context.Context, messages []session.Message, availableTools []tools.Tool) (*session.Message, error) {
	history := toGeminiContent(messages)
	if len(history) == 0 {
		return nil, errors.New("no messages to send to Gemini")
	}
	g.model.Tools = toGeminiTools(availableTools)

	last := history[len(history)-1]
	chat := g.model.StartChat()
	chat.History = history[:len(history)-1]

	resp, err := chat.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send message to Gemini")
	}

	return fromGeminiResponse(resp)
}

// toGeminiContent converts the internal message history to Gemini's content
// format. Tool results are rendered as user-role text since the chat API
// pairs function responses with declarations the runtime does not replay.
func toGeminiContent(messages []session.Message) []*genai.Content {
	var contents []*genai.Content
	for _, msg := range messages {
		role := "user"
		text := msg.Content
		switch msg.Role {
		case session.RoleAssistant:
			role = "model"
		case session.RoleTool:
			if len(msg.ToolCalls) > 0 {
				text = fmt.Sprintf("Tool %s returned:\n%s", msg.ToolCalls[0].Name, msg.Content)
			}
		}
		if text == "" && len(msg.ToolCalls) > 0 {
			// Assistant turns that were pure tool calls.
			text = fmt.Sprintf("[requested tool %s]", msg.ToolCalls[0].Name)
		}
		if text == "" {
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(text)},
		})
	}
	return contents
}

// toGeminiTools converts the Tool interface to Gemini's FunctionDeclaration
// format. Arguments travel nested under a single "args" object.
func toGeminiTools(ts []tools.Tool) []*genai.Tool {
	if len(ts) == 0 {
		return nil
	}
	var funcDecls []*genai.FunctionDeclaration
	for _, tool := range ts {
		funcDecls = append(funcDecls, &genai.FunctionDeclaration{
			Name:        tool.Name(),
			Description: tool.Description(),
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"args": {
						Type:        genai.TypeObject,
						Description: "Arguments for the function call, as a map.",
					},
				},
				Required: []string{"args"},
			},
		})
	}
	return []*genai.Tool{{FunctionDeclarations: funcDecls}}
}

// fromGeminiResponse converts a Gemini API response into the internal
// message format. Function calls are surfaced as tool calls with generated
// ids; Gemini does not issue its own.
func fromGeminiResponse(resp *genai.GenerateContentResponse) (*session.Message, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("received an empty response from Gemini")
	}

	var content string
	var toolCalls []session.ToolCall

	for _, part := range resp.Candidates[0].Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			content += string(v)
		case genai.FunctionCall:
			args := v.Args
			if nested, ok := v.Args["args"].(map[string]interface{}); ok {
				args = nested
			}
			toolCalls = append(toolCalls, session.ToolCall{
				ToolCallID: "gemini_" + uuid.NewString(),
				Name:       v.Name,
				Args:       args,
			})
		default:
			return nil, errors.New("unsupported part type in Gemini response: %T", v)
		}
	}

	return &session.Message{
		Role:      session.RoleAssistant,
		Content:   content,
		ToolCalls: toolCalls,
	}, nil
}
