package gemini

import (
	"strings"

	"github.com/hewenyu/OperationKernel/internal/provider"
	"github.com/hewenyu/OperationKernel/internal/tool"
	"google.golang.org/genai"
)

// syntheticIDPrefix marks call ids minted locally because the server sent
// none. They are not echoed back to the API.
const syntheticIDPrefix = "gemini-"

func wireID(id string) string {
	if strings.HasPrefix(id, syntheticIDPrefix) {
		return ""
	}
	return id
}

// toContents converts the conversation to Gemini contents. Tool messages
// become user turns holding function responses.
func toContents(msgs []provider.Message) []*genai.Content {
	wire := provider.Fold(msgs)
	contents := make([]*genai.Content, 0, len(wire))
	for _, w := range wire {
		role := "user"
		if w.Role == provider.RoleAssistant {
			role = "model"
		}
		parts := make([]*genai.Part, 0, len(w.Content))
		for _, b := range w.Content {
			switch b := b.(type) {
			case provider.Text:
				if b.Text != "" {
					parts = append(parts, genai.NewPartFromText(b.Text))
				}
			case provider.ToolCall:
				args := b.Arguments
				if args == nil {
					args = map[string]any{}
				}
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   wireID(b.ID),
					Name: b.Name,
					Args: args,
				}})
			case provider.ToolResult:
				key := "output"
				if b.IsError {
					key = "error"
				}
				parts = append(parts, &genai.Part{FunctionResponse: &genai.FunctionResponse{
					ID:       wireID(b.ToolCallID),
					Name:     b.Name,
					Response: map[string]any{key: b.ResultContent()},
				}})
			}
		}
		if len(parts) == 0 {
			continue
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}
	return contents
}

// toTools converts the tool catalogue to a single function-declaration tool.
func toTools(decls []tool.Declaration) []*genai.Tool {
	if len(decls) == 0 {
		return nil
	}
	fds := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, d := range decls {
		fd := &genai.FunctionDeclaration{Name: d.Name, Description: d.Description}
		if d.Parameters != nil {
			fd.Parameters = toSchema(d.Parameters)
		}
		fds = append(fds, fd)
	}
	return []*genai.Tool{{FunctionDeclarations: fds}}
}

func toSchema(s *tool.Schema) *genai.Schema {
	out := &genai.Schema{
		Type:        toType(s.Type),
		Description: s.Description,
		Enum:        s.Enum,
		Required:    s.Required,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toSchema(prop)
		}
	}
	if s.Items != nil {
		out.Items = toSchema(s.Items)
	}
	return out
}

func toType(t tool.Type) genai.Type {
	switch t {
	case tool.TypeString:
		return genai.TypeString
	case tool.TypeNumber:
		return genai.TypeNumber
	case tool.TypeInteger:
		return genai.TypeInteger
	case tool.TypeBoolean:
		return genai.TypeBoolean
	case tool.TypeArray:
		return genai.TypeArray
	case tool.TypeObject:
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}

// defaultSafetySettings turns off blocking for every harm category.
func defaultSafetySettings() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHateSpeech,
		genai.HarmCategoryDangerousContent,
		genai.HarmCategoryHarassment,
		genai.HarmCategorySexuallyExplicit,
	}
	out := make([]*genai.SafetySetting, len(categories))
	for i, c := range categories {
		out[i] = &genai.SafetySetting{Category: c, Threshold: genai.HarmBlockThresholdOff}
	}
	return out
}
