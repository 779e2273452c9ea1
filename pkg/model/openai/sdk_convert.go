package openai

import (
	"strings"

	openaisdk "github.com/openai/openai-go"

	modelpkg "github.com/rajit-b/agentic-app/pkg/model"
)

func convertMessages(messages []modelpkg.Message) []openaisdk.ChatCompletionMessageParamUnion {
	if len(messages) == 0 {
		return []openaisdk.ChatCompletionMessageParamUnion{openaisdk.UserMessage("")}
	}
	params := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch strings.ToLower(msg.Role) {
		case modelpkg.RoleSystem:
			params = append(params, openaisdk.SystemMessage(msg.Content))
		case modelpkg.RoleAssistant:
			params = append(params, openaisdk.AssistantMessage(msg.Content))
		default:
			params = append(params, openaisdk.UserMessage(msg.Content))
		}
	}
	return params
}
