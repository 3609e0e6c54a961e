// Package perception turns raw utterances into structured commands: an intent
// label from a Classifier plus the entities found by the extractors.
package perception

import (
	"context"
	"strings"

	"zentaohelper/internal/logging"
)

// DefaultConfidence is reported for every parse until classifiers expose a score.
const DefaultConfidence = 0.9

// ParsedCommand is the result of parsing one utterance.
type ParsedCommand struct {
	Intent     IntentLabel `json:"intent"`
	Entities   EntityBag   `json:"entities"`
	Raw        string      `json:"raw_text"`
	Confidence float64     `json:"confidence"`
}

// CommandParser composes classification and extraction.
type CommandParser struct {
	classifier Classifier
}

// NewCommandParser creates a parser around classifier.
func NewCommandParser(classifier Classifier) *CommandParser {
	return &CommandParser{classifier: classifier}
}

// Parse never fails; unrecognised text yields IntentUnknown.
func (p *CommandParser) Parse(ctx context.Context, text string) ParsedCommand {
	text = strings.TrimSpace(text)
	cmd := ParsedCommand{
		Intent:     p.classifier.Classify(ctx, text),
		Entities:   ExtractAll(text),
		Raw:        text,
		Confidence: DefaultConfidence,
	}
	logging.Get(logging.CategoryPerception).With(
		"intent", cmd.Intent,
		"task_id", cmd.Entities.TaskID,
		"story_id", cmd.Entities.StoryID,
		"username", cmd.Entities.Username,
		"status", cmd.Entities.Status,
		"subtasks", len(cmd.Entities.SubtaskNames),
	).Info("parsed command")
	return cmd
}

// HelpText returns the static usage guide.
func (p *CommandParser) HelpText() string {
	return helpText
}

const helpText = `# 禅道助手 - 使用帮助

## 查看需求
- 查看我的需求
- 显示需求列表
- 显示进行中的需求

## 查看任务
- 查看我的任务
- 显示任务列表
- 显示未开始的任务

## 任务拆解
- 拆解任务#123
- 拆解任务#123为前端开发和后端开发
- 拆分任务#123成A、B和C

## 任务分配
- 把任务#456分配给张三
- 指派任务#789给wangxiaoming
- 分配任务#123给 @lisi

## 帮助
- 帮助
- 怎么用
- 能做什么

提示：任务ID可以用 #123、任务123、123号任务 等形式表示。
`
