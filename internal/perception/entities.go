package perception

import (
	"regexp"
	"strings"

	"zentaohelper/internal/logging"
)

// =============================================================================
// ENTITY EXTRACTION
// =============================================================================
//
// Every extractor is pure: same text in, same entity out. Within one kind the
// pattern list is tried in order and the first pattern that matches wins, even
// when a later pattern would match earlier in the text.

// StatusLabel is the tracker's task/story status vocabulary.
type StatusLabel string

const (
	StatusWait   StatusLabel = "wait"
	StatusDoing  StatusLabel = "doing"
	StatusDone   StatusLabel = "done"
	StatusClosed StatusLabel = "closed"
)

// EntityBag holds everything extracted from one utterance. Empty fields are absent.
type EntityBag struct {
	TaskID       string      `json:"task_id,omitempty"`
	StoryID      string      `json:"story_id,omitempty"`
	Username     string      `json:"username,omitempty"`
	Status       StatusLabel `json:"status,omitempty"`
	SubtaskNames []string    `json:"subtask_names,omitempty"`
}

func (b EntityBag) HasTaskID() bool   { return b.TaskID != "" }
func (b EntityBag) HasStoryID() bool  { return b.StoryID != "" }
func (b EntityBag) HasUsername() bool { return b.Username != "" }
func (b EntityBag) HasStatus() bool   { return b.Status != "" }
func (b EntityBag) HasSubtasks() bool { return len(b.SubtaskNames) > 0 }

// word is a Unicode-aware \w so Chinese account names survive.
const word = `[\p{L}\p{N}_]+`

var taskIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:任务|task|需求|story)?#(\d+)`),
	regexp.MustCompile(`(?i)(?:任务|task)\s*(\d+)`),
	regexp.MustCompile(`(?i)(\d+)\s*(?:号|编号|id)\s*(?:任务|task|需求|story)?`),
}

var storyIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:需求|story)#(\d+)`),
	regexp.MustCompile(`(?i)(?:需求|story)\s*(\d+)`),
	regexp.MustCompile(`(?i)(\d+)\s*(?:号|编号|id)\s*(?:需求|story)`),
}

var usernamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`@(` + word + `)`),
	regexp.MustCompile(`(?:指派给|分配给|指定给|给)\s*(` + word + `)`),
	regexp.MustCompile(`(?:指派|分配|指定)\s*(` + word + `)`),
}

// Chinese names carry no spaces, so whitespace separates them too. English
// names keep their inner spaces and are separated by commas or "and".
var (
	chineseDelimiters = regexp.MustCompile(`[、,，和与\s]+`)
	englishDelimiters = regexp.MustCompile(`(?i)\s*[,，、;]\s*(?:and\s+)?|\s+and\s+`)
)

// subtaskTriggers mark where the subtask list starts, in priority order.
var subtaskTriggers = []struct {
	trigger    *regexp.Regexp
	delimiters *regexp.Regexp
}{
	{regexp.MustCompile(`拆(?:解|分)?(?:任务)?\s*(?:#?\d+)?\s*(?:成|为)\s*(.+)`), chineseDelimiters},
	{regexp.MustCompile(`分解(?:任务)?\s*(?:#?\d+)?\s*(?:成|为)\s*(.+)`), chineseDelimiters},
	{regexp.MustCompile(`(?i)split(?:\s+task)?\s*(?:#?\d+)?\s+into\s+(.+)`), englishDelimiters},
}

// statusKeywords is ordered; the first keyword found in the text wins.
var statusKeywords = []struct {
	keyword string
	status  StatusLabel
}{
	{"未开始", StatusWait},
	{"待办", StatusWait},
	{"进行中", StatusDoing},
	{"正在做", StatusDoing},
	{"已完成", StatusDone},
	{"完成", StatusDone},
	{"已关闭", StatusClosed},
	{"关闭", StatusClosed},
}

func firstGroup(patterns []*regexp.Regexp, text string) (string, bool) {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// ExtractTaskID returns the first task id mentioned in text.
func ExtractTaskID(text string) (string, bool) {
	id, ok := firstGroup(taskIDPatterns, text)
	if ok {
		logging.PerceptionDebug("extracted task_id=%s", id)
	}
	return id, ok
}

// ExtractStoryID returns the first story id mentioned in text.
func ExtractStoryID(text string) (string, bool) {
	id, ok := firstGroup(storyIDPatterns, text)
	if ok {
		logging.PerceptionDebug("extracted story_id=%s", id)
	}
	return id, ok
}

// ExtractUsername returns the user referenced by @mention or an assignment verb.
func ExtractUsername(text string) (string, bool) {
	name, ok := firstGroup(usernamePatterns, text)
	if ok {
		logging.PerceptionDebug("extracted username=%s", name)
	}
	return name, ok
}

// ExtractSubtaskNames returns the names listed after a split trigger, or nil.
func ExtractSubtaskNames(text string) []string {
	for _, t := range subtaskTriggers {
		if m := t.trigger.FindStringSubmatch(text); m != nil {
			return splitNames(m[1], t.delimiters)
		}
	}
	return nil
}

func splitNames(rest string, delimiters *regexp.Regexp) []string {
	var names []string
	for _, part := range delimiters.Split(rest, -1) {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	if len(names) > 0 {
		logging.PerceptionDebug("extracted subtask_names=%v", names)
	}
	return names
}

// ExtractStatus maps status words in text onto the tracker vocabulary.
func ExtractStatus(text string) (StatusLabel, bool) {
	for _, entry := range statusKeywords {
		if strings.Contains(text, entry.keyword) {
			logging.PerceptionDebug("extracted status=%s", entry.status)
			return entry.status, true
		}
	}
	return "", false
}

// ExtractAll runs every extractor over text.
func ExtractAll(text string) EntityBag {
	var bag EntityBag
	bag.TaskID, _ = ExtractTaskID(text)
	bag.StoryID, _ = ExtractStoryID(text)
	bag.Username, _ = ExtractUsername(text)
	bag.Status, _ = ExtractStatus(text)
	bag.SubtaskNames = ExtractSubtaskNames(text)
	return bag
}
