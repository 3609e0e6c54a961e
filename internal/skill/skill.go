// Package skill is the dispatcher: it parses an utterance, makes sure a
// tracker session exists, runs the matching workflow and wraps the outcome
// in a response envelope.
package skill

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"zentaohelper/internal/automation"
	"zentaohelper/internal/collectors"
	"zentaohelper/internal/logging"
	"zentaohelper/internal/perception"
	"zentaohelper/internal/prompt"
	"zentaohelper/internal/session"
	"zentaohelper/internal/store"
	"zentaohelper/internal/types"
	"zentaohelper/internal/zentao"
)

// Payload types carried in successful responses.
const (
	TypeHelp       = "help"
	TypeStories    = "stories"
	TypeTasks      = "tasks"
	TypeTaskSplit  = "task_split"
	TypeTaskAssign = "task_assign"
)

// Tracker is everything the dispatcher needs from the tracker client.
type Tracker interface {
	automation.Tracker
	collectors.StorySource
	collectors.TaskSource
	Login(ctx context.Context, account, password string) (*zentao.LoginResult, error)
	Logout(ctx context.Context)
	Restore(token string, cookies map[string]string)
}

// SessionStore persists the login between runs.
type SessionStore interface {
	Load() (*session.Data, bool)
	Save(d *session.Data) error
	Clear() error
}

// HistoryRecorder logs executed utterances.
type HistoryRecorder interface {
	Record(ctx context.Context, t store.Turn) (string, error)
}

// Options wires a Skill. History and Prompter are optional; Account and
// Password enable non-interactive login.
type Options struct {
	Parser   *perception.CommandParser
	Tracker  Tracker
	Sessions SessionStore
	History  HistoryRecorder
	Prompter prompt.Prompter
	Policy   automation.AmbiguityPolicy
	Account  string
	Password string
}

// Skill executes utterances one at a time.
type Skill struct {
	mu       sync.RWMutex
	parser   *perception.CommandParser
	tracker  Tracker
	sessions SessionStore
	history  HistoryRecorder
	prompter prompt.Prompter
	account  string
	password string

	stories  *collectors.StoryCollector
	tasks    *collectors.TaskCollector
	splitter *automation.TaskSplitter
	assigner *automation.TaskAssigner

	// restored is set once the client carries a live session.
	restored bool
}

// New validates opts and builds the dispatcher.
func New(opts Options) (*Skill, error) {
	if opts.Parser == nil {
		return nil, fmt.Errorf("skill: parser is required")
	}
	if opts.Tracker == nil {
		return nil, fmt.Errorf("skill: tracker is required")
	}
	if opts.Sessions == nil {
		return nil, fmt.Errorf("skill: session store is required")
	}
	if opts.Prompter == nil {
		opts.Prompter = prompt.Disabled{}
	}
	return &Skill{
		parser:   opts.Parser,
		tracker:  opts.Tracker,
		sessions: opts.Sessions,
		history:  opts.History,
		prompter: opts.Prompter,
		account:  opts.Account,
		password: opts.Password,
		stories:  collectors.NewStoryCollector(opts.Tracker),
		tasks:    collectors.NewTaskCollector(opts.Tracker),
		splitter: automation.NewTaskSplitter(opts.Tracker, opts.Prompter),
		assigner: automation.NewTaskAssigner(opts.Tracker, opts.Prompter, opts.Policy),
	}, nil
}

// SetParser swaps the parser, e.g. after the intent table was reloaded.
func (s *Skill) SetParser(p *perception.CommandParser) {
	s.mu.Lock()
	s.parser = p
	s.mu.Unlock()
}

// Parser returns the active parser.
func (s *Skill) Parser() *perception.CommandParser {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.parser
}

// Execute runs one utterance end to end. It never returns an error: every
// failure is reported in the envelope.
func (s *Skill) Execute(ctx context.Context, text string) (resp types.Response) {
	started := time.Now()
	cmd := perception.ParsedCommand{Intent: perception.IntentUnknown, Raw: text}

	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryAutomation).Error("panic while executing %q: %v", cmd.Raw, r)
			resp = types.Fail(types.Newf(types.CodeAPIError, "执行失败: %v", r))
		}
		s.record(ctx, cmd, resp, time.Since(started))
	}()

	cmd = s.Parser().Parse(ctx, text)
	logging.Automation("executing %q intent=%s", cmd.Raw, cmd.Intent)

	payload, err := s.dispatch(ctx, cmd)
	if err != nil {
		if types.Is(err, types.CodeSessionExpired) && s.isRestored() {
			s.dropSession(ctx)
		}
		logging.AutomationWarn("%s failed: %v", cmd.Intent, err)
		return types.Fail(err)
	}
	return types.OK(payload)
}

func (s *Skill) dispatch(ctx context.Context, cmd perception.ParsedCommand) (types.Payload, error) {
	switch cmd.Intent {
	case perception.IntentHelp:
		return types.Payload{Message: s.Parser().HelpText(), Type: TypeHelp}, nil
	case perception.IntentUnknown, "":
		return types.Payload{}, types.New(types.CodeUnknownIntent, "")
	}

	if err := s.EnsureSession(ctx); err != nil {
		return types.Payload{}, err
	}

	e := cmd.Entities
	switch cmd.Intent {
	case perception.IntentQueryStories:
		report, err := s.stories.Collect(ctx, string(e.Status))
		if err != nil {
			return types.Payload{}, err
		}
		return types.Payload{Message: s.stories.Format(report), Type: TypeStories, Data: report}, nil

	case perception.IntentQueryTasks:
		report, err := s.tasks.Collect(ctx, string(e.Status))
		if err != nil {
			return types.Payload{}, err
		}
		return types.Payload{Message: s.tasks.Format(report), Type: TypeTasks, Data: report}, nil

	case perception.IntentSplitTask:
		result, err := s.splitter.Execute(ctx, automation.SplitRequest{
			ParentTaskID: e.TaskID,
			SubtaskNames: e.SubtaskNames,
			RawText:      cmd.Raw,
		})
		if err != nil {
			return types.Payload{}, err
		}
		return types.Payload{Message: s.splitter.Format(result), Type: TypeTaskSplit, Data: result}, nil

	case perception.IntentAssignTask:
		result, err := s.assigner.Execute(ctx, automation.AssignRequest{
			TaskID:   e.TaskID,
			Username: e.Username,
			RawText:  cmd.Raw,
		})
		if err != nil {
			return types.Payload{}, err
		}
		return types.Payload{Message: s.assigner.Format(result), Type: TypeTaskAssign, Data: result}, nil
	}

	// Labels added through configuration have no workflow behind them.
	return types.Payload{}, types.Newf(types.CodeUnknownIntent, "暂不支持的指令类型: %s", cmd.Intent)
}

// record writes the turn to history. Failures are only logged.
func (s *Skill) record(ctx context.Context, cmd perception.ParsedCommand, resp types.Response, elapsed time.Duration) {
	if s.history == nil {
		return
	}
	entities, err := json.Marshal(cmd.Entities)
	if err != nil {
		entities = []byte("{}")
	}
	turn := store.Turn{
		Text:     cmd.Raw,
		Intent:   string(cmd.Intent),
		Entities: entities,
		Success:  resp.Success,
		Duration: elapsed,
	}
	if resp.Error != nil {
		turn.ErrorCode = string(resp.Error.Code)
	}
	if _, err := s.history.Record(context.WithoutCancel(ctx), turn); err != nil {
		logging.StoreWarn("failed to record history: %v", err)
	}
}

// HelpText returns the usage guide of the active parser.
func (s *Skill) HelpText() string {
	return s.Parser().HelpText()
}
