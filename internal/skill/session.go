package skill

import (
	"context"
	"errors"
	"strings"

	"zentaohelper/internal/logging"
	"zentaohelper/internal/prompt"
	"zentaohelper/internal/session"
	"zentaohelper/internal/types"
)

func (s *Skill) isRestored() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.restored
}

func (s *Skill) setRestored(v bool) {
	s.mu.Lock()
	s.restored = v
	s.mu.Unlock()
}

// EnsureSession makes the tracker client usable: a saved session is
// restored, otherwise the user logs in. Nothing else runs until this succeeds.
func (s *Skill) EnsureSession(ctx context.Context) error {
	if s.isRestored() {
		return nil
	}
	if d, ok := s.sessions.Load(); ok {
		s.tracker.Restore(d.Token, d.Cookies)
		s.setRestored(true)
		logging.Session("restored session for %s", d.User)
		return nil
	}

	account, password, err := s.credentials(ctx)
	if err != nil {
		return err
	}
	if _, err := s.Login(ctx, account, password); err != nil {
		return err
	}
	return nil
}

// credentials returns configured credentials or asks for them.
func (s *Skill) credentials(ctx context.Context) (string, string, error) {
	if s.account != "" && s.password != "" {
		return s.account, s.password, nil
	}
	account, err := s.prompter.ReadLine(ctx, "用户名")
	if err != nil || strings.TrimSpace(account) == "" {
		return "", "", cancelled(err)
	}
	password, err := s.prompter.ReadPassword(ctx, "密码")
	if err != nil || password == "" {
		return "", "", cancelled(err)
	}
	return strings.TrimSpace(account), password, nil
}

func cancelled(err error) error {
	if err != nil && !errors.Is(err, prompt.ErrCancelled) {
		logging.SessionWarn("credential prompt failed: %v", err)
	}
	return types.New(types.CodeSessionExpired, "登录已取消")
}

// Login authenticates and persists the session. The password is never saved.
func (s *Skill) Login(ctx context.Context, account, password string) (*session.Data, error) {
	result, err := s.tracker.Login(ctx, account, password)
	if err != nil {
		logging.SessionWarn("login as %s failed: %v", account, err)
		return nil, err
	}

	data := &session.Data{
		User:    account,
		Token:   result.Token,
		Cookies: result.Cookies,
	}
	if u := result.User; u != nil {
		data.UserInfo = session.UserInfo{ID: u.ID, Account: u.Account, Realname: u.Realname}
	}
	if err := s.sessions.Save(data); err != nil {
		s.tracker.Logout(ctx)
		return nil, types.Wrap(types.CodeSessionExpired, err, "保存会话失败")
	}
	s.setRestored(true)
	logging.Session("logged in as %s", account)
	return data, nil
}

// Logout forgets the session locally and in the client.
func (s *Skill) Logout(ctx context.Context) error {
	s.tracker.Logout(ctx)
	s.setRestored(false)
	return s.sessions.Clear()
}

// dropSession discards a session the server no longer accepts.
func (s *Skill) dropSession(ctx context.Context) {
	logging.SessionWarn("server rejected the saved session, clearing it")
	if err := s.Logout(ctx); err != nil {
		logging.SessionWarn("failed to clear session: %v", err)
	}
}
