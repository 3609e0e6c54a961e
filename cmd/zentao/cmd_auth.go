package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"zentaohelper/internal/prompt"
	"zentaohelper/internal/types"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var account string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to ZenTao and save the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := prompt.NewTerminal()
			a, err := newApp(opts.cfg, p)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if account == "" {
				account = opts.cfg.Zentao.Account
			}
			if account == "" {
				if account, err = p.ReadLine(ctx, "用户名"); err != nil {
					return types.New(types.CodeSessionExpired, "登录已取消")
				}
			}
			password := opts.cfg.Zentao.Password
			if password == "" {
				if password, err = p.ReadPassword(ctx, "密码"); err != nil {
					return types.New(types.CodeSessionExpired, "登录已取消")
				}
			}

			data, err := a.skill.Login(ctx, account, password)
			if err != nil {
				return err
			}
			name := data.UserInfo.Realname
			if name == "" {
				name = data.User
			}
			fmt.Fprintf(cmd.OutOrStdout(), "登录成功！欢迎, %s\n", name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&account, "account", "u", "", "Account name (prompted when empty)")
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts.cfg, prompt.Disabled{})
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.skill.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "已退出登录")
			return nil
		},
	}
}
