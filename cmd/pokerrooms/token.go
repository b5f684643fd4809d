package main

import (
	"fmt"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/pokerrooms/internal/auth"
)

// TokenCmd issues a JWT for local testing against a server in jwt mode.
type TokenCmd struct {
	Username string        `arg:"" help:"Username the token identifies"`
	Admin    bool          `help:"Grant the admin role"`
	TTL      time.Duration `default:"24h" help:"Token lifetime"`
}

func (c *TokenCmd) Run(g *Globals) error {
	cfg, _, err := loadConfig(g)
	if err != nil {
		return err
	}
	if cfg.Auth.Mode != "jwt" {
		return fmt.Errorf("auth mode is %q, tokens are only issued in jwt mode", cfg.Auth.Mode)
	}
	role := ""
	if c.Admin {
		role = auth.RoleAdmin
	}
	v := auth.NewJWTValidator(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.Audience, quartz.NewReal())
	token, err := v.Issue(c.Username, role, c.TTL)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
