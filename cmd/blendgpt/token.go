package main

import (
	"fmt"
	"time"

	"github.com/stardustagi/BlendGPT/libs/jwt"
	"github.com/stardustagi/BlendGPT/services"
)

type tokenCommand struct {
	app *app

	Subject string `long:"subject" default:"panel" description:"Token subject"`
	TTL     string `long:"ttl" description:"Lifetime, defaults to auth.token_ttl"`
}

func (c *tokenCommand) Execute(_ []string) error {
	if err := c.app.setup(); err != nil {
		return err
	}
	cfg, err := services.LoadChatConfig()
	if err != nil {
		return err
	}
	if cfg.Auth.JwtSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not configured")
	}
	ttlText := c.TTL
	if ttlText == "" {
		ttlText = cfg.Auth.TokenTTL
	}
	ttl, err := time.ParseDuration(ttlText)
	if err != nil {
		return fmt.Errorf("token ttl: %w", err)
	}
	token, err := jwt.Sign(cfg.Auth.JwtSecret, c.Subject, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.app.stdout, token)
	return nil
}
