package main

import (
	"github.com/stardustagi/BlendGPT/libs/logs"
	"github.com/stardustagi/BlendGPT/libs/server"
	"github.com/stardustagi/BlendGPT/services"
)

type serveCommand struct {
	app *app
}

func (c *serveCommand) Execute(_ []string) error {
	if err := c.app.setup(); err != nil {
		return err
	}
	cfg, err := services.LoadChatConfig()
	if err != nil {
		return err
	}
	cfg.Http = cfg.Http.Merge(c.app.opts.Http)

	var svc services.Service = services.NewChatService(cfg)
	if err := svc.Init(); err != nil {
		return err
	}
	srv := server.NewServer()
	srv.OnShutdown(svc.Stop)
	if err := svc.Start(); err != nil {
		svc.Stop()
		return err
	}
	logs.Info("blendgpt serving", logs.String("version", version))
	srv.HandleSignal()
	return nil
}
