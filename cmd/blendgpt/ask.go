package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stardustagi/BlendGPT/llm/executor"
	"github.com/stardustagi/BlendGPT/llm/workflow"
	"github.com/stardustagi/BlendGPT/services"
)

type askCommand struct {
	app *app

	Model   string `long:"model" short:"m" description:"Model id, see the models list" default:"gpt-3.5-turbo"`
	Poll    bool   `long:"poll" description:"Poll the task on a ticker instead of blocking"`
	Tick    string `long:"tick" default:"100ms" description:"Poll interval"`
	NoExec  bool   `long:"no-exec" description:"Only print the reply"`
	Confirm bool   `long:"confirm" description:"Ask before running the reply"`
}

func (c *askCommand) Execute(args []string) error {
	prompt := strings.Join(args, " ")
	if err := workflow.CheckPrompt(prompt); err != nil {
		return err
	}
	if err := workflow.CheckModel(c.Model); err != nil {
		return err
	}
	if err := c.app.setup(); err != nil {
		return err
	}
	cfg, err := services.LoadChatConfig()
	if err != nil {
		return err
	}
	var opts []services.Option
	switch {
	case c.NoExec:
		opts = append(opts, services.WithoutExecution())
	case c.Confirm:
		opts = append(opts, services.WithConfirmer(executor.PromptConfirmer{In: c.app.stdin, Out: c.app.stderr}))
	}
	svc := services.NewChatService(cfg, opts...)
	if err := svc.Init(); err != nil {
		return err
	}
	defer svc.Stop()

	ctx := context.Background()
	task, err := svc.Workflow().Submit(ctx, workflow.Settings{Model: c.Model, UserPrompt: prompt})
	if err != nil {
		return err
	}
	var result workflow.Result
	if c.Poll {
		result, err = c.poll(task)
	} else {
		result, err = task.Wait(ctx)
	}
	if err != nil {
		return err
	}
	fmt.Fprint(c.app.stdout, result.Text)
	if !strings.HasSuffix(result.Text, "\n") {
		fmt.Fprintln(c.app.stdout)
	}
	if result.ExecutionError != "" {
		fmt.Fprintln(c.app.stderr, result.ExecutionError)
	}
	return nil
}

// poll checks the task once per tick, the way a host timer would.
func (c *askCommand) poll(task *workflow.Task) (workflow.Result, error) {
	tick, err := time.ParseDuration(c.Tick)
	if err != nil || tick <= 0 {
		tick = 100 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for range ticker.C {
		if !task.Finished() {
			continue
		}
		r, _ := task.Result()
		return r, r.Err
	}
	return workflow.Result{}, nil
}
