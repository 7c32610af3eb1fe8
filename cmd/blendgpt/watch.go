package main

import (
	"context"
	"fmt"

	"github.com/stardustagi/BlendGPT/codec"
	wsclient "github.com/stardustagi/BlendGPT/libs/ws_client"
	"github.com/stardustagi/BlendGPT/llm/events"
)

type watchCommand struct {
	app *app

	URL   string `long:"url" default:"ws://127.0.0.1:8080/api/chat/events" description:"Event stream address"`
	Token string `long:"token" env:"BLENDGPT_TOKEN" description:"Bearer token when auth is enabled"`
	Count int    `long:"count" description:"Exit after this many events, 0 runs until the server closes"`
}

// Execute prints one line per completed task.
func (c *watchCommand) Execute(_ []string) error {
	headers := map[string]string{}
	if c.Token != "" {
		headers["Authorization"] = "Bearer " + c.Token
	}
	client, err := wsclient.Dial(context.Background(), c.URL, headers)
	if err != nil {
		return err
	}
	defer client.Close()

	seen := 0
	for msg := range client.Messages() {
		if msg.GetMain() != events.MainWorkflow || msg.GetSub() != events.SubCompleted {
			continue
		}
		ev, err := codec.DecodePayload[events.CompletionEvent](msg)
		if err != nil {
			continue
		}
		line := fmt.Sprintf("%s %s %s %dms", ev.TaskID, ev.Model, ev.State, ev.DurationMs)
		if ev.Error != "" {
			line += " error=" + ev.Error
		}
		if ev.ExecutionError != "" {
			line += " exec=" + ev.ExecutionError
		}
		fmt.Fprintln(c.app.stdout, line)
		seen++
		if c.Count > 0 && seen >= c.Count {
			return nil
		}
	}
	return nil
}
