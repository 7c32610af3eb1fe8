package main

import (
	"fmt"
	"io"
	"os"

	"github.com/stardustagi/BlendGPT/libs/conf"
	"github.com/stardustagi/BlendGPT/libs/logs"
	"github.com/stardustagi/BlendGPT/libs/option"
	"go.uber.org/zap/zapcore"
)

var version = "0.1.0"

type app struct {
	opts   *option.Options
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) (*app, error) {
	a := &app{opts: option.NewOptions(), stdin: stdin, stdout: stdout, stderr: stderr}
	if err := a.opts.AddCommand("ask", "Send one prompt",
		"Sends the prompt, prints the reply and runs it with the configured interpreter.", &askCommand{app: a}); err != nil {
		return nil, err
	}
	if err := a.opts.AddCommand("serve", "Run the HTTP API", "Serves the chat API until SIGINT/SIGTERM.", &serveCommand{app: a}); err != nil {
		return nil, err
	}
	if err := a.opts.AddCommand("token", "Issue an access token", "Signs a bearer token with auth.jwt_secret.", &tokenCommand{app: a}); err != nil {
		return nil, err
	}
	if err := a.opts.AddCommand("watch", "Follow completion events", "Prints completed tasks pushed over the websocket event stream.", &watchCommand{app: a}); err != nil {
		return nil, err
	}
	return a, nil
}

// setup 加载配置并初始化日志, 命令行参数优先
func (a *app) setup() error {
	if err := conf.Init(a.opts.ConfigFile); err != nil {
		return err
	}
	logCfg, err := conf.Load("log", logs.LoggerConfig{Level: int(zapcore.InfoLevel)})
	if err != nil {
		return err
	}
	if a.opts.Log.File != "" {
		logCfg.Filename = a.opts.Log.File
	}
	// [global] debug 只在命令行没有指定级别时生效
	if level, err := zapcore.ParseLevel(a.opts.Log.Level); err == nil && a.opts.Log.Level != "info" {
		logCfg.Level = int(level)
	} else if conf.ISDEBUG {
		logCfg.Level = int(zapcore.DebugLevel)
	}
	logCfg.Quiet = logCfg.Quiet || a.opts.Log.Quiet
	logs.InitWithConfig(logCfg)
	return nil
}

func (a *app) run(args []string) int {
	handled, err := a.opts.Parse(args, a.stdout)
	if err != nil {
		fmt.Fprintln(a.stderr, err)
		return 1
	}
	if !handled && a.opts.Version {
		fmt.Fprintln(a.stdout, "blendgpt", version)
	}
	return 0
}

func main() {
	a, err := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	code := a.run(os.Args[1:])
	logs.Sync()
	os.Exit(code)
}
