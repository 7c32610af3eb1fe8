/*
 * Copyright 2022 The Go Authors<36625090@qq.com>. All rights reserved.
 * Use of this source code is governed by a MIT-style
 * license that can be found in the LICENSE file.
 */

package option

import (
	"io"
	"os"

	"github.com/jessevdk/go-flags"
)

// DefaultHttpAddress is the --http.address default.
const DefaultHttpAddress = "127.0.0.1"

type Http struct {
	Path       string `long:"http.path" default:"" description:"Path for the HTTP server context" `
	Address    string `long:"http.address" default:"127.0.0.1" description:"Address for the HTTP server listening" `
	Port       int    `long:"http.port" default:"0" description:"Port for the HTTP server listening, 0 keeps the config file value" `
	Cors       bool   `long:"http.cors" description:"Support CORS access" `
	RequestLog bool   `long:"http.requestlog" description:"Log HTTP requests" `
}

// Log logging settings
type Log struct {
	File  string `long:"log.file" default:"" description:"Rotate logs into this file"`
	Level string `long:"log.level" default:"info" description:"Sets the log level" choice:"debug" choice:"info" choice:"warn" choice:"error" `
	Quiet bool   `long:"log.quiet" description:"Do not log to the console"`
}

// Options 服务参数选项
type Options struct {
	ConfigFile string `long:"config" short:"c" description:"TOML config file (falls back to $runConfig)"`
	Log        Log    `group:"log"`
	Http       Http   `group:"http"`
	Version    bool   `long:"version" short:"v" description:"Show the program version"`

	parser *flags.Parser
}

func NewOptions() *Options {
	var opts Options
	opts.parser = flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	return &opts
}

func (m *Options) AddCommand(name, short, long string, cmd flags.Commander) error {
	_, err := m.parser.AddCommand(name, short, long, cmd)
	return err
}

// Parse parses args and runs the selected command. Help is written to out
// and reported as handled with a nil error.
func (m *Options) Parse(args []string, out io.Writer) (handled bool, err error) {
	_, err = m.parser.ParseArgs(args)
	if err == nil {
		return true, nil
	}
	if flagError, ok := err.(*flags.Error); ok {
		if flagError.Type == flags.ErrHelp {
			m.parser.WriteHelp(out)
			return true, nil
		}
		if flagError.Type == flags.ErrCommandRequired && m.Version {
			return false, nil
		}
	}
	return false, err
}

// ParseOS parses os.Args.
func (m *Options) ParseOS() (bool, error) {
	return m.Parse(os.Args[1:], os.Stdout)
}
