package logs

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/stardustagi/BlendGPT/utils"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	Log    *zap.Logger
	initMu sync.Mutex
)

type LoggerConfig struct {
	Filename   string `json:"filename" toml:"filename"`
	MaxSize    int    `json:"maxsize" toml:"maxsize"`
	MaxAge     int    `json:"maxage" toml:"maxage"`
	MaxBackups int    `json:"maxbackups" toml:"maxbackups"`
	LocalTime  bool   `json:"localtime" toml:"localtime"`
	Compress   bool   `json:"compress" toml:"compress"`
	Level      int    `json:"level" toml:"level"`
	// Quiet 关闭控制台输出（CLI 模式下 stdout 留给脚本内容）
	Quiet bool `json:"quiet" toml:"quiet"`
}

// Init builds the global logger from a JSON encoded LoggerConfig.
func Init(logConfigJson []byte) {
	logConfig, err := utils.Bytes2Struct[LoggerConfig](logConfigJson)
	if err != nil {
		panic("Failed to parse log configuration: " + err.Error())
	}
	InitWithConfig(logConfig)
}

func InitWithConfig(logConfig LoggerConfig) {
	initMu.Lock()
	defer initMu.Unlock()
	Log = build(logConfig)
}

func build(logConfig LoggerConfig) *zap.Logger {
	// 日志级别
	level := zapcore.Level(logConfig.Level)
	if level < zapcore.DebugLevel || level > zapcore.FatalLevel {
		level = zapcore.InfoLevel
	}

	// 编码器配置
	encoderCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	var zapCore []zapcore.Core
	if !logConfig.Quiet {
		// 控制台输出，CLI 的脚本输出走 stdout，所以日志写 stderr
		zapCore = append(zapCore, zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level))
	}
	if logConfig.Filename != "" {
		// 文件输出配置
		fileWriter := zapcore.AddSync(&lumberjack.Logger{
			Filename:   logConfig.Filename,
			MaxSize:    logConfig.MaxSize,    // megabytes
			MaxBackups: logConfig.MaxBackups, // 日志文件保留的最大个数
			MaxAge:     logConfig.MaxAge,     // days
			LocalTime:  logConfig.LocalTime,
			Compress:   logConfig.Compress, // 是否压缩
		})
		zapCore = append(zapCore, zapcore.NewCore(encoder, fileWriter, level))
	}
	if len(zapCore) == 0 {
		return zap.NewNop()
	}

	// 合并输出目标
	core := zapcore.NewTee(zapCore...)
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

func Infof(format string, args ...interface{}) {
	if Log != nil {
		Log.Sugar().Infof(format, args...)
	}
}

func Info(msg string, fields ...zap.Field) {
	if Log != nil {
		Log.Info(msg, fields...)
	}
}

func Warn(msg string, fields ...zap.Field) {
	if Log != nil {
		Log.Warn(msg, fields...)
	}
}

func Error(msg string, fields ...zap.Field) {
	if Log != nil {
		Log.Error(msg, fields...)
	}
}

func Debug(msg string, fields ...zap.Field) {
	if Log != nil {
		Log.Debug(msg, fields...)
	}
}

// GetLogger returns a child logger tagged with the module name. The global
// logger is created with console-only defaults if Init was never called.
func GetLogger(m string) *zap.Logger {
	initMu.Lock()
	if Log == nil {
		// 默认配置
		loggerConf := map[string]any{
			"level": int(zapcore.InfoLevel),
		}
		jsonBytes, err := json.Marshal(loggerConf)
		if err != nil {
			initMu.Unlock()
			panic("Failed to marshal logger configuration: " + err.Error())
		}
		cfg, _ := utils.Bytes2Struct[LoggerConfig](jsonBytes)
		Log = build(cfg)
	}
	initMu.Unlock()
	return Log.With(zap.String("module", m))
}

func Sync() {
	if Log != nil {
		_ = Log.Sync()
	}
}
