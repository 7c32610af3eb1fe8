package conf

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// EnvConfigPath names the environment variable consulted when no config
// path is given on the command line.
const EnvConfigPath = "runConfig"

var (
	mu       sync.RWMutex
	config   map[string]interface{}
	validate = validator.New()
	ISDEBUG  = false
)

// Init decodes the TOML file at path (or $runConfig) and loads an optional
// .env file from the working directory.
func Init(path string) error {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	// .env 只用来放密钥，不存在就跳过
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	raw := make(map[string]interface{})
	if path != "" {
		if _, err := toml.DecodeFile(path, &raw); err != nil {
			return fmt.Errorf("decode config %s: %w", path, err)
		}
	}
	set(raw)
	return nil
}

// InitFromString decodes TOML text directly; used by tests and embedded defaults.
func InitFromString(data string) error {
	raw := make(map[string]interface{})
	if _, err := toml.Decode(data, &raw); err != nil {
		return err
	}
	set(raw)
	return nil
}

func set(raw map[string]interface{}) {
	mu.Lock()
	defer mu.Unlock()
	config = raw
	ISDEBUG = false
	// 设置配置的全局变量
	if globalInfo, ok := raw["global"].(map[string]interface{}); ok {
		if appName, ok := globalInfo["app_name"].(string); ok {
			os.Setenv("APP_NAME", appName)
		}
		if appVersion, ok := globalInfo["app_version"].(string); ok {
			os.Setenv("APP_VERSION", appVersion)
		}
		if debug, ok := globalInfo["debug"].(bool); ok {
			ISDEBUG = debug
		}
	}
}

// Exists reports whether a top level section is present.
func Exists(key string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := config[key]
	return ok
}

// Get returns the JSON encoding of a top level section, or nil.
func Get(key string) []byte {
	mu.RLock()
	defer mu.RUnlock()
	if value, exists := config[key]; exists {
		bytes, err := json.Marshal(value)
		if err != nil {
			return nil
		}
		return bytes
	}
	return nil
}

// Load decodes section key into T, starting from def, and validates the
// result with `validate` struct tags. A missing section yields def unchanged.
func Load[T any](key string, def T) (T, error) {
	data := Get(key)
	if data == nil {
		return def, nil
	}
	result := def
	if err := json.Unmarshal(data, &result); err != nil {
		return def, fmt.Errorf("section [%s]: %w", key, err)
	}
	if err := validate.Struct(result); err != nil {
		if _, ok := err.(*validator.InvalidValidationError); !ok {
			return def, fmt.Errorf("section [%s]: %w", key, err)
		}
	}
	return result, nil
}
