package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// ExtensionFix 描述一次扩展名替换规则，例如 ".JPG" -> ".jpg"。
// 注意：viper 的 map 键不区分大小写，所以这里用列表而不是 map。
type ExtensionFix struct {
	From string `mapstructure:"from" yaml:"from" json:"from"`
	To   string `mapstructure:"to" yaml:"to" json:"to"`
}

type MediaConfig struct {
	// Extensions 是允许的媒体扩展名，大小写敏感。
	Extensions   []string `mapstructure:"extensions" yaml:"extensions" json:"extensions"`
	PrefixLength int      `mapstructure:"prefixLength" yaml:"prefixLength" json:"prefixLength"`
}

type CopyConfig struct {
	DefaultManifest string `mapstructure:"defaultManifest" yaml:"defaultManifest" json:"defaultManifest"`
	// SkipUnparsable 为 true 时，无法解析序号的文件会被跳过而不是中止整个复制。
	SkipUnparsable bool `mapstructure:"skipUnparsable" yaml:"skipUnparsable" json:"skipUnparsable"`
	Verify         bool `mapstructure:"verify" yaml:"verify" json:"verify"`
}

type RenamerConfig struct {
	TransliteratePrefix bool           `mapstructure:"transliteratePrefix" yaml:"transliteratePrefix" json:"transliteratePrefix"`
	ExtensionFixes      []ExtensionFix `mapstructure:"extensionFixes" yaml:"extensionFixes" json:"extensionFixes"`
}

type Config struct {
	Server struct {
		Port    string        `mapstructure:"port" yaml:"port" json:"port"`
		Timeout time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	} `mapstructure:"server" yaml:"server" json:"server"`

	Database struct {
		Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
		URI     string `mapstructure:"uri" yaml:"uri" json:"uri"`
		Name    string `mapstructure:"name" yaml:"name" json:"name"`
	} `mapstructure:"database" yaml:"database" json:"database"`

	Logger struct {
		Level  string `mapstructure:"level" yaml:"level" json:"level"`
		Format string `mapstructure:"format" yaml:"format" json:"format"`
		Path   string `mapstructure:"path" yaml:"path" json:"path"`
	} `mapstructure:"logger" yaml:"logger" json:"logger"`

	Media   MediaConfig   `mapstructure:"media" yaml:"media" json:"media"`
	Copy    CopyConfig    `mapstructure:"copy" yaml:"copy" json:"copy"`
	Renamer RenamerConfig `mapstructure:"renamer" yaml:"renamer" json:"renamer"`

	Preview struct {
		ThumbnailWidth  int `mapstructure:"thumbnailWidth" yaml:"thumbnailWidth" json:"thumbnailWidth"`
		ThumbnailHeight int `mapstructure:"thumbnailHeight" yaml:"thumbnailHeight" json:"thumbnailHeight"`
	} `mapstructure:"preview" yaml:"preview" json:"preview"`
}

var (
	mu      sync.RWMutex
	current *Config
)

// Get 返回当前生效的配置，尚未加载时返回默认配置。
// 返回的配置不应被修改，需要改动时构造新的 Config 再调用 Set。
func Get() *Config {
	mu.RLock()
	c := current
	mu.RUnlock()
	if c == nil {
		return Default()
	}
	return c
}

// Set 替换当前配置，可以与 Get 并发调用。
func Set(c *Config) {
	mu.Lock()
	current = c
	mu.Unlock()
}

// DefaultExtensions 是照片和视频的默认扩展名白名单。
var DefaultExtensions = []string{".JPG", ".jpg", ".jpeg", ".NEF", ".CR2", ".MOV", ".MP4"}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "pic_utils")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
	v.SetDefault("logger.path", "")
	v.SetDefault("media.extensions", DefaultExtensions)
	v.SetDefault("media.prefixLength", 6)
	v.SetDefault("copy.defaultManifest", "Good Ones.txt")
	v.SetDefault("copy.skipUnparsable", false)
	v.SetDefault("copy.verify", false)
	v.SetDefault("renamer.transliteratePrefix", false)
	v.SetDefault("renamer.extensionFixes", []map[string]string{{"from": ".JPG", "to": ".jpg"}})
	v.SetDefault("preview.thumbnailWidth", 160)
	v.SetDefault("preview.thumbnailHeight", 120)

	v.SetEnvPrefix("PIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Default 返回只包含默认值的配置，不读取任何文件。
func Default() *Config {
	var cfg Config
	if err := newViper().Unmarshal(&cfg); err != nil {
		// 默认值是静态的，解码失败说明代码本身有问题
		panic(fmt.Sprintf("config: 默认配置解码失败: %v", err))
	}
	return &cfg
}

// LoadConfig 从 path 目录读取 config.yaml 并设为当前配置。
// 找不到配置文件时使用默认值，这对命令行工具来说是常态。
func LoadConfig(path string) (err error) {
	v := newViper()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err = v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("解析配置失败: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return err
	}
	Set(&cfg)
	return nil
}

// Validate 检查配置中会导致运行期错误的字段。
func (c *Config) Validate() error {
	if len(c.Media.Extensions) == 0 {
		return errors.New("media.extensions 不能为空")
	}
	for _, ext := range c.Media.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fmt.Errorf("无效的扩展名 %q：必须以 '.' 开头", ext)
		}
	}
	if c.Media.PrefixLength < 1 {
		return fmt.Errorf("media.prefixLength 必须大于 0，当前为 %d", c.Media.PrefixLength)
	}
	switch c.Logger.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("无效的日志级别: " + c.Logger.Level)
	}
	for _, fix := range c.Renamer.ExtensionFixes {
		if !strings.HasPrefix(fix.From, ".") || !strings.HasPrefix(fix.To, ".") {
			return fmt.Errorf("无效的扩展名替换规则 %q -> %q", fix.From, fix.To)
		}
	}
	return nil
}
