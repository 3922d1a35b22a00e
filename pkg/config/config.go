package config

import (
	"context"
	"errors"
	"io/fs"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/chandraveer04/token-browser/pkg/logger"
)

// EnvPrefix token-browser -> TOKEN_BROWSER
func EnvPrefix(service string) string {
	return strings.ToUpper(strings.ReplaceAll(service, "-", "_"))
}

// LoadAndWatch 约定 config/{service}.yaml
// 先加载 .env（密钥一类不进 yaml），环境变量覆盖 yaml，例如:
//
//	TOKEN_BROWSER_BANKING_API_KEY 覆盖 banking.api_key
//	TOKEN_BROWSER_DB_DSN          覆盖 db.dsn
//
// onChange 在热更新成功后回调
func LoadAndWatch(service string, out interface{}, onChange ...func()) (*viper.Viper, error) {
	ctx := context.Background()
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn(ctx, "load .env failed", zap.Error(err))
	}

	v := viper.New()
	v.SetConfigName(service)
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix(EnvPrefix(service))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := v.Unmarshal(out); err != nil {
		return nil, err
	}
	logger.Info(ctx, "config loaded", zap.String("service", service), zap.String("file", v.ConfigFileUsed()))

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		logger.Info(ctx, "config file changed", zap.String("file", e.Name))
		if err := v.Unmarshal(out); err != nil {
			logger.Error(ctx, "reload config error", zap.Error(err))
			return
		}
		for _, fn := range onChange {
			fn()
		}
		logger.Info(ctx, "config reloaded OK", zap.String("service", service))
	})

	return v, nil
}
