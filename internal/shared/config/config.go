package config

import (
	"os"
	"strconv"

	"gopkg.in/ini.v1"

	"dot5_panel/internal/shared/types"
)

const (
	DefaultEngineURL      = "http://127.0.0.1:8000"
	DefaultWebPort        = 8085
	DefaultTryPorts       = "80,8080,3128,8000,8888"
	DefaultErrorMaxLen    = 120
	DefaultExportFilename = "dot5_results.csv"
)

// Default 返回所有字段均已填充默认值的配置。
func Default() *types.Config {
	return &types.Config{
		EngineConf: types.EngineConf{
			BaseURL: DefaultEngineURL,
		},
		PanelConf: types.PanelConf{
			WebPort:           DefaultWebPort,
			DefaultTimeout:    "6",
			DefaultMaxWorkers: "20",
			DefaultTryPorts:   DefaultTryPorts,
			ErrorMaxLen:       DefaultErrorMaxLen,
			ExportFilename:    DefaultExportFilename,
		},
		LogConf: types.LogConf{Level: "info"},
	}
}

// LoadIni 加载 dot5.ini 并应用环境变量覆盖。
// 文件不存在时只使用默认值。
func LoadIni(cfg *types.Config, fileName string) error {
	if _, err := os.Stat(fileName); err == nil {
		iniFile, err := ini.Load(fileName)
		if err != nil {
			return err
		}
		if err := iniFile.MapTo(cfg); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	overrideFromEnvString(&cfg.EngineConf.BaseURL, "DOT5_ENGINE_URL")
	overrideFromEnvInt(&cfg.PanelConf.WebPort, "DOT5_WEB_PORT")
	overrideFromEnvString(&cfg.PanelConf.WebUser, "DOT5_WEB_USER")
	overrideFromEnvString(&cfg.PanelConf.WebPassword, "DOT5_WEB_PASSWORD")

	if cfg.PanelConf.ErrorMaxLen <= 0 {
		cfg.PanelConf.ErrorMaxLen = DefaultErrorMaxLen
	}
	if cfg.PanelConf.ExportFilename == "" {
		cfg.PanelConf.ExportFilename = DefaultExportFilename
	}
	return nil
}

func overrideFromEnvString(target *string, envName string) {
	if envValue := os.Getenv(envName); envValue != "" {
		*target = envValue
	}
}

func overrideFromEnvInt(target *int, envName string) {
	envValue := os.Getenv(envName)
	if envValue != "" {
		if intValue, err := strconv.Atoi(envValue); err == nil {
			*target = intValue
		}
	}
}
