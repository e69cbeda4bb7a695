package types

// EngineConf 描述远端检测引擎的连接参数
type EngineConf struct {
	BaseURL        string  `ini:"base_url"`
	RequestTimeout float64 `ini:"request_timeout"` // 秒, 0 表示不设置客户端超时
}

// PanelConf 包含面板(Web 与 CLI)的配置
type PanelConf struct {
	WebPort           int    `ini:"web_port"`
	WebUser           string `ini:"web_user"`
	WebPassword       string `ini:"web_password"`
	DefaultTimeout    string `ini:"default_timeout"`
	DefaultMaxWorkers string `ini:"default_max_workers"`
	DefaultTryPorts   string `ini:"default_try_ports"`
	ErrorMaxLen       int    `ini:"error_max_len"`
	ExportFilename    string `ini:"export_filename"`
}

// LogConf contains logging specific configuration
type LogConf struct {
	Level string `ini:"level"`
}

// Config 是 dot5.ini 的统一配置结构体
type Config struct {
	EngineConf `ini:"engine"`
	PanelConf  `ini:"panel"`
	LogConf    `ini:"log"`
}
