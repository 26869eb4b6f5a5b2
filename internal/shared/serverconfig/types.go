package serverconfig

type Config struct {
	Gateway   GatewayConfig   `yaml:"gateway" mapstructure:"gateway"`
	REST      RESTConfig      `yaml:"rest" mapstructure:"rest"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Inspect   InspectConfig   `yaml:"inspect" mapstructure:"inspect"`
	Snowflake SnowflakeConfig `yaml:"snowflake" mapstructure:"snowflake"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

type GatewayConfig struct {
	URL            string   `yaml:"url" mapstructure:"url"`
	Token          string   `yaml:"token" mapstructure:"token"`
	Intents        []string `yaml:"intents" mapstructure:"intents"`
	LargeThreshold int      `yaml:"large_threshold" mapstructure:"large_threshold"`
	MaxRetries     int      `yaml:"max_retries" mapstructure:"max_retries"` // 0 表示无限重连
}

type RESTConfig struct {
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Version   int    `yaml:"version" mapstructure:"version"`
	TimeoutMS int    `yaml:"timeout_ms" mapstructure:"timeout_ms"`
	UserAgent string `yaml:"user_agent" mapstructure:"user_agent"`
}

// CacheConfig 以 manager 名称为 key（guilds/channels/messages/members/users/presences/...）。
type CacheConfig map[string]CachePolicyConfig

type CachePolicyConfig struct {
	MaxSize        int `yaml:"max_size" mapstructure:"max_size"` // <=0 不限
	SweepIntervalS int `yaml:"sweep_interval_s" mapstructure:"sweep_interval_s"`
	SweepLifetimeS int `yaml:"sweep_lifetime_s" mapstructure:"sweep_lifetime_s"` // 按 id 时间戳判断过期
}

type InspectConfig struct {
	Host      string `yaml:"host" mapstructure:"host"`
	Port      int    `yaml:"port" mapstructure:"port"`
	NeedAuth  bool   `yaml:"need_auth" mapstructure:"need_auth"`
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
}

type SnowflakeConfig struct {
	NodeID int64 `yaml:"node_id" mapstructure:"node_id"`
}

type LogConfig struct {
	FileDir    string `yaml:"file_dir" mapstructure:"file_dir"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"` // MB
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"` // days
	Compress   bool   `yaml:"compress" mapstructure:"compress"`
	Level      string `yaml:"level" mapstructure:"level"` // debug/info/warn/error...
	Dev        bool   `yaml:"dev" mapstructure:"dev"`
}
