package config

// Config contains all application settings
type Config struct {
	BindPort      int    `mapstructure:"PORT" yaml:"port"`
	BindHost      string `mapstructure:"HOST" yaml:"host"`
	DatabaseURL   string `mapstructure:"DATABASE_URL" yaml:"database_url"`
	NATSServerURL string `mapstructure:"NATS_URL" yaml:"nats_url"`

	// AlertsSubject is the well-known bus channel all gateway instances
	// subscribe to for alert fan-out.
	AlertsSubject string `mapstructure:"ALERTS_SUBJECT" yaml:"alerts_subject"`

	// AuthSecret is the shared secret used to verify connection tokens.
	AuthSecret string `mapstructure:"AUTH_SECRET" yaml:"auth_secret"`

	// HeartbeatInterval is the liveness sweep period in seconds. A device
	// that misses one ping is terminated on the following sweep.
	HeartbeatInterval int `mapstructure:"HEARTBEAT_INTERVAL" yaml:"heartbeat_interval"`

	// CloseReplacedSessions controls whether the connection displaced by a
	// re-registration of the same device ID is closed immediately. Off by
	// default: the old connection is left to run into its own close or
	// heartbeat timeout.
	CloseReplacedSessions bool `mapstructure:"CLOSE_REPLACED_SESSIONS" yaml:"close_replaced_sessions"`

	// Version
	BuildVersion string `yaml:"-"`
	BuildHash    string `yaml:"-"`
	BuildTime    string `yaml:"-"`
}
