package client

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Config specifies how a Client connects to a NatNet server. All fields
// have the defaults spec.md §4.F documents; the zero value of Config is not
// directly usable, use DefaultConfig() as a starting point.
type Config struct {
	// ServerIP is the destination for all commands.
	ServerIP string `yaml:"server_ip"`
	// LocalIP is the local bind / multicast-interface selection address.
	LocalIP string `yaml:"local_ip"`
	// MulticastGroup is joined by the data socket when applicable.
	MulticastGroup string `yaml:"multicast_group"`
	// CommandPort is the server's command port.
	CommandPort int `yaml:"command_port"`
	// DataPort is the server's data port.
	DataPort int `yaml:"data_port"`
	// UseMulticast selects the transport sub-mode.
	UseMulticast bool `yaml:"use_multicast"`
	// ConnectTimeout bounds how long Open waits for SERVERINFO.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// Validate reports whether c is sane enough to attempt a connection with.
func (c *Config) Validate() error {
	if c.ServerIP == "" {
		return fmt.Errorf("server_ip must be set")
	}
	if c.LocalIP == "" {
		return fmt.Errorf("local_ip must be set")
	}
	if c.CommandPort <= 0 || c.CommandPort > 65535 {
		return fmt.Errorf("command_port must be between 1 and 65535")
	}
	if c.DataPort <= 0 || c.DataPort > 65535 {
		return fmt.Errorf("data_port must be between 1 and 65535")
	}
	if c.UseMulticast && c.MulticastGroup == "" {
		return fmt.Errorf("multicast_group must be set when use_multicast is true")
	}
	if c.ConnectTimeout <= 0 {
		return fmt.Errorf("connect_timeout must be greater than zero")
	}
	return nil
}

// ReadConfig loads a YAML config file over top of DefaultConfig, the way
// sptp's client.ReadConfig does, so a file only needs to name the fields it
// wants to override.
func ReadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading natnet client config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing natnet client config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid natnet client config %q: %w", path, err)
	}
	return cfg, nil
}

// broadcastAddress is the sentinel multicast-group value meaning "unicast
// with broadcast fallback" for the unicast data socket: the multicast join
// in that path is skipped when MulticastGroup equals this value. Preserved
// unexplained from the reference client (see spec.md §9).
const broadcastAddress = "255.255.255.255"

// DefaultConfig returns the spec-documented defaults for connecting to a
// local Motive instance over multicast.
func DefaultConfig() Config {
	return Config{
		ServerIP:       "127.0.0.1",
		LocalIP:        "127.0.0.1",
		MulticastGroup: "239.255.42.99",
		CommandPort:    1510,
		DataPort:       1511,
		UseMulticast:   true,
		ConnectTimeout: 5 * time.Second,
	}
}
