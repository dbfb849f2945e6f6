package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete server configuration
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Table  TableSettings  `hcl:"table,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// TableSettings configures the single table this server runs
type TableSettings struct {
	Seats       int   `hcl:"seats,optional"`
	MinBet      int   `hcl:"min_bet,optional"`
	StartChips  int   `hcl:"start_chips,optional"`
	TurnSeconds int   `hcl:"turn_seconds,optional"`
	HandDelay   int   `hcl:"hand_delay_seconds,optional"`
	Seed        int64 `hcl:"seed,optional"`

	// HistoryDir enables per-hand history files when set.
	HistoryDir string `hcl:"history_dir,optional"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     10000,
			LogLevel: "info",
		},
		Table: TableSettings{
			Seats:       6,
			MinBet:      20,
			StartChips:  1000,
			TurnSeconds: 7,
			HandDelay:   3,
		},
	}
}

// LoadConfig loads configuration from an HCL file, falling back to defaults
// when the file does not exist.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg Config
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	def := DefaultConfig()
	if cfg.Server.Address == "" {
		cfg.Server.Address = def.Server.Address
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = def.Server.Port
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = def.Server.LogLevel
	}
	if cfg.Table.Seats == 0 {
		cfg.Table.Seats = def.Table.Seats
	}
	if cfg.Table.MinBet == 0 {
		cfg.Table.MinBet = def.Table.MinBet
	}
	if cfg.Table.StartChips == 0 {
		cfg.Table.StartChips = def.Table.StartChips
	}
	if cfg.Table.TurnSeconds == 0 {
		cfg.Table.TurnSeconds = def.Table.TurnSeconds
	}
	if cfg.Table.HandDelay == 0 {
		cfg.Table.HandDelay = def.Table.HandDelay
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Table.Seats < 2 || c.Table.Seats > 10 {
		return fmt.Errorf("seats must be between 2 and 10, got %d", c.Table.Seats)
	}
	if c.Table.MinBet <= 0 {
		return fmt.Errorf("min bet must be positive, got %d", c.Table.MinBet)
	}
	if c.Table.StartChips < c.Table.MinBet {
		return fmt.Errorf("start chips %d cannot cover the min bet %d", c.Table.StartChips, c.Table.MinBet)
	}
	if c.Table.TurnSeconds <= 0 {
		return fmt.Errorf("turn seconds must be positive, got %d", c.Table.TurnSeconds)
	}
	return nil
}

// Addr returns the host:port the server binds to.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
