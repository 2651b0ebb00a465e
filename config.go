package placeholder

import (
	"fmt"
	"net/netip"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultPort is the UDP port a node listens on when the
// configuration file omits one.
const defaultPort = 7654

// ServerConfig is one entry in Configuration.Servers: a bootstrap peer
// contacted unconditionally at startup.
type ServerConfig struct {
	Address string `yaml:"address"`
	Port    uint16 `yaml:"port"`
	Name    string `yaml:"name"`
}

// Configuration is the YAML record the core consumes. Flag parsing and
// logging setup stay at the command-line entry point; LoadConfiguration
// decodes the file into this type, the one seam where the parsed
// configuration crosses into the core.
type Configuration struct {
	DeviceName string         `yaml:"device_name"`
	DeviceType string         `yaml:"device_type"`
	Port       uint16         `yaml:"port"`
	Subnet     string         `yaml:"subnet"`
	Ifup       string         `yaml:"ifup"`
	Ifdown     string         `yaml:"ifdown"`
	Servers    []ServerConfig `yaml:"servers"`
	Name       string         `yaml:"name"`
}

// LoadConfiguration reads and parses a YAML configuration file at
// path, applying defaults for the listen port and device type before
// the file's own values are unmarshaled over them.
func LoadConfiguration(path string) (*Configuration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	cfg := &Configuration{
		DeviceType: "tun",
		Port:       defaultPort,
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Configuration) validate() error {
	if c.DeviceType != "tun" {
		return fmt.Errorf("unsupported device_type %q: only \"tun\" is implemented", c.DeviceType)
	}
	if c.Name == "" {
		return fmt.Errorf("configuration: name is required")
	}
	if c.DeviceName == "" {
		return fmt.Errorf("configuration: device_name is required")
	}
	if _, err := netip.ParsePrefix(c.Subnet); err != nil {
		return fmt.Errorf("configuration: invalid subnet %q: %w", c.Subnet, err)
	}
	for _, s := range c.Servers {
		if _, err := netip.ParseAddr(s.Address); err != nil {
			return fmt.Errorf("configuration: invalid server address %q: %w", s.Address, err)
		}
	}
	return nil
}

// SubnetPrefix parses Subnet into a netip.Prefix.
func (c *Configuration) SubnetPrefix() netip.Prefix {
	p, _ := netip.ParsePrefix(c.Subnet)
	return p
}
