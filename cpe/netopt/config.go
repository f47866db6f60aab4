// Package netopt analyzes CPE device configurations for compliance and
// produces prioritized optimization recommendations.
package netopt

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// DeviceConfig is the normalized view of a single device configuration.
type DeviceConfig struct {
	Hostname   string            `json:"hostname"`
	Vendor     string            `json:"vendor"`
	Platform   string            `json:"platform,omitempty"`
	Services   ServiceSettings   `json:"services"`
	SNMP       SNMPSettings      `json:"snmp"`
	Auth       AuthSettings      `json:"auth"`
	Interfaces []InterfaceConfig `json:"interfaces,omitempty"`
	// ManagementACL names the access list protecting the management plane,
	// empty when none is applied.
	ManagementACL string `json:"management_acl,omitempty"`
}

type ServiceSettings struct {
	TelnetEnabled bool     `json:"telnet_enabled"`
	SSHEnabled    bool     `json:"ssh_enabled"`
	SSHVersion    int      `json:"ssh_version,omitempty"`
	NTPServers    []string `json:"ntp_servers,omitempty"`
	SyslogServers []string `json:"syslog_servers,omitempty"`
}

type SNMPSettings struct {
	Enabled   bool   `json:"enabled"`
	Community string `json:"community,omitempty"`
	Version   string `json:"version,omitempty"`
}

type AuthSettings struct {
	MinPasswordLength  int  `json:"min_password_length"`
	PasswordComplexity bool `json:"password_complexity"`
}

type InterfaceConfig struct {
	Name        string `json:"name"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description,omitempty"`
	// InUse reports whether the interface carries traffic or terminates a
	// configured service.
	InUse bool `json:"in_use"`
}

// ParseConfigs decodes one device configuration or an array of them.
func ParseConfigs(data []byte) ([]DeviceConfig, error) {
	parsed := gjson.ParseBytes(data)
	if !parsed.Exists() || (!parsed.IsArray() && !parsed.IsObject()) {
		return nil, fmt.Errorf("configuration data is not valid JSON")
	}

	if parsed.IsObject() {
		var cfg DeviceConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse device config: %w", err)
		}
		return []DeviceConfig{cfg}, nil
	}

	var cfgs []DeviceConfig
	if err := json.Unmarshal(data, &cfgs); err != nil {
		return nil, fmt.Errorf("parse device configs: %w", err)
	}
	return cfgs, nil
}
