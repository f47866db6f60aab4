package netopt

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-openapi/swag"
)

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Finding is a single failed compliance check on a device.
type Finding struct {
	Device   string   `json:"device"`
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Recommendation is a remediation step, ordered by priority.
type Recommendation struct {
	Priority int    `json:"priority"`
	Device   string `json:"device"`
	Action   string `json:"action"`
}

// ComplianceReport summarizes the fleet's configuration posture.
type ComplianceReport struct {
	GeneratedAt     time.Time        `json:"generated_at"`
	Devices         int              `json:"devices"`
	ChecksRun       int              `json:"checks_run"`
	ChecksPassed    int              `json:"checks_passed"`
	CompliancePct   float64          `json:"compliance_pct"`
	Findings        []Finding        `json:"findings,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
}

type rule struct {
	name     string
	severity Severity
	// check returns an empty string when the device passes, the finding
	// message otherwise.
	check func(DeviceConfig) string
	// remedy is a vendor-agnostic action template over the device.
	remedy func(DeviceConfig) string
}

var knownVendors = []string{"cisco", "juniper", "arista", "prpl", "rdk"}

var rules = []rule{
	{
		name:     "telnet-disabled",
		severity: SeverityHigh,
		check: func(c DeviceConfig) string {
			if c.Services.TelnetEnabled {
				return "telnet is enabled, credentials travel in cleartext"
			}
			return ""
		},
		remedy: func(c DeviceConfig) string {
			return fmt.Sprintf("disable the telnet service on %s and enforce SSH access", c.Hostname)
		},
	},
	{
		name:     "ssh-version-2",
		severity: SeverityHigh,
		check: func(c DeviceConfig) string {
			if !c.Services.SSHEnabled {
				return "SSH is not enabled"
			}
			if c.Services.SSHVersion < 2 {
				return fmt.Sprintf("SSH protocol version %d in use, version 2 required", c.Services.SSHVersion)
			}
			return ""
		},
		remedy: func(c DeviceConfig) string {
			return fmt.Sprintf("enable SSH protocol version 2 on %s", c.Hostname)
		},
	},
	{
		name:     "ntp-configured",
		severity: SeverityMedium,
		check: func(c DeviceConfig) string {
			if len(c.Services.NTPServers) == 0 {
				return "no NTP servers configured, timestamps will drift"
			}
			return ""
		},
		remedy: func(c DeviceConfig) string {
			return fmt.Sprintf("configure at least one NTP server on %s", c.Hostname)
		},
	},
	{
		name:     "syslog-configured",
		severity: SeverityMedium,
		check: func(c DeviceConfig) string {
			if len(c.Services.SyslogServers) == 0 {
				return "no remote syslog destination configured"
			}
			return ""
		},
		remedy: func(c DeviceConfig) string {
			return fmt.Sprintf("point %s at a remote syslog collector", c.Hostname)
		},
	},
	{
		name:     "snmp-community",
		severity: SeverityHigh,
		check: func(c DeviceConfig) string {
			if !c.SNMP.Enabled {
				return ""
			}
			if swag.ContainsStringsCI([]string{"public", "private"}, c.SNMP.Community) {
				return fmt.Sprintf("SNMP community %q is a well-known default", c.SNMP.Community)
			}
			return ""
		},
		remedy: func(c DeviceConfig) string {
			return fmt.Sprintf("replace the default SNMP community on %s, prefer SNMPv3", c.Hostname)
		},
	},
	{
		name:     "password-policy",
		severity: SeverityMedium,
		check: func(c DeviceConfig) string {
			if c.Auth.MinPasswordLength < 12 {
				return fmt.Sprintf("minimum password length %d below required 12", c.Auth.MinPasswordLength)
			}
			if !c.Auth.PasswordComplexity {
				return "password complexity requirements are not enforced"
			}
			return ""
		},
		remedy: func(c DeviceConfig) string {
			return fmt.Sprintf("enforce a 12 character minimum and complexity rules on %s", c.Hostname)
		},
	},
	{
		name:     "unused-interface-shutdown",
		severity: SeverityLow,
		check: func(c DeviceConfig) string {
			var open []string
			for _, iface := range c.Interfaces {
				if iface.Enabled && !iface.InUse {
					open = append(open, iface.Name)
				}
			}
			if len(open) > 0 {
				return fmt.Sprintf("unused interfaces left enabled: %s", strings.Join(open, ", "))
			}
			return ""
		},
		remedy: func(c DeviceConfig) string {
			return fmt.Sprintf("shut down unused interfaces on %s", c.Hostname)
		},
	},
	{
		name:     "management-acl",
		severity: SeverityMedium,
		check: func(c DeviceConfig) string {
			if c.ManagementACL == "" {
				return "management plane is reachable without an access list"
			}
			return ""
		},
		remedy: func(c DeviceConfig) string {
			return fmt.Sprintf("apply a management access list on %s", c.Hostname)
		},
	},
}

var severityRank = map[Severity]int{
	SeverityHigh:   0,
	SeverityMedium: 1,
	SeverityLow:    2,
}

// Analyze runs every compliance rule against every device and builds the
// report. Recommendations are ordered by severity, then by device name for
// stable output.
func Analyze(configs []DeviceConfig) ComplianceReport {
	report := ComplianceReport{
		GeneratedAt: time.Now().UTC(),
		Devices:     len(configs),
	}

	type remediation struct {
		severity Severity
		device   string
		action   string
	}
	var remediations []remediation

	for _, cfg := range configs {
		for _, r := range rules {
			report.ChecksRun++
			msg := r.check(cfg)
			if msg == "" {
				report.ChecksPassed++
				continue
			}
			report.Findings = append(report.Findings, Finding{
				Device:   cfg.Hostname,
				Rule:     r.name,
				Severity: r.severity,
				Message:  msg,
			})
			remediations = append(remediations, remediation{
				severity: r.severity,
				device:   cfg.Hostname,
				action:   r.remedy(cfg),
			})
		}
	}

	if report.ChecksRun > 0 {
		report.CompliancePct = float64(report.ChecksPassed) / float64(report.ChecksRun) * 100
	}

	sort.SliceStable(remediations, func(i, j int) bool {
		if severityRank[remediations[i].severity] != severityRank[remediations[j].severity] {
			return severityRank[remediations[i].severity] < severityRank[remediations[j].severity]
		}
		return remediations[i].device < remediations[j].device
	})
	for i, r := range remediations {
		report.Recommendations = append(report.Recommendations, Recommendation{
			Priority: i + 1,
			Device:   r.device,
			Action:   r.action,
		})
	}

	return report
}

// KnownVendor reports whether the analyzer has remediation coverage for the
// vendor.
func KnownVendor(vendor string) bool {
	return swag.ContainsStringsCI(knownVendors, vendor)
}
