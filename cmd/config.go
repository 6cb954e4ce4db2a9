package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/alunocanva25-hub/dashboard-iw58/internal/analysis"
	cfgpkg "github.com/alunocanva25-hub/dashboard-iw58/internal/config"
	"github.com/alunocanva25-hub/dashboard-iw58/internal/parser"
	"github.com/alunocanva25-hub/dashboard-iw58/internal/utils"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set iw58 configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "source_url: %s\n", cfg.SourceURL)
		fmt.Fprintf(out, "cache_ttl_sec: %d\n", cfg.CacheTTLSec)
		fmt.Fprintf(out, "keep_last_good: %t\n", cfg.KeepLastGood)
		fmt.Fprintf(out, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		fmt.Fprintf(out, "retry_max_attempts: %d\n", cfg.RetryMaxAttempts)
		fmt.Fprintf(out, "retry_base_delay_ms: %d\n", cfg.RetryBaseDelayMs)
		fmt.Fprintf(out, "retry_max_delay_ms: %d\n", cfg.RetryMaxDelayMs)
		fmt.Fprintf(out, "default_state: %s\n", cfg.DefaultState)
		fmt.Fprintf(out, "month_locale: %s\n", cfg.MonthLocale)
		fmt.Fprintf(out, "drop_invalid_dates: %t\n", cfg.DropInvalidDates)
		fmt.Fprintf(out, "encodings: %s\n", strings.Join(cfg.Encodings, ","))
		if len(cfg.RoleKeywords) > 0 {
			roles := make([]string, 0, len(cfg.RoleKeywords))
			for r := range cfg.RoleKeywords {
				roles = append(roles, r)
			}
			sort.Strings(roles)
			for _, r := range roles {
				fmt.Fprintf(out, "role_keywords.%s: %s\n", strings.ToUpper(r), strings.Join(cfg.RoleKeywords[r], ","))
			}
		}
		fmt.Fprintf(out, "listen_addr: %s\n", cfg.ListenAddr)
		if cfg.AuthUser != "" {
			fmt.Fprintf(out, "auth_user: %s\n", cfg.AuthUser)
		}
		fmt.Fprintf(out, "auth_password: %s\n", mask(cfg.AuthPassword))
		fmt.Fprintf(out, "export_dir: %s\n", cfg.ExportDir)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := applySetting(cfg, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func applySetting(c *cfgpkg.Global, key, val string) error {
	if role, ok := strings.CutPrefix(key, "role_keywords."); ok {
		role = strings.ToUpper(strings.TrimSpace(role))
		if _, ok := analysis.DefaultRoleKeywords()[analysis.Role(role)]; !ok {
			return fmt.Errorf("unknown role: %s", role)
		}
		if c.RoleKeywords == nil {
			c.RoleKeywords = map[string][]string{}
		}
		c.RoleKeywords[role] = splitList(val)
		return nil
	}
	switch key {
	case "source_url":
		c.SourceURL = val
	case "cache_ttl_sec":
		return setInt(&c.CacheTTLSec, key, val, 0)
	case "keep_last_good":
		return setBool(&c.KeepLastGood, key, val)
	case "http_timeout_sec":
		return setInt(&c.HTTPTimeoutSec, key, val, 1)
	case "retry_max_attempts":
		return setInt(&c.RetryMaxAttempts, key, val, 1)
	case "retry_base_delay_ms":
		return setInt(&c.RetryBaseDelayMs, key, val, 0)
	case "retry_max_delay_ms":
		return setInt(&c.RetryMaxDelayMs, key, val, 0)
	case "default_state":
		c.DefaultState = strings.ToUpper(strings.TrimSpace(val))
	case "month_locale":
		switch strings.ToLower(val) {
		case "pt", "pt-br", "en":
			c.MonthLocale = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid month_locale: %s (use pt or en)", val)
		}
	case "drop_invalid_dates":
		return setBool(&c.DropInvalidDates, key, val)
	case "encodings":
		encs := splitList(val)
		for _, e := range encs {
			if !parser.KnownEncoding(e) {
				return fmt.Errorf("unknown encoding: %s", e)
			}
		}
		c.Encodings = encs
	case "listen_addr":
		c.ListenAddr = val
	case "auth_user":
		c.AuthUser = val
	case "auth_password":
		c.AuthPassword = val
	case "export_dir":
		c.ExportDir = val
	case "log_level":
		if _, err := utils.ParseLevel(val); err != nil {
			return err
		}
		c.LogLevel = strings.ToLower(val)
	case "log_format":
		switch strings.ToLower(val) {
		case "text", "json":
			c.LogFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_format: %s (use text or json)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func setInt(dst *int, key, val string, floor int) error {
	i, err := strconv.Atoi(val)
	if err != nil || i < floor {
		return fmt.Errorf("invalid int for %s: %v", key, val)
	}
	*dst = i
	return nil
}

func setBool(dst *bool, key, val string) error {
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fmt.Errorf("invalid bool for %s: %v", key, val)
	}
	*dst = b
	return nil
}

func splitList(val string) []string {
	var out []string
	for _, p := range strings.Split(val, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
