package app

import (
	"fmt"
	"os"

	"github.com/adhocore/gronx"

	"chatd/pkg/config"
)

// validateConfig performs quick, fail-fast validation of the effective
// configuration before starting long-running services. Keep checks light
// and focused so callers can surface user-friendly errors.
func validateConfig(eff config.EffectiveConfigResult) error {
	// DB path must be present
	if eff.DBPath == "" {
		return fmt.Errorf("database path is empty: set --db flag, CHATD_DB_PATH env, or storage.db_path in config")
	}

	// TLS cert/key presence check if one is set
	cert := eff.Config.Server.TLS.CertFile
	key := eff.Config.Server.TLS.KeyFile
	if (cert != "" && key == "") || (cert == "" && key != "") {
		return fmt.Errorf("incomplete TLS configuration: both server.tls.cert_file and server.tls.key_file must be set")
	}
	if cert != "" {
		if _, err := os.Stat(cert); err != nil {
			return fmt.Errorf("tls cert file not accessible: %w", err)
		}
		if _, err := os.Stat(key); err != nil {
			return fmt.Errorf("tls key file not accessible: %w", err)
		}
	}

	// sweeper cron must parse when the sweeper is enabled
	if eff.Config.Sweeper.Enabled && eff.Config.Sweeper.Cron != "" {
		if !gronx.IsValid(eff.Config.Sweeper.Cron) {
			return fmt.Errorf("invalid sweeper cron expression: %s", eff.Config.Sweeper.Cron)
		}
	}

	if eff.Config.Realtime.SendBuffer < 0 {
		return fmt.Errorf("realtime.send_buffer must not be negative")
	}
	if eff.Config.Realtime.PingIntervalSec < 0 {
		return fmt.Errorf("realtime.ping_interval_sec must not be negative")
	}

	return nil
}
