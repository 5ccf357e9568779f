package banner

import (
	"fmt"

	"chatd/pkg/config"
)

const banner = `
 ██████╗██╗  ██╗ █████╗ ████████╗██████╗
██╔════╝██║  ██║██╔══██╗╚══██╔══╝██╔══██╗
██║     ███████║███████║   ██║   ██║  ██║
██║     ██╔══██║██╔══██║   ██║   ██║  ██║
╚██████╗██║  ██║██║  ██║   ██║   ██████╔╝
 ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝   ╚═════╝
`

// PrintWithEff prints the startup banner with the effective configuration
// summary and quick production checks.
func PrintWithEff(eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	dbPath := eff.DBPath
	if dbPath == "" && eff.Config != nil {
		dbPath = eff.Config.Storage.DBPath
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:   %s\n", addr)
	fmt.Printf("DB Path:  %s\n", dbPath)
	if version != "" {
		fmt.Printf("Version:  %s\n", version)
	}
	fmt.Printf("Config:   %s\n", src)

	fmt.Println("\n== Examples ===================================================")
	fmt.Println(`curl -X POST 'http://<host>:<port>/v1/messages' -d '{"recipient":"u2","kind":"text","text":"hello"}'`)
	fmt.Println("curl 'http://<host>:<port>/v1/conversations'")

	fmt.Println("\n== Production? ================================================")
	be, fe, ak := 0, 0, 0
	if eff.Config != nil {
		be = len(eff.Config.Security.APIKeys.Backend)
		fe = len(eff.Config.Security.APIKeys.Frontend)
		ak = len(eff.Config.Security.APIKeys.Admin)
	}
	if be > 0 {
		fmt.Printf("- Backend API keys: OK (%d)\n", be)
	} else {
		fmt.Println("- Backend API keys: MISSING (required for backend services)")
	}
	if fe > 0 {
		fmt.Printf("- Frontend API keys: OK (%d)\n", fe)
	} else {
		fmt.Println("- Frontend API keys: MISSING (required for client access)")
	}
	if ak > 0 {
		fmt.Printf("- Admin API keys: OK (%d)\n", ak)
	} else {
		fmt.Println("- Admin API keys: MISSING (required for admin tooling)")
	}

	if eff.Config != nil && eff.Config.Server.TLS.CertFile != "" && eff.Config.Server.TLS.KeyFile != "" {
		fmt.Println("- TLS: configured")
	} else {
		fmt.Println("- TLS: unconfigured")
	}

	if dbPath != "" {
		fmt.Printf("- DB Path: %s\n", dbPath)
	} else {
		fmt.Println("- DB Path: not set (use --db or CHATD_DB_PATH)")
	}

	sweepEnabled := eff.Config != nil && eff.Config.Sweeper.Enabled
	if sweepEnabled {
		if eff.Config.Sweeper.Cron != "" {
			fmt.Printf("- Sweeper: enabled (cron=%s)\n", eff.Config.Sweeper.Cron)
		} else {
			fmt.Println("- Sweeper: enabled")
		}
	} else {
		fmt.Println("- Sweeper: disabled")
	}

	fmt.Println("\n== Logs: ======================================================")
}
