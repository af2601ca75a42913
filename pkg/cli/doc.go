// Package cli implements the addond command line.
//
// # Commands
//
// run - Run the addon container:
//
//	addond --repository /var/lib/addons run [--poll-interval 100ms] [--batch-size 4]
//
// Polls the repository, resolves dependencies and keeps every enabled,
// deployed and compatible addon running. Serves /health, /ready, /metrics and
// /v1/addons on --metrics-port and notifies systemd when ready.
//
// list - List installed addons:
//
//	addond --repository /var/lib/addons list [--enabled] [--format json]
//
// enable, disable - Toggle addons in the repository manifest:
//
//	addond --repository /var/lib/addons enable core:1.0.0 web:2.1.0
//
// status - Query a running container:
//
//	addond status --status failed
//
// # Global Flags
//
//	--repository, -r  Repository directory (ADDON_REPOSITORY_DIR)
//	--log-level       Log level: debug, info, warn, error (LOG_LEVEL)
//
// # Environment
//
// Variables are also read from ./.env, or the file named by ADDON_ENV_FILE.
// Variables already set in the environment win.
//
//	ADDON_REPOSITORY_DIR       repository root
//	ADDON_POLL_INTERVAL_MS     tick interval in milliseconds
//	ADDON_BATCH_SIZE           concurrent start cap
//	ADDON_RUNTIME_API_VERSION  runtime API version override
//	PORT                       metrics port
//	LOG_LEVEL                  logging verbosity
//
// Version information is embedded at build time using ldflags:
//
//	go build -ldflags="-X 'github.com/NVIDIA/addon-container/pkg/cli.version=1.0.0'"
package cli
