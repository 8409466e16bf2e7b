package cmd

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitrelay/packages/core/config"
	relayhttp "github.com/abdul-hamid-achik/hitrelay/packages/http"
	"github.com/abdul-hamid-achik/hitrelay/packages/logging"
)

// Outbound client flags, shared by serve and send
var (
	timeoutFlag   string
	insecureFlag  bool
	noFollowFlag  bool
	proxyFlag     string
	userAgentFlag string
	fileRootFlag  string
)

func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&timeoutFlag, "timeout", getEnvString("HITRELAY_TIMEOUT", ""), "Outbound request timeout, 0 for none (e.g., 30s, 1m) (env: HITRELAY_TIMEOUT)")
	cmd.Flags().BoolVarP(&insecureFlag, "insecure", "k", getEnvBool("HITRELAY_INSECURE", false), "Disable SSL certificate validation (env: HITRELAY_INSECURE)")
	cmd.Flags().BoolVar(&noFollowFlag, "no-follow-redirects", false, "Return redirect responses instead of following them")
	cmd.Flags().StringVar(&proxyFlag, "proxy", getEnvString("HITRELAY_PROXY", ""), "Proxy URL for outbound requests (env: HITRELAY_PROXY)")
	cmd.Flags().StringVar(&userAgentFlag, "user-agent", getEnvString("HITRELAY_USER_AGENT", ""), "User-Agent sent when the caller sets none (env: HITRELAY_USER_AGENT)")
	cmd.Flags().StringVar(&fileRootFlag, "file-root", getEnvString("HITRELAY_FILE_ROOT", ""), "Directory multipart file parts may be read from; unset allows data: URLs only (env: HITRELAY_FILE_ROOT)")
}

// loadSettings resolves the effective configuration: config file first,
// then flags and their environment defaults.
func loadSettings() (*config.Config, error) {
	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, withExitCode(ExitConfigError, fmt.Errorf("failed to load config: %w", err))
	}

	override := &config.Config{
		Proxy:     proxyFlag,
		UserAgent: userAgentFlag,
		FileRoot:  fileRootFlag,
		LogLevel:  logLevelFlag,
		LogFormat: logFormatFlag,
	}
	if insecureFlag {
		override.ValidateSSL = config.BoolPtr(false)
	}
	if noFollowFlag {
		override.FollowRedirects = config.BoolPtr(false)
	}
	cfg = cfg.Merge(override)

	// Merge skips zero values, so an explicit "0" timeout is applied here.
	if timeoutFlag != "" {
		d, err := time.ParseDuration(timeoutFlag)
		if err != nil {
			return nil, withExitCode(ExitUsageError, fmt.Errorf("invalid timeout value %q: %w", timeoutFlag, err))
		}
		cfg.Timeout = int(d.Milliseconds())
	}

	if err := cfg.Validate(); err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*logrus.Logger, error) {
	logger, err := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	return logger, nil
}

func defaultUserAgent() string {
	return "hitrelay/" + version
}

// newClient builds the shared outbound client from cfg. A User-Agent listed
// in defaultHeaders overrides the userAgent setting. extra is applied last.
func newClient(cfg *config.Config, extra ...relayhttp.ClientOption) *relayhttp.Client {
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent()
	}

	opts := []relayhttp.ClientOption{
		relayhttp.WithTimeout(time.Duration(cfg.Timeout) * time.Millisecond),
		relayhttp.WithFollowRedirects(cfg.GetFollowRedirects()),
		relayhttp.WithMaxRedirects(cfg.MaxRedirects),
		relayhttp.WithValidateSSL(cfg.GetValidateSSL()),
		relayhttp.WithUserAgent(userAgent),
		relayhttp.WithDefaultHeaders(cfg.DefaultHeaders),
	}
	if cfg.Proxy != "" {
		opts = append(opts, relayhttp.WithProxy(cfg.Proxy))
	}
	opts = append(opts, extra...)
	return relayhttp.NewClient(opts...)
}
