package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/livesync-cli/internal/adapters/notify"
	statusadapter "github.com/bnema/livesync-cli/internal/adapters/render/status"
	tomlrepo "github.com/bnema/livesync-cli/internal/adapters/repo/toml"
	"github.com/bnema/livesync-cli/internal/application"
	"github.com/bnema/livesync-cli/internal/ports"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"pkt.systems/pslog"
)

const (
	envPrefix                  = "LIVESYNC"
	notificationTimeoutKey     = "notification.timeout"
	debuggerPortTimeoutKey     = "debugger.port_timeout"
	defaultNotificationTimeout = 30 * time.Second
	defaultDebuggerPortTimeout = 10 * time.Second
)

type app struct {
	config         *viper.Viper
	sessionRepo    ports.SessionRepository
	ruleRepo       ports.RuleRepository
	clock          ports.Clock
	statusRenderer func([]application.SessionData, statusadapter.RenderOptions) (string, error)
}

// runtime is the per-command component graph.
type runtime struct {
	coordinator *application.Coordinator
	sessions    *application.SessionService
	hub         *notify.Hub
	log         pslog.Logger
}

func wireApp() (*app, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}

	sessionRepo, err := tomlrepo.NewSessionRepository(config)
	if err != nil {
		return nil, fmt.Errorf("wire session repository: %w", err)
	}

	ruleRepo, err := tomlrepo.NewRuleRepository(config)
	if err != nil {
		return nil, fmt.Errorf("wire rule repository: %w", err)
	}

	return &app{
		config:         config,
		sessionRepo:    sessionRepo,
		ruleRepo:       ruleRepo,
		clock:          ports.SystemClock{},
		statusRenderer: statusadapter.Render,
	}, nil
}

func loadConfig() (*viper.Viper, error) {
	config := viper.New()
	config.SetEnvPrefix(envPrefix)
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()
	config.SetDefault(notificationTimeoutKey, defaultNotificationTimeout)
	config.SetDefault(debuggerPortTimeoutKey, defaultDebuggerPortTimeout)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	config.SetConfigName("config")
	config.SetConfigType("toml")
	config.AddConfigPath(filepath.Join(homeDir, tomlrepo.ConfigDir))

	if err := config.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return config, nil
}

func (a *app) newRuntime(cmd *cobra.Command) (*runtime, error) {
	logger := pslog.Ctx(cmd.Context())
	hub := notify.NewHub(logger.With("component", "notify"))

	coordinator, err := application.NewCoordinator(application.CoordinatorDeps{
		Observer: hub,
		Clock:    a.clock,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("wire coordinator: %w", err)
	}

	return &runtime{
		coordinator: coordinator,
		sessions:    application.NewSessionService(coordinator.Sessions, a.sessionRepo, a.clock),
		hub:         hub,
		log:         logger,
	}, nil
}

func (a *app) notificationTimeout() time.Duration {
	return a.config.GetDuration(notificationTimeoutKey)
}

func (a *app) debuggerPortTimeout() time.Duration {
	return a.config.GetDuration(debuggerPortTimeoutKey)
}
