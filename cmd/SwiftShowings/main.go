package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BTreeMap/SwiftShowings/internal/api"
	"github.com/BTreeMap/SwiftShowings/internal/botconfig"
	"github.com/BTreeMap/SwiftShowings/internal/genai"
	"github.com/BTreeMap/SwiftShowings/internal/lockfile"
	"github.com/BTreeMap/SwiftShowings/internal/messenger"
	"github.com/BTreeMap/SwiftShowings/internal/scheduler"
	"github.com/BTreeMap/SwiftShowings/internal/session"
	"github.com/BTreeMap/SwiftShowings/internal/store"
	"github.com/BTreeMap/SwiftShowings/internal/twiliochat"
	"github.com/BTreeMap/SwiftShowings/internal/util"
	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for SwiftShowings state data
	DefaultStateDir = "/var/lib/swiftshowings"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "swiftshowings.db"
)

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()

	flags, err := parseCommandLineFlags(flag.CommandLine, os.Args[1:], config)
	if err != nil {
		slog.Error("Failed to parse flags", "error", err)
		os.Exit(2)
	}

	if *flags.checkConfig {
		if problems := checkConfig(os.Stdout, flags); problems > 0 {
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	lock, err := lockfile.Acquire(*flags.stateDir)
	if err != nil {
		slog.Error("Failed to lock state directory", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	fbOpts := buildMessengerOptions(flags)
	twOpts, err := buildTwilioOptions(flags)
	if err != nil {
		slog.Error("Invalid Twilio configuration", "error", err)
		lock.Release()
		os.Exit(1)
	}
	apiOpts := buildAPIOptions(flags)

	slog.Info("Bootstrapping SwiftShowings with configured modules")
	slog.Debug("Module options counts", "store", len(storeOpts), "genai", len(genaiOpts),
		"messenger", len(fbOpts), "twilio", len(twOpts), "api", len(apiOpts))
	if err := api.Run(storeOpts, genaiOpts, fbOpts, twOpts, apiOpts); err != nil {
		slog.Error("SwiftShowings failed to run", "error", err)
		lock.Release()
		os.Exit(1)
	}
	slog.Info("SwiftShowings exited successfully")
}

// Config holds environment configuration
type Config struct {
	StateDir         string
	DatabaseURL      string
	APIAddr          string
	OpenAIKey        string
	OpenAIModel      string
	PageAccessToken  string
	VerifyToken      string
	FacebookAPIVer   string
	MessengerEnabled bool
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	TwilioChannel    string
	SessionBackend   string
	SessionTTL       time.Duration
	SessionMax       int
	BotConfigPath    string
	OutboxEnabled    bool
	GenAIDebug       bool
	Housekeeping     string
	Retention        time.Duration
}

// Flags holds command line flag values
type Flags struct {
	stateDir         *string
	dbDSN            *string
	apiAddr          *string
	openaiKey        *string
	openaiModel      *string
	pageToken        *string
	verifyToken      *string
	fbAPIVersion     *string
	messengerEnabled *bool
	twilioSID        *string
	twilioToken      *string
	twilioFrom       *string
	twilioChannel    *string
	sessionBackend   *string
	sessionTTL       *time.Duration
	sessionMax       *int
	botConfig        *string
	outbox           *bool
	genaiDebug       *bool
	housekeeping     *string
	retention        *time.Duration
	checkConfig      *bool
}

// initializeLogger sets up structured logging. LOG_LEVEL selects the level;
// debug is the default.
func initializeLogger() {
	level := parseLogLevel(os.Getenv("LOG_LEVEL"))
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		StateDir:         os.Getenv("SWIFTSHOWINGS_STATE_DIR"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		APIAddr:          os.Getenv("API_ADDR"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      os.Getenv("OPENAI_MODEL"),
		PageAccessToken:  os.Getenv("FACEBOOK_PAGE_ACCESS_TOKEN"),
		VerifyToken:      os.Getenv("FACEBOOK_VERIFY_TOKEN"),
		FacebookAPIVer:   os.Getenv("FACEBOOK_API_VERSION"),
		MessengerEnabled: util.ParseBoolEnv("MESSENGER_ENABLED", true),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
		TwilioChannel:    os.Getenv("TWILIO_CHANNEL"),
		SessionBackend:   os.Getenv("SESSION_BACKEND"),
		SessionTTL:       util.ParseDurationEnv("SESSION_TTL", session.DefaultTTL),
		SessionMax:       util.ParseIntEnv("SESSION_MAX", session.DefaultMaxSessions),
		BotConfigPath:    os.Getenv("BOT_CONFIG"),
		OutboxEnabled:    util.ParseBoolEnv("OUTBOX_ENABLED", false),
		GenAIDebug:       util.ParseBoolEnv("GENAI_DEBUG", false),
		Housekeeping:     os.Getenv("HOUSEKEEPING_SCHEDULE"),
		Retention:        util.ParseDurationEnv("RETENTION", scheduler.DefaultRetention),
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No SWIFTSHOWINGS_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No DATABASE_URL provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}
	if config.SessionBackend == "" {
		config.SessionBackend = api.SessionBackendMemory
	}
	if config.TwilioChannel == "" {
		config.TwilioChannel = string(twiliochat.ChannelSMS)
	}
	if config.Housekeeping == "" {
		config.Housekeeping = scheduler.DefaultHousekeepingSchedule
	}

	slog.Debug("environment variables loaded",
		"SWIFTSHOWINGS_STATE_DIR", config.StateDir,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"API_ADDR", config.APIAddr,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"FACEBOOK_PAGE_ACCESS_TOKEN_SET", config.PageAccessToken != "",
		"MESSENGER_ENABLED", config.MessengerEnabled,
		"TWILIO_ACCOUNT_SID_SET", config.TwilioAccountSID != "",
		"TWILIO_CHANNEL", config.TwilioChannel,
		"SESSION_BACKEND", config.SessionBackend,
		"BOT_CONFIG", config.BotConfigPath,
		"OUTBOX_ENABLED", config.OutboxEnabled)

	return config
}

// parseCommandLineFlags parses args with environment defaults.
func parseCommandLineFlags(fs *flag.FlagSet, args []string, config Config) (Flags, error) {
	flags := Flags{
		stateDir:         fs.String("state-dir", config.StateDir, "state directory for SwiftShowings data (overrides $SWIFTSHOWINGS_STATE_DIR)"),
		dbDSN:            fs.String("db-dsn", config.DatabaseURL, "database DSN, PostgreSQL URL or SQLite path (overrides $DATABASE_URL)"),
		apiAddr:          fs.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		openaiKey:        fs.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiModel:      fs.String("openai-model", config.OpenAIModel, "OpenAI chat model (overrides $OPENAI_MODEL)"),
		pageToken:        fs.String("page-access-token", config.PageAccessToken, "Facebook page access token (overrides $FACEBOOK_PAGE_ACCESS_TOKEN)"),
		verifyToken:      fs.String("verify-token", config.VerifyToken, "Messenger webhook verify token (overrides $FACEBOOK_VERIFY_TOKEN)"),
		fbAPIVersion:     fs.String("facebook-api-version", config.FacebookAPIVer, "Graph API version (overrides $FACEBOOK_API_VERSION)"),
		messengerEnabled: fs.Bool("messenger", config.MessengerEnabled, "enable the Messenger channel (overrides $MESSENGER_ENABLED)"),
		twilioSID:        fs.String("twilio-account-sid", config.TwilioAccountSID, "Twilio account SID (overrides $TWILIO_ACCOUNT_SID)"),
		twilioToken:      fs.String("twilio-auth-token", config.TwilioAuthToken, "Twilio auth token (overrides $TWILIO_AUTH_TOKEN)"),
		twilioFrom:       fs.String("twilio-from", config.TwilioFromNumber, "Twilio sender number (overrides $TWILIO_FROM_NUMBER)"),
		twilioChannel:    fs.String("twilio-channel", config.TwilioChannel, "Twilio channel, sms or whatsapp (overrides $TWILIO_CHANNEL)"),
		sessionBackend:   fs.String("session-backend", config.SessionBackend, "session store, memory or bigcache (overrides $SESSION_BACKEND)"),
		sessionTTL:       fs.Duration("session-ttl", config.SessionTTL, "idle session lifetime (overrides $SESSION_TTL)"),
		sessionMax:       fs.Int("session-max", config.SessionMax, "maximum live sessions (overrides $SESSION_MAX)"),
		botConfig:        fs.String("bot-config", config.BotConfigPath, "bot content YAML file, reloaded on change (overrides $BOT_CONFIG)"),
		outbox:           fs.Bool("outbox", config.OutboxEnabled, "deliver replies through the durable outbox (overrides $OUTBOX_ENABLED)"),
		genaiDebug:       fs.Bool("genai-debug", config.GenAIDebug, "write OpenAI requests and responses to the state directory (overrides $GENAI_DEBUG)"),
		housekeeping:     fs.String("housekeeping", config.Housekeeping, "cron schedule for pruning dedup and outbox rows (overrides $HOUSEKEEPING_SCHEDULE)"),
		retention:        fs.Duration("retention", config.Retention, "age after which processed rows are pruned (overrides $RETENTION)"),
		checkConfig:      fs.Bool("check-config", false, "print a configuration report and exit"),
	}

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"apiAddr", *flags.apiAddr,
		"openaiKeySet", *flags.openaiKey != "",
		"messenger", *flags.messengerEnabled,
		"twilioSet", *flags.twilioSID != "",
		"sessionBackend", *flags.sessionBackend,
		"outbox", *flags.outbox)

	// Follow a changed state directory when the DSN is still the SQLite default.
	defaultDSN := filepath.Join(config.StateDir, DefaultDBFileName)
	if *flags.dbDSN == defaultDSN && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags, nil
}

// ensureDirectoriesExist creates the state directory and, for SQLite, the
// database file's directory.
func ensureDirectoriesExist(flags Flags) error {
	if err := os.MkdirAll(*flags.stateDir, 0755); err != nil {
		return fmt.Errorf("create state directory %s: %w", *flags.stateDir, err)
	}
	if *flags.dbDSN != "" && store.DetectDSNType(*flags.dbDSN) != "postgres" {
		dir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating directory for SQLite database", "dir", dir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create database directory %s: %w", dir, err)
		}
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN == "" {
		slog.Debug("No database DSN provided, will use in-memory store")
		return storeOpts
	}
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_set", true)
		storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
	} else {
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
		storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.openaiModel))
	}
	if *flags.genaiDebug {
		genaiOpts = append(genaiOpts, genai.WithDebugMode(true), genai.WithStateDir(*flags.stateDir))
	}
	return genaiOpts
}

// buildMessengerOptions constructs Messenger client options
func buildMessengerOptions(flags Flags) []messenger.Option {
	var fbOpts []messenger.Option
	if *flags.pageToken != "" {
		fbOpts = append(fbOpts, messenger.WithPageAccessToken(*flags.pageToken))
	}
	if *flags.fbAPIVersion != "" {
		fbOpts = append(fbOpts, messenger.WithAPIVersion(*flags.fbAPIVersion))
	}
	return fbOpts
}

// buildTwilioOptions constructs Twilio client options. It returns nil when no
// account SID is configured, which leaves the Twilio channel off.
func buildTwilioOptions(flags Flags) ([]twiliochat.Option, error) {
	if *flags.twilioSID == "" {
		return nil, nil
	}
	ch, err := twiliochat.ParseChannel(*flags.twilioChannel)
	if err != nil {
		return nil, err
	}
	return []twiliochat.Option{
		twiliochat.WithAccountSID(*flags.twilioSID),
		twiliochat.WithAuthToken(*flags.twilioToken),
		twiliochat.WithFrom(*flags.twilioFrom),
		twiliochat.WithChannel(ch),
	}, nil
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	apiOpts := []api.Option{
		api.WithMessengerEnabled(*flags.messengerEnabled),
		api.WithSessionBackend(*flags.sessionBackend),
		api.WithSessionTTL(*flags.sessionTTL),
		api.WithSessionMax(*flags.sessionMax),
		api.WithOutbox(*flags.outbox),
		api.WithHousekeeping(*flags.housekeeping, *flags.retention),
	}
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.verifyToken != "" {
		apiOpts = append(apiOpts, api.WithVerifyToken(*flags.verifyToken))
	}
	if *flags.botConfig != "" {
		apiOpts = append(apiOpts, api.WithBotConfigPath(*flags.botConfig))
	}
	return apiOpts
}

// checkConfig prints a colored report of the effective configuration and
// returns the number of blocking problems found.
func checkConfig(w io.Writer, flags Flags) int {
	ok := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)
	bad := color.New(color.FgRed)
	head := color.New(color.FgCyan, color.Bold)

	problems := 0
	line := func(c *color.Color, label, detail string) {
		c.Fprintf(w, "  %-10s", label)
		fmt.Fprintln(w, detail)
	}

	head.Fprintln(w, "SwiftShowings configuration")

	line(ok, "state", *flags.stateDir)
	if *flags.dbDSN == "" {
		line(warn, "store", "in-memory (records are lost on restart)")
	} else if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		line(ok, "store", "PostgreSQL")
	} else {
		line(ok, "store", "SQLite at "+*flags.dbDSN)
	}

	switch {
	case !*flags.messengerEnabled:
		line(warn, "messenger", "disabled")
	case *flags.pageToken == "":
		line(bad, "messenger", "enabled but FACEBOOK_PAGE_ACCESS_TOKEN is not set")
		problems++
	default:
		line(ok, "messenger", "enabled")
		if *flags.verifyToken == "" {
			line(warn, "webhook", "FACEBOOK_VERIFY_TOKEN is not set, verification will fail")
		}
	}

	if *flags.twilioSID == "" {
		line(warn, "twilio", "disabled")
	} else if _, err := buildTwilioOptions(flags); err != nil {
		line(bad, "twilio", err.Error())
		problems++
	} else if *flags.twilioToken == "" || *flags.twilioFrom == "" {
		line(bad, "twilio", "TWILIO_AUTH_TOKEN and TWILIO_FROM_NUMBER are required")
		problems++
	} else {
		line(ok, "twilio", "enabled ("+*flags.twilioChannel+")")
	}

	if !*flags.messengerEnabled && *flags.twilioSID == "" {
		line(bad, "channels", "no chat channel is enabled")
		problems++
	}

	if *flags.openaiKey == "" {
		line(warn, "assistant", "OPENAI_API_KEY is not set, idle users get a fallback reply")
	} else {
		model := *flags.openaiModel
		if model == "" {
			model = genai.DefaultModel
		}
		line(ok, "assistant", "enabled ("+model+")")
	}

	switch *flags.sessionBackend {
	case api.SessionBackendMemory, api.SessionBackendBigCache:
		line(ok, "sessions", fmt.Sprintf("%s, ttl %s, max %d", *flags.sessionBackend, *flags.sessionTTL, *flags.sessionMax))
	default:
		line(bad, "sessions", "unknown backend "+*flags.sessionBackend)
		problems++
	}

	if *flags.botConfig == "" {
		line(ok, "content", "built-in defaults")
	} else if _, err := botconfig.Load(*flags.botConfig); err != nil {
		line(bad, "content", err.Error())
		problems++
	} else {
		line(ok, "content", *flags.botConfig+" (watched)")
	}

	if *flags.housekeeping != "" {
		if err := scheduler.ValidateSchedule(*flags.housekeeping); err != nil {
			line(bad, "cleanup", err.Error())
			problems++
		} else {
			line(ok, "cleanup", fmt.Sprintf("%s, retention %s", *flags.housekeeping, *flags.retention))
		}
	}

	if *flags.outbox && *flags.dbDSN == "" {
		line(bad, "outbox", "requires a SQLite or PostgreSQL store")
		problems++
	}

	if problems > 0 {
		bad.Fprintf(w, "%d problem(s) found\n", problems)
	} else {
		ok.Fprintln(w, "configuration OK")
	}
	return problems
}
