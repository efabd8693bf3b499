// Package main provides the postwright command line interface: one-shot
// posting runs across social platforms, job queue processing, and
// credential management.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	appconfig "github.com/postwright/postwright/pkg/config"
	"github.com/postwright/postwright/pkg/llm"
	"github.com/postwright/postwright/pkg/llm/openai"
	"github.com/postwright/postwright/pkg/logging"
	"github.com/postwright/postwright/pkg/orchestrator"
	"github.com/postwright/postwright/pkg/poster"
)

const version = "0.1.0"

func main() {
	// Parse command line flags
	config := parseFlags()

	// Show version if requested
	if config.ShowVersion {
		fmt.Printf("postwright v%s\n", version)
		return
	}

	// Set up signal handling for graceful shutdown. Cancellation takes
	// effect between platforms; an in-flight attempt finishes first.
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nFinishing the current platform, then stopping...")
		cancel()
	}()

	if err := run(ctx, config); err != nil {
		cancel()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cancel()
}

// CLIConfig holds command-line configuration
type CLIConfig struct {
	Platforms string
	Text      string
	Hashtags  string
	Image     string
	Video     string
	UseQueue  bool

	AddPlatform string
	ImportFile  string
	Remove      string
	List        bool

	ConfigFile string
	Storage    string
	Headless   bool
	NoLLM      bool
	APIKey     string
	BaseURL    string
	Model      string
	LogLevel   string

	ShowVersion bool
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	// Environment files are optional; flags and the real environment win.
	_ = godotenv.Load()

	config := &CLIConfig{}

	flag.StringVar(&config.Platforms, "platforms", "", "Comma-separated platforms to post to (default: all configured)")
	flag.StringVar(&config.Text, "text", "", "Post text (bypasses the job queue)")
	flag.StringVar(&config.Hashtags, "hashtags", "", "Hashtags to append, e.g. \"#go #automation\"")
	flag.StringVar(&config.Image, "image", "", "Path to an image to attach")
	flag.StringVar(&config.Video, "video", "", "Path to a video to attach")
	flag.BoolVar(&config.UseQueue, "queue", false, "Take the next ready job per platform from the queue")

	flag.StringVar(&config.AddPlatform, "add-credentials", "", "Prompt for and store credentials for a platform")
	flag.StringVar(&config.ImportFile, "import", "", "Bulk-import credentials from a YAML file")
	flag.StringVar(&config.Remove, "remove-credentials", "", "Remove stored credentials for a platform")
	flag.BoolVar(&config.List, "list-platforms", false, "List supported platforms and exit")

	flag.StringVar(&config.ConfigFile, "config", "", "Path to configuration file (YAML)")
	flag.StringVar(&config.Storage, "storage", "", "Storage root (default: ~/.postwright)")
	flag.BoolVar(&config.Headless, "headless", false, "Run the browser headless")
	flag.BoolVar(&config.NoLLM, "no-llm", false, "Disable model-assisted element detection")
	flag.StringVar(&config.APIKey, "api-key", os.Getenv("OPENAI_API_KEY"), "OpenAI API key")
	flag.StringVar(&config.BaseURL, "base-url", os.Getenv("OPENAI_BASE_URL"), "OpenAI API base URL")
	flag.StringVar(&config.Model, "model", openai.DefaultModel, "Vision model for element detection")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.BoolVar(&config.ShowVersion, "version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "postwright - Browser-driven social media posting\n\n")
		fmt.Fprintf(os.Stderr, "Usage: postwright [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Post the same text everywhere\n")
		fmt.Fprintf(os.Stderr, "  postwright -text \"Hello world\" -hashtags \"#go\"\n\n")
		fmt.Fprintf(os.Stderr, "  # Process the next scheduled job for two platforms\n")
		fmt.Fprintf(os.Stderr, "  postwright -queue -platforms twitter,linkedin\n\n")
		fmt.Fprintf(os.Stderr, "  # Store credentials\n")
		fmt.Fprintf(os.Stderr, "  postwright -add-credentials twitter\n\n")
	}

	flag.Parse()
	return config
}

// run dispatches the selected operation.
func run(ctx context.Context, config *CLIConfig) error {
	logging.Init(logging.Options{Level: parseLevel(config.LogLevel)})

	if err := applyFileConfig(config); err != nil {
		return err
	}

	orch, err := orchestrator.New(orchestrator.Config{
		StorageRoot: config.Storage,
		Headless:    config.Headless,
		Provider:    buildProvider(config),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer orch.Close()

	switch {
	case config.List:
		for _, name := range orch.ListPlatforms() {
			fmt.Println(name)
		}
		return nil

	case config.AddPlatform != "":
		return addCredentials(orch, config.AddPlatform)

	case config.ImportFile != "":
		count, err := orch.ImportCredentials(config.ImportFile)
		if err != nil {
			return err
		}
		fmt.Printf("Imported credentials for %d platform(s)\n", count)
		return nil

	case config.Remove != "":
		if !orch.RemoveCredentials(config.Remove) {
			return fmt.Errorf("no stored credentials for %s", config.Remove)
		}
		fmt.Printf("Removed credentials for %s\n", config.Remove)
		return nil
	}

	platforms := splitPlatforms(config.Platforms)
	if len(platforms) == 0 {
		platforms = orch.ListPlatforms()
	}

	content := buildContent(config)
	if content == nil && !config.UseQueue {
		return fmt.Errorf("nothing to do: provide -text/-image/-video or -queue")
	}

	report, err := orch.PostToPlatforms(ctx, platforms, content, config.UseQueue)
	if err != nil {
		return err
	}

	printReport(report)
	if !report.Success {
		if report.Attempted == 0 {
			return errors.New(report.Message)
		}
		return fmt.Errorf("%d of %d platform(s) failed", report.Attempted-report.Succeeded, report.Attempted)
	}
	return nil
}

// applyFileConfig merges file-based defaults into the CLI configuration.
// Explicit flags always win; the file only fills values the user left at
// their defaults.
func applyFileConfig(config *CLIConfig) error {
	path := config.ConfigFile
	if path == "" {
		var err error
		if path, err = appconfig.DefaultPath(); err != nil {
			return err
		}
	}

	fileCfg, err := appconfig.Load(path)
	if err != nil {
		return err
	}

	if config.Storage == "" {
		config.Storage = fileCfg.Storage
	}
	config.Headless = config.Headless || fileCfg.Headless
	config.NoLLM = config.NoLLM || fileCfg.LLM.Disabled
	if config.Platforms == "" {
		config.Platforms = strings.Join(fileCfg.Platforms, ",")
	}
	if config.Model == openai.DefaultModel && fileCfg.LLM.Model != "" {
		config.Model = fileCfg.LLM.Model
	}
	if config.BaseURL == "" {
		config.BaseURL = fileCfg.LLM.BaseURL
	}
	return nil
}

// addCredentials prompts for a username and a hidden password, then stores
// them for the platform. The password never appears on the terminal.
func addCredentials(orch *orchestrator.Orchestrator, platform string) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Printf("Username for %s: ", platform)
	username, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username must not be empty")
	}

	fmt.Printf("Password for %s: ", platform)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if len(password) == 0 {
		return fmt.Errorf("password must not be empty")
	}

	if !orch.AddCredentials(platform, username, string(password)) {
		return fmt.Errorf("failed to store credentials for %s", platform)
	}
	fmt.Printf("Stored credentials for %s\n", platform)
	return nil
}

// buildProvider returns nil when model assistance is disabled or not
// configured; the resolver then relies on its static selector tables.
func buildProvider(config *CLIConfig) llm.Provider {
	if config.NoLLM || config.APIKey == "" {
		return nil
	}

	opts := []openai.Option{openai.WithModel(config.Model)}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	provider, err := openai.NewProvider(config.APIKey, opts...)
	if err != nil {
		slog.Warn("model assistance unavailable, using fallback selectors", "error", err)
		return nil
	}
	return provider
}

// buildContent returns nil when no inline content flags were given.
func buildContent(config *CLIConfig) *poster.Content {
	if config.Text == "" && config.Image == "" && config.Video == "" {
		return nil
	}
	return &poster.Content{
		Text:      config.Text,
		Hashtags:  config.Hashtags,
		ImageFile: config.Image,
		VideoFile: config.Video,
	}
}

func splitPlatforms(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printReport(report *orchestrator.Report) {
	if report.Success && report.Message != "" {
		fmt.Println(report.Message)
	}
	for _, r := range report.Results {
		if r.Success {
			fmt.Printf("  %-12s posted\n", r.Platform)
			continue
		}
		fmt.Printf("  %-12s failed (%s): %s\n", r.Platform, r.ErrorKind, r.Error)
	}
	if report.Attempted > 0 {
		fmt.Printf("%d/%d platform(s) succeeded\n", report.Succeeded, report.Attempted)
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
