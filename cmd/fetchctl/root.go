package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tanq16/fetchctl/internal/config"
	"github.com/tanq16/fetchctl/internal/engine"
)

var fetchctlVersion = "dev"

var rootCmd = &cobra.Command{
	Use:     "fetchctl",
	Short:   "fetchctl is a resumable, multi-part HTTP download tool",
	Version: fetchctlVersion,
}

func init() {
	rootCmd.AddCommand(newGetCmd())
	rootCmd.AddCommand(newResumeCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newBatchCmd())
}

// defaultConfigPath returns where the CLI's defaults file lives,
// mirroring defaultCatalogPath's home-directory convention.
func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".fetchctl.yaml"
	}
	return filepath.Join(home, ".fetchctl.yaml")
}

// cliFlags is the flag set shared by the get, resume and batch subcommands.
type cliFlags struct {
	output       string
	connections  int
	partSize     int64
	retries      int
	resume       bool
	noResume     bool
	s3Bucket     string
	s3Key        string
	s3Profile    string
	proxyURL     string
	timeout      time.Duration
	userAgent    string
	debug        bool
}

func (f *cliFlags) register(cmd *cobra.Command) {
	defaults, err := config.Load(defaultConfigPath())
	if err != nil {
		defaults = config.DefaultDefaults()
	}
	userAgent := defaults.UserAgent
	if userAgent == "" {
		userAgent = "fetchctl/" + fetchctlVersion
	}

	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output file path (inferred from URL if unset)")
	cmd.Flags().IntVarP(&f.connections, "connections", "c", defaults.MaxPartCount, "Max parallel range fetchers")
	cmd.Flags().Int64VarP(&f.partSize, "part-size", "s", defaults.PartSize, "Bytes per range (minimum 10000)")
	cmd.Flags().IntVarP(&f.retries, "retries", "r", defaults.MaxRetryCount, "Per-range retry budget")
	cmd.Flags().BoolVar(&f.resume, "resume", defaults.AllowResuming, "Use HTTP Range requests when the server supports them")
	cmd.Flags().BoolVar(&f.noResume, "no-resume", false, "Never request byte ranges, regardless of server capability")
	cmd.Flags().StringVar(&f.s3Bucket, "s3-bucket", "", "Upload the finished download to this S3 bucket instead of keeping it local")
	cmd.Flags().StringVar(&f.s3Key, "s3-key", "", "S3 object key to upload to (required with --s3-bucket)")
	cmd.Flags().StringVar(&f.s3Profile, "s3-profile", "", "AWS profile to use for the S3 upload")
	cmd.Flags().StringVarP(&f.proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL")
	cmd.Flags().DurationVarP(&f.timeout, "timeout", "t", defaults.Timeout, "Per-request timeout")
	cmd.Flags().StringVarP(&f.userAgent, "user-agent", "a", userAgent, "User agent")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "Enable debug logging")
}

func (f *cliFlags) allowResuming() bool {
	return f.resume && !f.noResume
}

func (f *cliFlags) setupLogging() {
	level := zerolog.WarnLevel
	if f.debug {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.NewConsoleWriter()).Level(level).With().Timestamp().Logger()
	engine.SetLogger(logger)
}
