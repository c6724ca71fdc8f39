// Command playship publishes an Android App Bundle to the Play internal track:
// it opens an edit, uploads the bundle, assigns the version to the track as a
// draft, and commits the edit.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"playship/internal/config"
	"playship/internal/googleauth"
	"playship/internal/pkg/logger"
	"playship/internal/progress"
	"playship/internal/publisher"
	"playship/internal/service"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"
)

var version = "dev"

type cliArgs struct {
	serviceAccountJSON string
	packageName        string
	bundle             string
	versionCode        string
	logLevel           string
	proxyURL           string
}

func main() {
	flags := pflag.NewFlagSet("playship", pflag.ContinueOnError)
	var args cliArgs
	flags.StringVarP(&args.serviceAccountJSON, "service-account-json", "s", "", "path to the service-account JSON key file")
	flags.StringVarP(&args.packageName, "package-name", "p", "", "application package name, e.g. com.example.app")
	flags.StringVarP(&args.bundle, "bundle", "b", "", "path to the .aab bundle to upload")
	flags.StringVarP(&args.versionCode, "version-code", "c", "", "version code to assign to the internal track")
	flags.StringVar(&args.logLevel, "log-level", "", "override the configured log level (debug|info|warn|error)")
	flags.StringVar(&args.proxyURL, "proxy", "", "proxy URL for outbound calls (http, https, socks5)")
	showVersion := flags.Bool("version", false, "print the version and exit")

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *showVersion {
		fmt.Println("playship " + version)
		return
	}

	logger.InitBootstrap()

	if err := run(args); err != nil {
		logger.L().Error("publish failed", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	logger.Sync()
}

func run(args cliArgs) error {
	if err := validateArgs(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if args.logLevel != "" {
		cfg.Log.Level = args.logLevel
	}
	if args.proxyURL != "" {
		cfg.Publisher.ProxyURL = args.proxyURL
	}

	if err := logger.Init(logger.InitOptions{
		Level:           cfg.Log.Level,
		Format:          cfg.Log.Format,
		ServiceName:     cfg.Log.ServiceName,
		Caller:          cfg.Log.Caller,
		StacktraceLevel: cfg.Log.StacktraceLevel,
		Output: logger.OutputOptions{
			ToStdout: cfg.Log.Output.ToStdout,
			ToFile:   cfg.Log.Output.ToFile,
			FilePath: cfg.Log.Output.FilePath,
		},
		Rotation: logger.RotationOptions{
			MaxSizeMB:  cfg.Log.Rotation.MaxSizeMB,
			MaxBackups: cfg.Log.Rotation.MaxBackups,
			MaxAgeDays: cfg.Log.Rotation.MaxAgeDays,
			Compress:   cfg.Log.Rotation.Compress,
			LocalTime:  cfg.Log.Rotation.LocalTime,
		},
	}); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	log := logger.With(
		zap.String("run_id", uuid.NewString()),
		zap.String("package_name", args.packageName),
	)

	account, err := googleauth.LoadServiceAccount(args.serviceAccountJSON)
	if err != nil {
		return err
	}

	tokens := googleauth.NewTokenManager(account, cfg.Auth.Scopes,
		googleauth.WithTokenURL(cfg.Auth.TokenURL),
		googleauth.WithTimeout(cfg.Auth.Timeout),
	)

	client, err := publisher.NewClient(cfg.Publisher, args.packageName, tokens)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("publishing bundle",
		zap.String("bundle", args.bundle),
		zap.String("version_code", args.versionCode),
	)

	edit, err := service.NewReleaseService(client, log).
		Publish(ctx, args.bundle, args.versionCode, uploadReporter(args.bundle))
	if err != nil {
		return err
	}

	log.Info("release published to internal track as draft", zap.String("edit_id", edit.ID))
	return nil
}

func validateArgs(args cliArgs) error {
	switch {
	case args.serviceAccountJSON == "":
		return errors.New("--service-account-json is required")
	case args.packageName == "":
		return errors.New("--package-name is required")
	case args.bundle == "":
		return errors.New("--bundle is required")
	case args.versionCode == "":
		return errors.New("--version-code is required")
	}
	return nil
}

// uploadReporter renders a byte progress bar on stderr when attached to a
// terminal; otherwise progress updates are dropped and only log lines remain.
func uploadReporter(bundlePath string) progress.Reporter {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return progress.Discard
	}

	info, err := os.Stat(bundlePath)
	if err != nil {
		return progress.Discard
	}
	return progressbar.DefaultBytes(info.Size(), "uploading")
}
