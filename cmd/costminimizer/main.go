package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aws-samples/sample-costminimizer-sub000/pkg/adapters"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/domain"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/models/store"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/checks/catalog"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/config"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/delivery"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/engine"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/executor"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/metrics"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/provider"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/provider/awsconf"
	providerce "github.com/aws-samples/sample-costminimizer-sub000/pkg/services/provider/ce"
	providerco "github.com/aws-samples/sample-costminimizer-sub000/pkg/services/provider/co"
	providercur "github.com/aws-samples/sample-costminimizer-sub000/pkg/services/provider/cur"
	providerta "github.com/aws-samples/sample-costminimizer-sub000/pkg/services/provider/ta"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/regions"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/registry"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/services/workbook"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/store/cache"
	"github.com/aws-samples/sample-costminimizer-sub000/pkg/store/conf"
)

var version = "0.1.0"

type cliFlags struct {
	listChecks bool
	ce         bool
	co         bool
	ta         bool
	cur        bool

	wizard     bool
	exportConf bool
	importConf bool
	files      []string
	question   string
	asSQL      bool
	recommend  bool

	email          string
	checks         []string
	region         string
	curDB          string
	curTable       string
	lsConf         bool
	autoUpdateConf bool
	showVersion    bool

	settingsPath string
}

func main() {
	flags := &cliFlags{}

	rootCmd := &cobra.Command{
		Use:           "costminimizer",
		Short:         "Run cost-saving checks against your cloud account and collect the findings in a workbook",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), flags)
		},
	}

	rootCmd.Flags().BoolVarP(&flags.listChecks, "available", "a", false, "list all discovered checks and exit")
	rootCmd.Flags().BoolVarP(&flags.ce, "cost-explorer", "e", false, "enable the cost-history provider")
	rootCmd.Flags().BoolVarP(&flags.co, "compute-optimizer", "o", false, "enable the rightsizing provider (needs a region)")
	rootCmd.Flags().BoolVarP(&flags.ta, "trusted-advisor", "t", false, "enable the advisor provider")
	rootCmd.Flags().BoolVarP(&flags.cur, "cur", "u", false, "enable the warehouse provider")
	rootCmd.Flags().BoolVarP(&flags.wizard, "configure", "g", false, "launch the configuration wizard")
	rootCmd.Flags().BoolVarP(&flags.exportConf, "export-conf", "p", false, "export the stored configuration")
	rootCmd.Flags().BoolVarP(&flags.importConf, "import-conf", "i", false, "import a configuration file")
	rootCmd.Flags().StringSliceVarP(&flags.files, "files", "f", nil, "attach files to the question")
	rootCmd.Flags().StringVarP(&flags.question, "question", "q", "", "ask a natural-language question about the results")
	rootCmd.Flags().BoolVarP(&flags.asSQL, "sql", "l", false, "interpret the question as SQL")
	rootCmd.Flags().BoolVarP(&flags.recommend, "recommend", "r", false, "request recommendation generation")
	rootCmd.Flags().StringVarP(&flags.email, "send-to", "s", "", "deliver the workbook to this e-mail address")
	rootCmd.Flags().StringSliceVar(&flags.checks, "checks", nil, "check identifiers to run; ALL selects everything")
	rootCmd.Flags().StringVar(&flags.region, "region", "", "region override for rightsizing")
	rootCmd.Flags().StringVar(&flags.curDB, "cur-db", "", "warehouse database override")
	rootCmd.Flags().StringVar(&flags.curTable, "cur-table", "", "warehouse table override")
	rootCmd.Flags().BoolVar(&flags.lsConf, "ls-conf", false, "print the stored configuration and exit")
	rootCmd.Flags().BoolVar(&flags.autoUpdateConf, "auto-update-conf", false, "refresh the stored check menu and exit")
	rootCmd.Flags().BoolVarP(&flags.showVersion, "version", "v", false, "print version and exit")
	rootCmd.Flags().StringVar(&flags.settingsPath, "settings", "", "path to the bootstrap settings file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// externalNotice names the workflows handled by companion tooling.
var externalNotice = map[string]func(*cliFlags) bool{
	"configuration wizard":      func(f *cliFlags) bool { return f.wizard },
	"configuration export":      func(f *cliFlags) bool { return f.exportConf },
	"configuration import":      func(f *cliFlags) bool { return f.importConf },
	"question answering":        func(f *cliFlags) bool { return f.question != "" || len(f.files) > 0 || f.asSQL },
	"recommendation generation": func(f *cliFlags) bool { return f.recommend },
}

func run(ctx context.Context, flags *cliFlags) error {
	if flags.showVersion {
		fmt.Printf("costminimizer %s\n", version)
		return nil
	}

	for name, wants := range externalNotice {
		if wants(flags) {
			fmt.Printf("The %s is handled by the companion tooling and is not available in this build.\n", name)
			return nil
		}
	}

	settings, err := config.Load(flags.settingsPath)
	if err != nil {
		return err
	}

	logger, logPath := newLogger(settings.LogLevel)
	ctx = logger.WithContext(ctx)

	reg := registry.New(catalog.Default())

	if flags.listChecks {
		return listChecks(ctx, reg)
	}

	confStore, err := openStore(settings)
	if err != nil {
		return err
	}
	defer confStore.Close()

	cfg, err := confStore.View(ctx)
	if err != nil {
		return err
	}
	applyOverrides(&cfg, settings, flags)

	if flags.lsConf {
		printConfig(cfg)
		return nil
	}

	available, err := reg.Discover(ctx)
	if err != nil {
		return err
	}
	if err := recordAvailable(ctx, confStore, available); err != nil {
		logger.Warn().Err(err).Msg("failed to refresh the stored check menu")
	}
	if flags.autoUpdateConf {
		fmt.Println("Stored check menu refreshed.")
		return nil
	}

	if !flags.ce && !flags.co && !flags.ta && !flags.cur {
		return fmt.Errorf("no provider selected; pass at least one of -e, -o, -t, -u")
	}

	if len(flags.checks) == 0 {
		providers := engine.Flags{CE: flags.ce, CO: flags.co, TA: flags.ta, CUR: flags.cur}.Providers()
		picked, err := registry.NewPicker(os.Stdin, os.Stdout).Pick(available, providers)
		if err != nil {
			return err
		}
		flags.checks = picked
	}

	if cfg.AccountID == "" {
		accountID, err := resolveAccountID(ctx, cfg.Profile)
		if err != nil {
			return fmt.Errorf("account id is not configured and caller identity lookup failed: %w", err)
		}
		logger.Info().Str("account", accountID).Msg("resolved account id from caller identity")
		cfg.AccountID = accountID
	}

	regionList, err := resolveRegions(ctx, cfg, flags)
	if err != nil {
		return err
	}

	return execute(ctx, flags, settings, cfg, reg, confStore, regionList, logPath)
}

func execute(
	ctx context.Context,
	flags *cliFlags,
	settings *config.Settings,
	cfg domain.Config,
	reg *registry.Registry,
	confStore *conf.Store,
	regionList []string,
	logPath string,
) error {
	logger := zerolog.Ctx(ctx)
	started := time.Now()

	cacheStore, err := cache.NewStore(settings.CacheDir, cache.WithExpirationDays(cfg.CacheExpirationDays))
	if err != nil {
		return err
	}

	engineFlags := engine.Flags{
		CE:     flags.ce,
		CO:     flags.co,
		TA:     flags.ta,
		CUR:    flags.cur,
		Checks: flags.checks,
		Region: flags.region,
	}

	eng := engine.New(reg, cfg, engineFlags, map[string]engine.AdapterFactory{
		domain.ProviderCE: func(exec *executor.Executor) provider.Adapter {
			return providerce.New(exec, reg.Check, cfg)
		},
		domain.ProviderCO: func(exec *executor.Executor) provider.Adapter {
			return providerco.New(exec, reg.Check, cfg)
		},
		domain.ProviderTA: func(exec *executor.Executor) provider.Adapter {
			return providerta.New(exec, reg.Check, cfg)
		},
		domain.ProviderCUR: func(exec *executor.Executor) provider.Adapter {
			return providercur.New(exec, reg.Check, cfg)
		},
	})
	exec := executor.New(reg, cacheStore, cfg, eng)
	if err := eng.WireExecutor(exec); err != nil {
		return err
	}

	result, err := eng.Execute(ctx, regionList)
	if err != nil {
		return err
	}

	writer := workbook.NewWriter(cfg, workbook.WithRunLog(logPath))
	output, err := writer.Write(ctx, result.Succeeded, workbook.Request{
		Accounts: result.Scope.Accounts,
		Regions:  result.Scope.Regions,
		Checks:   flags.checks,
		Tags:     tagMap(cfg),
	})
	if err != nil {
		return err
	}
	logger.Info().Str("path", output.MasterPath).Msg("workbook written")

	if flags.email != "" || cfg.StagingBucket != "" {
		delivery.New(cfg).Deliver(ctx, flags.email, output.MasterPath)
	}

	finished := time.Now()
	sink := metrics.NewSink(version, cfg)
	record := sink.Build(started, finished, runMode(flags), result.Scope, result.Succeeded)
	if err := sink.Write(output.Dir, record); err != nil {
		logger.Warn().Err(err).Msg("failed to write run metrics")
	}

	if err := confStore.AppendRunHistory(ctx, store.RunHistoryRow{
		RunID:        uuid.NewString(),
		StartedAt:    started,
		FinishedAt:   finished,
		Providers:    runMode(flags),
		CheckCount:   len(result.Succeeded) + len(result.Failed),
		FailedCount:  len(result.Failed),
		TotalSavings: result.GrandTotal(),
	}); err != nil {
		logger.Warn().Err(err).Msg("failed to append run history")
	}

	printSummary(result, output, finished.Sub(started))
	return nil
}

// newLogger tees the run log into a temp file so the workbook writer
// can copy it into the output directory. The path is empty when the
// file cannot be created.
func newLogger(level string) (zerolog.Logger, string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = os.Stderr
	logPath := filepath.Join(os.TempDir(), fmt.Sprintf("costminimizer-%d.log", os.Getpid()))
	if logFile, err := os.Create(logPath); err == nil {
		out = zerolog.MultiLevelWriter(os.Stderr, logFile)
	} else {
		logPath = ""
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), logPath
}

func openStore(settings *config.Settings) (*conf.Store, error) {
	dbPath := settings.DBPath
	if dbPath == "" {
		var err error
		dbPath, err = conf.DefaultPath(settings.InstallationMode())
		if err != nil {
			return nil, err
		}
	}
	return conf.NewStore(conf.Settings{DBPath: dbPath})
}

func applyOverrides(cfg *domain.Config, settings *config.Settings, flags *cliFlags) {
	if settings.Profile != "" {
		cfg.Profile = settings.Profile
	}
	if settings.OutputFolder != "" && cfg.OutputFolder == "" {
		cfg.OutputFolder = settings.OutputFolder
	}
	if flags.curDB != "" {
		cfg.CURDatabase = flags.curDB
	}
	if flags.curTable != "" {
		cfg.CURTable = flags.curTable
	}
	cfg.InstallationMode = settings.InstallationMode()
}

func listChecks(ctx context.Context, reg *registry.Registry) error {
	available, err := reg.Discover(ctx)
	if err != nil {
		return err
	}
	for _, tag := range domain.ProviderOrder {
		descs := available[tag]
		if len(descs) == 0 {
			continue
		}
		fmt.Printf("%s:\n", tag)
		for _, desc := range descs {
			marker := " "
			if desc.Flags.Disabled {
				marker = "-"
			}
			fmt.Printf("  %s %-40s %s\n", marker, desc.Identifier, desc.CommonName)
		}
	}
	return nil
}

func printConfig(cfg domain.Config) {
	fmt.Printf("account:            %s\n", cfg.AccountID)
	fmt.Printf("profile:            %s\n", cfg.Profile)
	fmt.Printf("output folder:      %s\n", cfg.OutputFolder)
	fmt.Printf("installation mode:  %s\n", cfg.InstallationMode)
	fmt.Printf("cur database:       %s\n", cfg.CURDatabase)
	fmt.Printf("cur table:          %s\n", cfg.CURTable)
	fmt.Printf("cur region:         %s\n", cfg.CURRegion)
	fmt.Printf("staging bucket:     %s\n", cfg.StagingBucket)
	fmt.Printf("smtp configured:    %t\n", cfg.SMTP.Configured())
	fmt.Printf("cache expiry days:  %d\n", cfg.CacheExpirationDays)
}

func recordAvailable(ctx context.Context, confStore *conf.Store, available map[string][]domain.CheckDescriptor) error {
	var rows []store.AvailableCheckRow
	for _, tag := range domain.ProviderOrder {
		for _, desc := range available[tag] {
			rows = append(rows, adapters.MapDescriptorToStoreRow(desc))
		}
	}
	return confStore.ReplaceAvailableChecks(ctx, rows)
}

// resolveAccountID falls back to the caller identity when the stored
// configuration has no account id.
func resolveAccountID(ctx context.Context, profile string) (string, error) {
	awsCfg, err := awsconf.LoadConfig(ctx, profile, awsconf.DefaultRegion)
	if err != nil {
		return "", err
	}
	return awsconf.ResolveAccountID(ctx, sts.NewFromConfig(*awsCfg))
}

func resolveRegions(ctx context.Context, cfg domain.Config, flags *cliFlags) ([]string, error) {
	if !flags.co || flags.region != "" {
		selector := regions.NewSelector(nil, os.Stdin, os.Stdout)
		return selector.Effective(ctx, flags.co, flags.region)
	}

	awsCfg, err := awsconf.LoadConfig(ctx, cfg.Profile, awsconf.DefaultRegion)
	if err != nil {
		return nil, domain.AuthError{Provider: domain.ProviderCO, Err: err}
	}
	selector := regions.NewSelector(ec2.NewFromConfig(*awsCfg), os.Stdin, os.Stdout)
	return selector.Effective(ctx, true, "")
}

func tagMap(cfg domain.Config) map[string]string {
	tags := make(map[string]string)
	if cfg.CETagKey != "" {
		tags[cfg.CETagKey] = strings.Join(cfg.CETagValues, ",")
	}
	if cfg.COTagKey != "" {
		tags[cfg.COTagKey] = strings.Join(cfg.COTagValues, ",")
	}
	if len(tags) == 0 {
		return nil
	}
	return tags
}

func runMode(flags *cliFlags) string {
	var tags []string
	if flags.ce {
		tags = append(tags, domain.ProviderCE)
	}
	if flags.co {
		tags = append(tags, domain.ProviderCO)
	}
	if flags.ta {
		tags = append(tags, domain.ProviderTA)
	}
	if flags.cur {
		tags = append(tags, domain.ProviderCUR)
	}
	return strings.Join(tags, ",")
}

func printSummary(result *engine.Result, output *workbook.Output, elapsed time.Duration) {
	fmt.Printf("\n%d check(s) succeeded, %d failed. Estimated monthly savings: $%.2f\n",
		len(result.Succeeded), len(result.Failed), result.GrandTotal())
	for _, run := range result.Failed {
		fmt.Printf("  FAILED %s: %s\n", run.Descriptor.Identifier, shorten(run.FailReason))
	}
	for _, err := range result.SelectionErrors {
		fmt.Printf("  SKIPPED: %v\n", err)
	}
	fmt.Printf("Workbook: %s\n", output.MasterPath)
	fmt.Printf("Completed in %s. Ask follow-up questions with -q once the companion tooling is configured.\n",
		elapsed.Round(time.Second))
}

func shorten(reason string) string {
	const limit = 160
	if len(reason) > limit {
		return reason[:limit] + "..."
	}
	return reason
}
