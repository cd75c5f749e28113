package commands

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/sheetrollup/sheetrollup/config"
	"github.com/sheetrollup/sheetrollup/rollup"
	"github.com/sheetrollup/sheetrollup/sheet"
)

var RunCmd = Run{
	credentials: "",
	seenset:     "",
	store:       "",
	dryrun:      false,
	debug:       false,
}

type Run struct {
	credentials string
	seenset     string
	store       string
	dryrun      bool
	debug       bool
}

func (cmd *Run) Name() string {
	return "run"
}

func (cmd *Run) Description() string {
	return "Executes a single consolidation pass over the source sheets listed in the master list"
}

func (cmd *Run) Usage() string {
	return "[--credentials <file>] [--seen-set <file>] [--dryrun]"
}

func (cmd *Run) Help() {
	fmt.Println()
	fmt.Printf("  Usage: %s [--debug] [--config <file>] run [options]\n", APP)
	fmt.Println()
	fmt.Println("  Fetches the rows from every source sheet listed in the master list, discards rows")
	fmt.Println("  consolidated in a previous run and appends the remainder to the target worksheet")
	fmt.Println()

	helpOptions(cmd.FlagSet())

	fmt.Println()
	fmt.Println("  Examples:")
	fmt.Println(`    sheetrollup --config "sheetrollup.yaml" run`)
	fmt.Println(`    sheetrollup run --credentials "service-account.json" --seen-set "seenset.json" --dryrun`)
	fmt.Println()
}

func (cmd *Run) FlagSet() *flag.FlagSet {
	return cmd.flags(flag.NewFlagSet("run", flag.ExitOnError))
}

func (cmd *Run) flags(flagset *flag.FlagSet) *flag.FlagSet {
	flagset.StringVar(&cmd.credentials, "credentials", cmd.credentials, "Path for the Google service account key file")
	flagset.StringVar(&cmd.seenset, "seen-set", cmd.seenset, "Path for the persisted fingerprint set")
	flagset.StringVar(&cmd.store, "store", cmd.store, "Seen-set backing medium ('file' or 'sqlite')")
	flagset.BoolVar(&cmd.dryrun, "dryrun", cmd.dryrun, "Simulates a consolidation pass without writing to the target sheet or the seen-set")

	return flagset
}

func (cmd *Run) Execute(ctx context.Context, options *Options) error {
	cmd.debug = options.Debug

	cfg, err := cmd.configure(options)
	if err != nil {
		return err
	}

	return cmd.run(ctx, cfg)
}

func (cmd *Run) configure(options *Options) (config.Config, error) {
	cfg, err := config.Load(options.Config)
	if err != nil {
		return cfg, err
	}

	if strings.TrimSpace(cmd.credentials) != "" {
		cfg.Credentials = cmd.credentials
	}

	if strings.TrimSpace(cmd.seenset) != "" {
		cfg.SeenSet = cmd.seenset
	}

	if strings.TrimSpace(cmd.store) != "" {
		cfg.Store = cmd.store
	}

	if strings.TrimSpace(cfg.Credentials) == "" {
		cfg.Credentials = DEFAULT_CREDENTIALS
	}

	if strings.TrimSpace(cfg.SeenSet) == "" {
		cfg.SeenSet = DEFAULT_SEENSET
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func (cmd *Run) run(ctx context.Context, cfg config.Config) error {
	if cmd.debug {
		debugf("master - ID:%s  tab:%s  target - ID:%s  tab:%s", cfg.MasterSpreadsheet, cfg.MasterTab, cfg.TargetSpreadsheet, cfg.TargetTab)
	}

	google, gdrive, err := newServices(ctx, cfg.Credentials, cfg.RevisionCheck)
	if err != nil {
		return err
	}

	release, err := rollup.Lock(cfg.SeenSet + ".lock")
	if err != nil {
		return err
	}

	defer release()

	store, closer, err := newStore(cfg)
	if err != nil {
		return err
	}

	defer closer()

	master := sheet.Master{
		SpreadsheetID: cfg.MasterSpreadsheet,
		Tab:           cfg.MasterTab,
		CompanyHeader: cfg.CompanyHeader,
		URLHeader:     cfg.URLHeader,
	}

	consolidator := rollup.Consolidator{
		Sources:         sheet.NewSources(google, gdrive, master, cfg.ReadBounds),
		Target:          sheet.NewTarget(google, cfg.TargetSpreadsheet, cfg.TargetTab),
		Store:           store,
		BatchSize:       cfg.BatchSize,
		CompanyColumn:   cfg.CompanyColumn,
		RevisionCheck:   cfg.RevisionCheck,
		IdentityColumns: cfg.IdentityColumns,
		DryRun:          cmd.dryrun,
	}

	results, err := consolidator.Run(ctx)

	summarise(results)

	return err
}

func newStore(cfg config.Config) (rollup.Store, func(), error) {
	switch cfg.Store {
	case "sqlite":
		store, err := rollup.OpenSQLite(cfg.SeenSet)
		if err != nil {
			return nil, nil, err
		}

		return store, func() { store.Close() }, nil

	default:
		return rollup.FileStore{Path: cfg.SeenSet}, func() {}, nil
	}
}

func summarise(results []rollup.Result) {
	consolidated := 0
	unchanged := 0
	empty := 0
	skipped := 0
	rows := 0

	for _, result := range results {
		switch result.Status {
		case rollup.Consolidated:
			consolidated++
			rows += result.Rows

		case rollup.Unchanged:
			unchanged++

		case rollup.Empty:
			empty++

		case rollup.Skipped:
			skipped++
		}
	}

	infof("consolidated:%v  unchanged:%v  empty:%v  skipped:%v  new rows:%v", consolidated, unchanged, empty, skipped, rows)
}
