package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/goph/emperror"
	"github.com/je4/dataingest/pkg/checksum"
	"github.com/je4/dataingest/pkg/common"
	"github.com/je4/dataingest/pkg/ingest"
	"github.com/je4/dataingest/pkg/ledger"
	"github.com/je4/dataingest/pkg/source"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"github.com/op/go-logging"
	flag "github.com/spf13/pflag"
	_ "modernc.org/sqlite"
)

func main() {
	os.Exit(run())
}

func run() int {
	var action = flag.String("action", "csv", "query|csv|json|status")
	var configfile = flag.String("cfg", "", "configuration file")
	var dbURL = flag.String("db", "", "database url (mysql://, postgresql://, sqlite:///)")
	var query = flag.String("query", "", "sql query for action query")
	var delimiter = flag.String("delimiter", ",", "csv field delimiter")
	var encoding = flag.String("encoding", "utf-8", "csv text encoding")
	var checksums = flag.StringArray("checksum", []string{"sha256"}, "checksum algorithms to use (md5|sha1|sha256|sha512|sha3-256|sha3-384|sha3-512)")
	var ledgerDir = flag.String("ledger", "", "folder of the ingestion ledger")
	var limit = flag.Int("limit", 10, "number of rows to print, -1 for all")
	var loglevel = flag.String("loglevel", "INFO", "CRITICAL|ERROR|WARNING|NOTICE|INFO|DEBUG")

	flag.Parse()

	var conf = common.DefaultIngestConfig()
	if *configfile != "" {
		if err := common.LoadIngestConfig(*configfile, conf); err != nil {
			log.Printf("cannot load config file: %v", err)
		}
	}

	// set all config values, which could be overridden by flags
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "db":
			conf.DB.URL = *dbURL
		case "delimiter":
			conf.CSV.Delimiter = *delimiter
		case "encoding":
			conf.CSV.Encoding = *encoding
		case "checksum":
			conf.Checksum = *checksums
		case "ledger":
			conf.Ledger = *ledgerDir
		case "loglevel":
			conf.Loglevel = *loglevel
		}
	})

	logger, lf := common.CreateLogger("dataingest", conf.Logfile, conf.Loglevel, conf.Logformat)
	defer lf.Close()

	closeTunnels, err := startTunnels(conf.Tunnel, logger)
	if err != nil {
		logger.Errorf("%v", err)
		return 1
	}
	defer closeTunnels()

	var ldg *ledger.Ledger
	if conf.Ledger != "" {
		ldg, err = ledger.Open(conf.Ledger, logger)
		if err != nil {
			logger.Errorf("cannot open ledger: %v", err)
			return 1
		}
		defer ldg.Close()
	}

	a := &app{
		conf:   conf,
		ledger: ldg,
		limit:  *limit,
		logger: logger,
	}
	ctx := context.Background()
	var failed int
	switch *action {
	case "query":
		failed = a.query(ctx, *query)
	case "csv":
		failed = a.csv(ctx, flag.Args())
	case "json":
		failed = a.json(ctx, flag.Args())
	case "status":
		failed = a.status(ctx, flag.Args())
	default:
		logger.Errorf("unknown action %s", *action)
		failed = 1
	}
	if failed > 0 {
		logger.Errorf("%d ingestion(s) failed", failed)
		return 1
	}
	return 0
}

type app struct {
	conf   *common.IngestConfig
	ledger *ledger.Ledger
	limit  int
	logger *logging.Logger
}

func (a *app) show(location string, table *ingest.Table) {
	fmt.Printf("== %s ==\n", location)
	if err := table.Print(os.Stdout, a.limit); err != nil {
		a.logger.Errorf("cannot print %s: %v", location, err)
	}
	fmt.Println()
}

func (a *app) record(kind, location string, table *ingest.Table) {
	if a.ledger == nil {
		return
	}
	if err := a.ledger.Record(newEntry(kind, location, table)); err != nil {
		a.logger.Errorf("%v", err)
	}
}

func (a *app) query(ctx context.Context, query string) int {
	if a.conf.DB.URL == "" || query == "" {
		a.logger.Errorf("action query needs --db and --query")
		return 1
	}
	var opts []ingest.EngineOption
	if a.conf.DB.ConnMaxTimeout.Duration > 0 {
		opts = append(opts, ingest.WithConnMaxLifetime(a.conf.DB.ConnMaxTimeout.Duration))
	}
	engine, err := ingest.NewEngine(ctx, a.conf.DB.URL, a.logger, opts...)
	if err != nil {
		return 1
	}
	defer engine.Close()

	table, err := engine.Query(ctx, query)
	if err != nil {
		return 1
	}
	location := fmt.Sprintf("%s#%s", engine, strings.Join(strings.Fields(query), " "))
	a.show(location, table)
	a.record("query", location, table)
	return 0
}

func (a *app) csv(ctx context.Context, locations []string) int {
	opts, err := a.conf.CSVOptions()
	if err != nil {
		a.logger.Errorf("invalid csv configuration: %v", err)
		return 1
	}
	files, err := expandLocations(locations, ".csv")
	if err != nil {
		a.logger.Errorf("%v", err)
		return 1
	}
	if len(files) == 0 {
		a.logger.Warningf("no csv files given")
	}
	var failed int
	for _, loc := range files {
		table, err := ingest.IngestCSV(ctx, loc, opts, a.logger)
		if err != nil {
			failed++
			continue
		}
		a.show(loc, table)
		a.record("csv", loc, table)
	}
	return failed
}

func (a *app) json(ctx context.Context, locations []string) int {
	files, err := expandLocations(locations, ".json")
	if err != nil {
		a.logger.Errorf("%v", err)
		return 1
	}
	var failed int
	for _, loc := range files {
		table, err := ingest.IngestJSON(ctx, loc, a.conf.JSONOptions(), a.logger)
		if err != nil {
			failed++
			continue
		}
		a.show(loc, table)
		a.record("json", loc, table)
	}
	return failed
}

// status compares the current checksums of the files with the last ingestion
func (a *app) status(ctx context.Context, locations []string) int {
	if a.ledger == nil {
		a.logger.Errorf("action status needs a ledger")
		return 1
	}
	files, err := expandLocations(locations, ".csv", ".json")
	if err != nil {
		a.logger.Errorf("%v", err)
		return 1
	}
	var failed int
	for _, loc := range files {
		state, types, err := a.fileStatus(ctx, loc)
		if err != nil {
			a.logger.Errorf("%v", err)
			failed++
			continue
		}
		fmt.Printf("%-10s %s [%s]\n", state, loc, strings.Join(types, ","))
	}
	return failed
}

// fileStatus returns the state of loc and the checksum types compared
func (a *app) fileStatus(ctx context.Context, loc string) (string, []string, error) {
	last, err := a.ledger.Last(loc)
	if err != nil {
		return "", nil, err
	}
	res, err := source.Open(ctx, loc, &a.conf.S3)
	if err != nil {
		if source.IsNotExist(err) && last != nil {
			return stateMissing, nil, nil
		}
		return "", nil, err
	}
	defer res.Close()
	sums, err := checksum.Sum(res, a.conf.Checksum)
	if err != nil {
		return "", nil, emperror.Wrapf(err, "cannot read %s", loc)
	}
	state := compareEntry(last, sums.Sums())
	if state == stateChanged {
		a.logger.Infof("%s changed since %s (%s -> %s)", loc, last.Time.Format("2006-01-02 15:04:05"),
			humanize.Bytes(uint64(last.Size)), humanize.Bytes(uint64(sums.Size())))
	}
	return state, sums.Types(), nil
}
