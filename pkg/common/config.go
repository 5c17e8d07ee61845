package common

import (
	"fmt"
	"net"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"github.com/goph/emperror"
	"github.com/je4/dataingest/pkg/ingest"
	"github.com/je4/dataingest/pkg/source"
)

type Endpoint struct {
	Host string
	Port int
}

func (e *Endpoint) UnmarshalText(text []byte) error {
	var err error
	var port string
	e.Host, port, err = net.SplitHostPort(string(text))
	if err != nil {
		return emperror.Wrapf(err, "invalid endpoint %s", string(text))
	}
	longPort, err := strconv.ParseInt(port, 10, 64)
	if err != nil {
		return emperror.Wrapf(err, "cannot parse port %s of %s", port, string(text))
	}
	e.Port = int(longPort)
	return nil
}

func (e *Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

type Forward struct {
	Local  *Endpoint
	Remote *Endpoint
}

type SSHTunnel struct {
	User       string             `toml:"user"`
	PrivateKey string             `toml:"privatekey"`
	Endpoint   *Endpoint          `toml:"endpoint"`
	Forward    map[string]Forward `toml:"forward"`
}

type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

type DBConfig struct {
	URL            string   `toml:"url"`
	ConnMaxTimeout Duration `toml:"connmaxtimeout"`
}

type CSVConfig struct {
	Delimiter  string `toml:"delimiter"`
	Comment    string `toml:"comment"`
	Encoding   string `toml:"encoding"`
	LazyQuotes bool   `toml:"lazyquotes"`
	InferTypes bool   `toml:"infertypes"`
}

// main config structure for toml file
type IngestConfig struct {
	Logfile   string               `toml:"logfile"`
	Loglevel  string               `toml:"loglevel"`
	Logformat string               `toml:"logformat"`
	Ledger    string               `toml:"ledger"` // folder of the ingestion ledger, empty disables it
	Checksum  []string             `toml:"checksum"`
	DB        DBConfig             `toml:"db"`
	CSV       CSVConfig            `toml:"csv"`
	S3        source.S3Config      `toml:"s3"`
	Tunnel    map[string]SSHTunnel `toml:"tunnel"`
}

func DefaultIngestConfig() *IngestConfig {
	return &IngestConfig{
		Loglevel:  "INFO",
		Logformat: DefaultLogFormat,
		Checksum:  []string{"sha256"},
		CSV: CSVConfig{
			Delimiter:  ",",
			Encoding:   "utf-8",
			InferTypes: true,
		},
	}
}

func LoadIngestConfig(fp string, conf *IngestConfig) error {
	_, err := toml.DecodeFile(fp, conf)
	if err != nil {
		return emperror.Wrapf(err, "error loading config file %v", fp)
	}
	return nil
}

// singleRune accepts an empty string or exactly one character
func singleRune(name, s string) (rune, error) {
	if s == "" {
		return 0, nil
	}
	if s == `\t` {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size != len(s) {
		return 0, fmt.Errorf("%s must be a single character, not %q", name, s)
	}
	return r, nil
}

// CSVOptions converts the csv section into reader options
func (conf *IngestConfig) CSVOptions() (ingest.CSVOptions, error) {
	opts := ingest.DefaultCSVOptions()
	delimiter, err := singleRune("delimiter", conf.CSV.Delimiter)
	if err != nil {
		return opts, err
	}
	if delimiter != 0 {
		opts.Delimiter = delimiter
	}
	if opts.Comment, err = singleRune("comment", conf.CSV.Comment); err != nil {
		return opts, err
	}
	if conf.CSV.Encoding != "" {
		opts.Encoding = conf.CSV.Encoding
	}
	opts.LazyQuotes = conf.CSV.LazyQuotes
	opts.InferTypes = conf.CSV.InferTypes
	opts.Checksums = conf.Checksum
	opts.S3 = &conf.S3
	return opts, nil
}

func (conf *IngestConfig) JSONOptions() ingest.JSONOptions {
	return ingest.JSONOptions{
		Checksums: conf.Checksum,
		S3:        &conf.S3,
	}
}
