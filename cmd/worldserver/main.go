package main

import (
	"context"
	"errors"
	"log" //nolint:depguard // non-o11y log is allowed for a top-level fatal
	"time"

	"github.com/alecthomas/kong"

	"github.com/benchbase/worldgate/api"
	"github.com/benchbase/worldgate/config/o11y"
	"github.com/benchbase/worldgate/config/secret"
	"github.com/benchbase/worldgate/db"
	"github.com/benchbase/worldgate/httpserver"
	"github.com/benchbase/worldgate/httpserver/healthcheck"
	o11yapi "github.com/benchbase/worldgate/o11y"
	"github.com/benchbase/worldgate/rundef"
	"github.com/benchbase/worldgate/system"
	"github.com/benchbase/worldgate/termination"
	"github.com/benchbase/worldgate/world"
)

// Set at link time.
var (
	Version = "dev"
	Date    = "unknown"
)

type cli struct {
	ShutdownDelay time.Duration `env:"SHUTDOWN_DELAY" default:"5s" help:"Delay shutdown by this amount" hidden:""`
	APIAddr       string        `env:"API_ADDR" default:":8080" help:"The address for the API to listen on"`
	AdminAddr     string        `env:"ADMIN_ADDR" default:":8081" help:"The address for the admin api to listen on"`
	MemLimitRatio float64       `env:"MEM_LIMIT_RATIO" default:"0.9" help:"Share of the container memory to use as GOMEMLIMIT"`

	O11yStatsd       string `name:"o11y-statsd" env:"O11Y_STATSD" help:"Address to send statsd metrics, metrics are dropped when empty"`
	O11yOTLPEndpoint string `name:"o11y-otlp-endpoint" env:"O11Y_OTLP_ENDPOINT" help:"host:port of an OTLP/HTTP trace collector"`
	O11yOTLPInsecure bool   `name:"o11y-otlp-insecure" env:"O11Y_OTLP_INSECURE" help:"Send traces to the collector over plain http"`
	O11yDataset      string `name:"o11y-dataset" env:"O11Y_DATASET" default:"worldgate"`
	O11yDisableText  bool   `name:"o11y-disable-text" env:"O11Y_DISABLE_TEXT" help:"Do not write spans to stdout when a collector is configured"`

	DBHost     string        `env:"DB_HOST" default:"localhost"`
	DBPort     int           `env:"DB_PORT" default:"5432"`
	DBUser     string        `env:"DB_USER" default:"benchmarkdbuser"`
	DBPassword secret.String `env:"DB_PASSWORD"`
	DBName     string        `env:"DB_NAME" default:"hello_world"`
	DBSSL      bool          `env:"DB_SSL" name:"db-ssl"`
	DBPoolSize int           `env:"DB_POOL_SIZE" default:"64" help:"Maximum open database connections"`
	DBDriver   string        `env:"DB_DRIVER" enum:"pgx,sql" default:"pgx" help:"Database driver, pgxpool or database/sql"`
}

func main() {
	err := run()
	if err != nil && !errors.Is(err, termination.ErrTerminated) {
		log.Fatal("Unexpected Error: ", err)
	}
	log.Println("exited 0")
}

func run() (err error) {
	cli := cli{}
	kong.Parse(&cli)

	ctx, o11yCleanup, err := o11y.Setup(context.Background(), o11yConfig(cli))
	if err != nil {
		return err
	}
	defer o11yCleanup(ctx)

	ctx, runSpan := o11yapi.StartSpan(ctx, "main: run")
	defer o11yapi.End(runSpan, &err)

	o11yapi.Log(ctx, "starting worldserver",
		o11yapi.Field("version", Version),
		o11yapi.Field("date", Date),
	)

	if err := rundef.Apply(ctx, rundef.Config{MemRatio: cli.MemLimitRatio}); err != nil {
		o11yapi.LogError(ctx, "main: runtime defaults not applied", err)
	}

	sys := system.New()
	defer sys.Cleanup(ctx)

	err = loadAPI(ctx, cli, sys)
	if err != nil {
		return err
	}

	// Should be last so it collects all the health checks
	_, err = healthcheck.Load(ctx, cli.AdminAddr, sys)
	if err != nil {
		return err
	}

	return sys.Run(ctx, cli.ShutdownDelay)
}

func o11yConfig(cli cli) o11y.Config {
	return o11y.Config{
		HTTPEndpoint:   cli.O11yOTLPEndpoint,
		HTTPInsecure:   cli.O11yOTLPInsecure,
		Dataset:        cli.O11yDataset,
		DisableText:    cli.O11yDisableText,
		Statsd:         cli.O11yStatsd,
		StatsNamespace: "worldgate.",
		Version:        Version,
		Service:        "worldgate",
		Mode:           "api",
	}
}

func dbConfig(cli cli) db.Config {
	return db.Config{
		Host:     cli.DBHost,
		Port:     cli.DBPort,
		User:     cli.DBUser,
		Pass:     cli.DBPassword,
		Name:     cli.DBName,
		SSL:      cli.DBSSL,
		MaxConns: cli.DBPoolSize,
	}
}

func loadAPI(ctx context.Context, cli cli, sys *system.System) error {
	exec, err := db.Load(ctx, "world", "worldgate", cli.DBDriver, dbConfig(cli), sys)
	if err != nil {
		return err
	}

	a := api.New(ctx, api.Options{
		Store: world.New(exec),
	})

	_, err = httpserver.Load(ctx, httpserver.Config{
		Name:    "api",
		Addr:    cli.APIAddr,
		Handler: a.Handler(),
	}, sys)
	return err
}
