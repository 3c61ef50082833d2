package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"bankrecon/internal/config"
	"bankrecon/internal/core"
	"bankrecon/internal/extract"
	"bankrecon/internal/log"
	"bankrecon/internal/services"
	"bankrecon/internal/storage"
)

const AppName = "statement"
const AppDesc = "Offline tools for bank statements: extract rows from a PDF, print transaction signatures and check a CSV against the local ledger."

type runtime struct {
	banks  config.Banks
	logger *log.Logger
	out    io.Writer
}

var cli struct {
	BanksConfig string `env:"BANKS_CONFIG" help:"${env} - YAML file with statement layouts. Built-in ICICI and HDFC layouts when empty"`
	LogLevel    string `env:"LOG_LEVEL" help:"${env} - debug, info, warn or error" default:"warn"`

	Extract   extractCmd   `cmd:"" help:"Extract transactions from a statement PDF."`
	Signature signatureCmd `cmd:"" help:"Print the identity of a transaction."`
	Status    statusCmd    `cmd:"" help:"Classify the dates of a CSV batch against the SQLite ledger."`
}

type extractCmd struct {
	File     string `arg:"" type:"existingfile" help:"Statement PDF."`
	Password string `env:"STATEMENT_PASSWORD" help:"${env} - PDF password"`
	Format   string `enum:"csv,json" default:"csv" help:"Output format (csv or json)."`
	Output   string `short:"o" help:"Write to this file instead of stdout."`
}

func (c *extractCmd) Run(rt *runtime) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	st, err := extract.New(rt.banks).Extract(context.Background(), data, c.Password)
	if err != nil {
		return err
	}
	rt.logger.Info("Statement extracted", log.FieldBank, st.Bank, log.FieldRows, len(st.Transactions))

	out := rt.out
	if c.Output != "" {
		f, err := os.Create(c.Output)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	if c.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	return extract.WriteCSV(out, st.Transactions)
}

type signatureCmd struct {
	Date        string `required:"" help:"Transaction date as printed on the statement."`
	Description string `required:"" help:"Transaction description."`
	Withdrawal  string `help:"Withdrawal amount."`
	Deposit     string `help:"Deposit amount."`
}

func (c *signatureCmd) Run(rt *runtime) error {
	sig := core.SignatureOf(core.RawTransaction{
		Date:        c.Date,
		Description: c.Description,
		Withdrawal:  c.Withdrawal,
		Deposit:     c.Deposit,
	})
	fmt.Fprintf(rt.out, "legacy\t%s\nkey\t%s\nhash\t%s\n", sig.String(), sig.Key(), sig.Hash())
	return nil
}

type statusCmd struct {
	File string `arg:"" type:"existingfile" help:"CSV written by 'statement extract' or exported from a ledger worksheet."`
	Bank string `help:"Bank the rows belong to. Defaults to the default layout."`
	DB   string `env:"SQLITE_DB_PATH" default:"./data/bankrecon.db" help:"${env} - SQLite ledger"`
}

func (c *statusCmd) Run(rt *runtime) error {
	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer f.Close()
	txs, err := extract.ReadCSV(f)
	if err != nil {
		return err
	}

	bank := core.BankID(c.Bank).Normalize()
	if bank == "" {
		def, ok := rt.banks.Default()
		if !ok {
			return core.ErrUnknownBank
		}
		bank = core.BankID(def.Name).Normalize()
	} else if _, ok := rt.banks.Find(bank); !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownBank, c.Bank)
	}

	repo, err := storage.NewSQLiteRepository(c.DB)
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	res, err := services.NewReconciler(repo, nil).Check(ctx, bank, txs)
	if err != nil {
		return err
	}

	order, groups := services.GroupByDate(txs)
	for _, date := range order {
		fmt.Fprintf(rt.out, "%s\t%s\t%d\n", date, res.Dates[date], len(groups[date]))
	}
	return nil
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name(AppName),
		kong.Description(AppDesc),
		kong.UsageOnError(),
	)

	lc := log.DefaultConfig()
	lc.Component = AppName
	lc.Level = log.ParseLevel(cli.LogLevel)
	lc.Output = os.Stderr
	logger := log.New(lc)

	banks, err := config.LoadBanks(cli.BanksConfig)
	kctx.FatalIfErrorf(err)

	err = kctx.Run(&runtime{banks: banks, logger: logger, out: os.Stdout})
	kctx.FatalIfErrorf(err)
}
