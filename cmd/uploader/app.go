package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	utils "direct2url/internal"
	"direct2url/internal/apperr"
	"direct2url/internal/batch"
	"direct2url/internal/config"
	"direct2url/internal/signer"
	"direct2url/internal/storage"
	"direct2url/pkg/logger"
)

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "config",
		Aliases:  []string{"c"},
		Usage:    "YAML file with provider credentials",
		Required: true,
		EnvVars:  []string{"UPLOADER_CONFIG"},
	}
}

func providerFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "provider",
		Aliases: []string{"p"},
		Usage:   "Override the active provider (s3, gcp, azure)",
		EnvVars: []string{"UPLOADER_PROVIDER"},
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "uploader",
		Usage:  "Copy files from URLs into object storage through signed URLs",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Upload every URL given as argument or listed in --file",
				ArgsUsage: "[url...]",
				Flags: []cli.Flag{
					configFlag(),
					providerFlag(),
					&cli.StringFlag{
						Name:    "server",
						Aliases: []string{"s"},
						Usage:   "Base URL of a signing server; empty signs in process",
						EnvVars: []string{"UPLOADER_SERVER"},
					},
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "Text file of URLs separated by commas or newlines",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Print the final snapshot as JSON",
					},
				},
				Action: runBatch,
			},
			{
				Name:      "sign",
				Usage:     "Issue one write credential and print it",
				ArgsUsage: "<file-name> <content-type>",
				Flags:     []cli.Flag{configFlag(), providerFlag()},
				Action:    signOne,
			},
			{
				Name:   "check",
				Usage:  "Report whether the active provider is fully configured",
				Flags:  []cli.Flag{configFlag(), providerFlag()},
				Action: checkConfig,
			},
		},
	}
}

func loadStore(c *cli.Context) (*storage.Store, error) {
	store, err := config.LoadProviderFile(c.String("config"))
	if err != nil {
		return nil, err
	}
	if name := c.String("provider"); name != "" {
		p, err := storage.ParseProvider(name)
		if err != nil {
			return nil, err
		}
		if err := store.Select(p); err != nil {
			return nil, err
		}
	}
	return store, nil
}

func runBatch(c *cli.Context) error {
	store, err := loadStore(c)
	if err != nil {
		return err
	}

	urls := batch.ParseURLs(strings.Join(c.Args().Slice(), "\n"))
	if path := c.String("file"); path != "" {
		fromFile, err := batch.ReadURLFile(path)
		if err != nil {
			return err
		}
		urls = append(urls, fromFile...)
	}

	var issuer batch.Issuer = signer.NewBroker()
	if server := c.String("server"); server != "" {
		issuer = batch.NewClient(server, nil)
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()
	go func() {
		select {
		case <-utils.QuitChan:
			logger.Log.Warn().Msg("Interrupted, failing the item in flight 🛑")
			cancel()
		case <-ctx.Done():
		}
	}()
	utils.NotifyQuit()

	out := c.App.Writer
	printer := newProgressPrinter(out)
	o := batch.New(issuer, batch.WithObserver(printer.observe))

	if err := o.RunBatch(ctx, store.Active(), urls); err != nil {
		return err
	}

	snap := o.Snapshot()
	if c.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return err
		}
	} else {
		printSummary(out, snap)
	}

	if _, failed := snap.Counts(); failed > 0 {
		return fmt.Errorf("%d of %d uploads failed", failed, len(snap.Items))
	}
	return nil
}

func signOne(c *cli.Context) error {
	if c.NArg() != 2 {
		return errors.New("usage: uploader sign <file-name> <content-type>")
	}
	store, err := loadStore(c)
	if err != nil {
		return err
	}

	cred, err := signer.NewBroker().IssueWriteCredential(c.Context, c.Args().Get(0), c.Args().Get(1), store.Active())
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintf(out, "object:  %s\n", cred.ObjectName)
	fmt.Fprintf(out, "expires: %s\n", cred.ExpiresAt.UTC().Format(time.RFC3339))
	for _, k := range sortedKeys(cred.Headers) {
		fmt.Fprintf(out, "header:  %s: %s\n", k, cred.Headers[k])
	}
	fmt.Fprintln(out, cred.URL)
	return nil
}

func checkConfig(c *cli.Context) error {
	store, err := loadStore(c)
	if err != nil {
		return err
	}

	active := store.Active()
	if err := storage.Validate(active); err != nil {
		var e *apperr.Error
		if errors.As(err, &e) {
			return errors.New(e.Message)
		}
		return err
	}
	fmt.Fprintf(c.App.Writer, "%s is configured\n", active.Provider())
	return nil
}
