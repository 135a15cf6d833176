package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"planpal-backend/internal/config"
	"planpal-backend/internal/models"
	"planpal-backend/internal/planpal"
)

func main() {
	clientCfg := config.LoadClient()

	baseURL := flag.String("base-url", clientCfg.BaseURL, "PlanPal server base URL")
	raw := flag.Bool("raw", false, "Print the raw JSON response")
	timeout := flag.Duration("timeout", clientCfg.HTTPTimeout, "HTTP timeout, 0 for none")
	debug := flag.BoolP("debug", "d", false, "Enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: planpal [flags] <prompt...>\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	log.SetOutput(os.Stderr)
	if *debug {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.WarnLevel)
	}

	prompt := strings.Join(flag.Args(), " ")
	clientCfg.BaseURL = *baseURL
	clientCfg.HTTPTimeout = *timeout

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, planpal.NewClient(clientCfg), prompt, *raw, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func run(ctx context.Context, client *planpal.Client, prompt string, raw bool, out io.Writer) error {
	log.WithField("base_url", client.BaseURL()).Debug("sending plan-day request")

	if raw {
		data, err := client.PlanDay(ctx, prompt)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}

	res, err := client.PlanDayResult(ctx, prompt)
	if err != nil {
		return err
	}
	printCreated(out, res)
	return nil
}

func printCreated(out io.Writer, res *models.PlanDayResponse) {
	if len(res.Created) == 0 {
		fmt.Fprintln(out, "No tasks created.")
		return
	}

	if res.Plan != nil && res.Plan.Date != "" {
		fmt.Fprintf(out, "Plan for %s\n", res.Plan.Date)
	}
	for _, item := range res.Created {
		fmt.Fprintf(out, "  %s  %s (reminder %s, %d min before)\n",
			item.DueAt.Format("15:04"),
			item.Title,
			item.RemindAt.Format("15:04"),
			item.RemindMinutesBefore,
		)
	}
}
