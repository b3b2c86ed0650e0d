package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openrecap/recapd/internal/delegate"
	"github.com/openrecap/recapd/internal/fetch"
	"github.com/openrecap/recapd/internal/page"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <url>",
		Short: "Fetch a page and report its classification offline",
		Long: `Retrieves a single page, classifies it, extracts its identifiers, and
prints the result as JSON. No archive calls are made and nothing is
uploaded; this is a read-only diagnostic.`,
		Args: cobra.ExactArgs(1),
		RunE: runInspect,
	}
}

type inspectReport struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status_code"`
	Kind       string `json:"kind"`
	Court      string `json:"court,omitempty"`
	CaseID     string `json:"case_id,omitempty"`
	DocID      string `json:"doc_id,omitempty"`
	Restricted bool   `json:"restricted"`
	LinkCount  int    `json:"link_count"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fetcher := fetch.New(fetch.Config{
		UserAgent: cfg.Fetch.UserAgent,
		Timeout:   cfg.Fetch.Timeout(),
	})
	result, err := fetcher.FetchPage(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("fetch page: %w", err)
	}

	// Classification only: no archive, no session, no tab state.
	d, err := delegate.New(cmd.Context(), delegate.Params{
		URL:  result.URL,
		HTML: string(result.Body),
	}, delegate.Ports{})
	if err != nil {
		return fmt.Errorf("classify page: %w", err)
	}

	doc, err := page.Parse(string(result.Body))
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}

	report := inspectReport{
		URL:        result.URL,
		StatusCode: result.StatusCode,
		Kind:       string(d.Kind()),
		Court:      d.Court(),
		CaseID:     d.CaseID(),
		DocID:      d.DocID(),
		Restricted: d.Restricted(),
		LinkCount:  len(doc.Links()),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
