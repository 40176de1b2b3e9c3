package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/bnema/livesync-cli/internal/domain"
	"github.com/spf13/cobra"
)

const inlineRuleName = "inline"

type routedMatch struct {
	Rule     string   `json:"rule"`
	DeviceID string   `json:"device_id"`
	Platform string   `json:"platform,omitempty"`
	Line     string   `json:"line"`
	Groups   []string `json:"groups"`
}

func newLogsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Route device log streams through parse rules",
	}

	cmd.AddCommand(newLogsRouteCmd(app))

	return cmd
}

func newLogsRouteCmd(app *app) *cobra.Command {
	var flags streamFlags
	var pattern string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "route",
		Short: "Print every log line matched by the configured rules",
		Long:  "Reads a device log stream and reports, in rule order, each line matched by a rule from the rules file or by --pattern.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := app.newRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.coordinator.Shutdown()

			definitions, err := app.ruleRepo.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("load rules: %w", err)
			}
			if pattern != "" {
				definitions = append(definitions, domain.RuleDefinition{Name: inlineRuleName, Pattern: pattern})
			}
			if len(definitions) == 0 {
				return fmt.Errorf("no rules configured: add rules to the rules file or pass --pattern")
			}

			printer := newMatchPrinter(cmd.OutOrStdout(), asJSON)
			for _, definition := range definitions {
				if err := rt.coordinator.Logs.AddRule(definition.WithHandler(printer.print)); err != nil {
					return err
				}
			}

			source, release, err := flags.open(cmd, rt)
			if err != nil {
				return err
			}
			defer release()

			if err := source.Run(cmd.Context()); err != nil {
				return err
			}

			rt.log.Debug("log stream routed", "device", flags.deviceID, "matches", printer.count())
			return printer.err
		},
	}

	flags.register(cmd, "")
	cmd.Flags().StringVar(&pattern, "pattern", "", "Extra ad-hoc rule pattern, applied after the rules file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON lines")

	return cmd
}

type matchPrinter struct {
	mu      sync.Mutex
	out     io.Writer
	enc     *json.Encoder
	matches int
	err     error
}

func newMatchPrinter(out io.Writer, asJSON bool) *matchPrinter {
	p := &matchPrinter{out: out}
	if asJSON {
		p.enc = json.NewEncoder(out)
	}
	return p
}

func (p *matchPrinter) print(match domain.RuleMatch) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.matches++
	if p.err != nil {
		return
	}

	if p.enc != nil {
		p.err = p.enc.Encode(routedMatch{
			Rule:     match.Rule,
			DeviceID: match.DeviceID,
			Platform: string(match.Platform),
			Line:     match.Line,
			Groups:   match.Groups,
		})
		return
	}

	fields := append([]string{match.Rule}, match.Groups[1:]...)
	_, p.err = fmt.Fprintln(p.out, strings.Join(fields, "\t"))
}

func (p *matchPrinter) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.matches
}
