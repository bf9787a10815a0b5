// Command agentmesh is a minimal CLI around the orchestration core: it
// loads a config file, wires the full pipeline, and runs a single prompt
// through it. Richer CLIs (chat REPLs, servers) are external collaborators
// built on top of pkg/wiring, not this binary's job.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/agentmesh/orchestrator/pkg/agent"
	"github.com/agentmesh/orchestrator/pkg/logging"
	"github.com/agentmesh/orchestrator/pkg/wiring"
)

// CLI defines the command-line interface.
type CLI struct {
	Run     RunCmd     `cmd:"" help:"Run a single prompt through the orchestrator and print the response."`
	Version VersionCmd `cmd:"" help:"Show version information."`

	Config   string `short:"c" help:"Path to config file." default:"config.yaml" type:"path"`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`
}

// VersionCmd prints a static version string; this binary has no release
// pipeline stamping build info into it.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println("agentmesh dev")
	return nil
}

// RunCmd runs one prompt through the orchestrator pipeline end to end.
type RunCmd struct {
	Prompt            string `required:"" help:"The user prompt to process."`
	RequestID         string `help:"Caller-supplied request id (generated if empty)."`
	MetricsPath       string `help:"Path to persist the metrics snapshot." default:"metrics.json"`
	ClassifierModel   string `help:"Model id used for request analysis and aggregation." default:"gpt-4o-mini"`
	MaxParallelAgents int    `help:"Maximum agents dispatched concurrently per request." default:"3"`
}

func (c *RunCmd) Run(cli *CLI) error {
	logger := logging.New(cli.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn("received shutdown signal, cancelling in-flight request")
		cancel()
	}()

	rt, err := wiring.Build(ctx, wiring.Options{
		ConfigPath:        cli.Config,
		MetricsPath:       c.MetricsPath,
		ClassifierModel:   c.ClassifierModel,
		AggregatorModel:   c.ClassifierModel,
		MaxParallelAgents: c.MaxParallelAgents,
	})
	if err != nil {
		return fmt.Errorf("agentmesh: %w", err)
	}

	resp := rt.Orchestrator.Run(ctx, agent.Request{RequestID: c.RequestID, Prompt: c.Prompt})

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("agentmesh: encoding response: %w", err)
	}
	fmt.Println(string(out))

	if resp.Status == agent.StatusError {
		return fmt.Errorf("agentmesh: request failed: %s", resp.Error)
	}
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("agentmesh"),
		kong.Description("Multi-agent LLM orchestration runtime."),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}
