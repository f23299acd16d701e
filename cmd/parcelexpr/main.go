// Package main is the entry point for the parcelexpr CLI and server.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/parcelui/expression/pkg/anyexpr"
	"github.com/parcelui/expression/pkg/api"
	"github.com/parcelui/expression/pkg/expression"
	"github.com/parcelui/expression/pkg/store"
	"github.com/parcelui/expression/web"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "parcelexpr",
	Short: "Expression parser and evaluator",
}

var evalCmd = &cobra.Command{
	Use:   "eval <expression>",
	Short: "Evaluate an expression and print the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runEval,
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Evaluate expressions interactively",
	RunE:  runRepl,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the expression HTTP API server",
	RunE:  runServe,
}

func init() {
	rootCmd.Version = version + " (commit=" + commit + ", built=" + date + ")"
	rootCmd.SetVersionTemplate("parcelexpr version {{.Version}}\n")

	evalCmd.Flags().String("env", "", "YAML file of constants to evaluate against")
	evalCmd.Flags().Bool("no-optimize", false, "Disable constant folding")
	evalCmd.Flags().Bool("symbols", false, "Print the symbols the expression references")
	evalCmd.Flags().Bool("tree", false, "Print the canonical form instead of evaluating")

	replCmd.Flags().String("env", "", "YAML file of constants to evaluate against")

	serveCmd.Flags().Int("port", 0, "HTTP server port (default 8990, env PORT)")
	serveCmd.Flags().String("host", "", "Bind address (default 0.0.0.0, env HOST)")

	rootCmd.AddCommand(evalCmd, replCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runEval(cmd *cobra.Command, args []string) error {
	constants, err := loadEnv(cmd)
	if err != nil {
		return err
	}

	source := args[0]

	if show, _ := cmd.Flags().GetBool("symbols"); show {
		parsed := expression.Parse(source)
		symbols := make([]string, 0, len(parsed.Symbols()))
		for sym := range parsed.Symbols() {
			symbols = append(symbols, sym.String())
		}
		sort.Strings(symbols)
		for _, s := range symbols {
			fmt.Println(s)
		}
		return parsed.Err()
	}

	if show, _ := cmd.Flags().GetBool("tree"); show {
		parsed := expression.Parse(source)
		fmt.Println(parsed.String())
		return parsed.Err()
	}

	var opts expression.Options
	if no, _ := cmd.Flags().GetBool("no-optimize"); no {
		opts |= expression.DisableOptimization
	}

	result, err := anyexpr.New(source, &anyexpr.Config{
		Options:   opts,
		Constants: constants,
	}).Evaluate()
	if err != nil {
		return err
	}
	fmt.Println(anyexpr.FormatValue(result))
	return nil
}

func runRepl(cmd *cobra.Command, args []string) error {
	constants, err := loadEnv(cmd)
	if err != nil {
		return err
	}

	interactive := isatty.IsTerminal(os.Stdin.Fd()) ||
		isatty.IsCygwinTerminal(os.Stdin.Fd())
	if interactive {
		fmt.Println("parcelexpr " + version + " (empty line or ctrl-d to exit)")
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		if interactive {
			fmt.Print("> ")
		}
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "" {
			if interactive {
				break
			}
			continue
		}

		result, err := anyexpr.New(line, &anyexpr.Config{
			Constants: constants,
		}).Evaluate()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		fmt.Println(anyexpr.FormatValue(result))
	}
	return scanner.Err()
}

func runServe(cmd *cobra.Command, args []string) error {
	port := envOrDefault("PORT", "8990")
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		port = fmt.Sprintf("%d", v)
	}

	host := envOrDefault("HOST", "0.0.0.0")
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		host = v
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	s := store.New()
	server := api.New(s)

	ui := web.New(s)
	ui.Register(server.App())

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down expression server...")
		if err := server.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	log.Printf("Expression server listening on %s", addr)
	return server.Listen(addr)
}

// loadEnv reads the --env YAML file of constants, if given.
func loadEnv(cmd *cobra.Command) (map[string]any, error) {
	path, _ := cmd.Flags().GetString("env")
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading env file: %w", err)
	}

	constants := make(map[string]any)
	if err := yaml.Unmarshal(data, &constants); err != nil {
		return nil, fmt.Errorf("parsing env file %s: %w", path, err)
	}
	return constants, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
