package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/scanlab/mathfind/internal/config"
	"github.com/scanlab/mathfind/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Print version information")
	configPath := flag.String("config", "", "Path to the YAML configuration file")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("mathfind %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	}

	// Configure logging to stderr (stdout is for MCP protocol)
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("Config error: %v", err)
		}
	}

	if os.Getenv("MATHFIND_LOG_LEVEL") == "debug" {
		log.Printf("mathfind v%s (built %s, commit %s)", Version, BuildTime, GitCommit)
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Server error: %v", err)
	}
	if err := srv.Run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "mathfind - MCP server for math-expression detection on scanned pages")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Usage: mathfind [options]")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Options:")
	fmt.Fprintln(os.Stderr, "  -config <path>   Load configuration from a YAML file")
	fmt.Fprintln(os.Stderr, "  -version         Print version information")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Environment variables:")
	fmt.Fprintln(os.Stderr, "  MATHFIND_LOG_LEVEL=debug    Enable debug logging")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "This server communicates via MCP protocol over stdin/stdout.")
}
