package main

import (
	"fmt"
	"os"
	"strings"
)

// Version is set at build time via ldflags
var Version = "dev"

const pidFile = "learnlensd.pid"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "init":
		err = cmdInit()
	case "config":
		err = cmdConfig()
	case "start":
		err = cmdStart()
	case "stop":
		err = cmdStop()
	case "status":
		err = cmdStatus()
	case "logs":
		err = cmdLogs()
	case "courses":
		err = cmdCourses(os.Args[2:])
	case "progress":
		err = cmdProgress(os.Args[2:])
	case "stats":
		err = cmdStats(os.Args[2:])
	case "mcp":
		err = cmdMCP()
	case "help", "-h", "--help":
		printUsage()
	case "version", "-v", "--version":
		fmt.Printf("learnlens %s\n", Version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`learnlens - Course progress and quiz analytics

Usage:
  learnlens <command> [arguments]

Setup Commands:
  init            Create ~/.learnlens with a default configuration
  config          Show current configuration

Daemon Commands:
  start           Start the learnlens daemon
  stop            Stop the learnlens daemon
  status          Show daemon status
  logs            View daemon logs

Catalog Commands:
  courses         List courses (-search, -subject, -difficulty)
  progress <id>   Show completion for one course

Analytics Commands:
  stats           Show the progress dashboard (overview)
  stats topics    Show quiz accuracy per topic
  stats weak      Show topics below the mastery threshold (-threshold)
  stats recommend Show practice recommendations

Integration Commands:
  mcp             Start MCP server on stdio

Other:
  help            Show this help message
  version         Show version information

Set LEARNLENS_USER to act for a learner other than the configured default.

Examples:
  learnlens start                         # Start daemon
  learnlens courses -subject mathematics  # Filter the catalog
  learnlens stats weak -threshold 80      # Stricter mastery threshold`)
}

// renderProgressBar draws a bar for a percentage in [0, 100]
func renderProgressBar(percent float64, width int) string {
	filled := int(percent / 100 * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}
