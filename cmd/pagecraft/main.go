// Command pagecraft serves and inspects page builder documents.
package main

import (
	"fmt"
	"os"

	"github.com/livetemplate/pagecraft/cmd/pagecraft/commands"
)

const version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "serve":
		err = commands.ServeCommand(args)
	case "import":
		err = commands.ImportCommand(args, os.Stdout)
	case "types":
		err = commands.TypesCommand(args, os.Stdout)
	case "presets":
		err = commands.PresetsCommand(args, os.Stdout)
	case "version":
		fmt.Printf("pagecraft version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("pagecraft - Visual page builder core")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pagecraft serve [flags]          Start an editing session server")
	fmt.Println("  pagecraft import <file.md>       Convert markdown to a document (JSON)")
	fmt.Println("  pagecraft types [--category=C]   List block types")
	fmt.Println("  pagecraft presets [directory]    List layouts, themes, components and lists")
	fmt.Println("  pagecraft version                Show version")
	fmt.Println("  pagecraft help                   Show this help")
	fmt.Println()
	fmt.Println("Serve flags:")
	fmt.Println("  -c, --config <file>   Config file (default: ./pagecraft.yaml)")
	fmt.Println("  -p, --port <port>     Listen port")
	fmt.Println("      --host <host>     Listen host")
	fmt.Println("      --presets <dir>   Extra preset directory")
	fmt.Println("  -w, --watch           Reload presets when files change")
	fmt.Println("      --open <file.md>  Import a markdown file before serving")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  pagecraft serve --port 9000")
	fmt.Println("  pagecraft serve --presets ./presets --watch")
	fmt.Println("  pagecraft import page.md > page.json")
	fmt.Println("  pagecraft types --category=layout")
}
