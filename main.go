package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/azielinski/bia-analyzer/analyzer"
)

const usage = `Usage:
  bia <file.mfu>        analyze one measurement file, print the summary and
                        write <file>.cole.png next to the input
  bia watch <file.mfu>  re-run the analysis whenever the file is written
  bia serve             run as an MCP server over stdio
`

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	switch args[0] {
	case "serve":
		runServe()
	case "watch":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "error: watch needs a measurement file path")
			os.Exit(2)
		}
		if err := runWatch(args[1]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		if err := runAnalyze(args[0], os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	}
}

// runAnalyze is the batch-of-one flow: read file, parse, compute, print,
// plot, done.
func runAnalyze(path string, out *os.File) error {
	if strings.ToLower(filepath.Ext(path)) != ".mfu" {
		return fmt.Errorf("unsupported input file '%s': expected a .mfu measurement file", path)
	}

	m, err := analyzer.ParseFile(path)
	if err != nil {
		return err
	}
	summary, err := analyzer.Summarize(m)
	if err != nil {
		return err
	}
	text, err := summary.Render("text")
	if err != nil {
		return err
	}
	fmt.Fprint(out, text)

	plotPath := strings.TrimSuffix(path, filepath.Ext(path)) + ".cole.png"
	return analyzer.RenderColePlot(m, summary.Cole, plotPath)
}

// runServe exposes the analyzer as MCP tools over stdio.
func runServe() {
	// 1. Initialize the MCP server
	mcpServer := server.NewMCPServer(
		"BIAAnalyzer",
		"0.1.0",
		server.WithLogging(),
		server.WithRecovery(),
	)

	// 2. Define the analyze_bia tool and its parameters
	analyzeTool := mcp.NewTool("analyze_bia",
		mcp.WithDescription("Analyze a bioimpedance .mfu measurement file and return the derived summary metrics (BMI, phase angle, Cole fit, Re/Ri, fat-free mass, body water)."),
		mcp.WithString("measurement_uri",
			mcp.Description("URI of the .mfu file to analyze ('file://', 'http://', 'https://' or a plain local path). For example 'file:///path/to/scan.mfu'."),
			mcp.Required(),
		),
		mcp.WithString("output_format",
			mcp.Description("Output format of the analysis result."),
			mcp.DefaultString("text"),
			mcp.Enum("text", "markdown", "json"),
		),
	)

	// 3. Define the render_cole_plot tool
	renderTool := mcp.NewTool("render_cole_plot",
		mcp.WithDescription("Render the Cole plot (reactance vs resistance scatter plus fitted circle) of a .mfu measurement file to an image file."),
		mcp.WithString("measurement_uri",
			mcp.Description("URI of the .mfu file to plot ('file://', 'http://', 'https://' or a plain local path)."),
			mcp.Required(),
		),
		mcp.WithString("output_path",
			mcp.Description("Where to save the rendered plot; the extension picks the format (.png, .svg, .pdf). Absolute, or relative to the working directory."),
			mcp.Required(),
		),
	)

	// 4. Define the open_cole_plot tool
	openTool := mcp.NewTool("open_cole_plot",
		mcp.WithDescription("Render the Cole plot and open it with the platform image viewer in the background. Returns the viewer PID for a later disconnect."),
		mcp.WithString("measurement_uri",
			mcp.Description("URI of the .mfu file to plot ('file://', 'http://', 'https://' or a plain local path)."),
			mcp.Required(),
		),
		mcp.WithString("output_path",
			mcp.Description("Optional path for the rendered image; a temporary PNG is used when omitted."),
		),
	)

	// 5. Define the close_plot_viewer tool
	closeTool := mcp.NewTool("close_plot_viewer",
		mcp.WithDescription("Terminate a background image viewer started by 'open_cole_plot'."),
		mcp.WithNumber("pid",
			mcp.Description("PID of the viewer process to terminate (as returned by 'open_cole_plot')."),
			mcp.Required(),
		),
	)

	// 6. Register the tools with their handler functions
	mcpServer.AddTool(analyzeTool, handleAnalyzeBIA)
	mcpServer.AddTool(renderTool, handleRenderColePlot)
	mcpServer.AddTool(openTool, handleOpenColePlot)
	mcpServer.AddTool(closeTool, handleClosePlotViewer)

	// 7. Clean up spawned viewers when the server is terminated
	setupSignalHandler()

	// 8. Start the server using stdio transport
	log.Println("Starting BIAAnalyzer MCP server via stdio...")
	if err := server.ServeStdio(mcpServer); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
