package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/azielinski/bia-analyzer/analyzer"
)

// loadMeasurement resolves a measurement URI (see getMeasurementAsFile) and
// parses the resulting file. The returned cleanup must be called once the
// measurement is no longer needed.
func loadMeasurement(uriStr string) (*analyzer.Measurement, func(), error) {
	filePath, cleanup, err := getMeasurementAsFile(uriStr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get measurement file: %w", err)
	}

	m, err := analyzer.ParseFile(filePath)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return m, cleanup, nil
}

// handleAnalyzeBIA handles analysis requests for .mfu measurement files.
// This is the handler function for the "analyze_bia" MCP tool.
func handleAnalyzeBIA(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments

	// --- 1. Extract and validate arguments ---
	measurementURIStr, ok := args["measurement_uri"].(string)
	if !ok || measurementURIStr == "" {
		return nil, fmt.Errorf("missing or invalid required argument: measurement_uri (string)")
	}
	outputFormat, ok := args["output_format"].(string)
	if !ok {
		outputFormat = "text"
	}

	log.Printf("Handling analyze_bia: URI=%s, Format=%s", measurementURIStr, outputFormat)

	// --- 2. Resolve and parse the measurement ---
	m, cleanup, err := loadMeasurement(measurementURIStr)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	// --- 3. Compute and render the summary ---
	summary, err := analyzer.Summarize(m)
	if err != nil {
		log.Printf("Analysis error for '%s': %v", measurementURIStr, err)
		return nil, err
	}
	rendered, err := summary.Render(outputFormat)
	if err != nil {
		return nil, err
	}

	// --- 4. Return the analysis result ---
	log.Printf("Analysis successful for '%s'. Result length: %d", measurementURIStr, len(rendered))
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: rendered,
			},
		},
	}, nil
}

// handleRenderColePlot handles Cole plot rendering requests.
func handleRenderColePlot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments

	// --- 1. Extract and validate arguments ---
	measurementURIStr, ok := args["measurement_uri"].(string)
	if !ok || measurementURIStr == "" {
		return nil, fmt.Errorf("missing or invalid required argument: measurement_uri (string)")
	}
	outputPath, ok := args["output_path"].(string)
	if !ok || outputPath == "" {
		return nil, fmt.Errorf("missing or invalid required argument: output_path (string)")
	}

	log.Printf("Handling render_cole_plot: URI=%s, Output=%s", measurementURIStr, outputPath)

	// --- 2. Resolve and parse the measurement ---
	m, cleanup, err := loadMeasurement(measurementURIStr)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	// Relative output paths are taken relative to the working directory.
	if !filepath.IsAbs(outputPath) {
		cwd, err := os.Getwd()
		if err != nil {
			log.Printf("Cannot determine working directory: %v", err)
		} else {
			outputPath = filepath.Join(cwd, outputPath)
			log.Printf("Resolved relative output path to: %s", outputPath)
		}
	}

	// --- 3. Fit the circle and render ---
	fit, err := analyzer.FitColeCircle(m.Samples)
	if err != nil {
		return nil, err
	}
	if err := analyzer.RenderColePlot(m, fit, outputPath); err != nil {
		return nil, err
	}

	// --- 4. Return the result; inline the image content for SVG output ---
	resultText := fmt.Sprintf("Cole plot rendered to: %s", outputPath)
	textContent := mcp.TextContent{
		Type: "text",
		Text: resultText,
	}

	if strings.EqualFold(filepath.Ext(outputPath), ".svg") {
		svgBytes, readErr := os.ReadFile(outputPath)
		if readErr != nil {
			log.Printf("Rendered SVG '%s' but failed to read it back: %v", outputPath, readErr)
			return &mcp.CallToolResult{
				Content: []mcp.Content{textContent},
			}, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				textContent,
				mcp.TextContent{
					Type: "text",
					Text: string(svgBytes),
				},
			},
		}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{textContent},
	}, nil
}
