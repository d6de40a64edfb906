package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"sync"
	"syscall"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/azielinski/bia-analyzer/analyzer"
)

// Viewer processes spawned by this server, so they can be terminated on
// request or at shutdown.
var (
	runningViewers = make(map[int]*os.Process)
	viewerMutex    sync.Mutex
)

// viewerLauncher returns the platform command that opens an image with the
// default viewer.
func viewerLauncher() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		return "open", nil
	case "linux":
		return "xdg-open", nil
	default:
		return "", fmt.Errorf("no known image viewer launcher for %s", runtime.GOOS)
	}
}

// handleOpenColePlot renders the Cole plot and opens it with the platform
// image viewer in the background, returning the viewer PID.
func handleOpenColePlot(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments

	measurementURIStr, ok := args["measurement_uri"].(string)
	if !ok || measurementURIStr == "" {
		return nil, fmt.Errorf("missing or invalid required argument: measurement_uri (string)")
	}
	outputPath, ok := args["output_path"].(string)
	if !ok || outputPath == "" {
		tempFile, err := os.CreateTemp("", "cole-*.png")
		if err != nil {
			return nil, fmt.Errorf("failed to create temporary plot file: %w", err)
		}
		outputPath = tempFile.Name()
		tempFile.Close()
		log.Printf("No output_path provided, using temporary file: %s", outputPath)
	}

	log.Printf("Handling open_cole_plot: URI=%s, Output=%s", measurementURIStr, outputPath)

	launcher, err := viewerLauncher()
	if err != nil {
		return nil, err
	}
	if _, err := exec.LookPath(launcher); err != nil {
		return nil, fmt.Errorf("'%s' command not found in PATH, cannot open the plot: %w", launcher, err)
	}

	m, cleanup, err := loadMeasurement(measurementURIStr)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	fit, err := analyzer.FitColeCircle(m.Samples)
	if err != nil {
		return nil, err
	}
	if err := analyzer.RenderColePlot(m, fit, outputPath); err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, launcher, outputPath)
	if err := cmd.Start(); err != nil {
		log.Printf("Error starting '%s' in background: %v", launcher, err)
		return nil, fmt.Errorf("failed to start '%s': %w", launcher, err)
	}

	pid := cmd.Process.Pid
	viewerMutex.Lock()
	runningViewers[pid] = cmd.Process
	viewerMutex.Unlock()

	log.Printf("Successfully started '%s' in background with PID: %d", launcher, pid)

	resultText := fmt.Sprintf("Opened Cole plot '%s' with '%s' in the background (PID: %d).", outputPath, launcher, pid)
	resultText += "\nUse the 'close_plot_viewer' tool with this PID to terminate the viewer."

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: resultText,
			},
		},
	}, nil
}

// handleClosePlotViewer terminates a viewer started by handleOpenColePlot.
func handleClosePlotViewer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.Params.Arguments

	pidFloat, ok := args["pid"].(float64)
	if !ok {
		return nil, fmt.Errorf("missing or invalid required argument: pid (number)")
	}
	pid := int(pidFloat)
	if pid <= 0 {
		return nil, fmt.Errorf("invalid PID: %d", pid)
	}

	log.Printf("Handling close_plot_viewer for PID: %d", pid)

	viewerMutex.Lock()
	process, exists := runningViewers[pid]
	if !exists {
		viewerMutex.Unlock()
		log.Printf("PID %d not found in running viewers.", pid)
		return nil, fmt.Errorf("no running plot viewer with PID %d", pid)
	}
	delete(runningViewers, pid)
	viewerMutex.Unlock()

	log.Printf("Attempting to terminate process with PID: %d", pid)
	err := process.Signal(os.Interrupt)
	if err != nil {
		log.Printf("Failed to send Interrupt signal to PID %d: %v. Trying Kill signal.", pid, err)
		err = process.Signal(os.Kill)
		if err != nil {
			log.Printf("Failed to send Kill signal to PID %d: %v", pid, err)
			return nil, fmt.Errorf("failed to terminate PID %d: %w", pid, err)
		}
	}

	// Release the process entry; the signal may be handled asynchronously.
	_, err = process.Wait()
	if err != nil && !strings.Contains(err.Error(), "wait: no child processes") && !strings.Contains(err.Error(), "signal:") {
		log.Printf("Warning: Error waiting for process PID %d after signaling: %v", pid, err)
	}

	resultText := fmt.Sprintf("Sent termination signal to PID %d.", pid)
	log.Println(resultText)

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: resultText,
			},
		},
	}, nil
}

// setupSignalHandler installs a handler that terminates any spawned viewer
// processes when the server exits. Called once from runServe.
func setupSignalHandler() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigs
		log.Printf("Received signal: %s. Cleaning up running viewer processes...", sig)

		viewerMutex.Lock()
		pidsToTerminate := make([]int, 0, len(runningViewers))
		processesToTerminate := make([]*os.Process, 0, len(runningViewers))
		for pid, process := range runningViewers {
			pidsToTerminate = append(pidsToTerminate, pid)
			processesToTerminate = append(processesToTerminate, process)
		}
		runningViewers = make(map[int]*os.Process)
		viewerMutex.Unlock()

		if len(pidsToTerminate) == 0 {
			log.Println("No running viewer processes to terminate.")
			return
		}

		log.Printf("Terminating %d viewer processes: %v", len(pidsToTerminate), pidsToTerminate)
		var wg sync.WaitGroup
		wg.Add(len(processesToTerminate))

		for i, process := range processesToTerminate {
			go func(p *os.Process, pid int) {
				defer wg.Done()
				log.Printf("Sending Interrupt signal to PID %d...", pid)
				err := p.Signal(os.Interrupt)
				if err != nil {
					log.Printf("Failed to send Interrupt to PID %d: %v. Trying Kill.", pid, err)
					err = p.Signal(os.Kill)
					if err != nil {
						log.Printf("Failed to send Kill to PID %d: %v", pid, err)
					}
				}
			}(process, pidsToTerminate[i])
		}
		wg.Wait()
		log.Println("Cleanup finished.")
	}()
}
