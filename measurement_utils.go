package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// getMeasurementAsFile resolves a measurement URI to a local file path.
// - Input without "://" is treated as a local file path (relative or absolute).
// - A file:// URI is used directly.
// - An http:// or https:// URI is downloaded to a temporary file.
// Returns the final path, a cleanup function for the temporary file (if one
// was created) and an error.
func getMeasurementAsFile(uriStr string) (filePath string, cleanup func(), err error) {
	cleanup = func() {} // default cleanup is a no-op

	if !strings.Contains(uriStr, "://") {
		absPath, err := filepath.Abs(uriStr)
		if err != nil {
			return "", nil, fmt.Errorf("failed to get absolute path for '%s': %w", uriStr, err)
		}
		log.Printf("Using local measurement file: %s", absPath)
		return absPath, cleanup, nil
	}

	parsedURI, err := url.Parse(uriStr)
	if err != nil {
		return "", nil, fmt.Errorf("invalid measurement URI '%s': %w", uriStr, err)
	}

	switch parsedURI.Scheme {
	case "file":
		filePath = parsedURI.Path
		if filePath == "" {
			return "", nil, fmt.Errorf("invalid file path derived from URI '%s'", uriStr)
		}
		log.Printf("Using local measurement file: %s", filePath)
		return filePath, cleanup, nil

	case "http", "https":
		log.Printf("Attempting to download measurement from URL: %s", uriStr)
		resp, err := http.Get(uriStr)
		if err != nil {
			return "", nil, fmt.Errorf("failed to download measurement from '%s': %w", uriStr, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", nil, fmt.Errorf("failed to download measurement from '%s': received status code %d", uriStr, resp.StatusCode)
		}

		tempFile, err := os.CreateTemp("", "bia-*.mfu")
		if err != nil {
			return "", nil, fmt.Errorf("failed to create temporary file for download: %w", err)
		}
		filePath = tempFile.Name()
		log.Printf("Downloading measurement to temporary file: %s", filePath)

		cleanup = func() {
			log.Printf("Cleaning up temporary file: %s", filePath)
			err := os.Remove(filePath)
			if err != nil && !os.IsNotExist(err) {
				log.Printf("Warning: failed to remove temporary file '%s': %v", filePath, err)
			}
		}

		_, err = io.Copy(tempFile, resp.Body)
		closeErr := tempFile.Close()

		if err != nil {
			cleanup()
			return "", nil, fmt.Errorf("failed to write downloaded content to temporary file '%s': %w", filePath, err)
		}
		if closeErr != nil {
			log.Printf("Warning: failed to close temporary file handle for '%s': %v", filePath, closeErr)
		}

		log.Printf("Successfully downloaded measurement to %s", filePath)
		return filePath, cleanup, nil

	default:
		return "", nil, fmt.Errorf("unsupported URI scheme '%s', only 'file://', 'http://', 'https://', or a plain local path are supported", parsedURI.Scheme)
	}
}
