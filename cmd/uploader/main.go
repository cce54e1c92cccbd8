// Command uploader drives the upload manager from the command line: it
// submits the given files to a running ingest endpoint and prints every
// collection snapshot the manager emits.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/file-uploader/backend/internal/models"
	"github.com/file-uploader/backend/internal/upload"
)

const defaultEndpoint = "http://localhost:3000/api/upload"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <file> [file...]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "environment:\n")
		fmt.Fprintf(os.Stderr, "  UPLOAD_ENDPOINT  ingest endpoint URL (default %s)\n", defaultEndpoint)
		fmt.Fprintf(os.Stderr, "  UPLOAD_POLICY    path to a YAML validation policy file\n")
		os.Exit(2)
	}

	endpoint := os.Getenv("UPLOAD_ENDPOINT")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	policy := upload.DefaultPolicy()
	if policyPath := os.Getenv("UPLOAD_POLICY"); policyPath != "" {
		loaded, err := upload.LoadPolicy(policyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load policy %s: %v\n", policyPath, err)
			os.Exit(1)
		}
		policy = loaded
	}
	if len(os.Args) > 2 {
		policy.AllowMultiple = true
	}

	mgr := upload.NewManager(policy, &upload.HTTPTransport{Endpoint: endpoint})
	mgr.SetListener(printSnapshot)

	var files []upload.File
	for _, path := range os.Args[1:] {
		f, err := upload.FromDisk(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", path, err)
			continue
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "No readable files to upload")
		os.Exit(1)
	}

	mgr.Submit(files...)

	// Wait for every admitted record to reach a terminal state.
	deadline := time.Now().Add(2 * time.Minute)
	for time.Now().Before(deadline) {
		if allSettled(mgr.Records()) {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	failed := 0
	for _, rec := range mgr.Records() {
		if rec.State == models.RecordFailed {
			failed++
		}
	}
	if errMsg, _ := mgr.Messages(); errMsg != "" {
		fmt.Fprintln(os.Stderr, errMsg)
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func allSettled(records []models.FileRecord) bool {
	for _, rec := range records {
		if !rec.State.Terminal() {
			return false
		}
	}
	return true
}

func printSnapshot(records []models.FileRecord) {
	fmt.Printf("[Uploader] %d file(s):\n", len(records))
	for _, rec := range records {
		line := fmt.Sprintf("  %-30s %3d%%  %s", rec.Name, rec.Progress, rec.State)
		if rec.Error != "" {
			line += "  (" + rec.Error + ")"
		}
		fmt.Println(line)
	}
}
