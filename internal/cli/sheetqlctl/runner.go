// Package sheetqlctl implements the command-line client for the sheetql
// HTTP API.
package sheetqlctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("sheetqlctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "sheetql API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 30*time.Second), "HTTP timeout (e.g. 30s)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	command := strings.TrimSpace(fs.Arg(0))
	request, err := buildRequest(ctx, command, fs.Args()[1:], strings.TrimRight(*baseURL, "/"))
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n\n", err)
		writeUsage(stderr)
		return 2
	}

	request.Header.Set("Accept", "application/json")
	if strings.TrimSpace(*apiKey) != "" {
		request.Header.Set("X-API-Key", strings.TrimSpace(*apiKey))
	}

	resp, err := client.Do(request)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}
	defer func() { _ = resp.Body.Close() }()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "read response: %v\n", err)
		return 1
	}
	if resp.StatusCode >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", resp.StatusCode, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	return 0
}

func buildRequest(ctx context.Context, command string, args []string, baseURL string) (*http.Request, error) {
	switch command {
	case "health":
		return http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/health", nil)
	case "ready":
		return http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/ready", nil)
	case "files":
		return http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/files", nil)
	case "runs":
		return http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/v1/runs", nil)
	case "retention-run":
		return http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/maintenance/retention", nil)
	case "upload":
		if len(args) != 1 {
			return nil, fmt.Errorf("upload requires exactly one file argument")
		}
		return buildUploadRequest(ctx, baseURL, args[0])
	case "convert":
		if len(args) != 1 {
			return nil, fmt.Errorf("convert requires exactly one file argument")
		}
		return http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/convert/"+args[0], nil)
	case "sql":
		if len(args) != 2 {
			return nil, fmt.Errorf("sql requires a db argument and a statement argument")
		}
		return buildJSONRequest(ctx, baseURL+"/v1/sql/"+args[0], map[string]string{"sql": args[1]})
	case "generate":
		if len(args) != 3 {
			return nil, fmt.Errorf("generate requires db, table, and request arguments")
		}
		return buildJSONRequest(ctx, baseURL+"/v1/generate/"+args[0], map[string]string{
			"table":   args[1],
			"request": args[2],
		})
	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

func buildUploadRequest(ctx context.Context, baseURL, path string) (*http.Request, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	defer func() { _ = file.Close() }()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("read upload file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finish multipart body: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/upload", body)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", writer.FormDataContentType())
	return request, nil
}

func buildJSONRequest(ctx context.Context, url string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/json")
	return request, nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: sheetqlctl [flags] <command> [args]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health                       GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready                        GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  files                        GET /v1/files")
	_, _ = fmt.Fprintln(w, "  runs                         GET /v1/runs")
	_, _ = fmt.Fprintln(w, "  upload <file>                POST /v1/upload")
	_, _ = fmt.Fprintln(w, "  convert <file>               POST /v1/convert/{name}")
	_, _ = fmt.Fprintln(w, "  sql <db> <statement>         POST /v1/sql/{db}")
	_, _ = fmt.Fprintln(w, "  generate <db> <table> <req>  POST /v1/generate/{db}")
	_, _ = fmt.Fprintln(w, "  retention-run                POST /v1/maintenance/retention")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
