package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/BerylCAtieno/getreach/internal/relay"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorPurple = "\033[35m"
	colorCyan   = "\033[36m"
)

type TestClient struct {
	baseURL     string
	productURL  string
	description string
	client      *http.Client
}

func NewTestClient(baseURL, productURL, description string) *TestClient {
	return &TestClient{
		baseURL:     baseURL,
		productURL:  productURL,
		description: description,
		client: &http.Client{
			Timeout: 3 * time.Minute,
		},
	}
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the service")
	testType := flag.String("test", "all", "Test type: all, health, agent-card, analyze, stream, score, agent")
	productURL := flag.String("product", "https://www.notion.so", "Product URL to analyze")
	description := flag.String("desc", "all-in-one workspace for notes and docs", "Product description")
	flag.Parse()

	client := NewTestClient(*baseURL, *productURL, *description)

	printHeader("GetReach - Smoke Tests")
	fmt.Printf("%sBase URL: %s%s\n\n", colorCyan, *baseURL, colorReset)

	tests := map[string]func() bool{
		"health":     client.testHealthCheck,
		"agent-card": client.testAgentCard,
		"analyze":    client.testAnalyze,
		"stream":     client.testAnalyzeStream,
		"score":      client.testScore,
		"agent":      client.testAgentTask,
	}

	if *testType == "all" {
		client.runAllTests()
		return
	}
	fn, ok := tests[*testType]
	if !ok {
		printError(fmt.Sprintf("Unknown test type: %s", *testType))
		fmt.Println("\nAvailable tests: all, health, agent-card, analyze, stream, score, agent")
		os.Exit(1)
	}
	if !fn() {
		os.Exit(1)
	}
}

func (tc *TestClient) runAllTests() {
	tests := []struct {
		name string
		fn   func() bool
	}{
		{"Health Check", tc.testHealthCheck},
		{"Agent Card", tc.testAgentCard},
		{"Score", tc.testScore},
		{"Analyze", tc.testAnalyze},
		{"Analyze Stream", tc.testAnalyzeStream},
	}

	passed := 0
	failed := 0

	for _, test := range tests {
		if test.fn() {
			passed++
		} else {
			failed++
		}
		fmt.Println()
	}

	printHeader("Test Summary")
	fmt.Printf("%sPassed: %d%s\n", colorGreen, passed, colorReset)
	fmt.Printf("%sFailed: %d%s\n", colorRed, failed, colorReset)
	fmt.Printf("Total: %d\n", passed+failed)

	if failed > 0 {
		os.Exit(1)
	}
}

func (tc *TestClient) testHealthCheck() bool {
	printTestHeader("Testing Health Check Endpoint")

	url := fmt.Sprintf("%s/health", tc.baseURL)
	fmt.Printf("GET %s\n", url)

	resp, err := tc.client.Get(url)
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		printError(fmt.Sprintf("Expected status 200, got %d", resp.StatusCode))
		return false
	}
	if string(body) != "OK" {
		printError(fmt.Sprintf("Expected body 'OK', got '%s'", string(body)))
		return false
	}

	printSuccess("Health check passed")
	return true
}

func (tc *TestClient) testAgentCard() bool {
	printTestHeader("Testing Agent Card Endpoint")

	url := fmt.Sprintf("%s/.well-known/agent.json", tc.baseURL)
	fmt.Printf("GET %s\n", url)

	resp, err := tc.client.Get(url)
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		printError(fmt.Sprintf("Expected status 200, got %d", resp.StatusCode))
		fmt.Printf("Response: %s\n", string(body))
		return false
	}

	var agentCard map[string]any
	if err := json.Unmarshal(body, &agentCard); err != nil {
		printError(fmt.Sprintf("Invalid JSON response: %v", err))
		return false
	}
	for _, field := range []string{"name", "description", "url", "version", "capabilities", "skills"} {
		if _, ok := agentCard[field]; !ok {
			printError(fmt.Sprintf("Missing required field: %s", field))
			return false
		}
	}

	printSuccess("Agent card is valid")
	printJSON(body)
	return true
}

func (tc *TestClient) testScore() bool {
	printTestHeader("Testing Precision Score")

	url := fmt.Sprintf("%s/api/score", tc.baseURL)
	fmt.Printf("POST %s\n", url)

	report := `{"platforms":[{"name":"Reddit","communities":["r/Notion","r/productivity"],"conversionIntent":"High"},{"name":"YouTube","communities":["Thomas Frank"],"conversionIntent":"Medium"}],"advanced":{"keywordClusters":["notion template","second brain"]}}`
	resp, err := tc.client.Post(url, "application/json", strings.NewReader(report))
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		printError(fmt.Sprintf("Expected status 200, got %d", resp.StatusCode))
		fmt.Printf("Response: %s\n", string(body))
		return false
	}

	printSuccess("Score computed")
	printJSON(body)
	return true
}

func (tc *TestClient) analyzeBody(stream bool) []byte {
	body, _ := json.Marshal(map[string]any{
		"url":         tc.productURL,
		"description": tc.description,
		"stream":      stream,
	})
	return body
}

func (tc *TestClient) testAnalyze() bool {
	printTestHeader("Testing Analyze")

	url := fmt.Sprintf("%s/api/analyze", tc.baseURL)
	fmt.Printf("POST %s\n", url)
	fmt.Printf("%sProduct:%s %s (%s)\n\n", colorCyan, colorReset, tc.productURL, tc.description)

	start := time.Now()
	resp, err := tc.client.Post(url, "application/json", bytes.NewReader(tc.analyzeBody(false)))
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		printError(fmt.Sprintf("Expected status 200, got %d", resp.StatusCode))
		fmt.Printf("Response: %s\n", string(body))
		return false
	}

	var report map[string]any
	if err := json.Unmarshal(body, &report); err != nil {
		printError(fmt.Sprintf("Invalid JSON response: %v", err))
		return false
	}
	for _, field := range []string{"persona", "platforms", "advanced"} {
		if _, ok := report[field]; !ok {
			printError(fmt.Sprintf("Missing report field: %s", field))
			return false
		}
	}

	printSuccess(fmt.Sprintf("Report generated in %s", time.Since(start).Round(time.Millisecond)))
	printJSON(body)
	return true
}

func (tc *TestClient) testAnalyzeStream() bool {
	printTestHeader("Testing Analyze Stream")

	url := fmt.Sprintf("%s/api/analyze", tc.baseURL)
	fmt.Printf("POST %s (stream)\n\n", url)

	resp, err := tc.client.Post(url, "application/json", bytes.NewReader(tc.analyzeBody(true)))
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		body, _ := io.ReadAll(resp.Body)
		printError(fmt.Sprintf("Expected an event stream, got %d %s", resp.StatusCode, ct))
		fmt.Printf("Response: %s\n", string(body))
		return false
	}

	var (
		chunks   int
		received int
		terminal relay.StreamEvent
	)
	err = relay.ReadEvents(resp.Body, func(ev relay.StreamEvent) error {
		switch ev.Type {
		case relay.EventChunk:
			chunks++
			received += len(ev.Text)
			fmt.Printf("%s.%s", colorPurple, colorReset)
		case relay.EventDone, relay.EventError:
			terminal = ev
		}
		return nil
	})
	fmt.Println()
	if err != nil {
		printError(fmt.Sprintf("Stream broken after %d chunks: %v", chunks, err))
		return false
	}

	fmt.Printf("%sChunks:%s %d (%d bytes)\n", colorYellow, colorReset, chunks, received)
	switch terminal.Type {
	case relay.EventDone:
		printSuccess(fmt.Sprintf("Stream completed with persona %q", terminal.Report.Persona.Title))
		return true
	case relay.EventError:
		printError("Stream ended with error: " + terminal.Message)
		return false
	default:
		printError("Stream ended without a terminal event")
		return false
	}
}

func (tc *TestClient) testAgentTask() bool {
	printTestHeader("Testing A2A Task")

	url := fmt.Sprintf("%s/a2a/reach", tc.baseURL)
	fmt.Printf("POST %s\n", url)

	request := map[string]any{
		"jsonrpc": "2.0",
		"id":      fmt.Sprintf("test-%d", time.Now().Unix()),
		"method":  "message/send",
		"params": map[string]any{
			"message": map[string]any{
				"kind": "message",
				"role": "user",
				"parts": []map[string]any{
					{"kind": "text", "text": tc.productURL + " " + tc.description},
				},
			},
			"configuration": map[string]any{"blocking": true},
		},
	}

	jsonData, _ := json.MarshalIndent(request, "", "  ")
	fmt.Printf("%sRequest:%s\n", colorYellow, colorReset)
	fmt.Println(string(jsonData))
	fmt.Println()

	resp, err := tc.client.Post(url, "application/json", bytes.NewReader(jsonData))
	if err != nil {
		printError(fmt.Sprintf("Request failed: %v", err))
		return false
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var response struct {
		Error  *struct{ Message string } `json:"error"`
		Result struct {
			Status struct {
				State   string `json:"state"`
				Message struct {
					Parts []struct {
						Text string `json:"text"`
					} `json:"parts"`
				} `json:"message"`
			} `json:"status"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		printError(fmt.Sprintf("Invalid JSON response: %v", err))
		return false
	}
	if response.Error != nil {
		printError("Request returned an error: " + response.Error.Message)
		return false
	}
	if state := response.Result.Status.State; state != "completed" {
		printError(fmt.Sprintf("Expected state 'completed', got '%s'", state))
	}

	fmt.Printf("\n%sAgent reply:%s\n", colorGreen, colorReset)
	fmt.Println(strings.Repeat("=", 80))
	for _, p := range response.Result.Status.Message.Parts {
		fmt.Println(p.Text)
	}
	fmt.Println(strings.Repeat("=", 80))
	return response.Result.Status.State == "completed"
}

func printHeader(text string) {
	fmt.Printf("\n%s%s%s\n", colorBlue, strings.Repeat("=", len(text)+4), colorReset)
	fmt.Printf("%s= %s =%s\n", colorBlue, text, colorReset)
	fmt.Printf("%s%s%s\n\n", colorBlue, strings.Repeat("=", len(text)+4), colorReset)
}

func printTestHeader(text string) {
	fmt.Printf("%s[TEST] %s%s\n", colorCyan, text, colorReset)
	fmt.Println(strings.Repeat("-", 80))
}

func printSuccess(text string) {
	fmt.Printf("%s✓ %s%s\n", colorGreen, text, colorReset)
}

func printError(text string) {
	fmt.Printf("%s✗ %s%s\n", colorRed, text, colorReset)
}

func printJSON(data []byte) {
	var prettyJSON bytes.Buffer
	if err := json.Indent(&prettyJSON, data, "", "  "); err == nil {
		fmt.Printf("\n%sResponse:%s\n%s\n", colorYellow, colorReset, prettyJSON.String())
	}
}
