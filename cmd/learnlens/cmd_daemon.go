package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/felixgeelhaar/learnlens/internal/config"
	"github.com/felixgeelhaar/learnlens/internal/daemon"
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

// daemonAddr resolves the daemon base URL from the local config
func daemonAddr() string {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		cfg = config.DefaultLocalConfig()
	}
	config.ApplyEnv(cfg)
	return fmt.Sprintf("http://%s:%d", cfg.Daemon.Bind, cfg.Daemon.Port)
}

// getJSON fetches path from the daemon and decodes the body into out.
// Error responses are reported with the daemon's message.
func getJSON(path string, out any) error {
	req, err := http.NewRequest(http.MethodGet, daemonAddr()+path, nil)
	if err != nil {
		return err
	}
	if user := os.Getenv("LEARNLENS_USER"); user != "" {
		req.Header.Set(daemon.UserIDHeader, user)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			return fmt.Errorf("%s: %s", path, resp.Status)
		}
		if apiErr.Details != "" {
			return fmt.Errorf("%s: %s", apiErr.Error, apiErr.Details)
		}
		return fmt.Errorf("%s", apiErr.Error)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// cmdStart starts the daemon in the background
func cmdStart() error {
	if isRunning() {
		fmt.Println("✓ Daemon is already running")
		return nil
	}

	dir, err := config.EnsureLearnlensDir()
	if err != nil {
		return fmt.Errorf("setup learnlens directory: %w", err)
	}

	binary, err := findDaemonBinary()
	if err != nil {
		return fmt.Errorf("find daemon binary: %w", err)
	}

	cmd := exec.Command(binary)
	cmd.Dir = dir
	detachDaemon(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	fmt.Print("Starting daemon...")
	for i := 0; i < 30; i++ {
		time.Sleep(100 * time.Millisecond)
		if isRunning() {
			fmt.Println(" ✓")
			fmt.Printf("Daemon running at %s\n", daemonAddr())
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("daemon failed to start (check logs with 'learnlens logs')")
}

// cmdStop sends SIGTERM to the daemon recorded in the PID file
func cmdStop() error {
	if !isRunning() {
		fmt.Println("Daemon is not running")
		return nil
	}

	dir, err := config.LearnlensDir()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(filepath.Join(dir, pidFile))
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("parse PID: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process: %w", err)
	}

	fmt.Print("Stopping daemon...")
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("send signal: %w", err)
	}

	for i := 0; i < 50; i++ {
		time.Sleep(100 * time.Millisecond)
		if !isRunning() {
			fmt.Println(" ✓")
			return nil
		}
		fmt.Print(".")
	}

	fmt.Println(" ✗")
	return fmt.Errorf("daemon did not stop gracefully")
}

// cmdStatus shows daemon status and event counts
func cmdStatus() error {
	if !isRunning() {
		fmt.Println("Status: stopped")
		return nil
	}

	var status struct {
		Status      string         `json:"status"`
		Version     string         `json:"version"`
		Storage     string         `json:"storage"`
		Queue       bool           `json:"queue"`
		Events      map[string]int `json:"events"`
		LastEventAt string         `json:"last_event_at"`
	}
	if err := getJSON("/v1/status", &status); err != nil {
		return err
	}

	fmt.Printf("Status:   %s\n", status.Status)
	fmt.Printf("Version:  %s\n", status.Version)
	fmt.Printf("Storage:  %s\n", status.Storage)
	fmt.Printf("Queue:    %v\n", status.Queue)
	fmt.Printf("Address:  %s\n", daemonAddr())

	if len(status.Events) > 0 {
		types := make([]string, 0, len(status.Events))
		for t := range status.Events {
			types = append(types, t)
		}
		sort.Strings(types)
		fmt.Println("\nEvents since start")
		for _, t := range types {
			fmt.Printf("  %-28s %d\n", t, status.Events[t])
		}
		if status.LastEventAt != "" {
			fmt.Printf("  last at %s\n", status.LastEventAt)
		}
	}

	return nil
}

// cmdLogs prints the tail of the daemon log
func cmdLogs() error {
	dir, err := config.LearnlensDir()
	if err != nil {
		return err
	}

	logPath := filepath.Join(dir, "logs", "learnlensd.log")
	file, err := os.Open(logPath)
	if os.IsNotExist(err) {
		fmt.Println("No log file found. Start the daemon first.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	// Roughly the last 4KB
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat log file: %w", err)
	}
	offset := info.Size() - 4096
	if offset < 0 {
		offset = 0
	}
	if _, err := file.Seek(offset, 0); err != nil {
		return fmt.Errorf("seek log file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	if offset > 0 {
		// partial first line
		scanner.Scan()
	}
	for scanner.Scan() {
		fmt.Println(scanner.Text())
	}
	return scanner.Err()
}

// isRunning checks the daemon health endpoint
func isRunning() bool {
	resp, err := httpClient.Get(daemonAddr() + "/v1/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// findDaemonBinary locates the learnlensd binary
func findDaemonBinary() (string, error) {
	if path, err := exec.LookPath("learnlensd"); err == nil {
		return path, nil
	}

	if self, err := os.Executable(); err == nil {
		path := filepath.Join(filepath.Dir(self), "learnlensd")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	for _, path := range []string{"/usr/local/bin/learnlensd", "./learnlensd", "./cmd/learnlensd/learnlensd"} {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("learnlensd binary not found (build with 'go build ./cmd/learnlensd')")
}
