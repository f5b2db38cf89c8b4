package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/fitplay/internal/auth"
	"github.com/desertthunder/fitplay/internal/models"
	"github.com/desertthunder/fitplay/internal/session"
	"github.com/desertthunder/fitplay/internal/shared"
	tu "github.com/desertthunder/fitplay/internal/testing"
	"github.com/urfave/cli/v3"
)

// run executes args against a fresh command tree and returns what was written to output.
func run(t *testing.T, r *Runner, args ...string) (string, error) {
	t.Helper()
	output := &bytes.Buffer{}
	r.output = output
	app := &cli.Command{Name: "fitplay", Commands: r.register()}
	err := app.Run(context.Background(), append([]string{"fitplay"}, args...))
	return output.String(), err
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})

		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.openURL == nil {
				t.Error("expected openURL to default to the browser opener")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			if err := runner.writePlain("test"); err == nil {
				t.Fatal("expected error from failing writer")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"serve", "parse", "auth", "config"} {
			if !names[want] {
				t.Errorf("expected %q command to be registered", want)
			}
		}
	})
}

func TestParse(t *testing.T) {
	t.Run("YouTube Video", func(t *testing.T) {
		out, err := run(t, NewRunner(RunnerOpts{}), "parse", "https://youtu.be/dQw4w9WgXcQ")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out, "Kind: single") || !strings.Contains(out, "ID: dQw4w9WgXcQ") {
			t.Errorf("expected single video, got %q", out)
		}
	})

	t.Run("YouTube Playlist With Start", func(t *testing.T) {
		out, err := run(t, NewRunner(RunnerOpts{}), "parse", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL123abc")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for _, want := range []string{"Kind: collection", "ID: PL123abc", "Start: dQw4w9WgXcQ", "Loop: true"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in %q", want, out)
			}
		}
	})

	t.Run("Curated Name", func(t *testing.T) {
		path := writeConfig(t, "[youtube.curated]\nstretch = \"https://youtu.be/jfKfPfyJRdk\"\n")
		out, err := run(t, NewRunner(RunnerOpts{}), "parse", "--config", path, "Stretch")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out, "ID: jfKfPfyJRdk") {
			t.Errorf("expected curated video, got %q", out)
		}
	})

	t.Run("Spotify JSON", func(t *testing.T) {
		out, err := run(t, NewRunner(RunnerOpts{}), "parse", "--provider", "spotify", "--json", "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out, `"kind": "collection"`) || !strings.Contains(out, "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M") {
			t.Errorf("expected playlist JSON, got %q", out)
		}
	})

	t.Run("Invalid Input", func(t *testing.T) {
		_, err := run(t, NewRunner(RunnerOpts{}), "parse", "https://example.com/nothing")
		if !errors.Is(err, shared.ErrInvalidSource) {
			t.Errorf("expected ErrInvalidSource, got %v", err)
		}
	})

	t.Run("Unknown Provider", func(t *testing.T) {
		_, err := run(t, NewRunner(RunnerOpts{}), "parse", "--provider", "deezer", "x")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestConfigCommands(t *testing.T) {
	t.Run("Init Writes Example", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		out, err := run(t, NewRunner(RunnerOpts{}), "config", "init", "--config", path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(tu.MustReadFile(t, path), "[spotify]") {
			t.Error("expected example config contents")
		}
		if !strings.Contains(out, "Configuration written") {
			t.Errorf("expected confirmation, got %q", out)
		}

		if _, err := run(t, NewRunner(RunnerOpts{}), "config", "init", "--config", path); err == nil {
			t.Error("expected error when config already exists")
		}
	})

	t.Run("Show Redacts Secret", func(t *testing.T) {
		path := writeConfig(t, "[spotify]\nclient_secret = \"s3cret\"\n")
		out, err := run(t, NewRunner(RunnerOpts{}), "config", "show", "--config", path, "--env-file", "")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if strings.Contains(out, "s3cret") {
			t.Error("expected secret to be redacted")
		}
		if !strings.Contains(out, redacted) {
			t.Errorf("expected redaction marker, got %q", out)
		}
		if !strings.Contains(out, "Configuration is valid") {
			t.Errorf("expected valid config, got %q", out)
		}
	})

	t.Run("Show Reports Invalid Config", func(t *testing.T) {
		path := writeConfig(t, "[session]\nbackend = \"etcd\"\n")
		out, err := run(t, NewRunner(RunnerOpts{}), "config", "show", "--config", path, "--json")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out, "Configuration is invalid") || !strings.Contains(out, "etcd") {
			t.Errorf("expected validation failure, got %q", out)
		}
	})
}

func TestAuthCommands(t *testing.T) {
	t.Run("Memory Backend Is Rejected", func(t *testing.T) {
		path := writeConfig(t, "[session]\nbackend = \"memory\"\n")
		_, err := run(t, NewRunner(RunnerOpts{}), "auth", "status", "--config", path)
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("Status And Logout On SQLite", func(t *testing.T) {
		dir := t.TempDir()
		dbPath := filepath.Join(dir, "fitplay.db")
		path := writeConfig(t, "[session]\nbackend = \"sqlite\"\nid = \"cli-test\"\npath = \""+filepath.ToSlash(dbPath)+"\"\n")

		out, err := run(t, NewRunner(RunnerOpts{}), "auth", "status", "--config", path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out, "Not connected") {
			t.Errorf("expected not connected, got %q", out)
		}

		ctx := context.Background()
		cfg := shared.SessionConfig{Backend: "sqlite", Path: dbPath}
		store, closeStore, err := session.Open(ctx, cfg, "cli-test", shared.NewLogger(nil))
		if err != nil {
			t.Fatalf("failed to open store: %v", err)
		}
		tokens := auth.NewTokenStore(store, shared.NewLogger(nil))
		if err := tokens.Save(ctx, models.NewTokenSet("access", "refresh", 3600, time.Now())); err != nil {
			t.Fatalf("failed to save tokens: %v", err)
		}
		closeStore()

		out, err = run(t, NewRunner(RunnerOpts{}), "auth", "status", "--config", path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(out, "✓ Connected") || !strings.Contains(out, "cli-test") {
			t.Errorf("expected connected session, got %q", out)
		}

		if _, err := run(t, NewRunner(RunnerOpts{}), "auth", "logout", "--config", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out, _ = run(t, NewRunner(RunnerOpts{}), "auth", "status", "--config", path)
		if !strings.Contains(out, "Not connected") {
			t.Errorf("expected tokens cleared, got %q", out)
		}
	})
}
