package execx

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/famish99/multiroomd/internal/errdefs"
)

func TestOS_Success(t *testing.T) {
	out, err := OS{}.Run(context.Background(), "/bin/sh", "-c", "echo hw:1,0; echo note >&2")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if string(out.Stdout) != "hw:1,0\n" || string(out.Stderr) != "note\n" {
		t.Errorf("unexpected output %q / %q", out.Stdout, out.Stderr)
	}
}

func TestOS_MissingBinary(t *testing.T) {
	_, err := OS{}.Run(context.Background(), "multiroomd-no-such-tool", "-l")
	if !errors.Is(err, errdefs.ErrToolUnavailable) {
		t.Fatalf("expected ErrToolUnavailable, got %v", err)
	}
	if !strings.Contains(err.Error(), "multiroomd-no-such-tool") {
		t.Errorf("error does not name the tool: %v", err)
	}
}

func TestOS_NonZeroExit(t *testing.T) {
	_, err := OS{}.Run(context.Background(), "/bin/sh", "-c", "echo oops >&2; exit 3")

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *ExitError, got %T: %v", err, err)
	}
	if exitErr.ExitCode != 3 {
		t.Errorf("exit code = %d, expected 3", exitErr.ExitCode)
	}
	if !strings.Contains(exitErr.Stderr, "oops") {
		t.Errorf("stderr not captured: %q", exitErr.Stderr)
	}
	if !strings.HasPrefix(exitErr.Command, "/bin/sh -c") {
		t.Errorf("unexpected command %q", exitErr.Command)
	}
	if !strings.HasSuffix(err.Error(), ": oops") {
		t.Errorf("error message does not end with stderr: %q", err.Error())
	}
}

func TestOS_Timeout(t *testing.T) {
	start := time.Now()
	_, err := OS{Timeout: 50 * time.Millisecond}.Run(context.Background(), "/bin/sh", "-c", "exec sleep 5")
	if err == nil {
		t.Fatal("expected the timed out tool to fail")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Run returned after %v, timeout not applied", elapsed)
	}
}

func TestRunnerFunc(t *testing.T) {
	var got []string
	r := RunnerFunc(func(_ context.Context, name string, args ...string) (Output, error) {
		got = append([]string{name}, args...)
		return Output{Stdout: []byte("ok")}, nil
	})
	out, err := r.Run(context.Background(), "amixer", "-c", "1", "scontrols")
	if err != nil || string(out.Stdout) != "ok" {
		t.Fatalf("unexpected result %q, %v", out.Stdout, err)
	}
	if strings.Join(got, " ") != "amixer -c 1 scontrols" {
		t.Errorf("runner received %v", got)
	}
}
