package main

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strconv"
	"testing"
)

func stubExecute(t *testing.T, fn func(context.Context, []string) error, mapper func(error) int) {
	t.Helper()
	origExec, origMap, origTerminate := executeCmd, mapExitCode, terminate
	t.Cleanup(func() {
		executeCmd, mapExitCode, terminate = origExec, origMap, origTerminate
	})
	executeCmd = fn
	if mapper != nil {
		mapExitCode = mapper
	}
}

func TestRunSuccess(t *testing.T) {
	var gotArgs []string
	stubExecute(t, func(_ context.Context, args []string) error {
		gotArgs = append([]string(nil), args...)
		return nil
	}, func(error) int {
		t.Fatal("mapExitCode should not be called on success")
		return 99
	})

	if code := run([]string{"users", "get", "1"}); code != 0 {
		t.Fatalf("run() code = %d, want 0", code)
	}
	if len(gotArgs) != 3 || gotArgs[0] != "users" || gotArgs[2] != "1" {
		t.Fatalf("args = %v", gotArgs)
	}
}

func TestRunMapsErrors(t *testing.T) {
	executeErr := errors.New("boom")
	stubExecute(t, func(context.Context, []string) error { return executeErr }, func(err error) int {
		if !errors.Is(err, executeErr) {
			t.Fatalf("mapExitCode got %v, want %v", err, executeErr)
		}
		return 9
	})

	if code := run([]string{"friends", "ids"}); code != 9 {
		t.Fatalf("run() code = %d, want 9", code)
	}
}

func TestRunExitErrorUsesProcessExitCode(t *testing.T) {
	exitErr := createExitError(t, 7)
	stubExecute(t, func(context.Context, []string) error { return exitErr }, func(error) int {
		t.Fatal("mapExitCode should not be called for ExitError")
		return 99
	})

	if code := run(nil); code != 7 {
		t.Fatalf("run() code = %d, want 7", code)
	}
}

func TestMainTerminatesWithRunCode(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	var gotArgs []string
	stubExecute(t, func(_ context.Context, args []string) error {
		gotArgs = args
		return errors.New("boom")
	}, func(error) int { return 3 })

	gotCode := -1
	terminate = func(code int) { gotCode = code }

	os.Args = []string{"vk", "auth", "status"}
	main()

	if gotCode != 3 {
		t.Fatalf("terminate code = %d, want 3", gotCode)
	}
	if len(gotArgs) != 2 || gotArgs[0] != "auth" {
		t.Fatalf("args = %v", gotArgs)
	}
}

func createExitError(t *testing.T, code int) *exec.ExitError {
	t.Helper()
	err := exec.Command("sh", "-c", "exit "+strconv.Itoa(code)).Run()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected *exec.ExitError, got %T", err)
	}
	return exitErr
}
