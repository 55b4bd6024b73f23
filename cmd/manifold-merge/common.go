package main

import (
	"time"

	"github.com/agentmesh/manifold/internal/mergeconfig"
	"github.com/agentmesh/manifold/internal/mergedrivers"
	"github.com/agentmesh/manifold/internal/objstore"
	"github.com/agentmesh/manifold/internal/validate"
	"github.com/agentmesh/manifold/internal/workspace"
	"github.com/agentmesh/manifold/pkg/mergeresult"
)

func newStore() objstore.Store {
	return objstore.NewGitStore(repoRoot)
}

func newBackend() workspace.Backend {
	return workspace.NewGitBackend(wsRoot())
}

func loadConfig() (*mergeconfig.Config, error) {
	return mergeconfig.Load(configPath())
}

func now() int64 { return time.Now().Unix() }

// exitErr wraps err with the process exit code spec.md §6 assigns it
// (invoked by RunE returns; cobra prints Error() and Execute maps the
// code via exitCodeForErr).
type exitErr struct {
	code int
	err  error
}

func (e *exitErr) Error() string { return e.err.Error() }
func (e *exitErr) Unwrap() error { return e.err }

func withExit(code mergeresult.ExitCode, err error) error {
	if err == nil {
		return nil
	}
	return &exitErr{code: int(code), err: err}
}

func exitCodeForErr(err error) int {
	if ee, ok := err.(*exitErr); ok {
		return ee.code
	}
	return int(mergeresult.ExitFailure)
}

// validateRunner and mergedriversRunner are the two distinct Runner
// shapes validate.Run and mergedrivers.Run each expect.
func validateRunner() validate.Runner     { return validate.ShellRunner{} }
func mergedriversRunner() mergedrivers.Runner { return mergedrivers.ShellRunner{} }
