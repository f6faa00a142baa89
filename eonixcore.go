// Package eonixcore is the small top-level façade spec.md §6 describes:
// collaborators that only need the scheduler's external contract --
// spawn a task, join it, ask who is currently running -- import this
// package instead of reaching into internal/sched directly.
package eonixcore

import "eonixcore/internal/sched"

// Runtime owns one ready queue and scheduler context per hart.
type Runtime = sched.Runtime

// Task is one schedulable unit spawned on a Runtime.
type Task = sched.Task

// JoinHandle is returned by Spawn/SpawnStackless; Join waits for the
// task's result.
type JoinHandle = sched.JoinHandle

// Future is the stackless executor's pollable unit of work.
type Future = sched.Future

// NewRuntime constructs a Runtime serving nharts harts.
func NewRuntime(nharts int) *Runtime { return sched.NewRuntime(nharts) }
