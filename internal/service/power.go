package service

import "runtime"

// PowerMonitor reports the host power state the worker-pool supervisor
// sizes itself against. No corpus library reads real AC/battery or P-core/E-core
// state (that's IOKit/cgo territory this module doesn't bind), so the
// default implementation is a deterministic stub — always-AC, every
// core counted as a "base" core — that still exercises the
// reconciliation and priority-change logic a real monitor would drive.
type PowerMonitor interface {
	// OnACPower reports whether the host is currently powered, as
	// opposed to running on battery or in a low-power mode.
	OnACPower() bool
	// BaseWorkerCount returns the core count the supervisor should treat
	// as this power state's "base" — all cores on AC, efficiency cores
	// only on battery/low-power.
	BaseWorkerCount() int
}

// StaticPowerMonitor always reports AC power with every logical core
// counted as a base core.
type StaticPowerMonitor struct{}

func NewStaticPowerMonitor() *StaticPowerMonitor { return &StaticPowerMonitor{} }

func (StaticPowerMonitor) OnACPower() bool { return true }

func (StaticPowerMonitor) BaseWorkerCount() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return 1
}
