// Package psu is the device management and safety layer for the
// high-voltage power supplies.
//
// It maps a logical PSU identity ("heinzinger", "fug") to a live hardware
// handle, checks every setpoint against the identity's static limits before
// anything is sent to hardware, tracks relay state according to what the
// hardware last confirmed, and owns the handle lifecycle.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                           Manager                            │
//	│                                                              │
//	│   identity ──▶ Device ──▶ HardwareHandle (driver package)    │
//	│                  │                                           │
//	│                  ├─ DeviceLimits (range checks)              │
//	│                  └─ RelayState (Unsupported / Off / On)      │
//	│                                                              │
//	│   Snapshot ──▶ StatusAggregator ──▶ API, telemetry, metrics  │
//	└──────────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - DeviceLimits: the safety envelope of one PSU class
//   - HardwareHandle, HardwareFactory: the contract a driver implements
//   - Device: one identity bound to its limits and (lazily) its handle
//   - Manager: registry of devices with single-flight connect and teardown
//   - StatusAggregator: the monitoring document built from Manager.Snapshot
//
// # Usage
//
//	mgr, err := psu.NewManager([]psu.DeviceConfig{
//	    {Identity: "heinzinger", Limits: psu.DeviceLimits{MaxVoltage: 30000, MaxCurrent: 2, MaxInputVoltage: 10}},
//	    {Identity: "fug", Limits: psu.DeviceLimits{MaxVoltage: 50000, MaxCurrent: 0.5, MaxInputVoltage: 10, HasRelay: true}},
//	}, factory)
//	if err != nil {
//	    return err
//	}
//	defer mgr.TeardownAll(context.Background())
//
//	ok, err := mgr.SetVoltage(ctx, "fug", 1000)
//	switch {
//	case errors.Is(err, psu.ErrOutOfRange):
//	    // rejected locally, hardware never saw it
//	case err != nil:
//	    return err
//	case !ok:
//	    // hardware declined the setpoint
//	}
//
// # Thread Safety
//
// Manager and Device are safe for concurrent use. Commands on one identity
// are serialised by a per-device mutex; different identities never contend.
// Concurrent first-use connects of one identity result in a single
// HardwareFactory.Open call whose outcome every caller shares.
package psu
