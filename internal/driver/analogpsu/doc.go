// Package analogpsu drives high-voltage PSUs through the 16-bit analog
// interface board (USB VID 0xA0A0, PID 0x000C).
//
// The board exposes two DACs that feed the PSU's analog control inputs, an
// ADC bank that samples the PSU's monitor outputs, and one relay line. Every
// exchange is a single 32-byte frame written to the bulk OUT endpoint and a
// 32-byte status frame read back from the bulk IN endpoint.
//
// # Basic Usage
//
// Build a Factory from per-identity board selectors and hand it to the PSU
// manager:
//
//	factory, err := analogpsu.NewFactory(map[string]analogpsu.Selector{
//	    "heinzinger": {Index: 0},
//	    "fug":        {Index: 1},
//	}, analogpsu.WithTimeout(200*time.Millisecond))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	manager, err := psu.NewManager(configs, factory)
//
// # Board Discovery
//
// Boards are found through sysfs and ordered by bus and device number:
//
//	boards, err := analogpsu.FindBoards()
//	for _, b := range boards {
//	    fmt.Printf("%s bus=%d dev=%d serial=%s\n", b.DevNode, b.BusNum, b.DevNum, b.Serial)
//	}
//
// # Scaling
//
// Setpoints are converted to DAC codes against the board's 11.3 V full scale
// with a 2% headroom factor, and clamped to the PSU's control-input range.
// Readbacks use ADCB channel 2 for voltage and channel 3 for current.
//
// # Platform Support
//
// The USB transport uses Linux usbfs ioctls. On other platforms Open fails
// with ErrUnsupportedPlatform; the frame codec and scaling remain usable.
package analogpsu
