package analogpsu

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const (
	defaultSysfsRoot = "/sys/bus/usb/devices"
	defaultDevRoot   = "/dev/bus/usb"
)

// BoardInfo describes one enumerated interface board.
type BoardInfo struct {
	Port    string // sysfs port name, e.g. "1-1.2"
	BusNum  int
	DevNum  int
	DevNode string // usbfs node, e.g. /dev/bus/usb/001/004
	Serial  string
}

// FindBoards lists the attached interface boards in enumeration order.
func FindBoards() ([]BoardInfo, error) {
	return findBoards(defaultSysfsRoot, defaultDevRoot)
}

func findBoards(sysfsRoot, devRoot string) ([]BoardInfo, error) {
	entries, err := os.ReadDir(sysfsRoot)
	if err != nil {
		return nil, fmt.Errorf("analogpsu: read %s: %w", sysfsRoot, err)
	}

	var boards []BoardInfo
	for _, entry := range entries {
		name := entry.Name()
		// Interface directories ("1-1.2:1.0") and root hubs ("usb1") carry
		// no device descriptor of their own.
		if strings.Contains(name, ":") || strings.HasPrefix(name, "usb") {
			continue
		}

		dir := filepath.Join(sysfsRoot, name)
		vid, err := readHex(filepath.Join(dir, "idVendor"))
		if err != nil || vid != VendorID {
			continue
		}
		pid, err := readHex(filepath.Join(dir, "idProduct"))
		if err != nil || pid != ProductID {
			continue
		}
		bus, err := readInt(filepath.Join(dir, "busnum"))
		if err != nil {
			continue
		}
		dev, err := readInt(filepath.Join(dir, "devnum"))
		if err != nil {
			continue
		}

		serial, _ := readString(filepath.Join(dir, "serial"))
		boards = append(boards, BoardInfo{
			Port:    name,
			BusNum:  bus,
			DevNum:  dev,
			DevNode: filepath.Join(devRoot, fmt.Sprintf("%03d", bus), fmt.Sprintf("%03d", dev)),
			Serial:  serial,
		})
	}

	sort.Slice(boards, func(i, j int) bool {
		if boards[i].BusNum != boards[j].BusNum {
			return boards[i].BusNum < boards[j].BusNum
		}
		return boards[i].DevNum < boards[j].DevNum
	})
	return boards, nil
}

// Selector picks one board for an identity. A non-empty USBPath matches a
// board's DevNode or sysfs Port name and takes precedence over Index.
type Selector struct {
	Index   int
	USBPath string
}

func (s Selector) String() string {
	if s.USBPath != "" {
		return "path " + s.USBPath
	}
	return "index " + strconv.Itoa(s.Index)
}

// pick returns the board the selector names.
func (s Selector) pick(boards []BoardInfo) (BoardInfo, bool) {
	if s.USBPath != "" {
		for _, b := range boards {
			if b.DevNode == s.USBPath || b.Port == s.USBPath {
				return b, true
			}
		}
		return BoardInfo{}, false
	}
	if s.Index < 0 || s.Index >= len(boards) {
		return BoardInfo{}, false
	}
	return boards[s.Index], true
}

func readString(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func readHex(path string) (uint64, error) {
	s, err := readString(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(s, 16, 16)
}

func readInt(path string) (int, error) {
	s, err := readString(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(s)
}
