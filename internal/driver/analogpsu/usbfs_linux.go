//go:build linux

package analogpsu

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/nerrad567/hvpsu/internal/psu"
)

// usbdevfs_bulktransfer from linux/usbdevice_fs.h
type bulkTransfer struct {
	ep      uint32
	length  uint32
	timeout uint32 // milliseconds
	data    unsafe.Pointer
}

// usbdevfs_ioctl from linux/usbdevice_fs.h
type usbIoctl struct {
	ifno int32
	code int32
	data unsafe.Pointer
}

func ioc(dir, typ, nr, size uintptr) uintptr {
	return dir<<30 | size<<16 | typ<<8 | nr
}

const (
	iocNone  = 0
	iocWrite = 1
	iocRead  = 2
)

var (
	usbdevfsBulk             = ioc(iocRead|iocWrite, 'U', 2, unsafe.Sizeof(bulkTransfer{}))
	usbdevfsClaimInterface   = ioc(iocRead, 'U', 15, 4)
	usbdevfsReleaseInterface = ioc(iocRead, 'U', 16, 4)
	usbdevfsIoctl            = ioc(iocRead|iocWrite, 'U', 18, unsafe.Sizeof(usbIoctl{}))
	usbdevfsDisconnect       = ioc(iocNone, 'U', 22, 0)
)

// usbfsDevice is a claimed interface on a /dev/bus/usb node.
type usbfsDevice struct {
	mu     sync.Mutex
	fd     int
	cfg    Config
	closed bool
}

var _ Bulk = (*usbfsDevice)(nil)

// openUSBFS opens a usbfs device node and claims the configured interface,
// detaching a bound kernel driver if necessary.
func openUSBFS(path string, cfg Config) (Bulk, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		switch {
		case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ENODEV):
			return nil, fmt.Errorf("%w: %s", psu.ErrHardwareNotFound, path)
		case errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return nil, fmt.Errorf("analogpsu: open %s: %w", path, err)
	}

	d := &usbfsDevice{fd: fd, cfg: cfg}
	if err := d.claim(); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return d, nil
}

func (d *usbfsDevice) ioctl(req uintptr, arg unsafe.Pointer) (uintptr, error) {
	r, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), req, uintptr(arg))
	if errno != 0 {
		return 0, errno
	}
	return r, nil
}

func (d *usbfsDevice) claim() error {
	iface := uint32(d.cfg.Interface)
	_, err := d.ioctl(usbdevfsClaimInterface, unsafe.Pointer(&iface))
	if errors.Is(err, unix.EBUSY) {
		req := usbIoctl{ifno: int32(iface), code: int32(usbdevfsDisconnect)}
		if _, derr := d.ioctl(usbdevfsIoctl, unsafe.Pointer(&req)); derr != nil && !errors.Is(derr, unix.ENODATA) {
			return fmt.Errorf("%w: interface %d: detach kernel driver: %v", ErrInterfaceBusy, iface, derr)
		}
		_, err = d.ioctl(usbdevfsClaimInterface, unsafe.Pointer(&iface))
	}
	if err != nil {
		if errors.Is(err, unix.EBUSY) {
			return fmt.Errorf("%w: interface %d", ErrInterfaceBusy, iface)
		}
		return fmt.Errorf("analogpsu: claim interface %d: %w", iface, err)
	}
	return nil
}

// transfer performs one bulk ioctl and returns the byte count moved.
func (d *usbfsDevice) transfer(ep uint8, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	xfer := bulkTransfer{
		ep:      uint32(ep),
		length:  uint32(len(buf)),
		timeout: uint32(d.cfg.Timeout / time.Millisecond),
		data:    unsafe.Pointer(&buf[0]),
	}
	n, err := d.ioctl(usbdevfsBulk, unsafe.Pointer(&xfer))
	runtime.KeepAlive(buf)
	if err != nil {
		switch {
		case errors.Is(err, unix.ETIMEDOUT):
			return 0, ErrTimeout
		case errors.Is(err, unix.ENODEV), errors.Is(err, unix.ESHUTDOWN):
			return 0, ErrDeviceGone
		}
		return 0, err
	}
	return int(n), nil
}

func (d *usbfsDevice) bulk(op string, ep uint8, buf []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}

	done := 0
	var last error
	for attempt := 0; attempt < d.cfg.Attempts && done < len(buf); attempt++ {
		if attempt > 0 {
			time.Sleep(d.cfg.RetryDelay)
		}
		n, err := d.transfer(ep, buf[done:])
		if err != nil {
			last = err
			if errors.Is(err, ErrDeviceGone) {
				break
			}
			continue
		}
		done += n
	}
	if done != len(buf) {
		return &TransferError{Op: op, Endpoint: ep, Done: done, Want: len(buf), Err: last}
	}
	return nil
}

// BulkOut writes data to the OUT endpoint.
func (d *usbfsDevice) BulkOut(data []byte) error {
	return d.bulk("write", d.cfg.OutEndpoint, data)
}

// BulkIn fills buf from the IN endpoint.
func (d *usbfsDevice) BulkIn(buf []byte) error {
	return d.bulk("read", d.cfg.InEndpoint, buf)
}

// Close releases the interface and the device node. A device that already
// vanished from the bus closes without error.
func (d *usbfsDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	iface := uint32(d.cfg.Interface)
	_, rerr := d.ioctl(usbdevfsReleaseInterface, unsafe.Pointer(&iface))
	cerr := unix.Close(d.fd)
	d.fd = -1

	if rerr != nil && !errors.Is(rerr, unix.ENODEV) {
		return fmt.Errorf("analogpsu: release interface %d: %w", iface, rerr)
	}
	if cerr != nil {
		return fmt.Errorf("analogpsu: close: %w", cerr)
	}
	return nil
}
