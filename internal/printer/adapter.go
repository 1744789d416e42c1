package printer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/ariefcatur/telava-pos/internal/notify"
)

var (
	ErrNotConnected = errors.New("printer not connected")
	ErrEmptyPayload = errors.New("nothing to print")
)

type Device struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Driver is the device side: a way to find printers and open one.
type Driver interface {
	Scan(ctx context.Context) ([]Device, error)
	Open(ctx context.Context, address string) (Conn, error)
}

type Conn interface {
	Write(ctx context.Context, payload []byte) error
	Close() error
}

// Adapter holds at most one printer connection. Every failure is logged and
// turned into a notice; none of them reaches the sale that asked for a print.
type Adapter struct {
	driver  Driver
	notices notify.Notifier

	mu     sync.Mutex
	conn   Conn
	device Device
}

func NewAdapter(d Driver, n notify.Notifier) *Adapter {
	if n == nil {
		n = notify.Discard{}
	}
	return &Adapter{driver: d, notices: n}
}

// Scan lists reachable printers. A failed scan is an empty list.
func (a *Adapter) Scan(ctx context.Context) []Device {
	devs, err := a.driver.Scan(ctx)
	if err != nil {
		log.Printf("printer: scan: %v", err)
		a.notices.Notify(notify.Notice{Level: notify.LevelError, Title: "Error", Message: "Gagal scan printer"})
		return []Device{}
	}
	if len(devs) == 0 {
		a.notices.Notify(notify.Notice{Level: notify.LevelInfo, Title: "Info", Message: "Tidak ada printer ditemukan"})
		return []Device{}
	}
	return devs
}

// Connect replaces the current connection with one to address. On failure
// the adapter is left disconnected.
func (a *Adapter) Connect(ctx context.Context, address string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closeLocked()

	c, err := a.driver.Open(ctx, address)
	if err != nil {
		log.Printf("printer: connect %s: %v", address, err)
		a.notices.Notify(notify.Notice{Level: notify.LevelError, Title: "Error", Message: "Tidak bisa connect ke printer"})
		return fmt.Errorf("connect %s: %w", address, err)
	}
	a.conn = c
	a.device = Device{Name: address, Address: address}
	a.notices.Notify(notify.Notice{Level: notify.LevelSuccess, Title: "Sukses", Message: "Printer terhubung"})
	return nil
}

func (a *Adapter) Connected() (Device, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.device, a.conn != nil
}

func (a *Adapter) Disconnect() {
	a.mu.Lock()
	a.closeLocked()
	a.mu.Unlock()
}

// Print sends payload to the connected printer. A write failure drops the
// connection so the next attempt reconnects explicitly.
func (a *Adapter) Print(ctx context.Context, payload string) error {
	if payload == "" {
		return ErrEmptyPayload
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn == nil {
		a.notices.Notify(notify.Notice{Level: notify.LevelWarning, Title: "Printer", Message: "Printer belum terhubung"})
		return ErrNotConnected
	}
	if err := a.conn.Write(ctx, Encode(payload)); err != nil {
		log.Printf("printer: print to %s: %v", a.device.Address, err)
		a.notices.Notify(notify.Notice{Level: notify.LevelError, Title: "Printer", Message: "Gagal mencetak struk"})
		a.closeLocked()
		return fmt.Errorf("print: %w", err)
	}
	return nil
}

func (a *Adapter) closeLocked() {
	if a.conn == nil {
		return
	}
	if err := a.conn.Close(); err != nil {
		log.Printf("printer: close %s: %v", a.device.Address, err)
	}
	a.conn = nil
	a.device = Device{}
}
