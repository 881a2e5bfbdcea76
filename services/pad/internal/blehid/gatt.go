package blehid

import (
	"sync"
	"sync/atomic"

	"tinygo.org/x/bluetooth"

	"gamepad-go/errcode"
	"gamepad-go/x/logx"
)

// GATT UUIDs of the HID service (Bluetooth assigned numbers).
var (
	uuidHIDService      = bluetooth.New16BitUUID(0x1812)
	uuidHIDInformation  = bluetooth.New16BitUUID(0x2A4A)
	uuidReportMap       = bluetooth.New16BitUUID(0x2A4B)
	uuidHIDControlPoint = bluetooth.New16BitUUID(0x2A4C)
	uuidReport          = bluetooth.New16BitUUID(0x2A4D)
	uuidProtocolMode    = bluetooth.New16BitUUID(0x2A4E)
)

// hidInfo: bcdHID 1.11, country 0, flags RemoteWake|NormallyConnectable.
var hidInfo = []byte{0x11, 0x01, 0x00, 0x03}

// Device is a BLE HID gamepad. Its methods are not safe for concurrent use
// except IsConnected; the pad's HID sink serialises calls.
type Device struct {
	adapter *bluetooth.Adapter
	name    string

	report    bluetooth.Characteristic
	control   bluetooth.Characteristic
	protocol  bluetooth.Characteristic
	state     Report
	buf       []byte
	connected atomic.Bool
	advMu     sync.Mutex
	adv       *bluetooth.Advertisement
}

func New(adapter *bluetooth.Adapter, name string) *Device {
	return &Device{adapter: adapter, name: name, buf: make([]byte, 0, ReportLen)}
}

// Start enables the adapter, registers the HID service and begins
// advertising.
func (d *Device) Start() error {
	const op = "blehid.start"
	if err := d.adapter.Enable(); err != nil {
		return errcode.Wrap(errcode.TransportFailure, op, "enable adapter", err)
	}
	d.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		d.connected.Store(connected)
		if connected {
			logx.Info(logx.ComponentHID, "host connected", "addr", device.Address.String())
			return
		}
		logx.Info(logx.ComponentHID, "host disconnected, advertising", "addr", device.Address.String())
		d.advertise()
	})

	err := d.adapter.AddService(&bluetooth.Service{
		UUID: uuidHIDService,
		Characteristics: []bluetooth.CharacteristicConfig{
			{UUID: uuidHIDInformation, Value: hidInfo, Flags: bluetooth.CharacteristicReadPermission},
			{UUID: uuidReportMap, Value: ReportMap, Flags: bluetooth.CharacteristicReadPermission},
			{
				Handle: &d.control,
				UUID:   uuidHIDControlPoint,
				Value:  []byte{0},
				Flags:  bluetooth.CharacteristicWriteWithoutResponsePermission,
			},
			{
				Handle: &d.protocol,
				UUID:   uuidProtocolMode,
				Value:  []byte{1}, // report protocol
				Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicWriteWithoutResponsePermission,
			},
			{
				Handle: &d.report,
				UUID:   uuidReport,
				Value:  make([]byte, ReportLen),
				Flags:  bluetooth.CharacteristicReadPermission | bluetooth.CharacteristicNotifyPermission,
			},
		},
	})
	if err != nil {
		return errcode.Wrap(errcode.TransportFailure, op, "add hid service", err)
	}

	adv := d.adapter.DefaultAdvertisement()
	if err := adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    d.name,
		ServiceUUIDs: []bluetooth.UUID{uuidHIDService},
	}); err != nil {
		return errcode.Wrap(errcode.TransportFailure, op, "configure advertisement", err)
	}
	d.advMu.Lock()
	d.adv = adv
	d.advMu.Unlock()
	if err := adv.Start(); err != nil {
		return errcode.Wrap(errcode.TransportFailure, op, "start advertisement", err)
	}
	logx.Info(logx.ComponentHID, "advertising", "name", d.name)
	return nil
}

func (d *Device) advertise() {
	d.advMu.Lock()
	adv := d.adv
	d.advMu.Unlock()
	if adv == nil {
		return
	}
	if err := adv.Start(); err != nil {
		logx.Debug(logx.ComponentHID, "advertising restart", "err", err)
	}
}

func (d *Device) Press(code uint8)     { d.state.Press(code) }
func (d *Device) Release(code uint8)   { d.state.Release(code) }
func (d *Device) SetThrottle(v uint16) { d.state.Throttle = v }
func (d *Device) SetBrake(v uint16)    { d.state.Brake = v }
func (d *Device) IsConnected() bool    { return d.connected.Load() }

// SendReport notifies the host of the current state.
func (d *Device) SendReport() error {
	if !d.connected.Load() {
		return errcode.NotConnected
	}
	d.buf = d.state.AppendBinary(d.buf[:0])
	if _, err := d.report.Write(d.buf); err != nil {
		return errcode.Wrap(errcode.TransportFailure, "blehid.send", "", err)
	}
	return nil
}
