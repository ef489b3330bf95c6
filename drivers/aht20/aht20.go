// Package aht20 drives the AHT20 temperature/humidity sensor. It exposes a
// two-phase measurement API:
//
//	d.Trigger(ctx)             // start a measurement (fast)
//	err := d.Collect(ctx, &s)  // fetch when ready; returns ErrNotReady while busy
//
// For convenience, d.Read(ctx) performs trigger + bounded polling until ready.
//
// The sensor's exchanges are described as reusable conversation templates
// and executed by whatever Conversationalist the device is bound to; the
// driver itself never touches the bus.
//
// The driver avoids floating-point on the hot path; fixed-point helpers
// return tenths of units (deci-°C and deci-%RH).
package aht20

import (
	"context"
	"errors"
	"time"

	"pinhal-go/conversation"
)

// Address is the sensor's fixed I2C address, for binding the bus master.
const Address = 0x38

// Commands and status bits (per datasheet/common driver practice).
const (
	cmdTrigger    = 0xAC
	cmdInitialize = 0xBE
	cmdSoftReset  = 0xBA
	cmdStatus     = 0x71

	statusBusy       = 0x80
	statusCalibrated = 0x08
)

// Errors returned by the driver.
var (
	ErrTimeout  = errors.New("aht20: timeout")
	ErrNotReady = errors.New("aht20: not ready")
	ErrBadCRC   = errors.New("aht20: crc mismatch")
)

// Config controls non-hardware behaviour. All fields are optional.
type Config struct {
	// PollInterval is used by Read() between Collect() attempts. Default 15 ms.
	PollInterval time.Duration
	// CollectTimeout bounds the total wait in Read(). Default 250 ms.
	CollectTimeout time.Duration
	// TriggerHint is the nominal conversion time to wait before the first
	// Collect. Default 80 ms.
	TriggerHint time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 15 * time.Millisecond
	}
	if c.CollectTimeout <= 0 {
		c.CollectTimeout = 250 * time.Millisecond
	}
	if c.TriggerHint <= 0 {
		c.TriggerHint = 80 * time.Millisecond
	}
	return c
}

// Device holds the conversation templates for one AHT20. The templates are
// built once and re-executed; the device is not safe for concurrent use.
type Device struct {
	talk conversation.Conversationalist // the bus master executing our scripts
	cfg  Config

	trigger *conversation.Conversation
	collect *conversation.Conversation
	status  *conversation.Conversation
	initSeq *conversation.Conversation
	reset   *conversation.Conversation

	humidity uint32 // last raw humidity sample
	temp     uint32 // last raw temperature sample
}

// New builds the device and its transaction templates. The Conversationalist
// must already be bound to the sensor's address (see busmaster.NewI2C).
func New(talk conversation.Conversationalist, cfgs ...Config) *Device {
	d := &Device{talk: talk}
	if len(cfgs) > 0 {
		d.cfg = cfgs[0].withDefaults()
	} else {
		d.cfg = Config{}.withDefaults()
	}

	d.trigger = conversation.New()
	mustAppend(d.trigger.AddOutputVector(), cmdTrigger, 0x33, 0x00)

	d.collect = conversation.New()
	d.collect.AddInputVector(7)

	d.status = conversation.New()
	mustAppend(d.status.AddOutputVector(), cmdStatus)
	d.status.AddInputVector(1)

	d.initSeq = conversation.New()
	mustAppend(d.initSeq.AddOutputVector(), cmdInitialize, 0x08, 0x00)

	d.reset = conversation.New()
	mustAppend(d.reset.AddOutputVector(), cmdSoftReset)

	return d
}

// mustAppend: template construction on owned output vectors cannot fail.
func mustAppend(v *conversation.Vector, bytes ...byte) {
	if err := v.AppendBytes(bytes); err != nil {
		panic(err)
	}
}

// Configure initialises the sensor if its calibration bit is clear. Safe to
// call repeatedly.
func (d *Device) Configure(ctx context.Context) error {
	st, err := d.Status(ctx)
	if err == nil && st&statusCalibrated != 0 {
		return nil
	}
	// Force initialisation; tolerate devices that do not ACK immediately.
	_ = d.converse(ctx, d.initSeq)
	time.Sleep(10 * time.Millisecond)
	return nil
}

// Reset issues a soft reset. Give the device ~20ms afterwards before using.
func (d *Device) Reset(ctx context.Context) error {
	return d.converse(ctx, d.reset)
}

// Status reads and returns the status byte.
func (d *Device) Status(ctx context.Context) (byte, error) {
	if err := d.converse(ctx, d.status); err != nil {
		return 0, err
	}
	return conversation.NewExtractor(d.status).ReadByte()
}

// Trigger starts a measurement. It is a quick command write with no blocking;
// after Trigger the device needs TriggerHint before Collect succeeds.
func (d *Device) Trigger(ctx context.Context) error {
	return d.converse(ctx, d.trigger)
}

// TriggerHint returns the nominal conversion time.
func (d *Device) TriggerHint() time.Duration { return d.cfg.TriggerHint }

// Collect reads one measurement into the device cache and, if non-nil, out.
// Returns ErrNotReady while the conversion is still running and ErrBadCRC
// when the frame checksum fails.
func (d *Device) Collect(ctx context.Context, out *Sample) error {
	if err := d.converse(ctx, d.collect); err != nil {
		return err
	}
	var data [7]byte
	if err := conversation.NewExtractor(d.collect).Read(data[:]); err != nil {
		return err
	}
	if (data[0]&statusCalibrated) == 0 || (data[0]&statusBusy) != 0 {
		return ErrNotReady
	}
	if crc8(data[:6]) != data[6] {
		return ErrBadCRC
	}
	hraw := (uint32(data[1]) << 12) | (uint32(data[2]) << 4) | (uint32(data[3]) >> 4)
	traw := (uint32(data[3]&0x0F) << 16) | (uint32(data[4]) << 8) | uint32(data[5])

	d.humidity, d.temp = hraw, traw
	if out != nil {
		out.RawHumidity, out.RawTemp = hraw, traw
	}
	return nil
}

// Read performs a full measurement cycle: Trigger followed by bounded
// polling until Collect succeeds or the timeout elapses.
func (d *Device) Read(ctx context.Context) error {
	if err := d.Trigger(ctx); err != nil {
		return err
	}
	time.Sleep(d.cfg.TriggerHint)
	deadline := time.Now().Add(d.cfg.CollectTimeout)
	for {
		var s Sample
		err := d.Collect(ctx, &s)
		switch err {
		case nil:
			return nil
		case ErrNotReady:
			if time.Now().After(deadline) {
				return ErrTimeout
			}
			time.Sleep(d.cfg.PollInterval)
		default:
			return err
		}
	}
}

// converse resets and executes one template.
func (d *Device) converse(ctx context.Context, c *conversation.Conversation) error {
	c.Reset()
	return d.talk.Converse(ctx, c)
}

// crc8 is the sensor's frame checksum: poly 0x31, init 0xFF.
func crc8(data []byte) byte {
	crc := byte(0xFF)
	for _, b := range data {
		crc ^= b
		for i := 0; i < 8; i++ {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

// Sample holds raw readings.
type Sample struct {
	RawHumidity uint32
	RawTemp     uint32
}

// DeciRelHumidity returns tenths of %RH.
func (s Sample) DeciRelHumidity() int32 {
	return (int32(s.RawHumidity) * 1000) / 0x100000
}

// DeciCelsius returns tenths of °C.
func (s Sample) DeciCelsius() int32 {
	return ((int32(s.RawTemp) * 2000) / 0x100000) - 500
}

// Cached accessors (operate on the last collected sample).

func (d *Device) RawHumidity() uint32 { return d.humidity }
func (d *Device) RawTemp() uint32     { return d.temp }

// DeciRelHumidity returns tenths of %RH from the cached sample.
func (d *Device) DeciRelHumidity() int32 {
	return Sample{RawHumidity: d.humidity}.DeciRelHumidity()
}

// DeciCelsius returns tenths of °C from the cached sample.
func (d *Device) DeciCelsius() int32 {
	return Sample{RawTemp: d.temp}.DeciCelsius()
}
