package loralink

import (
	"errors"
	"time"

	"periph.io/x/conn/v3/driver/driverreg"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

var errPinMissing = errors.New("sx127x: pin not found")

// HardwareConfig fixes the board wiring and operating frequency for the
// SX127x backend. These are deployment constants; zero fields take the
// defaults below, matching the original board layout.
type HardwareConfig struct {
	// SPIDev is the SPI port name; empty selects the first available port.
	SPIDev string

	// Pin names as understood by the host's GPIO registry.
	CSPin    string   // chip select, floated on deinit
	DIO0Pin  string   // rx-done / tx-done interrupt
	ResetPin string   // power-cycle line
	AuxPins  []string // auxiliary enable lines driven high on init

	// FrequencyHz is the fixed operating frequency.
	FrequencyHz uint64

	// TxTimeout bounds the wait for a transmitted packet to clear the air.
	TxTimeout time.Duration
}

func (c HardwareConfig) withDefaults() HardwareConfig {
	if c.CSPin == "" {
		c.CSPin = "GPIO10"
	}
	if c.DIO0Pin == "" {
		c.DIO0Pin = "GPIO2"
	}
	if c.ResetPin == "" {
		c.ResetPin = "GPIO9"
	}
	if c.AuxPins == nil {
		c.AuxPins = []string{"GPIO3", "GPIO5"}
	}
	if c.FrequencyHz == 0 {
		c.FrequencyHz = 915000000
	}
	if c.TxTimeout == 0 {
		c.TxTimeout = 2 * time.Second
	}
	return c
}

// sx127x drives the radio chip over SPI. It implements transport.
type sx127x struct {
	conn spi.Conn
	dio0 gpio.PinIO
	rst  gpio.PinIO
	cs   gpio.PinIO
	aux  []gpio.PinIO

	freqHz    uint64
	txTimeout time.Duration
	rssi      int16
}

// OpenSX127x resolves the SPI port and GPIO lines for the radio chip and
// returns the Radio owning it. The chip is not powered up until Init; the
// returned handle is reused across init/deinit cycles.
func OpenSX127x(cfg HardwareConfig) (*Radio, error) {
	cfg = cfg.withDefaults()

	if _, err := host.Init(); err != nil {
		return nil, err
	}
	if _, err := driverreg.Init(); err != nil {
		return nil, err
	}

	p, err := spireg.Open(cfg.SPIDev)
	if err != nil {
		return nil, err
	}
	c, err := p.Connect(8*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		p.Close()
		return nil, err
	}

	dio0 := gpioreg.ByName(cfg.DIO0Pin)
	if dio0 == nil {
		return nil, errPinMissing
	}
	if err := dio0.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return nil, err
	}

	rst := gpioreg.ByName(cfg.ResetPin)
	if rst == nil {
		return nil, errPinMissing
	}
	cs := gpioreg.ByName(cfg.CSPin)
	if cs == nil {
		return nil, errPinMissing
	}

	aux := make([]gpio.PinIO, 0, len(cfg.AuxPins))
	for _, name := range cfg.AuxPins {
		pin := gpioreg.ByName(name)
		if pin == nil {
			return nil, errPinMissing
		}
		aux = append(aux, pin)
	}

	return &Radio{t: &sx127x{
		conn:      c,
		dio0:      dio0,
		rst:       rst,
		cs:        cs,
		aux:       aux,
		freqHz:    cfg.FrequencyHz,
		txTimeout: cfg.TxTimeout,
		rssi:      rssiSentinel,
	}}, nil
}

func (d *sx127x) init() RC {
	for _, pin := range d.aux {
		if err := pin.Out(gpio.High); err != nil {
			return InitFailed
		}
	}
	// Reclaim the select line in case a previous deinit floated it.
	if err := d.cs.Out(gpio.High); err != nil {
		return InitFailed
	}
	if d.reset() != nil {
		return InitFailed
	}

	v, err := d.readReg(regVersion)
	if err != nil || v != chipVersion {
		return InitFailed
	}

	if err := d.setMode(modeSleep); err != nil {
		return InitFailed
	}
	if err := d.writeReg(regFifoTxBaseAddr, 0); err != nil {
		return InitFailed
	}
	if err := d.writeReg(regFifoRxBaseAddr, 0); err != nil {
		return InitFailed
	}
	if err := d.setLnaBoost(); err != nil {
		return InitFailed
	}
	if err := d.writeReg(regModemConfig3, agcAutoOn); err != nil {
		return InitFailed
	}
	if err := d.setMode(modeStandby); err != nil {
		return InitFailed
	}

	if err := d.setFrequency(d.freqHz); err != nil {
		return SetFrequencyFailed
	}
	return Okay
}

// deinit forfeits the SPI select line so another bus master can claim the
// chip. The driver handle itself stays valid for a later init.
func (d *sx127x) deinit() RC {
	if err := d.cs.In(gpio.Float, gpio.NoEdge); err != nil {
		return DeinitFailed
	}
	return Okay
}

func (d *sx127x) send(p []byte) RC {
	if len(p) == 0 || len(p) > PacketMaxSize {
		return SendFailed
	}

	// Refuse while a previous transmission is still in flight.
	mode, err := d.readReg(regOpMode)
	if err != nil || opMode(mode)&modeMask == modeTx {
		return SendFailed
	}

	if err := d.setMode(modeStandby); err != nil {
		return SendFailed
	}
	if _, err := d.clearIrqFlags(); err != nil {
		return SendFailed
	}
	if err := d.writeReg(regFifoAddrPtr, 0); err != nil {
		return SendFailed
	}
	if err := d.writeReg(regPayloadLength, byte(len(p))); err != nil {
		return SendFailed
	}
	if err := d.writeReg(regFifo, p...); err != nil {
		return SendFailed
	}
	if err := d.writeReg(regDioMapping1, dioMapTxDone); err != nil {
		return SendFailed
	}

	// Arm the edge wait before triggering TX so the done interrupt cannot
	// be missed.
	done := make(chan bool, 1)
	go func() { done <- d.dio0.WaitForEdge(d.txTimeout) }()

	if err := d.setMode(modeTx); err != nil {
		return SendFailed
	}

	if !<-done {
		irq, err := d.readReg(regIrqFlags)
		if err != nil || irq&irqTxDoneMask == 0 {
			return TimedOut
		}
	}

	d.writeReg(regIrqFlags, irqTxDoneMask)
	d.setMode(modeStandby)
	return Okay
}

func (d *sx127x) recvTimeout(buf []byte, timeout time.Duration) (int, RC) {
	if _, err := d.clearIrqFlags(); err != nil {
		return 0, RecvFailed
	}
	if err := d.writeReg(regDioMapping1, dioMapRxDone); err != nil {
		return 0, RecvFailed
	}
	if err := d.setMode(modeRxContinuous); err != nil {
		return 0, RecvFailed
	}
	defer d.setMode(modeStandby)

	wait := timeout
	if wait == 0 {
		wait = -1 // block until a packet arrives
	}
	if !d.dio0.WaitForEdge(wait) {
		// The edge may have fired before the wait armed.
		irq, err := d.readReg(regIrqFlags)
		if err != nil || irq&irqRxDoneMask == 0 {
			if timeout == 0 {
				// An unbounded wait only aborts on a dead pin.
				return 0, RecvFailed
			}
			return 0, TimedOut
		}
	}

	irq, err := d.clearIrqFlags()
	if err != nil {
		return 0, RecvFailed
	}
	if irq&irqPayloadCrcErrorMask != 0 {
		return 0, RecvFailed
	}

	n, err := d.fetchPayload(buf)
	if err != nil {
		return 0, RecvFailed
	}

	if raw, err := d.readReg(regPktRssiValue); err == nil {
		d.rssi = pktRSSI(raw, d.freqHz)
	}
	return n, Okay
}

func (d *sx127x) lastRSSI() int16 { return d.rssi }

// reset drives the chip through its power-on pulse with the datasheet settle
// delays.
func (d *sx127x) reset() error {
	if err := d.rst.Out(gpio.High); err != nil {
		return err
	}
	if err := d.rst.Out(gpio.Low); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)
	if err := d.rst.Out(gpio.High); err != nil {
		return err
	}
	time.Sleep(10 * time.Millisecond)
	return nil
}

func (d *sx127x) setMode(m opMode) error {
	return d.writeReg(regOpMode, byte(modeLongRange|m))
}

func (d *sx127x) setFrequency(freqHz uint64) error {
	msb, mid, lsb := frfBytes(freqHz)
	if err := d.writeReg(regFrfMsb, msb); err != nil {
		return err
	}
	if err := d.writeReg(regFrfMid, mid); err != nil {
		return err
	}
	return d.writeReg(regFrfLsb, lsb)
}

func (d *sx127x) setLnaBoost() error {
	lna, err := d.readReg(regLna)
	if err != nil {
		return err
	}
	return d.writeReg(regLna, lna|0x03)
}

// fetchPayload copies the received packet out of the FIFO into buf and
// returns how many bytes were copied.
func (d *sx127x) fetchPayload(buf []byte) (int, error) {
	nb, err := d.readReg(regRxNbBytes)
	if err != nil {
		return 0, err
	}
	rxAddr, err := d.readReg(regFifoRxCurrentAddr)
	if err != nil {
		return 0, err
	}
	if err := d.writeReg(regFifoAddrPtr, rxAddr); err != nil {
		return 0, err
	}

	n := int(nb)
	if n > len(buf) {
		n = len(buf)
	}
	payload, err := d.readRegN(regFifo, n)
	if err != nil {
		return 0, err
	}
	copy(buf, payload)
	return n, nil
}

func (d *sx127x) clearIrqFlags() (byte, error) {
	irq, err := d.readReg(regIrqFlags)
	if err != nil {
		return 0, err
	}
	return irq, d.writeReg(regIrqFlags, irq)
}

func (d *sx127x) readReg(reg register) (byte, error) {
	w := []byte{byte(reg) & 0x7f, 0x00}
	r := make([]byte, len(w))
	if err := d.conn.Tx(w, r); err != nil {
		return 0, err
	}
	return r[1], nil
}

func (d *sx127x) readRegN(reg register, n int) ([]byte, error) {
	w := append([]byte{byte(reg) & 0x7f}, make([]byte, n)...)
	r := make([]byte, len(w))
	if err := d.conn.Tx(w, r); err != nil {
		return nil, err
	}
	return r[1:], nil
}

func (d *sx127x) writeReg(reg register, bytes ...byte) error {
	return d.conn.Tx(append([]byte{byte(reg) | 0x80}, bytes...), make([]byte, len(bytes)+1))
}

// frfBytes converts a carrier frequency to the chip's 24-bit FRF register
// value: freq * 2^19 / crystal.
func frfBytes(freqHz uint64) (msb, mid, lsb byte) {
	frf := (freqHz << 19) / crystalHz
	return byte(frf >> 16), byte(frf >> 8), byte(frf)
}

// pktRSSI converts the raw packet RSSI register to dBm using the port offset
// for the configured band.
func pktRSSI(raw byte, freqHz uint64) int16 {
	if freqHz < midBandThresholdHz {
		return int16(raw) - rssiOffsetLF
	}
	return int16(raw) - rssiOffsetHF
}
