// Package panel drives an ST7789 SPI TFT through periph.io.
package panel

import (
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// ST7789 commands.
const (
	cmdSWRESET = 0x01
	cmdSLPOUT  = 0x11
	cmdNORON   = 0x13
	cmdINVON   = 0x21
	cmdDISPON  = 0x29
	cmdCASET   = 0x2A
	cmdRASET   = 0x2B
	cmdRAMWR   = 0x2C
	cmdMADCTL  = 0x36
	cmdCOLMOD  = 0x3A
)

// MADCTL values for the four rotations.
const (
	madctlMX = 0x40
	madctlMY = 0x80
	madctlMV = 0x20
)

// maxChunk keeps transfers under the usual spidev buffer limit.
const maxChunk = 4096

// Config is the static panel and bus configuration.
type Config struct {
	SPIPort   string
	Frequency physic.Frequency
	DCPin     string
	RSTPin    string
	BLPin     string // optional
	Width     int
	Height    int
	XOffset   int
	YOffset   int
	Rotation  int // 0-3, quarter turns
	Invert    bool
}

// Bus is the subset of spi.Conn the driver needs.
type Bus interface {
	Tx(w, r []byte) error
}

// OutPin is the subset of gpio.PinOut the driver needs.
type OutPin interface {
	Out(l gpio.Level) error
}

type initStep struct {
	cmd   byte
	data  []byte
	delay time.Duration
}

// Panel is an initialized display.
type Panel struct {
	cfg    Config
	bus    Bus
	dc     OutPin
	rst    OutPin
	bl     OutPin
	closer io.Closer
	buf    []byte
	sleep  func(time.Duration)
}

// Open initializes the host drivers, opens the SPI port and resets the panel.
func Open(cfg Config) (*Panel, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	port, err := spireg.Open(cfg.SPIPort)
	if err != nil {
		return nil, fmt.Errorf("open spi %q: %w", cfg.SPIPort, err)
	}
	conn, err := port.Connect(cfg.Frequency, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("connect spi %q: %w", cfg.SPIPort, err)
	}
	dc := gpioreg.ByName(cfg.DCPin)
	if dc == nil {
		_ = port.Close()
		return nil, fmt.Errorf("dc pin %q not found", cfg.DCPin)
	}
	rst := gpioreg.ByName(cfg.RSTPin)
	if rst == nil {
		_ = port.Close()
		return nil, fmt.Errorf("rst pin %q not found", cfg.RSTPin)
	}
	p := New(cfg, conn, dc, rst)
	p.closer = port
	if cfg.BLPin != "" {
		if bl := gpioreg.ByName(cfg.BLPin); bl != nil {
			p.bl = bl
		}
	}
	if err := p.Init(); err != nil {
		_ = port.Close()
		return nil, err
	}
	return p, nil
}

// New wraps an already connected bus and pins. Call Init before Flush.
func New(cfg Config, bus Bus, dc, rst OutPin) *Panel {
	return &Panel{
		cfg:   cfg,
		bus:   bus,
		dc:    dc,
		rst:   rst,
		buf:   make([]byte, cfg.Width*cfg.Height*2),
		sleep: time.Sleep,
	}
}

// Init resets the controller and runs the power-up sequence.
func (p *Panel) Init() error {
	if err := p.rst.Out(gpio.Low); err != nil {
		return fmt.Errorf("reset low: %w", err)
	}
	p.sleep(10 * time.Millisecond)
	if err := p.rst.Out(gpio.High); err != nil {
		return fmt.Errorf("reset high: %w", err)
	}
	p.sleep(120 * time.Millisecond)

	steps := []initStep{
		{cmdSWRESET, nil, 150 * time.Millisecond},
		{cmdSLPOUT, nil, 120 * time.Millisecond},
		{cmdCOLMOD, []byte{0x55}, 10 * time.Millisecond}, // 16 bit RGB565
		{cmdMADCTL, []byte{madctl(p.cfg.Rotation)}, 0},
		{cmdNORON, nil, 10 * time.Millisecond},
	}
	if p.cfg.Invert {
		steps = append(steps, initStep{cmd: cmdINVON})
	}
	for _, s := range steps {
		if err := p.command(s.cmd, s.data...); err != nil {
			return fmt.Errorf("init 0x%02x: %w", s.cmd, err)
		}
		if s.delay > 0 {
			p.sleep(s.delay)
		}
	}
	if err := p.command(cmdDISPON); err != nil {
		return fmt.Errorf("display on: %w", err)
	}
	return p.Backlight(true)
}

// Backlight switches the backlight pin, if one is configured.
func (p *Panel) Backlight(on bool) error {
	if p.bl == nil {
		return nil
	}
	return p.bl.Out(gpio.Level(on))
}

// Flush writes a full frame. The frame must match the configured size.
func (p *Panel) Flush(frame *image.RGBA) error {
	b := frame.Bounds()
	if b.Dx() != p.cfg.Width || b.Dy() != p.cfg.Height {
		return fmt.Errorf("frame %dx%d does not match panel %dx%d", b.Dx(), b.Dy(), p.cfg.Width, p.cfg.Height)
	}
	toRGB565(p.buf, frame)
	if err := p.setWindow(p.cfg.XOffset, p.cfg.YOffset, p.cfg.XOffset+p.cfg.Width-1, p.cfg.YOffset+p.cfg.Height-1); err != nil {
		return err
	}
	if err := p.dc.Out(gpio.High); err != nil {
		return err
	}
	for off := 0; off < len(p.buf); off += maxChunk {
		end := off + maxChunk
		if end > len(p.buf) {
			end = len(p.buf)
		}
		if err := p.bus.Tx(p.buf[off:end], nil); err != nil {
			return fmt.Errorf("write pixels: %w", err)
		}
	}
	return nil
}

// Close releases the SPI port when the panel was opened with Open.
func (p *Panel) Close() error {
	var err error
	if blErr := p.Backlight(false); blErr != nil {
		err = blErr
	}
	if p.closer != nil {
		err = errors.Join(err, p.closer.Close())
	}
	return err
}

func (p *Panel) setWindow(x0, y0, x1, y1 int) error {
	if err := p.command(cmdCASET, byte(x0>>8), byte(x0), byte(x1>>8), byte(x1)); err != nil {
		return fmt.Errorf("column address: %w", err)
	}
	if err := p.command(cmdRASET, byte(y0>>8), byte(y0), byte(y1>>8), byte(y1)); err != nil {
		return fmt.Errorf("row address: %w", err)
	}
	return p.command(cmdRAMWR)
}

func (p *Panel) command(cmd byte, data ...byte) error {
	if err := p.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := p.bus.Tx([]byte{cmd}, nil); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := p.dc.Out(gpio.High); err != nil {
		return err
	}
	return p.bus.Tx(data, nil)
}

func madctl(rotation int) byte {
	switch rotation & 3 {
	case 1:
		return madctlMX | madctlMV
	case 2:
		return madctlMX | madctlMY
	case 3:
		return madctlMY | madctlMV
	default:
		return 0
	}
}

// toRGB565 packs frame pixels big-endian into dst.
func toRGB565(dst []byte, frame *image.RGBA) {
	b := frame.Bounds()
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := frame.Pix[frame.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			r, g, bl := row[x*4], row[x*4+1], row[x*4+2]
			c := uint16(r&0xF8)<<8 | uint16(g&0xFC)<<3 | uint16(bl)>>3
			dst[i] = byte(c >> 8)
			dst[i+1] = byte(c)
			i += 2
		}
	}
}

// Discard is a Flusher for headless runs.
type Discard struct{}

// Flush drops the frame.
func (Discard) Flush(*image.RGBA) error { return nil }
