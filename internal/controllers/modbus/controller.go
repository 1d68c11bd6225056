package modbusctrl

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
	mbserver "github.com/tbrandon/mbserver"

	"github.com/Agrid-Dev/heatrecovery/internal/ports"
	"github.com/Agrid-Dev/heatrecovery/internal/recovery"
)

// Config for the Modbus controller.
type Config struct {
	DeviceID string
	Addr     string
	UnitID   byte // UnitID (Modbus slave/unit ID). Use an integer 1..247.

	Logger *log.Logger
}

type Controller struct {
	svc ports.RecoveryService
	cfg Config
	log *log.Entry

	serv *mbserver.Server
}

func New(svc ports.RecoveryService, cfg Config) (*Controller, error) {
	if cfg.UnitID == 0 {
		return nil, errors.New("modbus: UnitID is required (non-zero)")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:1502"
	}
	if cfg.Logger == nil {
		cfg.Logger = log.StandardLogger()
	}
	return &Controller{
		svc: svc,
		cfg: cfg,
		log: cfg.Logger.WithFields(log.Fields{"controller": "modbus", "device_id": cfg.DeviceID}),
	}, nil
}

// Run starts the Modbus server. Reads are served from the plant snapshot and
// writes are applied immediately. It blocks until ctx is canceled.
func (c *Controller) Run(ctx context.Context) error {
	serv := mbserver.NewServer()
	c.serv = serv

	// Register handlers BEFORE starting the TCP listener to avoid races inside mbserver
	// between handler registration and the server's goroutines.
	serv.RegisterFunctionHandler(1, c.readCoils)
	serv.RegisterFunctionHandler(3, c.readHolding)
	serv.RegisterFunctionHandler(4, c.readInput)
	serv.RegisterFunctionHandler(5, c.writeCoil)
	serv.RegisterFunctionHandler(6, c.writeRegister)
	serv.RegisterFunctionHandler(16, c.writeRegisters)

	if err := serv.ListenTCP(c.cfg.Addr); err != nil {
		return fmt.Errorf("mbserver listen tcp %s: %w", c.cfg.Addr, err)
	}
	c.log.WithField("addr", c.cfg.Addr).Info("modbus listening")

	<-ctx.Done()
	serv.Close()
	return ctx.Err()
}

// Read Coils (function 1). Coil 0 is is_manual_cop.
func (c *Controller) readCoils(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	start := binary.BigEndian.Uint16(data[0:2])
	qty := binary.BigEndian.Uint16(data[2:4])
	if qty == 0 || qty > 2000 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	if start != 0 || qty != 1 {
		return []byte{}, &mbserver.IllegalDataAddress
	}
	coil := byte(0)
	if c.svc.Get().Request.IsManualCOP {
		coil = 0x01
	}
	return []byte{1, coil}, &mbserver.Success
}

// Read Holding Registers (function 3): the active scenario.
func (c *Controller) readHolding(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	start, qty, exc := readRange(frame.GetData(), len(holdingRegisters))
	if exc != nil {
		return []byte{}, exc
	}
	req := c.svc.Get().Request
	regs := make([]uint16, qty)
	for i := range regs {
		regs[i] = holdingRegisters[start+i].read(req)
	}
	return registerResponse(regs), &mbserver.Success
}

// Read Input Registers (function 4): the last operating point.
func (c *Controller) readInput(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	start, qty, exc := readRange(frame.GetData(), inputRegisterCount)
	if exc != nil {
		return []byte{}, exc
	}
	regs := inputRegisters(c.svc.Get())
	return registerResponse(regs[start : start+qty]), &mbserver.Success
}

// Write Single Coil (function 5).
func (c *Controller) writeCoil(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	addr := binary.BigEndian.Uint16(data[0:2])
	value := binary.BigEndian.Uint16(data[2:4])
	if addr != 0 {
		return []byte{}, &mbserver.IllegalDataAddress
	}

	var raw []byte
	switch value {
	case 0x0000:
		raw = []byte("false")
	case 0xFF00:
		raw = []byte("true")
	default:
		return []byte{}, &mbserver.IllegalDataValue
	}
	if err := c.svc.SetField("is_manual_cop", raw); err != nil {
		c.log.WithError(err).Warn("write coil rejected")
		return []byte{}, &mbserver.IllegalDataValue
	}

	// echo request (address + value)
	resp := make([]byte, 4)
	copy(resp, data[0:4])
	return resp, &mbserver.Success
}

// Write Single Register (function 6).
func (c *Controller) writeRegister(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	addr := int(binary.BigEndian.Uint16(data[0:2]))
	value := binary.BigEndian.Uint16(data[2:4])
	if addr >= len(holdingRegisters) {
		return []byte{}, &mbserver.IllegalDataAddress
	}

	reg := holdingRegisters[addr]
	v, err := reg.value(value)
	if err != nil {
		return []byte{}, &mbserver.IllegalDataValue
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return []byte{}, &mbserver.SlaveDeviceFailure
	}
	if err := c.svc.SetField(reg.field, raw); err != nil {
		c.log.WithError(err).WithField("register", addr).Warn("write rejected")
		return []byte{}, &mbserver.IllegalDataValue
	}

	resp := make([]byte, 4)
	copy(resp, data[0:4])
	return resp, &mbserver.Success
}

// Write Multiple Registers (function 16). The block is applied as one
// scenario change, so fields that only make sense together can be written at
// once.
func (c *Controller) writeRegisters(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	d := frame.GetData()
	if len(d) < 5 {
		return []byte{}, &mbserver.IllegalDataValue
	}
	start := binary.BigEndian.Uint16(d[0:2])
	quantity := binary.BigEndian.Uint16(d[2:4])
	byteCount := int(d[4])
	if quantity == 0 || byteCount != int(quantity)*2 || len(d) < 5+byteCount {
		return []byte{}, &mbserver.IllegalDataValue
	}
	if int(start)+int(quantity) > len(holdingRegisters) {
		return []byte{}, &mbserver.IllegalDataAddress
	}

	patch := make(map[string]any, quantity)
	for i := 0; i < int(quantity); i++ {
		reg := holdingRegisters[int(start)+i]
		v, err := reg.value(binary.BigEndian.Uint16(d[5+i*2 : 5+i*2+2]))
		if err != nil {
			return []byte{}, &mbserver.IllegalDataValue
		}
		patch[reg.field] = v
	}
	b, err := json.Marshal(patch)
	if err != nil {
		return []byte{}, &mbserver.SlaveDeviceFailure
	}
	_, err = c.svc.UpdateScenario(func(req *recovery.SolverRequest) error {
		return json.Unmarshal(b, req)
	})
	if err != nil {
		c.log.WithError(err).WithField("start", start).Warn("write rejected")
		return []byte{}, &mbserver.IllegalDataValue
	}

	resp := make([]byte, 4)
	binary.BigEndian.PutUint16(resp[0:2], start)
	binary.BigEndian.PutUint16(resp[2:4], quantity)
	return resp, &mbserver.Success
}

// readRange decodes a read request against a block of n registers.
func readRange(data []byte, n int) (int, int, *mbserver.Exception) {
	if len(data) < 4 {
		return 0, 0, &mbserver.IllegalDataValue
	}
	start := int(binary.BigEndian.Uint16(data[0:2]))
	qty := int(binary.BigEndian.Uint16(data[2:4]))
	if qty == 0 || qty > 125 {
		return 0, 0, &mbserver.IllegalDataValue
	}
	if start+qty > n {
		return 0, 0, &mbserver.IllegalDataAddress
	}
	return start, qty, nil
}

// registerResponse builds byte count + register bytes.
func registerResponse(regs []uint16) []byte {
	byteCount := len(regs) * 2
	resp := make([]byte, 1+byteCount)
	resp[0] = byte(byteCount)
	for i, r := range regs {
		binary.BigEndian.PutUint16(resp[1+i*2:1+i*2+2], r)
	}
	return resp
}
