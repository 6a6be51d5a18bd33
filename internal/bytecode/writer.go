package bytecode

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/covenant-lang/covenant/internal/cverr"
)

// Magic is the fixed 4-byte file magic for a .covc module (§4.9).
const Magic = "COVC"

// FormatVersion is the format version byte written after the magic.
const FormatVersion byte = 2

// Write serializes m to w as a .covc module: MAGIC(4) | VERSION(1) |
// CONST_COUNT(4) | constants | CONTRACT_COUNT(4) | contracts.
// All integers are little-endian (§4.9).
func Write(w io.Writer, m *Module) error {
	var buf bytes.Buffer
	if _, err := buf.WriteString(Magic); err != nil {
		return err
	}
	if err := buf.WriteByte(FormatVersion); err != nil {
		return err
	}

	if err := writeConstants(&buf, m.Constants); err != nil {
		return err
	}
	if err := writeContracts(&buf, m.Contracts); err != nil {
		return err
	}

	_, err := w.Write(buf.Bytes())
	return err
}

func writeU16(buf *bytes.Buffer, v int) error {
	if v > math.MaxUint16 {
		return cverr.Newf(cverr.KindCompile, "value %d exceeds uint16 range", v)
	}
	return binary.Write(buf, binary.LittleEndian, uint16(v))
}

func writeString(buf *bytes.Buffer, s string) error {
	if err := writeU16(buf, len(s)); err != nil {
		return err
	}
	_, err := buf.WriteString(s)
	return err
}

func writeConstants(buf *bytes.Buffer, consts []Const) error {
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(consts))); err != nil {
		return err
	}
	for _, c := range consts {
		if err := buf.WriteByte(byte(c.Tag)); err != nil {
			return err
		}
		switch c.Tag {
		case ConstNull:
			// no payload
		case ConstInt:
			if err := binary.Write(buf, binary.LittleEndian, c.Int); err != nil {
				return err
			}
		case ConstFloat:
			if err := binary.Write(buf, binary.LittleEndian, math.Float64bits(c.Float)); err != nil {
				return err
			}
		case ConstString:
			if err := writeString(buf, c.String); err != nil {
				return err
			}
		case ConstBool:
			v := byte(0)
			if c.Bool {
				v = 1
			}
			if err := buf.WriteByte(v); err != nil {
				return err
			}
		default:
			return cverr.Newf(cverr.KindCompile, "unknown constant tag %d", c.Tag)
		}
	}
	return nil
}

func writeContracts(buf *bytes.Buffer, contracts []CompiledContract) error {
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(contracts))); err != nil {
		return err
	}
	for _, c := range contracts {
		if err := writeContract(buf, &c); err != nil {
			return err
		}
	}
	return nil
}

func writeContract(buf *bytes.Buffer, c *CompiledContract) error {
	if err := writeString(buf, c.Name); err != nil {
		return err
	}

	if err := writeU16(buf, len(c.ParamNames)); err != nil {
		return err
	}
	for _, n := range c.ParamNames {
		if err := writeString(buf, n); err != nil {
			return err
		}
	}
	if err := writeU16(buf, len(c.ParamTypes)); err != nil {
		return err
	}
	for _, t := range c.ParamTypes {
		if err := writeString(buf, t); err != nil {
			return err
		}
	}

	hasReturn := byte(0)
	if c.HasReturn {
		hasReturn = 1
	}
	if err := buf.WriteByte(hasReturn); err != nil {
		return err
	}
	if c.HasReturn {
		if err := writeString(buf, c.ReturnType); err != nil {
			return err
		}
	}

	if err := writeU16(buf, int(c.LocalCount)); err != nil {
		return err
	}
	if err := writeU16(buf, len(c.LocalNames)); err != nil {
		return err
	}
	for _, n := range c.LocalNames {
		if err := writeString(buf, n); err != nil {
			return err
		}
	}

	if err := binary.Write(buf, binary.LittleEndian, uint32(len(c.Code))); err != nil {
		return err
	}
	for _, in := range c.Code {
		if err := writeInstr(buf, in); err != nil {
			return err
		}
	}
	return nil
}

func writeInstr(buf *bytes.Buffer, in Instr) error {
	if err := buf.WriteByte(byte(in.Op)); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, in.Index); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, in.PosCount); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, in.KwCount); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, in.JumpDelta); err != nil {
		return err
	}
	return writeString(buf, in.FieldPath)
}
