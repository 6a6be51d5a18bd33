package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"golang.org/x/mod/semver"

	"github.com/covenant-lang/covenant/internal/cverr"
)

// maxPoolLen bounds constant-pool and contract-table counts read from an
// untrusted module, mirroring the size sanity checks a hand-rolled binary
// reader needs against a truncated or adversarial file.
const maxPoolLen = 1 << 20

// Read decodes a .covc module from r. An unrecognized opcode, a bad magic
// number, or an unsupported version byte are all hard decode errors (§4.9).
func Read(r io.Reader) (*Module, error) {
	var preamble [5]byte
	if _, err := io.ReadFull(r, preamble[:]); err != nil {
		return nil, cverr.Wrap(cverr.KindDecode, "read preamble", err)
	}
	if string(preamble[0:4]) != Magic {
		return nil, cverr.Newf(cverr.KindDecode, "Invalid magic number: got %q, expected %q", preamble[0:4], Magic)
	}
	version := preamble[4]
	if !IsSupportedVersion(version) {
		return nil, cverr.Newf(cverr.KindDecode, "unsupported module version: %d", version)
	}

	rest, err := io.ReadAll(r)
	if err != nil {
		return nil, cverr.Wrap(cverr.KindDecode, "read module body", err)
	}
	br := bytes.NewReader(rest)

	m := &Module{}
	if m.Constants, err = readConstants(br); err != nil {
		return nil, err
	}
	if m.Contracts, err = readContracts(br); err != nil {
		return nil, err
	}
	return m, nil
}

// IsSupportedVersion reports whether version is decodable by this reader.
// Grounded on the same major/minor gate as a semantic-version compatibility
// check: this reader supports exactly the current format version.
func IsSupportedVersion(version byte) bool {
	return semver.Compare(fmt.Sprintf("v%d.0.0", version), fmt.Sprintf("v%d.0.0", FormatVersion)) == 0
}

func readU16(r *bytes.Reader) (uint16, error) {
	var v uint16
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readU16(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readConstants(r *bytes.Reader) ([]Const, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, cverr.Wrap(cverr.KindDecode, "read constant count", err)
	}
	if count > maxPoolLen {
		return nil, cverr.Newf(cverr.KindDecode, "constant count %d exceeds maximum %d", count, maxPoolLen)
	}
	consts := make([]Const, 0, count)
	for i := uint32(0); i < count; i++ {
		c, err := readConst(r)
		if err != nil {
			return nil, cverr.Wrap(cverr.KindDecode, fmt.Sprintf("read constant %d", i), err)
		}
		consts = append(consts, c)
	}
	return consts, nil
}

func readConst(r *bytes.Reader) (Const, error) {
	tagByte, err := r.ReadByte()
	if err != nil {
		return Const{}, err
	}
	tag := ConstTag(tagByte)
	switch tag {
	case ConstNull:
		return NullConst(), nil
	case ConstInt:
		var v int64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return Const{}, err
		}
		return IntConst(v), nil
	case ConstFloat:
		var bits uint64
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return Const{}, err
		}
		return FloatConst(math.Float64frombits(bits)), nil
	case ConstString:
		s, err := readString(r)
		if err != nil {
			return Const{}, err
		}
		return StringConst(s), nil
	case ConstBool:
		b, err := r.ReadByte()
		if err != nil {
			return Const{}, err
		}
		return BoolConst(b != 0), nil
	default:
		return Const{}, cverr.Newf(cverr.KindDecode, "unknown constant tag %d", tagByte)
	}
}

func readContracts(r *bytes.Reader) ([]CompiledContract, error) {
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, cverr.Wrap(cverr.KindDecode, "read contract count", err)
	}
	if count > maxPoolLen {
		return nil, cverr.Newf(cverr.KindDecode, "contract count %d exceeds maximum %d", count, maxPoolLen)
	}
	contracts := make([]CompiledContract, 0, count)
	for i := uint32(0); i < count; i++ {
		c, err := readContract(r)
		if err != nil {
			return nil, cverr.Wrap(cverr.KindDecode, fmt.Sprintf("read contract %d", i), err)
		}
		contracts = append(contracts, c)
	}
	return contracts, nil
}

func readContract(r *bytes.Reader) (CompiledContract, error) {
	var c CompiledContract
	var err error

	if c.Name, err = readString(r); err != nil {
		return c, err
	}

	paramCount, err := readU16(r)
	if err != nil {
		return c, err
	}
	c.ParamNames = make([]string, paramCount)
	for i := range c.ParamNames {
		if c.ParamNames[i], err = readString(r); err != nil {
			return c, err
		}
	}
	typeCount, err := readU16(r)
	if err != nil {
		return c, err
	}
	c.ParamTypes = make([]string, typeCount)
	for i := range c.ParamTypes {
		if c.ParamTypes[i], err = readString(r); err != nil {
			return c, err
		}
	}

	hasReturn, err := r.ReadByte()
	if err != nil {
		return c, err
	}
	c.HasReturn = hasReturn != 0
	if c.HasReturn {
		if c.ReturnType, err = readString(r); err != nil {
			return c, err
		}
	}

	localCount, err := readU16(r)
	if err != nil {
		return c, err
	}
	c.LocalCount = localCount

	nameCount, err := readU16(r)
	if err != nil {
		return c, err
	}
	c.LocalNames = make([]string, nameCount)
	for i := range c.LocalNames {
		if c.LocalNames[i], err = readString(r); err != nil {
			return c, err
		}
	}

	var codeLen uint32
	if err := binary.Read(r, binary.LittleEndian, &codeLen); err != nil {
		return c, err
	}
	if codeLen > maxPoolLen {
		return c, cverr.Newf(cverr.KindDecode, "code length %d exceeds maximum %d", codeLen, maxPoolLen)
	}
	c.Code = make([]Instr, codeLen)
	for i := range c.Code {
		if c.Code[i], err = readInstr(r); err != nil {
			return c, err
		}
	}
	return c, nil
}

func readInstr(r *bytes.Reader) (Instr, error) {
	var in Instr
	opByte, err := r.ReadByte()
	if err != nil {
		return in, err
	}
	op := Op(opByte)
	if !IsKnown(op) {
		return in, cverr.Newf(cverr.KindDecode, "unknown opcode 0x%02x", opByte)
	}
	in.Op = op
	if err := binary.Read(r, binary.LittleEndian, &in.Index); err != nil {
		return in, err
	}
	if err := binary.Read(r, binary.LittleEndian, &in.PosCount); err != nil {
		return in, err
	}
	if err := binary.Read(r, binary.LittleEndian, &in.KwCount); err != nil {
		return in, err
	}
	if err := binary.Read(r, binary.LittleEndian, &in.JumpDelta); err != nil {
		return in, err
	}
	if in.FieldPath, err = readString(r); err != nil {
		return in, err
	}
	return in, nil
}
